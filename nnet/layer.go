package nnet

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer interface type represents one layer of the neural net.
type Layer interface {
	Init(g *gorgonia.ExprGraph, inShape []int, index int) error
	OutShape(inShape []int) []int
	Fprop(in *gorgonia.Node) (*gorgonia.Node, error)
	ToString() string
}

// ParamLayer is a layer with weight and bias parameters
type ParamLayer interface {
	Layer
	InitParams(scale, bias float32, normal bool, rng *rand.Rand)
	Params() (W, B *gorgonia.Node)
	Weights() (W, B []float32)
	SetParams(W, B []float32) error
}

// Layer configuration details
type LayerConfig struct {
	Type string
	Data json.RawMessage
}

type ConfigLayer interface {
	Marshal() LayerConfig
}

// Unmarshal JSON data and construct new layer
func (l LayerConfig) Unmarshal() (Layer, error) {
	switch l.Type {
	case "linear":
		cfg := new(Linear)
		if err := unmarshal(l.Data, cfg); err != nil {
			return nil, err
		}
		if cfg.Nout <= 0 {
			return nil, fmt.Errorf("linear layer: invalid output size %d", cfg.Nout)
		}
		return &linear{Linear: *cfg}, nil
	case "activation":
		cfg := new(Activation)
		if err := unmarshal(l.Data, cfg); err != nil {
			return nil, err
		}
		layer := &activation{Activation: *cfg}
		switch cfg.Atype {
		case "relu":
			layer.activ = gorgonia.Rectify
		case "sigmoid":
			layer.activ = gorgonia.Sigmoid
		case "tanh":
			layer.activ = gorgonia.Tanh
		default:
			return nil, fmt.Errorf("activation type %q invalid", cfg.Atype)
		}
		return layer, nil
	case "logSoftmax":
		return &logSoftmax{}, nil
	default:
		return nil, fmt.Errorf("invalid layer type: %q", l.Type)
	}
}

func (l LayerConfig) String() string {
	layer, err := l.Unmarshal()
	if err != nil {
		return err.Error()
	}
	return layer.ToString()
}

// Linear fully connected layer, implements ParamLayer interface.
type Linear struct {
	Nout int
}

func (c Linear) Marshal() LayerConfig {
	return LayerConfig{Type: "linear", Data: marshal(c)}
}

func (c Linear) ToString() string {
	return fmt.Sprintf("linear %+v", c)
}

// Sigmoid, tanh or relu activation layer.
type Activation struct {
	Atype string
}

func (c Activation) Marshal() LayerConfig {
	return LayerConfig{Type: "activation", Data: marshal(c)}
}

func (c Activation) ToString() string {
	return fmt.Sprintf("activation %+v", c)
}

// LogSoftmax output layer, must be the last layer in the network.
type LogSoftmax struct{}

func (c LogSoftmax) Marshal() LayerConfig {
	return LayerConfig{Type: "logSoftmax"}
}

// linear layer implementation: out = in x W + b with the bias broadcast over the batch
type linear struct {
	Linear
	w, b *gorgonia.Node
}

func (l *linear) OutShape(inShape []int) []int {
	return []int{inShape[0], l.Nout}
}

func (l *linear) Init(g *gorgonia.ExprGraph, inShape []int, index int) error {
	if len(inShape) != 2 {
		return fmt.Errorf("linear: expect 2 dimensional input, got %v", inShape)
	}
	nIn := inShape[1]
	l.w = gorgonia.NewMatrix(g, tensor.Float32,
		gorgonia.WithShape(nIn, l.Nout),
		gorgonia.WithName(fmt.Sprintf("w%d", index)),
		gorgonia.WithValue(newTensor(nIn, l.Nout)),
	)
	l.b = gorgonia.NewMatrix(g, tensor.Float32,
		gorgonia.WithShape(1, l.Nout),
		gorgonia.WithName(fmt.Sprintf("b%d", index)),
		gorgonia.WithValue(newTensor(1, l.Nout)),
	)
	return nil
}

func (l *linear) Fprop(in *gorgonia.Node) (*gorgonia.Node, error) {
	xw, err := gorgonia.Mul(in, l.w)
	if err != nil {
		return nil, fmt.Errorf("linear: %w", err)
	}
	return gorgonia.BroadcastAdd(xw, l.b, nil, []byte{0})
}

func (l *linear) Params() (W, B *gorgonia.Node) {
	return l.w, l.b
}

func (l *linear) InitParams(scale, bias float32, normal bool, rng *rand.Rand) {
	weights := values(l.w)
	for i := range weights {
		if normal {
			weights[i] = float32(rng.NormFloat64()) * scale
		} else {
			weights[i] = (2*rng.Float32() - 1) * scale
		}
	}
	biases := values(l.b)
	for i := range biases {
		biases[i] = bias
	}
}

func (l *linear) Weights() (W, B []float32) {
	W = append([]float32{}, values(l.w)...)
	B = append([]float32{}, values(l.b)...)
	return
}

func (l *linear) SetParams(W, B []float32) error {
	weights, biases := values(l.w), values(l.b)
	if len(W) != len(weights) || len(B) != len(biases) {
		return fmt.Errorf("size mismatch - have %d %d - expect %d %d", len(W), len(B), len(weights), len(biases))
	}
	copy(weights, W)
	copy(biases, B)
	return nil
}

// activation layers
type activation struct {
	Activation
	activ func(*gorgonia.Node) (*gorgonia.Node, error)
}

func (l *activation) Init(g *gorgonia.ExprGraph, inShape []int, index int) error { return nil }

func (l *activation) OutShape(inShape []int) []int { return inShape }

func (l *activation) Fprop(in *gorgonia.Node) (*gorgonia.Node, error) {
	return l.activ(in)
}

// log softmax over the class axis
type logSoftmax struct{}

func (l *logSoftmax) ToString() string { return "logSoftmax" }

func (l *logSoftmax) Init(g *gorgonia.ExprGraph, inShape []int, index int) error {
	if len(inShape) != 2 {
		return fmt.Errorf("logSoftmax: expect 2 dimensional input, got %v", inShape)
	}
	return nil
}

func (l *logSoftmax) OutShape(inShape []int) []int { return inShape }

func (l *logSoftmax) Fprop(in *gorgonia.Node) (*gorgonia.Node, error) {
	return gorgonia.LogSoftMax(in)
}

func newTensor(shape ...int) *tensor.Dense {
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(make([]float32, prod(shape))))
}

// values returns the backing array for a float32 node, which the solver updates in place
func values(n *gorgonia.Node) []float32 {
	return n.Value().Data().([]float32)
}

func prod(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func marshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func unmarshal(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error decoding layer config: %w", err)
	}
	return nil
}
