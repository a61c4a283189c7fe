// Package nnet contains routines for constructing, training and testing neural networks.
// The tensor maths, gradient computation and parameter updates are delegated to gorgonia.
package nnet

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Network type represents a multilayer neural network model.
type Network struct {
	Config
	Layers    []Layer
	Epoch     int
	BatchSize int
	training  bool
	inShape   []int
	classes   int
	graph     *gorgonia.ExprGraph
	x, y      *gorgonia.Node
	scale     *gorgonia.Node
	output    *gorgonia.Node
	loss      *gorgonia.Node
	outVal    gorgonia.Value
	lossVal   gorgonia.Value
	vm        gorgonia.VM
	solver    gorgonia.Solver
}

// New function creates a new network with the given layers. The input is flattened to
// batchSize rows of features. If train is set then the graph includes the backward pass
// and an optimizer is created.
func New(conf Config, batchSize int, inShape []int, train bool) (*Network, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("invalid batch size %d", batchSize)
	}
	n := &Network{Config: conf, BatchSize: batchSize, training: train}
	n.inShape = []int{batchSize, prod(inShape)}
	n.graph = gorgonia.NewGraph()
	n.x = gorgonia.NewMatrix(n.graph, tensor.Float32, gorgonia.WithShape(n.inShape...), gorgonia.WithName("x"))
	shape := n.inShape
	out := n.x
	for i, l := range conf.Layers {
		layer, err := l.Unmarshal()
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if err = layer.Init(n.graph, shape, i); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if out, err = layer.Fprop(out); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		n.Layers = append(n.Layers, layer)
		shape = layer.OutShape(shape)
	}
	if len(n.Layers) == 0 {
		return nil, errors.New("network has no layers")
	}
	if _, ok := n.Layers[len(n.Layers)-1].(*logSoftmax); !ok {
		return nil, errors.New("final layer must be logSoftmax")
	}
	n.output = out
	n.classes = shape[1]
	if err := n.buildLoss(shape); err != nil {
		return nil, err
	}
	gorgonia.Read(n.output, &n.outVal)
	gorgonia.Read(n.loss, &n.lossVal)
	if !train {
		n.vm = gorgonia.NewTapeMachine(n.graph)
		return n, nil
	}
	learnables := n.learnables()
	if len(learnables) == 0 {
		return nil, errors.New("network has no trainable parameters")
	}
	if _, err := gorgonia.Grad(n.loss, learnables...); err != nil {
		return nil, fmt.Errorf("error building backward pass: %w", err)
	}
	var err error
	if n.solver, err = NewSolver(conf); err != nil {
		return nil, err
	}
	n.vm = gorgonia.NewTapeMachine(n.graph, gorgonia.BindDualValues(learnables...))
	return n, nil
}

// negative log likelihood: -sum(logp * y) / samples where y is one hot and padding rows are zero
func (n *Network) buildLoss(outShape []int) (err error) {
	n.y = gorgonia.NewMatrix(n.graph, tensor.Float32, gorgonia.WithShape(outShape...), gorgonia.WithName("y"))
	n.scale = gorgonia.NewScalar(n.graph, tensor.Float32, gorgonia.WithName("scale"))
	var prod, sum, mean *gorgonia.Node
	if prod, err = gorgonia.HadamardProd(n.output, n.y); err != nil {
		return fmt.Errorf("loss: %w", err)
	}
	if sum, err = gorgonia.Sum(prod); err != nil {
		return fmt.Errorf("loss: %w", err)
	}
	if mean, err = gorgonia.Mul(sum, n.scale); err != nil {
		return fmt.Errorf("loss: %w", err)
	}
	if n.loss, err = gorgonia.Neg(mean); err != nil {
		return fmt.Errorf("loss: %w", err)
	}
	return nil
}

func (n *Network) learnables() gorgonia.Nodes {
	var nodes gorgonia.Nodes
	for _, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			W, B := l.Params()
			nodes = append(nodes, W, B)
		}
	}
	return nodes
}

// Classes returns the number of output classes.
func (n *Network) Classes() int {
	return n.classes
}

// Features returns the number of input values per sample.
func (n *Network) Features() int {
	return n.inShape[1]
}

// Initialise network weights using a uniform or normal distribution.
// Weights for each layer are scaled by 1/sqrt(nin)
func (n *Network) InitWeights(rng *rand.Rand) {
	shape := n.inShape
	for _, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			nin := prod(shape[1:])
			scale := float32(1 / math.Sqrt(float64(nin)))
			l.InitParams(scale, float32(n.Bias), n.NormalWeights, rng)
		}
		shape = layer.OutShape(shape)
	}
	n.Epoch = 0
	if n.DebugLevel >= 2 {
		n.PrintWeights()
	}
}

// Copy weights and bias arrays to destination net
func (n *Network) CopyTo(net *Network) error {
	if len(net.Layers) != len(n.Layers) {
		return fmt.Errorf("copy weights: destination has %d layers expect %d", len(net.Layers), len(n.Layers))
	}
	for i, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			dst, ok := net.Layers[i].(ParamLayer)
			if !ok {
				return fmt.Errorf("copy weights: layer %d is not a ParamLayer", i)
			}
			if err := dst.SetParams(l.Weights()); err != nil {
				return fmt.Errorf("copy weights: layer %d %w", i, err)
			}
		}
	}
	net.Epoch = n.Epoch
	return nil
}

// Step performs one training step on a batch: the forward pass, backpropagation of the
// loss gradient and the optimizer update. samples is the number of valid rows in the batch,
// returns the mean loss prior to updating the weights.
func (n *Network) Step(x, y tensor.Tensor, samples int) (float64, error) {
	if !n.training {
		return 0, errors.New("network was not created for training")
	}
	defer n.vm.Reset()
	if err := n.run(x, y, samples); err != nil {
		return 0, err
	}
	if err := n.solver.Step(gorgonia.NodesToValueGrads(n.learnables())); err != nil {
		return 0, fmt.Errorf("optimizer step: %w", err)
	}
	return n.lossValue(), nil
}

// Eval runs the forward pass on a batch and returns the mean loss over the first samples
// rows, together with a copy of the log probabilities for each row.
func (n *Network) Eval(x, y tensor.Tensor, samples int) (loss float64, logp []float32, err error) {
	defer n.vm.Reset()
	if err = n.run(x, y, samples); err != nil {
		return
	}
	logp = append([]float32{}, n.outVal.Data().([]float32)...)
	return n.lossValue(), logp, nil
}

// Classify returns the class probabilities for a single input sample.
func (n *Network) Classify(input []float32) ([]float32, error) {
	if len(input) != n.Features() {
		return nil, fmt.Errorf("classify: input has %d values, expect %d", len(input), n.Features())
	}
	x := newTensor(n.inShape...)
	copy(x.Data().([]float32), input)
	y := newTensor(n.BatchSize, n.classes)
	_, logp, err := n.Eval(x, y, 1)
	if err != nil {
		return nil, err
	}
	probs := make([]float32, n.classes)
	for i := range probs {
		probs[i] = float32(math.Exp(float64(logp[i])))
	}
	return probs, nil
}

func (n *Network) run(x, y tensor.Tensor, samples int) error {
	if samples <= 0 || samples > n.BatchSize {
		return fmt.Errorf("invalid sample count %d for batch size %d", samples, n.BatchSize)
	}
	if err := gorgonia.Let(n.x, x); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := gorgonia.Let(n.y, y); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if err := gorgonia.Let(n.scale, gorgonia.NewF32(1/float32(samples))); err != nil {
		return err
	}
	if err := n.vm.RunAll(); err != nil {
		return fmt.Errorf("forward pass: %w", err)
	}
	return nil
}

func (n *Network) lossValue() float64 {
	return float64(n.lossVal.Data().(float32))
}

// Calculate the mean loss and error from the predicted versus actual values over the dataset.
// If pred slice is not nil then also return the predicted output classes.
func (n *Network) Error(dset *Dataset, pred []int32) (loss, errRate float64, err error) {
	if dset.BatchSize != n.BatchSize {
		return 0, 0, fmt.Errorf("dataset batch size %d does not match network %d", dset.BatchSize, n.BatchSize)
	}
	if dset.NumClasses() != n.classes {
		return 0, 0, fmt.Errorf("dataset has %d classes, network output %d", dset.NumClasses(), n.classes)
	}
	var total float64
	nerr := 0
	dset.Rewind()
	for batch := 0; batch < dset.Batches; batch++ {
		b := dset.NextBatch()
		batchLoss, logp, err := n.Eval(b.X, b.Y, b.Samples)
		if err != nil {
			return 0, 0, err
		}
		total += batchLoss * float64(b.Samples)
		batchErr := 0
		for i := 0; i < b.Samples; i++ {
			class := argmax(logp[i*n.classes : (i+1)*n.classes])
			if class != b.Labels[i] {
				batchErr++
			}
			if pred != nil {
				pred[batch*dset.BatchSize+i] = class
			}
		}
		nerr += batchErr
		if n.DebugLevel >= 2 || (n.DebugLevel >= 1 && batch == 0) {
			fmt.Printf("batch %d loss = %.4f errors = %d\n", batch, batchLoss, batchErr)
		}
	}
	return total / float64(dset.Samples), float64(nerr) / float64(dset.Samples), nil
}

func argmax(x []float32) int32 {
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return int32(best)
}

// Print network description
func (n *Network) String() string {
	s := make([]string, len(n.Layers))
	shape := n.inShape
	for i, layer := range n.Layers {
		s[i] = fmt.Sprintf("%2d: %-25s %v", i, layer.ToString(), shape)
		shape = layer.OutShape(shape)
	}
	return fmt.Sprintf("%s\n== Network ==\n%s", n.Config.configString(), strings.Join(s, "\n"))
}

// Print network weights
func (n *Network) PrintWeights() {
	for i, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			W, B := l.Weights()
			fmt.Printf("== Layer %d weights ==\n%.4f\n%.4f\n", i, W, B)
		}
	}
}

// Set random number seed, or random seed if seed <= 0
func SetSeed(seed int64) *rand.Rand {
	if seed <= 0 {
		seed = time.Now().UTC().UnixNano()
	}
	fmt.Println("random seed =", seed)
	return rand.New(rand.NewSource(seed))
}

// Exit in case of error
func CheckErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
