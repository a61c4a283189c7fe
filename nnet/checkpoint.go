package nnet

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path"
)

// Weights and biases for one layer
type LayerData struct {
	Layer   int
	Weights []float32
	Biases  []float32
}

// Checkpoint holds the state needed to resume a training run. Optimizer state such as
// momentum or Adam moment estimates is not saved: Restore starts a new solver, so a
// resumed run matches a fresh run begun from the saved weights.
type Checkpoint struct {
	Model  string
	Conf   Config
	Epoch  int
	Stats  []Stats
	Params []LayerData
}

// Export current weights
func (n *Network) Export() []LayerData {
	params := []LayerData{}
	for i, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			W, B := l.Weights()
			params = append(params, LayerData{Layer: i, Weights: W, Biases: B})
		}
	}
	return params
}

// Import weights previously saved with Export
func (n *Network) Import(params []LayerData) error {
	nlayers := len(n.Layers)
	for _, p := range params {
		if p.Layer < 0 || p.Layer >= nlayers {
			return fmt.Errorf("layer %d import error: network has %d layers total", p.Layer, nlayers)
		}
		layer, ok := n.Layers[p.Layer].(ParamLayer)
		if !ok {
			return fmt.Errorf("layer %d import error: not a ParamLayer", p.Layer)
		}
		if err := layer.SetParams(p.Weights, p.Biases); err != nil {
			return fmt.Errorf("layer %d import error: %w", p.Layer, err)
		}
	}
	return nil
}

// Checkpoint returns the current network state.
func (n *Network) Checkpoint(model string, stats []Stats) *Checkpoint {
	return &Checkpoint{
		Model:  model,
		Conf:   n.Config,
		Epoch:  n.Epoch,
		Stats:  append([]Stats{}, stats...),
		Params: n.Export(),
	}
}

// Restore weights and epoch count from a checkpoint.
func (n *Network) Restore(c *Checkpoint) error {
	if err := n.Import(c.Params); err != nil {
		return err
	}
	n.Epoch = c.Epoch
	if n.training {
		solver, err := NewSolver(n.Config)
		if err != nil {
			return err
		}
		n.solver = solver
	}
	return nil
}

// Encode checkpoint in gob format and save to <model>.ckpt under DataDir
func SaveCheckpoint(c *Checkpoint) error {
	return saveFile(c.Model+".ckpt", func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(c)
	})
}

// Read back checkpoint for given model
func LoadCheckpoint(model string) (*Checkpoint, error) {
	f, err := os.Open(path.Join(DataDir, model+".ckpt"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c := new(Checkpoint)
	if err = gob.NewDecoder(f).Decode(c); err != nil {
		return nil, fmt.Errorf("error decoding checkpoint %s: %w", model, err)
	}
	return c, nil
}
