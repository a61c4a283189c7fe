package nnet

import (
	"fmt"
	"strings"

	"gorgonia.org/gorgonia"
)

// Optimizer names accepted in Config.Optimizer
var Optimizers = []string{"sgd", "momentum", "adam", "rmsprop"}

// NewSolver creates the gorgonia optimizer selected by the config. Eta is the learning
// rate and Lambda the L2 weight decay, an empty name selects plain SGD.
func NewSolver(conf Config) (gorgonia.Solver, error) {
	if conf.Eta <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %g", conf.Eta)
	}
	opts := []gorgonia.SolverOpt{gorgonia.WithLearnRate(conf.Eta)}
	if conf.Lambda != 0 {
		opts = append(opts, gorgonia.WithL2Reg(conf.Lambda))
	}
	switch strings.ToLower(conf.Optimizer) {
	case "", "sgd":
		return gorgonia.NewVanillaSolver(opts...), nil
	case "momentum":
		if conf.Momentum != 0 {
			opts = append(opts, gorgonia.WithMomentum(conf.Momentum))
		}
		return gorgonia.NewMomentum(opts...), nil
	case "adam":
		return gorgonia.NewAdamSolver(opts...), nil
	case "rmsprop":
		return gorgonia.NewRMSPropSolver(opts...), nil
	default:
		return nil, fmt.Errorf("invalid optimizer %q: expect one of %s", conf.Optimizer, strings.Join(Optimizers, ", "))
	}
}
