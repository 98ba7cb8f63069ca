package train

import (
	"fmt"
	"os"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/crftag/anysgd"
	"github.com/unixpickle/crftag/config"
	"github.com/unixpickle/essentials"
)

// NewOptimizer creates the gradient transformer for an
// optimizer name.
// Plain SGD has no transformer, so it yields nil.
func NewOptimizer(name string, params []*anydiff.Var) (anysgd.Transformer, error) {
	switch name {
	case config.OptimizerAdam:
		return &anysgd.Adam{Vars: params}, nil
	case config.OptimizerRMSProp:
		return &anysgd.RMSProp{Vars: params}, nil
	case config.OptimizerMomentum:
		return &anysgd.Momentum{Momentum: 0.9, Vars: params}, nil
	case config.OptimizerSGD:
		return nil, nil
	default:
		return nil, fmt.Errorf("new optimizer: %w: %q", config.ErrUnknownOption, name)
	}
}

// OptimizerPath is where the optimizer state for a model
// checkpoint is kept.
func OptimizerPath(modelPath string) string {
	return modelPath + ".opt"
}

func saveOptimizer(t anysgd.Transformer, path string) error {
	m, ok := t.(anysgd.TransformMarshaler)
	if !ok {
		return nil
	}
	data, err := m.MarshalBinary()
	if err != nil {
		return essentials.AddCtx("save optimizer", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("save optimizer", err)
	}
	return nil
}

// loadOptimizer restores optimizer state.
// A missing state file leaves the optimizer fresh.
func loadOptimizer(t anysgd.Transformer, path string) (bool, error) {
	m, ok := t.(anysgd.TransformMarshaler)
	if !ok {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, essentials.AddCtx("load optimizer", err)
	}
	if err := m.UnmarshalBinary(data); err != nil {
		return false, essentials.AddCtx("load optimizer", err)
	}
	return true, nil
}
