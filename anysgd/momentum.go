package anysgd

import "github.com/unixpickle/anydiff"

// Momentum implements SGD with momentum.
//
// The transformed gradient v is computed as
//
//	v := momentum * v + grad
type Momentum struct {
	Momentum float64

	// Vars is used by MarshalBinary, like Adam.Vars.
	Vars []*anydiff.Var

	rolling anydiff.Grad
}

// Transform transforms the gradient using momentum.
//
// This is not thread-safe.
func (m *Momentum) Transform(g anydiff.Grad) anydiff.Grad {
	if m.rolling == nil {
		m.rolling = copyGrad(g)
		return g
	}
	for v, x := range m.rolling {
		x.Scale(x.Creator().MakeNumeric(m.Momentum))
		x.Add(g[v])
		g[v].Set(x)
	}
	return g
}

// MarshalBinary saves the rolling gradient.
func (m *Momentum) MarshalBinary() ([]byte, error) {
	return marshalState(m.Vars, nil, m.rolling)
}

// UnmarshalBinary restores state saved by MarshalBinary.
func (m *Momentum) UnmarshalBinary(data []byte) error {
	_, grads, err := unmarshalState(m.Vars, data, 0, 1)
	if err != nil {
		return err
	}
	m.rolling = grads[0]
	return nil
}
