package anycrf

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// TotalCost sums the per-sequence costs, optionally
// averaging them.
//
// For more information on the costs, see Cost().
func TotalCost(costs anydiff.Res, average bool) anydiff.Res {
	sum := anydiff.Sum(costs)
	if average && costs.Output().Len() > 0 {
		scaler := sum.Output().Creator().MakeNumeric(1 / float64(costs.Output().Len()))
		return anydiff.Scale(sum, scaler)
	}
	return sum
}

// Gradient back-propagates a scalar cost into a new
// gradient for params.
// It returns the gradient and the cost's value.
func Gradient(cost anydiff.Res, params []*anydiff.Var) (anydiff.Grad, anyvec.Numeric) {
	res := anydiff.NewGrad(params...)
	c := cost.Output().Creator()
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	cost.Propagate(upstream, res)
	return res, anyvec.Sum(cost.Output())
}
