package anycrf

import (
	"fmt"

	"github.com/unixpickle/anyvec"
)

// vectorFloats copies a vector's contents into a []float64.
//
// The vector's creator must use []float32 or []float64
// numeric lists.
func vectorFloats(v anyvec.Vector) []float64 {
	switch d := v.Data().(type) {
	case []float64:
		return d
	case []float32:
		s := make([]float64, len(d))
		for i, x := range d {
			s[i] = float64(x)
		}
		return s
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", d))
	}
}

func makeVector(c anyvec.Creator, data []float64) anyvec.Vector {
	return c.MakeVectorData(c.MakeNumericList(data))
}
