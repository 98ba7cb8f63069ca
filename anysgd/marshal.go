package anysgd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

var errVarsGradMismatch = errors.New("variable list does not match gradients")

// marshalState encodes some scalars followed by a list of
// gradients, each prefixed by its length.
func marshalState(vars []*anydiff.Var, scalars []float64, grads ...anydiff.Grad) ([]byte, error) {
	var buf bytes.Buffer
	temp := make([]byte, 8)
	for _, x := range scalars {
		writeFloatBits(&buf, temp, x)
	}
	for _, g := range grads {
		data, err := marshalGradient(vars, g)
		if err != nil {
			return nil, essentials.AddCtx("marshal optimizer", err)
		}
		binary.BigEndian.PutUint64(temp, uint64(len(data)))
		buf.Write(temp)
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func unmarshalState(vars []*anydiff.Var, data []byte, numScalars,
	numGrads int) ([]float64, []anydiff.Grad, error) {
	scalars, grads, err := decodeState(vars, data, numScalars, numGrads)
	if err != nil {
		return nil, nil, essentials.AddCtx("unmarshal optimizer", err)
	}
	return scalars, grads, nil
}

func decodeState(vars []*anydiff.Var, data []byte, numScalars,
	numGrads int) (scalars []float64, grads []anydiff.Grad, err error) {
	r := bytes.NewReader(data)
	temp := make([]byte, 8)
	for i := 0; i < numScalars; i++ {
		if _, err := io.ReadFull(r, temp); err != nil {
			return nil, nil, err
		}
		scalars = append(scalars, math.Float64frombits(binary.BigEndian.Uint64(temp)))
	}
	for i := 0; i < numGrads; i++ {
		if _, err := io.ReadFull(r, temp); err != nil {
			return nil, nil, err
		}
		size := binary.BigEndian.Uint64(temp)
		if size > uint64(r.Len()) {
			return nil, nil, fmt.Errorf("gradient %d: truncated data", i)
		}
		gradData := make([]byte, size)
		if _, err := io.ReadFull(r, gradData); err != nil {
			return nil, nil, err
		}
		g, err := unmarshalGradient(vars, gradData)
		if err != nil {
			return nil, nil, err
		}
		grads = append(grads, g)
	}
	if r.Len() != 0 {
		return nil, nil, errors.New("trailing data")
	}
	return scalars, grads, nil
}

func marshalGradient(vars []*anydiff.Var, grad anydiff.Grad) ([]byte, error) {
	if grad == nil {
		return []byte{}, nil
	}
	if len(vars) != len(grad) {
		return nil, errVarsGradMismatch
	}

	var vecObjs []interface{}
	for _, v := range vars {
		vec, ok := grad[v]
		if !ok {
			return nil, errVarsGradMismatch
		}
		vecObjs = append(vecObjs, &anyvecsave.S{Vector: vec})
	}

	return serializer.SerializeAny(vecObjs...)
}

func unmarshalGradient(vars []*anydiff.Var, data []byte) (anydiff.Grad, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var dests []interface{}
	for range vars {
		dests = append(dests, new(*anyvecsave.S))
	}
	if err := serializer.DeserializeAny(data, dests...); err != nil {
		return nil, err
	}

	res := anydiff.Grad{}
	for i, v := range vars {
		vec := (*dests[i].(**anyvecsave.S)).Vector
		if vec.Len() != v.Vector.Len() {
			return nil, errors.New("bad vector length")
		}
		if vec.Creator() != v.Vector.Creator() {
			// Saved vectors come back on the default creator
			// for their numeric type.
			c := v.Vector.Creator()
			vec = c.MakeVectorData(c.MakeNumericList(float64Data(vec.Data())))
		}
		res[v] = vec
	}

	return res, nil
}

func writeFloatBits(w io.Writer, temp []byte, val float64) {
	binary.BigEndian.PutUint64(temp, math.Float64bits(val))
	w.Write(temp)
}

func float64Data(data interface{}) []float64 {
	switch data := data.(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric list: %T", data))
	}
}
