package anycrf

import (
	"errors"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var c CRF
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCRF)
}

// A CRF stores the tag-level parameters of a linear-chain
// conditional random field.
type CRF struct {
	NumTags int

	// Start and End hold one score per tag.
	Start *anydiff.Var
	End   *anydiff.Var

	// Transitions is a NumTags by NumTags row-major matrix.
	// Entry (i, j) is the score of moving from tag i to
	// tag j.
	Transitions *anydiff.Var
}

// New creates a CRF with parameters drawn uniformly from
// [-0.1, 0.1].
func New(c anyvec.Creator, numTags int) *CRF {
	if numTags < 1 {
		panic("a CRF needs at least one tag")
	}
	res := &CRF{
		NumTags:     numTags,
		Start:       anydiff.NewVar(c.MakeVector(numTags)),
		End:         anydiff.NewVar(c.MakeVector(numTags)),
		Transitions: anydiff.NewVar(c.MakeVector(numTags * numTags)),
	}
	for _, p := range res.Parameters() {
		anyvec.Rand(p.Vector, anyvec.Uniform, nil)
		p.Vector.Scale(c.MakeNumeric(0.2))
		p.Vector.AddScalar(c.MakeNumeric(-0.1))
	}
	return res
}

// DeserializeCRF deserializes a CRF.
func DeserializeCRF(d []byte) (*CRF, error) {
	var start, end, trans *anyvecsave.S
	if err := serializer.DeserializeAny(d, &start, &end, &trans); err != nil {
		return nil, essentials.AddCtx("deserialize CRF", err)
	}
	n := start.Vector.Len()
	if end.Vector.Len() != n || trans.Vector.Len() != n*n || n == 0 {
		return nil, errors.New("deserialize CRF: inconsistent parameter sizes")
	}
	return &CRF{
		NumTags:     n,
		Start:       anydiff.NewVar(start.Vector),
		End:         anydiff.NewVar(end.Vector),
		Transitions: anydiff.NewVar(trans.Vector),
	}, nil
}

// Parameters returns the start, end, and transition
// parameters.
func (c *CRF) Parameters() []*anydiff.Var {
	return []*anydiff.Var{c.Start, c.End, c.Transitions}
}

// Score computes the unnormalized log-score of a tag path
// for a single sequence of emissions.
func (c *CRF) Score(emissions []anyvec.Vector, tags []int) float64 {
	if len(emissions) != len(tags) {
		panic("emission and tag counts differ")
	}
	if len(tags) == 0 {
		return 0
	}
	p := c.params()
	var score float64
	for t, tag := range tags {
		score += vectorFloats(emissions[t])[tag]
		if t > 0 {
			score += p.trans[tags[t-1]*c.NumTags+tag]
		}
	}
	return score + p.start[tags[0]] + p.end[tags[len(tags)-1]]
}

// SerializerType returns the unique ID used to serialize
// a CRF with the serializer package.
func (c *CRF) SerializerType() string {
	return "github.com/unixpickle/crftag/anycrf.CRF"
}

// Serialize serializes the CRF.
func (c *CRF) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		&anyvecsave.S{Vector: c.Start.Vector},
		&anyvecsave.S{Vector: c.End.Vector},
		&anyvecsave.S{Vector: c.Transitions.Vector},
	)
}

// crfParams is a float64 snapshot of the parameters.
type crfParams struct {
	start []float64
	end   []float64
	trans []float64
}

func (c *CRF) params() *crfParams {
	return &crfParams{
		start: vectorFloats(c.Start.Vector),
		end:   vectorFloats(c.End.Vector),
		trans: vectorFloats(c.Transitions.Vector),
	}
}

// logSumExp adds numbers in the log domain.
func logSumExp(values []float64) float64 {
	max := math.Inf(-1)
	for _, x := range values {
		max = math.Max(max, x)
	}
	if math.IsInf(max, -1) {
		return max
	}
	var sum float64
	for _, x := range values {
		sum += math.Exp(x - max)
	}
	return math.Log(sum) + max
}
