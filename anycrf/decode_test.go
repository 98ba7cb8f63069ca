package anycrf

import (
	"math"
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestViterbi(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	for i := 0; i < 20; i++ {
		crf := New(c, testNumTags)
		for _, p := range crf.Parameters() {
			anyvec.Rand(p.Vector, anyvec.Normal, nil)
		}
		seq := randomEmissions(c, 1+i%5)
		expected := bruteBestPath(crf, seq)
		actual, score := crf.Viterbi(seq)
		if !reflect.DeepEqual(actual, expected) {
			t.Errorf("trial %d: expected %v but got %v", i, expected, actual)
		}
		if math.Abs(score-crf.Score(seq, actual)) > 1e-8 {
			t.Errorf("trial %d: bad path score %f", i, score)
		}
	}
}

func TestDecode(t *testing.T) {
	c := anyvec32.CurrentCreator()
	crf := New(c, 2)
	crf.Transitions.Vector.SetData(c.MakeNumericList([]float64{0, 0, -100, 0}))
	seqs := [][]anyvec.Vector{
		{
			c.MakeVectorData(c.MakeNumericList([]float64{0, 1})),
			c.MakeVectorData(c.MakeNumericList([]float64{5, 4.5})),
		},
		{},
		{
			c.MakeVectorData(c.MakeNumericList([]float64{3, 0})),
		},
	}
	// Moving from tag 1 to tag 0 is forbidden, so the
	// first sequence stays on tag 1.
	expected := [][]int{{1, 1}, {}, {0}}
	actual := Decode(crf, anyseq.ConstSeqList(c, seqs))
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
}
