package anycrf

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/crftag/anysgd"
	"github.com/unixpickle/serializer"
)

func TestGradientTransitions(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	crf := New(c, testNumTags)

	// The emissions carry no information, so the CRF has to
	// learn the tag order from its own parameters.
	input := []anyvec.Vector{c.MakeVector(3), c.MakeVector(3), c.MakeVector(3)}
	emissions := anyseq.ConstSeqList(c, [][]anyvec.Vector{input, input})
	tags := [][]int{{0, 1, 2}, {0, 1, 2}}

	adam := &anysgd.Adam{}
	var cost float64
	for i := 0; i < 400; i++ {
		total := TotalCost(Cost(crf, emissions, tags), true)
		grad, numeric := Gradient(total, crf.Parameters())
		cost = numeric.(float64)
		grad = adam.Transform(grad)
		grad.Scale(c.MakeNumeric(-0.05))
		grad.AddToVars()
	}

	if cost > 0.1 {
		t.Errorf("cost should be near zero but got %f", cost)
	}
	path, _ := crf.Viterbi(input)
	if !reflect.DeepEqual(path, []int{0, 1, 2}) {
		t.Errorf("unexpected path: %v", path)
	}
}

func TestTotalCost(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	costs := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList([]float64{1, 2, 3})))
	if sum := anyvec.Sum(TotalCost(costs, false).Output()).(float64); sum != 6 {
		t.Errorf("expected sum 6 but got %f", sum)
	}
	if mean := anyvec.Sum(TotalCost(costs, true).Output()).(float64); mean != 2 {
		t.Errorf("expected mean 2 but got %f", mean)
	}
}

func TestCRFSerialize(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	crf := New(c, 4)
	data, err := serializer.SerializeAny(crf)
	if err != nil {
		t.Fatal(err)
	}
	var decoded *CRF
	if err := serializer.DeserializeAny(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.NumTags != 4 {
		t.Fatalf("expected 4 tags but got %d", decoded.NumTags)
	}
	for i, p := range crf.Parameters() {
		expected := p.Vector.Data()
		actual := decoded.Parameters()[i].Vector.Data()
		if !reflect.DeepEqual(expected, actual) {
			t.Errorf("parameter %d: expected %v but got %v", i, expected, actual)
		}
	}
}
