package anysgd

import (
	"testing"

	"github.com/unixpickle/anyvec/anyvec64"
)

func TestAdam(t *testing.T) {
	g := newTestGradienter(anyvec64.DefaultCreator{})
	s := &SGD{
		Fetcher:     testFetcher{},
		Gradienter:  g,
		Transformer: &Adam{},
		Samples:     newTestSampleList(),
		Rater:       ConstRater(0.001),
		BatchSize:   1,
	}

	runSteps(t, s, 100000)

	if g.errorMargin() > 1e-2 {
		x, y := g.current()
		t.Errorf("bad solution: %f, %f", x, y)
	}
}

func TestRMSProp(t *testing.T) {
	g := newTestGradienter(anyvec64.DefaultCreator{})
	s := &SGD{
		Fetcher:     testFetcher{},
		Gradienter:  g,
		Transformer: &RMSProp{},
		Samples:     newTestSampleList(),
		Rater:       &DecayRater{Initial: 0.001, Final: 0.00001, Epochs: 30000},
		BatchSize:   0,
	}

	runSteps(t, s, 150000)

	if g.errorMargin() > 1e-2 {
		x, y := g.current()
		t.Errorf("bad solution: %f, %f", x, y)
	}
}
