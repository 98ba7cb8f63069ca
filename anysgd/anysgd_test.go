package anysgd

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
)

type testSample struct {
	X2 float64
	Y2 float64
	XY float64
	X  float64
	Y  float64
}

func (t *testSample) Apply(x, y anydiff.Res) anydiff.Res {
	mk := x.Output().Creator().MakeNumeric
	a := anydiff.Scale(anydiff.Mul(x, x), mk(t.X2))
	b := anydiff.Scale(anydiff.Mul(y, y), mk(t.Y2))
	c := anydiff.Scale(anydiff.Mul(x, y), mk(t.XY))
	d := anydiff.Scale(x, mk(t.X))
	e := anydiff.Scale(y, mk(t.Y))
	return anydiff.Add(
		anydiff.Add(a, b),
		anydiff.Add(anydiff.Add(c, d), e),
	)
}

type testSampleList []*testSample

func newTestSampleList() testSampleList {
	// Together, these polynomials add up to 3x^2+3xy-2x+y^2.
	// The global minimum is (x = 4/3, y = -2).
	return testSampleList{
		{X2: 2, X: -1, XY: 0, Y2: 0.5},
		{X2: -1, X: 0, XY: 2, Y2: 0.5},
		{X2: 2, X: -1, XY: 1, Y2: 0},
	}
}

func (t testSampleList) Len() int {
	return len(t)
}

func (t testSampleList) Swap(i, j int) {
	t[i], t[j] = t[j], t[i]
}

func (t testSampleList) Slice(i, j int) SampleList {
	return append(testSampleList{}, t[i:j]...)
}

type testFetcher struct{}

func (t testFetcher) Fetch(s SampleList) (Batch, error) {
	return s, nil
}

type testGradienter struct {
	X *anydiff.Var
	Y *anydiff.Var
}

func newTestGradienter(c anyvec.Creator) *testGradienter {
	return &testGradienter{
		X: anydiff.NewVar(c.MakeVector(1)),
		Y: anydiff.NewVar(c.MakeVector(1)),
	}
}

func (t *testGradienter) Gradient(s Batch) anydiff.Grad {
	var cost anydiff.Res
	for _, x := range s.(testSampleList) {
		res := x.Apply(t.X, t.Y)
		if cost == nil {
			cost = res
		} else {
			cost = anydiff.Add(cost, res)
		}
	}
	grad := anydiff.Grad{
		t.X: t.X.Vector.Creator().MakeVector(1),
		t.Y: t.Y.Vector.Creator().MakeVector(1),
	}
	oneVec := t.X.Vector.Creator().MakeVectorData(
		t.X.Vector.Creator().MakeNumericList([]float64{1}),
	)
	cost.Propagate(oneVec, grad)
	return grad
}

func (t *testGradienter) errorMargin() float64 {
	x, y := t.current()
	return math.Max(math.Abs(x-4.0/3), math.Abs(y+2))
}

func (t *testGradienter) current() (x, y float64) {
	return float64Data(t.X.Vector.Data())[0], float64Data(t.Y.Vector.Data())[0]
}

func runSteps(t *testing.T, s *SGD, steps int) {
	for s.NumProcessed < steps {
		if _, err := s.RunEpoch(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSGD(t *testing.T) {
	g := newTestGradienter(anyvec32.DefaultCreator{})
	s := &SGD{
		Fetcher:    testFetcher{},
		Gradienter: g,
		Samples:    newTestSampleList(),
		Rater:      ConstRater(0.0002),
		BatchSize:  1,
		Shuffle:    true,
	}

	runSteps(t, s, 400000)

	if g.errorMargin() > 1e-2 {
		x, y := g.current()
		t.Errorf("bad solution: %f, %f", x, y)
	}
}

func TestNumSteps(t *testing.T) {
	s := &SGD{Samples: newTestSampleList(), BatchSize: 2}
	if n := s.NumSteps(); n != 2 {
		t.Errorf("expected 2 steps but got %d", n)
	}
	s.DropLast = true
	if n := s.NumSteps(); n != 1 {
		t.Errorf("expected 1 step but got %d", n)
	}
	s.BatchSize = 0
	if n := s.NumSteps(); n != 1 {
		t.Errorf("expected 1 step but got %d", n)
	}
}

func TestRunEpochStatus(t *testing.T) {
	var sizes []int
	s := &SGD{
		Fetcher:    testFetcher{},
		Gradienter: newTestGradienter(anyvec64.DefaultCreator{}),
		Samples:    newTestSampleList(),
		Rater:      ConstRater(0.001),
		BatchSize:  2,
		StatusFunc: func(step int, b Batch) {
			sizes = append(sizes, b.(SampleList).Len())
		},
	}
	steps, err := s.RunEpoch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if steps != 2 || !reflect.DeepEqual(sizes, []int{2, 1}) {
		t.Errorf("unexpected steps %d with batch sizes %v", steps, sizes)
	}
	if s.NumProcessed != 3 {
		t.Errorf("expected 3 processed samples but got %d", s.NumProcessed)
	}
}

func TestRunEpochCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &SGD{
		Fetcher:    testFetcher{},
		Gradienter: newTestGradienter(anyvec64.DefaultCreator{}),
		Samples:    newTestSampleList(),
		Rater:      ConstRater(0.001),
		BatchSize:  1,
	}
	steps, err := s.RunEpoch(ctx)
	if err != context.Canceled || steps != 0 {
		t.Errorf("expected cancellation but got %d steps, error %v", steps, err)
	}
}
