// Package summary records per-epoch training statistics
// and renders them as a CSV table and a chart.
package summary

import (
	"errors"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
	"github.com/unixpickle/essentials"
	chart "github.com/wcharczuk/go-chart"
)

// ErrTooFewPoints is returned by WriteChart when there are
// not enough epochs to draw a curve.
var ErrTooFewPoints = errors.New("need at least two epochs to chart")

// A Row stores the statistics of one epoch.
type Row struct {
	Epoch      int     `csv:"epoch"`
	Loss       float64 `csv:"loss"`
	LossStdDev float64 `csv:"loss_stddev"`
	Steps      int     `csv:"steps"`
	Accuracy   float64 `csv:"accuracy"`
	Precision  float64 `csv:"precision"`
	Recall     float64 `csv:"recall"`
	F1         float64 `csv:"f1"`
	Evaluated  bool    `csv:"evaluated"`
	Saved      bool    `csv:"saved"`
}

// History is the list of epochs run so far.
type History []*Row

// StepLosses summarizes the losses of an epoch's steps.
// An empty list gives zeros.
func StepLosses(losses []float64) (mean, stddev float64) {
	if len(losses) == 0 {
		return 0, 0
	}
	mean, _ = stats.Mean(losses)
	stddev, _ = stats.StandardDeviation(losses)
	return mean, stddev
}

// BestLoss returns the lowest loss of any saved epoch.
func (h History) BestLoss() (loss float64, ok bool) {
	for _, r := range h {
		if r.Saved && (!ok || r.Loss < loss) {
			loss, ok = r.Loss, true
		}
	}
	return
}

// UpToLastSave drops the epochs that ran after the most
// recent checkpoint, since a resumed run restarts from it.
func (h History) UpToLastSave() History {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Saved {
			return h[:i+1]
		}
	}
	return nil
}

// ReadCSV reads a history written by WriteCSV.
func ReadCSV(path string) (History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("read history", err)
	}
	defer f.Close()
	var res History
	if err := gocsv.UnmarshalFile(f, &res); err != nil {
		return nil, essentials.AddCtx("read history", err)
	}
	return res, nil
}

// WriteCSV writes the history as a CSV table.
func (h History) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return essentials.AddCtx("write history", err)
	}
	rows := h
	if rows == nil {
		rows = History{}
	}
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		f.Close()
		return essentials.AddCtx("write history", err)
	}
	if err := f.Close(); err != nil {
		return essentials.AddCtx("write history", err)
	}
	return nil
}

// WriteChart renders the loss curve, and the F1 curve of
// evaluated epochs, to a PNG file.
func (h History) WriteChart(path string) error {
	if len(h) < 2 {
		return ErrTooFewPoints
	}
	var epochs, losses, evalEpochs, f1s []float64
	for _, r := range h {
		epochs = append(epochs, float64(r.Epoch))
		losses = append(losses, r.Loss)
		if r.Evaluated {
			evalEpochs = append(evalEpochs, float64(r.Epoch))
			f1s = append(f1s, r.F1)
		}
	}
	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "loss",
			XValues: epochs,
			YValues: losses,
			Style: chart.Style{
				Show:        true,
				StrokeColor: chart.ColorBlue,
			},
		},
	}
	// A flat series has an empty range, which the chart
	// cannot scale.
	if varies(f1s) {
		series = append(series, chart.ContinuousSeries{
			Name:    "F1",
			YAxis:   chart.YAxisSecondary,
			XValues: evalEpochs,
			YValues: f1s,
			Style: chart.Style{
				Show:        true,
				StrokeColor: chart.ColorRed,
			},
		})
	}

	graph := chart.Chart{
		Title:      "Training",
		TitleStyle: chart.StyleShow(),
		XAxis: chart.XAxis{
			Name:      "Epoch",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
		},
		YAxis: chart.YAxis{
			Name:      "Loss",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
		},
		YAxisSecondary: chart.YAxis{
			Name:      "F1",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	f, err := os.Create(path)
	if err != nil {
		return essentials.AddCtx("write chart", err)
	}
	if err := graph.Render(chart.PNG, f); err != nil {
		f.Close()
		return fmt.Errorf("write chart: %v", err)
	}
	if err := f.Close(); err != nil {
		return essentials.AddCtx("write chart", err)
	}
	return nil
}

func varies(values []float64) bool {
	for _, v := range values {
		if v != values[0] {
			return true
		}
	}
	return false
}
