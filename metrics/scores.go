package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
)

// Accuracy computes the fraction of tags which were
// predicted correctly.
//
// The true and predicted sequences must have matching
// lengths.
func Accuracy(trues, preds [][]string) float64 {
	mustMatch(trues, preds)
	var correct, total int
	for i, seq := range trues {
		for j, tag := range seq {
			if preds[i][j] == tag {
				correct++
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// Precision computes the fraction of predicted entities
// which are true entities.
func Precision(trues, preds [][]string) float64 {
	c := countEntities(trues, preds, "")
	return ratio(c.correct, c.pred)
}

// Recall computes the fraction of true entities which were
// predicted.
func Recall(trues, preds [][]string) float64 {
	c := countEntities(trues, preds, "")
	return ratio(c.correct, c.actual)
}

// F1 computes the harmonic mean of entity precision and
// recall.
func F1(trues, preds [][]string) float64 {
	c := countEntities(trues, preds, "")
	return f1(ratio(c.correct, c.pred), ratio(c.correct, c.actual))
}

// Score is a set of entity-level scores.
type Score struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// A TypeScore scores the entities of a single type.
type TypeScore struct {
	Type string
	Score
}

// A ClassificationReport breaks entity scores down by
// entity type.
type ClassificationReport struct {
	Accuracy float64
	Types    []TypeScore

	Micro    Score
	Macro    Score
	Weighted Score
}

// Report computes a ClassificationReport.
func Report(trues, preds [][]string) *ClassificationReport {
	mustMatch(trues, preds)
	typeSet := map[string]bool{}
	for _, e := range append(allEntities(trues), allEntities(preds)...) {
		typeSet[e.Type] = true
	}
	var types []string
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)

	res := &ClassificationReport{Accuracy: Accuracy(trues, preds)}
	var precisions, recalls, f1s []float64
	var totalSupport int
	for _, typ := range types {
		c := countEntities(trues, preds, typ)
		s := TypeScore{Type: typ}
		s.Precision = ratio(c.correct, c.pred)
		s.Recall = ratio(c.correct, c.actual)
		s.F1 = f1(s.Precision, s.Recall)
		s.Support = c.actual
		res.Types = append(res.Types, s)

		precisions = append(precisions, s.Precision)
		recalls = append(recalls, s.Recall)
		f1s = append(f1s, s.F1)
		res.Weighted.Precision += s.Precision * float64(s.Support)
		res.Weighted.Recall += s.Recall * float64(s.Support)
		res.Weighted.F1 += s.F1 * float64(s.Support)
		totalSupport += s.Support
	}

	all := countEntities(trues, preds, "")
	res.Micro = Score{
		Precision: ratio(all.correct, all.pred),
		Recall:    ratio(all.correct, all.actual),
		Support:   all.actual,
	}
	res.Micro.F1 = f1(res.Micro.Precision, res.Micro.Recall)

	res.Macro = Score{
		Precision: mean(precisions),
		Recall:    mean(recalls),
		F1:        mean(f1s),
		Support:   totalSupport,
	}

	if totalSupport > 0 {
		res.Weighted.Precision /= float64(totalSupport)
		res.Weighted.Recall /= float64(totalSupport)
		res.Weighted.F1 /= float64(totalSupport)
	} else {
		res.Weighted = Score{}
	}
	res.Weighted.Support = totalSupport

	return res
}

// String renders the report as a table.
func (c *ClassificationReport) String() string {
	width := len("weighted avg")
	for _, t := range c.Types {
		if len(t.Type) > width {
			width = len(t.Type)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall",
		"f1-score", "support")
	row := func(name string, s Score) {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, name, s.Precision,
			s.Recall, s.F1, s.Support)
	}
	for _, t := range c.Types {
		row(t.Type, t.Score)
	}
	b.WriteString("\n")
	row("micro avg", c.Micro)
	row("macro avg", c.Macro)
	row("weighted avg", c.Weighted)
	return b.String()
}

type entityCounts struct {
	correct int
	pred    int
	actual  int
}

// countEntities compares entity sets, optionally
// restricted to one type.
func countEntities(trues, preds [][]string, typ string) entityCounts {
	mustMatch(trues, preds)
	trueSet := map[Entity]bool{}
	for _, e := range allEntities(trues) {
		if typ == "" || e.Type == typ {
			trueSet[e] = true
		}
	}
	var res entityCounts
	res.actual = len(trueSet)
	predSet := map[Entity]bool{}
	for _, e := range allEntities(preds) {
		if typ == "" || e.Type == typ {
			predSet[e] = true
		}
	}
	res.pred = len(predSet)
	for e := range predSet {
		if trueSet[e] {
			res.correct++
		}
	}
	return res
}

func mustMatch(trues, preds [][]string) {
	if len(trues) != len(preds) {
		panic(fmt.Sprintf("have %d true sequences but %d predictions", len(trues), len(preds)))
	}
	for i, seq := range trues {
		if len(seq) != len(preds[i]) {
			panic(fmt.Sprintf("sequence %d: %d true tags but %d predicted", i, len(seq),
				len(preds[i])))
		}
	}
}

func ratio(num, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func mean(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		// Only happens for empty input.
		return 0
	}
	return m
}
