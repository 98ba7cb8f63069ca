package train

import (
	"context"

	"github.com/unixpickle/crftag/dataset"
	"github.com/unixpickle/crftag/metrics"
	"github.com/unixpickle/essentials"
	"go.uber.org/zap"
)

// An Evaluation holds the scores of a tagger on a set of
// labeled examples.
type Evaluation struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64

	Report *metrics.ClassificationReport

	// Scored is the number of examples that were scored.
	// Skipped counts examples whose predicted and true tag
	// sequences had different lengths.
	Scored  int
	Skipped int
}

// Evaluate tags the examples with dropout disabled and
// scores the predictions against the true labels.
//
// True labels are truncated the same way as the inputs, so
// only tokens that fit in the model's window are scored.
func (t *Trainer) Evaluate(ctx context.Context, samples dataset.SampleList) (*Evaluation, error) {
	t.Tagger.SetTraining(false)
	batchSize := t.Config.BatchSize
	if batchSize < 1 {
		batchSize = samples.Len()
	}

	var trues, preds [][]string
	var skipped int
	for start := 0; start < samples.Len(); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + batchSize
		if end > samples.Len() {
			end = samples.Len()
		}
		examples := samples[start:end]
		batch := t.Padder.Pad(examples)
		predicted, err := t.Tagger.Tag(ctx, batch)
		if err != nil {
			return nil, essentials.AddCtx("evaluate", err)
		}

		labels := make([][]string, len(examples))
		for i, ex := range examples {
			labels[i] = ex.Labels
		}
		labels = dataset.TruncateLabels(labels, batch.Width())

		if len(predicted) > 0 {
			t.Log.Debug("example",
				zap.Strings("predict", predicted[0]),
				zap.Strings("true", labels[0]))
		}
		for i, pred := range predicted {
			if len(pred) != len(labels[i]) {
				t.Log.Debug("different length",
					zap.Int("predict_len", len(pred)),
					zap.Int("true_len", len(labels[i])),
					zap.Strings("predict", pred),
					zap.Strings("true", labels[i]))
				skipped++
				continue
			}
			preds = append(preds, pred)
			trues = append(trues, labels[i])
		}
	}
	t.Log.Debug("evaluated", zap.Int("scored", len(trues)), zap.Int("skipped", skipped))

	return &Evaluation{
		Accuracy:  metrics.Accuracy(trues, preds),
		Precision: metrics.Precision(trues, preds),
		Recall:    metrics.Recall(trues, preds),
		F1:        metrics.F1(trues, preds),
		Report:    metrics.Report(trues, preds),
		Scored:    len(trues),
		Skipped:   skipped,
	}, nil
}
