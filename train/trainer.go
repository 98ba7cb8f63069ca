// Package train runs the training loop of a tagger:
// mini-batch updates, per-epoch evaluation, and
// checkpointing of the best model.
package train

import (
	"context"
	"errors"
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/crftag"
	"github.com/unixpickle/crftag/anycrf"
	"github.com/unixpickle/crftag/anysgd"
	"github.com/unixpickle/crftag/config"
	"github.com/unixpickle/crftag/dataset"
	"github.com/unixpickle/crftag/summary"
	"github.com/unixpickle/essentials"
	"go.uber.org/zap"
)

// ErrNoSteps is returned when an epoch would not contain a
// single batch.
var ErrNoSteps = errors.New("epoch has no training steps")

// A Trainer trains a Tagger on labeled examples.
type Trainer struct {
	Tagger *crftag.Tagger

	// Optimizer transforms gradients before each step.
	// If it is nil, plain SGD is used.
	Optimizer anysgd.Transformer

	Padder *dataset.Padder
	Train  dataset.SampleList

	// Test is evaluated after every epoch.
	// Evaluation is skipped if it is empty.
	Test dataset.SampleList

	Config *config.Config
	Log    *zap.Logger

	// History holds the epochs of earlier runs when
	// resuming. Run appends to it.
	History summary.History
}

// A Result summarizes a call to Run.
type Result struct {
	// Epochs is the number of epochs completed by Run.
	Epochs int

	// BestLoss is the lowest epoch loss that was saved.
	// It is only meaningful if Saved is true.
	BestLoss float64
	Saved    bool

	// Last is the evaluation of the final epoch, or nil.
	Last *Evaluation
}

// Run trains until Config.NumTrainEpochs epochs have been
// recorded in the history.
//
// If ctx is cancelled, Run stops after the current step and
// returns the context's error along with the progress so
// far. The checkpoint on disk is left untouched.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	cfg := t.Config
	res := &Result{}
	res.BestLoss, res.Saved = t.History.BestLoss()

	s := &stepper{ctx: ctx, trainer: t, params: t.Tagger.Parameters()}
	sgd := &anysgd.SGD{
		Fetcher:     s,
		Gradienter:  s,
		Transformer: t.Optimizer,
		Samples:     t.Train,
		Rater:       anysgd.ConstRater(cfg.LearningRate),
		BatchSize:   cfg.BatchSize,
		Shuffle:     cfg.Shuffle,
		DropLast:    cfg.DropLast,
		// Keeps learning-rate schedules continuous across
		// resumed runs.
		NumProcessed: len(t.History) * t.Train.Len(),
	}
	if sgd.NumSteps() == 0 {
		return nil, fmt.Errorf("train: %w: %d samples with batch size %d and drop_last",
			ErrNoSteps, t.Train.Len(), cfg.BatchSize)
	}

	for epoch := len(t.History); epoch < cfg.NumTrainEpochs; epoch++ {
		s.losses = s.losses[:0]
		sgd.StatusFunc = func(step int, b anysgd.Batch) {
			t.Log.Info("train step",
				zap.Int("epoch", epoch),
				zap.Int("step", step),
				zap.Float64("loss", s.lastLoss))
		}

		t.Tagger.SetTraining(true)
		steps, err := sgd.RunEpoch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Log.Info("training interrupted", zap.Int("epoch", epoch), zap.Int("step", steps))
				return res, ctx.Err()
			}
			return res, err
		}

		row := &summary.Row{Epoch: epoch, Steps: steps}
		row.Loss, row.LossStdDev = summary.StepLosses(s.losses)

		if t.Test.Len() > 0 {
			eval, err := t.Evaluate(ctx, t.Test)
			if err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				return res, err
			}
			res.Last = eval
			row.Evaluated = true
			row.Accuracy = eval.Accuracy
			row.Precision = eval.Precision
			row.Recall = eval.Recall
			row.F1 = eval.F1
		}

		if !res.Saved || row.Loss < res.BestLoss {
			if err := t.checkpoint(); err != nil {
				return res, err
			}
			res.Saved = true
			res.BestLoss = row.Loss
			row.Saved = true
			t.Log.Info("update model", zap.Float64("best_loss", res.BestLoss),
				zap.String("path", cfg.ModelSavePath))
		}

		t.Log.Info("epoch done",
			zap.Int("epoch", epoch),
			zap.Float64("loss", row.Loss),
			zap.Float64("loss_stddev", row.LossStdDev))
		if row.Evaluated {
			t.Log.Info("evaluation",
				zap.Float64("accuracy", row.Accuracy),
				zap.Float64("precision", row.Precision),
				zap.Float64("recall", row.Recall),
				zap.Float64("f1", row.F1))
		}

		t.History = append(t.History, row)
		res.Epochs++
		if err := t.writeHistory(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (t *Trainer) checkpoint() error {
	if err := t.Tagger.Save(t.Config.ModelSavePath); err != nil {
		return err
	}
	return saveOptimizer(t.Optimizer, OptimizerPath(t.Config.ModelSavePath))
}

func (t *Trainer) writeHistory() error {
	if t.Config.HistoryFile != "" {
		if err := t.History.WriteCSV(t.Config.HistoryFile); err != nil {
			return err
		}
	}
	if t.Config.ChartFile != "" {
		err := t.History.WriteChart(t.Config.ChartFile)
		if err != nil && !errors.Is(err, summary.ErrTooFewPoints) {
			// A broken chart should not end a training run.
			t.Log.Warn("failed to write chart", zap.Error(err))
		}
	}
	return nil
}

// stepper adapts a Trainer to anysgd's Fetcher and
// Gradienter for a single call to Run.
type stepper struct {
	ctx     context.Context
	trainer *Trainer
	params  []*anydiff.Var

	losses   []float64
	lastLoss float64
}

type stepBatch struct {
	batch *dataset.Batch
	loss  anydiff.Res
}

// Fetch pads the examples and runs the forward pass, which
// may fail in the encoder.
func (s *stepper) Fetch(samples anysgd.SampleList) (anysgd.Batch, error) {
	t := s.trainer
	batch, err := t.Padder.Batch(samples.(dataset.SampleList), t.Tagger.Labels,
		t.Config.OutsideTag)
	if err != nil {
		return nil, essentials.AddCtx("fetch", err)
	}
	loss, err := t.Tagger.Loss(s.ctx, batch)
	if err != nil {
		return nil, essentials.AddCtx("fetch", err)
	}
	return &stepBatch{batch: batch, loss: loss}, nil
}

func (s *stepper) Gradient(b anysgd.Batch) anydiff.Grad {
	grad, loss := anycrf.Gradient(b.(*stepBatch).loss, s.params)
	s.lastLoss = numericFloat(loss)
	s.losses = append(s.losses, s.lastLoss)
	return grad
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", n))
	}
}
