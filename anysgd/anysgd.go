// Package anysgd provides the mini-batch gradient descent
// loop and gradient transformers used to train taggers.
package anysgd

import (
	"context"
	"errors"

	"github.com/unixpickle/essentials"
)

// SGD performs stochastic gradient descent one epoch at a
// time.
type SGD struct {
	// Fetcher converts sample lists to batches.
	Fetcher Fetcher

	// Gradienter is used to compute initial, untransformed
	// gradients for each mini-batch.
	Gradienter Gradienter

	// Transformer, if non-nil, is used to transform each
	// gradient before the step.
	Transformer Transformer

	// Samples is the list of training samples.
	// It may be re-ordered in place when Shuffle is set.
	//
	// The list may not be empty.
	Samples SampleList

	// Rater determines the learning rate for each step.
	Rater Rater

	// StatusFunc, if non-nil, is called after every step
	// with the index of the step within the epoch and the
	// batch that was used.
	StatusFunc func(step int, b Batch)

	// BatchSize is the mini-batch size.
	// If it is 0, then the entire sample list is used at
	// every step.
	BatchSize int

	// Shuffle indicates whether samples are shuffled at
	// the start of every epoch.
	Shuffle bool

	// DropLast indicates whether a final batch smaller than
	// BatchSize is skipped.
	DropLast bool

	// NumProcessed keeps track of the number of samples that
	// have been passed to Gradienter so far.
	// It is used to compute the epoch for Rater.
	NumProcessed int
}

// NumSteps returns the number of steps in one epoch.
func (s *SGD) NumSteps() int {
	n := s.Samples.Len()
	if s.BatchSize == 0 || n == 0 {
		return 1
	}
	steps := n / s.BatchSize
	if n%s.BatchSize != 0 && !s.DropLast {
		steps++
	}
	return steps
}

// RunEpoch performs one pass over the samples.
// It returns the number of steps that were taken.
//
// If ctx is cancelled, RunEpoch stops before the next step
// and returns the context's error.
func (s *SGD) RunEpoch(ctx context.Context) (int, error) {
	if s.Samples.Len() == 0 {
		return 0, errors.New("run epoch: empty sample list")
	}
	if s.Shuffle {
		Shuffle(s.Samples)
	}
	numSteps := s.NumSteps()
	for step := 0; step < numSteps; step++ {
		if err := ctx.Err(); err != nil {
			return step, err
		}
		start := step * s.batchSize()
		end := start + s.batchSize()
		if end > s.Samples.Len() {
			end = s.Samples.Len()
		}
		batch, err := s.Fetcher.Fetch(s.Samples.Slice(start, end))
		if err != nil {
			return step, essentials.AddCtx("run epoch", err)
		}

		grad := s.Gradienter.Gradient(batch)
		if s.Transformer != nil {
			grad = s.Transformer.Transform(grad)
		}

		epoch := float64(s.NumProcessed) / float64(s.Samples.Len())
		scaleGrad(grad, -s.Rater.Rate(epoch))
		grad.AddToVars()

		s.NumProcessed += end - start
		if s.StatusFunc != nil {
			s.StatusFunc(step, batch)
		}
	}
	return numSteps, nil
}

func (s *SGD) batchSize() int {
	if s.BatchSize == 0 {
		return s.Samples.Len()
	}
	return s.BatchSize
}
