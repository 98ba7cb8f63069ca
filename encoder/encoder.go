// Package encoder turns padded token id batches into
// per-token feature sequences.
package encoder

import (
	"context"
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/crftag/config"
	"github.com/unixpickle/crftag/dataset"
	"github.com/unixpickle/crftag/vocab"
	"go.uber.org/zap"
)

// An Encoder produces one feature vector for every real
// (unmasked) position of every row in a batch, including
// the [CLS] and [SEP] positions.
//
// The i-th sequence of the result has b.Lengths[i]
// timesteps, each of size OutSize().
type Encoder interface {
	Encode(ctx context.Context, b *dataset.Batch) (anyseq.Seq, error)
	OutSize() int

	// Parameters returns the trainable parameters.
	// Frozen encoders return nil.
	Parameters() []*anydiff.Var

	Close() error
}

// New creates an encoder from its configuration.
func New(cfg config.Encoder, tokens *vocab.Tokens, c anyvec.Creator,
	log *zap.Logger) (Encoder, error) {
	switch cfg.Kind {
	case config.EncoderONNX:
		return NewONNX(cfg.ModelPath,
			WithSharedLibrary(cfg.SharedLibrary),
			WithOutputName(cfg.OutputName),
			WithHiddenSize(cfg.HiddenSize),
			WithCacheSize(cfg.CacheSize),
			WithCreator(c),
			WithLogger(log),
		)
	case config.EncoderBiLSTM:
		return NewBiLSTM(c, tokens.Len(), cfg.EmbedSize, cfg.HiddenSize), nil
	default:
		return nil, fmt.Errorf("new encoder: %w: %q", config.ErrUnknownOption, cfg.Kind)
	}
}

// checkBatch makes sure that masks are prefixes of their
// rows, which every encoder relies on.
func checkBatch(b *dataset.Batch) error {
	for i, row := range b.Mask {
		for j, present := range row {
			if present != (j < b.Lengths[i]) {
				return fmt.Errorf("row %d: mask is not a prefix of length %d", i, b.Lengths[i])
			}
		}
	}
	return nil
}
