package encoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/crftag/config"
	"github.com/unixpickle/crftag/dataset"
	"github.com/unixpickle/crftag/vocab"
	"github.com/unixpickle/serializer"
)

const testHidden = 2

// fakeRunner produces features id+j for hidden unit j and
// counts the rows it computes.
type fakeRunner struct {
	rows int
}

func (f *fakeRunner) run(ids, mask []int64, batch, width int) ([]float32, error) {
	f.rows += batch
	out := make([]float32, 0, len(ids)*testHidden)
	for i, id := range ids {
		for j := 0; j < testHidden; j++ {
			if mask[i] == 0 {
				out = append(out, -1)
			} else {
				out = append(out, float32(id)+float32(j))
			}
		}
	}
	return out, nil
}

func testBatch(t *testing.T, sentences ...[]string) *dataset.Batch {
	tokens, err := vocab.NewTokens([]string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "the", "p53", "gene"})
	require.NoError(t, err)
	var examples []*dataset.Example
	for _, s := range sentences {
		examples = append(examples, &dataset.Example{Tokens: s})
	}
	p := &dataset.Padder{MaxLength: 16, Vocab: tokens}
	return p.Pad(examples)
}

func seqFloats(s anyseq.Seq) [][][]float64 {
	var res [][][]float64
	for _, seq := range anyseq.SeparateSeqs(s.Output()) {
		var steps [][]float64
		for _, v := range seq {
			steps = append(steps, append([]float64{}, v.Data().([]float64)...))
		}
		res = append(res, steps)
	}
	return res
}

func TestONNXEncode(t *testing.T) {
	runner := &fakeRunner{}
	opts := defaultOptions()
	opts.hiddenSize = testHidden
	opts.creator = anyvec64.DefaultCreator{}
	enc, err := newONNX(opts, runner.run)
	require.NoError(t, err)

	b := testBatch(t, []string{"the"}, []string{"p53", "gene", "the"})
	seq, err := enc.Encode(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, [][][]float64{
		{{2, 3}, {4, 5}, {3, 4}},
		{{2, 3}, {5, 6}, {6, 7}, {4, 5}, {3, 4}},
	}, seqFloats(seq))
	assert.Equal(t, 2, runner.rows)

	// The transformer is frozen.
	assert.Empty(t, enc.Parameters())

	// Only the new sentence needs the transformer.
	b = testBatch(t, []string{"p53", "gene", "the"}, []string{"gene"})
	seq, err = enc.Encode(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 3, runner.rows)
	assert.Equal(t, [][]float64{{2, 3}, {6, 7}, {3, 4}}, seqFloats(seq)[1])

	require.NoError(t, enc.Close())
	_, err = enc.Encode(context.Background(), b)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestONNXNoCache(t *testing.T) {
	runner := &fakeRunner{}
	opts := defaultOptions()
	opts.hiddenSize = testHidden
	opts.cacheSize = 0
	opts.creator = anyvec64.DefaultCreator{}
	enc, err := newONNX(opts, runner.run)
	require.NoError(t, err)
	b := testBatch(t, []string{"the"})
	for i := 0; i < 3; i++ {
		_, err := enc.Encode(context.Background(), b)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, runner.rows)
}

func TestONNXHiddenSizeMismatch(t *testing.T) {
	runner := &fakeRunner{}
	opts := defaultOptions()
	opts.hiddenSize = testHidden + 1
	enc, err := newONNX(opts, runner.run)
	require.NoError(t, err)
	_, err = enc.Encode(context.Background(), testBatch(t, []string{"the"}))
	assert.ErrorIs(t, err, ErrHiddenSize)
}

func TestONNXCancelled(t *testing.T) {
	opts := defaultOptions()
	enc, err := newONNX(opts, (&fakeRunner{}).run)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = enc.Encode(ctx, testBatch(t, []string{"the"}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewONNXMissingModel(t *testing.T) {
	_, err := NewONNX(filepath.Join(t.TempDir(), "missing.onnx"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "unexpected error: %v", err)
}

func TestBiLSTMEncode(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	enc := NewBiLSTM(c, 7, 3, 4)
	b := testBatch(t, []string{"the", "gene"}, []string{"p53"})
	seq, err := enc.Encode(context.Background(), b)
	require.NoError(t, err)

	seqs := anyseq.SeparateSeqs(seq.Output())
	require.Len(t, seqs, 2)
	assert.Len(t, seqs[0], 4)
	assert.Len(t, seqs[1], 3)
	for _, s := range seqs {
		for _, v := range s {
			assert.Equal(t, 4, v.Len())
		}
	}
	assert.Len(t, enc.Parameters(), 1+len(enc.Bidir.Parameters()))
}

func TestBiLSTMSerialize(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	enc := NewBiLSTM(c, 7, 3, 4)
	data, err := serializer.SerializeAny(enc)
	require.NoError(t, err)
	var decoded *BiLSTM
	require.NoError(t, serializer.DeserializeAny(data, &decoded))
	assert.Equal(t, 3, decoded.EmbedSize)
	assert.Equal(t, 4, decoded.OutSize())

	b := testBatch(t, []string{"the", "p53", "gene"})
	expected, err := enc.Encode(context.Background(), b)
	require.NoError(t, err)
	actual, err := decoded.Encode(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, seqFloats(expected), seqFloats(actual))
}

func TestNew(t *testing.T) {
	tokens, err := vocab.NewTokens([]string{"[PAD]", "[UNK]", "[CLS]", "[SEP]"})
	require.NoError(t, err)
	cfg := config.Default().Encoder
	cfg.Kind = config.EncoderBiLSTM
	cfg.HiddenSize = 6
	cfg.EmbedSize = 2
	enc, err := New(cfg, tokens, anyvec64.DefaultCreator{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, enc.OutSize())
	assert.Equal(t, 4*2, enc.(*BiLSTM).Embedding.Vector.Len())

	cfg.Kind = "cnn"
	_, err = New(cfg, tokens, anyvec64.DefaultCreator{}, nil)
	assert.ErrorIs(t, err, config.ErrUnknownOption)
}
