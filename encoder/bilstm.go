package encoder

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/crftag/dataset"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var b BiLSTM
	serializer.RegisterTypedDeserializer(b.SerializerType(), DeserializeBiLSTM)
}

// BiLSTM is a trainable encoder made of a token embedding
// table followed by a bidirectional LSTM.
type BiLSTM struct {
	// Embedding is a row-major table with one row of
	// EmbedSize entries per token id.
	Embedding *anydiff.Var
	EmbedSize int

	Bidir *anyrnn.Bidir

	// HiddenSize is the size of the concatenated forward
	// and backward outputs.
	HiddenSize int
}

// NewBiLSTM creates a randomly initialized BiLSTM.
// The hidden size must be even.
func NewBiLSTM(c anyvec.Creator, vocabSize, embedSize, hiddenSize int) *BiLSTM {
	if hiddenSize%2 != 0 {
		panic("hidden size must be even")
	}
	emb := c.MakeVector(vocabSize * embedSize)
	anyvec.Rand(emb, anyvec.Normal, nil)
	emb.Scale(c.MakeNumeric(1 / math.Sqrt(float64(embedSize))))
	return &BiLSTM{
		Embedding: anydiff.NewVar(emb),
		EmbedSize: embedSize,
		Bidir: &anyrnn.Bidir{
			Forward:  anyrnn.NewLSTM(c, embedSize, hiddenSize/2),
			Backward: anyrnn.NewLSTM(c, embedSize, hiddenSize/2),
			Mixer:    anynet.ConcatMixer{},
		},
		HiddenSize: hiddenSize,
	}
}

// DeserializeBiLSTM deserializes a BiLSTM.
func DeserializeBiLSTM(d []byte) (*BiLSTM, error) {
	var emb *anyvecsave.S
	var embedSize, hiddenSize serializer.Int
	var bidir *anyrnn.Bidir
	if err := serializer.DeserializeAny(d, &emb, &embedSize, &hiddenSize, &bidir); err != nil {
		return nil, essentials.AddCtx("deserialize BiLSTM", err)
	}
	if embedSize <= 0 || emb.Vector.Len()%int(embedSize) != 0 {
		return nil, errors.New("deserialize BiLSTM: bad embedding size")
	}
	return &BiLSTM{
		Embedding:  anydiff.NewVar(emb.Vector),
		EmbedSize:  int(embedSize),
		Bidir:      bidir,
		HiddenSize: int(hiddenSize),
	}, nil
}

// Encode embeds the real positions of every row and runs
// the LSTMs over them.
func (b *BiLSTM) Encode(ctx context.Context, batch *dataset.Batch) (anyseq.Seq, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkBatch(batch); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	vocabSize := b.Embedding.Vector.Len() / b.EmbedSize
	var steps int
	for _, l := range batch.Lengths {
		if l > steps {
			steps = l
		}
	}
	c := b.Embedding.Vector.Creator()
	seqBatches := make([]*anyseq.ResBatch, steps)
	for t := range seqBatches {
		present := make([]bool, batch.Size())
		var rows []anydiff.Res
		for i, row := range batch.InputIDs {
			if t >= batch.Lengths[i] {
				continue
			}
			id := row[t]
			if id < 0 || id >= vocabSize {
				return nil, fmt.Errorf("encode: token id %d out of range", id)
			}
			present[i] = true
			rows = append(rows, anydiff.Slice(b.Embedding, id*b.EmbedSize,
				(id+1)*b.EmbedSize))
		}
		seqBatches[t] = &anyseq.ResBatch{
			Packed:  anydiff.Concat(rows...),
			Present: present,
		}
	}
	return b.Bidir.Apply(anyseq.ResSeq(c, seqBatches)), nil
}

// OutSize returns the hidden size.
func (b *BiLSTM) OutSize() int {
	return b.HiddenSize
}

// Parameters returns the embedding table and the LSTM
// parameters.
func (b *BiLSTM) Parameters() []*anydiff.Var {
	return append([]*anydiff.Var{b.Embedding}, b.Bidir.Parameters()...)
}

// Close does nothing.
func (b *BiLSTM) Close() error {
	return nil
}

// SerializerType returns the unique ID used to serialize
// a BiLSTM with the serializer package.
func (b *BiLSTM) SerializerType() string {
	return "github.com/unixpickle/crftag/encoder.BiLSTM"
}

// Serialize serializes the BiLSTM.
func (b *BiLSTM) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		&anyvecsave.S{Vector: b.Embedding.Vector},
		serializer.Int(b.EmbedSize),
		serializer.Int(b.HiddenSize),
		b.Bidir,
	)
}
