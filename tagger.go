// Package crftag trains and runs sequence taggers made of
// an encoder, a linear projection, and a CRF.
package crftag

import (
	"context"
	"errors"
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/crftag/anycrf"
	"github.com/unixpickle/crftag/dataset"
	"github.com/unixpickle/crftag/encoder"
	"github.com/unixpickle/crftag/vocab"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var t Tagger
	serializer.RegisterTypedDeserializer(t.SerializerType(), DeserializeTagger)
}

// ErrNoLabels is returned when computing a loss for a
// batch without labels.
var ErrNoLabels = errors.New("batch has no labels")

// A Tagger maps every token of a sentence to a tag.
//
// Encoder features go through dropout and a fully-connected
// projection to produce one emission score per tag, which
// the CRF turns into a distribution over tag paths.
type Tagger struct {
	Encoder    encoder.Encoder
	Dropout    *anynet.Dropout
	Projection *anynet.FC
	CRF        *anycrf.CRF
	Labels     *vocab.Labels
}

// NewTagger creates a randomly initialized tagger on top
// of an encoder.
func NewTagger(c anyvec.Creator, enc encoder.Encoder, labels *vocab.Labels,
	dropoutProb float64) *Tagger {
	return &Tagger{
		Encoder:    enc,
		Dropout:    &anynet.Dropout{KeepProb: 1 - dropoutProb},
		Projection: anynet.NewFC(c, enc.OutSize(), labels.Len()),
		CRF:        anycrf.New(c, labels.Len()),
		Labels:     labels,
	}
}

// DeserializeTagger deserializes a Tagger.
//
// If the tagger was saved with a frozen encoder, the
// Encoder field is nil and must be filled in by the
// caller.
func DeserializeTagger(d []byte) (*Tagger, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Tagger", err)
	}
	if len(slice) != 4 && len(slice) != 5 {
		return nil, fmt.Errorf("deserialize Tagger: unexpected part count %d", len(slice))
	}
	var res Tagger
	var ok [5]bool
	res.Dropout, ok[0] = slice[0].(*anynet.Dropout)
	res.Projection, ok[1] = slice[1].(*anynet.FC)
	res.CRF, ok[2] = slice[2].(*anycrf.CRF)
	res.Labels, ok[3] = slice[3].(*vocab.Labels)
	ok[4] = true
	if len(slice) == 5 {
		res.Encoder, ok[4] = slice[4].(encoder.Encoder)
	}
	for i, x := range ok {
		if !x {
			return nil, fmt.Errorf("deserialize Tagger: unexpected type for part %d: %T", i, slice[i])
		}
	}
	if res.Projection.OutCount != res.CRF.NumTags || res.CRF.NumTags != res.Labels.Len() {
		return nil, errors.New("deserialize Tagger: tag counts disagree")
	}
	return &res, nil
}

// SetTraining enables or disables dropout.
func (t *Tagger) SetTraining(training bool) {
	t.Dropout.Enabled = training
}

// Emissions computes one vector of tag scores for every
// real position of every row.
func (t *Tagger) Emissions(ctx context.Context, b *dataset.Batch) (anyseq.Seq, error) {
	if t.Encoder == nil {
		return nil, errors.New("emissions: tagger has no encoder")
	}
	features, err := t.Encoder.Encode(ctx, b)
	if err != nil {
		return nil, essentials.AddCtx("emissions", err)
	}
	return anyseq.Map(features, func(in anydiff.Res, n int) anydiff.Res {
		return t.Projection.Apply(t.Dropout.Apply(in, n), n)
	}), nil
}

// Loss computes the mean negative log-likelihood of the
// batch's labels.
func (t *Tagger) Loss(ctx context.Context, b *dataset.Batch) (anydiff.Res, error) {
	if b.Labels == nil {
		return nil, ErrNoLabels
	}
	emissions, err := t.Emissions(ctx, b)
	if err != nil {
		return nil, err
	}
	return anycrf.TotalCost(anycrf.Cost(t.CRF, emissions, b.Unpadded()), true), nil
}

// Predict finds the best tag path for every row.
// Paths cover every real position, including [CLS] and
// [SEP].
func (t *Tagger) Predict(ctx context.Context, b *dataset.Batch) ([][]int, error) {
	emissions, err := t.Emissions(ctx, b)
	if err != nil {
		return nil, err
	}
	return anycrf.Decode(t.CRF, emissions), nil
}

// Tag predicts tags for the real tokens of every row.
func (t *Tagger) Tag(ctx context.Context, b *dataset.Batch) ([][]string, error) {
	paths, err := t.Predict(ctx, b)
	if err != nil {
		return nil, err
	}
	return dataset.StripSpecial(paths, t.Labels), nil
}

// Parameters returns every trainable parameter.
func (t *Tagger) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	if t.Encoder != nil {
		res = append(res, t.Encoder.Parameters()...)
	}
	res = append(res, t.Projection.Parameters()...)
	return append(res, t.CRF.Parameters()...)
}

// SerializerType returns the unique ID used to serialize
// a Tagger with the serializer package.
func (t *Tagger) SerializerType() string {
	return "github.com/unixpickle/crftag.Tagger"
}

// Serialize serializes the Tagger.
//
// Encoders which do not implement serializer.Serializer
// are left out.
func (t *Tagger) Serialize() ([]byte, error) {
	slice := []serializer.Serializer{t.Dropout, t.Projection, t.CRF, t.Labels}
	if s, ok := t.Encoder.(serializer.Serializer); ok {
		slice = append(slice, s)
	}
	return serializer.SerializeSlice(slice)
}
