package dataset

import (
	"fmt"

	"github.com/unixpickle/crftag/vocab"
)

// A Batch is a group of examples padded to a common
// width.
//
// Every row starts with [CLS] and ends with [SEP].
// Positions past the end of a row hold the padding id and
// have a false mask entry.
type Batch struct {
	Examples []*Example

	InputIDs [][]int
	Mask     [][]bool

	// Lengths stores the number of unmasked positions in
	// each row, including [CLS] and [SEP].
	Lengths []int

	// Labels holds padded tag indices, aligned with
	// InputIDs.
	// It is nil for batches built without labels.
	Labels [][]int
}

// Size returns the number of rows.
func (b *Batch) Size() int {
	return len(b.InputIDs)
}

// Width returns the padded row width.
func (b *Batch) Width() int {
	if len(b.InputIDs) == 0 {
		return 0
	}
	return len(b.InputIDs[0])
}

// A Padder converts examples into batches.
type Padder struct {
	// MaxLength is the maximum row width, including
	// [CLS] and [SEP].
	// It must be at least 3.
	MaxLength int

	Vocab *vocab.Tokens
}

// Pad converts the tokens of the examples to ids, truncates
// them to fit MaxLength, adds [CLS]/[SEP] and pads every
// row to the longest row in the batch.
func (p *Padder) Pad(examples []*Example) *Batch {
	if p.MaxLength < 3 {
		panic("max length must leave room for a token")
	}
	b := &Batch{
		Examples: examples,
		InputIDs: make([][]int, len(examples)),
		Mask:     make([][]bool, len(examples)),
		Lengths:  make([]int, len(examples)),
	}
	var width int
	for i, ex := range examples {
		tokens := truncate(ex.Tokens, p.MaxLength-2)
		row := make([]int, 0, len(tokens)+2)
		row = append(row, p.Vocab.CLSID())
		row = append(row, p.Vocab.IDs(tokens)...)
		row = append(row, p.Vocab.SEPID())
		b.InputIDs[i] = row
		b.Lengths[i] = len(row)
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range b.InputIDs {
		mask := make([]bool, width)
		for j := range row {
			mask[j] = true
		}
		for len(row) < width {
			row = append(row, p.Vocab.PadID())
		}
		b.InputIDs[i] = row
		b.Mask[i] = mask
	}
	return b
}

// PadLabels fills in b.Labels.
//
// Each label row is the outside tag, the (truncated) tags
// of the example, the outside tag again, and then outside
// tags up to the batch width.
func (p *Padder) PadLabels(b *Batch, labels *vocab.Labels, outside string) error {
	outIdx, ok := labels.Index(outside)
	if !ok {
		return fmt.Errorf("pad labels: outside tag %q not in label set", outside)
	}
	width := b.Width()
	b.Labels = make([][]int, len(b.Examples))
	for i, ex := range b.Examples {
		tags, err := labels.Indices(truncate(ex.Labels, width-2))
		if err != nil {
			return fmt.Errorf("pad labels: example %d: %v", i, err)
		}
		row := make([]int, 0, width)
		row = append(row, outIdx)
		row = append(row, tags...)
		for len(row) < width {
			row = append(row, outIdx)
		}
		b.Labels[i] = row
	}
	return nil
}

// Batch pads the examples and their labels.
func (p *Padder) Batch(examples []*Example, labels *vocab.Labels, outside string) (*Batch, error) {
	b := p.Pad(examples)
	if err := p.PadLabels(b, labels, outside); err != nil {
		return nil, err
	}
	return b, nil
}

// Unpadded returns the label indices of the unmasked
// positions of each row.
// It panics if the batch has no labels.
func (b *Batch) Unpadded() [][]int {
	if b.Labels == nil {
		panic("batch has no labels")
	}
	res := make([][]int, len(b.Labels))
	for i, row := range b.Labels {
		res[i] = row[:b.Lengths[i]]
	}
	return res
}

// TruncateLabels cuts every tag sequence down to the
// number of token positions in a batch of the given width,
// i.e. width-2.
func TruncateLabels(labels [][]string, width int) [][]string {
	res := make([][]string, len(labels))
	for i, row := range labels {
		res[i] = truncate(row, width-2)
	}
	return res
}

// StripSpecial converts predicted paths, which include the
// [CLS] and [SEP] positions, into tag sequences covering
// only the real tokens.
func StripSpecial(paths [][]int, labels *vocab.Labels) [][]string {
	res := make([][]string, len(paths))
	for i, path := range paths {
		if len(path) <= 2 {
			res[i] = []string{}
			continue
		}
		inner := path[1 : len(path)-1]
		tags := make([]string, len(inner))
		for j, idx := range inner {
			tags[j] = labels.Tag(idx)
		}
		res[i] = tags
	}
	return res
}

func truncate(s []string, n int) []string {
	if n < 0 {
		n = 0
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}
