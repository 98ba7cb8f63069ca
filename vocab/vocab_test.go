package vocab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/serializer"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestLoadLabels(t *testing.T) {
	path := writeFile(t, "labels.txt", "O\nB-Gene\n\nI-Gene\n")
	labels, err := LoadLabels(path)
	require.NoError(t, err)

	assert.Equal(t, 3, labels.Len())
	assert.Equal(t, []string{"O", "B-Gene", "I-Gene"}, labels.Tags())
	idx, ok := labels.Index("I-Gene")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Equal(t, "B-Gene", labels.Tag(1))

	_, ok = labels.Index("B-Disease")
	assert.False(t, ok)

	indices, err := labels.Indices([]string{"B-Gene", "O"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, indices)
	_, err = labels.Indices([]string{"B-Disease"})
	assert.Error(t, err)
}

func TestLabelsDuplicate(t *testing.T) {
	_, err := NewLabels([]string{"O", "B-X", "O"})
	assert.Error(t, err)
	_, err = NewLabels(nil)
	assert.Error(t, err)
}

func TestLabelsSerialize(t *testing.T) {
	labels, err := NewLabels([]string{"O", "B-PER", "I-PER"})
	require.NoError(t, err)
	data, err := serializer.SerializeAny(labels)
	require.NoError(t, err)
	var decoded *Labels
	require.NoError(t, serializer.DeserializeAny(data, &decoded))
	assert.Equal(t, labels.Tags(), decoded.Tags())
	idx, _ := decoded.Index("I-PER")
	assert.Equal(t, 2, idx)
}

func TestWordPieceVocab(t *testing.T) {
	path := writeFile(t, "vocab.txt", "[PAD]\n[UNK]\n[CLS]\n[SEP]\nthe\ngene\n")
	vocab, err := LoadTokens(path)
	require.NoError(t, err)

	assert.Equal(t, 6, vocab.Len())
	assert.Equal(t, 0, vocab.PadID())
	assert.Equal(t, 1, vocab.UNKID())
	assert.Equal(t, 2, vocab.CLSID())
	assert.Equal(t, 3, vocab.SEPID())
	assert.Equal(t, []int{4, 5, 1}, vocab.IDs([]string{"the", "gene", "protein"}))

	assert.Equal(t, 1, vocab.ID("Gene"))
	vocab.Lowercase = true
	assert.Equal(t, 5, vocab.ID("Gene"))
}

func TestWordPieceMissingSpecial(t *testing.T) {
	path := writeFile(t, "vocab.txt", "[PAD]\n[UNK]\nthe\n")
	_, err := LoadTokens(path)
	assert.ErrorIs(t, err, ErrMissingSpecial)
}

func TestSentencePieceVocab(t *testing.T) {
	var model []byte
	for i, piece := range []string{"<unk>", "<s>", "</s>", "▁the", "▁gene", "gene"} {
		var msg []byte
		msg = protowire.AppendTag(msg, 1, protowire.BytesType)
		msg = protowire.AppendString(msg, piece)
		msg = protowire.AppendTag(msg, 2, protowire.Fixed32Type)
		msg = protowire.AppendFixed32(msg, uint32(i))
		msg = protowire.AppendTag(msg, 3, protowire.VarintType)
		msg = protowire.AppendVarint(msg, 1)
		model = protowire.AppendTag(model, 1, protowire.BytesType)
		model = protowire.AppendBytes(model, msg)
	}
	// An unrelated trainer_spec field must be skipped.
	model = protowire.AppendTag(model, 2, protowire.BytesType)
	model = protowire.AppendBytes(model, []byte{8, 1})

	path := filepath.Join(t.TempDir(), "spm.model")
	require.NoError(t, os.WriteFile(path, model, 0644))

	vocab, err := LoadTokens(path)
	require.NoError(t, err)
	assert.Equal(t, 0, vocab.CLSID())
	assert.Equal(t, 1, vocab.PadID())
	assert.Equal(t, 2, vocab.SEPID())
	assert.Equal(t, 3, vocab.UNKID())
	assert.Equal(t, 4, vocab.ID("▁the"))
	assert.Equal(t, 5, vocab.ID("▁gene"))
	assert.Equal(t, 3, vocab.ID("missing"))
	assert.Equal(t, 8, vocab.Len())

	// Words map to their word-initial pieces.
	assert.Equal(t, []int{4, 5}, vocab.IDs([]string{"the", "gene"}))
	assert.Equal(t, 3, vocab.ID("The"))
	vocab.Lowercase = true
	assert.Equal(t, 4, vocab.ID("The"))
	assert.Equal(t, 5, vocab.ID("GENE"))
}

func writeFile(t *testing.T, name, contents string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}
