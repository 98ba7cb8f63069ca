package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/crftag/anysgd"
	"github.com/unixpickle/crftag/vocab"
)

func TestReadPair(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "train.txt")
	labels := filepath.Join(dir, "train.label")
	require.NoError(t, os.WriteFile(text, []byte("BRCA1 is mutated\n\nthe&&&p53&&&gene\n"), 0644))
	require.NoError(t, os.WriteFile(labels, []byte("B-Gene O O\n\nO&&&B-Gene&&&O\n"), 0644))

	examples, err := Read(FormatPair, text, labels)
	require.NoError(t, err)
	require.Len(t, examples, 2)
	assert.Equal(t, []string{"BRCA1", "is", "mutated"}, examples[0].Tokens)
	assert.Equal(t, []string{"B-Gene", "O", "O"}, examples[0].Labels)
	assert.Equal(t, []string{"the", "p53", "gene"}, examples[1].Tokens)
	assert.Equal(t, []string{"O", "B-Gene", "O"}, examples[1].Labels)
}

func TestReadPairMismatch(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "train.txt")
	labels := filepath.Join(dir, "train.label")
	require.NoError(t, os.WriteFile(text, []byte("a b c\n"), 0644))
	require.NoError(t, os.WriteFile(labels, []byte("O O\n"), 0644))
	_, err := ReadPair(text, labels)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(labels, []byte("O O O\nO\n"), 0644))
	_, err = ReadPair(text, labels)
	assert.Error(t, err)
}

func TestReadCoNLL(t *testing.T) {
	corpus := "-DOCSTART- -X- O O\n\nEU NNP B-ORG\nrejects VBZ O\n\n\nPeter NNP B-PER\n"
	examples, err := readCoNLL(strings.NewReader(corpus))
	require.NoError(t, err)
	require.Len(t, examples, 2)
	assert.Equal(t, []string{"EU", "rejects"}, examples[0].Tokens)
	assert.Equal(t, []string{"B-ORG", "O"}, examples[0].Labels)
	assert.Equal(t, []string{"Peter"}, examples[1].Tokens)

	_, err = readCoNLL(strings.NewReader("lonely\n"))
	assert.Error(t, err)
}

func TestReadTokens(t *testing.T) {
	sents, err := ReadTokens(strings.NewReader("a b\n\n c \n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, sents)
}

func TestPad(t *testing.T) {
	p := &Padder{MaxLength: 5, Vocab: testVocab(t)}
	b := p.Pad([]*Example{
		{Tokens: []string{"the"}, Labels: []string{"O"}},
		{Tokens: []string{"the", "p53", "gene", "is"}, Labels: []string{"O", "B-Gene", "O", "O"}},
	})

	assert.Equal(t, 2, b.Size())
	assert.Equal(t, 5, b.Width())
	assert.Equal(t, [][]int{
		{2, 4, 3, 0, 0},
		{2, 4, 5, 6, 3},
	}, b.InputIDs)
	assert.Equal(t, [][]bool{
		{true, true, true, false, false},
		{true, true, true, true, true},
	}, b.Mask)
	assert.Equal(t, []int{3, 5}, b.Lengths)
}

func TestPadShortBatch(t *testing.T) {
	p := &Padder{MaxLength: 128, Vocab: testVocab(t)}
	b := p.Pad([]*Example{
		{Tokens: []string{"the", "unknown"}},
		{Tokens: []string{"gene"}},
	})
	assert.Equal(t, 4, b.Width())
	assert.Equal(t, []int{2, 4, 1, 3}, b.InputIDs[0])
	assert.Equal(t, []int{2, 6, 3, 0}, b.InputIDs[1])
}

func TestPadLabels(t *testing.T) {
	labels, err := vocab.NewLabels([]string{"O", "B-Gene", "I-Gene"})
	require.NoError(t, err)
	p := &Padder{MaxLength: 4, Vocab: testVocab(t)}
	b, err := p.Batch([]*Example{
		{Tokens: []string{"p53"}, Labels: []string{"B-Gene"}},
		{Tokens: []string{"the", "p53", "gene"}, Labels: []string{"O", "B-Gene", "I-Gene"}},
	}, labels, "O")
	require.NoError(t, err)
	assert.Equal(t, [][]int{
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}, b.Labels)
	assert.Equal(t, [][]int{{0, 1, 0}, {0, 0, 1, 0}}, b.Unpadded())

	_, err = p.Batch([]*Example{{Tokens: []string{"x"}, Labels: []string{"B-Disease"}}}, labels, "O")
	assert.Error(t, err)
	_, err = p.Batch([]*Example{{Tokens: []string{"x"}, Labels: []string{"O"}}}, labels, "X")
	assert.Error(t, err)
}

func TestTruncateAndStrip(t *testing.T) {
	labels, err := vocab.NewLabels([]string{"O", "B-Gene"})
	require.NoError(t, err)
	truncated := TruncateLabels([][]string{{"O", "B-Gene", "O"}, {"O"}}, 4)
	assert.Equal(t, [][]string{{"O", "B-Gene"}, {"O"}}, truncated)

	stripped := StripSpecial([][]int{{0, 0, 1, 0}, {0, 1, 0}, {0}}, labels)
	assert.Equal(t, [][]string{{"O", "B-Gene"}, {"B-Gene"}, {}}, stripped)
}

func TestHashSplit(t *testing.T) {
	var samples SampleList
	for i := 0; i < 200; i++ {
		samples = append(samples, &Example{
			Tokens: []string{strings.Repeat("x", i+1)},
			Labels: []string{"O"},
		})
	}
	left, right := anysgd.HashSplit(samples, 0.25)
	assert.Equal(t, 200, left.Len()+right.Len())
	assert.True(t, left.Len() > 20 && left.Len() < 80, "left size %d", left.Len())

	// Splitting is deterministic in the sample text.
	left2, _ := anysgd.HashSplit(samples.Slice(0, samples.Len()).(SampleList), 0.25)
	assert.Equal(t, left.Len(), left2.Len())
}

func testVocab(t *testing.T) *vocab.Tokens {
	v, err := vocab.NewTokens([]string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "the", "p53", "gene"})
	require.NoError(t, err)
	return v
}
