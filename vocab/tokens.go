// Package vocab implements the token and label
// vocabularies used to turn labeled text into indices.
package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/unixpickle/essentials"
)

// Special tokens of BERT-style vocabularies.
const (
	PadToken = "[PAD]"
	CLSToken = "[CLS]"
	SEPToken = "[SEP]"
	UNKToken = "[UNK]"
)

// ErrMissingSpecial is returned when a vocabulary lacks
// one of the special tokens needed for padding.
var ErrMissingSpecial = errors.New("vocab: missing special token")

// Tokens maps tokens to the input ids of an encoder.
type Tokens struct {
	// Lowercase enables a lower-cased lookup when the
	// exact token is not in the vocabulary.
	Lowercase bool

	ids  map[string]int
	size int

	// wordPrefix marks pieces that begin a word, such as
	// SentencePiece's "▁".
	wordPrefix string

	padID int
	clsID int
	sepID int
	unkID int
}

// LoadTokens reads a token vocabulary.
//
// Files ending in ".model" are parsed as SentencePiece
// models; anything else is read as a WordPiece vocab.txt
// with one token per line.
func LoadTokens(path string) (*Tokens, error) {
	if filepath.Ext(path) == ".model" {
		return loadSentencePiece(path)
	}
	return loadWordPiece(path)
}

// NewTokens creates a vocabulary from a token list where
// each token's id is its position.
// The list must contain [PAD], [CLS], [SEP] and [UNK].
func NewTokens(tokens []string) (*Tokens, error) {
	ids := make(map[string]int, len(tokens))
	for i, tok := range tokens {
		if _, ok := ids[tok]; !ok {
			ids[tok] = i
		}
	}
	res := &Tokens{ids: ids, size: len(tokens)}
	for _, special := range []struct {
		name string
		dst  *int
	}{
		{PadToken, &res.padID},
		{CLSToken, &res.clsID},
		{SEPToken, &res.sepID},
		{UNKToken, &res.unkID},
	} {
		id, ok := ids[special.name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingSpecial, special.name)
		}
		*special.dst = id
	}
	return res, nil
}

func loadWordPiece(path string) (*Tokens, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("load vocab", err)
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tokens = append(tokens, strings.TrimRight(scanner.Text(), "\r\n"))
	}
	if err := scanner.Err(); err != nil {
		return nil, essentials.AddCtx("load vocab", err)
	}
	res, err := NewTokens(tokens)
	if err != nil {
		return nil, essentials.AddCtx("load vocab "+path, err)
	}
	return res, nil
}

// ID returns the id for a token, falling back to [UNK].
//
// Tokens are whole words, so for vocabularies with a word
// prefix the prefixed piece is tried before the bare one.
func (t *Tokens) ID(token string) int {
	if id, ok := t.lookup(token); ok {
		return id
	}
	if t.Lowercase {
		if id, ok := t.lookup(strings.ToLower(token)); ok {
			return id
		}
	}
	return t.unkID
}

func (t *Tokens) lookup(token string) (int, bool) {
	if t.wordPrefix != "" {
		if id, ok := t.ids[t.wordPrefix+token]; ok {
			return id, true
		}
	}
	id, ok := t.ids[token]
	return id, ok
}

// IDs converts a token sequence to ids.
func (t *Tokens) IDs(tokens []string) []int {
	res := make([]int, len(tokens))
	for i, tok := range tokens {
		res[i] = t.ID(tok)
	}
	return res
}

// Len returns the size of the id space.
func (t *Tokens) Len() int {
	return t.size
}

// PadID returns the padding token id.
func (t *Tokens) PadID() int { return t.padID }

// CLSID returns the sequence start token id.
func (t *Tokens) CLSID() int { return t.clsID }

// SEPID returns the sequence end token id.
func (t *Tokens) SEPID() int { return t.sepID }

// UNKID returns the unknown token id.
func (t *Tokens) UNKID() int { return t.unkID }
