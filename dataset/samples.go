package dataset

import (
	"crypto/sha1"
	"strings"

	"github.com/unixpickle/crftag/anysgd"
)

// A SampleList is an anysgd.SampleList of examples.
//
// It implements anysgd.Hasher, so it can be split into
// training and validation data with anysgd.HashSplit.
type SampleList []*Example

// Len returns the number of samples.
func (s SampleList) Len() int {
	return len(s)
}

// Swap swaps two samples.
func (s SampleList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Slice copies a sub-slice of the list.
func (s SampleList) Slice(i, j int) anysgd.SampleList {
	return append(SampleList{}, s[i:j]...)
}

// Hash hashes the tokens of a sample.
// Samples with identical text always land on the same
// side of a hash split.
func (s SampleList) Hash(i int) []byte {
	sum := sha1.Sum([]byte(strings.Join(s[i].Tokens, "\x00")))
	return sum[:]
}

// LenAt returns the number of tokens in a sample.
func (s SampleList) LenAt(i int) int {
	return len(s[i].Tokens)
}
