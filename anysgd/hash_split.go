package anysgd

import (
	"encoding/binary"
	"math"
)

// A Hasher is a SampleList that can hash its samples.
type Hasher interface {
	SampleList
	Hash(i int) []byte
}

// HashSplit deterministically splits h into two lists.
//
// A sample goes to the left list when the first eight
// bytes of its hash, read as a big-endian fraction of
// 2^64, fall below leftRatio. Equal hashes always land on
// the same side, whatever the order of h.
//
// The samples of h are re-ordered in place.
func HashSplit(h Hasher, leftRatio float64) (left, right SampleList) {
	if leftRatio <= 0 {
		return h.Slice(0, 0), h.Slice(0, h.Len())
	} else if leftRatio >= 1 {
		return h.Slice(0, h.Len()), h.Slice(0, 0)
	}
	cutoff := uint64(math.Ldexp(leftRatio, 64))
	n := 0
	for i := 0; i < h.Len(); i++ {
		if hashPrefix(h.Hash(i)) < cutoff {
			h.Swap(n, i)
			n++
		}
	}
	return h.Slice(0, n), h.Slice(n, h.Len())
}

// hashPrefix zero-pads hashes shorter than eight bytes.
func hashPrefix(hash []byte) uint64 {
	var buf [8]byte
	copy(buf[:], hash)
	return binary.BigEndian.Uint64(buf[:])
}
