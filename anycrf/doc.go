// Package anycrf implements a linear-chain conditional
// random field on top of anydiff.
//
// A CRF scores a tag path through a sequence of emission
// vectors, where each emission vector holds one score per
// tag.
// The score of a path is the sum of its emission scores,
// the start score of its first tag, the end score of its
// last tag, and the transition scores between consecutive
// tags.
//
// For background, see
// https://repository.upenn.edu/cis_papers/159/.
package anycrf
