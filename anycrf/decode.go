package anycrf

import (
	"math"

	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// Decode finds the highest-scoring tag path for every
// sequence in a batch of emissions.
// Empty sequences yield empty paths.
func Decode(crf *CRF, emissions anyseq.Seq) [][]int {
	seqs := anyseq.SeparateSeqs(emissions.Output())
	res := make([][]int, len(seqs))
	for i, seq := range seqs {
		res[i], _ = crf.Viterbi(seq)
	}
	return res
}

// Viterbi finds the highest-scoring tag path for a single
// sequence, along with the path's score.
// Ties are broken in favor of lower tag indices.
func (c *CRF) Viterbi(emissions []anyvec.Vector) ([]int, float64) {
	if len(emissions) == 0 {
		return []int{}, 0
	}
	k := c.NumTags
	p := c.params()

	score := make([]float64, k)
	first := vectorFloats(emissions[0])
	for j := range score {
		score[j] = p.start[j] + first[j]
	}

	backPointers := make([][]int, len(emissions))
	for t := 1; t < len(emissions); t++ {
		emis := vectorFloats(emissions[t])
		next := make([]float64, k)
		backPointers[t] = make([]int, k)
		for j := 0; j < k; j++ {
			best := math.Inf(-1)
			for i := 0; i < k; i++ {
				if s := score[i] + p.trans[i*k+j]; s > best {
					best = s
					backPointers[t][j] = i
				}
			}
			next[j] = best + emis[j]
		}
		score = next
	}

	bestTag := 0
	bestScore := math.Inf(-1)
	for j := 0; j < k; j++ {
		if s := score[j] + p.end[j]; s > bestScore {
			bestScore = s
			bestTag = j
		}
	}

	path := make([]int, len(emissions))
	path[len(path)-1] = bestTag
	for t := len(emissions) - 1; t > 0; t-- {
		path[t-1] = backPointers[t][path[t]]
	}
	return path, bestScore
}
