package anycrf

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// nllRes is the negative log-likelihood of one tag path,
// i.e. log(Z) minus the path score.
type nllRes struct {
	CRF       *CRF
	Emissions anydiff.Res
	Tags      []int

	OutVec anyvec.Vector
	V      anydiff.VarSet

	params *crfParams
	emis   []float64
	alpha  [][]float64
	logZ   float64
}

func newNLL(crf *CRF, emissions anydiff.Res, tags []int) *nllRes {
	// Don't retain the caller's slice.
	tags = append([]int{}, tags...)

	res := &nllRes{
		CRF:       crf,
		Emissions: emissions,
		Tags:      tags,
		V: anydiff.MergeVarSets(emissions.Vars(),
			anydiff.NewVarSet(crf.Parameters()...)),
		params: crf.params(),
		emis:   vectorFloats(emissions.Output()),
	}
	res.forward()

	var score float64
	k := crf.NumTags
	for t, tag := range tags {
		score += res.emis[t*k+tag]
		if t > 0 {
			score += res.params.trans[tags[t-1]*k+tag]
		}
	}
	score += res.params.start[tags[0]] + res.params.end[tags[len(tags)-1]]

	res.OutVec = makeVector(emissions.Output().Creator(), []float64{res.logZ - score})
	return res
}

func (n *nllRes) Output() anyvec.Vector {
	return n.OutVec
}

func (n *nllRes) Vars() anydiff.VarSet {
	return n.V
}

func (n *nllRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	upstream := vectorFloats(u)[0]
	k := n.CRF.NumTags
	steps := len(n.Tags)
	beta := n.backward()

	emisGrad := make([]float64, len(n.emis))
	startGrad := make([]float64, k)
	endGrad := make([]float64, k)
	transGrad := make([]float64, k*k)

	for t := 0; t < steps; t++ {
		for j := 0; j < k; j++ {
			emisGrad[t*k+j] = math.Exp(n.alpha[t][j] + beta[t][j] - n.logZ)
		}
		if t == 0 {
			continue
		}
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				logPair := n.alpha[t-1][i] + n.params.trans[i*k+j] + n.emis[t*k+j] +
					beta[t][j] - n.logZ
				transGrad[i*k+j] += math.Exp(logPair)
			}
		}
	}
	copy(startGrad, emisGrad[:k])
	copy(endGrad, emisGrad[(steps-1)*k:])

	for t, tag := range n.Tags {
		emisGrad[t*k+tag]--
		if t > 0 {
			transGrad[n.Tags[t-1]*k+tag]--
		}
	}
	startGrad[n.Tags[0]]--
	endGrad[n.Tags[steps-1]]--

	c := u.Creator()
	for _, grad := range [][]float64{emisGrad, startGrad, endGrad, transGrad} {
		for i := range grad {
			grad[i] *= upstream
		}
	}
	if g.Intersects(n.Emissions.Vars()) {
		n.Emissions.Propagate(makeVector(c, emisGrad), g)
	}
	paramGrads := [][]float64{startGrad, endGrad, transGrad}
	for i, p := range n.CRF.Parameters() {
		if _, ok := g[p]; ok {
			p.Propagate(makeVector(c, paramGrads[i]), g)
		}
	}
}

// forward runs the forward algorithm, filling in alpha
// and logZ.
func (n *nllRes) forward() {
	k := n.CRF.NumTags
	steps := len(n.Tags)
	n.alpha = make([][]float64, steps)
	n.alpha[0] = make([]float64, k)
	for j := 0; j < k; j++ {
		n.alpha[0][j] = n.params.start[j] + n.emis[j]
	}
	terms := make([]float64, k)
	for t := 1; t < steps; t++ {
		n.alpha[t] = make([]float64, k)
		for j := 0; j < k; j++ {
			for i := 0; i < k; i++ {
				terms[i] = n.alpha[t-1][i] + n.params.trans[i*k+j]
			}
			n.alpha[t][j] = logSumExp(terms) + n.emis[t*k+j]
		}
	}
	for j := 0; j < k; j++ {
		terms[j] = n.alpha[steps-1][j] + n.params.end[j]
	}
	n.logZ = logSumExp(terms)
}

// backward runs the backward algorithm.
// The result includes the end scores.
func (n *nllRes) backward() [][]float64 {
	k := n.CRF.NumTags
	steps := len(n.Tags)
	beta := make([][]float64, steps)
	beta[steps-1] = append([]float64{}, n.params.end...)
	terms := make([]float64, k)
	for t := steps - 2; t >= 0; t-- {
		beta[t] = make([]float64, k)
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				terms[j] = n.params.trans[i*k+j] + n.emis[(t+1)*k+j] + beta[t+1][j]
			}
			beta[t][i] = logSumExp(terms)
		}
	}
	return beta
}
