package anycrf

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// Cost computes the negative log-likelihood of a tag path
// for every sequence in a batch of emissions.
//
// Each timestep of emissions must have crf.NumTags entries
// per sequence, and tags[i] must have one tag per timestep
// of the i-th sequence.
// The result has one component per sequence.
// Empty sequences have a cost of 0.
//
// The anyvec.Creator must use an anyvec.NumericList type
// []float32 or []float64.
func Cost(crf *CRF, emissions anyseq.Seq, tags [][]int) anydiff.Res {
	c := emissions.Creator()
	if len(emissions.Output()) == 0 {
		return anydiff.NewConst(c.MakeVector(len(tags)))
	}
	if n := len(emissions.Output()[0].Present); n != len(tags) {
		panic(fmt.Sprintf("have %d sequences but %d tag lists", n, len(tags)))
	}
	return pool(emissions, crf.NumTags, crf.Parameters(), func(in []*anydiff.Var, lengths []int) anydiff.Res {
		res := make([]anydiff.Res, len(in))
		for i, x := range in {
			if len(tags[i]) != lengths[i] {
				panic(fmt.Sprintf("sequence %d: %d timesteps but %d tags", i,
					lengths[i], len(tags[i])))
			}
			if lengths[i] == 0 {
				res[i] = anydiff.NewConst(c.MakeVector(1))
			} else {
				res[i] = newNLL(crf, x, tags[i])
			}
		}
		return anydiff.Concat(res...)
	})
}

type poolRes struct {
	In      anyseq.Seq
	Pools   []*anydiff.Var
	Lengths []int
	Res     anydiff.Res
	V       anydiff.VarSet
}

// pool joins every sequence into a single variable, so
// that f can treat each sequence as one flat vector.
// The extra variables are those f uses besides the pools.
func pool(seqs anyseq.Seq, numTags int, extra []*anydiff.Var, f func(in []*anydiff.Var, lengths []int) anydiff.Res) anydiff.Res {
	c := seqs.Creator()
	rawData := anyseq.SeparateSeqs(seqs.Output())
	pools := make([]*anydiff.Var, len(rawData))
	lengths := make([]int, len(rawData))
	for i, raw := range rawData {
		for _, x := range raw {
			if x.Len() != numTags {
				panic(fmt.Sprintf("emission size should be %d, but got %d", numTags, x.Len()))
			}
		}
		if len(raw) == 0 {
			pools[i] = anydiff.NewVar(c.MakeVector(0))
		} else {
			pools[i] = anydiff.NewVar(c.Concat(raw...))
		}
		lengths[i] = len(raw)
	}
	return &poolRes{
		In:      seqs,
		Pools:   pools,
		Lengths: lengths,
		Res:     f(pools, lengths),
		V:       anydiff.MergeVarSets(seqs.Vars(), anydiff.NewVarSet(extra...)),
	}
}

func (p *poolRes) Output() anyvec.Vector {
	return p.Res.Output()
}

func (p *poolRes) Vars() anydiff.VarSet {
	return p.V
}

func (p *poolRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	if !g.Intersects(p.In.Vars()) {
		p.Res.Propagate(u, g)
		return
	}
	for _, pvar := range p.Pools {
		g[pvar] = pvar.Vector.Creator().MakeVector(pvar.Vector.Len())
	}
	p.Res.Propagate(u, g)
	downstream := make([][]anyvec.Vector, len(p.Pools))
	for i, pvar := range p.Pools {
		downstream[i] = splitVec(g[pvar], p.Lengths[i])
		delete(g, pvar)
	}
	joinedU := anyseq.ConstSeqList(u.Creator(), downstream).Output()
	p.In.Propagate(joinedU, g)
}

func splitVec(vec anyvec.Vector, parts int) []anyvec.Vector {
	if parts == 0 {
		return nil
	}
	res := make([]anyvec.Vector, parts)
	chunkSize := vec.Len() / parts
	for i := range res {
		res[i] = vec.Slice(i*chunkSize, (i+1)*chunkSize)
	}
	return res
}
