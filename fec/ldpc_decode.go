package fec

import (
	"math"

	"github.com/linksim/linksim/channel"
)

const (
	maxLLR    = 50.0
	maxTanh   = 1 - 1e-12
	softFloor = 1e-6
)

// tanner is the edge list of H. Edges are numbered check by check.
type tanner struct {
	checkStart []int // edges of check i are checkStart[i]..checkStart[i+1]
	edgeVar    []int
	varEdges   [][]int
}

func newTanner(H *BitMatrix) *tanner {
	t := &tanner{
		checkStart: make([]int, H.Rows()+1),
		varEdges:   make([][]int, H.Cols()),
	}
	for i := 0; i < H.Rows(); i++ {
		for _, v := range H.RowOnes(i) {
			t.varEdges[v] = append(t.varEdges[v], len(t.edgeVar))
			t.edgeVar = append(t.edgeVar, v)
		}
		t.checkStart[i+1] = len(t.edgeVar)
	}
	return t
}

func (t *tanner) satisfied(post []float64) bool {
	for i := 0; i+1 < len(t.checkStart); i++ {
		parity := 0
		for e := t.checkStart[i]; e < t.checkStart[i+1]; e++ {
			if post[t.edgeVar[e]] < 0 {
				parity ^= 1
			}
		}
		if parity != 0 {
			return false
		}
	}
	return true
}

func clampLLR(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > maxLLR:
		return maxLLR
	case v < -maxLLR:
		return -maxLLR
	}
	return v
}

// channelLLR is log P(0|y)/P(1|y) for BPSK 0→-1, 1→+1 at noise variance σ².
func channelLLR(received []float64, snrDB float64) []float64 {
	variance := channel.SNRdBToVariance(snrDB)
	out := make([]float64, len(received))
	for i, y := range received {
		out[i] = clampLLR(-2 * y / variance)
	}
	return out
}

// Decode runs sum-product belief propagation and returns the posterior LLRs.
// It stops as soon as the hard decision satisfies every check; if MaxIter is
// reached the last posterior is returned as is.
func (c *LDPC) Decode(m *Matrices, received []float64, snrDB float64) ([]float64, error) {
	if err := checkCodeword(m, len(received)); err != nil {
		return nil, err
	}
	g := m.tanner()
	lch := channelLLR(received, snrDB)
	post := append([]float64(nil), lch...)
	if g.satisfied(post) {
		return post, nil
	}

	nEdges := len(g.edgeVar)
	v2c := make([]float64, nEdges)
	c2v := make([]float64, nEdges)
	th := make([]float64, nEdges)
	for e, v := range g.edgeVar {
		v2c[e] = lch[v]
	}
	maxIter := c.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	for it := 0; it < maxIter; it++ {
		for i := 0; i+1 < len(g.checkStart); i++ {
			lo, hi := g.checkStart[i], g.checkStart[i+1]
			for e := lo; e < hi; e++ {
				th[e] = math.Tanh(v2c[e] / 2)
			}
			for e := lo; e < hi; e++ {
				p := 1.0
				for o := lo; o < hi; o++ {
					if o != e {
						p *= th[o]
					}
				}
				p = math.Max(-maxTanh, math.Min(maxTanh, p))
				c2v[e] = 2 * math.Atanh(p)
			}
		}
		for v, edges := range g.varEdges {
			s := lch[v]
			for _, e := range edges {
				s += c2v[e]
			}
			post[v] = s
			for _, e := range edges {
				v2c[e] = clampLLR(s - c2v[e])
			}
		}
		if g.satisfied(post) {
			break
		}
	}
	return post, nil
}
