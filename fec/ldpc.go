package fec

import (
	"fmt"
	"math/rand/v2"
)

// DefaultMaxIter bounds belief-propagation decoding.
const DefaultMaxIter = 100

// LDPC is a regular Gallager code: every column of H has d_v ones and every
// row d_c ones. The generator is systematic on the free columns of the
// row-reduced H.
type LDPC struct {
	MaxIter int
}

// NewLDPC returns an LDPC codec; maxIter <= 0 selects DefaultMaxIter.
func NewLDPC(maxIter int) *LDPC {
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	return &LDPC{MaxIter: maxIter}
}

func (*LDPC) Name() string { return SchemeLDPC.String() }

func checkRegular(p Params) error {
	switch {
	case p.N <= 0:
		return fmt.Errorf("%w: n=%d", ErrInvalidParams, p.N)
	case p.Dv < 2:
		return fmt.Errorf("%w: d_v=%d must be at least 2", ErrInvalidParams, p.Dv)
	case p.Dc <= p.Dv:
		return fmt.Errorf("%w: d_c=%d must be greater than d_v=%d", ErrInvalidParams, p.Dc, p.Dv)
	case p.N%p.Dc != 0:
		return fmt.Errorf("%w: d_c=%d must divide n=%d", ErrInvalidParams, p.Dc, p.N)
	}
	return nil
}

// Construct builds (H, G). The same Params always yield the same matrices.
func (c *LDPC) Construct(p Params) (*Matrices, error) {
	p.Scheme = SchemeLDPC
	if err := checkRegular(p); err != nil {
		return nil, err
	}
	H := regularParityCheck(p.N, p.Dv, p.Dc, p.Seed)

	R := H.Clone()
	pivots := R.Reduce()
	isPivot := make([]bool, p.N)
	for _, pc := range pivots {
		isPivot[pc] = true
	}
	free := make([]int, 0, p.N-len(pivots))
	for col := 0; col < p.N; col++ {
		if !isPivot[col] {
			free = append(free, col)
		}
	}
	if len(free) == 0 {
		return nil, fmt.Errorf("%w: parity-check matrix has full column rank", ErrInvalidParams)
	}

	// Row i of the reduced H reads c[pivot_i] = Σ_f R[i][f]·c[f] over the
	// free columns f, which fixes every parity bit from the message bits.
	G := NewBitMatrix(len(free), p.N)
	for j, f := range free {
		G.Set(j, f, 1)
	}
	for i, pc := range pivots {
		for j, f := range free {
			if R.At(i, f) != 0 {
				G.Set(j, pc, 1)
			}
		}
	}
	return &Matrices{Params: p, H: H, G: G, InfoSet: free}, nil
}

// regularParityCheck stacks d_v blocks of n/d_c rows. The first block puts
// d_c consecutive ones in each row; the others are seeded column permutations
// of it.
func regularParityCheck(n, dv, dc int, seed int64) *BitMatrix {
	blockRows := n / dc
	H := NewBitMatrix(blockRows*dv, n)
	for i := 0; i < blockRows; i++ {
		for j := i * dc; j < (i+1)*dc; j++ {
			H.Set(i, j, 1)
		}
	}
	rng := rand.New(rand.NewPCG(uint64(seed), 0x6c647063))
	for b := 1; b < dv; b++ {
		perm := rng.Perm(n)
		for i := 0; i < blockRows; i++ {
			for j := 0; j < n; j++ {
				if H.At(i, perm[j]) != 0 {
					H.Set(b*blockRows+i, j, 1)
				}
			}
		}
	}
	return H
}

// Encode returns msg·G.
func (c *LDPC) Encode(m *Matrices, msg []uint8) ([]uint8, error) {
	if err := checkMessage(m, msg); err != nil {
		return nil, err
	}
	return m.G.VecMul(msg), nil
}

// ExtractMessage hard-decides the codeword and reads the systematic positions.
func (c *LDPC) ExtractMessage(m *Matrices, soft []float64) ([]uint8, error) {
	if err := checkCodeword(m, len(soft)); err != nil {
		return nil, err
	}
	out := make([]uint8, m.K())
	for i, col := range m.InfoSet {
		if soft[col] < 0 {
			out[i] = 1
		}
	}
	return out, nil
}
