// Package fec defines the forward-error-correction contract used by the
// transmission pipeline and provides two implementations of it: a regular
// Gallager LDPC code with belief-propagation decoding and a polar code with
// successive-cancellation decoding.
//
// Bits are uint8 values 0 or 1. Soft values follow the log-likelihood
// convention: positive favours 0, negative favours 1.
package fec

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrInvalidParams is returned by Construct for a (n, d_v, d_c) combination
// the code cannot be built for. It is a configuration error.
var ErrInvalidParams = errors.New("fec: invalid code parameters")

// ErrShape is returned when a vector does not fit the matrices it is used with.
var ErrShape = errors.New("fec: vector length does not match code")

// Scheme identifies a code family. The numeric values are persisted.
type Scheme uint8

const (
	SchemeLDPC  Scheme = 1
	SchemePolar Scheme = 2
)

func (s Scheme) String() string {
	switch s {
	case SchemeLDPC:
		return "ldpc"
	case SchemePolar:
		return "polar"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// ParseScheme accepts the names printed by Scheme.String.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ldpc":
		return SchemeLDPC, nil
	case "polar":
		return SchemePolar, nil
	}
	return 0, fmt.Errorf("fec: unknown scheme %q", s)
}

// Params is the construction input. For polar codes d_v/d_c only sets the
// rate, K = n·(d_c-d_v)/d_c, and Seed is ignored.
type Params struct {
	Scheme Scheme
	N      int
	Dv     int
	Dc     int
	Seed   int64
}

// SameCode reports whether p and q describe the same code shape. The seed is
// not compared.
func (p Params) SameCode(q Params) bool {
	return p.Scheme == q.Scheme && p.N == q.N && p.Dv == q.Dv && p.Dc == q.Dc
}

func (p Params) String() string {
	return fmt.Sprintf("%s(n=%d,dv=%d,dc=%d,seed=%d)", p.Scheme, p.N, p.Dv, p.Dc, p.Seed)
}

// Matrices is a constructed code. H is the parity-check matrix, G the
// generator, InfoSet the codeword positions carrying message bits (ascending).
// H·Gᵗ = 0 over GF(2).
type Matrices struct {
	Params  Params
	H       *BitMatrix
	G       *BitMatrix
	InfoSet []int

	graphOnce sync.Once
	graph     *tanner
}

// K is the number of message bits per codeword.
func (m *Matrices) K() int { return len(m.InfoSet) }

// N is the codeword length.
func (m *Matrices) N() int { return m.Params.N }

// Validate checks that the matrices are consistent with Params.
func (m *Matrices) Validate() error {
	if m.H == nil || m.G == nil {
		return errors.New("fec: missing matrix")
	}
	n := m.Params.N
	if m.H.Cols() != n || m.G.Cols() != n {
		return fmt.Errorf("fec: matrix width H=%d G=%d, want %d", m.H.Cols(), m.G.Cols(), n)
	}
	if m.G.Rows() != len(m.InfoSet) || len(m.InfoSet) == 0 {
		return fmt.Errorf("fec: generator has %d rows for %d info positions", m.G.Rows(), len(m.InfoSet))
	}
	prev := -1
	for _, c := range m.InfoSet {
		if c <= prev || c >= n {
			return fmt.Errorf("fec: info set not ascending within [0,%d)", n)
		}
		prev = c
	}
	return nil
}

func (m *Matrices) tanner() *tanner {
	m.graphOnce.Do(func() { m.graph = newTanner(m.H) })
	return m.graph
}

// Codec is the FEC contract: build matrices once, then encode, decode and
// extract with them.
type Codec interface {
	Name() string
	Construct(p Params) (*Matrices, error)
	Encode(m *Matrices, msg []uint8) ([]uint8, error)
	// Decode returns a soft codeword estimate. snrDB controls how much the
	// decoder trusts the channel observations.
	Decode(m *Matrices, received []float64, snrDB float64) ([]float64, error)
	ExtractMessage(m *Matrices, soft []float64) ([]uint8, error)
}

// Options tunes codec construction.
type Options struct {
	MaxIter     int     // LDPC belief-propagation iterations
	DesignSNRdB float64 // polar information set design point
}

// NewCodec returns the codec for s.
func NewCodec(s Scheme, o Options) (Codec, error) {
	switch s {
	case SchemeLDPC:
		return NewLDPC(o.MaxIter), nil
	case SchemePolar:
		return NewPolar(o.DesignSNRdB), nil
	}
	return nil, fmt.Errorf("fec: no codec for %s", s)
}

func hardBits(soft []float64) []uint8 {
	out := make([]uint8, len(soft))
	for i, v := range soft {
		if v < 0 {
			out[i] = 1
		}
	}
	return out
}

func checkMessage(m *Matrices, msg []uint8) error {
	if len(msg) != m.K() {
		return fmt.Errorf("%w: message has %d bits, code carries %d", ErrShape, len(msg), m.K())
	}
	return nil
}

func checkCodeword(m *Matrices, n int) error {
	if n != m.N() {
		return fmt.Errorf("%w: got %d samples, codeword has %d", ErrShape, n, m.N())
	}
	return nil
}
