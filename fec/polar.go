package fec

import (
	"fmt"
	"math"
	"sort"

	"github.com/linksim/linksim/channel"
)

// DefaultDesignSNRdB is the design point for choosing the information set.
const DefaultDesignSNRdB = 0.0

// Polar is an Arıkan polar code with generator G_N = F^{⊗n}, F = [[1,0],[1,1]],
// natural (non bit-reversed) order. The message rate is (d_c-d_v)/d_c.
type Polar struct {
	DesignSNRdB float64
}

func NewPolar(designSNRdB float64) *Polar {
	return &Polar{DesignSNRdB: designSNRdB}
}

func (*Polar) Name() string { return SchemePolar.String() }

func polarK(p Params) (int, error) {
	if p.N < 2 || p.N&(p.N-1) != 0 {
		return 0, fmt.Errorf("%w: polar n=%d must be a power of two", ErrInvalidParams, p.N)
	}
	if p.Dv <= 0 || p.Dc <= p.Dv {
		return 0, fmt.Errorf("%w: rate needs 0 < d_v < d_c, got %d/%d", ErrInvalidParams, p.Dv, p.Dc)
	}
	k := p.N * (p.Dc - p.Dv) / p.Dc
	if k <= 0 || k >= p.N {
		return 0, fmt.Errorf("%w: polar K=%d out of range for n=%d", ErrInvalidParams, k, p.N)
	}
	return k, nil
}

// Construct picks the K most reliable synthetic channels and writes G as the
// corresponding rows of G_N. H holds the frozen columns of G_N, transposed;
// since G_N·G_N = I this gives H·Gᵗ = 0.
func (c *Polar) Construct(p Params) (*Matrices, error) {
	p.Scheme = SchemePolar
	k, err := polarK(p)
	if err != nil {
		return nil, err
	}
	n := p.N
	z0 := math.Exp(-math.Pow(10, c.DesignSNRdB/10) / 2)
	z := bhattacharyya(n, z0)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return z[idx[a]] < z[idx[b]] })
	info := append([]int(nil), idx[:k]...)
	sort.Ints(info)

	isInfo := make([]bool, n)
	for _, i := range info {
		isInfo[i] = true
	}
	// Row i of G_N has ones exactly at the submasks j of i.
	G := NewBitMatrix(k, n)
	for r, i := range info {
		for j := i; ; j = (j - 1) & i {
			G.Set(r, j, 1)
			if j == 0 {
				break
			}
		}
	}
	H := NewBitMatrix(n-k, n)
	r := 0
	for f := 0; f < n; f++ {
		if isInfo[f] {
			continue
		}
		for j := f; j < n; j = (j + 1) | f {
			H.Set(r, j, 1)
		}
		r++
	}
	return &Matrices{Params: p, H: H, G: G, InfoSet: info}, nil
}

// bhattacharyya expands z0 through log2(n) polarization stages. Child 2k of a
// channel is the degraded one (2z-z²), child 2k+1 the upgraded one (z²), so
// after the last stage the most significant index bit is the first split.
func bhattacharyya(n int, z0 float64) []float64 {
	level := []float64{z0}
	for len(level) < n {
		next := make([]float64, 0, len(level)*2)
		for _, z := range level {
			next = append(next, 2*z-z*z, z*z)
		}
		level = next
	}
	return level
}

// polarTransform applies x = u·G_N in place.
func polarTransform(x []uint8) {
	n := len(x)
	for half := 1; half < n; half <<= 1 {
		block := half << 1
		for start := 0; start < n; start += block {
			for j := 0; j < half; j++ {
				x[start+j] ^= x[start+j+half]
			}
		}
	}
}

func (c *Polar) Encode(m *Matrices, msg []uint8) ([]uint8, error) {
	if err := checkMessage(m, msg); err != nil {
		return nil, err
	}
	u := make([]uint8, m.N())
	for i, pos := range m.InfoSet {
		u[pos] = msg[i] & 1
	}
	polarTransform(u)
	return u, nil
}

// Decode runs min-sum successive cancellation. The returned soft codeword
// carries the decided sign with the channel reliability as magnitude.
func (c *Polar) Decode(m *Matrices, received []float64, snrDB float64) ([]float64, error) {
	if err := checkCodeword(m, len(received)); err != nil {
		return nil, err
	}
	llr := channel.LogLikelihoodRatios(received, channel.SNRdBToVariance(snrDB), channel.DefaultEs)
	for i := range llr {
		llr[i] = clampLLR(llr[i])
	}
	frozen := make([]bool, m.N())
	for i := range frozen {
		frozen[i] = true
	}
	for _, pos := range m.InfoSet {
		frozen[pos] = false
	}
	x := scDecode(llr, frozen)
	soft := make([]float64, len(x))
	for i, b := range x {
		mag := math.Max(math.Abs(llr[i]), softFloor)
		if b != 0 {
			mag = -mag
		}
		soft[i] = mag
	}
	return soft, nil
}

// scDecode returns the re-encoded codeword of the decided u. With
// G_N = [[G,0],[G,G]] the left half is v_a⊕v_b and the right half v_b.
func scDecode(llr []float64, frozen []bool) []uint8 {
	n := len(llr)
	if n == 1 {
		if frozen[0] || llr[0] >= 0 {
			return []uint8{0}
		}
		return []uint8{1}
	}
	h := n / 2
	la := make([]float64, h)
	for i := 0; i < h; i++ {
		la[i] = minSum(llr[i], llr[h+i])
	}
	va := scDecode(la, frozen[:h])
	lb := make([]float64, h)
	for i := 0; i < h; i++ {
		if va[i] == 0 {
			lb[i] = llr[h+i] + llr[i]
		} else {
			lb[i] = llr[h+i] - llr[i]
		}
	}
	vb := scDecode(lb, frozen[h:])
	x := make([]uint8, n)
	for i := 0; i < h; i++ {
		x[i] = va[i] ^ vb[i]
		x[h+i] = vb[i]
	}
	return x
}

func minSum(a, b float64) float64 {
	m := math.Min(math.Abs(a), math.Abs(b))
	if (a < 0) != (b < 0) {
		return -m
	}
	return m
}

// ExtractMessage undoes the transform (G_N is its own inverse) and reads the
// information positions.
func (c *Polar) ExtractMessage(m *Matrices, soft []float64) ([]uint8, error) {
	if err := checkCodeword(m, len(soft)); err != nil {
		return nil, err
	}
	u := hardBits(soft)
	polarTransform(u)
	out := make([]uint8, m.K())
	for i, pos := range m.InfoSet {
		out[i] = u[pos]
	}
	return out, nil
}
