package fec

import (
	"math/bits"
)

// BitMatrix is a dense GF(2) matrix with rows packed into uint64 words,
// LSB-first within a word.
type BitMatrix struct {
	rows, cols int
	words      int
	data       []uint64
}

// NewBitMatrix returns a zero rows×cols matrix.
func NewBitMatrix(rows, cols int) *BitMatrix {
	w := (cols + 63) / 64
	return &BitMatrix{rows: rows, cols: cols, words: w, data: make([]uint64, rows*w)}
}

func (m *BitMatrix) Rows() int        { return m.rows }
func (m *BitMatrix) Cols() int        { return m.cols }
func (m *BitMatrix) WordsPerRow() int { return m.words }

// At returns the bit at (i, j).
func (m *BitMatrix) At(i, j int) uint8 {
	return uint8(m.data[i*m.words+j>>6] >> (uint(j) & 63) & 1)
}

// Set writes the bit at (i, j); any non-zero v sets it.
func (m *BitMatrix) Set(i, j int, v uint8) {
	idx := i*m.words + j>>6
	mask := uint64(1) << (uint(j) & 63)
	if v != 0 {
		m.data[idx] |= mask
	} else {
		m.data[idx] &^= mask
	}
}

// Row returns row i as a view into the matrix storage.
func (m *BitMatrix) Row(i int) []uint64 {
	return m.data[i*m.words : (i+1)*m.words]
}

// RowOnes lists the column indices set in row i.
func (m *BitMatrix) RowOnes(i int) []int {
	var out []int
	for w, word := range m.Row(i) {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			out = append(out, w*64+b)
			word &= word - 1
		}
	}
	return out
}

// Ones counts the set bits of the whole matrix.
func (m *BitMatrix) Ones() int {
	c := 0
	for _, w := range m.data {
		c += bits.OnesCount64(w)
	}
	return c
}

func (m *BitMatrix) Clone() *BitMatrix {
	c := *m
	c.data = append([]uint64(nil), m.data...)
	return &c
}

func (m *BitMatrix) Equal(o *BitMatrix) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for i, w := range m.data {
		if o.data[i] != w {
			return false
		}
	}
	return true
}

// MulVec computes y = M·x over GF(2) for a column vector x of length Cols.
func (m *BitMatrix) MulVec(x []uint8) []uint8 {
	px := packBits(x, m.words)
	y := make([]uint8, m.rows)
	for i := 0; i < m.rows; i++ {
		row := m.Row(i)
		var acc uint64
		for w := range row {
			acc ^= row[w] & px[w]
		}
		y[i] = uint8(bits.OnesCount64(acc) & 1)
	}
	return y
}

// VecMul computes y = x·M over GF(2) for a row vector x of length Rows.
func (m *BitMatrix) VecMul(x []uint8) []uint8 {
	acc := make([]uint64, m.words)
	for i, b := range x {
		if b == 0 {
			continue
		}
		row := m.Row(i)
		for w := range acc {
			acc[w] ^= row[w]
		}
	}
	return unpackBits(acc, m.cols)
}

// Reduce brings the matrix to reduced row-echelon form in place and returns
// the pivot column of each leading row. The rank is len(pivots).
func (m *BitMatrix) Reduce() []int {
	pivots := make([]int, 0, m.rows)
	r := 0
	for c := 0; c < m.cols && r < m.rows; c++ {
		wordIdx := c >> 6
		bitMask := uint64(1) << (uint(c) & 63)
		p := -1
		for i := r; i < m.rows; i++ {
			if m.data[i*m.words+wordIdx]&bitMask != 0 {
				p = i
				break
			}
		}
		if p == -1 {
			continue
		}
		m.swapRows(r, p)
		pr := m.Row(r)
		for i := 0; i < m.rows; i++ {
			if i == r {
				continue
			}
			ri := m.Row(i)
			if ri[wordIdx]&bitMask == 0 {
				continue
			}
			// pivot row is zero left of c
			for wj := wordIdx; wj < m.words; wj++ {
				ri[wj] ^= pr[wj]
			}
		}
		pivots = append(pivots, c)
		r++
	}
	return pivots
}

func (m *BitMatrix) swapRows(a, b int) {
	if a == b {
		return
	}
	ra, rb := m.Row(a), m.Row(b)
	for w := range ra {
		ra[w], rb[w] = rb[w], ra[w]
	}
}

// OrthogonalRows reports whether a·bᵗ = 0 over GF(2), i.e. every row of a
// has even overlap with every row of b.
func OrthogonalRows(a, b *BitMatrix) bool {
	if a.cols != b.cols {
		return false
	}
	for i := 0; i < a.rows; i++ {
		ra := a.Row(i)
		for j := 0; j < b.rows; j++ {
			rb := b.Row(j)
			var acc uint64
			for w := range ra {
				acc ^= ra[w] & rb[w]
			}
			if bits.OnesCount64(acc)&1 != 0 {
				return false
			}
		}
	}
	return true
}

func packBits(v []uint8, words int) []uint64 {
	out := make([]uint64, words)
	for i, b := range v {
		if b != 0 {
			out[i>>6] |= 1 << (uint(i) & 63)
		}
	}
	return out
}

func unpackBits(p []uint64, n int) []uint8 {
	out := make([]uint8, n)
	for i := range out {
		out[i] = uint8(p[i>>6] >> (uint(i) & 63) & 1)
	}
	return out
}
