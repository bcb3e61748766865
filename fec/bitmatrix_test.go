package fec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrixFromRows(rows [][]uint8) *BitMatrix {
	m := NewBitMatrix(len(rows), len(rows[0]))
	for i, r := range rows {
		for j, v := range r {
			m.Set(i, j, v)
		}
	}
	return m
}

func TestBitMatrixSetAt(t *testing.T) {
	m := NewBitMatrix(3, 130)
	m.Set(2, 129, 1)
	m.Set(0, 64, 1)
	m.Set(0, 63, 1)
	assert.Equal(t, uint8(1), m.At(2, 129))
	assert.Equal(t, uint8(1), m.At(0, 64))
	assert.Equal(t, uint8(0), m.At(1, 64))
	assert.Equal(t, []int{63, 64}, m.RowOnes(0))
	assert.Equal(t, 3, m.Ones())
	m.Set(0, 63, 0)
	assert.Equal(t, []int{64}, m.RowOnes(0))
	assert.Equal(t, 3, m.WordsPerRow())
}

func TestBitMatrixMul(t *testing.T) {
	m := matrixFromRows([][]uint8{
		{1, 1, 0, 1},
		{0, 1, 1, 0},
	})
	assert.Equal(t, []uint8{0, 1}, m.MulVec([]uint8{1, 1, 0, 0}))
	assert.Equal(t, []uint8{1, 0, 1, 1}, m.VecMul([]uint8{1, 1}))
	assert.Equal(t, []uint8{0, 0, 0, 0}, m.VecMul([]uint8{0, 0}))
}

func TestBitMatrixReduce(t *testing.T) {
	m := matrixFromRows([][]uint8{
		{1, 1, 0, 0},
		{0, 1, 1, 0},
		{1, 0, 1, 0},
		{0, 0, 0, 1},
	})
	pivots := m.Reduce()
	// row 2 = row 0 + row 1
	assert.Equal(t, []int{0, 1, 3}, pivots)
	want := matrixFromRows([][]uint8{
		{1, 0, 1, 0},
		{0, 1, 1, 0},
		{0, 0, 0, 1},
		{0, 0, 0, 0},
	})
	assert.True(t, want.Equal(m))
}

func TestBitMatrixCloneIndependent(t *testing.T) {
	m := NewBitMatrix(2, 2)
	c := m.Clone()
	c.Set(1, 1, 1)
	assert.Equal(t, uint8(0), m.At(1, 1))
	assert.False(t, m.Equal(c))
}

func TestOrthogonalRows(t *testing.T) {
	h := matrixFromRows([][]uint8{{1, 1, 1, 0}})
	g := matrixFromRows([][]uint8{{1, 1, 0, 0}, {0, 0, 0, 1}})
	require.True(t, OrthogonalRows(h, g))
	g.Set(1, 2, 1)
	assert.False(t, OrthogonalRows(h, g))
}
