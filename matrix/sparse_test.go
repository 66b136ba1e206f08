// SPDX-License-Identifier: MIT
package matrix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlca/matrix"
)

func TestSparse_SetAtAndVersion(t *testing.T) {
	s, err := matrix.NewSparse(3, 2)
	require.NoError(t, err)
	assert.Zero(t, s.Version())

	require.NoError(t, s.Set(2, 1, 5))
	require.NoError(t, s.Set(0, 1, 1))
	assert.Equal(t, 2, s.NNZ())
	v0 := s.Version()

	// same value again: no effective mutation
	require.NoError(t, s.Set(2, 1, 5))
	assert.Equal(t, v0, s.Version())

	require.NoError(t, s.Set(2, 1, 6))
	assert.Greater(t, s.Version(), v0)
	assert.Equal(t, 6.0, MustAt(t, s, 2, 1))
	assert.Zero(t, MustAt(t, s, 1, 1))
	assert.True(t, s.Has(0, 1))
	assert.False(t, s.Has(1, 1))

	_, err = s.At(3, 0)
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)
}

func TestSparse_AddToAccumulates(t *testing.T) {
	s, err := matrix.NewSparse(1, 1)
	require.NoError(t, err)
	require.NoError(t, s.AddTo(0, 0, 1.5))
	require.NoError(t, s.AddTo(0, 0, 2.5))
	assert.Equal(t, 4.0, MustAt(t, s, 0, 0))
	assert.Equal(t, 1, s.NNZ())
}

func TestSparse_DeterministicIteration(t *testing.T) {
	s := MustSparseFrom(t, [][]float64{
		{0, 2, 0},
		{1, 0, 3},
	})
	var got [][3]float64
	s.Do(func(i, j int, v float64) { got = append(got, [3]float64{float64(i), float64(j), v}) })
	assert.Equal(t, [][3]float64{{1, 0, 1}, {0, 1, 2}, {1, 2, 3}}, got)
}

func TestSparse_ReductionsAndScaling(t *testing.T) {
	s := MustSparseFrom(t, [][]float64{
		{1, 2},
		{0, 4},
	})
	y, err := s.MulVec([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, y)

	sc, err := s.ScaleColumns([]float64{2, 0.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, sc.ColSums())
	assert.Equal(t, []float64{3, 2}, sc.RowSums())
	assert.Equal(t, 5.0, sc.Sum())

	sr, err := s.ScaleRows([]float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 4.0, sr.Sum())

	_, err = s.MulVec([]float64{1})
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	assert.Equal(t, 4.0, s.NormInf())
}

func TestSparse_ZeroSizedAllowed(t *testing.T) {
	s, err := matrix.NewSparse(0, 3)
	require.NoError(t, err)
	y, err := s.MulVec([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Empty(t, y)
	_, err = matrix.NewSparse(-1, 3)
	assert.ErrorIs(t, err, matrix.ErrInvalidDimensions)
}

func TestSparse_CloneIndependent(t *testing.T) {
	s := MustSparseFrom(t, [][]float64{{1, 0}, {0, 1}})
	c := s.CloneSparse()
	require.NoError(t, s.Set(0, 0, 7))
	assert.Equal(t, 1.0, MustAt(t, c, 0, 0))
}
