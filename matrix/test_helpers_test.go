// SPDX-License-Identifier: MIT
// Package matrix_test contains test helpers
//
// Purpose:
//   • Provide small, deterministic test fixtures and utilities for kernels.
//   • Keep all data finite and well-formed to avoid numeric-policy interference.

package matrix_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlca/matrix"
)

// hide wraps any Matrix to hide its concrete type from type assertions,
// forcing the generic (interface) paths of kernels.
type hide struct{ matrix.Matrix }

// MustSparseFrom builds a Sparse from a dense row table, storing only non-zeros.
func MustSparseFrom(t *testing.T, rows [][]float64) *matrix.Sparse {
	t.Helper()
	s, err := matrix.NewSparse(len(rows), len(rows[0]))
	require.NoError(t, err)
	for i := range rows {
		for j, v := range rows[i] {
			if v != 0 {
				require.NoError(t, s.Set(i, j, v))
			}
		}
	}

	return s
}

// MustAt reads m[i,j] or fails the test.
func MustAt(t *testing.T, m matrix.Matrix, i, j int) float64 {
	t.Helper()
	v, err := m.At(i, j)
	require.NoError(t, err)

	return v
}
