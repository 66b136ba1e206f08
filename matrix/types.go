// SPDX-License-Identifier: MIT

// Package matrix: domain-facing interface implemented by Sparse.
package matrix

// Matrix represents a two-dimensional mutable array of float64 values.
//
// Sparse answers At/Set in O(log k) where k is the column fill. Kernels take
// a fast path for *Sparse and fall back to At for other implementations.
type Matrix interface {
	// Rows returns the number of rows in the matrix.
	Rows() int

	// Cols returns the number of columns in the matrix.
	Cols() int

	// At retrieves the element at position (i, j).
	// Returns ErrOutOfRange if i<0, i>=Rows(), j<0 or j>=Cols().
	At(i, j int) (float64, error)

	// Set assigns the value v at position (i, j).
	// Returns ErrOutOfRange if indices are invalid.
	Set(i, j int, v float64) error

	// Clone returns a deep copy of the matrix.
	Clone() Matrix
}
