// SPDX-License-Identifier: MIT

// Package matrix - Sparse storage (column-compressed, mutable in place).
//
// Purpose:
//   - Hold the technosphere (A) and biosphere (B) matrices of an LCA
//     calculation, whose structure is fixed at assembly time but whose values
//     are overwritten by scenario overlays and Monte-Carlo resampling.
//   - Keep every column as a row-sorted slice of entries so that iteration is
//     deterministic (column-major, row ascending) and lookups are O(log k).
//   - Track an effective-mutation counter (Version) that downstream caches use
//     as a dirty flag.
//
// Notes:
//   - An explicit entry whose value is 0 stays in the structure; this mirrors
//     the "structural zero" semantics of assembled LCA matrices, where an
//     overlay may later set the coordinate again.

package matrix

import (
	"fmt"
	"sort"
)

const (
	ctxSparseAt  = "At"
	ctxSparseSet = "Set"
	ctxSparseAdd = "AddTo"
)

// sparseErrorf wraps an error with a uniform Sparse context and indices.
func sparseErrorf(method string, row, col int, err error) error {
	return fmt.Errorf("Sparse.%s(%d,%d): %w", method, row, col, err)
}

// entry is one stored (row, value) pair inside a column.
type entry struct {
	row int
	val float64
}

// Sparse is a column-compressed matrix with in-place mutation.
//   - cols[j] holds the entries of column j sorted by row.
//   - version counts effective value or structure changes.
type Sparse struct {
	r, c           int
	cols           [][]entry
	nnz            int
	version        uint64
	validateNaNInf bool
}

var _ Matrix = (*Sparse)(nil)

// NewSparse creates an empty rows×cols sparse matrix.
// Zero-sized dimensions are legal (an inventory may have no biosphere flows).
//
// Errors:
//   - ErrInvalidDimensions when rows<0 or cols<0.
//
// Complexity:
//   - Time O(cols), Space O(cols).
func NewSparse(rows, cols int, opts ...Option) (*Sparse, error) {
	if rows < 0 || cols < 0 {
		return nil, ErrInvalidDimensions
	}
	o := gatherOptions(opts...)

	return &Sparse{
		r:              rows,
		c:              cols,
		cols:           make([][]entry, cols),
		validateNaNInf: o.validateNaNInf,
	}, nil
}

// Rows returns the number of rows.
func (s *Sparse) Rows() int { return s.r }

// Cols returns the number of columns.
func (s *Sparse) Cols() int { return s.c }

// NNZ returns the number of stored entries (including structural zeros).
func (s *Sparse) NNZ() int { return s.nnz }

// Version returns the mutation counter. It increases whenever Set or AddTo
// changes a stored value or inserts a new coordinate.
func (s *Sparse) Version() uint64 { return s.version }

// find returns the position of row in column j and whether it is present.
func (s *Sparse) find(row, j int) (int, bool) {
	col := s.cols[j]
	k := sort.Search(len(col), func(x int) bool { return col[x].row >= row })

	return k, k < len(col) && col[k].row == row
}

// At retrieves the element at (row, col); absent coordinates read as 0.
func (s *Sparse) At(row, col int) (float64, error) {
	if err := validateIndex(row, col, s.r, s.c); err != nil {
		return 0, sparseErrorf(ctxSparseAt, row, col, err)
	}
	k, ok := s.find(row, col)
	if !ok {
		return 0, nil
	}

	return s.cols[col][k].val, nil
}

// Has reports whether (row, col) is a stored coordinate.
func (s *Sparse) Has(row, col int) bool {
	if validateIndex(row, col, s.r, s.c) != nil {
		return false
	}
	_, ok := s.find(row, col)

	return ok
}

// Set replaces the value at (row, col), inserting the coordinate if needed.
// Setting the current value again is not a mutation (Version is unchanged),
// which makes repeated overlays idempotent for dirty tracking.
func (s *Sparse) Set(row, col int, v float64) error {
	if err := validateIndex(row, col, s.r, s.c); err != nil {
		return sparseErrorf(ctxSparseSet, row, col, err)
	}
	if s.validateNaNInf && isNonFinite(v) {
		return sparseErrorf(ctxSparseSet, row, col, ErrNaNInf)
	}
	k, ok := s.find(row, col)
	if ok {
		if s.cols[col][k].val != v {
			s.cols[col][k].val = v
			s.version++
		}

		return nil
	}
	s.insert(col, k, entry{row: row, val: v})

	return nil
}

// AddTo accumulates v into (row, col). Assembly uses this so that parallel
// exchanges between the same pair of nodes sum up.
func (s *Sparse) AddTo(row, col int, v float64) error {
	if err := validateIndex(row, col, s.r, s.c); err != nil {
		return sparseErrorf(ctxSparseAdd, row, col, err)
	}
	if s.validateNaNInf && isNonFinite(v) {
		return sparseErrorf(ctxSparseAdd, row, col, ErrNaNInf)
	}
	k, ok := s.find(row, col)
	if ok {
		if v != 0 {
			s.cols[col][k].val += v
			s.version++
		}

		return nil
	}
	s.insert(col, k, entry{row: row, val: v})

	return nil
}

// insert places e at position k of column col.
func (s *Sparse) insert(col, k int, e entry) {
	c := s.cols[col]
	c = append(c, entry{})
	copy(c[k+1:], c[k:])
	c[k] = e
	s.cols[col] = c
	s.nnz++
	s.version++
}

// Clone returns a deep copy (the version counter is copied as well).
func (s *Sparse) Clone() Matrix { return s.CloneSparse() }

// CloneSparse is Clone with the concrete return type.
func (s *Sparse) CloneSparse() *Sparse {
	out := &Sparse{
		r:              s.r,
		c:              s.c,
		cols:           make([][]entry, s.c),
		nnz:            s.nnz,
		version:        s.version,
		validateNaNInf: s.validateNaNInf,
	}
	for j := range s.cols {
		out.cols[j] = append([]entry(nil), s.cols[j]...)
	}

	return out
}

// Do calls fn for every stored entry in column-major, row-ascending order.
func (s *Sparse) Do(fn func(i, j int, v float64)) {
	var j int
	var e entry
	for j = 0; j < s.c; j++ {
		for _, e = range s.cols[j] {
			fn(e.row, j, e.val)
		}
	}
}

// DoColumn calls fn for every stored entry of column j (row ascending).
func (s *Sparse) DoColumn(j int, fn func(i int, v float64)) {
	if j < 0 || j >= s.c {
		return
	}
	for _, e := range s.cols[j] {
		fn(e.row, e.val)
	}
}

// MulVec computes y = S·x.
//
// Errors:
//   - ErrDimensionMismatch when len(x) != Cols().
//
// Complexity:
//   - Time O(nnz), Space O(rows).
func (s *Sparse) MulVec(x []float64) ([]float64, error) {
	if len(x) != s.c {
		return nil, fmt.Errorf("Sparse.MulVec: %w", ErrDimensionMismatch)
	}
	y := make([]float64, s.r)
	var j int
	var e entry
	for j = 0; j < s.c; j++ {
		if x[j] == 0 {
			continue
		}
		for _, e = range s.cols[j] {
			y[e.row] += e.val * x[j]
		}
	}

	return y, nil
}

// ScaleColumns returns S·diag(d) as a new Sparse with the same structure.
func (s *Sparse) ScaleColumns(d []float64) (*Sparse, error) {
	if len(d) != s.c {
		return nil, fmt.Errorf("Sparse.ScaleColumns: %w", ErrDimensionMismatch)
	}
	out := s.CloneSparse()
	out.validateNaNInf = false
	var j, k int
	for j = 0; j < out.c; j++ {
		for k = range out.cols[j] {
			out.cols[j][k].val *= d[j]
		}
	}

	return out, nil
}

// ScaleRows returns diag(d)·S as a new Sparse with the same structure.
func (s *Sparse) ScaleRows(d []float64) (*Sparse, error) {
	if len(d) != s.r {
		return nil, fmt.Errorf("Sparse.ScaleRows: %w", ErrDimensionMismatch)
	}
	out := s.CloneSparse()
	out.validateNaNInf = false
	var j, k int
	for j = 0; j < out.c; j++ {
		for k = range out.cols[j] {
			out.cols[j][k].val *= d[out.cols[j][k].row]
		}
	}

	return out, nil
}

// RowSums returns Σ_j S[i,j] for every row i.
func (s *Sparse) RowSums() []float64 {
	out := make([]float64, s.r)
	s.Do(func(i, _ int, v float64) { out[i] += v })

	return out
}

// ColSums returns Σ_i S[i,j] for every column j.
func (s *Sparse) ColSums() []float64 {
	out := make([]float64, s.c)
	s.Do(func(_, j int, v float64) { out[j] += v })

	return out
}

// Sum returns the sum of all stored values.
func (s *Sparse) Sum() float64 {
	var total float64
	s.Do(func(_, _ int, v float64) { total += v })

	return total
}

// NormInf returns max_i Σ_j |S[i,j]|.
func (s *Sparse) NormInf() float64 {
	rows := make([]float64, s.r)
	s.Do(func(i, _ int, v float64) {
		if v < 0 {
			v = -v
		}
		rows[i] += v
	})
	var best float64
	for _, v := range rows {
		if v > best {
			best = v
		}
	}

	return best
}
