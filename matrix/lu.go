// SPDX-License-Identifier: MIT

// Package matrix - sparse LU factorization with partial pivoting.
//
// Purpose:
//   - Factorize a square matrix once (P·A = L·U) and reuse the factors for
//     many right-hand sides. LCA calculations solve A·s = f for every
//     functional unit against the same technosphere matrix.
//   - Provide iterative refinement on top of the triangular solves so that
//     badly scaled technosphere matrices still reach the residual target.

package matrix

import (
	"container/heap"
	"fmt"
	"math"
)

// Operation name constants for unified error wrapping.
const (
	opFactorize = "Factorize"
	opSolve     = "Solve"
	opRefine    = "SolveRefined"
	opMatVec    = "MatVec"
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// Use only when err != nil.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// LU holds a sparse factorization P·A = L·U.
//   - l[k] holds the multipliers of pivot step k, keyed by original row; the
//     unit diagonal of L is implied.
//   - u[k] holds the entries of column k above the diagonal, keyed by pivot
//     step; diag[k] is U[k,k].
//   - piv[k] is the original row pivoted at step k.
type LU struct {
	n    int
	l    [][]entry
	u    [][]entry
	diag []float64
	piv  []int
}

// Factorize computes a left-looking, partially pivoted LU factorization of m
// over its column storage, so memory follows the non-zero pattern of L and U.
// Implementation:
//   - Stage 1: Validate m (not nil, square, non-empty, finite).
//   - Stage 2: For k=0..n-1 scatter column k, apply the earlier pivot steps it
//     reaches in ascending step order (sparse triangular solve), split the
//     result into U above the diagonal and pivot candidates below it.
//   - Stage 3: Pick the candidate of largest magnitude as pivot and store the
//     remaining candidates divided by it as column k of L.
//
// Behavior highlights:
//   - Deterministic: ties between equal pivot magnitudes keep the lowest row.
//   - The pivot test is local to the column: a pivot at or below
//     eps·max(|A[:,k]|, |x|) is ErrSingular, where x is the column after the
//     triangular solve. Badly scaled columns (kg next to MJ) factorize.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrInvalidDimensions, ErrNaNInf, ErrSingular.
//
// Complexity:
//   - Time O(flops·log n), Space O(nnz(L+U) + n).
func Factorize(m Matrix, opts ...Option) (*LU, error) {
	if err := ValidateSquareNonNil(m); err != nil {
		return nil, matrixErrorf(opFactorize, err)
	}
	n := m.Rows()
	if n == 0 {
		return nil, matrixErrorf(opFactorize, ErrInvalidDimensions)
	}
	o := gatherOptions(opts...)
	a, err := asSparse(m)
	if err != nil {
		return nil, matrixErrorf(opFactorize, err)
	}
	for j := 0; j < n; j++ {
		for _, e := range a.cols[j] {
			if isNonFinite(e.val) {
				return nil, matrixErrorf(opFactorize, fmt.Errorf("row %d, column %d: %w", e.row, j, ErrNaNInf))
			}
		}
	}

	f := &LU{
		n:    n,
		l:    make([][]entry, n),
		u:    make([][]entry, n),
		diag: make([]float64, n),
		piv:  make([]int, n),
	}
	var (
		x       = make([]float64, n) // dense work column, indexed by original row
		mark    = make([]bool, n)
		pinv    = make([]int, n) // original row -> pivot step, -1 while unpivoted
		pattern = make([]int, 0, 16)
		steps   stepHeap
	)
	for i := range pinv {
		pinv[i] = -1
	}
	touch := func(i int) {
		if mark[i] {
			return
		}
		mark[i] = true
		pattern = append(pattern, i)
		if pinv[i] >= 0 {
			heap.Push(&steps, pinv[i])
		}
	}

	var (
		k, p, j     int
		scale, best float64
		v, xj       float64
	)
	for k = 0; k < n; k++ {
		// Stage 2a: scatter A[:,k].
		pattern, scale = pattern[:0], 0
		for _, e := range a.cols[k] {
			touch(e.row)
			x[e.row] = e.val
			scale = math.Max(scale, math.Abs(e.val))
		}
		// Stage 2b: x = L⁻¹·x over the reachable steps. Every row of l[j] is
		// pivoted after j, so pops come out in a valid order.
		for steps.Len() > 0 {
			j = heap.Pop(&steps).(int)
			if xj = x[f.piv[j]]; xj == 0 {
				continue
			}
			for _, e := range f.l[j] {
				touch(e.row)
				x[e.row] -= e.val * xj
			}
		}
		// Stage 2c: split into U and pivot candidates.
		p, best = -1, 0
		for _, i := range pattern {
			v = x[i]
			scale = math.Max(scale, math.Abs(v))
			if pinv[i] >= 0 {
				if v != 0 {
					f.u[k] = append(f.u[k], entry{row: pinv[i], val: v})
				}
				continue
			}
			if mag := math.Abs(v); mag > best || (mag == best && mag > 0 && i < p) {
				p, best = i, mag
			}
		}
		if p < 0 || best <= o.eps*scale {
			return nil, matrixErrorf(opFactorize, fmt.Errorf("column %d: %w", k, ErrSingular))
		}
		// Stage 3: pivot and L column.
		pinv[p], f.piv[k], f.diag[k] = k, p, x[p]
		for _, i := range pattern {
			if pinv[i] < 0 && x[i] != 0 {
				f.l[k] = append(f.l[k], entry{row: i, val: x[i] / f.diag[k]})
			}
		}
		for _, i := range pattern {
			x[i], mark[i] = 0, false
		}
	}

	return f, nil
}

// asSparse returns m itself when it is a *Sparse and a column-compressed copy
// of its non-zeros otherwise.
func asSparse(m Matrix) (*Sparse, error) {
	if s, ok := m.(*Sparse); ok {
		return s, nil
	}
	s, err := NewSparse(m.Rows(), m.Cols(), WithNoValidateNaNInf())
	if err != nil {
		return nil, err
	}
	var i, j int
	var v float64
	for j = 0; j < m.Cols(); j++ {
		for i = 0; i < m.Rows(); i++ {
			if v, err = m.At(i, j); err != nil {
				return nil, err
			}
			if v != 0 {
				s.cols[j] = append(s.cols[j], entry{row: i, val: v})
				s.nnz++
			}
		}
	}

	return s, nil
}

// stepHeap is a min-heap of pivot steps.
type stepHeap []int

func (h stepHeap) Len() int           { return len(h) }
func (h stepHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h stepHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *stepHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *stepHeap) Pop() any {
	old := *h
	v := old[len(old)-1]
	*h = old[:len(old)-1]

	return v
}

// Size returns the dimension n of the factorized matrix.
func (f *LU) Size() int { return f.n }

// NNZ returns the number of stored entries of L and U, diagonal included.
func (f *LU) NNZ() int {
	nnz := f.n
	for k := 0; k < f.n; k++ {
		nnz += len(f.l[k]) + len(f.u[k])
	}

	return nnz
}

// Solve returns x with A·x = b using the stored factors.
// Implementation:
//   - Stage 1: forward substitution with unit-diagonal L, column by column,
//     reading b through piv.
//   - Stage 2: backward substitution with U, column by column.
//
// Errors:
//   - ErrNilMatrix (nil receiver), ErrDimensionMismatch (len(b) != n).
//
// Complexity:
//   - Time O(nnz(L+U)), Space O(n).
func (f *LU) Solve(b []float64) ([]float64, error) {
	if f == nil {
		return nil, matrixErrorf(opSolve, ErrNilMatrix)
	}
	if err := ValidateVecLen(b, f.n); err != nil {
		return nil, matrixErrorf(opSolve, err)
	}
	n := f.n
	w := append([]float64(nil), b...)
	x := make([]float64, n)
	var k int
	var xk float64
	for k = 0; k < n; k++ {
		xk = w[f.piv[k]]
		x[k] = xk
		if xk == 0 {
			continue
		}
		for _, e := range f.l[k] {
			w[e.row] -= e.val * xk
		}
	}
	for k = n - 1; k >= 0; k-- {
		x[k] /= f.diag[k]
		if xk = x[k]; xk == 0 {
			continue
		}
		for _, e := range f.u[k] {
			x[e.row] -= e.val * xk
		}
	}

	return x, nil
}

// SolveRefined solves A·x = b with f (a factorization of a) and applies up to
// RefineSteps rounds of iterative refinement: r = b − A·x, A·d = r, x += d.
// It returns the solution and its relative residual.
//
// Errors:
//   - Any error of Solve or MatVec.
//   - ErrNotConverged if the residual is still above ResidualTolerance after
//     the last sweep; x is returned alongside so callers can fall back.
//
// Complexity:
//   - Time O((steps+1)·(nnz(L+U) + nnz)).
func SolveRefined(a Matrix, f *LU, b []float64, opts ...Option) ([]float64, float64, error) {
	o := gatherOptions(opts...)
	x, err := f.Solve(b)
	if err != nil {
		return nil, 0, matrixErrorf(opRefine, err)
	}
	res, err := RelativeResidual(a, x, b)
	if err != nil {
		return nil, 0, matrixErrorf(opRefine, err)
	}
	var step, i int
	var ax, r, d []float64
	for step = 0; step < o.refineSteps && res > o.residualTol; step++ {
		if ax, err = MatVec(a, x); err != nil {
			return nil, 0, matrixErrorf(opRefine, err)
		}
		r = make([]float64, len(b))
		for i = range b {
			r[i] = b[i] - ax[i]
		}
		if d, err = f.Solve(r); err != nil {
			return nil, 0, matrixErrorf(opRefine, err)
		}
		for i = range x {
			x[i] += d[i]
		}
		if res, err = RelativeResidual(a, x, b); err != nil {
			return nil, 0, matrixErrorf(opRefine, err)
		}
	}
	if res > o.residualTol || math.IsNaN(res) {
		return x, res, matrixErrorf(opRefine, ErrNotConverged)
	}

	return x, res, nil
}

// MatVec computes y = m·x for any Matrix, with a fast path for *Sparse.
func MatVec(m Matrix, x []float64) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	if err := ValidateVecLen(x, m.Cols()); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	if src, ok := m.(*Sparse); ok {
		return src.MulVec(x)
	}
	y := make([]float64, m.Rows())
	var i, j int
	var v float64
	var err error
	for i = 0; i < m.Rows(); i++ {
		for j = 0; j < m.Cols(); j++ {
			if v, err = m.At(i, j); err != nil {
				return nil, matrixErrorf(opMatVec, err)
			}
			y[i] += v * x[j]
		}
	}

	return y, nil
}

// RelativeResidual returns ‖A·x − b‖∞ / (‖A‖∞·‖x‖∞ + ‖b‖∞), or 0 when the
// denominator vanishes (x = b = 0).
func RelativeResidual(a Matrix, x, b []float64) (float64, error) {
	ax, err := MatVec(a, x)
	if err != nil {
		return 0, err
	}
	if err = ValidateVecLen(b, len(ax)); err != nil {
		return 0, err
	}
	var num float64
	for i := range ax {
		if d := math.Abs(ax[i] - b[i]); d > num || math.IsNaN(d) {
			num = d
		}
	}
	den := normInf(a)*vecNormInf(x) + vecNormInf(b)
	if den == 0 {
		return num, nil
	}

	return num / den, nil
}

// normInf returns the maximum absolute row sum of a.
func normInf(a Matrix) float64 {
	if s, ok := a.(*Sparse); ok {
		return s.NormInf()
	}
	var best float64
	var i, j int
	for i = 0; i < a.Rows(); i++ {
		var row float64
		for j = 0; j < a.Cols(); j++ {
			v, _ := a.At(i, j)
			row += math.Abs(v)
		}
		if row > best {
			best = row
		}
	}

	return best
}

// vecNormInf returns max |x_i|.
func vecNormInf(x []float64) float64 {
	var best float64
	for _, v := range x {
		if a := math.Abs(v); a > best {
			best = a
		}
	}

	return best
}
