// SPDX-License-Identifier: MIT

// Package matrix provides the linear-algebra primitives used by the LCA core.
//
// The matrix package provides:
//
//   - Sparse: a column-compressed matrix whose structure can be extended and
//     whose values can be mutated in place (scenario overlays, Monte-Carlo
//     resampling). Every effective mutation bumps Version(), which callers use
//     as a dirty flag for cached factorizations.
//   - LU: a left-looking sparse factorization with partial pivoting and a
//     column-relative pivot test, forward/backward substitution and optional
//     iterative refinement.
//
// All kernels are deterministic: loops run in fixed index order and no map
// iteration leaks into numeric results. Public functions return sentinel
// errors (see errors.go) and never panic on user input.
//
// Complexity quicksheet:
//   - Sparse.At/Set: O(log k) for k non-zeros in the column.
//   - Sparse.MulVec: O(nnz).
//   - Factorize: memory O(nnz(L+U)); Solve: O(nnz(L+U)).
package matrix
