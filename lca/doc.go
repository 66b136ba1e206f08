// Package lca solves the LCA equations for one technosphere/biosphere pair:
//
//	supply        = A⁻¹ · demand
//	inventory     = B · diag(supply)
//	characterized = diag(c) · inventory
//	score         = Σ characterized
//
// A Solver factorizes A lazily and keeps the factors until A's mutation
// counter (matrix.Sparse.Version) moves or Invalidate is called, so changing
// the demand is cheap (RedoLCI) while scenario overlays and Monte-Carlo
// resampling trigger exactly one refactorization each.
//
// A is factorized sparsely and solutions are polished by iterative
// refinement. When the sparse factorization rejects a pivot, or refinement
// does not reach the residual target, matrices up to the dense fallback limit
// are refactorized with gonum's LAPACK-backed LU; ErrSingularMatrix is
// reported if its condition estimate exceeds mat.ConditionTolerance.
package lca
