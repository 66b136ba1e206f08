package lca

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvlca/matrix"
)

// Option configures a Solver.
type Option func(*Solver)

// WithMatrixOptions sets the numeric policy of factorization and refinement.
func WithMatrixOptions(opts ...matrix.Option) Option {
	return func(s *Solver) { s.opts = append(s.opts, opts...) }
}

// DefaultDenseFallbackLimit bounds the order of technosphere matrices that may
// be refactorized densely when the sparse factorization gives up (8·n² bytes).
const DefaultDenseFallbackLimit = 4096

// WithDenseFallbackLimit sets the largest n for which the dense LAPACK
// factorization is tried after the sparse one fails. Zero disables it.
func WithDenseFallbackLimit(n int) Option {
	return func(s *Solver) {
		if n >= 0 {
			s.denseLimit = n
		}
	}
}

// WithLogger sets the logger used for refactorization traces.
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.log = l
		}
	}
}

// Solver owns the factorization cache of one technosphere matrix.
// It is not safe for concurrent use.
type Solver struct {
	a, b       *matrix.Sparse
	opts       []matrix.Option
	log        *slog.Logger
	denseLimit int

	lu      *matrix.LU
	dense   *mat.LU
	version uint64
	valid   bool
	count   int
}

// NewSolver binds a solver to A (n×n) and B (m×n). The matrices stay owned
// by the caller, who may mutate them between solves.
//
// Errors:
//   - matrix.ErrNilMatrix, matrix.ErrNonSquare, matrix.ErrDimensionMismatch.
func NewSolver(a, b *matrix.Sparse, opts ...Option) (*Solver, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("NewSolver: %w", matrix.ErrNilMatrix)
	}
	if err := matrix.ValidateSquare(a); err != nil {
		return nil, fmt.Errorf("NewSolver: %w", err)
	}
	if b.Cols() != a.Cols() {
		return nil, fmt.Errorf("NewSolver: B has %d columns, A %d: %w", b.Cols(), a.Cols(), matrix.ErrDimensionMismatch)
	}
	s := &Solver{a: a, b: b, log: slog.Default().With("component", "lca"), denseLimit: DefaultDenseFallbackLimit}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Technosphere returns A.
func (s *Solver) Technosphere() *matrix.Sparse { return s.a }

// Biosphere returns B.
func (s *Solver) Biosphere() *matrix.Sparse { return s.b }

// Invalidate drops the cached factorization.
func (s *Solver) Invalidate() {
	s.valid = false
	s.lu, s.dense = nil, nil
}

// Factorizations returns how many times A has been factorized.
func (s *Solver) Factorizations() int { return s.count }

func (s *Solver) factorize() error {
	if s.valid && s.version == s.a.Version() {
		return nil
	}
	s.Invalidate()
	lu, err := matrix.Factorize(s.a, s.opts...)
	switch {
	case err == nil:
		s.lu = lu
		s.log.Debug("factorized technosphere", "n", s.a.Rows(), "nnz", s.a.NNZ(), "nnz_lu", lu.NNZ(), "count", s.count+1)
	case errors.Is(err, matrix.ErrSingular):
		if derr := s.factorizeDense(); derr != nil {
			s.log.Debug("dense factorization rejected", "err", derr)
			return fmt.Errorf("%w: %w", ErrSingularMatrix, err)
		}
		s.log.Warn("sparse pivot below tolerance, using dense factorization", "n", s.a.Rows(), "cond", s.dense.Cond())
	default:
		return err
	}
	s.version, s.valid = s.a.Version(), true
	s.count++

	return nil
}

// factorizeDense factorizes A with gonum's LAPACK-backed LU and accepts the
// result only if its condition number is below mat.ConditionTolerance.
func (s *Solver) factorizeDense() error {
	n := s.a.Rows()
	if n > s.denseLimit {
		return fmt.Errorf("n = %d above dense fallback limit %d", n, s.denseLimit)
	}
	d := mat.NewDense(n, n, nil)
	s.a.Do(func(i, j int, v float64) { d.Set(i, j, v) })
	lu := new(mat.LU)
	lu.Factorize(d)
	if c := lu.Cond(); math.IsNaN(c) || c > mat.ConditionTolerance {
		return mat.Condition(c)
	}
	s.dense = lu

	return nil
}

// RedoLCI returns the supply vector for demand, refactorizing A only if it
// changed since the last solve. When refinement of the sparse solution does
// not converge the dense factorization is used instead.
//
// Errors:
//   - ErrSingularMatrix, ErrNegativeSupplyWithInfinity,
//     matrix.ErrDimensionMismatch, matrix.ErrNotConverged.
func (s *Solver) RedoLCI(demand []float64) ([]float64, error) {
	if err := s.factorize(); err != nil {
		return nil, fmt.Errorf("RedoLCI: %w", err)
	}
	var (
		x   []float64
		res float64
		err error
	)
	if s.lu != nil {
		x, res, err = matrix.SolveRefined(s.a, s.lu, demand, s.opts...)
		if errors.Is(err, matrix.ErrNotConverged) {
			s.log.Debug("refinement did not converge, using dense fallback", "residual", res)
			if s.dense == nil {
				if derr := s.factorizeDense(); derr != nil {
					return nil, fmt.Errorf("RedoLCI: %w (dense fallback: %w)", err, derr)
				}
			}
			x, err = s.denseSolve(demand)
		}
	} else {
		x, err = s.denseSolve(demand)
	}
	if err != nil {
		return nil, fmt.Errorf("RedoLCI: %w", err)
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("RedoLCI: activity %d: %w", i, ErrNegativeSupplyWithInfinity)
		}
	}

	return x, nil
}

// denseSolve solves A·x = b with the dense factorization.
func (s *Solver) denseSolve(b []float64) ([]float64, error) {
	n := s.a.Rows()
	if err := matrix.ValidateVecLen(b, n); err != nil {
		return nil, err
	}
	rhs := mat.NewVecDense(n, append([]float64(nil), b...))
	var x mat.VecDense
	if err := s.dense.SolveVecTo(&x, false, rhs); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: %w", ErrSingularMatrix, err)
		}
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = x.AtVec(i)
	}

	return out, nil
}

// Inventory returns B·diag(supply).
func (s *Solver) Inventory(supply []float64) (*matrix.Sparse, error) {
	inv, err := s.b.ScaleColumns(supply)
	if err != nil {
		return nil, fmt.Errorf("Inventory: %w", err)
	}

	return inv, nil
}

// Characterize returns diag(c)·inventory.
func Characterize(inventory *matrix.Sparse, c []float64) (*matrix.Sparse, error) {
	out, err := inventory.ScaleRows(c)
	if err != nil {
		return nil, fmt.Errorf("Characterize: %w", err)
	}

	return out, nil
}

// Contribution is the reduction of one characterized inventory.
type Contribution struct {
	Score   float64
	Process []float64 // column sums, aligned with activities
	Flow    []float64 // row sums, aligned with biosphere flows
}

// Contribute computes score and both contribution axes of
// diag(c)·B·diag(supply) in one pass over B, without materializing the
// characterized inventory.
func (s *Solver) Contribute(supply, c []float64) (Contribution, error) {
	if len(supply) != s.b.Cols() || len(c) != s.b.Rows() {
		return Contribution{}, fmt.Errorf("Contribute: %w", matrix.ErrDimensionMismatch)
	}
	out := Contribution{
		Process: make([]float64, s.b.Cols()),
		Flow:    make([]float64, s.b.Rows()),
	}
	s.b.Do(func(i, j int, v float64) {
		x := c[i] * v * supply[j]
		out.Process[j] += x
		out.Flow[i] += x
	})
	out.Score = floats.Sum(out.Process)

	return out, nil
}

// Result bundles the outputs of Calculate.
type Result struct {
	Supply        []float64
	Inventory     *matrix.Sparse
	Characterized *matrix.Sparse
	Score         float64
}

// Calculate runs the full chain for one demand and one characterization
// vector, materializing the inventory matrices.
func (s *Solver) Calculate(demand, c []float64) (*Result, error) {
	supply, err := s.RedoLCI(demand)
	if err != nil {
		return nil, err
	}
	inv, err := s.Inventory(supply)
	if err != nil {
		return nil, err
	}
	ch, err := Characterize(inv, c)
	if err != nil {
		return nil, err
	}

	return &Result{Supply: supply, Inventory: inv, Characterized: ch, Score: ch.Sum()}, nil
}
