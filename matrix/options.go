// SPDX-License-Identifier: MIT

// Package matrix: functional configuration for numeric policy and solvers.
// This file defines:
//   - Option / Options (functional options with internal state),
//   - documented defaults (constants),
//   - WithX constructors with strong validation (panic on nonsensical values),
//   - gatherOptions helper (internal) that enforces invariants.
//
// Design goals:
//   - Deterministic behavior: no global state, no implicit randomness.
//   - No dead switches: each flag impacts behavior and is covered by tests.
//   - Safe by construction: panic only on invalid parameters (programmer error).
package matrix

import "math"

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultEpsilon is the relative pivot tolerance used by Factorize: a pivot
	// whose magnitude is below eps·max|A| is treated as zero.
	DefaultEpsilon = 1e-14

	// DefaultValidateNaNInf toggles strict finite-value validation on Set.
	DefaultValidateNaNInf = true

	// DefaultRefineSteps bounds the number of iterative refinement sweeps
	// performed by SolveRefined after the initial substitution.
	DefaultRefineSteps = 3

	// DefaultResidualTolerance is the relative residual
	// ‖A·x − b‖∞ / (‖A‖∞·‖x‖∞ + ‖b‖∞) accepted by SolveRefined.
	DefaultResidualTolerance = 1e-10
)

// ---------- Internal panic messages (no magic strings) ----------

const (
	panicEpsilonInvalid     = "matrix: WithEpsilon: eps must be finite, non-negative"
	panicRefineStepsInvalid = "matrix: WithRefineSteps: steps must be >= 0"
	panicResidualInvalid    = "matrix: WithResidualTolerance: tol must be finite, positive"
)

// Option mutates internal options. Safe to apply repeatedly (idempotent).
type Option func(*Options)

// Options stores the effective configuration after applying Option setters.
// Fields are unexported; public entry points accept `...Option`.
type Options struct {
	eps            float64 // >= 0; DefaultEpsilon
	validateNaNInf bool    // DefaultValidateNaNInf
	refineSteps    int     // >= 0; DefaultRefineSteps
	residualTol    float64 // > 0; DefaultResidualTolerance
}

// WithEpsilon sets the relative pivot tolerance.
// Implementation:
//   - Stage 1: validate eps is finite and ≥ 0.
//   - Stage 2: return a setter that writes eps into Options.
//
// Errors:
//   - Panics with a stable message when eps is invalid.
//
// Complexity:
//   - Time O(1), Space O(1).
func WithEpsilon(eps float64) Option {
	if isNonFinite(eps) || eps < 0 {
		panic(panicEpsilonInvalid)
	}

	return func(o *Options) { o.eps = eps }
}

// WithValidateNaNInf enables strict finite-value validation (default).
func WithValidateNaNInf() Option {
	return func(o *Options) { o.validateNaNInf = true }
}

// WithNoValidateNaNInf disables NaN/Inf validation on newly created matrices.
//
// Notes:
//   - Scenario overlays never write NaN (NaN cells are skipped upstream), so
//     this is only needed when callers deliberately stage non-finite values.
func WithNoValidateNaNInf() Option {
	return func(o *Options) { o.validateNaNInf = false }
}

// WithRefineSteps bounds the iterative refinement sweeps of SolveRefined.
// Zero disables refinement (the first substitution result is returned if its
// residual is acceptable).
func WithRefineSteps(steps int) Option {
	if steps < 0 {
		panic(panicRefineStepsInvalid)
	}

	return func(o *Options) { o.refineSteps = steps }
}

// WithResidualTolerance sets the accepted relative residual of SolveRefined.
func WithResidualTolerance(tol float64) Option {
	if isNonFinite(tol) || tol <= 0 {
		panic(panicResidualInvalid)
	}

	return func(o *Options) { o.residualTol = tol }
}

// NewOptions resolves opts over the documented defaults. Exposed so that
// higher layers (lca.Solver) can validate and cache a configuration once.
func NewOptions(opts ...Option) Options { return gatherOptions(opts...) }

// Epsilon returns the effective pivot tolerance.
func (o Options) Epsilon() float64 { return o.eps }

// RefineSteps returns the effective refinement bound.
func (o Options) RefineSteps() int { return o.refineSteps }

// ResidualTolerance returns the effective residual tolerance.
func (o Options) ResidualTolerance() float64 { return o.residualTol }

// defaultOptions returns the zero-configuration policy.
func defaultOptions() Options {
	return Options{
		eps:            DefaultEpsilon,
		validateNaNInf: DefaultValidateNaNInf,
		refineSteps:    DefaultRefineSteps,
		residualTol:    DefaultResidualTolerance,
	}
}

// gatherOptions applies user options left-to-right over defaults.
// Nil options are skipped so callers can pass conditional setters.
func gatherOptions(user ...Option) Options {
	o := defaultOptions()
	for _, fn := range user {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}

// isNonFinite reports NaN or ±Inf.
func isNonFinite(x float64) bool { return math.IsNaN(x) || math.IsInf(x, 0) }
