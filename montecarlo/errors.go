package montecarlo

import "errors"

var (
	// ErrExchangeErrorValues indicates an uncertainty descriptor that cannot
	// be sampled, or a draw that is not a finite number.
	ErrExchangeErrorValues = errors.New("montecarlo: invalid uncertainty values")

	// ErrNoIterations indicates a run with fewer than one iteration.
	ErrNoIterations = errors.New("montecarlo: iteration count must be positive")
)
