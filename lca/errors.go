package lca

import "errors"

var (
	// ErrSingularMatrix indicates a technosphere matrix that cannot be
	// inverted.
	ErrSingularMatrix = errors.New("lca: singular technosphere matrix")

	// ErrNegativeSupplyWithInfinity indicates a supply vector with NaN or
	// infinite entries, the signature of an ill-posed demand.
	ErrNegativeSupplyWithInfinity = errors.New("lca: supply vector is not finite")
)
