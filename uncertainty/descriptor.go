package uncertainty

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownDistribution indicates an identifier outside the catalogue.
	ErrUnknownDistribution = errors.New("uncertainty: unknown distribution")

	// ErrInvalidParameters indicates a descriptor whose fields do not define
	// a valid distribution of its kind.
	ErrInvalidParameters = errors.New("uncertainty: invalid distribution parameters")

	// ErrInvalidPedigree indicates a pedigree score outside 1..5.
	ErrInvalidPedigree = errors.New("uncertainty: invalid pedigree score")
)

// ID identifies a distribution of the catalogue.
type ID int

// Catalogue identifiers.
const (
	Undefined               ID = 0
	NoUncertainty           ID = 1
	Lognormal               ID = 2
	Normal                  ID = 3
	Uniform                 ID = 4
	Triangular              ID = 5
	Bernoulli               ID = 6
	DiscreteUniform         ID = 7
	Weibull                 ID = 8
	Gamma                   ID = 9
	Beta                    ID = 10
	GeneralizedExtremeValue ID = 11
	StudentsT               ID = 12
)

var idNames = [...]string{
	"undefined", "no uncertainty", "lognormal", "normal", "uniform",
	"triangular", "bernoulli", "discrete uniform", "weibull", "gamma",
	"beta", "generalized extreme value", "student's t",
}

// String returns the human-readable distribution name.
func (id ID) String() string {
	if id < 0 || int(id) >= len(idNames) {
		return fmt.Sprintf("distribution(%d)", int(id))
	}

	return idNames[id]
}

// Valid reports whether id is part of the catalogue.
func (id ID) Valid() bool { return id >= Undefined && id <= StudentsT }

// Descriptor is the raw parameterization of one uncertain value.
type Descriptor struct {
	Type     ID
	Loc      float64
	Scale    float64
	Shape    float64
	Minimum  float64
	Maximum  float64
	Negative bool
}

// New returns a descriptor of kind id with every numeric field NaN.
func New(id ID) Descriptor {
	nan := math.NaN()
	return Descriptor{Type: id, Loc: nan, Scale: nan, Shape: nan, Minimum: nan, Maximum: nan}
}

// Fixed returns a no-uncertainty descriptor for amount.
func Fixed(amount float64) Descriptor {
	d := New(NoUncertainty)
	d.Loc = amount

	return d
}

// NewLognormal builds a lognormal descriptor from a static amount and the
// geometric standard deviation expressed as sigma of the underlying normal.
// The sign of amount is carried by Negative.
func NewLognormal(amount, sigma float64) Descriptor {
	d := New(Lognormal)
	d.Loc = math.Log(math.Abs(amount))
	d.Scale = sigma
	d.Negative = amount < 0

	return d
}

// IsUncertain reports whether sampling can produce something other than the
// static amount.
func (d Descriptor) IsUncertain() bool {
	return d.Type != Undefined && d.Type != NoUncertainty
}

// Amount returns the deterministic value represented by d: the median for
// lognormal, the mode for triangular, the mean otherwise.
func (d Descriptor) Amount() float64 {
	switch d.Type {
	case Lognormal:
		v := math.Exp(d.Loc)
		if d.Negative {
			v = -v
		}
		return v
	case Uniform, DiscreteUniform:
		if !math.IsNaN(d.Loc) {
			return d.Loc
		}
		return (d.Minimum + d.Maximum) / 2
	case Beta:
		lo, hi := d.bounds(0, 1)
		return lo + (hi-lo)*d.Loc/(d.Loc+d.Shape)
	}

	return d.Loc
}

// bounds returns (Minimum, Maximum) with NaN replaced by the defaults.
func (d Descriptor) bounds(lo, hi float64) (float64, float64) {
	if !math.IsNaN(d.Minimum) {
		lo = d.Minimum
	}
	if !math.IsNaN(d.Maximum) {
		hi = d.Maximum
	}

	return lo, hi
}

// hasBounds reports whether a finite minimum or maximum is set.
func (d Descriptor) hasBounds() bool {
	return isFinite(d.Minimum) || isFinite(d.Maximum)
}

func isFinite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func invalid(d Descriptor, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidParameters, d.Type, reason)
}

// Validate checks that d fully specifies a distribution of its kind.
func (d Descriptor) Validate() error {
	if !d.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownDistribution, int(d.Type))
	}
	if isFinite(d.Minimum) && isFinite(d.Maximum) && d.Minimum >= d.Maximum {
		return invalid(d, "minimum must be below maximum")
	}
	switch d.Type {
	case Undefined, NoUncertainty:
		if !isFinite(d.Loc) {
			return invalid(d, "loc must be finite")
		}
	case Lognormal, Normal:
		if !isFinite(d.Loc) {
			return invalid(d, "loc must be finite")
		}
		if !isFinite(d.Scale) || d.Scale <= 0 {
			return invalid(d, "scale must be positive")
		}
	case Uniform:
		if !isFinite(d.Minimum) || !isFinite(d.Maximum) {
			return invalid(d, "minimum and maximum are required")
		}
	case Triangular:
		if !isFinite(d.Minimum) || !isFinite(d.Maximum) || !isFinite(d.Loc) {
			return invalid(d, "minimum, mode and maximum are required")
		}
		if d.Loc < d.Minimum || d.Loc > d.Maximum {
			return invalid(d, "mode outside [minimum, maximum]")
		}
	case Bernoulli:
		if p := d.probability(); !(p >= 0 && p <= 1) {
			return invalid(d, "probability outside [0, 1]")
		}
	case DiscreteUniform:
		if !isFinite(d.Maximum) {
			return invalid(d, "maximum is required")
		}
		if lo, hi := d.bounds(0, d.Maximum); hi <= lo {
			return invalid(d, "maximum must exceed minimum")
		}
	case Weibull:
		if !isFinite(d.Shape) || d.Shape <= 0 {
			return invalid(d, "shape must be positive")
		}
		if !math.IsNaN(d.Scale) && d.Scale <= 0 {
			return invalid(d, "scale must be positive")
		}
	case Gamma:
		if !isFinite(d.Shape) || d.Shape <= 0 || !isFinite(d.Scale) || d.Scale <= 0 {
			return invalid(d, "shape and scale must be positive")
		}
	case Beta:
		if !isFinite(d.Loc) || d.Loc <= 0 || !isFinite(d.Shape) || d.Shape <= 0 {
			return invalid(d, "alpha (loc) and beta (shape) must be positive")
		}
	case GeneralizedExtremeValue:
		if !isFinite(d.Loc) || !isFinite(d.Shape) {
			return invalid(d, "loc and shape must be finite")
		}
		if !isFinite(d.Scale) || d.Scale <= 0 {
			return invalid(d, "scale must be positive")
		}
	case StudentsT:
		if !isFinite(d.Shape) || d.Shape <= 0 {
			return invalid(d, "degrees of freedom (shape) must be positive")
		}
		if !math.IsNaN(d.Scale) && d.Scale <= 0 {
			return invalid(d, "scale must be positive")
		}
	}

	return nil
}

// probability returns the Bernoulli success probability, rescaling loc into
// [0, 1] when both bounds are given.
func (d Descriptor) probability() float64 {
	if isFinite(d.Minimum) && isFinite(d.Maximum) {
		return (d.Loc - d.Minimum) / (d.Maximum - d.Minimum)
	}

	return d.Loc
}
