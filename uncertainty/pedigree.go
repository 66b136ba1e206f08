package uncertainty

import (
	"fmt"
	"math"
)

// DefaultBasicVariance is the log-variance of the basic uncertainty used
// when a pedigree-only descriptor does not specify one.
const DefaultBasicVariance = 0.0006

// Pedigree holds the six data-quality scores, each in 1..5:
// reliability, completeness, temporal correlation, geographical
// correlation, further technological correlation and sample size.
type Pedigree [6]int

// pedigreeVariances[f][score-1] is the log-variance contribution of factor f.
var pedigreeVariances = [6][5]float64{
	{0, 0.0006, 0.002, 0.008, 0.04},   // reliability
	{0, 0.0001, 0.0006, 0.002, 0.008}, // completeness
	{0, 0.0002, 0.002, 0.008, 0.04},   // temporal correlation
	{0, 0.000025, 0.0001, 0.0006, 0.002},
	{0, 0.0006, 0.008, 0.04, 0.12},
	{0, 0.0001, 0.0006, 0.002, 0.008}, // sample size
}

// Validate checks that every score lies in 1..5.
func (p Pedigree) Validate() error {
	for i, s := range p {
		if s < 1 || s > 5 {
			return fmt.Errorf("%w: factor %d has score %d", ErrInvalidPedigree, i+1, s)
		}
	}

	return nil
}

// PedigreeSigma returns sqrt(basic + Σ table[f][score]), the sigma of the
// underlying normal of a lognormal approximation. A NaN or negative basic
// variance is replaced by DefaultBasicVariance.
func PedigreeSigma(p Pedigree, basicVariance float64) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if math.IsNaN(basicVariance) || basicVariance < 0 {
		basicVariance = DefaultBasicVariance
	}
	total := basicVariance
	for f, s := range p {
		total += pedigreeVariances[f][s-1]
	}

	return math.Sqrt(total), nil
}

// FromPedigree builds a lognormal descriptor around amount with the sigma
// implied by p.
func FromPedigree(amount float64, p Pedigree, basicVariance float64) (Descriptor, error) {
	sigma, err := PedigreeSigma(p, basicVariance)
	if err != nil {
		return Descriptor{}, err
	}
	if amount == 0 {
		return Fixed(0), nil
	}

	return NewLognormal(amount, sigma), nil
}
