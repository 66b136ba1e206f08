package montecarlo

import (
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/matrix"
	"github.com/katalvlaran/lvlca/multilca"
	"github.com/katalvlaran/lvlca/parameters"
)

// Results holds the outcome of one Run.
type Results struct {
	Seed            uint64
	Include         Include
	FunctionalUnits []multilca.FunctionalUnit
	Methods         []inventory.MethodID

	// Scores is indexed [iteration][functional unit][method].
	Scores [][][]float64

	// Technosphere and Biosphere hold one copy of A and B per iteration
	// when snapshots are enabled.
	Technosphere []*matrix.Sparse
	Biosphere    []*matrix.Sparse

	// ParameterNames lists every evaluated parameter in (group, name)
	// order; Parameters[it] is aligned with it. Empty unless parameters are
	// sampled.
	ParameterNames []parameters.Name
	Parameters     [][]float64
}

func (r *Results) record(values map[parameters.Name]float64) {
	if r.ParameterNames == nil {
		for n := range values {
			r.ParameterNames = append(r.ParameterNames, n)
		}
		slices.SortFunc(r.ParameterNames, func(a, b parameters.Name) int {
			if a.Group != b.Group {
				return strings.Compare(a.Group, b.Group)
			}
			return strings.Compare(a.Name, b.Name)
		})
	}
	row := make([]float64, len(r.ParameterNames))
	for i, n := range r.ParameterNames {
		row[i] = values[n]
	}
	r.Parameters = append(r.Parameters, row)
}

// Iterations returns the number of recorded iterations.
func (r *Results) Iterations() int { return len(r.Scores) }

// Distribution returns the scores of (u, m) in iteration order.
func (r *Results) Distribution(u, m int) ([]float64, error) {
	if len(r.Scores) == 0 || u < 0 || u >= len(r.FunctionalUnits) || m < 0 || m >= len(r.Methods) {
		return nil, fmt.Errorf("Distribution(%d, %d): %w", u, m, multilca.ErrIndexOutOfRange)
	}
	out := make([]float64, len(r.Scores))
	for it, s := range r.Scores {
		out[it] = s[u][m]
	}

	return out, nil
}

// Summary describes one score distribution.
type Summary struct {
	Mean   float64
	StdDev float64
	Median float64
	// Lower and Upper are the 2.5 and 97.5 percentiles.
	Lower float64
	Upper float64
}

// Summary returns the summary statistics of (u, m).
func (r *Results) Summary(u, m int) (Summary, error) {
	x, err := r.Distribution(u, m)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	s.Mean, s.StdDev = stat.MeanStdDev(x, nil)
	if len(x) == 1 {
		s.StdDev = 0
	}
	slices.Sort(x)
	s.Median = stat.Quantile(0.5, stat.Empirical, x, nil)
	s.Lower = stat.Quantile(0.025, stat.Empirical, x, nil)
	s.Upper = stat.Quantile(0.975, stat.Empirical, x, nil)

	return s, nil
}
