package multilca

import (
	"fmt"

	"github.com/katalvlaran/lvlca/assembly"
	"github.com/katalvlaran/lvlca/inventory"
)

// Results holds the dense tensors of a run. Index order is
// [functional unit][method][scenario][...] for scores and contributions
// and [functional unit][scenario][activity] for supply. A run without
// scenarios has exactly one scenario column named "".
type Results struct {
	FunctionalUnits []FunctionalUnit
	Methods         []inventory.MethodID
	Units           []string // method units, aligned with Methods
	Scenarios       []string

	Activities assembly.Index
	Flows      assembly.Index

	Scores         [][][]float64
	ProcessContrib [][][][]float64
	FlowContrib    [][][][]float64
	Supply         [][][]float64
}

func newResults(s Setup, units, scenarios []string, m *assembly.Matrices) *Results {
	U, M, S := len(s.Inv), len(s.IA), len(scenarios)
	r := &Results{
		FunctionalUnits: s.Inv,
		Methods:         s.IA,
		Units:           units,
		Scenarios:       scenarios,
		Activities:      m.Activities,
		Flows:           m.Flows,
		Scores:          make([][][]float64, U),
		ProcessContrib:  make([][][][]float64, U),
		FlowContrib:     make([][][][]float64, U),
		Supply:          make([][][]float64, U),
	}
	for u := range U {
		r.Scores[u] = make([][]float64, M)
		r.ProcessContrib[u] = make([][][]float64, M)
		r.FlowContrib[u] = make([][][]float64, M)
		r.Supply[u] = make([][]float64, S)
		for k := range M {
			r.Scores[u][k] = make([]float64, S)
			r.ProcessContrib[u][k] = make([][]float64, S)
			r.FlowContrib[u][k] = make([][]float64, S)
		}
	}

	return r
}

// Dims returns (U, M, S).
func (r *Results) Dims() (int, int, int) {
	return len(r.FunctionalUnits), len(r.Methods), len(r.Scenarios)
}

// Score returns scores[u][m][s].
func (r *Results) Score(u, m, s int) (float64, error) {
	if err := r.check(u, m, s); err != nil {
		return 0, err
	}

	return r.Scores[u][m][s], nil
}

// ScoreTable returns the U×M score matrix of scenario s.
func (r *Results) ScoreTable(s int) ([][]float64, error) {
	if err := r.check(0, 0, s); err != nil {
		return nil, err
	}
	out := make([][]float64, len(r.Scores))
	for u := range r.Scores {
		out[u] = make([]float64, len(r.Scores[u]))
		for m := range r.Scores[u] {
			out[u][m] = r.Scores[u][m][s]
		}
	}

	return out, nil
}

// ScenarioIndex returns the position of a scenario name.
func (r *Results) ScenarioIndex(name string) (int, bool) {
	for i, n := range r.Scenarios {
		if n == name {
			return i, true
		}
	}

	return -1, false
}

func (r *Results) check(u, m, s int) error {
	U, M, S := r.Dims()
	if u < 0 || u >= U || m < 0 || m >= M {
		return fmt.Errorf("index (%d, %d) outside %dx%d: %w", u, m, U, M, ErrIndexOutOfRange)
	}
	if s < 0 || s >= S {
		return fmt.Errorf("scenario %d outside [0, %d): %w", s, S, ErrIndexOutOfRange)
	}

	return nil
}
