package scenario

import (
	"fmt"
	"math"
	"slices"

	"github.com/katalvlaran/lvlca/assembly"
	"github.com/katalvlaran/lvlca/inventory"
)

// Entry is the matrix target of one overlay cell.
type Entry struct {
	Kind     assembly.Kind
	Row, Col int
}

// Plan is a table bound to assembled matrices. It implements the overlay
// contract of multilca.ScenarioMLCA.
//
// Entries and the dense values matrix (entries × scenarios) are computed
// on the first Apply for a given *assembly.Matrices and reused afterwards.
// Values are stored with the sign they take in the matrix.
type Plan struct {
	table *Table
	o     options

	bound   *assembly.Matrices
	entries []Entry
	values  [][]float64
	dropped int
}

// NewPlan returns a plan over a prepared (or combined) table.
func NewPlan(t *Table, opts ...Option) *Plan {
	return &Plan{table: t, o: gather(opts)}
}

// Scenarios returns the scenario names of the table.
func (p *Plan) Scenarios() []string { return slices.Clone(p.table.Scenarios) }

// Table returns the table behind the plan.
func (p *Plan) Table() *Table { return p.table }

// Bind computes the entries for m. Rows whose endpoints are outside the
// assembled matrices are dropped with a warning. Rows landing on the same
// cell merge whatever their flow type (a substitution and a technosphere
// row between the same pair both hit one A cell): in table order, a later
// row overrides an earlier one where not NaN.
func (p *Plan) Bind(m *assembly.Matrices) error {
	if p.bound == m {
		return nil
	}
	S := len(p.table.Scenarios)
	cells := make(map[Entry]int)
	p.entries, p.values, p.dropped = nil, nil, 0
	var (
		outside []Offender
		merged  int
	)
	for _, r := range p.table.Rows {
		if len(r.Values) != S {
			return fmt.Errorf("Bind: line %d has %d values for %d scenarios", r.Line, len(r.Values), S)
		}
		en, sign, ok := target(r, m)
		if !ok {
			outside = append(outside, Offender{Line: r.Line, Detail: fmt.Sprintf("%v → %v (%s)", r.From.Key, r.To.Key, r.FlowType)})
			continue
		}
		i, seen := cells[en]
		if !seen {
			i = len(p.entries)
			cells[en] = i
			p.entries = append(p.entries, en)
			p.values = append(p.values, nanRow(S))
		} else {
			merged++
		}
		for s, v := range r.Values {
			if !math.IsNaN(v) {
				p.values[i][s] = sign * v
			}
		}
	}
	if merged > 0 {
		p.o.log.Debug("scenario rows merged onto shared cells", "rows", merged)
	}
	p.dropped = len(outside)
	if len(outside) > 0 {
		w := newOffenderError(ErrExchangeNotFound, outside)
		p.o.log.Warn("scenario rows outside the assembled databases dropped", "total", w.Total, "sample", w.Offenders)
	}
	p.bound = m

	return nil
}

// target returns the cell of r and the sign its values take there:
// technosphere inputs are negative in A.
func target(r Row, m *assembly.Matrices) (Entry, float64, bool) {
	col, ok := m.Activities.Get(r.To.Key)
	if !ok {
		return Entry{}, 0, false
	}
	if r.FlowType == inventory.Biosphere {
		row, ok := m.Flows.Get(r.From.Key)
		return Entry{Kind: assembly.Biosphere, Row: row, Col: col}, 1, ok
	}
	row, ok := m.Products.Get(r.From.Key)
	sign := 1.0
	if r.FlowType == inventory.Technosphere {
		sign = -1
	}

	return Entry{Kind: assembly.Technosphere, Row: row, Col: col}, sign, ok
}

// Entries returns the bound entries, in table order.
func (p *Plan) Entries() []Entry { return slices.Clone(p.entries) }

// Dropped returns the number of rows left out by the last Bind.
func (p *Plan) Dropped() int { return p.dropped }

// Apply sets every entry to its value in scenario s, or to the assembled
// base value where the table has NaN. Applying is idempotent and does not
// depend on the previously applied scenario. It reports whether A changed.
func (p *Plan) Apply(s int, m *assembly.Matrices) (bool, error) {
	if s < 0 || s >= len(p.table.Scenarios) {
		return false, fmt.Errorf("Apply(%d): scenario out of range [0,%d)", s, len(p.table.Scenarios))
	}
	if err := p.Bind(m); err != nil {
		return false, err
	}

	return p.scatter(m, func(i int, en Entry) float64 {
		if v := p.values[i][s]; !math.IsNaN(v) {
			return v
		}

		return m.Base(en.Kind, en.Row, en.Col)
	})
}

// Restore sets every entry back to its assembled value.
func (p *Plan) Restore(m *assembly.Matrices) (bool, error) {
	if err := p.Bind(m); err != nil {
		return false, err
	}

	return p.scatter(m, func(_ int, en Entry) float64 { return m.Base(en.Kind, en.Row, en.Col) })
}

func (p *Plan) scatter(m *assembly.Matrices, value func(i int, en Entry) float64) (bool, error) {
	before := m.Technosphere.Version()
	for i, en := range p.entries {
		if err := m.Matrix(en.Kind).Set(en.Row, en.Col, value(i, en)); err != nil {
			return false, fmt.Errorf("scenario overlay: %w", err)
		}
	}

	return m.Technosphere.Version() != before, nil
}
