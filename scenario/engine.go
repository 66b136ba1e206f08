package scenario

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/lvlca/inventory"
)

// Engine validates scenario tables against an inventory.
type Engine struct {
	prov inventory.Provider
	o    options
}

// NewEngine returns an Engine reading nodes and exchanges from prov.
func NewEngine(prov inventory.Provider, opts ...Option) *Engine {
	return &Engine{prov: prov, o: gather(opts)}
}

// Load reads, prepares and combines the tables at paths. sheet selects the
// Excel worksheet ("" = first).
func (e *Engine) Load(ctx context.Context, mode Mode, sheet string, paths ...string) (*Table, error) {
	tables := make([]*Table, len(paths))
	for i, p := range paths {
		t, err := ReadFile(p, sheet)
		if err != nil {
			return nil, fmt.Errorf("Load %s: %w", p, err)
		}
		if tables[i], err = e.Prepare(ctx, t); err != nil {
			return nil, fmt.Errorf("Load %s: %w", p, err)
		}
	}

	return e.Combine(mode, tables...)
}

// Prepare returns a validated copy of t:
//   - missing keys are resolved from node metadata (relinking unknown
//     databases when a relinker is installed);
//   - missing flow types are inferred from the key pair;
//   - duplicate (from, to, type) rows collapse to the last one, after the
//     confirm policy accepts them;
//   - technosphere self-loops are merged into their production row;
//   - a table without any scenario value fails with
//     ErrExchangeDataNotFound.
//
// t itself is left untouched.
func (e *Engine) Prepare(ctx context.Context, t *Table) (*Table, error) {
	out := t.Clone()
	if err := e.fillKeys(ctx, out); err != nil {
		return nil, fmt.Errorf("Prepare %s: %w", t.Source, err)
	}
	e.inferTypes(out)
	if err := e.dedupe(out); err != nil {
		return nil, fmt.Errorf("Prepare %s: %w", t.Source, err)
	}
	if err := e.mergeSelfLoops(out); err != nil {
		return nil, fmt.Errorf("Prepare %s: %w", t.Source, err)
	}
	if err := e.checkData(out); err != nil {
		return nil, fmt.Errorf("Prepare %s: %w", t.Source, err)
	}
	e.o.log.Debug("prepared scenario table", "source", t.Source, "rows", len(out.Rows), "scenarios", len(out.Scenarios))

	return out, nil
}

// inferTypes fills empty flow types: a biosphere input is "biosphere",
// a key feeding itself is "production", anything else "technosphere".
func (e *Engine) inferTypes(t *Table) {
	bio := e.prov.Biosphere()
	for i := range t.Rows {
		r := &t.Rows[i]
		if r.FlowType != "" {
			continue
		}
		switch {
		case r.From.Key.Database == bio:
			r.FlowType = inventory.Biosphere
		case r.From.Key == r.To.Key:
			r.FlowType = inventory.Production
		default:
			r.FlowType = inventory.Technosphere
		}
	}
}

// dedupe keeps one row per triple: the values of the last occurrence at the
// position of the first.
func (e *Engine) dedupe(t *Table) error {
	first := make(map[triple]int, len(t.Rows))
	var dups []Offender
	rows := t.Rows[:0:0]
	for _, r := range t.Rows {
		k := r.triple()
		if i, ok := first[k]; ok {
			dups = append(dups, Offender{Line: r.Line, Detail: fmt.Sprintf("%v → %v (%s) repeats line %d", k.from, k.to, k.kind, rows[i].Line)})
			line := rows[i].Line
			rows[i] = r
			rows[i].Line = line
			continue
		}
		first[k] = len(rows)
		rows = append(rows, r)
	}
	if len(dups) == 0 {
		return nil
	}
	if err := e.o.warn(newOffenderError(ErrDuplicateExchange, dups)); err != nil {
		return err
	}
	t.Rows = rows

	return nil
}

// mergeSelfLoops folds every technosphere row with from == to into the
// production row of the same activity. The merged value is
// prod / (prod + tech); a missing side falls back to the stored amounts.
func (e *Engine) mergeSelfLoops(t *Table) error {
	prodAt := make(map[inventory.Key]int)
	for i, r := range t.Rows {
		if r.FlowType == inventory.Production && r.From.Key == r.To.Key {
			prodAt[r.To.Key] = i
		}
	}
	drop := make(map[int]bool)
	merged := 0
	for i, r := range t.Rows {
		if r.FlowType != inventory.Technosphere || r.From.Key != r.To.Key {
			continue
		}
		baseProd, baseLoop, err := e.storedSelfLoop(r.To.Key)
		if err != nil {
			return err
		}
		prod := nanRow(len(t.Scenarios))
		j, ok := prodAt[r.To.Key]
		if ok {
			prod = t.Rows[j].Values
		}
		values := make([]float64, len(t.Scenarios))
		for s := range values {
			p, l := prod[s], r.Values[s]
			switch {
			case math.IsNaN(p) && math.IsNaN(l):
				values[s] = math.NaN()
				continue
			case math.IsNaN(p):
				p = baseProd
			case math.IsNaN(l):
				l = baseLoop
			}
			values[s] = p / (p + l)
		}
		if ok {
			t.Rows[j].Values = values
			drop[i] = true
		} else {
			// Synthesize the production row in place of the loop.
			t.Rows[i].FlowType = inventory.Production
			t.Rows[i].Values = values
			prodAt[r.To.Key] = i
		}
		merged++
	}
	if merged == 0 {
		return nil
	}
	rows := t.Rows[:0:0]
	for i, r := range t.Rows {
		if !drop[i] {
			rows = append(rows, r)
		}
	}
	t.Rows = rows
	e.o.log.Debug("merged technosphere self-loops", "source", t.Source, "merged", merged)

	return nil
}

// storedSelfLoop returns the stored production amount of key (1 when it has
// no production exchange) and its stored technosphere self-loop amount.
func (e *Engine) storedSelfLoop(key inventory.Key) (prod, loop float64, err error) {
	prods, err := e.prov.Exchanges(key, inventory.ProductionOnly)
	if err != nil {
		return 0, 0, err
	}
	for _, x := range prods {
		if x.Input == key {
			prod += x.Amount
		}
	}
	if len(prods) == 0 {
		prod = 1
	}
	techs, err := e.prov.Exchanges(key, inventory.TechnosphereOnly)
	if err != nil {
		return 0, 0, err
	}
	for _, x := range techs {
		if x.Input == key && x.Type == inventory.Technosphere {
			loop += x.Amount
		}
	}

	return prod, loop, nil
}

func (e *Engine) checkData(t *Table) error {
	empty := t.EmptyColumns()
	if len(t.Scenarios) == 0 || len(empty) == len(t.Scenarios) {
		return newOffenderError(ErrExchangeDataNotFound, []Offender{{Detail: t.Source}})
	}
	if len(empty) > 0 {
		e.o.log.Warn("scenario columns without values", "source", t.Source, "scenarios", empty)
	}

	return nil
}
