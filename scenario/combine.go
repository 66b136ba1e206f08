package scenario

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Mode selects how several tables form one scenario axis.
type Mode string

const (
	// Product crosses the scenario axes of every table.
	Product Mode = "product"
	// Addition keeps the scenario names present in every table.
	Addition Mode = "addition"
)

// NameSeparator joins the per-table names of a product scenario.
const NameSeparator = " :: "

// ParseMode parses "product" or "addition".
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Product, Addition:
		return m, nil
	}

	return "", fmt.Errorf("scenario: unknown combine mode %q", s)
}

// Combine merges prepared tables into one. A single table is returned as a
// copy. In both modes rows are unioned by (from, to, type) in first
// appearance order and, within one combined scenario, a later table
// overrides an earlier one wherever its value is not NaN.
//
// Product scenarios enumerate the cartesian product with the first table
// varying slowest, named "a :: x". Addition keeps the first table's order
// of the shared names; dropping names goes through the confirm policy, and
// an empty intersection fails with ErrUnalignableColumns.
func (e *Engine) Combine(mode Mode, tables ...*Table) (*Table, error) {
	switch len(tables) {
	case 0:
		return nil, newOffenderError(ErrExchangeDataNotFound, []Offender{{Detail: "no scenario tables"}})
	case 1:
		return tables[0].Clone(), nil
	}
	switch mode {
	case Product:
		return e.product(tables), nil
	case Addition:
		return e.addition(tables)
	}

	return nil, fmt.Errorf("Combine: unknown mode %q", mode)
}

// union indexes the rows of every table by triple.
func union(tables []*Table) (rows []Row, at []map[triple]int) {
	pos := make(map[triple]int)
	at = make([]map[triple]int, len(tables))
	for ti, t := range tables {
		at[ti] = make(map[triple]int, len(t.Rows))
		for i, r := range t.Rows {
			k := r.triple()
			at[ti][k] = i
			if _, ok := pos[k]; !ok {
				pos[k] = len(rows)
				r.Values = nil
				rows = append(rows, r)
			}
		}
	}

	return rows, at
}

func sourceOf(tables []*Table) string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Source
	}

	return strings.Join(names, " + ")
}

func (e *Engine) product(tables []*Table) *Table {
	rows, at := union(tables)
	out := &Table{Source: sourceOf(tables)}

	// combos[c][t] is the column of table t in combined scenario c.
	combos := [][]int{{}}
	for _, t := range tables {
		next := make([][]int, 0, len(combos)*len(t.Scenarios))
		for _, c := range combos {
			for s := range t.Scenarios {
				next = append(next, append(slices.Clone(c), s))
			}
		}
		combos = next
	}
	for _, c := range combos {
		parts := make([]string, len(c))
		for ti, s := range c {
			parts[ti] = tables[ti].Scenarios[s]
		}
		out.Scenarios = append(out.Scenarios, strings.Join(parts, NameSeparator))
	}

	for _, r := range rows {
		k := r.triple()
		r.Values = nanRow(len(combos))
		for ci, c := range combos {
			for ti, s := range c {
				if i, ok := at[ti][k]; ok {
					if v := tables[ti].Rows[i].Values[s]; !math.IsNaN(v) {
						r.Values[ci] = v
					}
				}
			}
		}
		out.Rows = append(out.Rows, r)
	}

	return out
}

func (e *Engine) addition(tables []*Table) (*Table, error) {
	var shared []string
	var dropped []Offender
	for _, name := range tables[0].Scenarios {
		everywhere := true
		for _, t := range tables[1:] {
			if !slices.Contains(t.Scenarios, name) {
				everywhere = false
				break
			}
		}
		if everywhere {
			shared = append(shared, name)
		} else {
			dropped = append(dropped, Offender{Detail: fmt.Sprintf("%s (%s)", name, tables[0].Source)})
		}
	}
	for _, t := range tables[1:] {
		for _, name := range t.Scenarios {
			if !slices.Contains(shared, name) && !slices.Contains(tables[0].Scenarios, name) {
				dropped = append(dropped, Offender{Detail: fmt.Sprintf("%s (%s)", name, t.Source)})
			}
		}
	}
	if len(shared) == 0 {
		return nil, newOffenderError(ErrUnalignableColumns, dropped)
	}
	if len(dropped) > 0 {
		if err := e.o.warn(newOffenderError(ErrUnalignableColumns, dropped)); err != nil {
			return nil, err
		}
	}

	rows, at := union(tables)
	cols := make([][]int, len(tables))
	for ti, t := range tables {
		cols[ti] = make([]int, len(shared))
		for s, name := range shared {
			cols[ti][s] = slices.Index(t.Scenarios, name)
		}
	}
	out := &Table{Source: sourceOf(tables), Scenarios: shared}
	for _, r := range rows {
		k := r.triple()
		r.Values = nanRow(len(shared))
		for ti, t := range tables {
			i, ok := at[ti][k]
			if !ok {
				continue
			}
			for s, col := range cols[ti] {
				if v := t.Rows[i].Values[col]; !math.IsNaN(v) {
					r.Values[s] = v
				}
			}
		}
		out.Rows = append(out.Rows, r)
	}

	return out, nil
}
