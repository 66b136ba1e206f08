package assembly

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/matrix"
	"github.com/katalvlaran/lvlca/uncertainty"
)

// Kind selects the matrix a coordinate lives in.
type Kind int

const (
	// Technosphere is the square A matrix.
	Technosphere Kind = iota
	// Biosphere is the rectangular B matrix.
	Biosphere
)

func (k Kind) String() string {
	if k == Biosphere {
		return "biosphere"
	}

	return "technosphere"
}

// Coord records where one exchange landed in A or B.
//
// The matrix value at (Row, Col) is the sum of Sign·Amount over every
// exchange sharing the cell, plus the default unit production of activities
// without a production exchange.
type Coord struct {
	ExchangeID int
	Kind       Kind
	Row, Col   int
	Sign       float64
	// Amount is the assembled (unsigned) exchange amount.
	Amount        float64
	Uncertainty   *uncertainty.Descriptor
	Pedigree      *uncertainty.Pedigree
	Parameterized bool
}

type cell struct {
	kind     Kind
	row, col int
}

// Matrices is the assembled linear system of one calculation.
type Matrices struct {
	Technosphere *matrix.Sparse
	Biosphere    *matrix.Sparse

	Activities Index // key → column of A and B
	Products   Index // key → row of A
	Flows      Index // key → row of B

	// Databases lists the assembled databases (biosphere included).
	Databases []string

	coords     []Coord
	byExchange map[int]int
	cells      map[cell][]int
	defaults   map[int]struct{} // columns with a synthesized unit production

	baseA, baseB *matrix.Sparse
}

// Build assembles A, B and the index dictionaries from prov.
//
// Implementation:
//   - Stage 1: resolve the database set (WithDatabases, WithDemand closure,
//     or every database).
//   - Stage 2: index activities (sorted by database, then code) and
//     biosphere flows (sorted by code).
//   - Stage 3: place every exchange of every activity, checking ctx each
//     WithCancelEvery activities.
//
// Errors:
//   - ErrNoActivities, *DanglingExchangeError, provider errors, ctx.Err().
func Build(ctx context.Context, prov inventory.Provider, opts ...Option) (*Matrices, error) {
	o := gather(opts)
	dbs, err := selectDatabases(prov, o)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	bio := prov.Biosphere()
	var actKeys, flowKeys []inventory.Key
	for _, db := range dbs {
		nodes, err := prov.Nodes(db)
		if err != nil {
			return nil, fmt.Errorf("Build: %w", err)
		}
		for _, n := range nodes {
			switch {
			case n.Type.IsBiosphere():
				flowKeys = append(flowKeys, n.Key)
			case db != bio:
				actKeys = append(actKeys, n.Key)
			}
		}
	}
	if len(actKeys) == 0 {
		return nil, fmt.Errorf("Build: %w", ErrNoActivities)
	}
	slices.SortFunc(actKeys, inventory.Key.Compare)
	slices.SortFunc(flowKeys, inventory.Key.Compare)

	m := &Matrices{
		Activities: NewIndex(actKeys),
		Products:   NewIndex(actKeys),
		Flows:      NewIndex(flowKeys),
		Databases:  dbs,
		byExchange: make(map[int]int),
		cells:      make(map[cell][]int),
		defaults:   make(map[int]struct{}),
	}
	n := m.Activities.Len()
	if m.Technosphere, err = matrix.NewSparse(n, n, o.matrix...); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	if m.Biosphere, err = matrix.NewSparse(m.Flows.Len(), n, o.matrix...); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	for col, key := range actKeys {
		if col%o.every == 0 {
			if err = ctx.Err(); err != nil {
				return nil, err
			}
			if o.progress != nil {
				o.progress(col, n)
			}
		}
		if err = m.placeActivity(prov, col, key, o.amounts); err != nil {
			return nil, fmt.Errorf("Build: %w", err)
		}
	}
	if o.progress != nil {
		o.progress(n, n)
	}
	m.baseA = m.Technosphere.CloneSparse()
	m.baseB = m.Biosphere.CloneSparse()

	return m, nil
}

func selectDatabases(prov inventory.Provider, o options) ([]string, error) {
	var dbs []string
	switch {
	case len(o.databases) > 0:
		known := prov.Databases()
		for _, db := range o.databases {
			if _, found := slices.BinarySearch(known, db); !found {
				return nil, fmt.Errorf("%w: %q", inventory.ErrDatabaseNotFound, db)
			}
		}
		dbs = slices.Clone(o.databases)
		if bio := prov.Biosphere(); slices.Contains(known, bio) {
			dbs = append(dbs, bio)
		}
	case len(o.seeds) > 0:
		var err error
		if dbs, err = prov.Dependencies(o.seeds); err != nil {
			return nil, err
		}
	default:
		dbs = prov.Databases()
	}
	slices.Sort(dbs)

	return slices.Compact(dbs), nil
}

// placeActivity adds the exchanges of the activity in column col.
func (m *Matrices) placeActivity(prov inventory.Provider, col int, key inventory.Key, amounts map[int]float64) error {
	exs, err := prov.Exchanges(key, inventory.In)
	if err != nil {
		return err
	}
	produced := false
	for _, ex := range exs {
		c := Coord{
			ExchangeID:    ex.ID,
			Col:           col,
			Sign:          1,
			Amount:        ex.Amount,
			Uncertainty:   ex.Uncertainty,
			Pedigree:      ex.Pedigree,
			Parameterized: ex.Formula != "",
		}
		if v, ok := amounts[ex.ID]; ok && !math.IsNaN(v) {
			c.Amount = v
		}
		var ok bool
		switch ex.Type {
		case inventory.Biosphere:
			c.Kind = Biosphere
			if c.Row, ok = m.Flows.Get(ex.Input); !ok {
				return &DanglingExchangeError{Key: ex.Input, Direction: DirBiosphere, ExchangeID: ex.ID}
			}
		case inventory.Production, inventory.Technosphere, inventory.Substitution:
			c.Kind = Technosphere
			if c.Row, ok = m.Products.Get(ex.Input); !ok {
				return &DanglingExchangeError{Key: ex.Input, Direction: DirProduct, ExchangeID: ex.ID}
			}
			if ex.Type == inventory.Technosphere {
				c.Sign = -1
			}
			if ex.Type == inventory.Production {
				produced = true
			}
		default:
			return fmt.Errorf("%w: exchange %d has type %q", inventory.ErrInvalidExchange, ex.ID, ex.Type)
		}
		if err = m.target(c.Kind).AddTo(c.Row, c.Col, c.Sign*c.Amount); err != nil {
			return err
		}
		idx := len(m.coords)
		m.coords = append(m.coords, c)
		m.byExchange[ex.ID] = idx
		k := cell{kind: c.Kind, row: c.Row, col: c.Col}
		m.cells[k] = append(m.cells[k], idx)
	}
	if !produced {
		m.defaults[col] = struct{}{}
		return m.Technosphere.AddTo(col, col, 1)
	}

	return nil
}

func (m *Matrices) target(k Kind) *matrix.Sparse {
	if k == Biosphere {
		return m.Biosphere
	}

	return m.Technosphere
}

// Matrix returns A or B.
func (m *Matrices) Matrix(k Kind) *matrix.Sparse { return m.target(k) }

// Coords returns a copy of every exchange coordinate in assembly order
// (column ascending, exchange id ascending within a column).
func (m *Matrices) Coords() []Coord { return slices.Clone(m.coords) }

// Coord returns the coordinate of the exchange with the given id.
func (m *Matrices) Coord(exchangeID int) (Coord, bool) {
	i, ok := m.byExchange[exchangeID]
	if !ok {
		return Coord{}, false
	}

	return m.coords[i], true
}

// Parameterized lists the ids of exchanges whose amount is formula driven.
func (m *Matrices) Parameterized() []int {
	var out []int
	for _, c := range m.coords {
		if c.Parameterized {
			out = append(out, c.ExchangeID)
		}
	}

	return out
}

// Uncertain returns the coordinates of kind k that carry an uncertainty
// descriptor or a pedigree matrix, resolved to a sampleable descriptor.
// Pedigree-only exchanges become lognormal around their amount.
func (m *Matrices) Uncertain(k Kind, basicVariance float64) ([]UncertainCoord, error) {
	var out []UncertainCoord
	for _, c := range m.coords {
		if c.Kind != k {
			continue
		}
		switch {
		case c.Uncertainty != nil && c.Uncertainty.IsUncertain():
			out = append(out, UncertainCoord{ExchangeID: c.ExchangeID, Descriptor: *c.Uncertainty})
		case c.Pedigree != nil && c.Amount != 0:
			d, err := uncertainty.FromPedigree(c.Amount, *c.Pedigree, basicVariance)
			if err != nil {
				return nil, fmt.Errorf("Uncertain: exchange %d: %w", c.ExchangeID, err)
			}
			out = append(out, UncertainCoord{ExchangeID: c.ExchangeID, Descriptor: d})
		}
	}

	return out, nil
}

// UncertainCoord pairs an exchange with the distribution its amount is
// sampled from.
type UncertainCoord struct {
	ExchangeID int
	Descriptor uncertainty.Descriptor
}

// Rewrite replaces exchange amounts (id → unsigned amount) and recomputes the
// touched cells from every exchange sharing them. Ids not assembled and NaN
// amounts are ignored. It reports whether A changed.
func (m *Matrices) Rewrite(amounts map[int]float64) (bool, error) {
	before := m.Technosphere.Version()
	touched := make(map[cell]struct{})
	for id, v := range amounts {
		if math.IsNaN(v) {
			continue
		}
		i, ok := m.byExchange[id]
		if !ok {
			continue
		}
		c := m.coords[i]
		touched[cell{kind: c.Kind, row: c.Row, col: c.Col}] = struct{}{}
	}
	for k := range touched {
		var v float64
		for _, i := range m.cells[k] {
			c := m.coords[i]
			amt := c.Amount
			if a, ok := amounts[c.ExchangeID]; ok && !math.IsNaN(a) {
				amt = a
			}
			v += c.Sign * amt
		}
		if k.kind == Technosphere && k.row == k.col {
			if _, ok := m.defaults[k.col]; ok {
				v++
			}
		}
		if err := m.target(k.kind).Set(k.row, k.col, v); err != nil {
			return false, fmt.Errorf("Rewrite: %w", err)
		}
	}

	return m.Technosphere.Version() != before, nil
}

// Reset restores every stored cell of A and B to its assembled value.
// Cells inserted after assembly are zeroed. It reports whether A changed.
func (m *Matrices) Reset() (bool, error) {
	before := m.Technosphere.Version()
	for _, pair := range [2][2]*matrix.Sparse{{m.Technosphere, m.baseA}, {m.Biosphere, m.baseB}} {
		cur, base := pair[0], pair[1]
		var err error
		cur.Do(func(i, j int, _ float64) {
			if err != nil {
				return
			}
			v, _ := base.At(i, j)
			err = cur.Set(i, j, v)
		})
		if err != nil {
			return false, fmt.Errorf("Reset: %w", err)
		}
	}

	return m.Technosphere.Version() != before, nil
}

// Base returns the value of a cell as assembled.
func (m *Matrices) Base(k Kind, row, col int) float64 {
	base := m.baseA
	if k == Biosphere {
		base = m.baseB
	}
	v, _ := base.At(row, col)

	return v
}

// Demand builds the demand vector of a functional unit.
//
// Errors:
//   - *DanglingExchangeError (DirActivity) for a key outside the assembly.
func (m *Matrices) Demand(fu map[inventory.Key]float64) ([]float64, error) {
	d := make([]float64, m.Activities.Len())
	for k, v := range fu {
		i, ok := m.Activities.Get(k)
		if !ok {
			return nil, fmt.Errorf("Demand: %w", &DanglingExchangeError{Key: k, Direction: DirActivity, ExchangeID: -1})
		}
		d[i] += v
	}

	return d, nil
}
