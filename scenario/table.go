package scenario

import (
	"math"
	"slices"

	"github.com/katalvlaran/lvlca/inventory"
)

// Required header columns, in file order.
const (
	ColFromName       = "from activity name"
	ColFromProduct    = "from reference product"
	ColFromLocation   = "from location"
	ColFromCategories = "from categories"
	ColFromDatabase   = "from database"
	ColFromKey        = "from key"
	ColToName         = "to activity name"
	ColToProduct      = "to reference product"
	ColToLocation     = "to location"
	ColToCategories   = "to categories"
	ColToDatabase     = "to database"
	ColToKey          = "to key"
	ColFlowType       = "flow type"
)

// Columns lists the required header columns in file order.
var Columns = []string{
	ColFromName, ColFromProduct, ColFromLocation, ColFromCategories, ColFromDatabase, ColFromKey,
	ColToName, ColToProduct, ColToLocation, ColToCategories, ColToDatabase, ColToKey,
	ColFlowType,
}

// Side is one endpoint of a scenario row. Key may be zero when the
// metadata is enough to resolve it.
type Side struct {
	Name             string
	ReferenceProduct string
	Location         string
	Categories       []string
	Database         string
	Key              inventory.Key
}

// database returns the database of the side, preferring the key.
func (s Side) database() string {
	if !s.Key.IsZero() {
		return s.Key.Database
	}

	return s.Database
}

// Row is one exchange of a scenario table. FlowType is empty until
// inferred. Values is aligned with Table.Scenarios; NaN means "keep the
// base value".
type Row struct {
	Line     int
	From, To Side
	FlowType inventory.ExchangeType
	Values   []float64
}

// triple identifies the exchange a row targets.
type triple struct {
	from, to inventory.Key
	kind     inventory.ExchangeType
}

func (r Row) triple() triple { return triple{from: r.From.Key, to: r.To.Key, kind: r.FlowType} }

// Table is a scenario table.
type Table struct {
	Source    string
	Scenarios []string
	Rows      []Row
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := &Table{Source: t.Source, Scenarios: slices.Clone(t.Scenarios), Rows: make([]Row, len(t.Rows))}
	for i, r := range t.Rows {
		r.From.Categories = slices.Clone(r.From.Categories)
		r.To.Categories = slices.Clone(r.To.Categories)
		r.Values = slices.Clone(r.Values)
		out.Rows[i] = r
	}

	return out
}

// EmptyColumns returns the scenarios whose every cell is NaN.
func (t *Table) EmptyColumns() []string {
	var out []string
	for s, name := range t.Scenarios {
		empty := true
		for _, r := range t.Rows {
			if !math.IsNaN(r.Values[s]) {
				empty = false
				break
			}
		}
		if empty {
			out = append(out, name)
		}
	}

	return out
}

func nanRow(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}
