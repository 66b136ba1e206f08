package contrib

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/multilca"
)

// ErrUnknownField indicates a group-by field outside the Field constants.
var ErrUnknownField = errors.New("contrib: unknown group-by field")

// Kind selects the contribution tensor.
type Kind int

const (
	// Processes ranks activities (column sums of the characterized inventory).
	Processes Kind = iota
	// Flows ranks biosphere flows (row sums).
	Flows
)

// Field is a node metadata field contributors can be grouped by.
type Field string

const (
	FieldKey        Field = "key"
	FieldName       Field = "name"
	FieldLocation   Field = "location"
	FieldProduct    Field = "reference product"
	FieldDatabase   Field = "database"
	FieldCategories Field = "categories"
)

// Normalization selects the denominator of relative values.
type Normalization int

const (
	// Total divides by the signed score.
	Total Normalization = iota
	// Range divides by the sum of absolute contributions.
	Range
)

// Query configures a reduction. Zero Limit and Cutoff keep every
// contributor.
type Query struct {
	Kind    Kind
	GroupBy Field // "" = FieldKey
	// Limit keeps the Limit largest contributors by absolute value.
	Limit int
	// Cutoff moves contributors whose |relative| is below it into the rests.
	Cutoff    float64
	Normalize Normalization
}

// Contributor is one ranked entry.
type Contributor struct {
	Label    string
	Keys     []inventory.Key
	Value    float64
	Relative float64
}

// Table is the ranking of one tensor cell.
type Table struct {
	// Reference labels the cell along the reduced axis (a functional unit
	// or a method).
	Reference    string
	Score        float64
	Denominator  float64
	Top          []Contributor
	RestPositive float64
	RestNegative float64
}

// Contributions ranks the contributors of cell (u, m, s).
func Contributions(r *multilca.Results, prov inventory.Provider, u, m, s int, q Query) (*Table, error) {
	score, err := r.Score(u, m, s)
	if err != nil {
		return nil, fmt.Errorf("Contributions: %w", err)
	}
	values, keys := r.ProcessContrib[u][m][s], r.Activities.Keys()
	if q.Kind == Flows {
		values, keys = r.FlowContrib[u][m][s], r.Flows.Keys()
	}
	if values == nil {
		return nil, fmt.Errorf("Contributions: %w", multilca.ErrNotCalculated)
	}
	groups, err := group(prov, keys, values, q.GroupBy)
	if err != nil {
		return nil, fmt.Errorf("Contributions: %w", err)
	}

	return rank(groups, score, q), nil
}

// ByFunctionalUnit ranks method m for every functional unit.
func ByFunctionalUnit(r *multilca.Results, prov inventory.Provider, m, s int, q Query) ([]*Table, error) {
	out := make([]*Table, len(r.FunctionalUnits))
	for u, fu := range r.FunctionalUnits {
		t, err := Contributions(r, prov, u, m, s, q)
		if err != nil {
			return nil, err
		}
		t.Reference = fu.String()
		out[u] = t
	}

	return out, nil
}

// ByMethod ranks every method for functional unit u.
func ByMethod(r *multilca.Results, prov inventory.Provider, u, s int, q Query) ([]*Table, error) {
	out := make([]*Table, len(r.Methods))
	for m, id := range r.Methods {
		t, err := Contributions(r, prov, u, m, s, q)
		if err != nil {
			return nil, err
		}
		t.Reference = id.String()
		out[m] = t
	}

	return out, nil
}

type groupSum struct {
	label string
	keys  []inventory.Key
	value float64
}

// group sums values by the label of field. Groups are sorted by label.
func group(prov inventory.Provider, keys []inventory.Key, values []float64, field Field) ([]groupSum, error) {
	byLabel := make(map[string]int)
	var out []groupSum
	for i, k := range keys {
		label, err := labelOf(prov, k, field)
		if err != nil {
			return nil, err
		}
		j, ok := byLabel[label]
		if !ok {
			j = len(out)
			byLabel[label] = j
			out = append(out, groupSum{label: label})
		}
		out[j].keys = append(out[j].keys, k)
		out[j].value += values[i]
	}
	slices.SortFunc(out, func(a, b groupSum) int { return strings.Compare(a.label, b.label) })

	return out, nil
}

func labelOf(prov inventory.Provider, k inventory.Key, field Field) (string, error) {
	switch field {
	case "", FieldKey:
		return k.String(), nil
	case FieldDatabase:
		return k.Database, nil
	}
	n, err := prov.Node(k)
	if err != nil {
		return "", err
	}
	switch field {
	case FieldName:
		return n.Name, nil
	case FieldLocation:
		return n.Location, nil
	case FieldProduct:
		return n.ReferenceProduct, nil
	case FieldCategories:
		return inventory.FormatTuple(n.Categories), nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// rank keeps the largest groups by absolute value; ties keep label order.
func rank(groups []groupSum, score float64, q Query) *Table {
	t := &Table{Score: score, Denominator: score}
	if q.Normalize == Range {
		var d float64
		for _, g := range groups {
			d += math.Abs(g.value)
		}
		t.Denominator = d
	}

	order := make([]float64, len(groups))
	idx := make([]int, len(groups))
	for i, g := range groups {
		order[i] = -math.Abs(g.value)
	}
	floats.ArgsortStable(order, idx)

	for _, i := range idx {
		g := groups[i]
		rel := relative(g.value, t.Denominator)
		keep := g.value != 0 &&
			(q.Limit <= 0 || len(t.Top) < q.Limit) &&
			math.Abs(rel) >= q.Cutoff
		if keep {
			t.Top = append(t.Top, Contributor{Label: g.label, Keys: g.keys, Value: g.value, Relative: rel})
			continue
		}
		if g.value > 0 {
			t.RestPositive += g.value
		} else {
			t.RestNegative += g.value
		}
	}

	return t
}

func relative(v, d float64) float64 {
	if d == 0 {
		return 0
	}

	return v / d
}

// Rest returns the rests as relative values.
func (t *Table) Rest() (positive, negative float64) {
	return relative(t.RestPositive, t.Denominator), relative(t.RestNegative, t.Denominator)
}
