package parameters

import (
	"errors"
	"fmt"
	"strings"

	"github.com/katalvlaran/lvlca/inventory"
)

var (
	// ErrFormulaCycle indicates parameters whose formulas depend on each
	// other in a loop.
	ErrFormulaCycle = errors.New("parameters: formula cycle")

	// ErrUnknownParameter indicates an Update for a (group, name) pair that
	// does not exist.
	ErrUnknownParameter = errors.New("parameters: unknown parameter")

	// ErrInconsistentGroup indicates an activity group whose parameters
	// disagree on their database.
	ErrInconsistentGroup = errors.New("parameters: activity group spans databases")
)

// CycleError reports the parameters forming a dependency cycle inside one
// scope. Cycle is closed and starts at its smallest name.
type CycleError struct {
	Scope inventory.ParamType
	Group string
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v in %s %q: %s", ErrFormulaCycle, e.Scope, e.Group, strings.Join(e.Cycle, " -> "))
}

// Unwrap lets errors.Is(err, ErrFormulaCycle) match.
func (e *CycleError) Unwrap() error { return ErrFormulaCycle }

// Name addresses one parameter by group and name. Project parameters use
// inventory.ProjectGroup, database parameters their database name.
type Name struct {
	Group string
	Name  string
}

func (n Name) String() string { return n.Group + "/" + n.Name }

// ExchangeAmount is the evaluated amount of one parameterized exchange.
type ExchangeAmount struct {
	ExchangeID int
	Amount     float64
}

// Values maps parameter names of one scope to amounts.
type Values map[string]float64

// Lookup implements formula.Scope.
func (v Values) Lookup(name string) (float64, bool) {
	x, ok := v[name]
	return x, ok
}

// Result is the outcome of Engine.RecalculateAll.
type Result struct {
	Project   Values
	Databases map[string]Values
	Groups    map[string]Values
	// Exchanges is aligned with Engine.ExchangeIndex.
	Exchanges []ExchangeAmount
}

// Flatten lists every evaluated parameter value keyed by Name, the form
// recorded per Monte-Carlo iteration.
func (r Result) Flatten() map[Name]float64 {
	out := make(map[Name]float64)
	for k, v := range r.Project {
		out[Name{Group: inventory.ProjectGroup, Name: k}] = v
	}
	for g, vals := range r.Databases {
		for k, v := range vals {
			out[Name{Group: g, Name: k}] = v
		}
	}
	for g, vals := range r.Groups {
		for k, v := range vals {
			out[Name{Group: g, Name: k}] = v
		}
	}

	return out
}
