package parameters

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/lvlca/depgraph"
	"github.com/katalvlaran/lvlca/formula"
	"github.com/katalvlaran/lvlca/inventory"
)

// param is a snapshotted parameter with its compiled formula.
type param struct {
	inventory.Parameter
	expr *formula.Expr
}

// boundExchange is a snapshotted parameterized exchange.
type boundExchange struct {
	inventory.ParameterizedExchange
	expr     *formula.Expr
	database string // output database of the exchange
}

// Engine evaluates parameters over a snapshot of a Provider. It is not safe
// for concurrent use.
type Engine struct {
	prov inventory.Provider

	project  []*param
	database map[string][]*param
	activity map[string][]*param
	groupDB  map[string]string

	exchanges map[string][]*boundExchange
	index     []int // parameterized exchange ids, ascending

	overrides map[Name]float64
}

// New creates an Engine and takes its first snapshot.
func New(prov inventory.Provider) (*Engine, error) {
	e := &Engine{prov: prov, overrides: make(map[Name]float64)}
	if err := e.Snapshot(); err != nil {
		return nil, err
	}

	return e, nil
}

// Snapshot (re)reads every parameter and parameterized exchange from the
// provider and compiles their formulas. Overrides set by Update survive.
func (e *Engine) Snapshot() error {
	e.project = nil
	e.database = make(map[string][]*param)
	e.activity = make(map[string][]*param)
	e.groupDB = make(map[string]string)
	e.exchanges = make(map[string][]*boundExchange)
	e.index = nil

	for _, scope := range []inventory.ParamType{inventory.ProjectParam, inventory.DatabaseParam, inventory.ActivityParam} {
		list, err := e.prov.Parameters(scope)
		if err != nil {
			return fmt.Errorf("Snapshot: %w", err)
		}
		for _, p := range list {
			cp := &param{Parameter: p}
			if p.Formula != "" {
				if cp.expr, err = formula.Parse(p.Formula); err != nil {
					return fmt.Errorf("Snapshot: parameter %s/%s: %w", p.Group, p.Name, err)
				}
			}
			switch scope {
			case inventory.ProjectParam:
				e.project = append(e.project, cp)
			case inventory.DatabaseParam:
				e.database[p.Group] = append(e.database[p.Group], cp)
			case inventory.ActivityParam:
				if db, ok := e.groupDB[p.Group]; ok && db != p.Database {
					return fmt.Errorf("Snapshot: group %q: %w (%q, %q)", p.Group, ErrInconsistentGroup, db, p.Database)
				}
				e.groupDB[p.Group] = p.Database
				e.activity[p.Group] = append(e.activity[p.Group], cp)
			}
		}
	}

	for _, g := range e.prov.ParameterizedGroups() {
		list, err := e.prov.ParameterizedExchanges(g)
		if err != nil {
			return fmt.Errorf("Snapshot: %w", err)
		}
		for _, pe := range list {
			x, err := e.prov.Exchange(pe.ExchangeID)
			if err != nil {
				return fmt.Errorf("Snapshot: %w", err)
			}
			expr, err := formula.Parse(pe.Formula)
			if err != nil {
				return fmt.Errorf("Snapshot: exchange %d: %w", pe.ExchangeID, err)
			}
			e.exchanges[g] = append(e.exchanges[g], &boundExchange{ParameterizedExchange: pe, expr: expr, database: x.Output.Database})
			e.index = append(e.index, pe.ExchangeID)
		}
	}
	sort.Ints(e.index)

	return nil
}

// ExchangeIndex returns the ids of all parameterized exchanges in ascending
// order; Result.Exchanges is aligned with it.
func (e *Engine) ExchangeIndex() []int { return append([]int(nil), e.index...) }

// Parameters lists the snapshotted parameters: project first, then database
// parameters by database, then activity parameters by group.
func (e *Engine) Parameters() []inventory.Parameter {
	var out []inventory.Parameter
	for _, p := range e.project {
		out = append(out, p.Parameter)
	}
	for _, db := range sortedKeys(e.database) {
		for _, p := range e.database[db] {
			out = append(out, p.Parameter)
		}
	}
	for _, g := range sortedKeys(e.activity) {
		for _, p := range e.activity[g] {
			out = append(out, p.Parameter)
		}
	}

	return out
}

// Update pins parameter amounts. A pinned parameter keeps the given value
// even if it has a formula; NaN values are skipped. It returns the number of
// values applied.
//
// Errors:
//   - ErrUnknownParameter for a (group, name) that is not in the snapshot;
//     no value is applied in that case.
func (e *Engine) Update(values map[Name]float64) (int, error) {
	for n := range values {
		if !e.has(n) {
			return 0, fmt.Errorf("Update: %w: %s", ErrUnknownParameter, n)
		}
	}
	applied := 0
	for n, v := range values {
		if math.IsNaN(v) {
			continue
		}
		e.overrides[n] = v
		applied++
	}

	return applied, nil
}

// Reset drops every value pinned by Update.
func (e *Engine) Reset() { e.overrides = make(map[Name]float64) }

func (e *Engine) has(n Name) bool {
	var list []*param
	switch {
	case n.Group == inventory.ProjectGroup:
		list = e.project
	case e.database[n.Group] != nil:
		list = e.database[n.Group]
	default:
		list = e.activity[n.Group]
	}
	for _, p := range list {
		if p.Name == n.Name {
			return true
		}
	}

	return false
}

// RecalculateProject evaluates the project parameters.
func (e *Engine) RecalculateProject() (Values, error) {
	v, err := e.evaluate(inventory.ProjectParam, inventory.ProjectGroup, e.project, nil)
	if err != nil {
		return nil, fmt.Errorf("RecalculateProject: %w", err)
	}

	return v, nil
}

// RecalculateDatabase evaluates the parameters of db with globals (the
// project values) as background scope.
func (e *Engine) RecalculateDatabase(db string, globals Values) (Values, error) {
	v, err := e.evaluate(inventory.DatabaseParam, db, e.database[db], globals)
	if err != nil {
		return nil, fmt.Errorf("RecalculateDatabase %q: %w", db, err)
	}

	return v, nil
}

// RecalculateActivity evaluates the parameters of an activity group with
// globals (database values shadowing project values) as background scope.
func (e *Engine) RecalculateActivity(group string, globals formula.Scope) (Values, error) {
	v, err := e.evaluate(inventory.ActivityParam, group, e.activity[group], globals)
	if err != nil {
		return nil, fmt.Errorf("RecalculateActivity %q: %w", group, err)
	}

	return v, nil
}

// RecalculateExchanges evaluates the parameterized exchanges of group in
// scope, in exchange id order.
func (e *Engine) RecalculateExchanges(group string, scope formula.Scope) ([]ExchangeAmount, error) {
	list := e.exchanges[group]
	out := make([]ExchangeAmount, 0, len(list))
	for _, x := range list {
		v, err := x.expr.Eval(scope)
		if err != nil {
			return nil, fmt.Errorf("RecalculateExchanges %q: exchange %d: %w", group, x.ExchangeID, err)
		}
		out = append(out, ExchangeAmount{ExchangeID: x.ExchangeID, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExchangeID < out[j].ExchangeID })

	return out, nil
}

// RecalculateAll evaluates project, database and activity parameters and
// then every parameterized exchange.
func (e *Engine) RecalculateAll() (Result, error) {
	res := Result{Databases: map[string]Values{}, Groups: map[string]Values{}}
	var err error
	if res.Project, err = e.RecalculateProject(); err != nil {
		return Result{}, err
	}
	for _, db := range sortedKeys(e.database) {
		if res.Databases[db], err = e.RecalculateDatabase(db, res.Project); err != nil {
			return Result{}, err
		}
	}
	for _, g := range sortedKeys(e.activity) {
		if res.Groups[g], err = e.RecalculateActivity(g, e.scope(res, "", e.groupDB[g])); err != nil {
			return Result{}, err
		}
	}

	byID := make(map[int]float64, len(e.index))
	for _, g := range sortedKeys(e.exchanges) {
		for _, x := range e.exchanges[g] {
			v, err := x.expr.Eval(e.exchangeScope(res, g, x.database))
			if err != nil {
				return Result{}, fmt.Errorf("RecalculateExchanges %q: exchange %d: %w", g, x.ExchangeID, err)
			}
			byID[x.ExchangeID] = v
		}
	}
	res.Exchanges = make([]ExchangeAmount, len(e.index))
	for i, id := range e.index {
		res.Exchanges[i] = ExchangeAmount{ExchangeID: id, Amount: byID[id]}
	}

	return res, nil
}

// exchangeScope resolves the scope of a parameterized exchange group: the
// project, a database, or an activity group (whose database is the one of its
// parameters, or the exchange's own database when the group has none).
func (e *Engine) exchangeScope(res Result, group, exchangeDB string) formula.Chain {
	switch {
	case group == inventory.ProjectGroup:
		return formula.Chain{res.Project}
	case e.activity[group] != nil:
		return e.scope(res, group, e.groupDB[group])
	case e.database[group] != nil || group == exchangeDB:
		return e.scope(res, "", group)
	}

	return e.scope(res, "", exchangeDB)
}

// scope builds the lookup chain activity group → database → project.
func (e *Engine) scope(res Result, group, db string) formula.Chain {
	chain := formula.Chain{}
	if group != "" {
		if v, ok := res.Groups[group]; ok {
			chain = append(chain, v)
		}
	}
	if v, ok := res.Databases[db]; ok {
		chain = append(chain, v)
	}

	return append(chain, res.Project)
}

// evaluate orders params topologically and evaluates them in background.
func (e *Engine) evaluate(scope inventory.ParamType, group string, params []*param, background formula.Scope) (Values, error) {
	local := make(map[string]*param, len(params))
	g := depgraph.New()
	for _, p := range params {
		local[p.Name] = p
		if err := g.AddNode(p.Name); err != nil {
			return nil, err
		}
	}
	for _, p := range params {
		if p.expr == nil || e.pinned(group, p.Name) {
			continue
		}
		for _, sym := range p.expr.Symbols() {
			if _, ok := local[sym]; ok {
				if err := g.AddDependency(p.Name, sym); err != nil {
					return nil, err
				}
			}
		}
	}
	order, err := depgraph.TopologicalSort(g)
	if err != nil {
		var ce *depgraph.CycleError
		if errors.As(err, &ce) {
			return nil, &CycleError{Scope: scope, Group: group, Cycle: ce.Cycle}
		}
		return nil, err
	}

	out := make(Values, len(params))
	chain := formula.Chain{out, background}
	for _, name := range order {
		p := local[name]
		if v, ok := e.overrides[Name{Group: group, Name: name}]; ok {
			out[name] = v
			continue
		}
		if p.expr == nil {
			out[name] = p.Amount
			continue
		}
		v, err := p.expr.Eval(chain)
		if err != nil {
			return nil, fmt.Errorf("parameter %s/%s: %w", group, name, err)
		}
		out[name] = v
	}

	return out, nil
}

func (e *Engine) pinned(group, name string) bool {
	_, ok := e.overrides[Name{Group: group, Name: name}]
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}
