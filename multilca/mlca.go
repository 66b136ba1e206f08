package multilca

import (
	"context"
	"fmt"

	"github.com/katalvlaran/lvlca/assembly"
	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/lca"
	"github.com/katalvlaran/lvlca/matrix"
	"github.com/katalvlaran/lvlca/parameters"
	"github.com/katalvlaran/lvlca/progress"
)

// MLCA is a multi functional unit, multi method calculation. It owns its
// matrices exclusively and is not safe for concurrent use.
type MLCA struct {
	prov  inventory.Provider
	setup Setup
	o     options

	mats    *assembly.Matrices
	solver  *lca.Solver
	chars   []*assembly.Characterization
	demands [][]float64
	amounts []parameters.ExchangeAmount

	res *Results
}

// New validates setup, evaluates parameterized exchanges, assembles the
// matrices over the dependency closure of the demanded activities and
// aligns every method. It does not solve anything yet.
//
// Errors:
//   - Setup validation errors (ErrReferenceFlowIsZero, ...).
//   - parameters.ErrFormulaCycle, formula.ErrMissingSymbol (no matrix is
//     built in that case).
//   - assembly errors; a method or demand that cannot be aligned is
//     reported as *CalculationError.
func New(ctx context.Context, prov inventory.Provider, setup Setup, opts ...Option) (*MLCA, error) {
	if err := setup.Validate(); err != nil {
		return nil, fmt.Errorf("multilca.New: %w", err)
	}
	m := &MLCA{prov: prov, setup: setup, o: gather(opts)}
	if err := m.assemble(ctx); err != nil {
		return nil, fmt.Errorf("multilca.New: %w", err)
	}

	return m, nil
}

func (m *MLCA) assemble(ctx context.Context) error {
	aopts := []assembly.Option{assembly.WithDemand(m.setup.Seeds()...)}
	if !m.o.noParams {
		amounts, err := m.evaluateParameters()
		if err != nil {
			return err
		}
		m.amounts = amounts
		aopts = append(aopts, assembly.WithExchangeAmounts(amounts))
	}
	aopts = append(aopts, m.o.assembly...)
	if m.o.progress != nil {
		aopts = append(aopts, assembly.WithProgress(func(cur, total int) {
			m.o.progress.Report(progress.Assemble, cur, total)
		}))
	}

	mats, err := assembly.Build(ctx, m.prov, aopts...)
	if err != nil {
		return err
	}
	solver, err := lca.NewSolver(mats.Technosphere, mats.Biosphere, append([]lca.Option{lca.WithLogger(m.o.log)}, m.o.solver...)...)
	if err != nil {
		return err
	}
	m.mats, m.solver = mats, solver

	m.chars = make([]*assembly.Characterization, len(m.setup.IA))
	for k, id := range m.setup.IA {
		if m.chars[k], err = mats.Characterize(m.prov, id); err != nil {
			return &CalculationError{Scenario: -1, FunctionalUnit: -1, Method: k, Err: err}
		}
		if m.chars[k].Dropped > 0 {
			m.o.log.Debug("characterization factors outside the assembled flows", "method", id.String(), "dropped", m.chars[k].Dropped)
		}
	}
	m.demands = make([][]float64, len(m.setup.Inv))
	for u, fu := range m.setup.Inv {
		if m.demands[u], err = mats.Demand(fu); err != nil {
			return &CalculationError{Scenario: -1, FunctionalUnit: u, Method: -1, Err: err}
		}
	}
	m.o.log.Info("assembled matrices",
		"activities", mats.Activities.Len(),
		"flows", mats.Flows.Len(),
		"databases", mats.Databases,
		"parameterized", len(m.amounts))

	return nil
}

func (m *MLCA) evaluateParameters() ([]parameters.ExchangeAmount, error) {
	e := m.o.engine
	if e == nil {
		var err error
		if e, err = parameters.New(m.prov); err != nil {
			return nil, err
		}
	}
	res, err := e.RecalculateAll()
	if err != nil {
		return nil, err
	}

	return res.Exchanges, nil
}

// Calculate runs every (functional unit, method) pair.
func (m *MLCA) Calculate(ctx context.Context) (*Results, error) {
	res := newResults(m.setup, m.units(), []string{""}, m.mats)
	if err := m.run(ctx, 0, res); err != nil {
		return nil, err
	}
	m.res = res
	m.o.progress.Report(progress.Finalize, 1, 1)

	return res, nil
}

func (m *MLCA) units() []string {
	out := make([]string, len(m.chars))
	for k, c := range m.chars {
		out[k] = c.Unit
	}

	return out
}

// run fills column s of res. Cancellation is checked before every
// (functional unit, method) pair.
func (m *MLCA) run(ctx context.Context, s int, res *Results) error {
	for u, d := range m.demands {
		if err := ctx.Err(); err != nil {
			return err
		}
		supply, err := m.solver.RedoLCI(d)
		if err != nil {
			return &CalculationError{Scenario: s, FunctionalUnit: u, Method: -1, Err: err}
		}
		res.Supply[u][s] = supply
		for k, c := range m.chars {
			if err = ctx.Err(); err != nil {
				return err
			}
			con, err := m.solver.Contribute(supply, c.Diag)
			if err != nil {
				return &CalculationError{Scenario: s, FunctionalUnit: u, Method: k, Err: err}
			}
			res.Scores[u][k][s] = con.Score
			res.ProcessContrib[u][k][s] = con.Process
			res.FlowContrib[u][k][s] = con.Flow
		}
	}

	return nil
}

// Results returns the tensors of the last successful Calculate, or nil.
func (m *MLCA) Results() *Results { return m.res }

// Setup returns the validated setup.
func (m *MLCA) Setup() Setup { return m.setup }

// Matrices returns the assembled system. Mutating it invalidates the
// solver's factorization on the next solve.
func (m *MLCA) Matrices() *assembly.Matrices { return m.mats }

// Solver returns the solver bound to the matrices.
func (m *MLCA) Solver() *lca.Solver { return m.solver }

// Characterizations returns the aligned methods, in setup order.
func (m *MLCA) Characterizations() []*assembly.Characterization { return m.chars }

// Demands returns the demand vectors, in setup order.
func (m *MLCA) Demands() [][]float64 { return m.demands }

// ExchangeAmounts returns the parameterized exchange amounts used at
// assembly.
func (m *MLCA) ExchangeAmounts() []parameters.ExchangeAmount { return m.amounts }

// Inventory returns B·diag(supply[u]) for the current matrices.
func (m *MLCA) Inventory(u int) (*matrix.Sparse, error) {
	return m.inventory(u, 0)
}

// CharacterizedInventory returns diag(c[k])·B·diag(supply[u]), computed on
// demand from the stored supply.
func (m *MLCA) CharacterizedInventory(u, k int) (*matrix.Sparse, error) {
	return m.characterized(u, k, 0)
}

func (m *MLCA) inventory(u, s int) (*matrix.Sparse, error) {
	if m.res == nil {
		return nil, ErrNotCalculated
	}
	if err := m.res.check(u, 0, s); err != nil {
		return nil, err
	}

	return m.solver.Inventory(m.res.Supply[u][s])
}

func (m *MLCA) characterized(u, k, s int) (*matrix.Sparse, error) {
	if m.res == nil {
		return nil, ErrNotCalculated
	}
	if err := m.res.check(u, k, s); err != nil {
		return nil, err
	}
	inv, err := m.solver.Inventory(m.res.Supply[u][s])
	if err != nil {
		return nil, err
	}

	return lca.Characterize(inv, m.chars[k].Diag)
}
