package multilca

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/katalvlaran/lvlca/assembly"
	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/matrix"
	"github.com/katalvlaran/lvlca/progress"
)

// ErrNoScenarios indicates an overlay with an empty scenario axis.
var ErrNoScenarios = errors.New("multilca: overlay defines no scenarios")

// Overlay rewrites A and B for one scenario. Apply must be absolute: the
// matrices after Apply(s) may not depend on which scenario was applied
// before. It reports whether A changed.
type Overlay interface {
	Scenarios() []string
	Apply(s int, m *assembly.Matrices) (bool, error)
}

// ScenarioMLCA is an MLCA with a scenario axis.
type ScenarioMLCA struct {
	*MLCA
	overlay   Overlay
	scenarios []string
	current   int
}

// NewScenario prepares a scenario calculation; see New for the assembly
// errors.
func NewScenario(ctx context.Context, prov inventory.Provider, setup Setup, ov Overlay, opts ...Option) (*ScenarioMLCA, error) {
	names := slices.Clone(ov.Scenarios())
	if len(names) == 0 {
		return nil, fmt.Errorf("multilca.NewScenario: %w", ErrNoScenarios)
	}
	m, err := New(ctx, prov, setup, opts...)
	if err != nil {
		return nil, err
	}

	return &ScenarioMLCA{MLCA: m, overlay: ov, scenarios: names, current: -1}, nil
}

// Scenarios returns the scenario names in overlay order.
func (sm *ScenarioMLCA) Scenarios() []string { return slices.Clone(sm.scenarios) }

// Current returns the scenario the matrices are in, or -1 before the first
// overlay.
func (sm *ScenarioMLCA) Current() int { return sm.current }

// Calculate runs the (scenario, functional unit, method) loops. After it
// returns the matrices hold the last scenario.
func (sm *ScenarioMLCA) Calculate(ctx context.Context) (*Results, error) {
	S := len(sm.scenarios)
	res := newResults(sm.setup, sm.units(), sm.Scenarios(), sm.mats)
	for s := range S {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sm.o.progress.Report(progress.Scenario, s, S)
		if err := sm.SetScenario(s); err != nil {
			return nil, &CalculationError{Scenario: s, FunctionalUnit: -1, Method: -1, Err: err}
		}
		if err := sm.run(ctx, s, res); err != nil {
			return nil, err
		}
	}
	sm.o.progress.Report(progress.Scenario, S, S)
	sm.res = res
	sm.o.progress.Report(progress.Finalize, 1, 1)
	sm.o.log.Info("scenario calculation finished",
		"scenarios", S,
		"functional_units", len(sm.demands),
		"methods", len(sm.chars),
		"factorizations", sm.solver.Factorizations())

	return res, nil
}

// SetScenario advances the overlay until the matrices hold scenario s.
// Iteration is forward only: reaching an earlier scenario wraps through
// the remaining ones modulo S.
func (sm *ScenarioMLCA) SetScenario(s int) error {
	S := len(sm.scenarios)
	if s < 0 || s >= S {
		return fmt.Errorf("SetScenario(%d): %w", s, ErrIndexOutOfRange)
	}
	for sm.current != s {
		next := (sm.current + 1) % S
		changed, err := sm.overlay.Apply(next, sm.mats)
		if err != nil {
			return fmt.Errorf("SetScenario(%d): %w", next, err)
		}
		sm.current = next
		sm.o.log.Debug("applied scenario overlay", "scenario", sm.scenarios[next], "technosphere_changed", changed)
	}

	return nil
}

// Inventory returns B·diag(supply[u][s]) with the matrices moved to s.
func (sm *ScenarioMLCA) Inventory(u, s int) (*matrix.Sparse, error) {
	if sm.res == nil {
		return nil, ErrNotCalculated
	}
	if err := sm.SetScenario(s); err != nil {
		return nil, err
	}

	return sm.inventory(u, s)
}

// CharacterizedInventory returns diag(c[k])·B·diag(supply[u][s]) with the
// matrices moved to s.
func (sm *ScenarioMLCA) CharacterizedInventory(u, k, s int) (*matrix.Sparse, error) {
	if sm.res == nil {
		return nil, ErrNotCalculated
	}
	if err := sm.SetScenario(s); err != nil {
		return nil, err
	}

	return sm.characterized(u, k, s)
}
