package lca_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlca/assembly"
	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/inventory/inventorytest"
	"github.com/katalvlaran/lvlca/lca"
	"github.com/katalvlaran/lvlca/matrix"
)

func setup(t *testing.T, opts ...lca.Option) (*assembly.Matrices, *lca.Solver, []float64) {
	t.Helper()
	s := inventorytest.FuelElectricity()
	m, err := assembly.Build(context.Background(), s)
	require.NoError(t, err)
	c, err := m.Characterize(s, inventorytest.GWP)
	require.NoError(t, err)
	solver, err := lca.NewSolver(m.Technosphere, m.Biosphere, opts...)
	require.NoError(t, err)

	return m, solver, c.Diag
}

func TestCalculate_FuelElectricity(t *testing.T) {
	m, s, c := setup(t)
	demand, err := m.Demand(map[inventory.Key]float64{inventorytest.Electricity: 1})
	require.NoError(t, err)

	res, err := s.Calculate(demand, c)
	require.NoError(t, err)
	fuel, _ := m.Activities.Get(inventorytest.Fuel)
	elec, _ := m.Activities.Get(inventorytest.Electricity)
	assert.InDelta(t, 0.5, res.Supply[fuel], 1e-12)
	assert.InDelta(t, 1.0, res.Supply[elec], 1e-12)
	assert.InDelta(t, 1.0, res.Score, 1e-12)

	// inventory == B·diag(supply)
	m.Biosphere.Do(func(i, j int, v float64) {
		got, err := res.Inventory.At(i, j)
		require.NoError(t, err)
		assert.Equal(t, v*res.Supply[j], got)
	})

	con, err := s.Contribute(res.Supply, c)
	require.NoError(t, err)
	assert.InDelta(t, res.Score, con.Score, 1e-12)
	assert.InDelta(t, 1.0, con.Process[fuel], 1e-12)
	assert.InDelta(t, 0.0, con.Process[elec], 1e-12)
	assert.InDelta(t, 1.0, con.Flow[0], 1e-12)

	// A·supply == demand
	ax, err := matrix.MatVec(m.Technosphere, res.Supply)
	require.NoError(t, err)
	assert.InDeltaSlice(t, demand, ax, 1e-12)
}

func TestRedoLCI_FactorizationCache(t *testing.T) {
	m, s, _ := setup(t)
	d1, _ := m.Demand(map[inventory.Key]float64{inventorytest.Electricity: 1})
	d2, _ := m.Demand(map[inventory.Key]float64{inventorytest.Fuel: 2})

	_, err := s.RedoLCI(d1)
	require.NoError(t, err)
	_, err = s.RedoLCI(d2)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Factorizations())

	fuel, _ := m.Products.Get(inventorytest.Fuel)
	elec, _ := m.Activities.Get(inventorytest.Electricity)
	require.NoError(t, m.Technosphere.Set(fuel, elec, -0.5)) // unchanged value
	_, err = s.RedoLCI(d1)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Factorizations())

	require.NoError(t, m.Technosphere.Set(fuel, elec, -0.25))
	x, err := s.RedoLCI(d1)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Factorizations())
	assert.InDelta(t, 0.25, x[fuel], 1e-12)

	s.Invalidate()
	_, err = s.RedoLCI(d1)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Factorizations())
}

func TestRedoLCI_Singular(t *testing.T) {
	a, err := matrix.NewSparse(2, 2)
	require.NoError(t, err)
	require.NoError(t, a.Set(0, 0, 1))
	require.NoError(t, a.Set(1, 0, 1))
	b, err := matrix.NewSparse(0, 2)
	require.NoError(t, err)
	s, err := lca.NewSolver(a, b)
	require.NoError(t, err)

	_, err = s.RedoLCI([]float64{1, 0})
	assert.ErrorIs(t, err, lca.ErrSingularMatrix)
	assert.ErrorIs(t, err, matrix.ErrSingular)
}

func TestRedoLCI_MixedUnits(t *testing.T) {
	// column 0 produces 1e8 MJ, column 1 produces 1e-7 kg and consumes 2 MJ
	a, err := matrix.NewSparse(2, 2)
	require.NoError(t, err)
	require.NoError(t, a.Set(0, 0, 1e8))
	require.NoError(t, a.Set(0, 1, -2))
	require.NoError(t, a.Set(1, 1, 1e-7))
	b, err := matrix.NewSparse(1, 2)
	require.NoError(t, err)
	require.NoError(t, b.Set(0, 0, 3))
	s, err := lca.NewSolver(a, b)
	require.NoError(t, err)

	x, err := s.RedoLCI([]float64{0, 1})
	require.NoError(t, err)
	assert.InEpsilon(t, 1e7, x[1], 1e-12)
	assert.InEpsilon(t, 2e-1, x[0], 1e-12)
}

func TestRedoLCI_DenseFallbackOnPivotRejection(t *testing.T) {
	tight := lca.WithMatrixOptions(matrix.WithEpsilon(0.9))
	build := func(opts ...lca.Option) *lca.Solver {
		a, err := matrix.NewSparse(2, 2)
		require.NoError(t, err)
		require.NoError(t, a.Set(0, 0, 2))
		require.NoError(t, a.Set(0, 1, 1))
		require.NoError(t, a.Set(1, 0, 1))
		require.NoError(t, a.Set(1, 1, 1))
		b, err := matrix.NewSparse(0, 2)
		require.NoError(t, err)
		s, err := lca.NewSolver(a, b, opts...)
		require.NoError(t, err)

		return s
	}

	s := build(tight)
	x, err := s.RedoLCI([]float64{3, 2})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1}, x, 1e-12)
	_, err = s.RedoLCI([]float64{2, 1})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Factorizations())

	s = build(tight, lca.WithDenseFallbackLimit(0))
	_, err = s.RedoLCI([]float64{3, 2})
	assert.ErrorIs(t, err, lca.ErrSingularMatrix)
	assert.ErrorIs(t, err, matrix.ErrSingular)
}

func TestRedoLCI_DemandLength(t *testing.T) {
	_, s, _ := setup(t)
	_, err := s.RedoLCI([]float64{1})
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestRedoLCI_StrictResidual(t *testing.T) {
	// A tolerance no solution can meet routes through the dense fallback
	// whenever refinement leaves any residual; the answer is the same.
	m, s, _ := setup(t, lca.WithMatrixOptions(matrix.WithRefineSteps(0), matrix.WithResidualTolerance(1e-300)))
	d, _ := m.Demand(map[inventory.Key]float64{inventorytest.Electricity: 1})
	x, err := s.RedoLCI(d)
	require.NoError(t, err)
	fuel, _ := m.Activities.Get(inventorytest.Fuel)
	assert.InDelta(t, 0.5, x[fuel], 1e-12)
}

func TestNewSolver_Shapes(t *testing.T) {
	a, _ := matrix.NewSparse(2, 3)
	b, _ := matrix.NewSparse(1, 3)
	_, err := lca.NewSolver(a, b)
	assert.ErrorIs(t, err, matrix.ErrNonSquare)

	a, _ = matrix.NewSparse(2, 2)
	_, err = lca.NewSolver(a, b)
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	_, err = lca.NewSolver(nil, b)
	assert.ErrorIs(t, err, matrix.ErrNilMatrix)
}
