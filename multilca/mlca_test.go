package multilca_test

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlca/formula"
	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/inventory/inventorytest"
	"github.com/katalvlaran/lvlca/lca"
	"github.com/katalvlaran/lvlca/multilca"
	"github.com/katalvlaran/lvlca/parameters"
)

var double = inventory.MethodID{"double"}

func electricity(amount float64) multilca.FunctionalUnit {
	return multilca.FunctionalUnit{inventorytest.Electricity: amount}
}

// checkSums asserts score == Σ process == Σ flow for every cell.
func checkSums(t *testing.T, r *multilca.Results) {
	t.Helper()
	U, M, S := r.Dims()
	for u := range U {
		for m := range M {
			for s := range S {
				score := r.Scores[u][m][s]
				tol := 1e-9*math.Abs(score) + 1e-15
				var p, f float64
				for _, v := range r.ProcessContrib[u][m][s] {
					p += v
				}
				for _, v := range r.FlowContrib[u][m][s] {
					f += v
				}
				assert.InDelta(t, score, p, tol, "process sum (%d,%d,%d)", u, m, s)
				assert.InDelta(t, score, f, tol, "flow sum (%d,%d,%d)", u, m, s)
			}
		}
	}
}

func TestMLCA_SingleUnitSingleMethod(t *testing.T) {
	s := inventorytest.FuelElectricity()
	m, err := multilca.New(context.Background(), s, multilca.Setup{
		Inv: []multilca.FunctionalUnit{electricity(1)},
		IA:  []inventory.MethodID{inventorytest.GWP},
	})
	require.NoError(t, err)
	res, err := m.Calculate(context.Background())
	require.NoError(t, err)

	fuel, _ := res.Activities.Get(inventorytest.Fuel)
	elec, _ := res.Activities.Get(inventorytest.Electricity)
	assert.Equal(t, []string{""}, res.Scenarios)
	assert.Equal(t, []string{"kg CO2-Eq"}, res.Units)
	assert.InDelta(t, 1.0, res.Scores[0][0][0], 1e-12)
	assert.InDelta(t, 0.5, res.Supply[0][0][fuel], 1e-12)
	assert.InDelta(t, 1.0, res.Supply[0][0][elec], 1e-12)
	assert.InDelta(t, 1.0, res.ProcessContrib[0][0][0][fuel], 1e-12)
	assert.InDelta(t, 0.0, res.ProcessContrib[0][0][0][elec], 1e-12)
	assert.InDeltaSlice(t, []float64{1}, res.FlowContrib[0][0][0], 1e-12)
	checkSums(t, res)

	ci, err := m.CharacterizedInventory(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, res.Scores[0][0][0], ci.Sum(), 1e-12)
	inv, err := m.Inventory(0)
	require.NoError(t, err)
	got, err := inv.At(0, fuel)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)

	_, err = m.Inventory(1)
	assert.ErrorIs(t, err, multilca.ErrIndexOutOfRange)
}

func TestMLCA_UnitsByMethods(t *testing.T) {
	s := inventorytest.FuelElectricity()
	require.NoError(t, s.AddMethod(inventory.Method{ID: double, CFs: []inventory.CF{{Flow: inventorytest.CO2, Amount: 2}}}))
	m, err := multilca.New(context.Background(), s, multilca.Setup{
		Inv: []multilca.FunctionalUnit{electricity(1), {inventorytest.Fuel: 2}},
		IA:  []inventory.MethodID{inventorytest.GWP, double},
	})
	require.NoError(t, err)
	res, err := m.Calculate(context.Background())
	require.NoError(t, err)

	table, err := res.ScoreTable(0)
	require.NoError(t, err)
	want := [][]float64{{1, 2}, {4, 8}}
	assert.Empty(t, cmp.Diff(want, table, cmpApprox))
	checkSums(t, res)
	assert.Equal(t, 1, m.Solver().Factorizations())
}

var cmpApprox = cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) <= 1e-12 })

func TestMLCA_Parameterized(t *testing.T) {
	s, err := inventory.LoadYAMLFile("../inventory/testdata/parameters.yaml")
	require.NoError(t, err)
	setup := multilca.Setup{Inv: []multilca.FunctionalUnit{electricity(1)}, IA: []inventory.MethodID{inventorytest.GWP}}

	m, err := multilca.New(context.Background(), s, setup)
	require.NoError(t, err)
	res, err := m.Calculate(context.Background())
	require.NoError(t, err)
	// fuel→electricity = 1*3, fuel→CO2 = 2*3 (activity x shadows project x)
	assert.InDelta(t, 18.0, res.Scores[0][0][0], 1e-9)
	assert.Len(t, m.ExchangeAmounts(), 2)

	m, err = multilca.New(context.Background(), s, setup, multilca.WithoutParameters())
	require.NoError(t, err)
	res, err = m.Calculate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Scores[0][0][0], 1e-12)

	e, err := parameters.New(s)
	require.NoError(t, err)
	_, err = e.Update(map[parameters.Name]float64{{Group: inventory.ProjectGroup, Name: "x"}: 2})
	require.NoError(t, err)
	m, err = multilca.New(context.Background(), s, setup, multilca.WithParameterEngine(e))
	require.NoError(t, err)
	res, err = m.Calculate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 36.0, res.Scores[0][0][0], 1e-9)
}

func TestMLCA_ParameterFailuresBuildNothing(t *testing.T) {
	setup := multilca.Setup{Inv: []multilca.FunctionalUnit{electricity(1)}, IA: []inventory.MethodID{inventorytest.GWP}}

	s := inventorytest.FuelElectricity()
	require.NoError(t, s.AddParameter(inventory.Parameter{Name: "a", Type: inventory.ProjectParam, Formula: "b + 1"}))
	require.NoError(t, s.AddParameter(inventory.Parameter{Name: "b", Type: inventory.ProjectParam, Formula: "a + 1"}))
	m, err := multilca.New(context.Background(), s, setup)
	assert.ErrorIs(t, err, parameters.ErrFormulaCycle)
	assert.Nil(t, m)

	s = inventorytest.FuelElectricity()
	require.NoError(t, s.AddParameter(inventory.Parameter{Name: "p", Type: inventory.ProjectParam, Formula: "q * 2"}))
	_, err = multilca.New(context.Background(), s, setup)
	var ms *formula.MissingSymbolError
	require.ErrorAs(t, err, &ms)
	assert.Equal(t, "q", ms.Name)
}

func TestMLCA_Failures(t *testing.T) {
	s := inventorytest.FuelElectricity()
	setup := multilca.Setup{Inv: []multilca.FunctionalUnit{electricity(1)}, IA: []inventory.MethodID{inventorytest.GWP}}
	m, err := multilca.New(context.Background(), s, setup)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Calculate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, m.Results())

	elec, _ := m.Matrices().Activities.Get(inventorytest.Electricity)
	require.NoError(t, m.Matrices().Technosphere.Set(elec, elec, 0))
	res, err := m.Calculate(context.Background())
	assert.Nil(t, res)
	require.ErrorIs(t, err, multilca.ErrCriticalCalculation)
	require.ErrorIs(t, err, lca.ErrSingularMatrix)
	var ce *multilca.CalculationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, ce.FunctionalUnit)
	assert.Equal(t, -1, ce.Method)

	_, err = multilca.New(context.Background(), s, multilca.Setup{
		Inv: setup.Inv,
		IA:  []inventory.MethodID{{"missing"}},
	})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, ce.Method)
	assert.ErrorIs(t, err, inventory.ErrMethodNotFound)
}

func TestSetup_Validate(t *testing.T) {
	gwp := []inventory.MethodID{inventorytest.GWP}
	cases := []struct {
		name  string
		setup multilca.Setup
		want  error
	}{
		{"empty", multilca.Setup{}, multilca.ErrEmptySetup},
		{"zero amount", multilca.Setup{Inv: []multilca.FunctionalUnit{electricity(0)}, IA: gwp}, multilca.ErrReferenceFlowIsZero},
		{"NaN amount", multilca.Setup{Inv: []multilca.FunctionalUnit{electricity(math.NaN())}, IA: gwp}, multilca.ErrNonFiniteAmount},
		{"infinite amount", multilca.Setup{Inv: []multilca.FunctionalUnit{electricity(math.Inf(-1))}, IA: gwp}, multilca.ErrNonFiniteAmount},
		{"duplicate unit", multilca.Setup{Inv: []multilca.FunctionalUnit{electricity(1), electricity(1)}, IA: gwp}, multilca.ErrDuplicateFunctionalUnit},
		{"duplicate method", multilca.Setup{Inv: []multilca.FunctionalUnit{electricity(1)}, IA: append(gwp, inventorytest.GWP)}, multilca.ErrDuplicateMethod},
		{"ok", multilca.Setup{Inv: []multilca.FunctionalUnit{electricity(1), electricity(2)}, IA: gwp}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.setup.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := multilca.New(context.Background(), inventorytest.FuelElectricity(), multilca.Setup{
		Inv: []multilca.FunctionalUnit{electricity(0)}, IA: gwp,
	})
	assert.ErrorIs(t, err, multilca.ErrReferenceFlowIsZero)
}

func TestSetupFiles(t *testing.T) {
	setup := multilca.Setup{
		Name: "grid",
		Inv: []multilca.FunctionalUnit{
			electricity(1),
			{inventorytest.Fuel: 2, inventorytest.Electricity: 3},
		},
		IA: []inventory.MethodID{inventorytest.GWP, double},
	}
	for _, f := range []multilca.Format{multilca.FormatYAML, multilca.FormatTOML} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, multilca.WriteSetup(&buf, setup, f))
			got, err := multilca.ReadSetup(&buf, f)
			require.NoError(t, err)
			assert.Equal(t, setup, got)
		})
	}

	_, err := multilca.ReadSetup(bytes.NewBufferString("name: x\nbogus: 1\n"), multilca.FormatYAML)
	assert.Error(t, err)
	_, err = multilca.FormatFromPath("setup.json")
	assert.ErrorIs(t, err, multilca.ErrUnknownFormat)
	f, err := multilca.FormatFromPath("setup.YML")
	require.NoError(t, err)
	assert.Equal(t, multilca.FormatYAML, f)
}

func TestSetup_Seeds(t *testing.T) {
	s := multilca.Setup{Inv: []multilca.FunctionalUnit{
		{inventorytest.Fuel: 1},
		{inventorytest.Electricity: 1, inventorytest.Fuel: 2},
	}}
	assert.Equal(t, []inventory.Key{inventorytest.Electricity, inventorytest.Fuel}, s.Seeds())
	assert.Equal(t, "('db', 'electricity'): 1, ('db', 'fuel'): 2", s.Inv[1].String())
}
