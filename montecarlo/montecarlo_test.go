package montecarlo_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/inventory/inventorytest"
	"github.com/katalvlaran/lvlca/montecarlo"
	"github.com/katalvlaran/lvlca/multilca"
	"github.com/katalvlaran/lvlca/parameters"
	"github.com/katalvlaran/lvlca/progress"
	"github.com/katalvlaran/lvlca/uncertainty"
)

const uncertainYAML = `
biosphere: biosphere3
databases:
  - name: biosphere3
    nodes:
      - code: co2
        name: Carbon dioxide
        type: emission
        categories: [air]
  - name: db
    nodes:
      - code: fuel
        name: fuel production
        location: GLO
        reference_product: fuel
        exchanges:
          - input: [db, fuel]
            type: production
            amount: 1
          - input: [biosphere3, co2]
            type: biosphere
            amount: 2
            uncertainty: {type: 2, loc: 0.6931471805599453, scale: 0.1}
      - code: electricity
        name: electricity production
        location: NL
        reference_product: electricity
        exchanges:
          - input: [db, electricity]
            type: production
            amount: 1
          - input: [db, fuel]
            type: technosphere
            amount: 0.5
            uncertainty: {type: 3, loc: 0.5, scale: 0.05, minimum: 0.3, maximum: 0.7}
methods:
  - id: [IPCC 2021, climate change, GWP 100a]
    unit: kg CO2-Eq
    cfs:
      - flow: [biosphere3, co2]
        amount: 1
        uncertainty: {type: 4, minimum: 0.9, maximum: 1.1}
`

const parameterYAML = `
biosphere: biosphere3
databases:
  - name: biosphere3
    nodes:
      - code: co2
        name: Carbon dioxide
        type: emission
  - name: db
    nodes:
      - code: fuel
        name: fuel production
        exchanges:
          - input: [db, fuel]
            type: production
            amount: 1
          - input: [biosphere3, co2]
            type: biosphere
            amount: 2
            formula: x * 2
            uncertainty: {type: 2, loc: 0.6931471805599453, scale: 0.5}
      - code: electricity
        name: electricity production
        exchanges:
          - input: [db, electricity]
            type: production
            amount: 1
          - input: [db, fuel]
            type: technosphere
            amount: 0.5
            formula: x * 0.5
methods:
  - id: [IPCC 2021, climate change, GWP 100a]
    cfs:
      - flow: [biosphere3, co2]
        amount: 1
parameters:
  project:
    - name: x
      amount: 1
      uncertainty: {type: 4, minimum: 1, maximum: 2}
`

func load(t *testing.T, doc string) *inventory.Store {
	t.Helper()
	s, err := inventory.LoadYAML(strings.NewReader(doc))
	require.NoError(t, err)

	return s
}

var setup = multilca.Setup{
	Inv: []multilca.FunctionalUnit{{inventorytest.Electricity: 1}},
	IA:  []inventory.MethodID{inventorytest.GWP},
}

func run(t *testing.T, prov inventory.Provider, include montecarlo.Include, seed uint64, n int, opts ...montecarlo.Option) *montecarlo.Results {
	t.Helper()
	mc, err := montecarlo.New(context.Background(), prov, setup, include, seed, opts...)
	require.NoError(t, err)
	res, err := mc.Run(context.Background(), n)
	require.NoError(t, err)

	return res
}

func TestRun_Reproducible(t *testing.T) {
	s := load(t, uncertainYAML)
	include := montecarlo.Include{Technosphere: true, Biosphere: true}

	first := run(t, s, include, 42, 100)
	second := run(t, s, include, 42, 100)
	require.Len(t, first.Scores, 100)
	assert.Empty(t, cmp.Diff(first.Scores, second.Scores))

	other := run(t, s, include, 43, 100)
	assert.NotEmpty(t, cmp.Diff(first.Scores, other.Scores))

	sum, err := first.Summary(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sum.Mean, 0.1)
	assert.Greater(t, sum.StdDev, 0.0)
	assert.LessOrEqual(t, sum.Lower, sum.Median)
	assert.LessOrEqual(t, sum.Median, sum.Upper)
}

func TestRun_StreamsAreIndependent(t *testing.T) {
	s := load(t, uncertainYAML)
	fuel, elec := 1, 0

	a := run(t, s, montecarlo.Include{Technosphere: true}, 7, 10, montecarlo.WithSnapshots())
	b := run(t, s, montecarlo.Include{Technosphere: true, CF: true}, 7, 10, montecarlo.WithSnapshots())
	require.Len(t, a.Technosphere, 10)
	require.Len(t, b.Biosphere, 10)
	for it := range 10 {
		va, err := a.Technosphere[it].At(fuel, elec)
		require.NoError(t, err)
		vb, err := b.Technosphere[it].At(fuel, elec)
		require.NoError(t, err)
		assert.Equal(t, va, vb)
		assert.GreaterOrEqual(t, -va, 0.3)
		assert.LessOrEqual(t, -va, 0.7)
	}
	assert.NotEqual(t, a.Scores, b.Scores)
}

func TestRun_Deterministic(t *testing.T) {
	s := load(t, uncertainYAML)
	var stages []progress.Stage
	mc, err := montecarlo.New(context.Background(), s, setup, montecarlo.Include{}, 1,
		montecarlo.WithProgress(func(st progress.Stage, _, _ int) { stages = append(stages, st) }))
	require.NoError(t, err)
	res, err := mc.Run(context.Background(), 5)
	require.NoError(t, err)
	for _, sc := range res.Scores {
		assert.InDelta(t, 1.0, sc[0][0], 1e-12)
	}
	sum, err := res.Summary(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sum.StdDev, 1e-12)
	assert.InDelta(t, 1.0, sum.Median, 1e-12)
	assert.Equal(t, progress.Finalize, stages[len(stages)-1])
	assert.Contains(t, stages, progress.MCIter)
	assert.Equal(t, 1, mc.MLCA().Solver().Factorizations())

	_, err = res.Summary(1, 0)
	assert.ErrorIs(t, err, multilca.ErrIndexOutOfRange)
	_, err = mc.Run(context.Background(), 0)
	assert.ErrorIs(t, err, montecarlo.ErrNoIterations)
}

func TestRun_ParametersWinOverExchangeSamples(t *testing.T) {
	s := load(t, parameterYAML)
	mc, err := montecarlo.New(context.Background(), s, setup, montecarlo.Include{Biosphere: true, Parameters: true}, 42)
	require.NoError(t, err)
	res, err := mc.Run(context.Background(), 20)
	require.NoError(t, err)

	require.Equal(t, []parameters.Name{{Group: inventory.ProjectGroup, Name: "x"}}, res.ParameterNames)
	require.Len(t, res.Parameters, 20)
	for it, p := range res.Parameters {
		x := p[0]
		assert.GreaterOrEqual(t, x, 1.0)
		assert.LessOrEqual(t, x, 2.0)
		// fuel = 0.5x per kWh, CO2 = 2x per kg fuel.
		assert.InDelta(t, x*x, res.Scores[it][0][0], 1e-9)
	}

	// The assembled system is restored after the run.
	elec, _ := mc.MLCA().Matrices().Activities.Get(inventorytest.Electricity)
	fuel, _ := mc.MLCA().Matrices().Products.Get(inventorytest.Fuel)
	v, err := mc.MLCA().Matrices().Technosphere.At(fuel, elec)
	require.NoError(t, err)
	assert.Equal(t, -0.5, v)
}

// brokenProvider reports an unsampleable descriptor on every biosphere
// exchange.
type brokenProvider struct{ *inventory.Store }

func (p brokenProvider) Exchanges(key inventory.Key, dir inventory.Direction) ([]inventory.Exchange, error) {
	xs, err := p.Store.Exchanges(key, dir)
	for i := range xs {
		if xs[i].Type == inventory.Biosphere {
			d := uncertainty.New(uncertainty.Normal)
			d.Loc, d.Scale = 2, -1
			xs[i].Uncertainty = &d
		}
	}

	return xs, err
}

func TestNew_InvalidUncertainty(t *testing.T) {
	prov := brokenProvider{load(t, uncertainYAML)}
	_, err := montecarlo.New(context.Background(), prov, setup, montecarlo.Include{Biosphere: true}, 1)
	assert.ErrorIs(t, err, montecarlo.ErrExchangeErrorValues)
	assert.ErrorIs(t, err, uncertainty.ErrInvalidParameters)

	_, err = montecarlo.New(context.Background(), prov, setup, montecarlo.Include{Technosphere: true}, 1)
	assert.NoError(t, err)
}

func TestRun_Canceled(t *testing.T) {
	mc, err := montecarlo.New(context.Background(), load(t, uncertainYAML), setup, montecarlo.All, 1)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = mc.Run(ctx, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mc.MLCA().Solver().Factorizations())
}
