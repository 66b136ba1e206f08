package contrib_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlca/assembly"
	"github.com/katalvlaran/lvlca/contrib"
	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/inventory/inventorytest"
	"github.com/katalvlaran/lvlca/multilca"
)

var credit = inventory.K(inventorytest.Database, "credit")

// mixed returns a provider and hand-filled results with process
// contributions elec 0, fuel 3, credit -1 (score 2) for the first cell.
func mixed(t *testing.T) (inventory.Provider, *multilca.Results) {
	t.Helper()
	s := inventorytest.FuelElectricity()
	require.NoError(t, s.AddNode(inventory.Node{Key: credit, Name: "recycling credit", Location: "GLO", ReferenceProduct: "scrap"}))
	double := inventory.MethodID{"double"}

	r := &multilca.Results{
		FunctionalUnits: []multilca.FunctionalUnit{{inventorytest.Electricity: 1}, {inventorytest.Fuel: 1}},
		Methods:         []inventory.MethodID{inventorytest.GWP, double},
		Units:           []string{"kg CO2-Eq", ""},
		Scenarios:       []string{""},
		Activities:      assembly.NewIndex([]inventory.Key{inventorytest.Electricity, inventorytest.Fuel, credit}),
		Flows:           assembly.NewIndex([]inventory.Key{inventorytest.CO2}),
		Scores:          [][][]float64{{{2}, {4}}, {{1}, {2}}},
		ProcessContrib: [][][][]float64{
			{{{0, 3, -1}}, {{0, 6, -2}}},
			{{{0, 1, 0}}, {{0, 2, 0}}},
		},
		FlowContrib: [][][][]float64{
			{{{2}}, {{4}}},
			{{{1}}, {{2}}},
		},
	}

	return s, r
}

func sum(t *contrib.Table) float64 {
	v := t.RestPositive + t.RestNegative
	for _, c := range t.Top {
		v += c.Value
	}

	return v
}

func TestContributions_LimitAndRests(t *testing.T) {
	prov, r := mixed(t)
	tbl, err := contrib.Contributions(r, prov, 0, 0, 0, contrib.Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, tbl.Top, 1)
	assert.Equal(t, inventorytest.Fuel.String(), tbl.Top[0].Label)
	assert.Equal(t, []inventory.Key{inventorytest.Fuel}, tbl.Top[0].Keys)
	assert.InDelta(t, 1.5, tbl.Top[0].Relative, 1e-12)
	assert.Equal(t, 0.0, tbl.RestPositive)
	assert.Equal(t, -1.0, tbl.RestNegative)
	assert.InDelta(t, tbl.Score, sum(tbl), 1e-12)
}

func TestContributions_Normalization(t *testing.T) {
	prov, r := mixed(t)
	tbl, err := contrib.Contributions(r, prov, 0, 0, 0, contrib.Query{Normalize: contrib.Range})
	require.NoError(t, err)
	assert.Equal(t, 4.0, tbl.Denominator)
	require.Len(t, tbl.Top, 2)
	assert.InDelta(t, 0.75, tbl.Top[0].Relative, 1e-12)
	assert.InDelta(t, -0.25, tbl.Top[1].Relative, 1e-12)
	assert.InDelta(t, tbl.Score, sum(tbl), 1e-12)

	tbl, err = contrib.Contributions(r, prov, 0, 0, 0, contrib.Query{Normalize: contrib.Range, Cutoff: 0.5})
	require.NoError(t, err)
	require.Len(t, tbl.Top, 1)
	pos, neg := tbl.Rest()
	assert.Equal(t, 0.0, pos)
	assert.InDelta(t, -0.25, neg, 1e-12)
}

func TestContributions_GroupBy(t *testing.T) {
	prov, r := mixed(t)
	tbl, err := contrib.Contributions(r, prov, 0, 0, 0, contrib.Query{GroupBy: contrib.FieldLocation})
	require.NoError(t, err)
	require.Len(t, tbl.Top, 1)
	assert.Equal(t, "GLO", tbl.Top[0].Label)
	assert.Equal(t, []inventory.Key{inventorytest.Fuel, credit}, tbl.Top[0].Keys)
	assert.Equal(t, 2.0, tbl.Top[0].Value)

	tbl, err = contrib.Contributions(r, prov, 0, 1, 0, contrib.Query{GroupBy: contrib.FieldDatabase})
	require.NoError(t, err)
	require.Len(t, tbl.Top, 1)
	assert.Equal(t, inventorytest.Database, tbl.Top[0].Label)
	assert.Equal(t, 4.0, tbl.Top[0].Value)

	tbl, err = contrib.Contributions(r, prov, 0, 0, 0, contrib.Query{Kind: contrib.Flows, GroupBy: contrib.FieldCategories})
	require.NoError(t, err)
	require.Len(t, tbl.Top, 1)
	assert.Equal(t, "('air',)", tbl.Top[0].Label)

	_, err = contrib.Contributions(r, prov, 0, 0, 0, contrib.Query{GroupBy: "colour"})
	assert.ErrorIs(t, err, contrib.ErrUnknownField)
}

func TestAxes(t *testing.T) {
	prov, r := mixed(t)
	byFU, err := contrib.ByFunctionalUnit(r, prov, 1, 0, contrib.Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, byFU, 2)
	assert.Equal(t, "('db', 'electricity'): 1", byFU[0].Reference)
	assert.Equal(t, 4.0, byFU[0].Score)
	assert.Equal(t, 2.0, byFU[1].Top[0].Value)

	byMethod, err := contrib.ByMethod(r, prov, 0, 0, contrib.Query{Kind: contrib.Flows})
	require.NoError(t, err)
	require.Len(t, byMethod, 2)
	assert.Equal(t, "('double',)", byMethod[1].Reference)
	assert.Equal(t, inventorytest.CO2.String(), byMethod[1].Top[0].Label)

	_, err = contrib.Contributions(r, prov, 2, 0, 0, contrib.Query{})
	assert.ErrorIs(t, err, multilca.ErrIndexOutOfRange)
}

func TestContributions_FromCalculation(t *testing.T) {
	s := inventorytest.FuelElectricity()
	m, err := multilca.New(context.Background(), s, multilca.Setup{
		Inv: []multilca.FunctionalUnit{{inventorytest.Electricity: 1}},
		IA:  []inventory.MethodID{inventorytest.GWP},
	})
	require.NoError(t, err)
	r, err := m.Calculate(context.Background())
	require.NoError(t, err)

	tbl, err := contrib.Contributions(r, s, 0, 0, 0, contrib.Query{GroupBy: contrib.FieldName})
	require.NoError(t, err)
	require.Len(t, tbl.Top, 1)
	assert.Equal(t, "fuel production", tbl.Top[0].Label)
	assert.InDelta(t, 1.0, tbl.Top[0].Relative, 1e-12)
}
