package scenario_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/inventory/inventorytest"
	"github.com/katalvlaran/lvlca/multilca"
	"github.com/katalvlaran/lvlca/scenario"
)

// ExampleEngine_Prepare resolves a scenario row from activity metadata and
// runs the electricity setup under both of its scenarios.
func ExampleEngine_Prepare() {
	const table = `from activity name,from reference product,from location,from categories,from database,from key,to activity name,to reference product,to location,to categories,to database,to key,flow type,low,high
fuel production,fuel,GLO,,db,,electricity production,electricity,NL,,db,,technosphere,0.25,0.75
`
	ctx := context.Background()
	inv := inventorytest.FuelElectricity()

	tbl, err := scenario.ReadCSV(strings.NewReader(table), "fuel-efficiency.csv")
	if err != nil {
		fmt.Println(err)
		return
	}
	prepared, err := scenario.NewEngine(inv).Prepare(ctx, tbl)
	if err != nil {
		fmt.Println(err)
		return
	}
	r := prepared.Rows[0]
	fmt.Println(r.From.Key, "->", r.To.Key, r.FlowType)

	sm, err := multilca.NewScenario(ctx, inv, multilca.Setup{
		Inv: []multilca.FunctionalUnit{{inventorytest.Electricity: 1}},
		IA:  []inventory.MethodID{inventorytest.GWP},
	}, scenario.NewPlan(prepared))
	if err != nil {
		fmt.Println(err)
		return
	}
	res, err := sm.Calculate(ctx)
	if err != nil {
		fmt.Println(err)
		return
	}
	for s, name := range res.Scenarios {
		score, _ := res.Score(0, 0, s)
		fmt.Printf("%s: %g\n", name, score)
	}
	// Output:
	// ('db', 'fuel') -> ('db', 'electricity') technosphere
	// low: 0.5
	// high: 1.5
}
