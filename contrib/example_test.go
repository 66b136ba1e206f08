package contrib_test

import (
	"context"
	"fmt"

	"github.com/katalvlaran/lvlca/contrib"
	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/inventory/inventorytest"
	"github.com/katalvlaran/lvlca/multilca"
)

// ExampleByFunctionalUnit ranks the processes behind the climate score of
// each functional unit, grouped by activity name.
func ExampleByFunctionalUnit() {
	ctx := context.Background()
	inv := inventorytest.FuelElectricity()
	m, _ := multilca.New(ctx, inv, multilca.Setup{
		Inv: []multilca.FunctionalUnit{{inventorytest.Electricity: 1}, {inventorytest.Fuel: 2}},
		IA:  []inventory.MethodID{inventorytest.GWP},
	})
	res, _ := m.Calculate(ctx)

	tables, err := contrib.ByFunctionalUnit(res, inv, 0, 0, contrib.Query{GroupBy: contrib.FieldName})
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, t := range tables {
		fmt.Printf("%s = %g\n", t.Reference, t.Score)
		for _, c := range t.Top {
			fmt.Printf("  %s %g (%.0f%%)\n", c.Label, c.Value, 100*c.Relative)
		}
	}
	// Output:
	// ('db', 'electricity'): 1 = 1
	//   fuel production 1 (100%)
	// ('db', 'fuel'): 2 = 4
	//   fuel production 4 (100%)
}
