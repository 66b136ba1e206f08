package multilca_test

import (
	"context"
	"fmt"

	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/inventory/inventorytest"
	"github.com/katalvlaran/lvlca/multilca"
)

// ExampleMLCA_Calculate scores two functional units against one method.
// Electricity consumes 0.5 kg fuel per kWh and fuel emits 2 kg CO2 per kg.
func ExampleMLCA_Calculate() {
	ctx := context.Background()
	setup := multilca.Setup{
		Name: "grid",
		Inv: []multilca.FunctionalUnit{
			{inventorytest.Electricity: 1},
			{inventorytest.Fuel: 2},
		},
		IA: []inventory.MethodID{inventorytest.GWP},
	}

	m, err := multilca.New(ctx, inventorytest.FuelElectricity(), setup)
	if err != nil {
		fmt.Println(err)
		return
	}
	res, err := m.Calculate(ctx)
	if err != nil {
		fmt.Println(err)
		return
	}
	for u, fu := range res.FunctionalUnits {
		score, _ := res.Score(u, 0, 0)
		fmt.Printf("%s -> %g %s\n", fu, score, res.Units[0])
	}
	// Output:
	// ('db', 'electricity'): 1 -> 1 kg CO2-Eq
	// ('db', 'fuel'): 2 -> 4 kg CO2-Eq
}
