package montecarlo_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/inventory/inventorytest"
	"github.com/katalvlaran/lvlca/montecarlo"
)

// ExampleMonteCarlo_Run samples every stream twice from the same seed. The
// runs agree draw for draw and the assembled matrices are left untouched.
func ExampleMonteCarlo_Run() {
	ctx := context.Background()
	inv, err := inventory.LoadYAML(strings.NewReader(uncertainYAML))
	if err != nil {
		fmt.Println(err)
		return
	}

	var runs []*montecarlo.Results
	var last *montecarlo.MonteCarlo
	for range 2 {
		mc, err := montecarlo.New(ctx, inv, setup, montecarlo.All, 7)
		if err != nil {
			fmt.Println(err)
			return
		}
		res, err := mc.Run(ctx, 200)
		if err != nil {
			fmt.Println(err)
			return
		}
		runs, last = append(runs, res), mc
	}

	sum, _ := runs[0].Summary(0, 0)
	mats := last.MLCA().Matrices()
	fuel, _ := mats.Products.Get(inventorytest.Fuel)
	elec, _ := mats.Activities.Get(inventorytest.Electricity)
	cell, _ := mats.Technosphere.At(fuel, elec)

	fmt.Println("seed:", runs[0].Seed, "iterations:", runs[0].Iterations())
	fmt.Println("reproducible:", cmp.Equal(runs[0].Scores, runs[1].Scores))
	fmt.Println("ordered percentiles:", sum.Lower <= sum.Median && sum.Median <= sum.Upper)
	fmt.Println("fuel input after run:", cell)
	// Output:
	// seed: 7 iterations: 200
	// reproducible: true
	// ordered percentiles: true
	// fuel input after run: -0.5
}
