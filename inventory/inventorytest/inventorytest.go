// Package inventorytest provides small in-memory inventories shared by the
// tests of the compute packages.
package inventorytest

import (
	"github.com/katalvlaran/lvlca/inventory"
)

// Database is the technosphere database of the fixtures.
const Database = "db"

// Fixture keys.
var (
	Fuel        = inventory.K(Database, "fuel")
	Electricity = inventory.K(Database, "electricity")
	CO2         = inventory.K(inventory.DefaultBiosphere, "co2")
	GWP         = inventory.MethodID{"IPCC 2021", "climate change", "GWP 100a"}
)

// FuelElectricity builds the two-activity inventory
//
//	A = [[1, -0.5], [0, 1]]   (columns: fuel, electricity)
//	B = [[2, 0]]              (row: CO2)
//
// with one method characterizing CO2 at 1.0. Exchange ids are, in order:
// 0 fuel production, 1 fuel→CO2, 2 electricity production,
// 3 fuel→electricity.
func FuelElectricity() *inventory.Store {
	s := inventory.NewStore()
	must(s.AddNode(inventory.Node{Key: CO2, Name: "Carbon dioxide", Type: inventory.TypeEmission, Unit: "kilogram", Categories: []string{"air"}}))
	must(s.AddNode(inventory.Node{Key: Fuel, Name: "fuel production", Type: inventory.TypeProcess, Unit: "kilogram", Location: "GLO", ReferenceProduct: "fuel"}))
	must(s.AddNode(inventory.Node{Key: Electricity, Name: "electricity production", Type: inventory.TypeProcess, Unit: "kilowatt hour", Location: "NL", ReferenceProduct: "electricity"}))

	mustID(s.AddExchange(inventory.Exchange{Input: Fuel, Output: Fuel, Type: inventory.Production, Amount: 1}))
	mustID(s.AddExchange(inventory.Exchange{Input: CO2, Output: Fuel, Type: inventory.Biosphere, Amount: 2}))
	mustID(s.AddExchange(inventory.Exchange{Input: Electricity, Output: Electricity, Type: inventory.Production, Amount: 1}))
	mustID(s.AddExchange(inventory.Exchange{Input: Fuel, Output: Electricity, Type: inventory.Technosphere, Amount: 0.5}))

	must(s.AddMethod(inventory.Method{ID: GWP, Unit: "kg CO2-Eq", CFs: []inventory.CF{{Flow: CO2, Amount: 1}}}))

	return s
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func mustID(_ int, err error) { must(err) }
