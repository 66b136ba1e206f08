package assembly

import (
	"errors"
	"fmt"
	"slices"

	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/uncertainty"
)

// ErrUnalignedFactor indicates a characterization factor whose flow is not
// known to the provider at all.
var ErrUnalignedFactor = errors.New("assembly: characterization factor for unknown flow")

// Factor is one characterization factor aligned with a row of B.
type Factor struct {
	Row         int
	Flow        inventory.Key
	Amount      float64
	Uncertainty *uncertainty.Descriptor
}

// Characterization is the diagonal of C for one method, stored as a vector
// aligned with Matrices.Flows.
type Characterization struct {
	Method  inventory.MethodID
	Unit    string
	Diag    []float64
	Factors []Factor
	// Dropped counts factors of known flows outside the assembled
	// biosphere rows.
	Dropped int
}

// Characterize aligns the factors of method id with the rows of B.
// Factors for the same flow add up.
//
// Errors:
//   - inventory.ErrMethodNotFound, ErrUnalignedFactor.
func (m *Matrices) Characterize(prov inventory.Provider, id inventory.MethodID) (*Characterization, error) {
	meth, err := prov.Method(id)
	if err != nil {
		return nil, fmt.Errorf("Characterize: %w", err)
	}
	c := &Characterization{
		Method: slices.Clone(meth.ID),
		Unit:   meth.Unit,
		Diag:   make([]float64, m.Flows.Len()),
	}
	for _, cf := range meth.CFs {
		row, ok := m.Flows.Get(cf.Flow)
		if !ok {
			if _, err = prov.Node(cf.Flow); err != nil {
				return nil, fmt.Errorf("Characterize %v: %w: %v", id, ErrUnalignedFactor, cf.Flow)
			}
			c.Dropped++
			continue
		}
		c.Diag[row] += cf.Amount
		c.Factors = append(c.Factors, Factor{Row: row, Flow: cf.Flow, Amount: cf.Amount, Uncertainty: cf.Uncertainty})
	}

	return c, nil
}

// Clone returns a copy whose Diag can be overwritten independently.
func (c *Characterization) Clone() *Characterization {
	out := *c
	out.Method = slices.Clone(c.Method)
	out.Diag = slices.Clone(c.Diag)
	out.Factors = slices.Clone(c.Factors)

	return &out
}

// Apply returns diag(Diag)·v for a vector aligned with the biosphere rows.
func (c *Characterization) Apply(v []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = c.Diag[i] * v[i]
	}

	return out
}
