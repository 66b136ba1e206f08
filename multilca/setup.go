package multilca

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/katalvlaran/lvlca/inventory"
)

// FunctionalUnit is a demand: activity key → amount.
type FunctionalUnit map[inventory.Key]float64

// Keys returns the demanded activities in key order.
func (fu FunctionalUnit) Keys() []inventory.Key {
	return slices.SortedFunc(maps.Keys(fu), inventory.Key.Compare)
}

// String renders the unit as "('db', 'code'): amount" pairs in key order.
func (fu FunctionalUnit) String() string {
	parts := make([]string, 0, len(fu))
	for _, k := range fu.Keys() {
		parts = append(parts, k.String()+": "+strconv.FormatFloat(fu[k], 'g', -1, 64))
	}

	return strings.Join(parts, ", ")
}

// Setup is a calculation setup: ordered functional units × ordered methods.
type Setup struct {
	Name string
	Inv  []FunctionalUnit
	IA   []inventory.MethodID
}

// Validate checks the setup invariants.
//
// Errors:
//   - ErrEmptySetup, ErrReferenceFlowIsZero, ErrNonFiniteAmount,
//     ErrDuplicateFunctionalUnit, ErrDuplicateMethod.
func (s Setup) Validate() error {
	if len(s.Inv) == 0 || len(s.IA) == 0 {
		return fmt.Errorf("setup %q: %w", s.Name, ErrEmptySetup)
	}
	seen := make(map[string]int, len(s.Inv))
	for u, fu := range s.Inv {
		if len(fu) == 0 {
			return fmt.Errorf("setup %q: functional unit %d: %w", s.Name, u, ErrEmptySetup)
		}
		for _, k := range fu.Keys() {
			switch v := fu[k]; {
			case v == 0:
				return fmt.Errorf("setup %q: functional unit %d %v: %w", s.Name, u, k, ErrReferenceFlowIsZero)
			case math.IsNaN(v) || math.IsInf(v, 0):
				return fmt.Errorf("setup %q: functional unit %d %v = %v: %w", s.Name, u, k, v, ErrNonFiniteAmount)
			}
		}
		id := fu.String()
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("setup %q: functional units %d and %d: %w", s.Name, prev, u, ErrDuplicateFunctionalUnit)
		}
		seen[id] = u
	}
	methods := make(map[string]int, len(s.IA))
	for m, id := range s.IA {
		k := id.String()
		if prev, dup := methods[k]; dup {
			return fmt.Errorf("setup %q: methods %d and %d %v: %w", s.Name, prev, m, id, ErrDuplicateMethod)
		}
		methods[k] = m
	}

	return nil
}

// Seeds returns every demanded key, deduplicated, in key order.
func (s Setup) Seeds() []inventory.Key {
	set := make(map[inventory.Key]struct{})
	for _, fu := range s.Inv {
		for k := range fu {
			set[k] = struct{}{}
		}
	}

	return slices.SortedFunc(maps.Keys(set), inventory.Key.Compare)
}
