package assembly

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/lvlca/inventory"
)

var (
	// ErrDanglingExchange indicates an exchange whose endpoint does not
	// resolve in the matching dictionary.
	ErrDanglingExchange = errors.New("assembly: dangling exchange")

	// ErrNoActivities indicates that the selected databases hold no
	// technosphere activity.
	ErrNoActivities = errors.New("assembly: no activities to assemble")
)

// Direction names the dictionary a dangling key was looked up in.
type Direction string

// Dictionary directions.
const (
	DirProduct   Direction = "product"
	DirActivity  Direction = "activity"
	DirBiosphere Direction = "biosphere"
)

// DanglingExchangeError locates an exchange endpoint outside the assembled
// dictionaries.
type DanglingExchangeError struct {
	Key        inventory.Key
	Direction  Direction
	ExchangeID int
}

func (e *DanglingExchangeError) Error() string {
	return fmt.Sprintf("%v: %v not in %s dictionary (exchange %d)", ErrDanglingExchange, e.Key, e.Direction, e.ExchangeID)
}

// Unwrap lets errors.Is(err, ErrDanglingExchange) match.
func (e *DanglingExchangeError) Unwrap() error { return ErrDanglingExchange }
