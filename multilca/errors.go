package multilca

import (
	"errors"
	"fmt"
)

var (
	// ErrReferenceFlowIsZero indicates a functional unit with a zero amount.
	ErrReferenceFlowIsZero = errors.New("multilca: reference flow is zero")

	// ErrNonFiniteAmount indicates a functional unit amount that is NaN or
	// infinite.
	ErrNonFiniteAmount = errors.New("multilca: reference flow amount is not finite")

	// ErrEmptySetup indicates a setup without functional units or methods.
	ErrEmptySetup = errors.New("multilca: setup has no functional units or no methods")

	// ErrDuplicateFunctionalUnit indicates two identical functional units.
	ErrDuplicateFunctionalUnit = errors.New("multilca: duplicate functional unit")

	// ErrDuplicateMethod indicates a method listed twice.
	ErrDuplicateMethod = errors.New("multilca: duplicate method")

	// ErrCriticalCalculation wraps any failure inside the calculation loops.
	ErrCriticalCalculation = errors.New("multilca: critical calculation error")

	// ErrIndexOutOfRange indicates a tensor index outside its axis.
	ErrIndexOutOfRange = errors.New("multilca: index out of range")

	// ErrNotCalculated indicates a result accessor used before Calculate.
	ErrNotCalculated = errors.New("multilca: results not calculated")

	// ErrUnknownFormat indicates a setup file with an unsupported extension.
	ErrUnknownFormat = errors.New("multilca: unknown setup file format")
)

// CalculationError locates a failure in the (scenario, functional unit,
// method) loop. Indices that do not apply are -1.
type CalculationError struct {
	Scenario       int
	FunctionalUnit int
	Method         int
	Err            error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("%v at scenario %d, functional unit %d, method %d: %v",
		ErrCriticalCalculation, e.Scenario, e.FunctionalUnit, e.Method, e.Err)
}

// Unwrap exposes both ErrCriticalCalculation and the cause to errors.Is.
func (e *CalculationError) Unwrap() []error { return []error{ErrCriticalCalculation, e.Err} }
