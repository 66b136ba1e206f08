package formula

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax indicates malformed formula text.
	ErrSyntax = errors.New("formula: syntax error")

	// ErrMissingSymbol indicates a referenced name is not defined in scope.
	ErrMissingSymbol = errors.New("formula: missing symbol")

	// ErrUnknownFunction indicates a call to a function outside the whitelist.
	ErrUnknownFunction = errors.New("formula: unknown function")

	// ErrArity indicates a whitelisted function was called with the wrong
	// number of arguments.
	ErrArity = errors.New("formula: wrong number of arguments")
)

// SyntaxError locates a parse failure.
type SyntaxError struct {
	Pos int    // byte offset into the source
	Msg string // human-readable reason
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v at offset %d: %s", ErrSyntax, e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// MissingSymbolError names an unresolved identifier.
type MissingSymbolError struct {
	Name string
	Pos  int
}

func (e *MissingSymbolError) Error() string {
	return fmt.Sprintf("%v: %q at offset %d", ErrMissingSymbol, e.Name, e.Pos)
}

func (e *MissingSymbolError) Unwrap() error { return ErrMissingSymbol }
