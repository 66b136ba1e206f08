package inventory

import "errors"

// Sentinel errors for inventory operations.
var (
	// ErrNodeNotFound indicates a key that resolves to no node.
	ErrNodeNotFound = errors.New("inventory: node not found")

	// ErrMethodNotFound indicates an unknown impact method.
	ErrMethodNotFound = errors.New("inventory: method not found")

	// ErrDatabaseNotFound indicates an unknown database name.
	ErrDatabaseNotFound = errors.New("inventory: database not found")

	// ErrExchangeNotFound indicates an unknown exchange identifier.
	ErrExchangeNotFound = errors.New("inventory: exchange not found")

	// ErrInvalidExchange indicates an exchange with a missing or invalid
	// amount or type.
	ErrInvalidExchange = errors.New("inventory: invalid exchange")

	// ErrIncompatibleDatabaseNaming indicates an exchange whose endpoints
	// live in the wrong kind of database (e.g. an activity inside the
	// biosphere database).
	ErrIncompatibleDatabaseNaming = errors.New("inventory: incompatible database naming")

	// ErrDuplicate indicates a node, method or parameter defined twice.
	ErrDuplicate = errors.New("inventory: duplicate definition")

	// ErrInvalidParameter indicates an unusable parameter definition.
	ErrInvalidParameter = errors.New("inventory: invalid parameter")

	// ErrInvalidKey indicates a malformed textual key.
	ErrInvalidKey = errors.New("inventory: invalid key")
)
