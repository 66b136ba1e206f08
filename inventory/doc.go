// Package inventory defines the data model of an LCA inventory (nodes,
// exchanges, impact methods, parameters) and the read-only Provider
// capability consumed by the compute core.
//
// Store is the in-memory Provider. It is safe for concurrent use: all
// mutators take a write lock, all accessors a read lock, and every accessor
// returns copies in deterministic (sorted or insertion) order.
//
// A Store can be loaded from and written to a YAML snapshot (see
// LoadYAML/WriteYAML); inventory/sqlitestore persists the same snapshot in a
// SQLite database.
//
// Errors:
//
//	ErrNodeNotFound                - unknown key.
//	ErrMethodNotFound              - unknown impact method.
//	ErrDatabaseNotFound            - unknown database name.
//	ErrExchangeNotFound            - unknown exchange id.
//	ErrInvalidExchange             - missing/invalid amount or type.
//	ErrIncompatibleDatabaseNaming  - exchange endpoints in the wrong kind of database.
//	ErrDuplicate                   - node, method or parameter defined twice.
//	ErrInvalidParameter            - empty or reserved parameter name, unknown scope.
package inventory
