// Package sqlitestore persists inventory snapshots in a SQLite database.
//
// The schema is managed by goose migrations embedded in the binary. A
// database is written as a whole (Save replaces the previous content inside
// one transaction) and read back as an in-memory inventory.Store, which is
// the Provider the compute core consumes; the calculation therefore always
// sees a consistent snapshot even if the file changes later.
package sqlitestore
