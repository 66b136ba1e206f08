package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/inventory/sqlitestore"
	"github.com/katalvlaran/lvlca/parameters"
	"github.com/katalvlaran/lvlca/progress"
	"github.com/katalvlaran/lvlca/scenario"
)

// InventoryFormat names an inventory file format.
type InventoryFormat string

// Inventory file formats.
const (
	FormatYAML   InventoryFormat = "yaml"
	FormatSQLite InventoryFormat = "sqlite"
)

// InventoryFormatOf infers the format from the file extension.
func InventoryFormatOf(path string) (InventoryFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownInventoryFormat, path)
}

// LoadInventory reads a YAML snapshot or a SQLite store into memory.
// biosphere overrides the biosphere database recorded in the file when
// non-empty.
func LoadInventory(ctx context.Context, path, biosphere string, opts ...sqlitestore.Option) (*inventory.Store, error) {
	format, err := InventoryFormatOf(path)
	if err != nil {
		return nil, err
	}
	var sopts []inventory.StoreOption
	if biosphere != "" {
		sopts = append(sopts, inventory.WithBiosphere(biosphere))
	}
	switch format {
	case FormatSQLite:
		db, err := sqlitestore.Open(ctx, path, opts...)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		return db.Load(ctx, sopts...)
	default:
		return inventory.LoadYAMLFile(path, sopts...)
	}
}

// Parameters evaluates every parameter scope and the parameterized
// exchanges of the inventory.
func (s *Session) Parameters(ctx context.Context) (res parameters.Result, err error) {
	r := s.begin("parameters")
	defer func() { err = r.end(err) }()

	if err = ctx.Err(); err != nil {
		return res, err
	}
	e, err := parameters.New(s.prov)
	if err != nil {
		return res, err
	}
	if res, err = e.RecalculateAll(); err != nil {
		return res, err
	}
	r.log.Info("parameters evaluated", "exchanges", len(res.Exchanges), "values", len(res.Flatten()))

	return res, nil
}

// Import persists inv into the SQLite store at path, replacing its content.
// inv is usually the session provider itself.
func (s *Session) Import(ctx context.Context, inv *inventory.Store, path string) (err error) {
	r := s.begin("import")
	defer func() { err = r.end(err) }()

	r.emit(progress.DBWrite, 0, 1, nil)
	db, err := sqlitestore.Open(ctx, path, sqlitestore.WithLogger(r.log.With("component", "sqlitestore")))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()
	if err = db.Save(ctx, inv); err != nil {
		return err
	}
	r.emit(progress.DBWrite, 1, 1, nil)

	return nil
}

// Template builds a scenario table listing every input exchange of
// activities, pre-filled with the stored amounts under each name.
func (s *Session) Template(activities []inventory.Key, names []string) (*scenario.Table, error) {
	return scenario.Template(s.prov, activities, names)
}
