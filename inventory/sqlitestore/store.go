package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/katalvlaran/lvlca/inventory"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("sqlitestore: store is closed")

const metaBiosphere = "biosphere"

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger; nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store is a SQLite-backed inventory snapshot.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite file at path, applies the
// connection pragmas and runs pending migrations. Use ":memory:" for a
// private in-memory database.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{logger: slog.Default().With("component", "sqlitestore")}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	if _, err = db.ExecContext(ctx, `
		PRAGMA journal_mode = WAL;
		PRAGMA foreign_keys = ON;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set sqlite pragmas: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	s.db = db
	if err = s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil

	return err
}

// gooseLogger routes migration output into slog.
type gooseLogger struct{ l *slog.Logger }

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.l.Debug(fmt.Sprintf(format, v...))
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.l.Error(fmt.Sprintf(format, v...))
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys, goose.WithLogger(gooseLogger{s.logger}))
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}
	for _, r := range results {
		s.logger.Info("applied migration", "version", r.Source.Version, "duration", r.Duration)
	}

	return nil
}

// Save replaces the stored content with the snapshot of inv.
func (s *Store) Save(ctx context.Context, inv *inventory.Store) error {
	if s.db == nil {
		return ErrClosed
	}
	snap := inv.Snapshot()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Save: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, q := range []string{
		`DELETE FROM parameters`, `DELETE FROM characterization_factors`, `DELETE FROM methods`,
		`DELETE FROM exchanges`, `DELETE FROM nodes`, `DELETE FROM databases`, `DELETE FROM meta`,
	} {
		if _, err = tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("Save: clear: %w", err)
		}
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES (?, ?)`, metaBiosphere, snap.Biosphere); err != nil {
		return fmt.Errorf("Save: meta: %w", err)
	}

	var nExch int
	for _, db := range snap.Databases {
		if _, err = tx.ExecContext(ctx, `INSERT INTO databases(name) VALUES (?)`, db.Name); err != nil {
			return fmt.Errorf("Save: database %q: %w", db.Name, err)
		}
		for _, n := range db.Nodes {
			props, err := marshalBlob(n.Properties, len(n.Properties) == 0)
			if err != nil {
				return err
			}
			cats := ""
			if len(n.Categories) > 0 {
				cats = inventory.FormatTuple(n.Categories)
			}
			if _, err = tx.ExecContext(ctx, `INSERT INTO nodes(database, code, name, type, unit, location,
				reference_product, categories, properties, parameter_group) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				db.Name, n.Code, n.Name, string(n.Type), n.Unit, n.Location, n.ReferenceProduct, cats, props, n.ParameterGroup,
			); err != nil {
				return fmt.Errorf("Save: node (%s, %s): %w", db.Name, n.Code, err)
			}
		}
	}
	// Exchanges go in a second pass so that every input node exists.
	for _, db := range snap.Databases {
		for _, n := range db.Nodes {
			for _, x := range n.Exchanges {
				unc, err := marshalBlob(x.Uncertainty, x.Uncertainty == nil)
				if err != nil {
					return err
				}
				ped, err := marshalBlob(x.Pedigree, len(x.Pedigree) == 0)
				if err != nil {
					return err
				}
				if _, err = tx.ExecContext(ctx, `INSERT INTO exchanges(output_db, output_code, input_db, input_code,
					type, amount, formula, grp, uncertainty, pedigree) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					db.Name, n.Code, x.Input[0], x.Input[1], string(x.Type), *x.Amount, x.Formula, x.Group, unc, ped,
				); err != nil {
					return fmt.Errorf("Save: exchange of (%s, %s): %w", db.Name, n.Code, err)
				}
				nExch++
			}
		}
	}

	for _, m := range snap.Methods {
		res, err := tx.ExecContext(ctx, `INSERT INTO methods(identity, unit) VALUES (?, ?)`,
			inventory.FormatTuple(m.ID), m.Unit)
		if err != nil {
			return fmt.Errorf("Save: method %v: %w", m.ID, err)
		}
		mid, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("Save: method %v: %w", m.ID, err)
		}
		for i, cf := range m.CFs {
			unc, err := marshalBlob(cf.Uncertainty, cf.Uncertainty == nil)
			if err != nil {
				return err
			}
			if _, err = tx.ExecContext(ctx, `INSERT INTO characterization_factors(method_id, position, flow_db,
				flow_code, amount, uncertainty) VALUES (?, ?, ?, ?, ?, ?)`,
				mid, i, cf.Flow[0], cf.Flow[1], cf.Amount, unc,
			); err != nil {
				return fmt.Errorf("Save: method %v factor %d: %w", m.ID, i, err)
			}
		}
	}

	scopes := []struct {
		scope inventory.ParamType
		docs  []inventory.ParameterDoc
	}{
		{inventory.ProjectParam, snap.Parameters.Project},
		{inventory.DatabaseParam, snap.Parameters.Database},
		{inventory.ActivityParam, snap.Parameters.Activity},
	}
	for _, sc := range scopes {
		for _, p := range sc.docs {
			unc, err := marshalBlob(p.Uncertainty, p.Uncertainty == nil)
			if err != nil {
				return err
			}
			ped, err := marshalBlob(p.Pedigree, len(p.Pedigree) == 0)
			if err != nil {
				return err
			}
			if _, err = tx.ExecContext(ctx, `INSERT INTO parameters(scope, grp, database, name, amount, formula,
				uncertainty, pedigree) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				string(sc.scope), p.Group, p.Database, p.Name, p.Amount, p.Formula, unc, ped,
			); err != nil {
				return fmt.Errorf("Save: parameter %s: %w", p.Name, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("Save: commit: %w", err)
	}
	s.logger.Info("saved inventory", "databases", len(snap.Databases), "exchanges", nExch, "methods", len(snap.Methods))

	return nil
}

// Load reads the stored snapshot into a new in-memory inventory.Store.
func (s *Store) Load(ctx context.Context, opts ...inventory.StoreOption) (*inventory.Store, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	inv, err := inventory.FromSnapshot(snap, opts...)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	return inv, nil
}

// Snapshot reads the stored content without building a Store.
func (s *Store) Snapshot(ctx context.Context) (inventory.Snapshot, error) {
	var snap inventory.Snapshot
	if s.db == nil {
		return snap, ErrClosed
	}
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaBiosphere).Scan(&snap.Biosphere)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return snap, fmt.Errorf("Snapshot: meta: %w", err)
	}

	dbIndex := map[string]int{}
	nodeIndex := map[inventory.Key][2]int{}
	if err = s.each(ctx, `SELECT name FROM databases ORDER BY name`, func(r *sql.Rows) error {
		var name string
		if err := r.Scan(&name); err != nil {
			return err
		}
		dbIndex[name] = len(snap.Databases)
		snap.Databases = append(snap.Databases, inventory.DatabaseDoc{Name: name, Nodes: []inventory.NodeDoc{}})
		return nil
	}); err != nil {
		return snap, fmt.Errorf("Snapshot: databases: %w", err)
	}

	if err = s.each(ctx, `SELECT database, code, name, type, unit, location, reference_product, categories,
		properties, parameter_group FROM nodes ORDER BY database, code`, func(r *sql.Rows) error {
		var db, cats, props, typ string
		var n inventory.NodeDoc
		if err := r.Scan(&db, &n.Code, &n.Name, &typ, &n.Unit, &n.Location, &n.ReferenceProduct, &cats, &props, &n.ParameterGroup); err != nil {
			return err
		}
		n.Type = inventory.NodeType(typ)
		if cats != "" {
			parts, err := inventory.ParseTuple(cats)
			if err != nil {
				return err
			}
			n.Categories = parts
		}
		if err := unmarshalBlob(props, &n.Properties); err != nil {
			return err
		}
		di, ok := dbIndex[db]
		if !ok {
			return fmt.Errorf("%w: %q", inventory.ErrDatabaseNotFound, db)
		}
		nodeIndex[inventory.K(db, n.Code)] = [2]int{di, len(snap.Databases[di].Nodes)}
		snap.Databases[di].Nodes = append(snap.Databases[di].Nodes, n)
		return nil
	}); err != nil {
		return snap, fmt.Errorf("Snapshot: nodes: %w", err)
	}

	if err = s.each(ctx, `SELECT output_db, output_code, input_db, input_code, type, amount, formula, grp,
		uncertainty, pedigree FROM exchanges ORDER BY id`, func(r *sql.Rows) error {
		var out inventory.Key
		var x inventory.ExchangeDoc
		var typ, unc, ped string
		var amount float64
		if err := r.Scan(&out.Database, &out.Code, &x.Input[0], &x.Input[1], &typ, &amount, &x.Formula, &x.Group, &unc, &ped); err != nil {
			return err
		}
		x.Type = inventory.ExchangeType(typ)
		x.Amount = &amount
		if err := unmarshalBlob(unc, &x.Uncertainty); err != nil {
			return err
		}
		if err := unmarshalBlob(ped, &x.Pedigree); err != nil {
			return err
		}
		at, ok := nodeIndex[out]
		if !ok {
			return fmt.Errorf("%w: %v", inventory.ErrNodeNotFound, out)
		}
		n := &snap.Databases[at[0]].Nodes[at[1]]
		n.Exchanges = append(n.Exchanges, x)
		return nil
	}); err != nil {
		return snap, fmt.Errorf("Snapshot: exchanges: %w", err)
	}

	methodIndex := map[int64]int{}
	if err = s.each(ctx, `SELECT id, identity, unit FROM methods ORDER BY id`, func(r *sql.Rows) error {
		var id int64
		var identity string
		var m inventory.MethodDoc
		if err := r.Scan(&id, &identity, &m.Unit); err != nil {
			return err
		}
		parts, err := inventory.ParseTuple(identity)
		if err != nil {
			return err
		}
		m.ID = parts
		m.CFs = []inventory.CFDoc{}
		methodIndex[id] = len(snap.Methods)
		snap.Methods = append(snap.Methods, m)
		return nil
	}); err != nil {
		return snap, fmt.Errorf("Snapshot: methods: %w", err)
	}
	if err = s.each(ctx, `SELECT method_id, flow_db, flow_code, amount, uncertainty
		FROM characterization_factors ORDER BY method_id, position`, func(r *sql.Rows) error {
		var mid int64
		var cf inventory.CFDoc
		var unc string
		if err := r.Scan(&mid, &cf.Flow[0], &cf.Flow[1], &cf.Amount, &unc); err != nil {
			return err
		}
		if err := unmarshalBlob(unc, &cf.Uncertainty); err != nil {
			return err
		}
		mi := methodIndex[mid]
		snap.Methods[mi].CFs = append(snap.Methods[mi].CFs, cf)
		return nil
	}); err != nil {
		return snap, fmt.Errorf("Snapshot: characterization factors: %w", err)
	}

	if err = s.each(ctx, `SELECT scope, grp, database, name, amount, formula, uncertainty, pedigree
		FROM parameters ORDER BY id`, func(r *sql.Rows) error {
		var scope, unc, ped string
		var p inventory.ParameterDoc
		if err := r.Scan(&scope, &p.Group, &p.Database, &p.Name, &p.Amount, &p.Formula, &unc, &ped); err != nil {
			return err
		}
		if err := unmarshalBlob(unc, &p.Uncertainty); err != nil {
			return err
		}
		if err := unmarshalBlob(ped, &p.Pedigree); err != nil {
			return err
		}
		switch inventory.ParamType(scope) {
		case inventory.ProjectParam:
			snap.Parameters.Project = append(snap.Parameters.Project, p)
		case inventory.DatabaseParam:
			snap.Parameters.Database = append(snap.Parameters.Database, p)
		default:
			snap.Parameters.Activity = append(snap.Parameters.Activity, p)
		}
		return nil
	}); err != nil {
		return snap, fmt.Errorf("Snapshot: parameters: %w", err)
	}

	return snap, nil
}

// each runs query and calls fn for every row.
func (s *Store) each(ctx context.Context, query string, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err = fn(rows); err != nil {
			return err
		}
	}

	return rows.Err()
}

// marshalBlob renders v as compact YAML, or "" when empty is true.
func marshalBlob(v any, empty bool) (string, error) {
	if empty {
		return "", nil
	}
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode column: %w", err)
	}

	return string(b), nil
}

// unmarshalBlob decodes a YAML column; "" leaves v untouched.
func unmarshalBlob(s string, v any) error {
	if s == "" {
		return nil
	}
	if err := yaml.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decode column: %w", err)
	}

	return nil
}
