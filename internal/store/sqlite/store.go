// Package sqlite provides the SQLite-backed scenario store. It serves input
// tables to ReadFromStore and keeps imported results for
// PostProcessResults. Every data table carries a leading target column so
// the subproblems and stages of one scenario share a database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kingrea/gridrun/internal/store/sqlite/migrations"
	"github.com/kingrea/gridrun/internal/store/sqlitemigrate"
	"github.com/kingrea/gridrun/internal/tabular"
)

const targetColumn = "target"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store persists scenario tables in SQLite.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

// ImportRecord is one row of the import log.
type ImportRecord struct {
	Table      string
	RunID      string
	Target     string
	Rows       int
	ImportedAt time.Time
}

// Open opens a SQLite store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, clock: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutTable replaces target's rows of a data table with t.
func (s *Store) PutTable(ctx context.Context, target, name string, t tabular.Table) error {
	return s.replace(ctx, target, name, t, nil)
}

// ImportTable replaces target's rows of a data table with t and records the
// import in the log.
func (s *Store) ImportTable(ctx context.Context, runID, target, name string, t tabular.Table) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	return s.replace(ctx, target, name, t, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO import_log (table_name, run_id, target, row_count, imported_at) VALUES (?, ?, ?, ?, ?)`,
			name, runID, target, t.Len(), s.clock().UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("record import of %s: %w", name, err)
		}
		return nil
	})
}

// ReadTable returns the rows of a data table stored for target. A target
// without rows of its own reads the scenario-wide rows (stored with an empty
// target) instead; the two scopes are never merged.
func (s *Store) ReadTable(ctx context.Context, target, name string) (tabular.Table, error) {
	if err := ctx.Err(); err != nil {
		return tabular.Table{}, err
	}
	if err := checkIdentifier("table", name); err != nil {
		return tabular.Table{}, err
	}
	columns, err := s.columns(ctx, name)
	if err != nil {
		return tabular.Table{}, err
	}
	if columns == nil {
		return tabular.Table{}, fmt.Errorf("%w: %s", tabular.ErrTableNotFound, name)
	}
	query := fmt.Sprintf(`SELECT %[1]s FROM %[2]s
WHERE %[3]s = CASE WHEN EXISTS (SELECT 1 FROM %[2]s WHERE %[3]s = ?) THEN ? ELSE '' END
ORDER BY rowid`,
		quoteAll(columns), quote(name), targetColumn)
	rows, err := s.sqlDB.QueryContext(ctx, query, target, target)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	out := tabular.New(columns...)
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return tabular.Table{}, fmt.Errorf("scan %s: %w", name, err)
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = v.String
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return tabular.Table{}, fmt.Errorf("iterate %s: %w", name, err)
	}
	return out, nil
}

// ImportLog lists imports for runID (all runs when empty), oldest first.
func (s *Store) ImportLog(ctx context.Context, runID string) ([]ImportRecord, error) {
	query := `SELECT table_name, run_id, target, row_count, imported_at FROM import_log`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id`
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query import log: %w", err)
	}
	defer rows.Close()
	var out []ImportRecord
	for rows.Next() {
		var rec ImportRecord
		var importedAt int64
		if err := rows.Scan(&rec.Table, &rec.RunID, &rec.Target, &rec.Rows, &importedAt); err != nil {
			return nil, fmt.Errorf("scan import log: %w", err)
		}
		rec.ImportedAt = time.UnixMilli(importedAt).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Tables lists the data tables in the store, sorted.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT IN ('import_log', 'schema_migrations') AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// replace swaps target's rows of name for t in one transaction. after runs
// inside the same transaction before commit.
func (s *Store) replace(ctx context.Context, target, name string, t tabular.Table, after func(*sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkIdentifier("table", name); err != nil {
		return err
	}
	if name == "import_log" || name == "schema_migrations" {
		return fmt.Errorf("table name %s is reserved", name)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", name)
	}
	for _, c := range t.Columns {
		if err := checkIdentifier("column", c); err != nil {
			return err
		}
		if strings.EqualFold(c, targetColumn) {
			return fmt.Errorf("column name %s is reserved", c)
		}
	}
	existing, err := s.columns(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil && !slices.Equal(existing, t.Columns) {
		return fmt.Errorf("table %s has columns %v, got %v", name, existing, t.Columns)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if existing == nil {
		defs := make([]string, 0, len(t.Columns)+1)
		defs = append(defs, targetColumn+" TEXT NOT NULL")
		for _, c := range t.Columns {
			defs = append(defs, quote(c)+" TEXT")
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quote(name), strings.Join(defs, ", "))); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(name), targetColumn), target); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)+1), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s)",
		quote(name), targetColumn, quoteAll(t.Columns), placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", name, err)
	}
	defer stmt.Close()
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("table %s row %d has %d values, want %d", name, i+1, len(row), len(t.Columns))
		}
		args := make([]any, 0, len(row)+1)
		args = append(args, target)
		for _, v := range row {
			args = append(args, v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s row %d: %w", name, i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

// columns returns the data columns of name (without the target column), or
// nil when the table does not exist.
func (s *Store) columns(ctx context.Context, name string) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quote(name)))
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", name, err)
	}
	defer rows.Close()
	var columns []string
	found := false
	for rows.Next() {
		var (
			cid       int
			column    string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &column, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("inspect %s: %w", name, err)
		}
		found = true
		if column == targetColumn {
			continue
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if columns == nil {
		columns = []string{}
	}
	return columns, nil
}

func checkIdentifier(kind, name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}

func quote(identifier string) string {
	return `"` + identifier + `"`
}

func quoteAll(identifiers []string) string {
	quoted := make([]string, len(identifiers))
	for i, id := range identifiers {
		quoted[i] = quote(id)
	}
	return strings.Join(quoted, ", ")
}
