// Package sqlitemigrate applies embedded SQL migrations to a SQLite database,
// recording each applied file so it runs at most once.
package sqlitemigrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	migrationTable = "schema_migrations"

	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// Record is one applied migration.
type Record struct {
	Name      string
	AppliedAt time.Time
}

type migration struct {
	name string
	up   string
}

// Apply executes the .sql files under root in name order, skipping files
// already recorded in schema_migrations. Each file runs in its own
// transaction together with its record.
func Apply(ctx context.Context, db *sql.DB, fsys fs.FS, root string) error {
	if db == nil {
		return fmt.Errorf("sqlitemigrate: sql db is required")
	}
	pending, err := load(fsys, root)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("sqlitemigrate: ensure %s: %w", migrationTable, err)
	}
	applied, err := Applied(ctx, db)
	if err != nil {
		return err
	}
	done := make(map[string]struct{}, len(applied))
	for _, rec := range applied {
		done[rec.Name] = struct{}{}
	}
	for _, m := range pending {
		if _, ok := done[m.name]; ok {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

// Applied lists the recorded migrations in name order.
func Applied(ctx context.Context, db *sql.DB) ([]Record, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, applied_at FROM `+migrationTable+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlitemigrate: list applied: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var (
			name string
			at   int64
		)
		if err := rows.Scan(&name, &at); err != nil {
			return nil, fmt.Errorf("sqlitemigrate: scan applied: %w", err)
		}
		out = append(out, Record{Name: name, AppliedAt: time.UnixMilli(at).UTC()})
	}
	return out, rows.Err()
}

// UpSection returns the SQL between the Up and Down markers. Content without
// an Up marker is returned whole.
func UpSection(content string) string {
	start := strings.Index(content, upMarker)
	if start == -1 {
		return content
	}
	body := content[start+len(upMarker):]
	if end := strings.Index(body, downMarker); end != -1 {
		body = body[:end]
	}
	return body
}

func load(fsys fs.FS, root string) ([]migration, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("sqlitemigrate: read %s: %w", root, err)
	}
	var out []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		name := path.Join(root, entry.Name())
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("sqlitemigrate: read %s: %w", name, err)
		}
		out = append(out, migration{name: name, up: UpSection(string(content))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitemigrate: begin %s: %w", m.name, err)
	}
	defer func() { _ = tx.Rollback() }()
	if strings.TrimSpace(m.up) != "" {
		if _, err := tx.ExecContext(ctx, m.up); err != nil {
			return fmt.Errorf("sqlitemigrate: exec %s: %w", m.name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
		m.name, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("sqlitemigrate: record %s: %w", m.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitemigrate: commit %s: %w", m.name, err)
	}
	return nil
}
