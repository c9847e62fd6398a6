/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gominimap/internal/diagram"
	applog "gominimap/internal/log"
	"gominimap/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the local SQLite schema. Bump it together with a new
// case in runMigrations.
const schemaVersion = 2

// SQLiteOptions configures OpenSQLite.
type SQLiteOptions struct {
	// PreviewsMaxBytes caps the preview cache; <= 0 disables eviction.
	PreviewsMaxBytes int64
	Now              func() time.Time
	Logger           *slog.Logger
}

// SQLite is the embedded diagram store with a preview cache.
type SQLite struct {
	db       *sql.DB
	path     string
	capBytes int64
	now      func() time.Time
	log      *slog.Logger
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the store at path, enables WAL and
// brings the schema up to date.
func OpenSQLite(path string, opts SQLiteOptions) (*SQLite, error) {
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("store")
	}
	l = applog.WithOperation(l, "sqlite_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create store dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	// Shared cache URI with a busy timeout; SQLite URIs want forward slashes.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	l.Debug("store ready")
	return &SQLite{db: db, path: path, capBytes: opts.PreviewsMaxBytes, now: now, log: applog.WithComponent("store")}, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh databases start at schema 1 and migrate forward.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS diagrams (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			format      TEXT NOT NULL,
			data        BLOB NOT NULL,
			size        INTEGER NOT NULL DEFAULT 0,
			version     INTEGER NOT NULL DEFAULT 1,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS previews (
			id           INTEGER PRIMARY KEY,
			diagram_id   TEXT    NOT NULL,
			version      INTEGER NOT NULL,
			w            INTEGER NOT NULL,
			h            INTEGER NOT NULL,
			blob         BLOB    NOT NULL,
			size         INTEGER NOT NULL DEFAULT 0,
			updated_at   TEXT    NOT NULL,
			last_access  INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_previews_variant ON previews(diagram_id, version, w, h);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Written by a newer build; never downgrade.
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_previews_access ON previews(last_access);`,
				`CREATE INDEX IF NOT EXISTS idx_diagrams_updated ON diagrams(updated_at);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (s *SQLite) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// Put upserts d. Previews rendered from older versions are dropped.
func (s *SQLite) Put(ctx context.Context, d Diagram) (Diagram, error) {
	if err := validateDiagram(d); err != nil {
		return Diagram{}, err
	}
	if d.Format == "" {
		d.Format = diagram.FormatJSON
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	now := s.now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Diagram{}, fmt.Errorf("begin put: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO diagrams(id,name,format,data,size,version,updated_at)
		VALUES(?,?,?,?,?,1,?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, format=excluded.format, data=excluded.data,
			size=excluded.size, version=diagrams.version+1, updated_at=excluded.updated_at`,
		d.ID, d.Name, string(d.Format), d.Data, len(d.Data), now.Format(time.RFC3339Nano))
	if err != nil {
		_ = tx.Rollback()
		return Diagram{}, fmt.Errorf("upsert diagram: %w", err)
	}
	if err := tx.QueryRowContext(ctx, `SELECT version FROM diagrams WHERE id=?`, d.ID).Scan(&d.Version); err != nil {
		_ = tx.Rollback()
		return Diagram{}, fmt.Errorf("read version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM previews WHERE diagram_id=? AND version<?`, d.ID, d.Version); err != nil {
		_ = tx.Rollback()
		return Diagram{}, fmt.Errorf("drop stale previews: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Diagram{}, fmt.Errorf("commit put: %w", err)
	}
	d.UpdatedAt = now
	s.log.Debug("diagram stored", slog.String("id", d.ID), slog.Int64("version", d.Version))
	return d, nil
}

// Get returns the diagram or ErrNotFound.
func (s *SQLite) Get(ctx context.Context, id string) (Diagram, error) {
	var (
		d       Diagram
		format  string
		updated string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id,name,format,data,version,updated_at FROM diagrams WHERE id=?`, id).
		Scan(&d.ID, &d.Name, &format, &d.Data, &d.Version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Diagram{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Diagram{}, fmt.Errorf("query diagram: %w", err)
	}
	d.Format = diagram.Format(format)
	d.UpdatedAt = parseTime(updated)
	return d, nil
}

// List returns all diagrams ordered by id.
func (s *SQLite) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,version,size,updated_at FROM diagrams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var (
			sm      Summary
			updated string
		)
		if err := rows.Scan(&sm.ID, &sm.Name, &sm.Version, &sm.Size, &updated); err != nil {
			return nil, err
		}
		sm.UpdatedAt = parseTime(updated)
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Delete removes the diagram and its previews.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM diagrams WHERE id=?`, id)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete diagram: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM previews WHERE diagram_id=?`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete previews: %w", err)
	}
	return tx.Commit()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Recover checks the store at path and rebuilds it empty when it cannot be
// opened or fails PRAGMA quick_check. The damaged file is copied to a
// timestamped backup next to it first. It reports whether a rebuild happened.
func Recover(ctx context.Context, path string, opts SQLiteOptions) (bool, error) {
	s, err := OpenSQLite(path, opts)
	if err == nil {
		var chk string
		qerr := s.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk)
		healthy := qerr == nil && strings.Contains(strings.ToLower(chk), "ok")
		if healthy {
			if _, perr := s.db.ExecContext(ctx, `SELECT 1 FROM diagrams LIMIT 1;`); perr != nil {
				healthy = false
			}
		}
		_ = s.Close()
		if healthy {
			return false, nil
		}
	}
	backupFile(path, opts.Now)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	s, rerr := OpenSQLite(path, opts)
	if rerr != nil {
		if err != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rerr, err)
		}
		return false, fmt.Errorf("rebuild store: %w", rerr)
	}
	return true, s.Close()
}

// backupFile copies path into backups/<name>.<stamp>.bak beside it.
func backupFile(path string, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	bdir := filepath.Join(filepath.Dir(path), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
	if data, err := os.ReadFile(path); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
