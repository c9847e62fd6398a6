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
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"gominimap/internal/diagram"
	applog "gominimap/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresOptions configures OpenPostgres. User and Password override the
// DSN; the password normally comes from the OS keyring.
type PostgresOptions struct {
	User     string
	Password string
	Now      func() time.Time
	Logger   *slog.Logger
}

// Postgres is the shared diagram store.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
	log *slog.Logger
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects, pings and applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string, opts PostgresOptions) (*Postgres, error) {
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("store")
	}
	l = applog.WithOperation(l, "pg_open")
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if opts.User != "" {
		cfg.User = opts.User
	}
	if opts.Password != "" {
		cfg.Password = opts.Password
	}
	db := stdlib.OpenDB(*cfg)
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(pctx, db, l); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	l.Debug("postgres ready", slog.String("host", cfg.Host), slog.String("database", cfg.Database))
	return &Postgres{db: db, now: now, log: l}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func applyMigrations(ctx context.Context, db *sql.DB, l *slog.Logger) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		l.Info("applying migration", slog.String("file", fname))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, version, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	parts := strings.SplitN(base, "_", 2)
	if len(parts) < 2 {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

func (p *Postgres) Put(ctx context.Context, d Diagram) (Diagram, error) {
	if err := validateDiagram(d); err != nil {
		return Diagram{}, err
	}
	if d.Format == "" {
		d.Format = diagram.FormatJSON
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	now := p.now().UTC()
	err := p.db.QueryRowContext(ctx, `INSERT INTO diagrams(id,name,format,data,size,version,updated_at)
		VALUES($1,$2,$3,$4,$5,1,$6)
		ON CONFLICT(id) DO UPDATE SET name=EXCLUDED.name, format=EXCLUDED.format, data=EXCLUDED.data,
			size=EXCLUDED.size, version=diagrams.version+1, updated_at=EXCLUDED.updated_at
		RETURNING version`,
		d.ID, d.Name, string(d.Format), d.Data, len(d.Data), now).Scan(&d.Version)
	if err != nil {
		return Diagram{}, fmt.Errorf("upsert diagram: %w", err)
	}
	d.UpdatedAt = now
	p.log.Debug("diagram stored", slog.String("id", d.ID), slog.Int64("version", d.Version))
	return d, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (Diagram, error) {
	var (
		d      Diagram
		format string
	)
	err := p.db.QueryRowContext(ctx, `SELECT id,name,format,data,version,updated_at FROM diagrams WHERE id=$1`, id).
		Scan(&d.ID, &d.Name, &format, &d.Data, &d.Version, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Diagram{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Diagram{}, fmt.Errorf("query diagram: %w", err)
	}
	d.Format = diagram.Format(format)
	return d, nil
}

func (p *Postgres) List(ctx context.Context) ([]Summary, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id,name,version,size,updated_at FROM diagrams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.ID, &sm.Name, &sm.Version, &sm.Size, &sm.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM diagrams WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete diagram: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
