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
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"gominimap/internal/diagram"
	applog "gominimap/internal/log"
)

func openPGForTest(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("GMM_PG_DSN")
	if dsn == "" {
		t.Skipf("GMM_PG_DSN not set; skipping postgres tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p, err := OpenPostgres(ctx, dsn, PostgresOptions{Logger: applog.Discard()})
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("migrations/0002_diagrams_updated_idx.sql")
	if err != nil || v != 2 {
		t.Fatalf("parseVersion = %d, %v", v, err)
	}
	if _, err := parseVersion("nounderscore.sql"); err == nil {
		t.Fatalf("expected error for filename without version prefix")
	}
	if _, err := parseVersion("abc_x.sql"); err == nil {
		t.Fatalf("expected error for non-numeric version")
	}
}

func TestEmbeddedMigrationsSorted(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	var last int64
	for _, e := range entries {
		v, err := parseVersion(e.Name())
		if err != nil {
			t.Fatalf("%s: %v", e.Name(), err)
		}
		if v <= last {
			t.Fatalf("migration %s out of order", e.Name())
		}
		last = v
	}
	if last == 0 {
		t.Fatalf("no migrations embedded")
	}
}

func TestPostgresRoundTrip(t *testing.T) {
	p := openPGForTest(t)
	ctx := context.Background()
	id := fmt.Sprintf("test-%d", time.Now().UnixNano())
	d, err := FromDocument(id, sampleDoc(), diagram.FormatJSON)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	first, err := p.Put(ctx, d)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	second, err := p.Put(ctx, d)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if second.Version != first.Version+1 {
		t.Fatalf("version %d -> %d", first.Version, second.Version)
	}
	got, err := p.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := got.Document(); err != nil {
		t.Fatalf("stored document invalid: %v", err)
	}
	if err := p.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := p.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: %v", err)
	}
}
