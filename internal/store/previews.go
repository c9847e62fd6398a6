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
	"strings"
	"time"
)

// PreviewKey identifies one cached rendering of a diagram revision.
type PreviewKey struct {
	DiagramID string
	Version   int64
	W, H      int
}

func (k PreviewKey) validate() error {
	if strings.TrimSpace(k.DiagramID) == "" {
		return errors.New("preview: diagram id is required")
	}
	if k.W <= 0 || k.H <= 0 {
		return fmt.Errorf("preview: invalid size %dx%d", k.W, k.H)
	}
	return nil
}

// GetPreview returns the cached blob and refreshes its access time. A miss
// returns nil, nil.
func (s *SQLite) GetPreview(ctx context.Context, k PreviewKey) ([]byte, error) {
	if err := k.validate(); err != nil {
		return nil, err
	}
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM previews WHERE diagram_id=? AND version=? AND w=? AND h=?`,
		k.DiagramID, k.Version, k.W, k.H).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	// touch
	_, _ = s.db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE diagram_id=? AND version=? AND w=? AND h=?`,
		s.now().UnixNano(), k.DiagramID, k.Version, k.W, k.H)
	return blob, nil
}

// PutPreview upserts a blob and enforces the cache cap via LRU eviction.
func (s *SQLite) PutPreview(ctx context.Context, k PreviewKey, blob []byte) error {
	if err := k.validate(); err != nil {
		return err
	}
	if len(blob) == 0 {
		return errors.New("preview: empty blob")
	}
	now := s.now()
	_, err := s.db.ExecContext(ctx, `INSERT INTO previews(diagram_id,version,w,h,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(diagram_id,version,w,h) DO UPDATE SET blob=excluded.blob, size=excluded.size,
			updated_at=excluded.updated_at, last_access=excluded.last_access`,
		k.DiagramID, k.Version, k.W, k.H, blob, len(blob), now.UTC().Format(time.RFC3339Nano), now.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	if s.capBytes > 0 {
		if err := s.EvictPreviewsToFit(ctx, s.capBytes); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreatePreview fetches a preview or generates and stores it with gen.
func (s *SQLite) GetOrCreatePreview(ctx context.Context, k PreviewKey, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := s.GetPreview(ctx, k); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	if err := s.PutPreview(ctx, k, data); err != nil {
		return nil, err
	}
	return data, nil
}

// EvictPreviewsToFit deletes least-recently-used rows until the total size
// is at most capBytes.
func (s *SQLite) EvictPreviewsToFit(ctx context.Context, capBytes int64) error {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return fmt.Errorf("sum previews size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	victims := make([]any, 0, 32)
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// The single connection is held by the cursor; release it before writing.
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM previews WHERE id IN (?` + strings.Repeat(",?", len(victims)-1) + `)`
	if _, err := s.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	s.log.Debug("previews evicted", slog.Int("count", len(victims)), slog.Int64("freed", total-cur))
	return nil
}

// TotalPreviewBytes returns the bytes tracked by the preview cache.
func (s *SQLite) TotalPreviewBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum previews size: %w", err)
	}
	return total, nil
}
