/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gominimap/internal/diagram"
	"gominimap/internal/export"
	applog "gominimap/internal/log"
	"gominimap/internal/minimap"
	"gominimap/internal/session"
	"gominimap/internal/store"
)

// parseSize reads "WxH" in pixels.
func parseSize(s string) (w, h int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WxH", s)
	}
	if w, err = strconv.Atoi(ws); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if h, err = strconv.Atoi(hs); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if w <= 0 || h <= 0 || w > export.MaxRasterSide || h > export.MaxRasterSide {
		return 0, 0, fmt.Errorf("size %q: out of range", s)
	}
	return w, h, nil
}

// renderPreview draws the minimap of doc, fitted to the whole content, as
// a w x h PNG.
func renderPreview(doc *diagram.Document, w, h int, mo minimap.Options, l *slog.Logger) ([]byte, error) {
	mo.Width, mo.Height = float64(w), float64(h)
	sess := session.New(session.Options{Minimap: mo, Logger: l})
	defer sess.Close()
	if err := sess.Load(doc); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := export.WritePNG(&buf, sess.Snapshot(), export.PNGOptions{Scale: 1}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newPreviewCommand(a *app) *cobra.Command {
	var (
		size string
		out  string
		pg   bool
	)
	cmd := &cobra.Command{
		Use:   "preview ID",
		Short: "Write a cached PNG preview of a stored diagram",
		Long: `preview renders the minimap of the latest revision of a stored diagram.
Renderings are cached in the local store per revision and size; the least
recently used ones are evicted once store.previews_max_bytes is exceeded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, h, err := parseSize(size)
			if err != nil {
				return err
			}
			ctx := applog.ContextWithDiagram(cmd.Context(), args[0])
			l := applog.WithOperation(a.log, "preview")

			cache, err := a.openSQLite()
			if err != nil {
				return err
			}
			defer cache.Close()
			var src store.Store = cache
			if pg || a.cfg.Store.PgDSN != "" {
				if src, err = a.openStore(ctx, true); err != nil {
					return err
				}
				defer src.Close()
			}

			d, err := src.Get(ctx, args[0])
			if err != nil {
				return err
			}
			key := store.PreviewKey{DiagramID: d.ID, Version: d.Version, W: w, H: h}
			blob, err := cache.GetOrCreatePreview(ctx, key, func(ctx context.Context) ([]byte, error) {
				doc, err := d.Document()
				if err != nil {
					return nil, err
				}
				l.DebugContext(ctx, "rendering preview", slog.Int64("version", d.Version), slog.Int("w", w), slog.Int("h", h))
				return renderPreview(doc, w, h, a.cfg.MinimapOptions(), l)
			})
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(out, blob, 0o644); err != nil {
				return err
			}
			l.InfoContext(ctx, "preview written", slog.String("out", out), slog.Int("bytes", len(blob)))
			return nil
		},
	}
	cmd.Flags().StringVar(&size, "size", "320x180", "preview size in pixels, WxH")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG file")
	cmd.Flags().BoolVar(&pg, "pg", false, "read the diagram from the shared Postgres store")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
