/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"gominimap/internal/export"
	applog "gominimap/internal/log"
	"gominimap/internal/session"
	"gominimap/internal/vector"
)

// watchDebounce coalesces editor save bursts (write, chmod, rename) into one reload.
const watchDebounce = 100 * time.Millisecond

func newWatchCommand(a *app) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "watch DIAGRAM",
		Short: "Re-render the minimap whenever the diagram file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := f.exportOptions(cmd)
			if err != nil {
				return err
			}
			var box vector.Rect
			if f.viewbox != "" {
				if box, err = parseViewbox(f.viewbox); err != nil {
					return err
				}
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			l := applog.WithOperation(a.log, "watch").With(slog.String("file", path))
			sess := session.New(session.Options{Width: f.canvasW, Height: f.canvasH, Minimap: f.minimapOptions(a), Logger: l})
			defer sess.Close()

			rebuild := func() error {
				if err := sess.LoadFile(path); err != nil {
					return err
				}
				if !box.Empty() {
					sess.SetViewbox(box)
				}
				if err := export.WriteFile(f.out, sess.Snapshot(), opt); err != nil {
					return fmt.Errorf("write %s: %w", f.out, err)
				}
				l.InfoContext(sess.Context(cmd.Context()), "minimap written", slog.String("out", f.out))
				return nil
			}
			if err := rebuild(); err != nil {
				return err
			}

			w, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer w.Close()
			// Watch the directory: editors often replace the file instead of writing it.
			if err := w.Add(filepath.Dir(path)); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", path)
			return watchLoop(ctx, path, w.Events, w.Errors, watchDebounce, rebuild, l)
		},
	}
	f.register(cmd)
	return cmd
}

// watchLoop calls rebuild once per burst of changes to target. Rebuild
// failures are logged and the loop keeps going, so a half-saved file does
// not end the session. It returns nil when ctx is done.
func watchLoop(ctx context.Context, target string, events <-chan fsnotify.Event, errs <-chan error,
	debounce time.Duration, rebuild func() error, l *slog.Logger) error {
	target = filepath.Clean(target)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			l.Warn("watcher error", slog.Any("err", err))
		case <-fire:
			timer, fire = nil, nil
			if err := rebuild(); err != nil {
				l.Warn("rebuild failed", slog.Any("err", err))
			}
		}
	}
}
