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
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"gominimap/internal/config"
	"gominimap/internal/diagram"
	applog "gominimap/internal/log"
	"gominimap/internal/store"
)

func (a *app) sqlitePath() (string, error) {
	if a.cfg.Store.Path != "" {
		return a.cfg.Store.Path, nil
	}
	return config.DataPath()
}

func (a *app) openSQLite() (*store.SQLite, error) {
	path, err := a.sqlitePath()
	if err != nil {
		return nil, err
	}
	return store.OpenSQLite(path, store.SQLiteOptions{
		PreviewsMaxBytes: a.cfg.Store.PreviewsMaxBytes,
		Logger:           applog.WithComponent("store"),
	})
}

// openStore picks Postgres when a DSN is configured or pg is set, the local
// SQLite file otherwise.
func (a *app) openStore(ctx context.Context, pg bool) (store.Store, error) {
	if pg || a.cfg.Store.PgDSN != "" {
		if a.cfg.Store.PgDSN == "" {
			return nil, fmt.Errorf("--pg needs store.pg_dsn or %s", config.EnvPgDSN)
		}
		p, err := store.OpenPostgres(ctx, a.cfg.Store.PgDSN, store.PostgresOptions{
			User:     a.cfg.Store.PgUser,
			Password: a.pgPassword,
			Logger:   applog.WithComponent("store"),
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	s, err := a.openSQLite()
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newStoreCommand(a *app) *cobra.Command {
	var pg bool
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage stored diagrams",
	}
	cmd.PersistentFlags().BoolVar(&pg, "pg", false, "use the shared Postgres store")

	with := func(cmd *cobra.Command, fn func(ctx context.Context, s store.Store) error) error {
		ctx := cmd.Context()
		s, err := a.openStore(ctx, pg)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(ctx, s)
	}

	var (
		putID     string
		putFormat string
	)
	put := &cobra.Command{
		Use:   "put FILE",
		Short: "Store a diagram document, bumping its version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := diagram.LoadDocument(args[0])
			if err != nil {
				return err
			}
			format := diagram.FormatForPath(args[0])
			if putFormat != "" {
				format = diagram.Format(strings.ToLower(putFormat))
				if format != diagram.FormatJSON && format != diagram.FormatYAML {
					return fmt.Errorf("unknown document format %q", putFormat)
				}
			}
			d, err := store.FromDocument(putID, doc, format)
			if err != nil {
				return err
			}
			return with(cmd, func(ctx context.Context, s store.Store) error {
				saved, err := s.Put(ctx, d)
				if err != nil {
					return err
				}
				a.log.InfoContext(applog.ContextWithDiagram(ctx, saved.ID), "diagram stored", slog.Int64("version", saved.Version))
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s v%d\n", saved.ID, saved.Version)
				return err
			})
		},
	}
	put.Flags().StringVar(&putID, "id", "", "diagram id (default: the document id)")
	put.Flags().StringVar(&putFormat, "format", "", "stored encoding (json|yaml, default from the file extension)")

	var getOut string
	get := &cobra.Command{
		Use:   "get ID",
		Short: "Print a stored diagram or write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return with(cmd, func(ctx context.Context, s store.Store) error {
				d, err := s.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if getOut == "" {
					_, err = cmd.OutOrStdout().Write(d.Data)
					return err
				}
				return os.WriteFile(getOut, d.Data, 0o644)
			})
		},
	}
	get.Flags().StringVarP(&getOut, "out", "o", "", "output file (default: stdout)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored diagrams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return with(cmd, func(ctx context.Context, s store.Store) error {
				items, err := s.List(ctx)
				if err != nil {
					return err
				}
				return printSummaries(cmd, items)
			})
		},
	}

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a stored diagram and its previews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return with(cmd, func(ctx context.Context, s store.Store) error {
				if err := s.Delete(ctx, args[0]); err != nil {
					return err
				}
				a.log.InfoContext(applog.ContextWithDiagram(ctx, args[0]), "diagram deleted")
				return nil
			})
		},
	}

	recoverCmd := &cobra.Command{
		Use:   "recover",
		Short: "Check the local store and rebuild it from scratch if it is corrupt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.sqlitePath()
			if err != nil {
				return err
			}
			rebuilt, err := store.Recover(cmd.Context(), path, store.SQLiteOptions{Logger: applog.WithComponent("store")})
			if err != nil {
				return err
			}
			msg := "store is healthy"
			if rebuilt {
				msg = "store was corrupt; a backup was kept and an empty store created"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, msg)
			return err
		},
	}

	cmd.AddCommand(put, get, list, rm, recoverCmd)
	return cmd
}

func printSummaries(cmd *cobra.Command, items []store.Summary) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVERSION\tSIZE\tUPDATED")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", it.ID, it.Name, it.Version, it.Size, it.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}
