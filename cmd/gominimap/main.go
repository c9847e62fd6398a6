/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gominimap/internal/config"
	"gominimap/internal/crash"
	applog "gominimap/internal/log"
	"gominimap/internal/version"
)

// app carries what every subcommand needs after the root pre-run.
type app struct {
	cfgPath    string
	cfg        config.AppConfig
	pgPassword string
	log        *slog.Logger
}

func main() {
	a := &app{}
	defer crash.Recover(&crash.Context{Command: strings.Join(os.Args[1:], " ")})
	if err := newRootCommand(a).Execute(); err != nil {
		if a.log != nil {
			a.log.Error("command failed", slog.Any("err", err))
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:   "gominimap",
		Short: "Minimap overview for diagrams",
		Long: `gominimap renders and watches the minimap overview of a diagram document,
keeps diagrams and cached previews in a local or shared store, and opens the
desktop viewer.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default: per-user config path)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the log level (debug, info, warn, error)")

	root.AddCommand(newRenderCommand(a))
	root.AddCommand(newWatchCommand(a))
	root.AddCommand(newStoreCommand(a))
	root.AddCommand(newPreviewCommand(a))
	root.AddCommand(newUICommand(a))
	root.AddCommand(newConfigCommand(a))
	root.AddCommand(newVersionCommand())
	return root
}

// init loads the config and sets up logging from it.
func (a *app) init(logLevel string) error {
	var (
		cfg  config.AppConfig
		pass string
		err  error
	)
	if a.cfgPath != "" {
		cfg, pass, err = config.LoadFrom(a.cfgPath)
	} else {
		cfg, pass, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	a.cfg, a.pgPassword = cfg, pass
	a.log = applog.WithComponent("cli")
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}
