/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gominimap/internal/config"
)

func (a *app) configPath() (string, error) {
	if a.cfgPath != "" {
		return a.cfgPath, nil
	}
	return config.ConfigPath()
}

// printEnvOverrides appends a YAML comment naming the keys whose values come
// from the environment rather than the config file.
func printEnvOverrides(w io.Writer) error {
	var lines []string
	for _, key := range config.OverridableKeys() {
		if env, ok := config.EnvOverrideFor(key); ok {
			lines = append(lines, fmt.Sprintf("#   %s (%s)", key, env))
		}
	}
	if len(lines) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "# overridden by environment:\n%s\n", strings.Join(lines, "\n"))
	return err
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return err
			}
			if err := enc.Close(); err != nil {
				return err
			}
			return printEnvOverrides(out)
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.configPath()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}

	setPassword := &cobra.Command{
		Use:   "set-password",
		Short: "Read the Postgres password from stdin and keep it in the OS keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			pass := strings.TrimRight(line, "\r\n")
			if pass == "" {
				return errors.New("empty password")
			}
			p, err := a.configPath()
			if err != nil {
				return err
			}
			if err := config.SaveTo(p, a.cfg, pass); err != nil {
				return err
			}
			a.log.Info("postgres password stored in keychain")
			return nil
		},
	}

	cmd.AddCommand(show, path, setPassword)
	return cmd
}
