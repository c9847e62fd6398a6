/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

type memTokens struct{ m map[string]string }

func (s *memTokens) Get(service, key string) (string, error) {
	v, ok := s.m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (s *memTokens) Set(service, key, value string) error {
	s.m[service+"/"+key] = value
	return nil
}
func (s *memTokens) Delete(service, key string) error {
	delete(s.m, service+"/"+key)
	return nil
}

func stubTokens(t *testing.T) *memTokens {
	t.Helper()
	s := &memTokens{m: map[string]string{}}
	t.Cleanup(SetTokenStore(s))
	return s
}

func TestEnvOverridesMinimap(t *testing.T) {
	stubTokens(t)
	t.Setenv(EnvMinimapOpen, "yes")
	t.Setenv(EnvDebounceMs, "120")
	cfg, _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if !cfg.Minimap.Open {
		t.Fatalf("Minimap.Open expected true from env override")
	}
	if got := cfg.Minimap.Debounce(); got != 120*time.Millisecond {
		t.Fatalf("Debounce() = %v, want 120ms", got)
	}
	if name, ok := EnvOverrideFor("minimap.debounce_ms"); !ok || name != EnvDebounceMs {
		t.Fatalf("EnvOverrideFor mismatch: %q %v", name, ok)
	}
	if _, ok := EnvOverrideFor("store.path"); ok {
		t.Fatalf("store.path should not be overridden")
	}
	keys := OverridableKeys()
	if len(keys) != 9 || keys[0] != "logging.file" || !slices.IsSorted(keys) {
		t.Fatalf("OverridableKeys() = %v", keys)
	}
}

func TestInvalidDebounceEnvIgnored(t *testing.T) {
	stubTokens(t)
	t.Setenv(EnvDebounceMs, "soon")
	cfg, _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Minimap.DebounceMs != 300 {
		t.Fatalf("DebounceMs = %d, want default 300", cfg.Minimap.DebounceMs)
	}
}

func TestMergeKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Minimap: MinimapConfig{Open: true, Position: " Left-Bottom "}}
	mergeInto(&dst, &src)
	if !dst.Minimap.Open || dst.Minimap.Position != "left-bottom" {
		t.Fatalf("minimap fields not merged: %#v", dst.Minimap)
	}
	if dst.Minimap.Width != 320 || dst.Minimap.Height != 180 || dst.Minimap.Padding != 50 {
		t.Fatalf("zero values overwrote defaults: %#v", dst.Minimap)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/gmm.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/gmm.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	stubTokens(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/gmm.log")
	cfg, _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/gmm.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestSaveAndLoadRoundTripKeepsPasswordOffDisk(t *testing.T) {
	tokens := stubTokens(t)
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")
	cfg := Defaults()
	cfg.Store.PgDSN = "postgres://db.local/diagrams"
	cfg.Minimap.Width = 400
	if err := SaveTo(path, cfg, "s3cret"); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "s3cret") {
		t.Fatalf("password leaked into config file")
	}
	if tokens.m[keyringService+"/"+keyringPgPass] != "s3cret" {
		t.Fatalf("password not stored in keyring: %v", tokens.m)
	}
	got, pass, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if pass != "s3cret" || got.Store.PgDSN != cfg.Store.PgDSN || got.Minimap.Width != 400 {
		t.Fatalf("round trip mismatch: %#v pass=%q", got, pass)
	}
}

func TestMinimapOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Minimap.Open = true
	cfg.Minimap.DebounceMs = 50
	o := cfg.MinimapOptions()
	if !o.Open || o.DebounceDelay != 50*time.Millisecond || o.Width != 320 || o.Height != 180 || o.Padding != 50 {
		t.Fatalf("MinimapOptions mismatch: %+v", o)
	}
}

