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
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gominimap/internal/minimap"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type MinimapConfig struct {
	Open       bool    `yaml:"open"`
	DebounceMs int     `yaml:"debounce_ms"`
	Position   string  `yaml:"position"` // "right-top" | "right-bottom" | "left-top" | "left-bottom"
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Padding    float64 `yaml:"padding"`
}

type StoreConfig struct {
	Path             string `yaml:"path"` // sqlite file; empty means the per-user data dir
	PgDSN            string `yaml:"pg_dsn"`
	PgUser           string `yaml:"pg_user"`
	PreviewsMaxBytes int64  `yaml:"previews_max_bytes"`
	// The Postgres password is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Minimap       MinimapConfig `yaml:"minimap"`
	Store         StoreConfig   `yaml:"store"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Minimap:       MinimapConfig{Open: false, DebounceMs: 300, Position: "right-top", Width: 320, Height: 180, Padding: 50},
		Store:         StoreConfig{PreviewsMaxBytes: 64 << 20},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvMinimapOpen      = "GMM_MINIMAP_OPEN"
	EnvDebounceMs       = "GMM_DEBOUNCE_MS"
	EnvStorePath        = "GMM_STORE_PATH"
	EnvPgDSN            = "GMM_PG_DSN"
	EnvPreviewsMaxBytes = "GMM_PREVIEWS_MAX_BYTES"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GMM_LOG_LEVEL"
	EnvLogFormat = "GMM_LOG_FORMAT"
	EnvLogSource = "GMM_LOG_SOURCE"
	EnvLogFile   = "GMM_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "GoMinimap"
	keyringPgPass  = "pg_password"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = &osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// SetTokenStore swaps the secret backend and returns a func restoring the previous one.
func SetTokenStore(ts TokenStore) (restore func()) {
	prev := tokenStore
	tokenStore = ts
	return func() { tokenStore = prev }
}

// osKeyring implements TokenStore using the OS keyring (see keyring.go).
type osKeyring struct{}

func (k *osKeyring) Get(service, key string) (string, error) { return keyringGet(service, key) }
func (k *osKeyring) Set(service, key, value string) error   { return keyringSet(service, key, value) }
func (k *osKeyring) Delete(service, key string) error       { return keyringDelete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	base, err := userDir("config")
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DataPath returns the default location of the sqlite store.
func DataPath() (string, error) {
	base, err := userDir("data")
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "diagrams.db"), nil
}

func userDir(kind string) (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoMinimap")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoMinimap")
	default: // linux and others
		home := os.Getenv("HOME")
		if home == "" {
			return "", errors.New("cannot resolve " + kind + " directory")
		}
		if kind == "data" {
			base = filepath.Join(home, ".local", "share", "gominimap")
		} else {
			base = filepath.Join(home, ".config", "gominimap")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve " + kind + " directory")
	}
	return base, nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the Postgres password from the keyring (returned separately, never kept in the struct).
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), "", err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path. A missing file is not an error.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	pass, _ := tokenStore.Get(keyringService, keyringPgPass)
	return cfg, pass, nil
}

// Save writes the user config YAML and persists the password into the OS keyring (if non-empty).
func Save(cfg AppConfig, pgPassword string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg, pgPassword)
}

// SaveTo is Save with an explicit file path.
func SaveTo(path string, cfg AppConfig, pgPassword string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if pgPassword != "" {
		if err := tokenStore.Set(keyringService, keyringPgPass, pgPassword); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Minimap.Open = src.Minimap.Open
	if src.Minimap.DebounceMs > 0 {
		dst.Minimap.DebounceMs = src.Minimap.DebounceMs
	}
	if p := strings.ToLower(strings.TrimSpace(src.Minimap.Position)); p != "" {
		dst.Minimap.Position = p
	}
	if src.Minimap.Width > 0 {
		dst.Minimap.Width = src.Minimap.Width
	}
	if src.Minimap.Height > 0 {
		dst.Minimap.Height = src.Minimap.Height
	}
	if src.Minimap.Padding > 0 {
		dst.Minimap.Padding = src.Minimap.Padding
	}
	// store
	if strings.TrimSpace(src.Store.Path) != "" {
		dst.Store.Path = strings.TrimSpace(src.Store.Path)
	}
	if strings.TrimSpace(src.Store.PgDSN) != "" {
		dst.Store.PgDSN = strings.TrimSpace(src.Store.PgDSN)
	}
	if strings.TrimSpace(src.Store.PgUser) != "" {
		dst.Store.PgUser = strings.TrimSpace(src.Store.PgUser)
	}
	if src.Store.PreviewsMaxBytes > 0 {
		dst.Store.PreviewsMaxBytes = src.Store.PreviewsMaxBytes
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvMinimapOpen)); v != "" {
		cfg.Minimap.Open = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDebounceMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Minimap.DebounceMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorePath)); v != "" {
		cfg.Store.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPgDSN)); v != "" {
		cfg.Store.PgDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPreviewsMaxBytes)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Store.PreviewsMaxBytes = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// envKeys maps config keys to the environment variables overriding them.
var envKeys = map[string]string{
	"minimap.open":             EnvMinimapOpen,
	"minimap.debounce_ms":      EnvDebounceMs,
	"store.path":               EnvStorePath,
	"store.pg_dsn":             EnvPgDSN,
	"store.previews_max_bytes": EnvPreviewsMaxBytes,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := envKeys[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// OverridableKeys lists, sorted, the config keys an environment variable can override.
func OverridableKeys() []string {
	keys := make([]string, 0, len(envKeys))
	for k := range envKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Debounce returns the configured debounce delay, falling back to the default.
func (m MinimapConfig) Debounce() time.Duration {
	if m.DebounceMs <= 0 {
		return time.Duration(Defaults().Minimap.DebounceMs) * time.Millisecond
	}
	return time.Duration(m.DebounceMs) * time.Millisecond
}

// MinimapOptions converts the minimap section into widget options. Clock, Dispatch
// and Logger are left for the caller to fill in.
func (c AppConfig) MinimapOptions() minimap.Options {
	return minimap.Options{
		Open:          c.Minimap.Open,
		DebounceDelay: c.Minimap.Debounce(),
		Position:      c.Minimap.Position,
		Width:         float64(c.Minimap.Width),
		Height:        float64(c.Minimap.Height),
		Padding:       c.Minimap.Padding,
	}
}
