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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"gominimap/internal/config"
	"gominimap/internal/diagram"
	applog "gominimap/internal/log"
	"gominimap/internal/vector"
)

type noTokens struct{}

func (noTokens) Get(string, string) (string, error) { return "", errors.New("no keyring") }
func (noTokens) Set(string, string, string) error   { return nil }
func (noTokens) Delete(string, string) error        { return nil }

// setup writes a config pointing the store into a temp dir and a sample
// diagram, and returns both paths.
func setup(t *testing.T) (cfgPath, docPath string) {
	t.Helper()
	t.Cleanup(config.SetTokenStore(noTokens{}))
	t.Setenv(config.EnvPgDSN, "")
	t.Setenv(config.EnvStorePath, "")
	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "config.yaml")
	cfg := "store:\n  path: " + filepath.Join(dir, "diagrams.db") + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	doc := &diagram.Document{ID: "flow", Name: "Flow", Root: diagram.PlaneDoc{ID: "root"}}
	doc.Elements = []diagram.ElementDoc{
		{ID: "A", Type: "shape", X: 0, Y: 0, Width: 400, Height: 300, Label: "Start"},
		{ID: "B", Type: "shape", X: 600, Y: 100, Width: 100, Height: 80},
		{ID: "AB", Type: "connection", Waypoints: []diagram.Point{{X: 400, Y: 150}, {X: 600, Y: 140}}},
	}
	data, err := doc.Encode(diagram.FormatYAML)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	docPath = filepath.Join(dir, "flow.yaml")
	if err := os.WriteFile(docPath, data, 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	return cfgPath, docPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand(&app{})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseViewbox(t *testing.T) {
	r, err := parseViewbox("10, -20,300,150.5")
	if err != nil {
		t.Fatalf("parseViewbox: %v", err)
	}
	if r != vector.R(10, -20, 300, 150.5) {
		t.Fatalf("got %+v", r)
	}
	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "0,0,0,10", "0,0,10,-1", "0,0,NaN,1"} {
		if _, err := parseViewbox(bad); err == nil {
			t.Fatalf("parseViewbox(%q) should fail", bad)
		}
	}
}

func TestParseSize(t *testing.T) {
	w, h, err := parseSize("320X180")
	if err != nil || w != 320 || h != 180 {
		t.Fatalf("got %d %d %v", w, h, err)
	}
	for _, bad := range []string{"", "320", "x180", "0x10", "10x-1", "99999x10"} {
		if _, _, err := parseSize(bad); err == nil {
			t.Fatalf("parseSize(%q) should fail", bad)
		}
	}
}

func TestRenderWritesSVGAndPNG(t *testing.T) {
	cfgPath, docPath := setup(t)
	dir := filepath.Dir(docPath)

	svg := filepath.Join(dir, "out", "flow.svg")
	if _, err := run(t, "--config", cfgPath, "render", docPath, "--out", svg); err != nil {
		t.Fatalf("render svg: %v", err)
	}
	data, err := os.ReadFile(svg)
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Fatalf("not an svg: %.80s", data)
	}

	png := filepath.Join(dir, "out", "flow.png")
	if _, err := run(t, "--config", cfgPath, "render", docPath, "--out", png, "--viewbox", "0,0,200,100", "--width", "160", "--height", "90"); err != nil {
		t.Fatalf("render png: %v", err)
	}
	data, err = os.ReadFile(png)
	if err != nil {
		t.Fatalf("read png: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("not a png")
	}
}

func TestRenderRejectsBadInput(t *testing.T) {
	cfgPath, docPath := setup(t)
	out := filepath.Join(t.TempDir(), "x.svg")
	if _, err := run(t, "--config", cfgPath, "render", docPath, "--out", out, "--viewbox", "1,2"); err == nil {
		t.Fatalf("bad viewbox should fail")
	}
	if _, err := run(t, "--config", cfgPath, "render", docPath, "--out", out, "--preset", "poster"); err == nil {
		t.Fatalf("unknown preset should fail")
	}
	if _, err := run(t, "--config", cfgPath, "render", docPath, "--out", filepath.Join(t.TempDir(), "x.gif")); err == nil {
		t.Fatalf("unknown extension should fail")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("no output expected, stat err = %v", err)
	}
}

func TestStoreAndPreviewCommands(t *testing.T) {
	cfgPath, docPath := setup(t)
	dir := filepath.Dir(docPath)

	out, err := run(t, "--config", cfgPath, "store", "put", docPath)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if strings.TrimSpace(out) != "flow v1" {
		t.Fatalf("put output = %q", out)
	}
	if out, err = run(t, "--config", cfgPath, "store", "put", docPath); err != nil || strings.TrimSpace(out) != "flow v2" {
		t.Fatalf("second put = %q, %v", out, err)
	}

	out, err = run(t, "--config", cfgPath, "store", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "flow") || !strings.Contains(out, "Flow") {
		t.Fatalf("list output = %q", out)
	}

	got := filepath.Join(dir, "got.yaml")
	if _, err := run(t, "--config", cfgPath, "store", "get", "flow", "--out", got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := diagram.LoadDocument(got); err != nil {
		t.Fatalf("stored document does not parse: %v", err)
	}

	png := filepath.Join(dir, "preview.png")
	for i := 0; i < 2; i++ {
		if _, err := run(t, "--config", cfgPath, "preview", "flow", "--size", "64x36", "--out", png); err != nil {
			t.Fatalf("preview %d: %v", i, err)
		}
	}
	data, err := os.ReadFile(png)
	if err != nil || !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("preview not a png: %v", err)
	}

	if _, err := run(t, "--config", cfgPath, "store", "rm", "flow"); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if _, err := run(t, "--config", cfgPath, "store", "get", "flow"); err == nil {
		t.Fatalf("get after rm should fail")
	}
	out, err = run(t, "--config", cfgPath, "store", "recover")
	if err != nil || !strings.Contains(out, "healthy") {
		t.Fatalf("recover = %q, %v", out, err)
	}
}

func TestConfigShowAndPath(t *testing.T) {
	cfgPath, _ := setup(t)
	out, err := run(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "diagrams.db") || !strings.Contains(out, "level: error") {
		t.Fatalf("show output = %q", out)
	}
	out, err = run(t, "--config", cfgPath, "config", "path")
	if err != nil || strings.TrimSpace(out) != cfgPath {
		t.Fatalf("path = %q, %v", out, err)
	}
}

func TestConfigShowMarksEnvOverrides(t *testing.T) {
	cfgPath, _ := setup(t)
	t.Setenv(config.EnvDebounceMs, "120")
	out, err := run(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "debounce_ms: 120") {
		t.Fatalf("env value not applied: %q", out)
	}
	want := "#   minimap.debounce_ms (" + config.EnvDebounceMs + ")"
	if !strings.Contains(out, "# overridden by environment:") || !strings.Contains(out, want) {
		t.Fatalf("override not marked: %q", out)
	}
	if strings.Contains(out, "store.path (") {
		t.Fatalf("store.path marked although its env var is empty: %q", out)
	}
}

func TestWatchLoopDebouncesBursts(t *testing.T) {
	target := filepath.Join(t.TempDir(), "flow.yaml")
	events := make(chan fsnotify.Event)
	errs := make(chan error)
	rebuilt := make(chan struct{}, 8)
	var calls atomic.Int32
	rebuild := func() error {
		calls.Add(1)
		rebuilt <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchLoop(ctx, target, events, errs, 20*time.Millisecond, rebuild, applog.Discard()) }()

	events <- fsnotify.Event{Name: target + ".swp", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: target, Op: fsnotify.Chmod}
	events <- fsnotify.Event{Name: target, Op: fsnotify.Write}
	events <- fsnotify.Event{Name: target, Op: fsnotify.Rename}
	events <- fsnotify.Event{Name: target, Op: fsnotify.Create}
	errs <- errors.New("transient")

	select {
	case <-rebuilt:
	case <-time.After(2 * time.Second):
		t.Fatalf("no rebuild")
	}
	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("rebuilds = %d, want 1", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watchLoop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watchLoop did not stop")
	}
}

func TestWatchLoopSurvivesRebuildErrors(t *testing.T) {
	target := filepath.Join(t.TempDir(), "flow.yaml")
	events := make(chan fsnotify.Event)
	var calls atomic.Int32
	rebuild := func() error {
		calls.Add(1)
		return errors.New("half-written file")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- watchLoop(ctx, target, events, nil, time.Millisecond, rebuild, applog.Discard()) }()

	for i := 0; i < 2; i++ {
		events <- fsnotify.Event{Name: target, Op: fsnotify.Write}
		deadline := time.Now().Add(2 * time.Second)
		for calls.Load() < int32(i+1) {
			if time.Now().After(deadline) {
				t.Fatalf("rebuild %d not called", i+1)
			}
			time.Sleep(time.Millisecond)
		}
	}
	close(events)
	if err := <-done; err != nil {
		t.Fatalf("watchLoop: %v", err)
	}
}
