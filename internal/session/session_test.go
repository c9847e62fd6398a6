/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gominimap/internal/diagram"
	applog "gominimap/internal/log"
	"gominimap/internal/minimap"
	"gominimap/internal/vector"
)

type manualTimer struct {
	f    func()
	done bool
}

func (t *manualTimer) Stop() bool {
	was := !t.done
	t.done = true
	return was
}

// manualClock fires every pending timer on Fire.
type manualClock struct{ timers []*manualTimer }

func (c *manualClock) AfterFunc(_ time.Duration, f func()) minimap.Timer {
	t := &manualTimer{f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Fire() {
	for _, t := range append([]*manualTimer(nil), c.timers...) {
		if !t.done {
			t.done = true
			t.f()
		}
	}
}

func sampleDoc() *diagram.Document {
	doc := &diagram.Document{ID: "flow", Root: diagram.PlaneDoc{ID: "root"}}
	doc.Elements = []diagram.ElementDoc{
		{ID: "A", Type: "shape", X: 0, Y: 0, Width: 400, Height: 300},
		{ID: "B", Type: "shape", Parent: "A", X: 100, Y: 100, Width: 50, Height: 50},
	}
	return doc
}

func newSession(t *testing.T, clk *manualClock, onUpdate func(minimap.Snapshot)) *Session {
	t.Helper()
	s := New(Options{
		Logger:  applog.Discard(),
		Minimap: minimap.Options{Clock: clk, OnUpdate: onUpdate},
	})
	t.Cleanup(s.Close)
	return s
}

func TestLoadFitsAndSnapshots(t *testing.T) {
	s := newSession(t, &manualClock{}, nil)
	if err := s.Load(sampleDoc()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	snap := s.Snapshot()
	if !snap.Open {
		t.Fatalf("session minimap should be open")
	}
	if len(snap.Elements) != 2 {
		t.Fatalf("expected 2 mirrored elements, got %d", len(snap.Elements))
	}
	vp := snap.Viewport
	if math.Abs(vp.X+FitMargin) > 1e-9 || math.Abs(vp.Y+FitMargin) > 1e-9 || math.Abs(vp.H-340) > 1e-9 {
		t.Fatalf("viewport not fitted to content: %+v", vp)
	}
	if s.Document() == nil || s.Document().ID != "flow" {
		t.Fatalf("loaded document not retained")
	}
}

func TestDebouncedFlushRunsUnderCanvasLock(t *testing.T) {
	clk := &manualClock{}
	updates := 0
	var last minimap.Snapshot
	s := newSession(t, clk, func(snap minimap.Snapshot) {
		updates++
		last = snap
	})
	if err := s.Load(sampleDoc()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := updates
	s.Do(func(_ *diagram.Canvas, m *diagram.Modeling, _ *minimap.Minimap) {
		for i, x := range []float64{500, 600, 700} {
			if _, err := m.AddShape(diagram.NewShape(string(rune('C'+i)), x, 0, 50, 50), nil); err != nil {
				t.Errorf("AddShape: %v", err)
			}
		}
	})
	if updates != before {
		t.Fatalf("adds should be debounced, got %d immediate updates", updates-before)
	}
	clk.Fire()
	if updates != before+1 {
		t.Fatalf("expected exactly one debounced update, got %d", updates-before)
	}
	if len(last.Elements) != 5 {
		t.Fatalf("snapshot after flush has %d elements, want 5", len(last.Elements))
	}
}

func TestSetViewboxAndResize(t *testing.T) {
	s := newSession(t, &manualClock{}, nil)
	if err := s.Load(sampleDoc()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.Resize(400, 300)
	s.SetViewbox(vector.R(0, 0, 200, 150))
	vp := s.Snapshot().Viewport
	if !vp.Min().Eq(vector.Pt{}, 1e-9) || math.Abs(vp.W-200) > 1e-9 || math.Abs(vp.H-150) > 1e-9 {
		t.Fatalf("viewport = %+v, want (0,0,200,150)", vp)
	}
	s.ResizeMinimap(160, 90)
	if sz := s.Snapshot().Size; sz.W != 160 || sz.H != 90 {
		t.Fatalf("minimap size = %+v", sz)
	}
}

func TestLoadRejectsBrokenDocuments(t *testing.T) {
	s := newSession(t, &manualClock{}, nil)
	doc := sampleDoc()
	doc.Elements[1].Parent = "nope"
	if err := s.Load(doc); !errors.Is(err, diagram.ErrInvalidDocument) {
		t.Fatalf("want ErrInvalidDocument, got %v", err)
	}
	if err := s.Load(nil); !errors.Is(err, diagram.ErrInvalidDocument) {
		t.Fatalf("want ErrInvalidDocument for nil, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	data, err := sampleDoc().Encode(diagram.FormatYAML)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := newSession(t, &manualClock{}, nil)
	if err := s.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if n := len(s.Snapshot().Elements); n != 2 {
		t.Fatalf("elements = %d", n)
	}
}

func TestLoadTagsLogsWithDiagram(t *testing.T) {
	var buf bytes.Buffer
	applog.Init(applog.Options{Level: "debug", Format: "json", Writer: &buf})
	t.Cleanup(func() { applog.Init(applog.Options{Level: "info", Format: "console"}) })

	s := New(Options{Minimap: minimap.Options{Clock: &manualClock{}}})
	t.Cleanup(s.Close)
	if id, ok := applog.DiagramFromContext(s.Context(context.Background())); ok {
		t.Fatalf("context tagged before load: %q", id)
	}
	if err := s.Load(sampleDoc()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	var loaded string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, `"msg":"diagram loaded"`) {
			loaded = line
		}
	}
	if !strings.Contains(loaded, `"diagram":"flow"`) {
		t.Fatalf("load record = %q", loaded)
	}
	if id, _ := applog.DiagramFromContext(s.Context(context.Background())); id != "flow" {
		t.Fatalf("session context diagram = %q", id)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := New(Options{Logger: applog.Discard(), Minimap: minimap.Options{Clock: &manualClock{}}})
	s.Close()
	s.Close()
	if s.minimap.Node().Connected() {
		t.Fatalf("minimap still attached after Close")
	}
}
