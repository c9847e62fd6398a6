/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session runs a diagram canvas with an attached minimap without a
// window. The CLI render, watch and preview commands and the desktop UI all
// drive the minimap through it.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"gominimap/internal/diagram"
	applog "gominimap/internal/log"
	"gominimap/internal/minimap"
	"gominimap/internal/vector"
)

// Default canvas size in pixels.
const (
	DefaultWidth  = 1280
	DefaultHeight = 800

	// FitMargin is added around the content by Fit, in diagram units.
	FitMargin = 20
)

// Options configure a Session.
type Options struct {
	Width, Height float64
	Minimap       minimap.Options
	Logger        *slog.Logger
}

// Session owns a canvas, its modeling API and an open minimap. All methods
// serialise on the canvas lock, which is also where debounced minimap
// flushes run.
type Session struct {
	canvas   *diagram.Canvas
	modeling *diagram.Modeling
	minimap  *minimap.Minimap
	log      *slog.Logger
	doc      *diagram.Document
	closed   bool
}

// New creates a session with an open minimap.
func New(opts Options) *Session {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("session")
	}
	c, m := diagram.New(diagram.CanvasOptions{Width: opts.Width, Height: opts.Height})
	mo := opts.Minimap
	if mo.Dispatch == nil {
		mo.Dispatch = c.Do
	}
	if mo.Logger == nil && opts.Logger != nil {
		mo.Logger = opts.Logger
	}
	mo.Open = true
	s := &Session{canvas: c, modeling: m, log: l}
	s.minimap = minimap.New(c, c.Registry(), c.EventBus(), mo)
	return s
}

// Load replaces the canvas content with doc and fits the view to it.
func (s *Session) Load(doc *diagram.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", diagram.ErrInvalidDocument)
	}
	var err error
	s.canvas.Do(func() {
		if err = diagram.Import(s.canvas, s.modeling, doc); err != nil {
			return
		}
		s.doc = doc
		s.fit()
	})
	if err != nil {
		return err
	}
	ctx := applog.ContextWithDiagram(context.Background(), doc.ID)
	s.log.DebugContext(ctx, "diagram loaded", slog.Int("elements", len(doc.Elements)))
	return nil
}

// LoadFile parses and loads a JSON or YAML document.
func (s *Session) LoadFile(path string) error {
	doc, err := diagram.LoadDocument(path)
	if err != nil {
		return err
	}
	return s.Load(doc)
}

// Context returns parent carrying the loaded diagram's id, so records logged
// with it are tagged by the application log handler.
func (s *Session) Context(parent context.Context) context.Context {
	if d := s.Document(); d != nil && d.ID != "" {
		return applog.ContextWithDiagram(parent, d.ID)
	}
	return parent
}

// Document returns the last loaded document.
func (s *Session) Document() *diagram.Document {
	var d *diagram.Document
	s.canvas.Do(func() { d = s.doc })
	return d
}

// Fit shows the whole content plus FitMargin.
func (s *Session) Fit() { s.canvas.Do(s.fit) }

func (s *Session) fit() {
	b := s.canvas.DefaultLayerBounds()
	if b.Empty() {
		return
	}
	s.canvas.SetViewbox(b.Inset(-FitMargin, -FitMargin))
}

// SetViewbox shows box on the host canvas. Degenerate boxes are ignored.
func (s *Session) SetViewbox(box vector.Rect) {
	s.canvas.Do(func() { s.canvas.SetViewbox(box) })
}

// Resize changes the canvas pixel size.
func (s *Session) Resize(w, h float64) {
	s.canvas.Do(func() { s.canvas.Resize(w, h) })
}

// ResizeMinimap changes the minimap pixel size.
func (s *Session) ResizeMinimap(w, h float64) {
	s.canvas.Do(func() { s.minimap.Resize(w, h) })
}

// Snapshot redraws the minimap and returns its state.
func (s *Session) Snapshot() minimap.Snapshot {
	var snap minimap.Snapshot
	s.canvas.Do(func() {
		s.minimap.Update()
		snap = s.minimap.Snapshot()
	})
	return snap
}

// Do runs fn with exclusive access to the canvas, modeling and minimap.
// fn must not call other Session methods.
func (s *Session) Do(fn func(c *diagram.Canvas, m *diagram.Modeling, mm *minimap.Minimap)) {
	s.canvas.Do(func() { fn(s.canvas, s.modeling, s.minimap) })
}

// Close destroys the canvas; the minimap tears itself down on diagram.destroy.
func (s *Session) Close() {
	s.canvas.Do(func() {
		if s.closed {
			return
		}
		s.closed = true
		s.canvas.Destroy()
	})
}
