/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package minimap implements a minimap overlay for a diagram canvas: a scaled
// mirror of the diagram with a rectangle marking the visible region. Clicking,
// dragging and scrolling over it pans and zooms the host canvas.
//
// The minimap is driven entirely by host events. Element notifications are
// debounced; viewbox, resize and open changes redraw immediately. All methods
// must be called from the host's UI thread (see Options.Dispatch).
package minimap

import (
	"fmt"
	"log/slog"

	"gominimap/internal/diagram"
	"gominimap/internal/surface"
	"gominimap/internal/vector"
)

// EventToggle is fired with Data["open"] when the minimap opens or closes.
const EventToggle = "minimap.toggle"

// Minimap wires the mirror, indicator, scheduler, drag and zoom components to
// a host canvas.
type Minimap struct {
	canvas   Canvas
	registry ElementRegistry
	bus      EventBus
	opts     Options
	logger   *slog.Logger

	parent   *surface.Node
	mapNode  *surface.Node
	svg      *surface.Node
	elements *surface.Node
	viewport *surface.Node
	overlay  *surface.Node

	mapper    *Mapper
	indicator *ViewportIndicator
	mirror    *MirrorTree
	zoom      *ZoomController
	drag      *DragController
	scheduler *Scheduler

	subs      []diagram.Subscription
	open      bool
	destroyed bool
	cursor    string
}

// New creates the minimap, attaches it to canvas.Container() and subscribes
// to the host events. Existing elements are mirrored right away.
func New(canvas Canvas, registry ElementRegistry, bus EventBus, opts Options) *Minimap {
	opts = opts.withDefaults()
	m := &Minimap{
		canvas:   canvas,
		registry: registry,
		bus:      bus,
		opts:     opts,
		logger:   opts.Logger,
		zoom:     NewZoomController(),
		cursor:   CursorDefault,
	}
	m.build()
	m.mapper = NewMapper(opts.Width, opts.Height)
	m.indicator = NewViewportIndicator(m.svg, m.viewport, m.overlay, m.mapper)
	m.mirror = NewMirrorTree(canvas, registry, m.elements, m.logger)
	m.scheduler = NewScheduler(opts.DebounceDelay, opts.Clock, opts.Dispatch, m.update)
	m.drag = NewDragController(canvas, m.mapper, m.indicator, m.scheduler.Immediate, func() int { return m.scheduler.Stats().Flushes }, m.setCursor)

	m.subscribe()
	m.mirror.Rebuild(nil)
	if opts.Open {
		m.Open()
	}
	return m
}

func (m *Minimap) build() {
	h, v := m.opts.placement()
	m.parent = surface.El("div", []string{"djs-minimap"}, "data-position", h+"-"+v)
	m.parent.SetAttr("style", fmt.Sprintf("position: absolute; %s: %spx; %s: %spx", h, fnum(m.opts.Margin), v, fnum(m.opts.Margin)))
	m.mapNode = m.parent.Append(surface.El("div", []string{"djs-minimap-map"}))
	m.styleMap()
	m.svg = m.mapNode.Append(surface.El("svg", nil, "width", "100%", "height", "100%"))
	m.elements = m.svg.Append(surface.El("g", []string{"djs-minimap-elements"}))
	vg := m.svg.Append(surface.El("g", []string{"djs-minimap-viewport-group"}))
	m.viewport = vg.Append(surface.El("rect", []string{"djs-minimap-viewport"}))
	m.overlay = m.mapNode.Append(surface.El("div", []string{"djs-minimap-viewport-dom"}))
	m.canvas.Container().Append(m.parent)
}

func (m *Minimap) styleMap() {
	display := "none"
	if m.open {
		display = "block"
	}
	m.mapNode.SetAttr("style", fmt.Sprintf("width: %spx; height: %spx; display: %s", fnum(m.opts.Width), fnum(m.opts.Height), display))
}

func (m *Minimap) subscribe() {
	on := func(events []string, fn diagram.Listener) {
		m.subs = append(m.subs, m.bus.On(events, diagram.DefaultPriority, fn))
	}
	on([]string{diagram.EventShapeAdded, diagram.EventConnectionAdded}, func(ev *diagram.Event) {
		m.mirror.Add(ev.Element)
		m.scheduler.Schedule()
	})
	on([]string{diagram.EventShapeRemoved, diagram.EventConnectionRemoved}, func(ev *diagram.Event) {
		m.mirror.Remove(ev.Element)
		m.scheduler.Schedule()
	})
	on([]string{diagram.EventElementsChanged}, func(ev *diagram.Event) {
		if failed := m.mirror.UpdateAll(ev.Elements); failed > 0 {
			m.logger.Warn("elements skipped during update", slog.Int("failed", failed), slog.Int("total", len(ev.Elements)))
		}
		m.scheduler.Schedule()
	})
	on([]string{diagram.EventElementUpdateID}, func(ev *diagram.Event) {
		if ev.Element != nil {
			m.mirror.Rename(ev.Element.ID, ev.NewID)
		}
	})
	on([]string{diagram.EventViewboxChanged, diagram.EventCanvasResized, diagram.EventAttach}, func(*diagram.Event) {
		if !m.drag.Dragging() {
			m.scheduler.Immediate()
		}
	})
	on([]string{diagram.EventDetach}, func(*diagram.Event) {
		m.drag.Cancel()
	})
	on([]string{diagram.EventImportDone, diagram.EventRootSet}, func(*diagram.Event) {
		m.mirror.Rebuild(nil)
		m.scheduler.Immediate()
	})
	on([]string{diagram.EventDiagramDestroy}, func(*diagram.Event) {
		m.Destroy()
	})
}

// update is the scheduler's flush. It reports whether it redrew.
func (m *Minimap) update() bool {
	if m.destroyed || !m.open || m.drag.Dragging() || !m.parent.Connected() {
		return false
	}
	vb := m.canvas.Viewbox()
	disp := ComputeDisplayViewbox(vb, m.opts.Padding)
	m.indicator.Render(vb, disp)
	if m.opts.OnUpdate != nil {
		m.opts.OnUpdate(m.Snapshot())
	}
	return true
}

// Open shows the minimap and redraws it immediately.
func (m *Minimap) Open() {
	if m.destroyed {
		return
	}
	m.open = true
	m.parent.AddClass("open")
	m.styleMap()
	m.bus.Fire(EventToggle, &diagram.Event{Data: map[string]any{"open": true}})
	m.scheduler.Immediate()
}

// Close hides the minimap.
func (m *Minimap) Close() {
	if m.destroyed {
		return
	}
	m.open = false
	m.parent.RemoveClass("open")
	m.styleMap()
	m.drag.Cancel()
	m.bus.Fire(EventToggle, &diagram.Event{Data: map[string]any{"open": false}})
}

// Toggle switches the open state, or sets it when open is non-nil.
func (m *Minimap) Toggle(open *bool) {
	want := !m.open
	if open != nil {
		want = *open
	}
	if want == m.open {
		return
	}
	if want {
		m.Open()
	} else {
		m.Close()
	}
}

func (m *Minimap) IsOpen() bool { return m.open }

// PointerDown handles a press at px (minimap pixels). Over the indicator it
// starts a drag. Elsewhere it first recenters the canvas on the point, which
// puts the indicator under the pointer, and then starts the drag.
func (m *Minimap) PointerDown(px vector.Pt) {
	if !m.open {
		return
	}
	if m.drag.PointerDown(px) {
		return
	}
	m.drag.Click(px)
	m.drag.PointerDown(px)
}

func (m *Minimap) PointerMove(px vector.Pt) {
	if !m.open {
		return
	}
	m.drag.PointerMove(px)
}

func (m *Minimap) PointerUp(px vector.Pt) { m.drag.PointerUp(px) }

// Click recenters the canvas on px keeping the zoom.
func (m *Minimap) Click(px vector.Pt) {
	if !m.open {
		return
	}
	m.drag.Click(px)
}

// Hover updates the cursor for a pointer at px.
func (m *Minimap) Hover(px vector.Pt) {
	switch {
	case m.drag.Dragging() || m.indicator.HitTest(px):
		m.setCursor(CursorMove)
	default:
		m.setCursor(CursorCrosshair)
	}
}

// Leave resets the cursor when the pointer leaves the minimap.
func (m *Minimap) Leave() {
	if !m.drag.Dragging() {
		m.setCursor(CursorDefault)
	}
}

// Wheel zooms the canvas around the diagram point under the pointer once
// enough scroll has accumulated. It reports whether the zoom changed.
func (m *Minimap) Wheel(ev WheelEvent) bool {
	if !m.open {
		return false
	}
	anchor := m.mapper.ToDiagram(ev.Pos)
	z, ok := m.zoom.Accumulate(ev, m.canvas.Zoom())
	if !ok {
		return false
	}
	m.canvas.SetZoom(z, &anchor)
	return true
}

// Resize sets the minimap's pixel size and redraws.
func (m *Minimap) Resize(w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	m.opts.Width, m.opts.Height = w, h
	m.mapper.SetSize(w, h)
	m.styleMap()
	m.scheduler.Immediate()
}

// Update forces a redraw.
func (m *Minimap) Update() { m.scheduler.Immediate() }

func (m *Minimap) setCursor(c string) {
	m.cursor = c
	m.parent.SetAttr("data-cursor", c)
}

func (m *Minimap) Cursor() string                { return m.cursor }
func (m *Minimap) Stats() Stats                  { return m.scheduler.Stats() }
func (m *Minimap) Mirror() *MirrorTree           { return m.mirror }
func (m *Minimap) Mapper() *Mapper               { return m.mapper }
func (m *Minimap) Indicator() *ViewportIndicator { return m.indicator }
func (m *Minimap) Node() *surface.Node           { return m.parent }
func (m *Minimap) SVG() *surface.Node            { return m.svg }
func (m *Minimap) Dragging() bool                { return m.drag.Dragging() }

// Destroy unsubscribes from the host, stops the timer and removes the nodes.
func (m *Minimap) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	for _, s := range m.subs {
		m.bus.Off(s)
	}
	m.subs = nil
	m.scheduler.Close()
	m.mirror.Clear()
	m.parent.Remove()
}
