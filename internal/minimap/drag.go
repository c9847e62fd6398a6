/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package minimap

import (
	"gominimap/internal/diagram"
	"gominimap/internal/vector"
)

// Cursors shown over the minimap.
const (
	CursorDefault   = "inherit"
	CursorCrosshair = "crosshair"
	CursorMove      = "move"
)

// DragState is the transient state of a viewport drag.
type DragState struct {
	Active bool
	// Start is the pointer position at pointer down, in minimap pixels.
	Start vector.Pt
	// Offset is the pointer's offset from the viewport centre in diagram units.
	Offset vector.Pt
	// Cached is the host viewbox at pointer down.
	Cached diagram.Viewbox
	// OverlayOffset is the pointer's offset inside the overlay in pixels.
	OverlayOffset vector.Pt
}

// Reset returns the state to idle.
func (d *DragState) Reset() { *d = DragState{} }

// DragController implements the Idle/Dragging state machine for the viewport
// indicator and click-to-center on the background.
type DragController struct {
	canvas    Canvas
	mapper    *Mapper
	indicator *ViewportIndicator
	redraw    func()
	flushes   func() int
	cursor    func(string)

	state DragState
}

// NewDragController wires the controller to the minimap. flushes reports the
// number of redraws so far; a recentre that already caused one through the
// host's viewbox.changed event is not redrawn again.
func NewDragController(canvas Canvas, mapper *Mapper, indicator *ViewportIndicator, redraw func(), flushes func() int, cursor func(string)) *DragController {
	if cursor == nil {
		cursor = func(string) {}
	}
	if flushes == nil {
		flushes = func() int { return 0 }
	}
	return &DragController{canvas: canvas, mapper: mapper, indicator: indicator, redraw: redraw, flushes: flushes, cursor: cursor}
}

func (d *DragController) Dragging() bool   { return d.state.Active }
func (d *DragController) State() DragState { return d.state }

// PointerDown starts a drag when px is over the indicator and reports whether it did.
func (d *DragController) PointerDown(px vector.Pt) bool {
	if d.state.Active || !d.indicator.HitTest(px) {
		return false
	}
	vb := d.canvas.Viewbox()
	p := d.mapper.ToDiagram(px)
	d.state = DragState{
		Active:        true,
		Start:         px,
		Offset:        OffsetFromCenter(p, vb.Inner),
		Cached:        vb,
		OverlayOffset: px.Sub(d.indicator.Overlay().Min()),
	}
	d.cursor(CursorMove)
	return true
}

// PointerMove recenters the host viewbox so the grabbed point follows the pointer.
func (d *DragController) PointerMove(px vector.Pt) {
	if !d.state.Active {
		return
	}
	p := d.mapper.ToDiagram(px).Sub(d.state.Offset)
	vb := CenterViewboxAround(p, d.state.Cached.Inner.W, d.state.Cached.Inner.H)
	d.canvas.SetViewbox(vb)
	d.indicator.MoveOverlay(vb)
}

// PointerUp ends the drag. A release at the start position is a click.
// Exactly one redraw follows.
func (d *DragController) PointerUp(px vector.Pt) {
	if !d.state.Active {
		return
	}
	click := px == d.state.Start
	d.state.Reset()
	d.cursor(CursorCrosshair)
	before := d.flushes()
	if click {
		d.centerOn(px)
	}
	if d.flushes() == before {
		d.redraw()
	}
}

// Click recenters the host viewbox on the clicked point, keeping the zoom.
func (d *DragController) Click(px vector.Pt) {
	if d.state.Active {
		return
	}
	before := d.flushes()
	d.centerOn(px)
	if d.flushes() == before {
		d.redraw()
	}
}

// Cancel drops an active drag without moving the canvas.
func (d *DragController) Cancel() {
	if !d.state.Active {
		return
	}
	d.state.Reset()
	d.cursor(CursorDefault)
	d.redraw()
}

func (d *DragController) centerOn(px vector.Pt) {
	inner := d.canvas.Viewbox().Inner
	if !inner.IsFinite() || inner.W <= 0 || inner.H <= 0 {
		return
	}
	d.canvas.SetViewbox(CenterViewboxAround(d.mapper.ToDiagram(px), inner.W, inner.H))
}
