//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"gominimap/internal/diagram"
	"gominimap/internal/minimap"
	"gominimap/internal/session"
	"gominimap/internal/vector"
)

var (
	colorCanvasBg     = color.RGBA{R: 250, G: 250, B: 250, A: 255}
	colorMinimapBg    = color.RGBA{R: 255, G: 255, B: 255, A: 235}
	colorShapeFill    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorShapeStroke  = color.RGBA{R: 34, G: 36, B: 42, A: 255}
	colorConnection   = color.RGBA{R: 34, G: 36, B: 42, A: 255}
	colorViewportFill = color.RGBA{R: 255, G: 116, B: 0, A: 64}
	colorViewport     = color.RGBA{R: 255, G: 116, B: 0, A: 255}
	colorLabel        = color.RGBA{R: 34, G: 36, B: 42, A: 255}
)

func toPt(p fyne.Position) vector.Pt { return vector.Pt{X: float64(p.X), Y: float64(p.Y)} }

func toPos(p vector.Pt) fyne.Position { return fyne.NewPos(float32(p.X), float32(p.Y)) }

func toSize(r vector.Rect) fyne.Size { return fyne.NewSize(float32(r.W), float32(r.H)) }

// sceneObjects keeps canvas objects for a Scene, growing the pools on demand.
type sceneObjects struct {
	bg       *canvas.Rectangle
	shapes   []*canvas.Rectangle
	labels   []*canvas.Text
	lines    []*canvas.Line
	viewport *canvas.Rectangle
}

func newSceneObjects(bg color.Color, withViewport bool) *sceneObjects {
	o := &sceneObjects{bg: canvas.NewRectangle(bg)}
	if withViewport {
		o.viewport = canvas.NewRectangle(colorViewportFill)
		o.viewport.StrokeColor = colorViewport
		o.viewport.StrokeWidth = 2
	}
	return o
}

func (o *sceneObjects) objects() []fyne.CanvasObject {
	objs := []fyne.CanvasObject{o.bg}
	for _, l := range o.lines {
		objs = append(objs, l)
	}
	for _, r := range o.shapes {
		objs = append(objs, r)
	}
	for _, t := range o.labels {
		objs = append(objs, t)
	}
	if o.viewport != nil {
		objs = append(objs, o.viewport)
	}
	return objs
}

// layout positions the pools for sc; it reports whether the object list changed.
func (o *sceneObjects) layout(sc Scene, size fyne.Size, labels bool) bool {
	changed := false
	o.bg.Resize(size)
	o.bg.Move(fyne.NewPos(0, 0))

	for len(o.lines) < len(sc.Lines) {
		l := canvas.NewLine(colorConnection)
		l.StrokeWidth = 1
		o.lines = append(o.lines, l)
		changed = true
	}
	for i, l := range o.lines {
		if i >= len(sc.Lines) {
			l.Hide()
			continue
		}
		l.Position1 = toPos(sc.Lines[i].From)
		l.Position2 = toPos(sc.Lines[i].To)
		l.Show()
	}

	for len(o.shapes) < len(sc.Shapes) {
		r := canvas.NewRectangle(colorShapeFill)
		r.StrokeColor = colorShapeStroke
		r.StrokeWidth = 1
		o.shapes = append(o.shapes, r)
		t := canvas.NewText("", colorLabel)
		t.TextSize = 11
		o.labels = append(o.labels, t)
		changed = true
	}
	for i, r := range o.shapes {
		t := o.labels[i]
		if i >= len(sc.Shapes) {
			r.Hide()
			t.Hide()
			continue
		}
		s := sc.Shapes[i]
		r.Move(toPos(s.Rect.Min()))
		r.Resize(toSize(s.Rect))
		r.Show()
		if labels && s.Label != "" {
			t.Text = s.Label
			t.Move(toPos(s.Rect.Min().Add(vector.Pt{X: 4, Y: 2})))
			t.Show()
		} else {
			t.Hide()
		}
	}

	if o.viewport != nil {
		if sc.Viewport.Empty() {
			o.viewport.Hide()
		} else {
			o.viewport.Move(toPos(sc.Viewport.Min()))
			o.viewport.Resize(toSize(sc.Viewport))
			o.viewport.Show()
		}
	}
	return changed
}

// sceneRenderer is shared by both views.
type sceneRenderer struct {
	w       fyne.Widget
	pool    *sceneObjects
	scene   func(size fyne.Size) Scene
	labels  bool
	objects []fyne.CanvasObject
}

func (r *sceneRenderer) Destroy()                     {}
func (r *sceneRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *sceneRenderer) MinSize() fyne.Size           { return fyne.NewSize(120, 80) }
func (r *sceneRenderer) Refresh()                     { r.Layout(r.w.Size()); canvas.Refresh(r.w) }

func (r *sceneRenderer) Layout(size fyne.Size) {
	if r.pool.layout(r.scene(size), size, r.labels) {
		r.objects = r.pool.objects()
	}
}

// MinimapView draws the minimap and forwards pointer input to it.
type MinimapView struct {
	widget.BaseWidget
	sess     *session.Session
	size     fyne.Size
	snap     minimap.Snapshot
	last     vector.Pt
	cursor   string
	OnChange func()
}

func NewMinimapView(sess *session.Session, w, h float64) *MinimapView {
	v := &MinimapView{sess: sess, size: fyne.NewSize(float32(w), float32(h)), cursor: minimap.CursorDefault}
	v.ExtendBaseWidget(v)
	return v
}

// Apply replaces the drawn snapshot. Call on the UI goroutine.
func (v *MinimapView) Apply(snap minimap.Snapshot) {
	v.snap = snap
	if snap.Open {
		v.Show()
	} else {
		v.Hide()
	}
	v.Refresh()
}

func (v *MinimapView) CreateRenderer() fyne.WidgetRenderer {
	r := &sceneRenderer{w: v, pool: newSceneObjects(colorMinimapBg, true)}
	r.scene = func(fyne.Size) Scene { return MinimapScene(v.snap) }
	r.objects = r.pool.objects()
	return r
}

func (v *MinimapView) MinSize() fyne.Size { return v.size }

func (v *MinimapView) interact(fn func(mm *minimap.Minimap)) {
	v.sess.Do(func(_ *diagram.Canvas, _ *diagram.Modeling, mm *minimap.Minimap) {
		fn(mm)
		v.cursor = mm.Cursor()
	})
	if v.OnChange != nil {
		v.OnChange()
	}
}

func (v *MinimapView) MouseDown(e *desktop.MouseEvent) {
	v.last = toPt(e.Position)
	v.interact(func(mm *minimap.Minimap) { mm.PointerDown(v.last) })
}

func (v *MinimapView) MouseUp(e *desktop.MouseEvent) {
	v.interact(func(mm *minimap.Minimap) { mm.PointerUp(toPt(e.Position)) })
}

func (v *MinimapView) Dragged(e *fyne.DragEvent) {
	v.last = toPt(e.Position)
	v.interact(func(mm *minimap.Minimap) { mm.PointerMove(v.last) })
}

func (v *MinimapView) DragEnd() {
	v.interact(func(mm *minimap.Minimap) { mm.PointerUp(v.last) })
}

func (v *MinimapView) MouseIn(e *desktop.MouseEvent) { v.MouseMoved(e) }

func (v *MinimapView) MouseMoved(e *desktop.MouseEvent) {
	p := toPt(e.Position)
	v.sess.Do(func(_ *diagram.Canvas, _ *diagram.Modeling, mm *minimap.Minimap) {
		mm.Hover(p)
		v.cursor = mm.Cursor()
	})
}

func (v *MinimapView) MouseOut() {
	v.sess.Do(func(_ *diagram.Canvas, _ *diagram.Modeling, mm *minimap.Minimap) {
		mm.Leave()
		v.cursor = mm.Cursor()
	})
}

// Scrolled zooms the host canvas around the pointer. Fyne reports wheel
// deltas in pixels with "up" positive, the reverse of the DOM convention.
func (v *MinimapView) Scrolled(e *fyne.ScrollEvent) {
	ev := minimap.WheelEvent{
		DX:   -float64(e.Scrolled.DX),
		DY:   -float64(e.Scrolled.DY),
		Mode: minimap.DeltaPixel,
		Pos:  toPt(e.Position),
	}
	v.interact(func(mm *minimap.Minimap) { mm.Wheel(ev) })
}

func (v *MinimapView) Cursor() desktop.Cursor {
	switch v.cursor {
	case minimap.CursorMove:
		return desktop.PointerCursor
	case minimap.CursorCrosshair:
		return desktop.CrosshairCursor
	default:
		return desktop.DefaultCursor
	}
}

// DiagramView draws the host canvas. Dragging pans and the wheel zooms.
type DiagramView struct {
	widget.BaseWidget
	sess     *session.Session
	snap     minimap.Snapshot
	OnChange func()
}

func NewDiagramView(sess *session.Session) *DiagramView {
	v := &DiagramView{sess: sess}
	v.ExtendBaseWidget(v)
	return v
}

// Apply replaces the drawn snapshot. Call on the UI goroutine.
func (v *DiagramView) Apply(snap minimap.Snapshot) {
	v.snap = snap
	v.Refresh()
}

func (v *DiagramView) CreateRenderer() fyne.WidgetRenderer {
	r := &sceneRenderer{w: v, pool: newSceneObjects(colorCanvasBg, false), labels: true}
	r.scene = func(size fyne.Size) Scene {
		return DiagramScene(v.snap, vector.Size{W: float64(size.Width), H: float64(size.Height)})
	}
	r.objects = r.pool.objects()
	return r
}

// Resize keeps the session canvas the same pixel size as the widget.
func (v *DiagramView) Resize(size fyne.Size) {
	v.BaseWidget.Resize(size)
	v.sess.Resize(float64(size.Width), float64(size.Height))
	v.changed()
}

func (v *DiagramView) changed() {
	if v.OnChange != nil {
		v.OnChange()
	}
}

func (v *DiagramView) Dragged(e *fyne.DragEvent) {
	dx, dy := float64(e.Dragged.DX), float64(e.Dragged.DY)
	v.sess.Do(func(c *diagram.Canvas, _ *diagram.Modeling, _ *minimap.Minimap) { c.Scroll(dx, dy) })
	v.changed()
}

func (v *DiagramView) DragEnd() {}

func (v *DiagramView) Scrolled(e *fyne.ScrollEvent) {
	px := toPt(e.Position)
	factor := 1.1
	if e.Scrolled.DY < 0 {
		factor = 1 / factor
	}
	v.sess.Do(func(c *diagram.Canvas, _ *diagram.Modeling, _ *minimap.Minimap) {
		anchor := c.ToDiagram(px)
		c.SetZoom(c.Zoom()*factor, &anchor)
	})
	v.changed()
}

// overlayLayout fills the container with the first object and docks the
// second (the minimap) at a corner.
type overlayLayout struct {
	position string
	margin   float64
}

func (l *overlayLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	if len(objects) == 0 {
		return
	}
	objects[0].Move(fyne.NewPos(0, 0))
	objects[0].Resize(size)
	if len(objects) < 2 {
		return
	}
	mini := objects[1].MinSize()
	p := Placement(
		vector.Size{W: float64(size.Width), H: float64(size.Height)},
		vector.Size{W: float64(mini.Width), H: float64(mini.Height)},
		l.position, l.margin)
	objects[1].Move(toPos(p))
	objects[1].Resize(mini)
}

func (l *overlayLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	if len(objects) == 0 {
		return fyne.NewSize(0, 0)
	}
	return objects[0].MinSize()
}
