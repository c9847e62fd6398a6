/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package diagram

import (
	"fmt"
	"math"
	"sync"

	"gominimap/internal/surface"
	"gominimap/internal/vector"
)

// Viewbox describes what the canvas shows. Inner is the region currently
// visible (diagram units), Outer the extent of the diagram content, Scale the
// pixels per diagram unit.
type Viewbox struct {
	Inner vector.Rect
	Outer vector.Rect
	Scale float64
}

// CanvasOptions sets the initial pixel size of the canvas container.
type CanvasOptions struct {
	Width, Height float64
}

// Canvas owns the surface document the diagram is drawn into, the active root
// and the pan/zoom state.
type Canvas struct {
	mu sync.Mutex

	bus      *EventBus
	registry *Registry
	renderer Renderer

	doc       *surface.Node
	body      *surface.Node
	container *surface.Node
	svg       *surface.Node
	viewport  *surface.Node

	roots  map[string]*Element
	layers map[string]*surface.Node
	root   *Element

	size   vector.Size
	origin vector.Pt
	scale  float64
}

// NewCanvas builds the container tree and attaches it to a fresh document.
func NewCanvas(bus *EventBus, registry *Registry, opts CanvasOptions) *Canvas {
	c := &Canvas{
		bus:      bus,
		registry: registry,
		renderer: DefaultRenderer{},
		roots:    map[string]*Element{},
		layers:   map[string]*surface.Node{},
		size:     vector.Size{W: opts.Width, H: opts.Height},
		scale:    1,
	}
	c.doc = surface.NewDocument()
	c.body = c.doc.Append(surface.New("body"))
	c.container = c.body.Append(surface.El("div", []string{"djs-container"}))
	c.svg = c.container.Append(surface.El("svg", nil, "width", "100%", "height", "100%"))
	c.viewport = c.svg.Append(surface.El("g", []string{"viewport"}))
	c.applyTransform()
	return c
}

// Do runs fn while holding the canvas lock. Timers and watchers route their
// work through it so all model and surface mutation is serialised. fn must
// not call Do again.
func (c *Canvas) Do(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

func (c *Canvas) EventBus() *EventBus     { return c.bus }
func (c *Canvas) Registry() *Registry     { return c.registry }
func (c *Canvas) Document() *surface.Node { return c.doc }

// Container is the node overlays such as the minimap attach to.
func (c *Canvas) Container() *surface.Node { return c.container }

// SVG is the drawing root holding the viewport group.
func (c *Canvas) SVG() *surface.Node { return c.svg }

// SetRenderer replaces the element renderer used for new and updated graphics.
func (c *Canvas) SetRenderer(r Renderer) {
	if r != nil {
		c.renderer = r
	}
}

// Attach connects the container to the document and fires attach.
func (c *Canvas) Attach() {
	if c.container.Connected() {
		return
	}
	c.body.Append(c.container)
	c.bus.Fire(EventAttach, nil)
}

// Detach removes the container from the document and fires detach.
func (c *Canvas) Detach() {
	if !c.container.Connected() {
		return
	}
	c.container.Remove()
	c.bus.Fire(EventDetach, nil)
}

// Size returns the container size in pixels.
func (c *Canvas) Size() vector.Size { return c.size }

// Resize changes the container pixel size and fires canvas.resized.
func (c *Canvas) Resize(w, h float64) {
	if w < 0 || h < 0 || math.IsNaN(w) || math.IsNaN(h) {
		return
	}
	c.size = vector.Size{W: w, H: h}
	c.bus.Fire(EventCanvasResized, &Event{Viewbox: c.Viewbox()})
}

// Viewbox reports the visible region, the content extent and the scale.
func (c *Canvas) Viewbox() Viewbox {
	return Viewbox{
		Inner: vector.R(c.origin.X, c.origin.Y, c.size.W/c.scale, c.size.H/c.scale),
		Outer: c.DefaultLayerBounds(),
		Scale: c.scale,
	}
}

// SetViewbox shows box, fitting it into the container. Degenerate boxes are ignored.
func (c *Canvas) SetViewbox(box vector.Rect) {
	if !box.IsFinite() || box.W <= 0 || box.H <= 0 {
		return
	}
	if c.size.W > 0 && c.size.H > 0 {
		c.scale = math.Min(c.size.W/box.W, c.size.H/box.H)
	}
	c.origin = box.Min()
	c.viewboxChanged()
}

// Zoom returns the current scale.
func (c *Canvas) Zoom() float64 { return c.scale }

// SetZoom sets the scale keeping anchor (diagram units) at the same screen
// position. A nil anchor zooms around the centre of the visible region.
func (c *Canvas) SetZoom(z float64, anchor *vector.Pt) {
	if math.IsNaN(z) || math.IsInf(z, 0) || z <= 0 {
		return
	}
	var a vector.Pt
	if anchor != nil {
		a = *anchor
	} else {
		a = c.Viewbox().Inner.Center()
	}
	screen := a.Sub(c.origin).Scale(c.scale)
	c.origin = a.Sub(screen.Scale(1 / z))
	c.scale = z
	c.viewboxChanged()
}

// Scroll pans by dx,dy pixels.
func (c *Canvas) Scroll(dx, dy float64) {
	c.origin = c.origin.Sub(vector.Pt{X: dx / c.scale, Y: dy / c.scale})
	c.viewboxChanged()
}

// ToDiagram converts a container pixel position to diagram units.
func (c *Canvas) ToDiagram(px vector.Pt) vector.Pt {
	return c.origin.Add(px.Scale(1 / c.scale))
}

func (c *Canvas) viewboxChanged() {
	c.applyTransform()
	c.bus.Fire(EventViewboxChanged, &Event{Viewbox: c.Viewbox()})
}

func (c *Canvas) applyTransform() {
	s := c.scale
	c.viewport.SetAttr("transform", fmt.Sprintf("matrix(%s 0 0 %s %s %s)",
		num(s), num(s), num(-c.origin.X*s), num(-c.origin.Y*s)))
}

// RootElement returns the active root, creating an implicit one on first use.
func (c *Canvas) RootElement() *Element {
	if c.root == nil {
		c.SetRootElement(NewRoot("__implicitroot"))
	}
	return c.root
}

// Roots lists every registered root (plane).
func (c *Canvas) Roots() []*Element {
	return c.registry.Filter(func(e *Element) bool { return e.IsRoot() })
}

// AddRoot registers a root with its own layer without activating it.
func (c *Canvas) AddRoot(root *Element) error {
	if _, ok := c.roots[root.ID]; ok {
		return nil
	}
	layer := surface.El("g", []string{"layer", "layer-root"}, "data-root-id", root.ID)
	if err := c.registry.Add(root, layer); err != nil {
		return fmt.Errorf("add root %q: %w", root.ID, err)
	}
	c.roots[root.ID] = root
	c.layers[root.ID] = layer
	layer.SetAttr("display", "none")
	c.viewport.Append(layer)
	return nil
}

// SetRootElement activates root (adding it when new) and fires root.set.
func (c *Canvas) SetRootElement(root *Element) {
	if root == nil || root == c.root {
		return
	}
	if err := c.AddRoot(root); err != nil {
		return
	}
	if c.root != nil {
		c.layers[c.root.ID].SetAttr("display", "none")
	}
	c.root = c.roots[root.ID]
	c.layers[c.root.ID].RemoveAttr("display")
	c.bus.Fire(EventRootSet, &Event{Element: c.root})
}

// DefaultLayerBounds is the bounding box of everything drawn under the active root.
func (c *Canvas) DefaultLayerBounds() vector.Rect {
	if c.root == nil {
		return vector.Rect{}
	}
	var out vector.Rect
	first := true
	for _, ch := range c.root.Children {
		ch.walk(func(e *Element) {
			b := e.Bounds()
			if first {
				out, first = b, false
				return
			}
			out = out.Union(b)
		})
	}
	return out
}

// Clear removes every element and root and resets pan/zoom.
func (c *Canvas) Clear() {
	for _, e := range c.registry.All() {
		c.registry.Remove(e)
		e.Removed = true
	}
	for id, layer := range c.layers {
		layer.Remove()
		delete(c.layers, id)
		delete(c.roots, id)
	}
	c.root = nil
	c.origin = vector.Pt{}
	c.scale = 1
	c.applyTransform()
}

// Destroy fires diagram.destroy and clears the canvas.
func (c *Canvas) Destroy() {
	c.bus.Fire(EventDiagramDestroy, nil)
	c.Clear()
	c.container.Remove()
}
