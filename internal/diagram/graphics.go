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
	"strconv"
	"strings"

	"gominimap/internal/surface"
)

// Renderer draws the visual of an element into its g.djs-visual node.
type Renderer interface {
	DrawShape(visual *surface.Node, e *Element)
	DrawConnection(visual *surface.Node, e *Element)
}

// DefaultRenderer draws shapes as rounded rectangles with an optional label
// and connections as polylines.
type DefaultRenderer struct{}

func (DefaultRenderer) DrawShape(visual *surface.Node, e *Element) {
	visual.Append(surface.El("rect", nil,
		"x", "0", "y", "0",
		"width", num(e.Width), "height", num(e.Height),
		"rx", "10", "ry", "10",
		"fill", "white", "stroke", "black", "stroke-width", "2"))
	if e.Label != "" {
		t := visual.Append(surface.El("text", []string{"djs-label"},
			"x", num(e.Width/2), "y", num(e.Height/2),
			"text-anchor", "middle", "dominant-baseline", "middle", "font-size", "12"))
		t.SetText(e.Label)
	}
}

func (DefaultRenderer) DrawConnection(visual *surface.Node, e *Element) {
	pts := make([]string, 0, len(e.Waypoints))
	for _, p := range e.Waypoints {
		pts = append(pts, num(p.X)+","+num(p.Y))
	}
	visual.Append(surface.El("polyline", nil,
		"points", strings.Join(pts, " "),
		"fill", "none", "stroke", "black", "stroke-width", "2"))
}

// ChildrenContainer returns the node holding the child groups of parentGfx:
// the layer itself for roots, the g.djs-children sibling otherwise. When
// create is set a missing container is added.
func ChildrenContainer(parentGfx *surface.Node, create bool) *surface.Node {
	if parentGfx == nil {
		return nil
	}
	if parentGfx.HasClass("layer") {
		return parentGfx
	}
	group := parentGfx.ParentNode()
	if group == nil {
		return nil
	}
	if cc := group.FirstChildWithClass("djs-children"); cc != nil {
		return cc
	}
	if !create {
		return nil
	}
	return group.Append(surface.El("g", []string{"djs-children"}))
}

// createGraphics adds a g.djs-group > g.djs-element pair under parentGfx at
// index (append when out of range) and returns the element node.
func createGraphics(e *Element, parentGfx *surface.Node, index int) (*surface.Node, error) {
	container := ChildrenContainer(parentGfx, true)
	if container == nil {
		return nil, fmt.Errorf("create graphics for %q: parent has no graphics", e.ID)
	}
	group := surface.El("g", []string{"djs-group"})
	container.InsertBefore(group, container.Child(index))
	kind := "djs-shape"
	if e.IsConnection() {
		kind = "djs-connection"
	}
	return group.Append(surface.El("g", []string{"djs-element", kind})), nil
}

// updateGraphics redraws the visual of e and refreshes its transform.
func updateGraphics(r Renderer, e *Element, gfx *surface.Node) {
	if old := gfx.FirstChildWithClass("djs-visual"); old != nil {
		old.Remove()
	}
	visual := surface.El("g", []string{"djs-visual"})
	gfx.InsertBefore(visual, gfx.Child(0))
	if e.IsConnection() {
		r.DrawConnection(visual, e)
		gfx.RemoveAttr("transform")
		return
	}
	r.DrawShape(visual, e)
	gfx.SetAttr("transform", "translate("+num(e.X)+" "+num(e.Y)+")")
}

// removeGraphics drops the whole g.djs-group of gfx.
func removeGraphics(gfx *surface.Node) {
	if gfx == nil {
		return
	}
	if group := gfx.ParentNode(); group != nil && group.HasClass("djs-group") {
		group.Remove()
		return
	}
	gfx.Remove()
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
