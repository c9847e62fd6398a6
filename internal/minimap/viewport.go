/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package minimap

import (
	"fmt"
	"math"
	"strconv"

	"gominimap/internal/diagram"
	"gominimap/internal/surface"
	"gominimap/internal/vector"
)

// DisplayViewbox is the region the minimap shows. Fill means the host could
// not report finite dimensions and the minimap uses all available space
// without a viewBox.
type DisplayViewbox struct {
	Rect vector.Rect
	Fill bool
}

// ComputeDisplayViewbox derives the padded minimap viewbox from the host viewbox.
//
// Per axis: when the visible region is smaller than the content extent the
// display takes the content's size, centred on the visible region, and starts
// at the content origin (or earlier) while the visible region ends before the
// content does. Otherwise it equals the visible region.
func ComputeDisplayViewbox(vb diagram.Viewbox, padding float64) DisplayViewbox {
	if !vb.Inner.IsFinite() || !vb.Outer.IsFinite() || math.IsNaN(padding) || math.IsInf(padding, 0) {
		return DisplayViewbox{Fill: true}
	}
	x, w := fitAxis(vb.Inner.X, vb.Inner.W, vb.Outer.X, vb.Outer.W)
	y, h := fitAxis(vb.Inner.Y, vb.Inner.H, vb.Outer.Y, vb.Outer.H)
	r := vector.R(x-padding, y-padding, w+2*padding, h+2*padding)
	if r.W <= 0 || r.H <= 0 {
		return DisplayViewbox{Fill: true}
	}
	return DisplayViewbox{Rect: r}
}

func fitAxis(innerPos, innerLen, outerPos, outerLen float64) (pos, length float64) {
	if innerLen >= outerLen {
		return innerPos, innerLen
	}
	pos = innerPos - (outerLen-innerLen)/2
	if innerPos+innerLen < outerPos+outerLen {
		pos = math.Min(outerPos, innerPos)
	}
	return pos, outerLen
}

// ViewportIndicator draws the visible-region rectangle and its pixel overlay
// and remembers the last display viewbox it rendered.
type ViewportIndicator struct {
	svg     *surface.Node
	rect    *surface.Node
	overlay *surface.Node
	mapper  *Mapper

	last     DisplayViewbox
	inner    vector.Rect
	overlayR vector.Rect
	rendered bool
}

func NewViewportIndicator(svg, rect, overlay *surface.Node, mapper *Mapper) *ViewportIndicator {
	return &ViewportIndicator{svg: svg, rect: rect, overlay: overlay, mapper: mapper, last: DisplayViewbox{Fill: true}}
}

// Render applies disp to the svg and places the indicator at the visible region.
func (v *ViewportIndicator) Render(vb diagram.Viewbox, disp DisplayViewbox) {
	if disp.Fill {
		v.svg.SetAttr("width", "100%")
		v.svg.SetAttr("height", "100%")
		v.svg.RemoveAttr("viewBox")
	} else {
		r := disp.Rect
		v.svg.SetAttr("viewBox", fmt.Sprintf("%s %s %s %s", fnum(r.X), fnum(r.Y), fnum(r.W), fnum(r.H)))
	}
	v.mapper.SetDisplay(disp)
	v.last = disp
	v.rendered = true

	if !vb.Inner.IsFinite() {
		v.rect.SetAttr("visibility", "hidden")
		v.overlay.SetAttr("style", "display: none")
		v.inner, v.overlayR = vector.Rect{}, vector.Rect{}
		return
	}
	v.inner = vb.Inner
	v.rect.RemoveAttr("visibility")
	v.rect.SetAttr("x", fnum(vb.Inner.X))
	v.rect.SetAttr("y", fnum(vb.Inner.Y))
	v.rect.SetAttr("width", fnum(vb.Inner.W))
	v.rect.SetAttr("height", fnum(vb.Inner.H))
	v.MoveOverlay(vb.Inner)
}

// MoveOverlay positions the pixel overlay over r (diagram units) using the
// last displayed viewbox.
func (v *ViewportIndicator) MoveOverlay(r vector.Rect) {
	px := v.mapper.ToPixelRect(r)
	if !px.IsFinite() {
		return
	}
	v.overlayR = px
	v.overlay.SetAttr("style", fmt.Sprintf("left: %spx; top: %spx; width: %spx; height: %spx",
		fnum(px.X), fnum(px.Y), fnum(px.W), fnum(px.H)))
}

// HitTest reports whether px lies on the overlay.
func (v *ViewportIndicator) HitTest(px vector.Pt) bool {
	return v.rendered && v.overlayR.W > 0 && v.overlayR.H > 0 && v.overlayR.Contains(px)
}

// Overlay returns the overlay rectangle in minimap pixels.
func (v *ViewportIndicator) Overlay() vector.Rect { return v.overlayR }

// Inner returns the visible region the indicator was last rendered at.
func (v *ViewportIndicator) Inner() vector.Rect { return v.inner }

// LastDisplayed returns the display viewbox of the last render.
func (v *ViewportIndicator) LastDisplayed() DisplayViewbox { return v.last }

func fnum(f float64) string {
	return strconv.FormatFloat(vector.FloatRound(f, 3), 'f', -1, 64)
}
