/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package minimap

import "gominimap/internal/vector"

// Mapper converts between minimap pixels and diagram units. It works on the
// last displayed viewbox so pointer mapping matches what is on screen.
type Mapper struct {
	size    vector.Size
	display DisplayViewbox
}

// NewMapper returns a mapper for a w x h pixel minimap.
func NewMapper(w, h float64) *Mapper {
	return &Mapper{size: vector.Size{W: w, H: h}, display: DisplayViewbox{Fill: true}}
}

func (m *Mapper) SetSize(w, h float64)        { m.size = vector.Size{W: w, H: h} }
func (m *Mapper) Size() vector.Size           { return m.size }
func (m *Mapper) SetDisplay(d DisplayViewbox) { m.display = d }
func (m *Mapper) Display() DisplayViewbox     { return m.display }

// Visible returns the diagram region the minimap shows: the display viewbox
// fitted to the pixel aspect ratio, or the pixel box itself when filling.
func (m *Mapper) Visible() vector.Rect {
	if m.display.Fill {
		return vector.R(0, 0, m.size.W, m.size.H)
	}
	if m.size.H <= 0 {
		return m.display.Rect
	}
	return vector.FitAspectRatio(m.display.Rect, m.size.W/m.size.H)
}

// projection maps the visible diagram region onto the pixel box.
func (m *Mapper) projection() vector.Affine2D {
	return vector.RectToRect(m.Visible(), vector.R(0, 0, m.size.W, m.size.H))
}

// ToDiagram maps a pointer position (pixels relative to the minimap's top
// left corner) to diagram units. A zero-sized minimap maps everything to the
// visible region's origin.
func (m *Mapper) ToDiagram(px vector.Pt) vector.Pt {
	inv, ok := m.projection().Invert()
	if !ok {
		return m.Visible().Min()
	}
	return inv.Apply(px)
}

// ToPixel is the inverse of ToDiagram.
func (m *Mapper) ToPixel(p vector.Pt) vector.Pt {
	return m.projection().Apply(p)
}

// ToPixelRect maps a diagram rect to minimap pixels.
func (m *Mapper) ToPixelRect(r vector.Rect) vector.Rect {
	return m.projection().ApplyRect(r)
}

// CenterViewboxAround returns a w x h viewbox centred on p.
func CenterViewboxAround(p vector.Pt, w, h float64) vector.Rect {
	return vector.R(p.X-w/2, p.Y-h/2, w, h)
}

// OffsetFromCenter is the offset of p from the centre of viewbox.
func OffsetFromCenter(p vector.Pt, viewbox vector.Rect) vector.Pt {
	return p.Sub(viewbox.Center())
}
