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
	"gominimap/internal/surface"
	"gominimap/internal/vector"
)

// ElementShape is the geometry of one mirrored element in diagram units.
type ElementShape struct {
	ID        string
	Kind      diagram.Kind
	Bounds    vector.Rect
	Waypoints []vector.Pt
	Label     string

	// Depth is the nesting level below the root, starting at 0.
	Depth int
}

// Snapshot is a copy of what the minimap currently shows.
type Snapshot struct {
	Open     bool
	Size     vector.Size
	Display  DisplayViewbox
	Viewport vector.Rect // visible region in diagram units
	Overlay  vector.Rect // indicator in minimap pixels
	Elements []ElementShape

	// SVG is a detached copy of the minimap's svg node.
	SVG *surface.Node
}

// Snapshot captures the minimap state. It does not redraw.
func (m *Minimap) Snapshot() Snapshot {
	s := Snapshot{
		Open:     m.open,
		Size:     m.mapper.Size(),
		Display:  m.indicator.LastDisplayed(),
		Viewport: m.indicator.Inner(),
		Overlay:  m.indicator.Overlay(),
		SVG:      m.svg.Clone(),
	}
	for _, e := range m.mirror.Entries() {
		el := e.Element
		shape := ElementShape{ID: e.ID, Kind: el.Kind, Bounds: el.Bounds(), Label: el.Label, Depth: depth(el)}
		if el.IsConnection() {
			shape.Waypoints = append([]vector.Pt(nil), el.Waypoints...)
		}
		s.Elements = append(s.Elements, shape)
	}
	return s
}

func depth(e *diagram.Element) int {
	d := 0
	for p := e.Parent; p != nil && !p.IsRoot(); p = p.Parent {
		d++
	}
	return d
}

// Mapper returns a coordinate mapper for the snapshot's size and display viewbox.
func (s Snapshot) Mapper() *Mapper {
	m := NewMapper(s.Size.W, s.Size.H)
	m.SetDisplay(s.Display)
	return m
}
