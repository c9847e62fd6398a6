/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"strings"

	"gominimap/internal/diagram"
	"gominimap/internal/minimap"
	"gominimap/internal/vector"
)

// Scene is a flat, pixel-space description of what a view draws. It keeps
// the widget code free of geometry and lets it be tested without a driver.
type Scene struct {
	Size     vector.Size
	Shapes   []SceneShape
	Lines    []SceneLine
	Viewport vector.Rect // empty when hidden
}

type SceneShape struct {
	ID    string
	Rect  vector.Rect
	Depth int
	Label string
}

type SceneLine struct{ From, To vector.Pt }

// MinimapScene lays out a minimap snapshot in minimap pixels.
func MinimapScene(snap minimap.Snapshot) Scene {
	sc := Scene{Size: snap.Size}
	if !snap.Open || snap.Size.W <= 0 || snap.Size.H <= 0 {
		return sc
	}
	m := snap.Mapper()
	sc.add(snap.Elements, m.ToPixel)
	sc.Viewport = snap.Overlay
	return sc
}

// DiagramScene lays out the elements of snap as the host canvas shows them:
// visible is the canvas region in diagram units, size its pixel size.
func DiagramScene(snap minimap.Snapshot, size vector.Size) Scene {
	sc := Scene{Size: size}
	visible := snap.Viewport
	if visible.Empty() || !visible.IsFinite() || size.W <= 0 {
		return sc
	}
	scale := size.W / visible.W
	origin := visible.Min()
	sc.add(snap.Elements, func(p vector.Pt) vector.Pt { return p.Sub(origin).Scale(scale) })
	return sc
}

func (sc *Scene) add(elems []minimap.ElementShape, toPixel func(vector.Pt) vector.Pt) {
	for _, e := range elems {
		if e.Kind == diagram.KindConnection {
			for i := 1; i < len(e.Waypoints); i++ {
				sc.Lines = append(sc.Lines, SceneLine{From: toPixel(e.Waypoints[i-1]), To: toPixel(e.Waypoints[i])})
			}
			continue
		}
		a := toPixel(e.Bounds.Min())
		b := toPixel(e.Bounds.Max())
		sc.Shapes = append(sc.Shapes, SceneShape{
			ID:    e.ID,
			Rect:  vector.R(a.X, a.Y, b.X-a.X, b.Y-a.Y),
			Depth: e.Depth,
			Label: e.Label,
		})
	}
}

// Placement returns the top-left corner of a box of size inner docked in a
// container of size outer. position is "<right|left>-<top|bottom>".
func Placement(outer, inner vector.Size, position string, margin float64) vector.Pt {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(position)), "-", 2)
	p := vector.Pt{X: outer.W - inner.W - margin, Y: margin}
	if len(parts) > 0 && parts[0] == "left" {
		p.X = margin
	}
	if len(parts) > 1 && parts[1] == "bottom" {
		p.Y = outer.H - inner.H - margin
	}
	return p
}
