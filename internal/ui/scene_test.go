/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"testing"

	"gominimap/internal/diagram"
	"gominimap/internal/minimap"
	"gominimap/internal/vector"
)

func sampleSnapshot() minimap.Snapshot {
	return minimap.Snapshot{
		Open:     true,
		Size:     vector.Size{W: 160, H: 90},
		Display:  minimap.DisplayViewbox{Rect: vector.R(0, 0, 320, 180)},
		Viewport: vector.R(10, 10, 400, 300),
		Overlay:  vector.R(5, 5, 200, 150),
		Elements: []minimap.ElementShape{
			{ID: "A", Kind: diagram.KindShape, Bounds: vector.R(20, 40, 100, 60), Label: "Start"},
			{ID: "F", Kind: diagram.KindConnection, Waypoints: []vector.Pt{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}}},
		},
	}
}

func rectNear(a, b vector.Rect) bool {
	return a.Min().Eq(b.Min(), 1e-9) && a.Max().Eq(b.Max(), 1e-9)
}

func TestMinimapSceneMapsToPixels(t *testing.T) {
	sc := MinimapScene(sampleSnapshot())
	if len(sc.Shapes) != 1 || len(sc.Lines) != 2 {
		t.Fatalf("shapes=%d lines=%d", len(sc.Shapes), len(sc.Lines))
	}
	if got := sc.Shapes[0].Rect; !rectNear(got, vector.R(10, 20, 50, 30)) {
		t.Fatalf("shape rect = %+v", got)
	}
	if sc.Shapes[0].Label != "Start" {
		t.Fatalf("label lost")
	}
	if to := sc.Lines[1].To; !to.Eq(vector.Pt{X: 50, Y: 50}, 1e-9) {
		t.Fatalf("last waypoint = %+v", to)
	}
	if sc.Viewport != vector.R(5, 5, 200, 150) {
		t.Fatalf("viewport overlay = %+v", sc.Viewport)
	}
}

func TestMinimapSceneClosedIsEmpty(t *testing.T) {
	snap := sampleSnapshot()
	snap.Open = false
	sc := MinimapScene(snap)
	if len(sc.Shapes) != 0 || len(sc.Lines) != 0 || !sc.Viewport.Empty() {
		t.Fatalf("closed minimap should draw nothing: %+v", sc)
	}
}

func TestDiagramSceneFollowsViewport(t *testing.T) {
	sc := DiagramScene(sampleSnapshot(), vector.Size{W: 800, H: 600})
	if got := sc.Shapes[0].Rect; !rectNear(got, vector.R(20, 60, 200, 120)) {
		t.Fatalf("shape rect = %+v", got)
	}
	if !sc.Viewport.Empty() {
		t.Fatalf("diagram scene has no viewport overlay")
	}
	empty := DiagramScene(minimap.Snapshot{}, vector.Size{W: 800, H: 600})
	if len(empty.Shapes) != 0 {
		t.Fatalf("degenerate viewport should draw nothing")
	}
}

func TestPlacement(t *testing.T) {
	outer := vector.Size{W: 1000, H: 800}
	inner := vector.Size{W: 320, H: 180}
	cases := []struct {
		pos  string
		want vector.Pt
	}{
		{"right-top", vector.Pt{X: 660, Y: 20}},
		{"left-top", vector.Pt{X: 20, Y: 20}},
		{"right-bottom", vector.Pt{X: 660, Y: 600}},
		{"Left-Bottom", vector.Pt{X: 20, Y: 600}},
		{"", vector.Pt{X: 660, Y: 20}},
	}
	for _, c := range cases {
		if got := Placement(outer, inner, c.pos, 20); got != c.want {
			t.Fatalf("%q: got %+v want %+v", c.pos, got, c.want)
		}
	}
}
