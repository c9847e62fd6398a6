/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package diagram

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gominimap/internal/log"
	"gominimap/internal/vector"
)

func TestEventBusPriorityStopAndRecover(t *testing.T) {
	bus := NewEventBus(log.Discard())
	var order []string
	bus.On([]string{"x"}, 500, func(*Event) { order = append(order, "low") })
	bus.On([]string{"x"}, 1500, func(*Event) { order = append(order, "high") })
	bus.On([]string{"x"}, 1000, func(*Event) { panic("boom") })
	bus.On([]string{"x"}, 1000, func(*Event) { order = append(order, "mid") })
	bus.Fire("x", nil)
	if got := strings.Join(order, ","); got != "high,mid,low" {
		t.Fatalf("dispatch order = %s", got)
	}

	order = nil
	stop := bus.On([]string{"x"}, 2000, func(e *Event) { e.Stop() })
	bus.Fire("x", &Event{})
	if len(order) != 0 {
		t.Fatalf("stopped event reached listeners: %v", order)
	}
	bus.Off(stop)
	bus.Fire("x", nil)
	if len(order) != 3 {
		t.Fatalf("Off did not remove the stopping listener: %v", order)
	}
	if n := bus.ListenerCount("x"); n != 4 {
		t.Fatalf("ListenerCount = %d", n)
	}
}

func TestModelingBuildsGroupStructure(t *testing.T) {
	c, m := New(CanvasOptions{Width: 800, Height: 600})
	var events []string
	c.EventBus().On([]string{EventShapeAdded, EventConnectionAdded, EventElementsChanged}, DefaultPriority, func(e *Event) {
		events = append(events, e.Type)
	})

	parent, err := m.AddShape(NewShape("P", 100, 100, 100, 100), nil)
	if err != nil {
		t.Fatalf("AddShape: %v", err)
	}
	child, err := m.AddShape(NewShape("C", 125, 125, 50, 50), parent)
	if err != nil {
		t.Fatalf("AddShape child: %v", err)
	}
	if _, err := m.AddConnection(NewConnection("F", vector.Pt{X: 0, Y: 0}, vector.Pt{X: 10, Y: 10}), nil); err != nil {
		t.Fatalf("AddConnection: %v", err)
	}
	if _, err := m.AddShape(NewShape("P", 0, 0, 1, 1), nil); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	gfx := c.Registry().Graphics(child)
	if gfx == nil || !gfx.HasClass("djs-element") || gfx.GetAttr("data-element-id") != "C" {
		t.Fatalf("child graphics malformed: %v", gfx)
	}
	if gfx.GetAttr("transform") != "translate(125 125)" {
		t.Fatalf("child transform = %q", gfx.GetAttr("transform"))
	}
	if gfx.FirstChildWithClass("djs-visual") == nil {
		t.Fatalf("child has no visual")
	}
	pg := c.Registry().Graphics(parent)
	cc := ChildrenContainer(pg, false)
	if cc == nil || cc.Child(0) != gfx.ParentNode() {
		t.Fatalf("child group not inside parent's djs-children")
	}
	if got := strings.Join(events, ","); got != "shape.added,elements.changed,shape.added,elements.changed,connection.added,elements.changed" {
		t.Fatalf("events = %s", got)
	}
	if b := c.DefaultLayerBounds(); b != vector.R(0, 0, 200, 200) {
		t.Fatalf("DefaultLayerBounds = %+v", b)
	}
}

func TestRemoveElementMarksSubtreeRemoved(t *testing.T) {
	c, m := New(CanvasOptions{Width: 800, Height: 600})
	parent, _ := m.AddShape(NewShape("P", 0, 0, 100, 100), nil)
	child, _ := m.AddShape(NewShape("C", 10, 10, 20, 20), parent)
	var removed []string
	c.EventBus().On([]string{EventShapeRemoved}, DefaultPriority, func(e *Event) { removed = append(removed, e.Element.ID) })

	if err := m.RemoveElement(parent); err != nil {
		t.Fatalf("RemoveElement: %v", err)
	}
	if strings.Join(removed, ",") != "C,P" {
		t.Fatalf("removed order = %v", removed)
	}
	if !child.Removed || child.Parent != nil || c.Registry().Get("C") != nil {
		t.Fatalf("child not fully removed")
	}
	if len(c.RootElement().Children) != 0 {
		t.Fatalf("root still has children")
	}
	if err := m.RemoveElement(parent); !errors.Is(err, ErrUnknownElement) {
		t.Fatalf("second remove should fail, got %v", err)
	}
}

func TestUpdateIDFiresBeforeRename(t *testing.T) {
	c, m := New(CanvasOptions{Width: 800, Height: 600})
	e, _ := m.AddShape(NewShape("old", 0, 0, 10, 10), nil)
	var seen string
	c.EventBus().On([]string{EventElementUpdateID}, DefaultPriority, func(ev *Event) { seen = ev.Element.ID + "->" + ev.NewID })
	if err := m.UpdateID(e, "new"); err != nil {
		t.Fatalf("UpdateID: %v", err)
	}
	if seen != "old->new" {
		t.Fatalf("event saw %q", seen)
	}
	if c.Registry().Get("new") != e || c.Registry().Get("old") != nil {
		t.Fatalf("registry not re-keyed")
	}
	if c.Registry().Graphics(e).GetAttr("data-element-id") != "new" {
		t.Fatalf("graphics id not updated")
	}
}

func TestRejectsIDsWithNUL(t *testing.T) {
	c, m := New(CanvasOptions{Width: 800, Height: 600})
	root := c.RootElement()
	if _, err := m.AddShape(NewShape("bad\x00id", 0, 0, 10, 10), nil); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("AddShape with NUL id: %v", err)
	}
	if c.Registry().Len() != 1 || len(root.Children) != 0 {
		t.Fatalf("rejected shape left state behind: %d registered", c.Registry().Len())
	}
	if n := c.Container().QueryAll(".djs-group"); len(n) != 0 {
		t.Fatalf("rejected shape left %d graphics", len(n))
	}
	e, _ := m.AddShape(NewShape("ok", 0, 0, 10, 10), nil)
	var fired bool
	c.EventBus().On([]string{EventElementUpdateID}, DefaultPriority, func(*Event) { fired = true })
	if err := m.UpdateID(e, "x\x00"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("UpdateID to NUL id: %v", err)
	}
	if fired || e.ID != "ok" {
		t.Fatalf("rejected rename leaked: fired=%v id=%q", fired, e.ID)
	}
}

func TestCanvasViewboxAndZoomAnchor(t *testing.T) {
	c, _ := New(CanvasOptions{Width: 400, Height: 200})
	var fired int
	c.EventBus().On([]string{EventViewboxChanged}, DefaultPriority, func(*Event) { fired++ })

	c.SetViewbox(vector.R(100, 50, 800, 400))
	vb := c.Viewbox()
	if vb.Scale != 0.5 || vb.Inner != vector.R(100, 50, 800, 400) {
		t.Fatalf("viewbox after set = %+v", vb)
	}

	anchor := vector.Pt{X: 300, Y: 150}
	before := anchor.Sub(c.Viewbox().Inner.Min()).Scale(c.Zoom())
	c.SetZoom(2, &anchor)
	after := anchor.Sub(c.Viewbox().Inner.Min()).Scale(c.Zoom())
	if !before.Eq(after, 1e-9) {
		t.Fatalf("anchor moved on screen: %+v -> %+v", before, after)
	}
	c.SetZoom(math.Inf(1), nil)
	c.SetViewbox(vector.R(0, 0, 0, 10))
	if c.Zoom() != 2 {
		t.Fatalf("invalid zoom/viewbox should be ignored, zoom = %v", c.Zoom())
	}
	if fired != 2 {
		t.Fatalf("viewbox.changed fired %d times, want 2", fired)
	}
}

func TestAttachDetachAndPlanes(t *testing.T) {
	c, m := New(CanvasOptions{Width: 100, Height: 100})
	var events []string
	c.EventBus().On([]string{EventAttach, EventDetach, EventRootSet}, DefaultPriority, func(e *Event) { events = append(events, e.Type) })
	c.Detach()
	if c.Container().Connected() {
		t.Fatalf("container still connected")
	}
	c.Detach()
	c.Attach()
	if !c.Container().Connected() {
		t.Fatalf("container not reconnected")
	}

	main := c.RootElement()
	plane := NewRoot("plane-2")
	if err := c.AddRoot(plane); err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	if _, err := m.AddShape(NewShape("S", 0, 0, 10, 10), plane); err != nil {
		t.Fatalf("AddShape on plane: %v", err)
	}
	if b := c.DefaultLayerBounds(); b != (vector.Rect{}) {
		t.Fatalf("inactive plane content counted: %+v", b)
	}
	c.SetRootElement(plane)
	if c.RootElement() != plane || main == plane {
		t.Fatalf("plane not active")
	}
	if got := strings.Join(events, ","); got != "detach,attach,root.set,root.set" {
		t.Fatalf("events = %s", got)
	}
}
