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

	"gominimap/internal/vector"
)

// Modeling applies edits to the diagram and fires the events an editor
// would: the per-element added/removed events first, then one
// elements.changed for the whole operation.
type Modeling struct {
	canvas *Canvas
}

func NewModeling(c *Canvas) *Modeling { return &Modeling{canvas: c} }

func (m *Modeling) bus() *EventBus { return m.canvas.bus }

func (m *Modeling) resolveParent(parent *Element) (*Element, error) {
	if parent == nil {
		return m.canvas.RootElement(), nil
	}
	if parent.Removed || m.canvas.registry.Graphics(parent) == nil {
		return nil, fmt.Errorf("parent %q: %w", parent.ID, ErrUnknownElement)
	}
	return parent, nil
}

// AddShape appends shape under parent (the active root when nil).
func (m *Modeling) AddShape(shape, parent *Element) (*Element, error) {
	return m.AddShapeAt(shape, parent, -1)
}

// AddShapeAt inserts shape at index among parent's children.
func (m *Modeling) AddShapeAt(shape, parent *Element, index int) (*Element, error) {
	shape.Kind = KindShape
	if err := m.add(shape, parent, index); err != nil {
		return nil, err
	}
	m.changed(shape, shape.Parent)
	return shape, nil
}

// AddConnection appends a connection under parent (the active root when nil).
func (m *Modeling) AddConnection(conn, parent *Element) (*Element, error) {
	conn.Kind = KindConnection
	if err := m.add(conn, parent, -1); err != nil {
		return nil, err
	}
	m.changed(conn, conn.Parent)
	return conn, nil
}

func (m *Modeling) add(e, parent *Element, index int) error {
	p, err := m.resolveParent(parent)
	if err != nil {
		return err
	}
	if m.canvas.registry.Get(e.ID) != nil {
		return fmt.Errorf("add %q: %w", e.ID, ErrDuplicateID)
	}
	gfx, err := createGraphics(e, m.canvas.registry.Graphics(p), index)
	if err != nil {
		return err
	}
	if err := m.canvas.registry.Add(e, gfx); err != nil {
		removeGraphics(gfx)
		return fmt.Errorf("add %q: %w", e.ID, err)
	}
	e.Parent, e.Removed = p, false
	p.insertChild(e, index)
	updateGraphics(m.canvas.renderer, e, gfx)
	name := EventShapeAdded
	if e.IsConnection() {
		name = EventConnectionAdded
	}
	m.bus().Fire(name, &Event{Element: e, Gfx: gfx})
	return nil
}

// RemoveElement deletes e and its descendants.
func (m *Modeling) RemoveElement(e *Element) error {
	if e == nil || e.Removed || m.canvas.registry.Graphics(e) == nil || e.IsRoot() {
		return fmt.Errorf("remove: %w", ErrUnknownElement)
	}
	parent := e.Parent
	var removed []*Element
	m.remove(e, &removed)
	m.changed(append(removed, parent)...)
	return nil
}

func (m *Modeling) remove(e *Element, removed *[]*Element) {
	for _, c := range append([]*Element(nil), e.Children...) {
		m.remove(c, removed)
	}
	gfx := m.canvas.registry.Graphics(e)
	if e.Parent != nil {
		e.Parent.removeChild(e)
	}
	m.canvas.registry.Remove(e)
	removeGraphics(gfx)
	e.Parent, e.Removed = nil, true
	name := EventShapeRemoved
	if e.IsConnection() {
		name = EventConnectionRemoved
	}
	m.bus().Fire(name, &Event{Element: e, Gfx: gfx})
	*removed = append(*removed, e)
}

// MoveElements translates shapes (with their descendants) and connections by delta.
func (m *Modeling) MoveElements(elems []*Element, delta vector.Pt) {
	seen := map[*Element]bool{}
	var changed []*Element
	for _, e := range elems {
		if e == nil || e.Removed {
			continue
		}
		e.walk(func(x *Element) {
			if seen[x] {
				return
			}
			seen[x] = true
			switch x.Kind {
			case KindShape:
				x.X += delta.X
				x.Y += delta.Y
			case KindConnection:
				for i := range x.Waypoints {
					x.Waypoints[i] = x.Waypoints[i].Add(delta)
				}
			}
			m.redraw(x)
			changed = append(changed, x)
		})
	}
	m.changed(changed...)
}

// ResizeShape sets new bounds on a shape.
func (m *Modeling) ResizeShape(e *Element, bounds vector.Rect) {
	if e == nil || e.Removed || e.Kind != KindShape {
		return
	}
	e.X, e.Y, e.Width, e.Height = bounds.X, bounds.Y, bounds.W, bounds.H
	m.redraw(e)
	m.changed(e)
}

// UpdateWaypoints replaces the waypoints of a connection.
func (m *Modeling) UpdateWaypoints(e *Element, pts []vector.Pt) {
	if e == nil || e.Removed || !e.IsConnection() {
		return
	}
	e.Waypoints = append([]vector.Pt(nil), pts...)
	m.redraw(e)
	m.changed(e)
}

// UpdateLabel changes the label text of e.
func (m *Modeling) UpdateLabel(e *Element, label string) {
	if e == nil || e.Removed {
		return
	}
	e.Label = label
	m.redraw(e)
	m.changed(e)
}

// MoveToParent re-parents e (keeping absolute coordinates) at index.
func (m *Modeling) MoveToParent(e, parent *Element, index int) error {
	if e == nil || e.Removed || e.IsRoot() {
		return fmt.Errorf("move: %w", ErrUnknownElement)
	}
	p, err := m.resolveParent(parent)
	if err != nil {
		return err
	}
	for a := p; a != nil; a = a.Parent {
		if a == e {
			return fmt.Errorf("move %q into its own subtree", e.ID)
		}
	}
	old := e.Parent
	gfx := m.canvas.registry.Graphics(e)
	group := gfx.ParentNode()
	container := ChildrenContainer(m.canvas.registry.Graphics(p), true)
	container.InsertBefore(group, container.Child(index))
	old.removeChild(e)
	e.Parent = p
	p.insertChild(e, group.Index())
	m.changed(e, old, p)
	return nil
}

// UpdateID renames e. element.updateId fires before the id changes.
func (m *Modeling) UpdateID(e *Element, newID string) error {
	if e == nil || e.Removed {
		return fmt.Errorf("update id: %w", ErrUnknownElement)
	}
	if newID == e.ID {
		return nil
	}
	if err := validID(newID); err != nil {
		return fmt.Errorf("update id: %w", err)
	}
	if m.canvas.registry.Get(newID) != nil {
		return fmt.Errorf("update id %q: %w", newID, ErrDuplicateID)
	}
	m.bus().Fire(EventElementUpdateID, &Event{Element: e, NewID: newID})
	if err := m.canvas.registry.UpdateID(e, newID); err != nil {
		return fmt.Errorf("update id %q: %w", newID, err)
	}
	m.changed(e)
	return nil
}

func (m *Modeling) redraw(e *Element) {
	if gfx := m.canvas.registry.Graphics(e); gfx != nil && !e.IsRoot() {
		updateGraphics(m.canvas.renderer, e, gfx)
	}
}

func (m *Modeling) changed(elems ...*Element) {
	var out []*Element
	seen := map[*Element]bool{}
	for _, e := range elems {
		if e != nil && !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return
	}
	m.bus().Fire(EventElementsChanged, &Event{Elements: out})
}
