/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package diagram is an in-memory diagram editor host: elements, a registry
// mapping elements to their graphics, an event bus, a canvas with a pannable
// and zoomable viewbox, modeling operations and document import. It renders
// into a surface tree using the djs group convention
// (g.djs-group > g.djs-element + g.djs-children).
package diagram

import (
	"errors"

	"gominimap/internal/vector"
)

var (
	ErrDuplicateID     = errors.New("diagram: duplicate element id")
	ErrUnknownElement  = errors.New("diagram: unknown element")
	ErrInvalidDocument = errors.New("diagram: invalid document")
	ErrInvalidID       = errors.New("diagram: invalid element id")
)

// Kind classifies elements.
type Kind int

const (
	KindShape Kind = iota
	KindConnection
	KindRoot
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindRoot:
		return "root"
	default:
		return "shape"
	}
}

// Element is a node of the diagram model. Shapes use X/Y/Width/Height,
// connections use absolute Waypoints.
//
// Parent and Removed encode three states: Removed means the element was
// deleted from the diagram, a nil Parent on a live element means it is a root.
type Element struct {
	ID        string
	Kind      Kind
	X, Y      float64
	Width     float64
	Height    float64
	Waypoints []vector.Pt
	Label     string

	Parent   *Element
	Removed  bool
	Children []*Element
}

// NewShape is a convenience constructor.
func NewShape(id string, x, y, w, h float64) *Element {
	return &Element{ID: id, Kind: KindShape, X: x, Y: y, Width: w, Height: h}
}

// NewConnection is a convenience constructor.
func NewConnection(id string, waypoints ...vector.Pt) *Element {
	return &Element{ID: id, Kind: KindConnection, Waypoints: waypoints}
}

// NewRoot creates a root (plane) element.
func NewRoot(id string) *Element { return &Element{ID: id, Kind: KindRoot} }

func (e *Element) IsConnection() bool { return e.Kind == KindConnection }
func (e *Element) IsRoot() bool       { return e.Kind == KindRoot }

// Bounds returns the element's box; for connections the box around its waypoints.
func (e *Element) Bounds() vector.Rect {
	if e.IsConnection() {
		return vector.BoundsOf(e.Waypoints)
	}
	return vector.R(e.X, e.Y, e.Width, e.Height)
}

// Position returns the element's origin. Connections and roots report 0,0.
func (e *Element) Position() vector.Pt {
	if e.Kind != KindShape {
		return vector.Pt{}
	}
	return vector.Pt{X: e.X, Y: e.Y}
}

// RootOf walks up to the topmost live ancestor.
func RootOf(e *Element) *Element {
	r := e
	for r != nil && r.Parent != nil {
		r = r.Parent
	}
	return r
}

func (e *Element) removeChild(c *Element) {
	for i, x := range e.Children {
		if x == c {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			return
		}
	}
}

func (e *Element) insertChild(c *Element, index int) {
	if index < 0 || index >= len(e.Children) {
		e.Children = append(e.Children, c)
		return
	}
	e.Children = append(e.Children, nil)
	copy(e.Children[index+1:], e.Children[index:])
	e.Children[index] = c
}

// walk visits e and its descendants, parents first.
func (e *Element) walk(fn func(*Element)) {
	fn(e)
	for _, c := range append([]*Element(nil), e.Children...) {
		c.walk(fn)
	}
}
