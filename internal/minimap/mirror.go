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
	"log/slog"
	"sort"

	"gominimap/internal/diagram"
	"gominimap/internal/surface"
)

// elementAttr marks mirror nodes with the id of their source element.
const elementAttr = "data-element-id"

type mirrorEntry struct {
	node    *surface.Node
	element *diagram.Element
}

// Entry is a mirrored element and its node.
type Entry struct {
	ID      string
	Element *diagram.Element
	Node    *surface.Node
}

// MirrorTree keeps clones of the host visuals under the minimap's elements
// group, nested like the host tree and positioned relative to their parent.
// There is at most one node per element id.
type MirrorTree struct {
	canvas   Canvas
	registry ElementRegistry
	group    *surface.Node
	logger   *slog.Logger

	index map[string]mirrorEntry
}

func NewMirrorTree(canvas Canvas, registry ElementRegistry, group *surface.Node, logger *slog.Logger) *MirrorTree {
	return &MirrorTree{canvas: canvas, registry: registry, group: group, logger: logger, index: map[string]mirrorEntry{}}
}

// Add mirrors e and its children, replacing any existing node for e's id.
// It returns nil when e is not on the active root or its visual cannot be
// resolved.
func (t *MirrorTree) Add(e *diagram.Element) *surface.Node {
	if e == nil || e.Removed || e.IsRoot() {
		return nil
	}
	if root := t.canvas.RootElement(); root != nil && diagram.RootOf(e) != root {
		return nil
	}
	t.RemoveID(e.ID)

	gfx := t.registry.Graphics(e)
	if gfx == nil {
		t.logger.Warn("graphics not found", slog.String("element", e.ID))
		return nil
	}
	visual := gfx.FirstChildWithClass("djs-visual")
	if visual == nil {
		t.logger.Warn("visual not found", slog.String("element", e.ID))
		return nil
	}
	node := visual.Clone()
	node.SetAttr("id", e.ID)
	node.SetAttr(elementAttr, e.ID)

	parentNode := t.group
	parentMirrored := false
	if p := e.Parent; p != nil && !p.IsRoot() {
		if pe, ok := t.index[p.ID]; ok {
			parentNode, parentMirrored = pe.node, true
		}
	}
	if parentMirrored || e.Parent == nil || e.Parent.IsRoot() {
		t.insertAt(node, parentNode, gfx, t.registry.Graphics(e.Parent))
	} else {
		t.group.Append(node)
	}

	switch {
	case e.IsConnection() && parentMirrored:
		node.SetAttr("transform", fmt.Sprintf("translate(%s %s)", fnum(-e.Parent.X), fnum(-e.Parent.Y)))
	case e.IsConnection():
		node.SetAttr("transform", "translate(0 0)")
	case parentMirrored:
		node.SetAttr("transform", fmt.Sprintf("translate(%s %s)", fnum(e.X-e.Parent.X), fnum(e.Y-e.Parent.Y)))
	default:
		node.SetAttr("transform", fmt.Sprintf("translate(%s %s)", fnum(e.X), fnum(e.Y)))
	}
	t.index[e.ID] = mirrorEntry{node: node, element: e}

	for _, c := range append([]*diagram.Element(nil), e.Children...) {
		t.Add(c)
	}
	return node
}

// insertAt places node under parentNode in the host's sibling order: before
// the mirror of the first later host sibling that already has one, appended
// otherwise.
func (t *MirrorTree) insertAt(node, parentNode, gfx, parentGfx *surface.Node) {
	index := IndexOfSibling(gfx, parentGfx)
	if index < 0 {
		parentNode.Append(node)
		return
	}
	container := diagram.ChildrenContainer(parentGfx, false)
	for i := index + 1; i < container.ChildCount(); i++ {
		sib := container.Child(i).FirstChildWithClass("djs-element")
		if sib == nil {
			continue
		}
		if se, ok := t.index[sib.GetAttr(elementAttr)]; ok && se.node.ParentNode() == parentNode {
			parentNode.InsertBefore(node, se.node)
			return
		}
	}
	parentNode.Append(node)
}

// IndexOfSibling returns the position of childGfx among the children of
// parentGfx following the host grouping
// g.djs-group > g.djs-element + g.djs-children > g.djs-group > g.djs-element,
// or -1 when it cannot be determined.
func IndexOfSibling(childGfx, parentGfx *surface.Node) int {
	if childGfx == nil {
		return -1
	}
	container := diagram.ChildrenContainer(parentGfx, false)
	if container == nil {
		return -1
	}
	for i, g := range container.Children() {
		if g.FirstChildWithClass("djs-element") == childGfx {
			return i
		}
	}
	return -1
}

// Remove drops the mirror of e. No-op when absent.
func (t *MirrorTree) Remove(e *diagram.Element) {
	if e != nil {
		t.RemoveID(e.ID)
	}
}

// RemoveID drops the node for id together with its nested mirrors.
func (t *MirrorTree) RemoveID(id string) {
	entry, ok := t.index[id]
	if !ok {
		return
	}
	entry.node.Remove()
	entry.node.Walk(func(n *surface.Node) bool {
		if eid, ok := n.LookupAttr(elementAttr); ok {
			if x, ok := t.index[eid]; ok && x.node == n {
				delete(t.index, eid)
			}
		}
		return true
	})
}

// Update replaces the mirror of e when it still has a parent. Removed
// elements are dropped. A panic while handling e is recovered and returned
// as an error.
func (t *MirrorTree) Update(e *diagram.Element) (err error) {
	defer func() {
		if r := recover(); r != nil {
			id := "<nil>"
			if e != nil {
				id = e.ID
			}
			t.logger.Error("mirror update failed", slog.String("element", id), slog.String("panic", fmt.Sprint(r)))
			err = fmt.Errorf("update %s: %v", id, r)
		}
	}()
	if e == nil {
		return nil
	}
	if e.Removed {
		t.logger.Debug("dropping removed element", slog.String("element", e.ID))
		t.RemoveID(e.ID)
		return nil
	}
	if e.Parent == nil {
		return nil
	}
	t.Remove(e)
	t.Add(e)
	return nil
}

// UpdateAll updates every element, returning how many failed.
func (t *MirrorTree) UpdateAll(elems []*diagram.Element) int {
	failed := 0
	for _, e := range elems {
		if err := t.Update(e); err != nil {
			failed++
		}
	}
	return failed
}

// Rename moves the mirror of oldID to newID without touching its geometry.
func (t *MirrorTree) Rename(oldID, newID string) bool {
	node := t.group.Query("#" + surface.EscapeIdent(oldID))
	if node == nil {
		return false
	}
	node.SetAttr("id", newID)
	node.SetAttr(elementAttr, newID)
	if entry, ok := t.index[oldID]; ok {
		delete(t.index, oldID)
		t.index[newID] = entry
	}
	return true
}

// Clear drops every mirror.
func (t *MirrorTree) Clear() {
	t.group.Clear()
	t.index = map[string]mirrorEntry{}
}

// Rebuild mirrors the children of root (the active root when nil) from scratch.
func (t *MirrorTree) Rebuild(root *diagram.Element) {
	t.Clear()
	if root == nil {
		root = t.canvas.RootElement()
	}
	if root == nil {
		return
	}
	for _, c := range append([]*diagram.Element(nil), root.Children...) {
		t.Add(c)
	}
}

// Len is the number of mirrored elements.
func (t *MirrorTree) Len() int { return len(t.index) }

// IDs returns the mirrored element ids, sorted.
func (t *MirrorTree) IDs() []string {
	ids := make([]string, 0, len(t.index))
	for id := range t.index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Node returns the mirror node for id, or nil.
func (t *MirrorTree) Node(id string) *surface.Node {
	return t.index[id].node
}

// Entries lists mirrored elements in document order of the mirror tree.
func (t *MirrorTree) Entries() []Entry {
	var out []Entry
	for _, c := range t.group.Children() {
		c.Walk(func(n *surface.Node) bool {
			if id, ok := n.LookupAttr(elementAttr); ok {
				if e, ok := t.index[id]; ok && e.node == n {
					out = append(out, Entry{ID: id, Element: e.element, Node: n})
				}
			}
			return true
		})
	}
	return out
}
