/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package surface is the retained rendering surface the host canvas draws
// into and the minimap mirrors: element nodes from golang.org/x/net/html with
// helpers for attributes, classes and re-parenting, selector queries through
// cascadia and markup output through html.Render.
package surface

import (
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is an html.Node seen through the surface helpers. A *Node and the
// *html.Node it converts to are the same node, so identity comparisons hold
// across queries.
type Node html.Node

func wrap(h *html.Node) *Node {
	if h == nil {
		return nil
	}
	return (*Node)(h)
}

// HTML returns the underlying node.
func (n *Node) HTML() *html.Node { return (*html.Node)(n) }

// New creates a detached element node.
func New(tag string) *Node {
	return wrap(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
}

// NewDocument creates a document root. Nodes are connected when their root
// ancestor is a document.
func NewDocument() *Node { return wrap(&html.Node{Type: html.DocumentNode}) }

// El creates a node with classes and attributes given as name/value pairs.
func El(tag string, classes []string, kv ...string) *Node {
	n := New(tag)
	n.AddClass(classes...)
	for i := 0; i+1 < len(kv); i += 2 {
		n.SetAttr(kv[i], kv[i+1])
	}
	return n
}

// Tag is the element name, "" for a document.
func (n *Node) Tag() string {
	if n.Type != html.ElementNode {
		return ""
	}
	return n.Data
}

func (n *Node) ID() string { return n.GetAttr("id") }

// GetAttr returns the attribute value or "" when unset.
func (n *Node) GetAttr(name string) string {
	v, _ := n.LookupAttr(name)
	return v
}

func (n *Node) LookupAttr(name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets an attribute in place, appending new ones, and returns n.
func (n *Node) SetAttr(name, value string) *Node {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return n
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
	return n
}

func (n *Node) RemoveAttr(name string) {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func (n *Node) Classes() []string { return strings.Fields(n.GetAttr("class")) }

func (n *Node) HasClass(name string) bool { return slices.Contains(n.Classes(), name) }

func (n *Node) AddClass(names ...string) *Node {
	classes := n.Classes()
	changed := false
	for _, c := range names {
		if c != "" && !slices.Contains(classes, c) {
			classes = append(classes, c)
			changed = true
		}
	}
	if changed {
		n.SetAttr("class", strings.Join(classes, " "))
	}
	return n
}

func (n *Node) RemoveClass(name string) {
	classes := n.Classes()
	for i, c := range classes {
		if c != name {
			continue
		}
		classes = append(classes[:i], classes[i+1:]...)
		if len(classes) == 0 {
			n.RemoveAttr("class")
		} else {
			n.SetAttr("class", strings.Join(classes, " "))
		}
		return
	}
}

// Text returns the concatenated text children of n.
func (n *Node) Text() string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// SetText replaces the text children of n with s, placed before any element children.
func (n *Node) SetText(s string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.TextNode {
			n.HTML().RemoveChild(c)
		}
		c = next
	}
	if s != "" {
		n.HTML().InsertBefore(&html.Node{Type: html.TextNode, Data: s}, n.FirstChild)
	}
}

// ParentNode returns the parent, nil when detached.
func (n *Node) ParentNode() *Node { return wrap(n.Parent) }

// Children returns the element children of n.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, wrap(c))
		}
	}
	return out
}

func (n *Node) ChildCount() int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count++
		}
	}
	return count
}

// Child returns the i-th element child or nil when out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if i == 0 {
			return wrap(c)
		}
		i--
	}
	return nil
}

// FirstChildWithClass returns the first direct child carrying class.
func (n *Node) FirstChildWithClass(class string) *Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && wrap(c).HasClass(class) {
			return wrap(c)
		}
	}
	return nil
}

// Index returns the position of n among its parent's element children, or -1 when detached.
func (n *Node) Index() int {
	if n.Parent == nil {
		return -1
	}
	i := 0
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == n.HTML() {
			return i
		}
		if c.Type == html.ElementNode {
			i++
		}
	}
	return -1
}

// Append moves child to the end of n's children and returns child.
func (n *Node) Append(child *Node) *Node {
	if child == nil || child == n {
		return child
	}
	child.Remove()
	n.HTML().AppendChild(child.HTML())
	return child
}

// InsertBefore inserts child right before ref. A nil ref or one that is not a
// child of n appends.
func (n *Node) InsertBefore(child, ref *Node) *Node {
	if child == nil || child == n || child == ref {
		return child
	}
	child.Remove()
	if ref == nil || ref.Parent != n.HTML() {
		n.HTML().AppendChild(child.HTML())
		return child
	}
	n.HTML().InsertBefore(child.HTML(), ref.HTML())
	return child
}

// Remove detaches n from its parent. No-op when already detached.
func (n *Node) Remove() {
	if n.Parent != nil {
		n.Parent.RemoveChild(n.HTML())
	}
}

// Clear removes all children.
func (n *Node) Clear() {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.HTML().RemoveChild(c)
	}
}

// Clone returns a deep, detached copy of n.
func (n *Node) Clone() *Node {
	return wrap(goquery.NewDocumentFromNode(n.HTML()).Clone().Get(0))
}

// Root returns the topmost ancestor of n (n itself when detached).
func (n *Node) Root() *Node {
	r := n.HTML()
	for r.Parent != nil {
		r = r.Parent
	}
	return wrap(r)
}

// Connected reports whether n belongs to a document tree.
func (n *Node) Connected() bool { return n.Root().Type == html.DocumentNode }

// Walk visits n and its element descendants in document order. Returning
// false from fn skips the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		c.Walk(fn)
	}
}
