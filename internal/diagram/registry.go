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
	"strings"
	"sync"

	"gominimap/internal/surface"
)

// Registry maps element ids to elements and their graphics nodes.
type Registry struct {
	mu    sync.RWMutex
	order []string
	elems map[string]*Element
	gfx   map[string]*surface.Node
}

func NewRegistry() *Registry {
	return &Registry{elems: map[string]*Element{}, gfx: map[string]*surface.Node{}}
}

// validID rejects ids that cannot be used in selector lookups.
func validID(id string) error {
	if strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidID, id)
	}
	return nil
}

// Add registers e with its graphics. Ids must be unique and free of NUL.
func (r *Registry) Add(e *Element, gfx *surface.Node) error {
	if err := validID(e.ID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.elems[e.ID]; ok {
		return ErrDuplicateID
	}
	r.elems[e.ID] = e
	r.gfx[e.ID] = gfx
	r.order = append(r.order, e.ID)
	if gfx != nil {
		gfx.SetAttr("data-element-id", e.ID)
	}
	return nil
}

func (r *Registry) Remove(e *Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(e.ID)
}

func (r *Registry) removeLocked(id string) {
	if _, ok := r.elems[id]; !ok {
		return
	}
	delete(r.elems, id)
	delete(r.gfx, id)
	for i, x := range r.order {
		if x == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) Get(id string) *Element {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.elems[id]
}

// Graphics returns the g.djs-element node of e (the layer for roots), or nil.
func (r *Registry) Graphics(e *Element) *surface.Node {
	if e == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.elems[e.ID] != e {
		return nil
	}
	return r.gfx[e.ID]
}

// UpdateID re-keys e under newID.
func (r *Registry) UpdateID(e *Element, newID string) error {
	if err := validID(newID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.elems[e.ID] != e {
		return ErrUnknownElement
	}
	if _, ok := r.elems[newID]; ok {
		return ErrDuplicateID
	}
	gfx := r.gfx[e.ID]
	old := e.ID
	for i, x := range r.order {
		if x == old {
			r.order[i] = newID
		}
	}
	delete(r.elems, old)
	delete(r.gfx, old)
	e.ID = newID
	r.elems[newID] = e
	r.gfx[newID] = gfx
	if gfx != nil {
		gfx.SetAttr("data-element-id", newID)
	}
	return nil
}

// All returns registered elements in registration order.
func (r *Registry) All() []*Element {
	return r.Filter(func(*Element) bool { return true })
}

func (r *Registry) Filter(fn func(*Element) bool) []*Element {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Element
	for _, id := range r.order {
		if e := r.elems[id]; fn(e) {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.elems)
}
