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
	"log/slog"
	"sort"
	"sync"

	"gominimap/internal/surface"
)

// Event names fired by the host.
const (
	EventShapeAdded        = "shape.added"
	EventShapeRemoved      = "shape.removed"
	EventConnectionAdded   = "connection.added"
	EventConnectionRemoved = "connection.removed"
	EventElementsChanged   = "elements.changed"
	EventElementUpdateID   = "element.updateId"
	EventViewboxChanged    = "canvas.viewbox.changed"
	EventCanvasResized     = "canvas.resized"
	EventAttach            = "attach"
	EventDetach            = "detach"
	EventImportDone        = "import.done"
	EventRootSet           = "root.set"
	EventDiagramDestroy    = "diagram.destroy"
)

// DefaultPriority is the priority listeners get from the host's own helpers.
const DefaultPriority = 1000

// Event is the payload handed to listeners. Fields are set depending on Type.
type Event struct {
	Type     string
	Element  *Element
	Elements []*Element
	Gfx      *surface.Node
	NewID    string
	Viewbox  Viewbox
	Data     map[string]any

	stopped bool
}

// Stop prevents listeners with lower priority from seeing the event.
func (e *Event) Stop() { e.stopped = true }

func (e *Event) Stopped() bool { return e.stopped }

// Listener handles one event.
type Listener func(*Event)

// Subscription identifies a registered listener for Off.
type Subscription struct {
	id     uint64
	events []string
}

type listener struct {
	id       uint64
	priority int
	fn       Listener
}

// EventBus dispatches named events to listeners ordered by priority (higher
// first, registration order on ties). A panicking listener is logged and
// skipped; dispatch continues with the next one.
type EventBus struct {
	mu        sync.RWMutex
	next      uint64
	listeners map[string][]listener
	logger    *slog.Logger
}

func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{listeners: map[string][]listener{}, logger: logger}
}

func (b *EventBus) On(events []string, priority int, fn Listener) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	l := listener{id: b.next, priority: priority, fn: fn}
	for _, name := range events {
		ls := append(b.listeners[name], l)
		sort.SliceStable(ls, func(i, j int) bool { return ls[i].priority > ls[j].priority })
		b.listeners[name] = ls
	}
	return Subscription{id: l.id, events: append([]string(nil), events...)}
}

func (b *EventBus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range sub.events {
		ls := b.listeners[name]
		for i, l := range ls {
			if l.id == sub.id {
				b.listeners[name] = append(ls[:i:i], ls[i+1:]...)
				break
			}
		}
	}
}

// Fire dispatches ev (nil allowed) to the listeners of name.
func (b *EventBus) Fire(name string, ev *Event) {
	if ev == nil {
		ev = &Event{}
	}
	ev.Type = name
	b.mu.RLock()
	ls := append([]listener(nil), b.listeners[name]...)
	b.mu.RUnlock()
	for _, l := range ls {
		if ev.stopped {
			return
		}
		b.invoke(name, l, ev)
	}
}

func (b *EventBus) invoke(name string, l listener, ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked", slog.String("event", name), slog.String("panic", fmt.Sprint(r)))
		}
	}()
	l.fn(ev)
}

// ListenerCount reports how many listeners are registered for name.
func (b *EventBus) ListenerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name])
}
