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

// Canvas is the part of the host canvas the minimap reads and drives.
type Canvas interface {
	Container() *surface.Node
	Viewbox() diagram.Viewbox
	SetViewbox(vector.Rect)
	Zoom() float64
	SetZoom(z float64, anchor *vector.Pt)
	RootElement() *diagram.Element
	DefaultLayerBounds() vector.Rect
}

// ElementRegistry resolves the graphics node of an element.
type ElementRegistry interface {
	Graphics(*diagram.Element) *surface.Node
}

// EventBus is the host's publish/subscribe channel.
type EventBus interface {
	On(events []string, priority int, fn diagram.Listener) diagram.Subscription
	Off(diagram.Subscription)
	Fire(name string, ev *diagram.Event)
}

var (
	_ Canvas          = (*diagram.Canvas)(nil)
	_ ElementRegistry = (*diagram.Registry)(nil)
	_ EventBus        = (*diagram.EventBus)(nil)
)
