/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package minimap

import (
	"math"
	"testing"
	"time"

	"gominimap/internal/diagram"
	"gominimap/internal/log"
	"gominimap/internal/vector"
)

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeClock fires timers only from Advance, on the calling goroutine.
type fakeClock struct {
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now += d
	for _, t := range append([]*fakeTimer(nil), c.timers...) {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			t.f()
		}
	}
}

type host struct {
	canvas   *diagram.Canvas
	modeling *diagram.Modeling
	clock    *fakeClock
	minimap  *Minimap
}

func newHost(t *testing.T, opts Options) *host {
	t.Helper()
	c, m := diagram.New(diagram.CanvasOptions{Width: 800, Height: 600})
	clk := &fakeClock{}
	if opts.Clock == nil {
		opts.Clock = clk
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	mm := New(c, c.Registry(), c.EventBus(), opts)
	t.Cleanup(mm.Destroy)
	return &host{canvas: c, modeling: m, clock: clk, minimap: mm}
}

func (h *host) shape(t *testing.T, id string, x, y, w, hgt float64, parent *diagram.Element) *diagram.Element {
	t.Helper()
	e, err := h.modeling.AddShape(diagram.NewShape(id, x, y, w, hgt), parent)
	if err != nil {
		t.Fatalf("AddShape %s: %v", id, err)
	}
	return e
}

func (h *host) connection(t *testing.T, id string, pts ...vector.Pt) *diagram.Element {
	t.Helper()
	e, err := h.modeling.AddConnection(diagram.NewConnection(id, pts...), nil)
	if err != nil {
		t.Fatalf("AddConnection %s: %v", id, err)
	}
	return e
}

// flush lets any pending debounce fire.
func (h *host) flush() { h.clock.Advance(time.Hour) }

func near(a, b float64) bool { return math.Abs(a-b) <= 1e-9 }

func nearPt(a, b vector.Pt) bool { return near(a.X, b.X) && near(a.Y, b.Y) }
