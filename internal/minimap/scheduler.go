/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package minimap

import (
	"sync"
	"time"
)

// Stats counts scheduler activity.
type Stats struct {
	Scheduled int // Schedule calls
	Immediate int // Immediate calls
	Flushes   int // flush invocations, debounced or immediate
	Redraws   int // flushes that actually redrew
}

// Scheduler coalesces redraw requests. Schedule is a trailing-edge debounce:
// the flush runs once the delay passes without another call. Immediate
// flushes synchronously and supersedes a pending timer, whose later firing
// is a no-op.
type Scheduler struct {
	mu       sync.Mutex
	delay    time.Duration
	clock    Clock
	dispatch func(func())
	flush    func() bool

	gen     uint64
	pending bool
	timer   Timer
	closed  bool
	stats   Stats
}

// NewScheduler creates a scheduler. flush reports whether it redrew.
func NewScheduler(delay time.Duration, clock Clock, dispatch func(func()), flush func() bool) *Scheduler {
	if clock == nil {
		clock = SystemClock
	}
	if dispatch == nil {
		dispatch = func(f func()) { f() }
	}
	return &Scheduler{delay: delay, clock: clock, dispatch: dispatch, flush: flush}
}

// Schedule requests a debounced flush.
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stats.Scheduled++
	s.gen++
	gen := s.gen
	s.pending = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(s.delay, func() {
		s.dispatch(func() { s.fire(gen) })
	})
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || !s.pending || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	s.mu.Unlock()
	s.run()
}

// Immediate flushes now, cancelling any pending debounced flush.
func (s *Scheduler) Immediate() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stats.Immediate++
	s.gen++
	s.pending = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.run()
}

func (s *Scheduler) run() {
	redrew := s.flush()
	s.mu.Lock()
	s.stats.Flushes++
	if redrew {
		s.stats.Redraws++
	}
	s.mu.Unlock()
}

// Pending reports whether a debounced flush is outstanding.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close stops the timer; later calls are ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.pending = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
