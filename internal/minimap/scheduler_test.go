/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package minimap

import (
	"testing"
	"time"
)

func TestSchedulerTrailingEdge(t *testing.T) {
	clk := &fakeClock{}
	flushes := 0
	s := NewScheduler(300*time.Millisecond, clk, nil, func() bool { flushes++; return true })
	for i := 0; i < 10; i++ {
		s.Schedule()
		clk.Advance(100 * time.Millisecond)
	}
	if flushes != 0 || !s.Pending() {
		t.Fatalf("flushed during the burst: %d", flushes)
	}
	clk.Advance(300 * time.Millisecond)
	if flushes != 1 || s.Pending() {
		t.Fatalf("flushes = %d, want 1", flushes)
	}
}

func TestSchedulerImmediateSupersedesTimer(t *testing.T) {
	clk := &fakeClock{}
	flushes := 0
	var dispatched int
	dispatch := func(f func()) { dispatched++; f() }
	s := NewScheduler(time.Second, clk, dispatch, func() bool { flushes++; return false })

	s.Schedule()
	s.Immediate()
	if flushes != 1 {
		t.Fatalf("Immediate did not flush synchronously")
	}
	clk.Advance(2 * time.Second)
	if flushes != 1 {
		t.Fatalf("superseded timer flushed")
	}

	// A timer that was already dispatched when Immediate ran is a no-op.
	s.Schedule()
	timer := clk.timers[len(clk.timers)-1]
	s.Immediate()
	timer.f()
	if flushes != 2 {
		t.Fatalf("stale generation flushed: %d", flushes)
	}

	st := s.Stats()
	if st.Scheduled != 2 || st.Immediate != 2 || st.Flushes != 2 || st.Redraws != 0 {
		t.Fatalf("stats = %+v", st)
	}
	if dispatched != 1 {
		t.Fatalf("dispatch calls = %d", dispatched)
	}

	s.Close()
	s.Schedule()
	s.Immediate()
	clk.Advance(time.Hour)
	if flushes != 2 {
		t.Fatalf("closed scheduler flushed")
	}
}
