/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package minimap

import (
	"log/slog"
	"strings"
	"time"

	mlog "gominimap/internal/log"
)

// Defaults for Options.
const (
	DefaultDebounceDelay = 300 * time.Millisecond
	DefaultPosition      = "right-top"
	DefaultMargin        = 20
	DefaultWidth         = 320
	DefaultHeight        = 180
	DefaultPadding       = 50
)

// Timer is a pending AfterFunc call.
type Timer interface {
	Stop() bool
}

// Clock schedules deferred calls. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// Options configure a Minimap. They are copied at construction; zero fields
// take the defaults above.
type Options struct {
	Open          bool
	DebounceDelay time.Duration
	Position      string // "<right|left>-<top|bottom>"
	Margin        float64
	Width, Height float64
	Padding       float64

	// Clock drives the debounce timer.
	Clock Clock

	// Dispatch runs deferred work on the host's UI thread. The default runs it
	// inline on the timer goroutine, which is only safe for single-threaded use.
	Dispatch func(func())
	Logger   *slog.Logger

	// OnUpdate is called after every redraw with a fresh snapshot.
	OnUpdate func(Snapshot)
}

func (o Options) withDefaults() Options {
	if o.DebounceDelay <= 0 {
		o.DebounceDelay = DefaultDebounceDelay
	}
	if strings.TrimSpace(o.Position) == "" {
		o.Position = DefaultPosition
	}
	if o.Margin <= 0 {
		o.Margin = DefaultMargin
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Padding < 0 {
		o.Padding = 0
	} else if o.Padding == 0 {
		o.Padding = DefaultPadding
	}
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	if o.Dispatch == nil {
		o.Dispatch = func(f func()) { f() }
	}
	if o.Logger == nil {
		o.Logger = mlog.WithComponent("minimap")
	}
	return o
}

// placement splits Position into its horizontal and vertical parts.
func (o Options) placement() (horizontal, vertical string) {
	parts := strings.SplitN(strings.ToLower(o.Position), "-", 2)
	horizontal, vertical = "right", "top"
	if len(parts) > 0 && parts[0] == "left" {
		horizontal = "left"
	}
	if len(parts) > 1 && parts[1] == "bottom" {
		vertical = "bottom"
	}
	return horizontal, vertical
}
