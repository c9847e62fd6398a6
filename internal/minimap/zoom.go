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

	"gominimap/internal/vector"
)

// Zoom stepping constants, shared with the host's own scroll zoom.
const (
	MinZoom        = 0.2
	MaxZoom        = 4
	NumSteps       = 10
	DeltaThreshold = 0.1

	pixelDeltaFactor = 0.02
	lineDeltaFactor  = 0.32
)

// DeltaMode is the unit of a wheel delta.
type DeltaMode int

const (
	DeltaPixel DeltaMode = iota
	DeltaLine
	DeltaPage
)

// WheelEvent is a scroll gesture over the minimap. Pos is in minimap pixels.
type WheelEvent struct {
	DX, DY float64
	Mode   DeltaMode
	Pos    vector.Pt
}

// Range bounds the zoom factor.
type Range struct{ Min, Max float64 }

// ZoomController turns wheel deltas into discrete zoom steps on a log10 grid.
type ZoomController struct {
	Range Range
	acc   float64
}

func NewZoomController() *ZoomController {
	return &ZoomController{Range: Range{Min: MinZoom, Max: MaxZoom}}
}

// StepSize is the width of one step on the log10 scale.
func (z *ZoomController) StepSize() float64 {
	return (math.Log10(z.Range.Max) - math.Log10(z.Range.Min)) / (NumSteps * 2)
}

// NormalizeDelta converts a raw wheel event into a signed zoom delta.
// Scrolling down (positive DY) zooms out.
func NormalizeDelta(ev WheelEvent) float64 {
	factor := lineDeltaFactor
	if ev.Mode == DeltaPixel {
		factor = pixelDeltaFactor
	}
	return math.Hypot(ev.DX, ev.DY) * sign(ev.DY) * -factor
}

// Accumulate adds the event's delta. Once the accumulated magnitude exceeds
// DeltaThreshold it returns the next zoom level, one step away from current
// snapped to the grid, and resets the accumulator.
func (z *ZoomController) Accumulate(ev WheelEvent, current float64) (float64, bool) {
	delta := NormalizeDelta(ev)
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return 0, false
	}
	z.acc += delta
	if math.Abs(z.acc) <= DeltaThreshold {
		return 0, false
	}
	dir := 1
	if delta < 0 || (delta == 0 && z.acc < 0) {
		dir = -1
	}
	z.acc = 0
	return z.Step(current, dir), true
}

// Step snaps current to the grid and moves dir steps, clamped to the range.
func (z *ZoomController) Step(current float64, dir int) float64 {
	step := z.StepSize()
	if current <= 0 || math.IsNaN(current) || math.IsInf(current, 0) {
		current = 1
	}
	level := math.Round(math.Log10(current)/step) * step
	level += step * float64(dir)
	return z.clamp(math.Pow(10, level))
}

// Pending returns the accumulated, not yet applied delta.
func (z *ZoomController) Pending() float64 { return z.acc }

func (z *ZoomController) Reset() { z.acc = 0 }

func (z *ZoomController) clamp(v float64) float64 {
	return math.Max(z.Range.Min, math.Min(z.Range.Max, v))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
