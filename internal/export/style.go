/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image/color"
	"strconv"

	"gominimap/internal/vector"
)

// Color is an 8-bit, non-premultiplied RGBA color.
type Color struct {
	R, G, B, A uint8
}

func (c Color) zero() bool { return c == Color{} }

// Stroke is a line color and width in output units.
type Stroke struct {
	Color Color
	Width float64
}

// Style sets the colors of an exported minimap. Zero fields take the
// DefaultStyle values.
type Style struct {
	Background       Color
	ShapeFill        Color
	ShapeStroke      Stroke
	ConnectionStroke Stroke
	ViewportFill     Color
	ViewportStroke   Stroke
	LabelColor       Color
}

// DefaultStyle mirrors the look of the on-screen minimap.
func DefaultStyle() Style {
	black := Color{A: 255}
	orange := Color{R: 255, G: 116, A: 255}
	return Style{
		Background:       Color{R: 250, G: 250, B: 250, A: 255},
		ShapeFill:        Color{R: 255, G: 255, B: 255, A: 255},
		ShapeStroke:      Stroke{Color: black, Width: 1},
		ConnectionStroke: Stroke{Color: black, Width: 1},
		ViewportFill:     Color{R: 255, G: 116, A: 64},
		ViewportStroke:   Stroke{Color: orange, Width: 2},
		LabelColor:       black,
	}
}

func (s Style) withDefaults() Style {
	d := DefaultStyle()
	if s.Background.zero() {
		s.Background = d.Background
	}
	if s.ShapeFill.zero() {
		s.ShapeFill = d.ShapeFill
	}
	if s.ShapeStroke.Width == 0 {
		s.ShapeStroke = d.ShapeStroke
	}
	if s.ConnectionStroke.Width == 0 {
		s.ConnectionStroke = d.ConnectionStroke
	}
	if s.ViewportFill.zero() {
		s.ViewportFill = d.ViewportFill
	}
	if s.ViewportStroke.Width == 0 {
		s.ViewportStroke = d.ViewportStroke
	}
	if s.LabelColor.zero() {
		s.LabelColor = d.LabelColor
	}
	return s
}

func toNRGBA(c Color) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

func svgColor(c Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func opacity(c Color) string { return num(float64(c.A) / 255) }

func num(f float64) string {
	return strconv.FormatFloat(vector.FloatRound(f, 3), 'f', -1, 64)
}
