/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Basic 2D geometry shared by the host canvas, the minimap and the exporters.
// Values are float64: viewboxes are compared and inverted, and float32 drift
// shows up in round trips.

import "math"

// Pt is a 2D point.
type Pt struct{ X, Y float64 }

func (p Pt) Add(q Pt) Pt               { return Pt{p.X + q.X, p.Y + q.Y} }
func (p Pt) Sub(q Pt) Pt               { return Pt{p.X - q.X, p.Y - q.Y} }
func (p Pt) Scale(f float64) Pt        { return Pt{p.X * f, p.Y * f} }
func (p Pt) IsFinite() bool            { return finite(p.X) && finite(p.Y) }
func (p Pt) Eq(q Pt, eps float64) bool { return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps }

// Size is a width/height pair.
type Size struct{ W, H float64 }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt         { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt         { return Pt{r.X + r.W, r.Y + r.H} }
func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }
func (r Rect) Center() Pt      { return Pt{r.X + r.W/2, r.Y + r.H/2} }
func (r Rect) Size() Size      { return Size{r.W, r.H} }

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// IsFinite reports whether all four components are finite numbers.
func (r Rect) IsFinite() bool { return finite(r.X) && finite(r.Y) && finite(r.W) && finite(r.H) }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Translate moves the rect by d.
func (r Rect) Translate(d Pt) Rect { return Rect{X: r.X + d.X, Y: r.Y + d.Y, W: r.W, H: r.H} }

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// BoundsOf returns the bounding box of pts; the zero Rect when pts is empty.
func BoundsOf(pts []Pt) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY, maxX, maxY := pts[0].X, pts[0].Y, pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// FitAspectRatio returns the smallest rect containing bounds whose W/H equals
// ratio. The under-sized axis grows symmetrically around the original centre.
// Bounds are returned unchanged when ratio is not a positive finite number or
// when bounds has no extent on either axis.
func FitAspectRatio(bounds Rect, ratio float64) Rect {
	if !finite(ratio) || ratio <= 0 {
		return bounds
	}
	if bounds.W <= 0 && bounds.H <= 0 {
		return bounds
	}
	cur := bounds.W / bounds.H
	switch {
	case bounds.H <= 0 || cur > ratio:
		h := bounds.W / ratio
		return Rect{X: bounds.X, Y: bounds.Y - (h-bounds.H)/2, W: bounds.W, H: h}
	case cur < ratio:
		w := bounds.H * ratio
		return Rect{X: bounds.X - (w-bounds.W)/2, Y: bounds.Y, W: w, H: bounds.H}
	}
	return bounds
}

// Affine2D represents a 2D affine transform as matrix:
// | a c e |
// | b d f |
// | 0 0 1 |
// stored as [a b c d e f].
type Affine2D struct{ A, B, C, D, E, F float64 }

func (m Affine2D) Apply(p Pt) Pt {
	return Pt{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// ApplyRect transforms an axis-aligned rect. Only valid for scale+translate matrices.
func (m Affine2D) ApplyRect(r Rect) Rect {
	a := m.Apply(r.Min())
	b := m.Apply(r.Max())
	return BoundsOf([]Pt{a, b})
}

// Invert returns the inverse transform and false when the matrix is singular.
func (m Affine2D) Invert() (Affine2D, bool) {
	det := m.A*m.D - m.B*m.C
	if det == 0 || !finite(det) {
		return Affine2D{}, false
	}
	inv := 1 / det
	return Affine2D{
		A: m.D * inv,
		B: -m.B * inv,
		C: -m.C * inv,
		D: m.A * inv,
		E: (m.C*m.F - m.D*m.E) * inv,
		F: (m.B*m.E - m.A*m.F) * inv,
	}, true
}

func Translate(tx, ty float64) Affine2D { return Affine2D{A: 1, D: 1, E: tx, F: ty} }

// RectToRect returns the scale+translate transform mapping src onto dst.
func RectToRect(src, dst Rect) Affine2D {
	if src.W == 0 || src.H == 0 {
		return Translate(dst.X-src.X, dst.Y-src.Y)
	}
	sx, sy := dst.W/src.W, dst.H/src.H
	return Affine2D{A: sx, D: sy, E: dst.X - src.X*sx, F: dst.Y - src.Y*sy}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
