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
	"image"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"gominimap/internal/diagram"
	"gominimap/internal/minimap"
	"gominimap/internal/vector"
)

// MaxRasterSide bounds either side of a rendered image, supersampling included.
const MaxRasterSide = 16384

// PNGOptions controls PNG export.
type PNGOptions struct {
	Style Style
	// Scale multiplies the minimap size. Zero means 1.
	Scale float64
	// Supersample renders at this multiple of the output size and scales
	// down with Catmull-Rom. Zero means 4.
	Supersample int
	Labels      bool
}

// RenderPNG rasterizes the snapshot: background, element boxes and
// polylines, then the viewport indicator on top.
func RenderPNG(s minimap.Snapshot, opt PNGOptions) (*image.RGBA, error) {
	scale := opt.Scale
	if scale <= 0 {
		scale = 1
	}
	ss := opt.Supersample
	if ss <= 0 {
		ss = 4
	}
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("render png: invalid scale %v", scale)
	}
	// Bound the size in float64 so huge scales cannot overflow the int conversion.
	fw, fh := math.Round(s.Size.W*scale), math.Round(s.Size.H*scale)
	if !(fw >= 1 && fh >= 1) {
		return nil, ErrEmptySnapshot
	}
	if fw*float64(ss) > MaxRasterSide || fh*float64(ss) > MaxRasterSide {
		return nil, fmt.Errorf("render png: %.0fx%.0f at %dx supersampling exceeds %d pixels", fw, fh, ss, MaxRasterSide)
	}
	w, h := int(fw), int(fh)
	st := opt.Style.withDefaults()

	big := image.NewRGBA(image.Rect(0, 0, w*ss, h*ss))
	draw.Draw(big, big.Bounds(), image.NewUniform(toNRGBA(st.Background)), image.Point{}, draw.Src)

	m := s.Mapper()
	k := scale * float64(ss)
	toPx := func(p vector.Pt) vector.Pt { return m.ToPixel(p).Scale(k) }

	for _, e := range s.Elements {
		if e.Kind == diagram.KindConnection {
			lw := st.ConnectionStroke.Width * float64(ss)
			for i := 1; i < len(e.Waypoints); i++ {
				drawLine(big, toPx(e.Waypoints[i-1]), toPx(e.Waypoints[i]), lw, st.ConnectionStroke.Color)
			}
			continue
		}
		r := scaleRect(m.ToPixelRect(e.Bounds), k)
		fillRect(big, r, st.ShapeFill)
		strokeRect(big, r, st.ShapeStroke.Width*float64(ss), st.ShapeStroke.Color)
	}
	if !s.Viewport.Empty() {
		r := scaleRect(m.ToPixelRect(s.Viewport), k)
		fillRect(big, r, st.ViewportFill)
		strokeRect(big, r, st.ViewportStroke.Width*float64(ss), st.ViewportStroke.Color)
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(out, out.Bounds(), big, big.Bounds(), draw.Src, nil)

	if opt.Labels {
		drawLabels(out, s, m, scale, st.LabelColor)
	}
	return out, nil
}

// WritePNG renders the snapshot and encodes it as PNG.
func WritePNG(w io.Writer, s minimap.Snapshot, opt PNGOptions) error {
	img, err := RenderPNG(s, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func scaleRect(r vector.Rect, k float64) vector.Rect {
	return vector.R(r.X*k, r.Y*k, r.W*k, r.H*k)
}

func pixelRect(r vector.Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.Right())), int(math.Ceil(r.Bottom())),
	)
}

// fillRect composites c over r.
func fillRect(img *image.RGBA, r vector.Rect, c Color) {
	if c.A == 0 || !r.IsFinite() {
		return
	}
	rect := pixelRect(r).Intersect(img.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(img, rect, image.NewUniform(toNRGBA(c)), image.Point{}, draw.Over)
}

// strokeRect draws the border of r inside its bounds, lw pixels wide.
func strokeRect(img *image.RGBA, r vector.Rect, lw float64, c Color) {
	if lw <= 0 {
		return
	}
	lw = math.Min(lw, math.Min(r.W, r.H)/2)
	fillRect(img, vector.R(r.X, r.Y, r.W, lw), c)
	fillRect(img, vector.R(r.X, r.Bottom()-lw, r.W, lw), c)
	fillRect(img, vector.R(r.X, r.Y+lw, lw, r.H-2*lw), c)
	fillRect(img, vector.R(r.Right()-lw, r.Y+lw, lw, r.H-2*lw), c)
}

// drawLine stamps lw-wide squares along a to b.
func drawLine(img *image.RGBA, a, b vector.Pt, lw float64, c Color) {
	if !a.IsFinite() || !b.IsFinite() || lw <= 0 {
		return
	}
	d := b.Sub(a)
	n := int(math.Ceil(math.Max(math.Abs(d.X), math.Abs(d.Y))))
	if n > 4*MaxRasterSide {
		return
	}
	for i := 0; i <= n; i++ {
		t := 0.0
		if n > 0 {
			t = float64(i) / float64(n)
		}
		p := a.Add(d.Scale(t))
		rect := pixelRect(vector.R(p.X-lw/2, p.Y-lw/2, lw, lw)).Intersect(img.Bounds())
		if !rect.Empty() {
			draw.Draw(img, rect, image.NewUniform(toNRGBA(c)), image.Point{}, draw.Src)
		}
	}
}

// drawLabels writes shape labels centred in their boxes where they fit.
func drawLabels(img *image.RGBA, s minimap.Snapshot, m *minimap.Mapper, scale float64, c Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(toNRGBA(c)), Face: face}
	for _, e := range s.Elements {
		if e.Label == "" || e.Kind == diagram.KindConnection {
			continue
		}
		r := scaleRect(m.ToPixelRect(e.Bounds), scale)
		tw := font.MeasureString(face, e.Label).Ceil()
		if float64(tw) > r.W || float64(face.Height) > r.H {
			continue
		}
		x := int(math.Round(r.X + (r.W-float64(tw))/2))
		y := int(math.Round(r.Y + (r.H+float64(face.Ascent))/2))
		d.Dot = fixed.P(x, y)
		d.DrawString(e.Label)
	}
}
