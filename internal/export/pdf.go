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
	"io"

	"github.com/jung-kurt/gofpdf"

	"gominimap/internal/diagram"
	"gominimap/internal/minimap"
)

// PDFOptions controls PDF export. The page is the minimap size in points.
type PDFOptions struct {
	Style  Style
	Title  string
	Labels bool
}

// WritePDF draws the snapshot as vector graphics on a single page.
func WritePDF(w io.Writer, s minimap.Snapshot, opt PDFOptions) error {
	if s.Size.W <= 0 || s.Size.H <= 0 {
		return ErrEmptySnapshot
	}
	st := opt.Style.withDefaults()
	title := opt.Title
	if title == "" {
		title = "Minimap"
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: s.Size.W, Ht: s.Size.H},
	})
	pdf.SetTitle(title, true)
	pdf.SetCreator("gominimap", true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	setFillColor(pdf, st.Background)
	pdf.Rect(0, 0, s.Size.W, s.Size.H, "F")

	m := s.Mapper()
	for _, e := range s.Elements {
		if e.Kind == diagram.KindConnection {
			setDrawColor(pdf, st.ConnectionStroke.Color)
			pdf.SetLineWidth(st.ConnectionStroke.Width)
			for i := 1; i < len(e.Waypoints); i++ {
				a, b := m.ToPixel(e.Waypoints[i-1]), m.ToPixel(e.Waypoints[i])
				pdf.Line(a.X, a.Y, b.X, b.Y)
			}
			continue
		}
		r := m.ToPixelRect(e.Bounds)
		setFillColor(pdf, st.ShapeFill)
		setDrawColor(pdf, st.ShapeStroke.Color)
		pdf.SetLineWidth(st.ShapeStroke.Width)
		pdf.Rect(r.X, r.Y, r.W, r.H, "FD")
		if opt.Labels && e.Label != "" {
			pdf.SetFont("Helvetica", "", 6)
			setTextColor(pdf, st.LabelColor)
			if tw := pdf.GetStringWidth(e.Label); tw <= r.W {
				pdf.Text(r.X+(r.W-tw)/2, r.Y+r.H/2+2, e.Label)
			}
		}
	}

	if !s.Viewport.Empty() {
		r := m.ToPixelRect(s.Viewport)
		pdf.SetAlpha(float64(st.ViewportFill.A)/255, "Normal")
		setFillColor(pdf, st.ViewportFill)
		pdf.Rect(r.X, r.Y, r.W, r.H, "F")
		pdf.SetAlpha(1, "Normal")
		setDrawColor(pdf, st.ViewportStroke.Color)
		pdf.SetLineWidth(st.ViewportStroke.Width)
		pdf.Rect(r.X, r.Y, r.W, r.H, "D")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func setDrawColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}

func setTextColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}
