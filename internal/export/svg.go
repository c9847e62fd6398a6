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

	"gominimap/internal/minimap"
	"gominimap/internal/surface"
)

const svgNamespace = "http://www.w3.org/2000/svg"

// SVGOptions controls SVG export.
type SVGOptions struct {
	Style Style
	// Scale multiplies the width and height attributes. Zero means 1.
	Scale float64
}

// WriteSVG writes the snapshot's mirror as a standalone SVG document. The
// viewBox is the region the minimap showed, so the file looks like the
// minimap at the time of the snapshot.
func WriteSVG(w io.Writer, s minimap.Snapshot, opt SVGOptions) error {
	if s.SVG == nil || s.Size.W <= 0 || s.Size.H <= 0 {
		return ErrEmptySnapshot
	}
	st := opt.Style.withDefaults()
	scale := opt.Scale
	if scale <= 0 {
		scale = 1
	}

	root := s.SVG.Clone()
	root.SetAttr("xmlns", svgNamespace)
	root.SetAttr("version", "1.1")
	root.SetAttr("width", num(s.Size.W*scale)+"px")
	root.SetAttr("height", num(s.Size.H*scale)+"px")
	vis := s.Mapper().Visible()
	root.SetAttr("viewBox", fmt.Sprintf("%s %s %s %s", num(vis.X), num(vis.Y), num(vis.W), num(vis.H)))

	bg := surface.El("rect", []string{"djs-minimap-background"},
		"x", num(vis.X), "y", num(vis.Y), "width", num(vis.W), "height", num(vis.H),
		"fill", svgColor(st.Background))
	root.InsertBefore(bg, root.Child(0))

	if vp := root.Query("rect.djs-minimap-viewport"); vp != nil {
		if s.Viewport.Empty() {
			vp.Remove()
		} else {
			vp.SetAttr("fill", svgColor(st.ViewportFill))
			vp.SetAttr("fill-opacity", opacity(st.ViewportFill))
			vp.SetAttr("stroke", svgColor(st.ViewportStroke.Color))
			// The stroke width is in minimap pixels, not diagram units.
			vp.SetAttr("stroke-width", num(st.ViewportStroke.Width/pixelsPerUnit(s)))
		}
	}

	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(w, format, args...)
	}
	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	if werr == nil {
		werr = surface.WriteMarkup(w, root)
	}
	wf("\n")
	if werr != nil {
		return fmt.Errorf("write svg: %w", werr)
	}
	return nil
}

// pixelsPerUnit is the minimap's scale from diagram units to pixels.
func pixelsPerUnit(s minimap.Snapshot) float64 {
	vis := s.Mapper().Visible()
	if vis.W <= 0 {
		return 1
	}
	return s.Size.W / vis.W
}
