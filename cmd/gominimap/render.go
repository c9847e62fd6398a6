/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gominimap/internal/export"
	applog "gominimap/internal/log"
	"gominimap/internal/minimap"
	"gominimap/internal/session"
	"gominimap/internal/vector"
)

// renderFlags are shared by render and watch.
type renderFlags struct {
	out     string
	format  string
	preset  string
	viewbox string
	width   float64
	height  float64
	scale   float64
	labels  bool
	canvasW float64
	canvasH float64
}

func (f *renderFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.out, "out", "o", "", "output file (.svg, .png, .pdf or .zip)")
	fl.StringVar(&f.format, "format", "", "output format, overriding the file extension (svg|png|pdf|zip)")
	fl.StringVar(&f.preset, "preset", "", "export preset (screen|print)")
	fl.StringVar(&f.viewbox, "viewbox", "", "host viewbox x,y,w,h in diagram units (default: fit content)")
	fl.Float64Var(&f.width, "width", 0, "minimap width in pixels (default from config)")
	fl.Float64Var(&f.height, "height", 0, "minimap height in pixels (default from config)")
	fl.Float64Var(&f.scale, "scale", 0, "output scale factor (default from preset)")
	fl.BoolVar(&f.labels, "labels", false, "draw element labels")
	fl.Float64Var(&f.canvasW, "canvas-width", session.DefaultWidth, "host canvas width in pixels")
	fl.Float64Var(&f.canvasH, "canvas-height", session.DefaultHeight, "host canvas height in pixels")
	_ = cmd.MarkFlagRequired("out")
}

func (f *renderFlags) exportOptions(cmd *cobra.Command) (export.Options, error) {
	opt := export.Options{Preset: export.PresetName(strings.ToLower(f.preset)), Scale: f.scale}
	switch opt.Preset {
	case "", export.PresetScreen, export.PresetPrint:
	default:
		return opt, fmt.Errorf("unknown preset %q", f.preset)
	}
	if f.format != "" {
		format, err := export.ParseFormat(f.format)
		if err != nil {
			return opt, err
		}
		opt.Format = format
	}
	if cmd.Flags().Changed("labels") {
		labels := f.labels
		opt.Labels = &labels
	}
	return opt, nil
}

func (f *renderFlags) minimapOptions(a *app) minimap.Options {
	mo := a.cfg.MinimapOptions()
	if f.width > 0 {
		mo.Width = f.width
	}
	if f.height > 0 {
		mo.Height = f.height
	}
	return mo
}

// parseViewbox reads "x,y,w,h". Width and height must be positive.
func parseViewbox(s string) (vector.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return vector.Rect{}, fmt.Errorf("viewbox %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return vector.Rect{}, fmt.Errorf("viewbox %q: %w", s, err)
		}
		v[i] = n
	}
	r := vector.R(v[0], v[1], v[2], v[3])
	if r.Empty() || !r.IsFinite() {
		return vector.Rect{}, fmt.Errorf("viewbox %q: width and height must be positive", s)
	}
	return r, nil
}

func newRenderCommand(a *app) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render DIAGRAM",
		Short: "Render the minimap of a diagram to SVG, PNG, PDF or a zip bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := f.exportOptions(cmd)
			if err != nil {
				return err
			}
			var box vector.Rect
			if f.viewbox != "" {
				if box, err = parseViewbox(f.viewbox); err != nil {
					return err
				}
			}
			l := applog.WithOperation(a.log, "render").With(slog.String("file", args[0]))
			sess := session.New(session.Options{Width: f.canvasW, Height: f.canvasH, Minimap: f.minimapOptions(a), Logger: l})
			defer sess.Close()
			if err := sess.LoadFile(args[0]); err != nil {
				return err
			}
			if !box.Empty() {
				sess.SetViewbox(box)
			}
			if err := export.WriteFile(f.out, sess.Snapshot(), opt); err != nil {
				return fmt.Errorf("write %s: %w", f.out, err)
			}
			l.InfoContext(sess.Context(cmd.Context()), "minimap written", slog.String("out", f.out))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
