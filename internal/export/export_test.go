/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gominimap/internal/diagram"
	"gominimap/internal/log"
	"gominimap/internal/minimap"
	"gominimap/internal/vector"
)

// sampleSnapshot builds a small diagram and returns what its minimap shows.
func sampleSnapshot(t *testing.T) minimap.Snapshot {
	t.Helper()
	c, m := diagram.New(diagram.CanvasOptions{Width: 800, Height: 600})
	mm := minimap.New(c, c.Registry(), c.EventBus(), minimap.Options{
		Open:          true,
		DebounceDelay: time.Hour,
		Logger:        log.Discard(),
	})
	defer mm.Destroy()

	a := diagram.NewShape("A", 0, 0, 400, 300)
	a.Label = "Start"
	if _, err := m.AddShape(a, nil); err != nil {
		t.Fatalf("add A: %v", err)
	}
	if _, err := m.AddShape(diagram.NewShape("B", 100, 100, 50, 50), a); err != nil {
		t.Fatalf("add B: %v", err)
	}
	if _, err := m.AddConnection(diagram.NewConnection("F", vector.Pt{X: 400, Y: 150}, vector.Pt{X: 700, Y: 150}), nil); err != nil {
		t.Fatalf("add F: %v", err)
	}
	mm.Update()
	return mm.Snapshot()
}

func TestWriteSVG(t *testing.T) {
	s := sampleSnapshot(t)
	var buf bytes.Buffer
	if err := WriteSVG(&buf, s, SVGOptions{Scale: 2}); err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`<?xml version="1.0"`,
		`xmlns="http://www.w3.org/2000/svg"`,
		`width="640px"`,
		`height="360px"`,
		`id="A"`,
		`id="B"`,
		`djs-minimap-background`,
		`stroke="#ff7400"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("svg lacks %s:\n%s", want, out)
		}
	}
	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("svg is not well-formed: %v", err)
		}
	}
	if s.SVG.GetAttr("xmlns") != "" {
		t.Fatalf("export modified the snapshot")
	}
}

func TestRenderPNG(t *testing.T) {
	s := sampleSnapshot(t)
	red := Color{R: 255, A: 255}
	img, err := RenderPNG(s, PNGOptions{Style: Style{ShapeFill: red}, Labels: true})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 180 {
		t.Fatalf("size = %v", b)
	}
	// A point inside A but away from B and the label.
	p := s.Mapper().ToPixel(vector.Pt{X: 320, Y: 250})
	c := img.RGBAAt(int(p.X), int(p.Y))
	if c.R < 200 || c.B > 60 {
		t.Fatalf("shape pixel = %+v", c)
	}
	corner := img.RGBAAt(1, 1)
	if corner.R < 200 || corner.G < 200 || corner.B < 200 {
		t.Fatalf("background pixel = %+v", corner)
	}

	var buf bytes.Buffer
	if err := WritePNG(&buf, s, PNGOptions{Scale: 0.5, Supersample: 2}); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	dec, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := dec.Bounds(); b.Dx() != 160 || b.Dy() != 90 {
		t.Fatalf("scaled size = %v", b)
	}
}

func TestRenderPNGRejectsOversizedOutput(t *testing.T) {
	s := sampleSnapshot(t)
	for _, opt := range []PNGOptions{
		{Scale: 1e300},
		{Scale: 1e17},
		{Scale: math.Inf(1)},
		{Scale: math.NaN()},
		{Scale: 1, Supersample: math.MaxInt},
		{Scale: 60},
	} {
		img, err := RenderPNG(s, opt)
		if err == nil || img != nil {
			t.Fatalf("scale %v supersample %d: expected an error", opt.Scale, opt.Supersample)
		}
		if errors.Is(err, ErrEmptySnapshot) {
			t.Fatalf("scale %v: oversized output reported as empty", opt.Scale)
		}
	}
}

func TestWritePDF(t *testing.T) {
	s := sampleSnapshot(t)
	var buf bytes.Buffer
	if err := WritePDF(&buf, s, PDFOptions{Title: "Sample", Labels: true}); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", buf.Bytes()[:min(16, buf.Len())])
	}
}

func TestWriteBundle(t *testing.T) {
	s := sampleSnapshot(t)
	stamp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	if err := WriteBundle(&buf, s, Options{Now: func() time.Time { return stamp }}); err != nil {
		t.Fatalf("WriteBundle: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	names := map[string]*zip.File{}
	for _, f := range zr.File {
		names[f.Name] = f
	}
	for _, n := range []string{"minimap.svg", "minimap.png", "minimap.pdf", "manifest.json"} {
		if names[n] == nil {
			t.Fatalf("bundle lacks %s", n)
		}
	}
	rc, err := names["manifest.json"].Open()
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	defer rc.Close()
	var man Manifest
	if err := json.NewDecoder(rc).Decode(&man); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if man.Elements != 3 || len(man.Files) != 3 || !man.Created.Equal(stamp) || len(man.Viewport) != 4 {
		t.Fatalf("manifest = %+v", man)
	}
}

func TestWriteFileByExtension(t *testing.T) {
	s := sampleSnapshot(t)
	dir := t.TempDir()
	for _, name := range []string{"a.svg", "nested/b.png", "c.PDF", "d.zip"} {
		path := filepath.Join(dir, name)
		if err := WriteFile(path, s, Options{}); err != nil {
			t.Fatalf("WriteFile %s: %v", name, err)
		}
		st, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if st.Size() <= 0 {
			t.Fatalf("%s empty", name)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
	if err := WriteFile(filepath.Join(dir, "x.gif"), s, Options{}); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestEmptySnapshot(t *testing.T) {
	var buf bytes.Buffer
	for _, f := range []Format{FormatSVG, FormatPNG, FormatPDF} {
		if err := Write(&buf, minimap.Snapshot{}, Options{Format: f}); !errors.Is(err, ErrEmptySnapshot) {
			t.Fatalf("%s: expected ErrEmptySnapshot, got %v", f, err)
		}
	}
}

func TestPresetDefaults(t *testing.T) {
	o := Options{Preset: PresetPrint}.resolve()
	if o.Scale != 4 || !*o.Labels {
		t.Fatalf("print preset = %+v", o)
	}
	off := false
	o = Options{Scale: 2, Labels: &off}.resolve()
	if o.Preset != PresetScreen || o.Scale != 2 || *o.Labels {
		t.Fatalf("explicit options = %+v", o)
	}
	if _, err := ParseFormat(" PNG "); err != nil {
		t.Fatalf("ParseFormat: %v", err)
	}
}
