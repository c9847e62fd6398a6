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
	"fmt"
	"io"
	"time"

	"gominimap/internal/minimap"
	"gominimap/internal/version"
)

// Manifest describes the contents of a bundle.
type Manifest struct {
	Generator string    `json:"generator"`
	Created   time.Time `json:"created"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Elements  int       `json:"elements"`
	Viewport  []float64 `json:"viewport,omitempty"`
	Files     []string  `json:"files"`
}

// WriteBundle writes a ZIP archive holding the snapshot as SVG, PNG and PDF
// plus a manifest.json.
func WriteBundle(w io.Writer, s minimap.Snapshot, opt Options) error {
	opt = opt.resolve()
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"minimap.svg", func(w io.Writer) error { return WriteSVG(w, s, opt.svg()) }},
		{"minimap.png", func(w io.Writer) error { return WritePNG(w, s, opt.png()) }},
		{"minimap.pdf", func(w io.Writer) error { return WritePDF(w, s, opt.pdf()) }},
	}

	zw := zip.NewWriter(w)
	man := Manifest{
		Generator: "gominimap " + version.Version,
		Created:   opt.now().UTC(),
		Width:     s.Size.W,
		Height:    s.Size.H,
		Elements:  len(s.Elements),
	}
	if !s.Viewport.Empty() {
		man.Viewport = []float64{s.Viewport.X, s.Viewport.Y, s.Viewport.W, s.Viewport.H}
	}
	for _, f := range files {
		// Render fully before creating the entry so a failure leaves no
		// truncated file in the archive.
		var buf bytes.Buffer
		if err := f.write(&buf); err != nil {
			return fmt.Errorf("bundle %s: %w", f.name, err)
		}
		if err := addZipFile(zw, f.name, buf.Bytes(), man.Created); err != nil {
			return err
		}
		man.Files = append(man.Files, f.name)
	}

	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("bundle manifest: %w", err)
	}
	if err := addZipFile(zw, "manifest.json", data, man.Created); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close bundle: %w", err)
	}
	return nil
}

func addZipFile(zw *zip.Writer, name string, data []byte, mod time.Time) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: mod}
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("zip create %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("zip write %s: %w", name, err)
	}
	return nil
}
