/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gominimap/internal/minimap"
)

var (
	// ErrEmptySnapshot is returned for snapshots without a size or markup.
	ErrEmptySnapshot = errors.New("export: empty snapshot")
	// ErrUnknownFormat is returned for unsupported output formats.
	ErrUnknownFormat = errors.New("export: unknown format")
)

// Format is an output format.
type Format string

const (
	FormatSVG    Format = "svg"
	FormatPNG    Format = "png"
	FormatPDF    Format = "pdf"
	FormatBundle Format = "zip"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSVG, FormatPNG, FormatPDF, FormatBundle:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// PresetName represents a named export preset.
type PresetName string

const (
	// PresetScreen renders at minimap size without labels.
	PresetScreen PresetName = "screen"
	// PresetPrint renders at four times the minimap size with labels.
	PresetPrint PresetName = "print"
)

// Options select the format and preset of an export. Zero fields take the
// preset's defaults; an empty preset is PresetScreen.
type Options struct {
	Preset PresetName
	Format Format
	Scale  float64
	Labels *bool
	Style  Style
	Title  string

	// Now stamps bundle manifests; time.Now when nil.
	Now func() time.Time
}

func (o Options) resolve() Options {
	if o.Preset == "" {
		o.Preset = PresetScreen
	}
	if o.Scale <= 0 {
		o.Scale = presetScale(o.Preset)
	}
	if o.Labels == nil {
		l := o.Preset == PresetPrint
		o.Labels = &l
	}
	return o
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) svg() SVGOptions { return SVGOptions{Style: o.Style, Scale: o.Scale} }
func (o Options) png() PNGOptions { return PNGOptions{Style: o.Style, Scale: o.Scale, Labels: *o.Labels} }
func (o Options) pdf() PDFOptions { return PDFOptions{Style: o.Style, Title: o.Title, Labels: *o.Labels} }

func presetScale(p PresetName) float64 {
	switch p {
	case PresetPrint:
		return 4
	default:
		return 1
	}
}

// Write exports the snapshot to w in opt.Format.
func Write(w io.Writer, s minimap.Snapshot, opt Options) error {
	opt = opt.resolve()
	switch opt.Format {
	case FormatSVG:
		return WriteSVG(w, s, opt.svg())
	case FormatPNG:
		return WritePNG(w, s, opt.png())
	case FormatPDF:
		return WritePDF(w, s, opt.pdf())
	case FormatBundle:
		return WriteBundle(w, s, opt)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, opt.Format)
}

// WriteFile exports the snapshot to path, creating parent directories. The
// format defaults to the one implied by the extension. The file is replaced
// atomically.
func WriteFile(path string, s minimap.Snapshot, opt Options) error {
	if opt.Format == "" {
		f, err := FormatForPath(path)
		if err != nil {
			return err
		}
		opt.Format = f
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := Write(tmp, s, opt); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
