/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package diagram

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"gominimap/internal/vector"
)

//go:embed schema/diagram.schema.json
var documentSchema []byte

// Point is a waypoint in a document.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// PlaneDoc names a root.
type PlaneDoc struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ElementDoc is one element of a document. Parent is an element or plane id;
// empty means the main root.
type ElementDoc struct {
	ID        string  `json:"id" yaml:"id"`
	Type      string  `json:"type" yaml:"type"`
	Parent    string  `json:"parent,omitempty" yaml:"parent,omitempty"`
	X         float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y         float64 `json:"y,omitempty" yaml:"y,omitempty"`
	Width     float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Height    float64 `json:"height,omitempty" yaml:"height,omitempty"`
	Waypoints []Point `json:"waypoints,omitempty" yaml:"waypoints,omitempty"`
	Label     string  `json:"label,omitempty" yaml:"label,omitempty"`
}

// Document is the on-disk form of a diagram (JSON or YAML). Elements are
// listed parents first; sibling order is list order.
type Document struct {
	ID       string       `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string       `json:"name,omitempty" yaml:"name,omitempty"`
	Root     PlaneDoc     `json:"root" yaml:"root"`
	Planes   []PlaneDoc   `json:"planes,omitempty" yaml:"planes,omitempty"`
	Elements []ElementDoc `json:"elements" yaml:"elements"`
}

// Format of an encoded document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from the file extension, JSON by default.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func sniffFormat(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// ParseDocument decodes and validates a JSON or YAML document.
func ParseDocument(data []byte) (*Document, error) {
	format := sniffFormat(data)
	var generic any
	var err error
	if format == FormatJSON {
		err = json.Unmarshal(data, &generic)
	} else {
		err = yaml.Unmarshal(data, &generic)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidDocument, format, err)
	}
	if err := validate(generic); err != nil {
		return nil, err
	}
	var doc Document
	if format == FormatJSON {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Root.ID == "" {
		doc.Root.ID = "root"
	}
	return &doc, nil
}

func validate(v any) error {
	if v == nil {
		return fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(documentSchema), gojsonschema.NewGoLoader(v))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}
	return nil
}

// LoadDocument reads and parses a document file.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Encode serializes d in the given format.
func (d *Document) Encode(format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(d)
	}
	return json.MarshalIndent(d, "", "  ")
}

// Import replaces the canvas content with doc and fires import.done. Elements
// are added through m so every shape.added/connection.added is observable.
func Import(c *Canvas, m *Modeling, doc *Document) error {
	c.Clear()
	rootID := doc.Root.ID
	if rootID == "" {
		rootID = "root"
	}
	root := NewRoot(rootID)
	root.Label = doc.Root.Name
	if err := c.AddRoot(root); err != nil {
		return err
	}
	for _, p := range doc.Planes {
		plane := NewRoot(p.ID)
		plane.Label = p.Name
		if err := c.AddRoot(plane); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}
	c.SetRootElement(root)

	for _, ed := range doc.Elements {
		parent := root
		if ed.Parent != "" {
			parent = c.registry.Get(ed.Parent)
			if parent == nil {
				return fmt.Errorf("%w: element %q references unknown parent %q", ErrInvalidDocument, ed.ID, ed.Parent)
			}
		}
		e := &Element{ID: ed.ID, X: ed.X, Y: ed.Y, Width: ed.Width, Height: ed.Height, Label: ed.Label}
		if ed.Type == "connection" {
			e.Kind = KindConnection
			for _, p := range ed.Waypoints {
				e.Waypoints = append(e.Waypoints, vector.Pt{X: p.X, Y: p.Y})
			}
		}
		if err := m.add(e, parent, -1); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}
	c.bus.Fire(EventImportDone, &Event{Elements: c.registry.All()})
	return nil
}

// Export captures the canvas content as a document.
func Export(c *Canvas) *Document {
	doc := &Document{}
	roots := c.Roots()
	main := c.root
	if main == nil && len(roots) > 0 {
		main = roots[0]
	}
	if main != nil {
		doc.Root = PlaneDoc{ID: main.ID, Name: main.Label}
	}
	for _, r := range roots {
		if r != main {
			doc.Planes = append(doc.Planes, PlaneDoc{ID: r.ID, Name: r.Label})
		}
	}
	for _, r := range roots {
		for _, ch := range r.Children {
			ch.walk(func(e *Element) {
				ed := ElementDoc{ID: e.ID, Type: e.Kind.String(), Label: e.Label}
				if e.Parent != nil && e.Parent != main {
					ed.Parent = e.Parent.ID
				}
				if e.IsConnection() {
					for _, p := range e.Waypoints {
						ed.Waypoints = append(ed.Waypoints, Point{X: p.X, Y: p.Y})
					}
				} else {
					ed.X, ed.Y, ed.Width, ed.Height = e.X, e.Y, e.Width, e.Height
				}
				doc.Elements = append(doc.Elements, ed)
			})
		}
	}
	return doc
}

// New wires a registry, event bus, canvas and modeling together.
func New(opts CanvasOptions) (*Canvas, *Modeling) {
	bus := NewEventBus(nil)
	c := NewCanvas(bus, NewRegistry(), opts)
	return c, NewModeling(c)
}
