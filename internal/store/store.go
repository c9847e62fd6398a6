/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store persists diagram documents and the minimap preview cache.
//
// Two backends share the Store interface: an embedded SQLite file (the
// default, CGO-free through modernc.org/sqlite) and a shared Postgres
// database reached through pgx. Only the SQLite store carries the preview
// cache; previews are local, derived data.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gominimap/internal/diagram"
)

// ErrNotFound is returned when no diagram has the requested id.
var ErrNotFound = errors.New("store: diagram not found")

// Diagram is one stored document revision.
type Diagram struct {
	ID      string
	Name    string
	Format  diagram.Format
	Data    []byte
	Version int64
	// UpdatedAt is set by the store on Put.
	UpdatedAt time.Time
}

// Summary is the listing form of a Diagram without its payload.
type Summary struct {
	ID        string
	Name      string
	Version   int64
	Size      int64
	UpdatedAt time.Time
}

// Store is implemented by the SQLite and Postgres backends.
type Store interface {
	// Put inserts or replaces the diagram and returns it with the new
	// version and timestamp. Versions start at 1 and grow by one per Put.
	Put(ctx context.Context, d Diagram) (Diagram, error)
	Get(ctx context.Context, id string) (Diagram, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// FromDocument encodes doc for storage. The id falls back to doc.ID and the
// name to the id.
func FromDocument(id string, doc *diagram.Document, format diagram.Format) (Diagram, error) {
	if doc == nil {
		return Diagram{}, errors.New("store: nil document")
	}
	if strings.TrimSpace(id) == "" {
		id = doc.ID
	}
	if strings.TrimSpace(id) == "" {
		return Diagram{}, errors.New("store: diagram id is required")
	}
	if format == "" {
		format = diagram.FormatJSON
	}
	data, err := doc.Encode(format)
	if err != nil {
		return Diagram{}, fmt.Errorf("encode document: %w", err)
	}
	name := doc.Name
	if name == "" {
		name = id
	}
	return Diagram{ID: id, Name: name, Format: format, Data: data}, nil
}

// Document decodes and validates the stored payload.
func (d Diagram) Document() (*diagram.Document, error) {
	doc, err := diagram.ParseDocument(d.Data)
	if err != nil {
		return nil, fmt.Errorf("diagram %s: %w", d.ID, err)
	}
	return doc, nil
}

func validateDiagram(d Diagram) error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("store: diagram id is required")
	}
	if len(d.Data) == 0 {
		return errors.New("store: diagram data is empty")
	}
	return nil
}
