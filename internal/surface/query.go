/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package surface

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
)

// ErrSelector is returned for selectors cascadia cannot parse.
var ErrSelector = errors.New("surface: invalid selector")

// Compile parses a CSS selector group.
func Compile(sel string) (cascadia.Selector, error) {
	s, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSelector, sel, err)
	}
	return s, nil
}

// Query returns the first descendant of n (document order) matching sel, or
// nil. Invalid selectors match nothing.
func (n *Node) Query(sel string) *Node {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	return wrap(cascadia.Query(n.HTML(), s))
}

// QueryAll returns every descendant of n matching sel in document order.
func (n *Node) QueryAll(sel string) []*Node {
	s, err := Compile(sel)
	if err != nil {
		return nil
	}
	found := cascadia.QueryAll(n.HTML(), s)
	out := make([]*Node, len(found))
	for i, h := range found {
		out[i] = wrap(h)
	}
	return out
}

// EscapeIdent escapes s for use as an identifier in a selector (#id, .class),
// following the CSS serialization rules: leading digits and control characters
// become hex escapes, other non-identifier characters get a backslash. NUL
// has no escape and becomes U+FFFD, so ids containing it cannot be looked up.
func EscapeIdent(s string) string {
	var b strings.Builder
	first := rune(-1)
	i := 0
	for _, r := range s {
		switch {
		case r == 0:
			b.WriteRune(utf8.RuneError)
		case (r >= 0x1 && r <= 0x1f) || r == 0x7f:
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 0 && r >= '0' && r <= '9':
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 1 && first == '-' && r >= '0' && r <= '9':
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 0 && r == '-' && utf8.RuneCountInString(s) == 1:
			b.WriteString("\\-")
		case r >= 0x80 || r == '-' || r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
		if i == 0 {
			first = r
		}
		i++
	}
	return b.String()
}
