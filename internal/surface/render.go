/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package surface

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// WriteMarkup serializes n and its subtree. A document node writes only its
// children. Elements without children are written with an explicit end tag,
// which keeps the output well-formed XML.
func WriteMarkup(w io.Writer, n *Node) error {
	return html.Render(w, n.HTML())
}

// String returns the markup of n.
func (n *Node) String() string {
	var b strings.Builder
	_ = WriteMarkup(&b, n)
	return b.String()
}
