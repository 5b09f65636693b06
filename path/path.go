/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package path parses dotted factor paths such as "order.items.price",
// "count(items)" or "concat(a, '-', b)" into a typed path tree. Parsed
// segments retain their originating substrings so error messages can quote
// the source slice, and the parser is restartable from a supplied index.
package path

import (
	"strings"

	"github.com/rulego/topicflow/value"
)

// Segment is one element of a dotted path: a plain identifier or a function
// call with parameter parts.
type Segment interface {
	// Name returns the identifier of the segment.
	Name() string
	// render writes the source form of the segment.
	render(b *strings.Builder)
}

// DataPath is an ordered, non-empty list of segments.
type DataPath []Segment

// String renders the path back into its source form. For any accepted path,
// re-parsing the rendered string yields an equal path tree.
func (p DataPath) String() string {
	var b strings.Builder
	for i, seg := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		seg.render(&b)
	}
	return b.String()
}

// Names returns the segment identifiers in order.
func (p DataPath) Names() []string {
	names := make([]string, 0, len(p))
	for _, seg := range p {
		names = append(names, seg.Name())
	}
	return names
}

// PlainSegment is a bare identifier segment.
type PlainSegment struct {
	Ident string
}

// Name returns the identifier.
func (s PlainSegment) Name() string { return s.Ident }

func (s PlainSegment) render(b *strings.Builder) {
	b.WriteString(s.Ident)
}

// FuncSegment is a function-call segment, e.g. count(items).
type FuncSegment struct {
	Ident  string
	Params []FuncParam
}

// Name returns the function name.
func (s FuncSegment) Name() string { return s.Ident }

func (s FuncSegment) render(b *strings.Builder) {
	b.WriteString(s.Ident)
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		p.Part.render(b)
	}
	b.WriteByte(')')
}

// FuncParam is one parameter of a function segment. Source is the verbatim
// substring the part was parsed from.
type FuncParam struct {
	Source string
	Part   Part
}

// Part is a function parameter body: a literal value or a nested path.
type Part interface {
	render(b *strings.Builder)
}

// LiteralPart is a literal function parameter: a quoted string or an
// unquoted numeric, boolean, date, time or datetime.
type LiteralPart struct {
	Value value.Value
}

func (p LiteralPart) render(b *strings.Builder) {
	if p.Value.Kind() == value.KindStr {
		b.WriteByte('\'')
		b.WriteString(p.Value.Str())
		b.WriteByte('\'')
		return
	}
	b.WriteString(p.Value.String())
}

// PathPart is a nested path function parameter.
type PathPart struct {
	Path DataPath
}

func (p PathPart) render(b *strings.Builder) {
	b.WriteString(p.Path.String())
}
