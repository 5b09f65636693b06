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

package path

import (
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/value"
)

// parser walks the character buffer with an explicit cursor. allChars is
// the immutable char view of the source; inMemoryChars accumulates the
// current token; tokenStart marks where the current token began so blank
// emissions can report their exact [start,end) offsets.
type parser struct {
	source        string
	allChars      []rune
	charIndex     int
	limit         int
	inMemoryChars []rune
	tokenStart    int
}

// Parse parses a complete factor path.
func Parse(path string) (DataPath, error) {
	return ParseFrom(path, 0)
}

// ParseFrom parses a factor path starting at the given char index. The
// remainder of the string must form a complete path.
func ParseFrom(path string, start int) (DataPath, error) {
	chars := []rune(path)
	if start < 0 || start > len(chars) {
		return nil, kerrors.PathParse(path, start, start)
	}
	p := &parser{
		source:   path,
		allChars: chars,
		limit:    len(chars),
	}
	p.charIndex = start
	p.tokenStart = start
	return p.parsePath()
}

func (p *parser) eof() bool {
	return p.charIndex >= p.limit
}

func (p *parser) cur() rune {
	return p.allChars[p.charIndex]
}

func (p *parser) resetToken() {
	p.inMemoryChars = p.inMemoryChars[:0]
	p.tokenStart = p.charIndex
}

// emitPlain flushes the accumulating buffer as a plain segment. A blank
// emission between delimiters is malformed and reports the offending range.
func (p *parser) emitPlain() (PlainSegment, error) {
	if len(p.inMemoryChars) == 0 {
		return PlainSegment{}, kerrors.PathParse(p.source, p.tokenStart, p.charIndex)
	}
	return PlainSegment{Ident: string(p.inMemoryChars)}, nil
}

// parsePath consumes segments until the limit. '.' terminates a plain
// segment, '(' opens a function segment whose body is parsed recursively.
func (p *parser) parsePath() (DataPath, error) {
	var segs DataPath
	p.resetToken()
	for {
		if p.eof() {
			seg, err := p.emitPlain()
			if err != nil {
				return nil, err
			}
			return append(segs, seg), nil
		}
		switch ch := p.cur(); {
		case ch == '.':
			seg, err := p.emitPlain()
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg)
			p.charIndex++
			p.resetToken()
		case ch == '(':
			if len(p.inMemoryChars) == 0 {
				return nil, kerrors.PathParse(p.source, p.tokenStart, p.charIndex)
			}
			name := string(p.inMemoryChars)
			p.charIndex++
			params, err := p.parseFuncParams()
			if err != nil {
				return nil, err
			}
			segs = append(segs, FuncSegment{Ident: name, Params: params})
			if p.eof() {
				return segs, nil
			}
			if p.cur() != '.' {
				return nil, kerrors.PathParse(p.source, p.charIndex, p.charIndex+1)
			}
			p.charIndex++
			p.resetToken()
			// a trailing '.' after a function segment is a blank emission
			if p.eof() {
				return nil, kerrors.PathParse(p.source, p.tokenStart, p.charIndex)
			}
		case unicode.IsSpace(ch):
			return nil, kerrors.PathParse(p.source, p.charIndex, p.charIndex+1)
		case ch == ',' || ch == ')' || ch == '\'' || ch == '"':
			return nil, kerrors.PathParse(p.source, p.charIndex, p.charIndex+1)
		default:
			p.inMemoryChars = append(p.inMemoryChars, ch)
			p.charIndex++
		}
	}
}

// parseFuncParams parses a function body after the opening paren, through
// the matching close paren. Parts split on top-level commas.
func (p *parser) parseFuncParams() ([]FuncParam, error) {
	if !p.eof() && p.cur() == ')' {
		p.charIndex++
		return nil, nil
	}
	var params []FuncParam
	for {
		start, end, closed, err := p.scanPartExtent()
		if err != nil {
			return nil, err
		}
		param, err := p.classifyPart(start, end)
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		if closed {
			return params, nil
		}
	}
}

// scanPartExtent walks one parameter part, honoring nested parens and
// quoted strings, and consumes the terminating ',' or ')'. closed reports
// that the terminator was the close paren of this function.
func (p *parser) scanPartExtent() (start, end int, closed bool, _ error) {
	start = p.charIndex
	depth := 0
	for {
		if p.eof() {
			// unbalanced parentheses
			return 0, 0, false, kerrors.PathParse(p.source, start, p.limit)
		}
		switch ch := p.cur(); ch {
		case '\'', '"':
			if err := p.skipQuoted(ch); err != nil {
				return 0, 0, false, err
			}
		case '(':
			depth++
			p.charIndex++
		case ')':
			if depth == 0 {
				end = p.charIndex
				p.charIndex++
				return start, end, true, nil
			}
			depth--
			p.charIndex++
		case ',':
			if depth == 0 {
				end = p.charIndex
				p.charIndex++
				return start, end, false, nil
			}
			p.charIndex++
		default:
			p.charIndex++
		}
	}
}

// skipQuoted consumes a quoted string including its closing quote.
func (p *parser) skipQuoted(quote rune) error {
	quoteStart := p.charIndex
	p.charIndex++
	for !p.eof() {
		if p.cur() == quote {
			p.charIndex++
			return nil
		}
		p.charIndex++
	}
	return kerrors.PathParse(p.source, quoteStart, p.limit)
}

// classifyPart turns the scanned extent into a literal or nested-path part.
// Leading and trailing whitespace around a part is tolerated; a blank part
// between delimiters is malformed.
func (p *parser) classifyPart(start, end int) (FuncParam, error) {
	ts, te := start, end
	for ts < te && unicode.IsSpace(p.allChars[ts]) {
		ts++
	}
	for te > ts && unicode.IsSpace(p.allChars[te-1]) {
		te--
	}
	if ts == te {
		return FuncParam{}, kerrors.PathParse(p.source, start, end)
	}
	source := string(p.allChars[start:end])
	raw := string(p.allChars[ts:te])

	if first := p.allChars[ts]; first == '\'' || first == '"' {
		if te-ts < 2 || p.allChars[te-1] != first {
			return FuncParam{}, kerrors.PathParse(p.source, ts, te)
		}
		inner := string(p.allChars[ts+1 : te-1])
		return FuncParam{Source: source, Part: LiteralPart{Value: value.SV(inner)}}, nil
	}
	switch raw {
	case "true":
		return FuncParam{Source: source, Part: LiteralPart{Value: value.BV(true)}}, nil
	case "false":
		return FuncParam{Source: source, Part: LiteralPart{Value: value.BV(false)}}, nil
	}
	if v, ok := value.ParseDate(raw); ok {
		return FuncParam{Source: source, Part: LiteralPart{Value: v}}, nil
	}
	if v, ok := value.ParseTime(raw); ok {
		return FuncParam{Source: source, Part: LiteralPart{Value: v}}, nil
	}
	if v, ok := value.ParseDateTime(raw); ok {
		return FuncParam{Source: source, Part: LiteralPart{Value: v}}, nil
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		return FuncParam{Source: source, Part: LiteralPart{Value: value.NV(d)}}, nil
	}

	sub := &parser{source: p.source, allChars: p.allChars, limit: te}
	sub.charIndex = ts
	sub.tokenStart = ts
	dp, err := sub.parsePath()
	if err != nil {
		return FuncParam{}, err
	}
	return FuncParam{Source: source, Part: PathPart{Path: dp}}, nil
}
