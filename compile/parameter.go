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

package compile

import (
	"context"
	"strings"

	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/model"
	"github.com/rulego/topicflow/path"
	"github.com/rulego/topicflow/schema"
	"github.com/rulego/topicflow/value"
)

// FactorSource is implemented by compiled parameters that read a factor of
// the trigger row; copy-to-memory uses it to record variable provenance.
type FactorSource interface {
	SourceFactorName() (string, bool)
}

// CompileParameter lowers a normalized parameter into its evaluator.
func (c *Compiler) CompileParameter(ctx context.Context, p *schema.Parameter) (Parameter, error) {
	switch p.Kind {
	case model.ParameterKindTopic:
		return c.compileTopicParameter(ctx, p)
	case model.ParameterKindConstant:
		return compileConstant(p.Value)
	default:
		return c.compileComputed(ctx, p)
	}
}

// topicParameter reads a factor of a topic row: the candidate row inside a
// storage predicate, or the current trigger row when the parameter
// references the source topic.
type topicParameter struct {
	topicID    string
	topicCode  string
	factorName string
	namePath   path.DataPath
	fromSource bool
}

func (c *Compiler) compileTopicParameter(ctx context.Context, p *schema.Parameter) (Parameter, error) {
	topic := c.source
	fromSource := c.source != nil && p.TopicID == c.source.TopicID
	if !fromSource {
		resolved, err := c.topics.TopicByID(ctx, p.TopicID)
		if err != nil {
			return nil, err
		}
		topic = resolved
	}
	factor, ok := topic.FactorByID(p.FactorID)
	if !ok {
		return nil, kerrors.FactorNotFound(topic.Code, p.FactorID)
	}
	namePath, err := path.Parse(factor.Name)
	if err != nil {
		return nil, err
	}
	return &topicParameter{
		topicID:    topic.TopicID,
		topicCode:  topic.Code,
		factorName: factor.Name,
		namePath:   namePath,
		fromSource: fromSource,
	}, nil
}

func (p *topicParameter) ValueFrom(scope Scope) (value.Value, error) {
	if row, ok := scope.CandidateRow(p.topicID); ok {
		return traverse(row, p.namePath)
	}
	if p.fromSource {
		current, err := scope.CurrentData()
		if err != nil {
			return value.None(), err
		}
		return traverse(current, p.namePath)
	}
	return value.None(), kerrors.New(kerrors.CodeTopicNotFound,
		"factor[%s] of topic[%s] is not reachable in this scope", p.factorName, p.topicCode)
}

func (p *topicParameter) SourceFactorName() (string, bool) {
	return p.factorName, p.fromSource
}

// constantParameter is a literal string, optionally holding {path}
// placeholders resolved against the execution variables and the trigger
// row. A constant that is one single placeholder passes the resolved value
// through typed; otherwise placeholders render into the surrounding text.
type constantParameter struct {
	raw      string
	segments []templateSegment
}

type templateSegment struct {
	text        string
	placeholder path.DataPath
}

func compileConstant(raw string) (Parameter, error) {
	segments, err := parseTemplate(raw)
	if err != nil {
		return nil, err
	}
	return &constantParameter{raw: raw, segments: segments}, nil
}

// parseTemplate splits "prefix{a.b}suffix" into text and placeholder
// segments. A string without braces yields a single text segment.
func parseTemplate(raw string) ([]templateSegment, error) {
	var segments []templateSegment
	rest := raw
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if rest != "" {
				segments = append(segments, templateSegment{text: rest})
			}
			return segments, nil
		}
		clos := strings.IndexByte(rest[open:], '}')
		if clos < 0 {
			return nil, kerrors.PathParse(raw, len(raw)-len(rest)+open, len(raw))
		}
		clos += open
		if open > 0 {
			segments = append(segments, templateSegment{text: rest[:open]})
		}
		inner := strings.TrimSpace(rest[open+1 : clos])
		dp, err := path.Parse(inner)
		if err != nil {
			return nil, err
		}
		segments = append(segments, templateSegment{placeholder: dp})
		rest = rest[clos+1:]
	}
}

func (p *constantParameter) ValueFrom(scope Scope) (value.Value, error) {
	// plain constant, no placeholders
	if len(p.segments) == 1 && p.segments[0].placeholder == nil {
		return value.SV(p.raw), nil
	}
	// single placeholder keeps the resolved value's type
	if len(p.segments) == 1 {
		return resolvePlaceholder(scope, p.segments[0].placeholder)
	}
	var b strings.Builder
	for _, seg := range p.segments {
		if seg.placeholder == nil {
			b.WriteString(seg.text)
			continue
		}
		v, err := resolvePlaceholder(scope, seg.placeholder)
		if err != nil {
			return value.None(), err
		}
		if !v.IsNone() {
			b.WriteString(v.String())
		}
	}
	return value.SV(b.String()), nil
}

// resolvePlaceholder reads the path root from the execution variables
// first, then falls back to the current trigger row.
func resolvePlaceholder(scope Scope, dp path.DataPath) (value.Value, error) {
	root := dp[0].Name()
	if v, ok := scope.Variable(root); ok {
		if len(dp) == 1 {
			return v, nil
		}
		return traverse(v, dp[1:])
	}
	current, err := scope.CurrentData()
	if err != nil {
		return value.None(), err
	}
	return traverse(current, dp)
}

// computedParameter folds its children per the compute type.
type computedParameter struct {
	compute  model.ComputeType
	children []Parameter
}

func (c *Compiler) compileComputed(ctx context.Context, p *schema.Parameter) (Parameter, error) {
	children := make([]Parameter, 0, len(p.Children))
	for _, child := range p.Children {
		compiled, err := c.CompileParameter(ctx, child)
		if err != nil {
			return nil, err
		}
		children = append(children, compiled)
	}
	return &computedParameter{compute: p.Compute, children: children}, nil
}

func (p *computedParameter) ValueFrom(scope Scope) (value.Value, error) {
	switch p.compute {
	case model.ComputeTypeAdd:
		return p.fold(scope, value.Value.Add)
	case model.ComputeTypeSubtract:
		return p.fold(scope, value.Value.Sub)
	case model.ComputeTypeMultiply:
		return p.fold(scope, value.Value.Mul)
	case model.ComputeTypeModulus:
		return p.fold(scope, value.Value.Mod)
	case model.ComputeTypeDayOfMonth:
		return p.datePart(scope, value.Value.DayOfMonth)
	case model.ComputeTypeDayOfWeek:
		return p.datePart(scope, value.Value.DayOfWeek)
	case model.ComputeTypeWeekOfMonth:
		return p.datePart(scope, value.Value.WeekOfMonth)
	case model.ComputeTypeHalfYearOf:
		return p.datePart(scope, value.Value.HalfYearOf)
	default: // coalesce
		for _, child := range p.children {
			v, err := child.ValueFrom(scope)
			if err != nil {
				return value.None(), err
			}
			if !v.IsNone() {
				return v, nil
			}
		}
		return value.None(), nil
	}
}

// fold evaluates children left-to-right, seeding with the first value.
func (p *computedParameter) fold(scope Scope, op func(value.Value, value.Value) (value.Value, error)) (value.Value, error) {
	acc, err := p.children[0].ValueFrom(scope)
	if err != nil {
		return value.None(), err
	}
	for _, child := range p.children[1:] {
		next, err := child.ValueFrom(scope)
		if err != nil {
			return value.None(), err
		}
		acc, err = op(acc, next)
		if err != nil {
			return value.None(), err
		}
	}
	return acc, nil
}

func (p *computedParameter) datePart(scope Scope, op func(value.Value) (value.Value, error)) (value.Value, error) {
	v, err := p.children[0].ValueFrom(scope)
	if err != nil {
		return value.None(), err
	}
	return op(v)
}
