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

// Package schema turns raw pipeline and topic trees into validated,
// immutable schema trees. Normalized nodes are shared by pointer across
// concurrent executions and are never mutated after construction; links
// across trees are by id only.
package schema

import (
	"github.com/rulego/topicflow/model"
)

// Parameter is the normalized value source. It is a closed data variant;
// the compile package lowers it into evaluators.
type Parameter struct {
	Kind model.ParameterKind

	// topic parameter
	TopicID  string
	FactorID string

	// constant parameter
	Value string

	// computed parameter
	Compute  model.ComputeType
	Children []*Parameter
}

// Expression is a single unary or binary predicate over parameters. Right
// is nil for unary operators.
type Expression struct {
	Left     *Parameter
	Operator model.ExpressionOperator
	Right    *Parameter
}

// Condition is either a joint or an expression, never both.
type Condition struct {
	Joint      *Joint
	Expression *Expression
}

// Joint aggregates conditions with And or Or. Filters is non-empty after
// normalization.
type Joint struct {
	Type    model.JointType
	Filters []*Condition
}

// MappingFactor is a normalized insert-row column mapping.
type MappingFactor struct {
	Source     *Parameter
	FactorID   string
	Arithmetic model.FactorArithmetic
}

// Action is the normalized action record. The populated fields depend on
// Type; each variant's shape was validated during normalization.
type Action struct {
	ActionID string
	Type     model.ActionType

	Source       *Parameter
	VariableName string

	TopicID string
	By      *Joint

	Mapping        []*MappingFactor
	AccumulateMode model.AccumulateMode

	Severity model.AlarmSeverity
	Message  string
	On       *Joint
}

// Unit is an ordered action program behind an optional gate. A nil On is
// an unconditional unit.
type Unit struct {
	UnitID string
	Name   string
	On     *Joint
	Do     []*Action
}

// Stage is an ordered list of units behind an optional gate.
type Stage struct {
	StageID string
	Name    string
	On      *Joint
	Units   []*Unit
}

// Pipeline is the normalized pipeline program.
type Pipeline struct {
	PipelineID string
	Name       string
	TopicID    string
	TenantID   string
	On         *Joint
	Enabled    bool
	Stages     []*Stage
}

// Topic is the normalized topic metadata.
type Topic struct {
	TopicID  string
	TenantID string
	Code     string
	Name     string
	Kind     model.TopicKind
	Factors  []*Factor

	byID   map[string]*Factor
	byName map[string]*Factor
}

// Factor is a normalized topic column.
type Factor struct {
	FactorID string
	Name     string
	Type     model.FactorType
}

// FactorByID resolves a factor by id.
func (t *Topic) FactorByID(factorID string) (*Factor, bool) {
	f, ok := t.byID[factorID]
	return f, ok
}

// FactorByName resolves a factor by name.
func (t *Topic) FactorByName(name string) (*Factor, bool) {
	f, ok := t.byName[name]
	return f, ok
}
