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

// Package runtime drives trigger executions: each enabled pipeline of the
// triggered topic runs through its gate and stages against a fresh
// variable scope, and write actions cascade breadth-first into follow-up
// executions under the same trace.
package runtime

import (
	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/value"
)

// Variables is the per-execution scope: the trigger rows plus the named
// variables written by copy-to-memory and read actions. It is never shared
// across executions.
type Variables struct {
	current    value.Value
	hasCurrent bool
	previous   value.Value
	hasPrev    bool
	vars       map[string]value.Value
	varFrom    map[string]string
}

// NewVariables builds the scope for one execution from the trigger rows.
// A nil row means the trigger carried none of that side.
func NewVariables(previous, current map[string]interface{}) (*Variables, error) {
	v := &Variables{
		vars:    map[string]value.Value{},
		varFrom: map[string]string{},
	}
	if previous != nil {
		prev, err := value.FromRow(previous)
		if err != nil {
			return nil, err
		}
		v.previous = prev
		v.hasPrev = true
	}
	if current != nil {
		cur, err := value.FromRow(current)
		if err != nil {
			return nil, err
		}
		v.current = cur
		v.hasCurrent = true
	}
	return v, nil
}

// CurrentData returns the current trigger row.
func (v *Variables) CurrentData() (value.Value, error) {
	if !v.hasCurrent {
		return value.None(), kerrors.CurrentDataNotFound()
	}
	return v.current, nil
}

// PreviousData returns the previous trigger row if the trigger carried
// one.
func (v *Variables) PreviousData() (value.Value, bool) {
	return v.previous, v.hasPrev
}

// Variable reads a named variable.
func (v *Variables) Variable(name string) (value.Value, bool) {
	val, ok := v.vars[name]
	return val, ok
}

// SetVariable writes a named variable, overwriting any earlier value.
func (v *Variables) SetVariable(name string, val value.Value) {
	v.vars[name] = val
}

// RecordVariableFrom notes the trigger factor a variable was copied from.
func (v *Variables) RecordVariableFrom(variable, factorName string) {
	v.varFrom[variable] = factorName
}

// VariableFrom returns the trigger factor a variable was copied from.
func (v *Variables) VariableFrom(variable string) (string, bool) {
	factor, ok := v.varFrom[variable]
	return factor, ok
}

// CandidateRow always misses on the plain scope; predicate evaluation
// layers candidates on top.
func (v *Variables) CandidateRow(string) (value.Value, bool) {
	return value.Value{}, false
}

// SnapshotVariables renders the variables into plain Go values.
func (v *Variables) SnapshotVariables() map[string]interface{} {
	out := make(map[string]interface{}, len(v.vars))
	for name, val := range v.vars {
		out[name] = val.ToAny()
	}
	return out
}

// Clone copies the scope so sibling pipelines never observe each other's
// variables.
func (v *Variables) Clone() *Variables {
	vars := make(map[string]value.Value, len(v.vars))
	for name, val := range v.vars {
		vars[name] = val
	}
	varFrom := make(map[string]string, len(v.varFrom))
	for name, factor := range v.varFrom {
		varFrom[name] = factor
	}
	return &Variables{
		current:    v.current,
		hasCurrent: v.hasCurrent,
		previous:   v.previous,
		hasPrev:    v.hasPrev,
		vars:       vars,
		varFrom:    varFrom,
	}
}
