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

// Package model holds the raw, externally-supplied pipeline and topic trees
// as they arrive over the wire, many fields optional. The schema package
// validates them into the immutable internal form; nothing in this package
// is trusted before normalization.
package model

// Topic is a tenant-scoped, named record table.
type Topic struct {
	TopicID  string    `json:"topicId"`
	TenantID string    `json:"tenantId"`
	Code     string    `json:"code"`
	Name     string    `json:"name,omitempty"`
	Kind     TopicKind `json:"kind"`
	Factors  []*Factor `json:"factors"`
}

// FactorByID resolves a declared factor by id.
func (t *Topic) FactorByID(factorID string) *Factor {
	for _, f := range t.Factors {
		if f.FactorID == factorID {
			return f
		}
	}
	return nil
}

// Factor is a typed, named column of a topic. Structured factors (object,
// array) nest further values.
type Factor struct {
	FactorID string     `json:"factorId"`
	Name     string     `json:"name"`
	Type     FactorType `json:"type"`
}

// Parameter is the raw tagged value source: a topic factor reference, a
// constant, or a computed sub-tree. Which fields matter depends on Kind.
type Parameter struct {
	Kind ParameterKind `json:"kind"`

	// topic parameter
	TopicID  string `json:"topicId,omitempty"`
	FactorID string `json:"factorId,omitempty"`

	// constant parameter
	Value string `json:"value,omitempty"`

	// computed parameter
	Type       ComputeType  `json:"type,omitempty"`
	Parameters []*Parameter `json:"parameters,omitempty"`
}

// Condition is the raw variant of a parameter condition: a joint when
// JointType or Filters is present, an expression otherwise.
type Condition struct {
	// joint
	JointType string       `json:"jointType,omitempty"`
	Filters   []*Condition `json:"filters,omitempty"`

	// expression
	Left     *Parameter `json:"left,omitempty"`
	Operator string     `json:"operator,omitempty"`
	Right    *Parameter `json:"right,omitempty"`
}

// IsJoint reports whether the raw condition should normalize as a joint.
func (c *Condition) IsJoint() bool {
	return c.JointType != "" || len(c.Filters) > 0
}

// MappingFactor maps an evaluated source value onto a target factor for
// insert-row actions.
type MappingFactor struct {
	Source     *Parameter `json:"source"`
	FactorID   string     `json:"factorId"`
	Arithmetic string     `json:"arithmetic,omitempty"`
}

// Action is the raw flat action record; the populated fields depend on
// Type and are validated per variant at normalization.
type Action struct {
	ActionID string `json:"actionId"`
	Type     string `json:"type"`

	// copy-to-memory
	Source *Parameter `json:"source,omitempty"`

	// copy-to-memory, read-row, read-rows, exists
	VariableName string `json:"variableName,omitempty"`

	// read/write targets
	TopicID string     `json:"topicId,omitempty"`
	By      *Condition `json:"by,omitempty"`

	// insert-row
	Mapping        []*MappingFactor `json:"mapping,omitempty"`
	AccumulateMode string           `json:"accumulateMode,omitempty"`

	// alarm
	Severity    string     `json:"severity,omitempty"`
	Message     string     `json:"message,omitempty"`
	Conditional bool       `json:"conditional,omitempty"`
	On          *Condition `json:"on,omitempty"`
}

// Unit is an ordered list of actions behind an optional gate.
type Unit struct {
	UnitID      string     `json:"unitId"`
	Name        string     `json:"name,omitempty"`
	Conditional bool       `json:"conditional,omitempty"`
	On          *Condition `json:"on,omitempty"`
	Do          []*Action  `json:"do"`
}

// Stage is an ordered list of units behind an optional gate.
type Stage struct {
	StageID     string     `json:"stageId"`
	Name        string     `json:"name,omitempty"`
	Conditional bool       `json:"conditional,omitempty"`
	On          *Condition `json:"on,omitempty"`
	Units       []*Unit    `json:"units"`
}

// Pipeline is an ordered program of stages attached to a source topic,
// guarded by an optional condition joint.
type Pipeline struct {
	PipelineID  string     `json:"pipelineId"`
	Name        string     `json:"name"`
	TopicID     string     `json:"topicId"`
	TenantID    string     `json:"tenantId"`
	Conditional bool       `json:"conditional,omitempty"`
	On          *Condition `json:"on,omitempty"`
	Enabled     bool       `json:"enabled"`
	Stages      []*Stage   `json:"stages"`
}

// KeyStoreParams is the result of a key-store lookup.
type KeyStoreParams struct {
	KeyType string            `json:"keyType"`
	KeyKey  string            `json:"keyKey,omitempty"`
	Params  map[string]string `json:"params"`
}
