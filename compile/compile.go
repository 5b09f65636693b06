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

// Package compile lowers normalized schema trees into evaluators. Compiled
// parameters implement ValueFrom, conditions implement IsTrue and IsFalse,
// actions implement Run. Compilation resolves topic factors once; evaluation
// is strictly synchronous except where actions cross the storage seam.
package compile

import (
	"context"

	"github.com/rulego/topicflow/model"
	"github.com/rulego/topicflow/schema"
	"github.com/rulego/topicflow/storage"
	"github.com/rulego/topicflow/value"
)

// Scope is the read/write window onto one execution's variables. The
// runtime's variable scope implements it; predicate evaluation wraps it
// with a candidate row.
type Scope interface {
	// CurrentData returns the current trigger row; it fails with a
	// current-data-not-found error when the trigger carried none.
	CurrentData() (value.Value, error)
	// PreviousData returns the previous trigger row if present.
	PreviousData() (value.Value, bool)
	// Variable reads a named execution variable.
	Variable(name string) (value.Value, bool)
	// SetVariable writes a named execution variable.
	SetVariable(name string, v value.Value)
	// RecordVariableFrom notes which trigger factor a variable came from,
	// used for error reporting.
	RecordVariableFrom(variable, factorName string)
	// CandidateRow returns the row under predicate test for the given
	// topic, when evaluation happens inside a storage predicate.
	CandidateRow(topicID string) (value.Value, bool)
	// SnapshotVariables renders the variables into plain Go values.
	SnapshotVariables() map[string]interface{}
}

// Parameter is a compiled value source.
type Parameter interface {
	// ValueFrom computes the parameter's value against the scope.
	ValueFrom(scope Scope) (value.Value, error)
}

// Condition is a compiled predicate. IsTrue and IsFalse are both explicit
// because ternary semantics around none differ; neither is implemented as
// the bare negation of the other.
type Condition interface {
	IsTrue(scope Scope) (bool, error)
	IsFalse(scope Scope) (bool, error)
}

// AlarmEvent is emitted by alarm actions.
type AlarmEvent struct {
	Severity model.AlarmSeverity
	Message  string
	ActionID string
}

// TopicChange is the logical "topic changed" event produced by write
// actions; the runtime may cascade it into follow-up triggers.
type TopicChange struct {
	Topic    *schema.Topic
	Previous storage.Row
	Current  storage.Row
}

// Env is the world an action runs against.
type Env struct {
	Scope Scope
	Store storage.Store
	// OnAlarm receives alarm events; nil drops them.
	OnAlarm func(AlarmEvent)
	// OnChange receives topic-changed events; nil drops them.
	OnChange func(TopicChange)
}

// Action is a compiled action executor.
type Action interface {
	Type() model.ActionType
	ID() string
	Run(ctx context.Context, env *Env) error
}

// TopicResolver resolves topic schemas by id during compilation. Misses
// may suspend on metadata loading.
type TopicResolver interface {
	TopicByID(ctx context.Context, topicID string) (*schema.Topic, error)
}

// Compiler lowers one pipeline attached to a source topic.
type Compiler struct {
	source *schema.Topic
	topics TopicResolver
}

// NewCompiler creates a compiler for pipelines attached to the source
// topic.
func NewCompiler(source *schema.Topic, topics TopicResolver) *Compiler {
	return &Compiler{source: source, topics: topics}
}

// Pipeline is the compiled pipeline program. The underlying schema tree is
// shared read-only; the program holds evaluators in schema order.
type Pipeline struct {
	Schema *schema.Pipeline
	Source *schema.Topic
	Gate   Condition
	Stages []*StageProgram
}

// StageProgram is a compiled stage.
type StageProgram struct {
	Schema *schema.Stage
	Gate   Condition
	Units  []*UnitProgram
}

// UnitProgram is a compiled unit.
type UnitProgram struct {
	Schema  *schema.Unit
	Gate    Condition
	Actions []Action
}

// CompilePipeline lowers a normalized pipeline into its executable
// program.
func (c *Compiler) CompilePipeline(ctx context.Context, p *schema.Pipeline) (*Pipeline, error) {
	compiled := &Pipeline{Schema: p, Source: c.source}
	if p.On != nil {
		gate, err := c.CompileJoint(ctx, p.On)
		if err != nil {
			return nil, err
		}
		compiled.Gate = gate
	}
	for _, stage := range p.Stages {
		sp := &StageProgram{Schema: stage}
		if stage.On != nil {
			gate, err := c.CompileJoint(ctx, stage.On)
			if err != nil {
				return nil, err
			}
			sp.Gate = gate
		}
		for _, unit := range stage.Units {
			up := &UnitProgram{Schema: unit}
			if unit.On != nil {
				gate, err := c.CompileJoint(ctx, unit.On)
				if err != nil {
					return nil, err
				}
				up.Gate = gate
			}
			for _, action := range unit.Do {
				compiledAction, err := c.CompileAction(ctx, action)
				if err != nil {
					return nil, err
				}
				up.Actions = append(up.Actions, compiledAction)
			}
			sp.Units = append(sp.Units, up)
		}
		compiled.Stages = append(compiled.Stages, sp)
	}
	return compiled, nil
}
