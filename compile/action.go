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
	"fmt"
	"sync"

	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/model"
	"github.com/rulego/topicflow/schema"
	"github.com/rulego/topicflow/storage"
	"github.com/rulego/topicflow/value"
)

// ActionCompiler lowers one normalized action of its registered type.
type ActionCompiler func(ctx context.Context, c *Compiler, a *schema.Action) (Action, error)

var (
	actionMu        sync.RWMutex
	actionCompilers = map[model.ActionType]ActionCompiler{}
)

// RegisterActionCompiler registers a compiler for an action type.
// Registering a type twice is an error.
func RegisterActionCompiler(typ model.ActionType, fn ActionCompiler) error {
	actionMu.Lock()
	defer actionMu.Unlock()
	if _, exists := actionCompilers[typ]; exists {
		return fmt.Errorf("action compiler %s already registered", typ)
	}
	actionCompilers[typ] = fn
	return nil
}

func init() {
	_ = RegisterActionCompiler(model.ActionCopyToMemory, compileCopyToMemory)
	_ = RegisterActionCompiler(model.ActionReadRow, compileReadRow)
	_ = RegisterActionCompiler(model.ActionReadRows, compileReadRows)
	_ = RegisterActionCompiler(model.ActionExists, compileExists)
	_ = RegisterActionCompiler(model.ActionInsertRow, compileInsertRow)
	_ = RegisterActionCompiler(model.ActionDeleteRow, compileDeleteRow)
	_ = RegisterActionCompiler(model.ActionDeleteRows, compileDeleteRows)
	_ = RegisterActionCompiler(model.ActionAlarm, compileAlarm)
}

// CompileAction lowers a normalized action through the registry.
func (c *Compiler) CompileAction(ctx context.Context, a *schema.Action) (Action, error) {
	actionMu.RLock()
	fn, ok := actionCompilers[a.Type]
	actionMu.RUnlock()
	if !ok {
		return nil, kerrors.StrEnumParse("action type", string(a.Type))
	}
	return fn(ctx, c, a)
}

// baseAction carries the identity every executor shares.
type baseAction struct {
	id  string
	typ model.ActionType
}

func (b baseAction) ID() string             { return b.id }
func (b baseAction) Type() model.ActionType { return b.typ }

// copyToMemoryAction evaluates its source and stores the value under the
// variable name. Provenance is recorded when the source is a factor of
// the trigger topic, so later errors can name the originating factor.
type copyToMemoryAction struct {
	baseAction
	source   Parameter
	variable string
}

func compileCopyToMemory(ctx context.Context, c *Compiler, a *schema.Action) (Action, error) {
	source, err := c.CompileParameter(ctx, a.Source)
	if err != nil {
		return nil, err
	}
	return &copyToMemoryAction{
		baseAction: baseAction{id: a.ActionID, typ: a.Type},
		source:     source,
		variable:   a.VariableName,
	}, nil
}

func (a *copyToMemoryAction) Run(ctx context.Context, env *Env) error {
	v, err := a.source.ValueFrom(env.Scope)
	if err != nil {
		return err
	}
	env.Scope.SetVariable(a.variable, v)
	if fs, ok := a.source.(FactorSource); ok {
		if factorName, fromTrigger := fs.SourceFactorName(); fromTrigger {
			env.Scope.RecordVariableFrom(a.variable, factorName)
		}
	}
	return nil
}

// queryAction is the shared shape of the read and delete executors: a
// target topic and a compiled match condition.
type queryAction struct {
	baseAction
	topic    *schema.Topic
	by       Condition
	variable string
}

func (c *Compiler) compileQuery(ctx context.Context, a *schema.Action) (*queryAction, error) {
	topic, err := c.resolveTopic(ctx, a.TopicID)
	if err != nil {
		return nil, err
	}
	q := &queryAction{
		baseAction: baseAction{id: a.ActionID, typ: a.Type},
		topic:      topic,
		variable:   a.VariableName,
	}
	if a.By != nil {
		by, err := c.CompileJoint(ctx, a.By)
		if err != nil {
			return nil, err
		}
		q.by = by
	}
	return q, nil
}

// resolveTopic returns the source topic without a metadata round trip
// when the id matches, otherwise asks the resolver.
func (c *Compiler) resolveTopic(ctx context.Context, topicID string) (*schema.Topic, error) {
	if c.source != nil && c.source.TopicID == topicID {
		return c.source, nil
	}
	return c.topics.TopicByID(ctx, topicID)
}

// predicate builds the storage predicate for the query's condition. A nil
// condition matches every row.
func (q *queryAction) predicate(scope Scope) storage.Predicate {
	if q.by == nil {
		return func(storage.Row) (bool, error) { return true, nil }
	}
	return RowPredicate(q.by, scope, q.topic.TopicID)
}

type readRowAction struct{ queryAction }

func compileReadRow(ctx context.Context, c *Compiler, a *schema.Action) (Action, error) {
	q, err := c.compileQuery(ctx, a)
	if err != nil {
		return nil, err
	}
	return &readRowAction{queryAction: *q}, nil
}

func (a *readRowAction) Run(ctx context.Context, env *Env) error {
	row, found, err := env.Store.FindOne(ctx, a.topic, a.predicate(env.Scope))
	if err != nil {
		return err
	}
	if !found {
		env.Scope.SetVariable(a.variable, value.None())
		return nil
	}
	v, err := value.FromRow(row)
	if err != nil {
		return err
	}
	env.Scope.SetVariable(a.variable, v)
	return nil
}

type readRowsAction struct{ queryAction }

func compileReadRows(ctx context.Context, c *Compiler, a *schema.Action) (Action, error) {
	q, err := c.compileQuery(ctx, a)
	if err != nil {
		return nil, err
	}
	return &readRowsAction{queryAction: *q}, nil
}

func (a *readRowsAction) Run(ctx context.Context, env *Env) error {
	rows, err := env.Store.FindMany(ctx, a.topic, a.predicate(env.Scope))
	if err != nil {
		return err
	}
	items := make([]value.Value, 0, len(rows))
	for _, row := range rows {
		v, err := value.FromRow(row)
		if err != nil {
			return err
		}
		items = append(items, v)
	}
	env.Scope.SetVariable(a.variable, value.VV(items))
	return nil
}

type existsAction struct{ queryAction }

func compileExists(ctx context.Context, c *Compiler, a *schema.Action) (Action, error) {
	q, err := c.compileQuery(ctx, a)
	if err != nil {
		return nil, err
	}
	return &existsAction{queryAction: *q}, nil
}

func (a *existsAction) Run(ctx context.Context, env *Env) error {
	found, err := env.Store.Exists(ctx, a.topic, a.predicate(env.Scope))
	if err != nil {
		return err
	}
	env.Scope.SetVariable(a.variable, value.BV(found))
	return nil
}

type deleteRowAction struct{ queryAction }

func compileDeleteRow(ctx context.Context, c *Compiler, a *schema.Action) (Action, error) {
	q, err := c.compileQuery(ctx, a)
	if err != nil {
		return nil, err
	}
	return &deleteRowAction{queryAction: *q}, nil
}

func (a *deleteRowAction) Run(ctx context.Context, env *Env) error {
	row, err := env.Store.DeleteOne(ctx, a.topic, a.predicate(env.Scope))
	if err != nil {
		return err
	}
	if env.OnChange != nil {
		env.OnChange(TopicChange{Topic: a.topic, Previous: row})
	}
	return nil
}

type deleteRowsAction struct{ queryAction }

func compileDeleteRows(ctx context.Context, c *Compiler, a *schema.Action) (Action, error) {
	q, err := c.compileQuery(ctx, a)
	if err != nil {
		return nil, err
	}
	return &deleteRowsAction{queryAction: *q}, nil
}

func (a *deleteRowsAction) Run(ctx context.Context, env *Env) error {
	rows, err := env.Store.DeleteMany(ctx, a.topic, a.predicate(env.Scope))
	if err != nil {
		return err
	}
	if env.OnChange != nil {
		for _, row := range rows {
			env.OnChange(TopicChange{Topic: a.topic, Previous: row})
		}
	}
	return nil
}
