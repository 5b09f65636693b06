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

	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/model"
	"github.com/rulego/topicflow/path"
	"github.com/rulego/topicflow/schema"
	"github.com/rulego/topicflow/storage"
	"github.com/rulego/topicflow/value"
)

// cumulateCountSuffix names the companion column that tracks how many
// rows folded into a running average.
const cumulateCountSuffix = "#count"

// compiledMapping binds one insert column: the source parameter, the
// write path inside the row, and the cumulate fold applied on merge.
type compiledMapping struct {
	names      []string
	factorName string
	source     Parameter
	arithmetic model.FactorArithmetic
}

// insertRowAction writes one row into the target topic. In cumulate mode
// it folds onto the row matched by the key condition instead, or degrades
// to a plain insert when no row matches.
type insertRowAction struct {
	baseAction
	topic   *schema.Topic
	mode    model.AccumulateMode
	by      Condition
	mapping []compiledMapping
}

func compileInsertRow(ctx context.Context, c *Compiler, a *schema.Action) (Action, error) {
	topic, err := c.resolveTopic(ctx, a.TopicID)
	if err != nil {
		return nil, err
	}
	compiled := &insertRowAction{
		baseAction: baseAction{id: a.ActionID, typ: a.Type},
		topic:      topic,
		mode:       a.AccumulateMode,
	}
	if a.By != nil {
		by, err := c.CompileJoint(ctx, a.By)
		if err != nil {
			return nil, err
		}
		compiled.by = by
	}
	for _, m := range a.Mapping {
		factor, ok := topic.FactorByID(m.FactorID)
		if !ok {
			return nil, kerrors.FactorNotFound(topic.Code, m.FactorID)
		}
		names, err := writePath(factor.Name)
		if err != nil {
			return nil, err
		}
		source, err := c.CompileParameter(ctx, m.Source)
		if err != nil {
			return nil, err
		}
		compiled.mapping = append(compiled.mapping, compiledMapping{
			names:      names,
			factorName: factor.Name,
			source:     source,
			arithmetic: m.Arithmetic,
		})
	}
	return compiled, nil
}

// writePath resolves a factor path into plain segment names. Function
// segments are readable but have no write location.
func writePath(factorName string) ([]string, error) {
	dp, err := path.Parse(factorName)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(dp))
	for _, seg := range dp {
		if _, ok := seg.(path.PlainSegment); !ok {
			return nil, kerrors.New(kerrors.CodePathParse,
				"factor path [%s] cannot be a mapping target", factorName)
		}
		names = append(names, seg.Name())
	}
	return names, nil
}

func (a *insertRowAction) Run(ctx context.Context, env *Env) error {
	fresh, err := a.evalRow(env.Scope)
	if err != nil {
		return err
	}
	if a.mode == model.AccumulateCumulate && a.by != nil {
		prev, merged, err := env.Store.InsertOrMerge(ctx, a.topic,
			RowPredicate(a.by, env.Scope, a.topic.TopicID),
			func(prevRow storage.Row) (storage.Row, error) {
				if prevRow == nil {
					return a.seedRow(fresh), nil
				}
				return a.foldRow(prevRow, fresh)
			})
		if err != nil {
			return err
		}
		if env.OnChange != nil {
			env.OnChange(TopicChange{Topic: a.topic, Previous: prev, Current: merged})
		}
		return nil
	}
	inserted, err := env.Store.Insert(ctx, a.topic, fresh)
	if err != nil {
		return err
	}
	if env.OnChange != nil {
		env.OnChange(TopicChange{Topic: a.topic, Current: inserted})
	}
	return nil
}

// evalRow evaluates every mapping source against the scope into a fresh
// row.
func (a *insertRowAction) evalRow(scope Scope) (storage.Row, error) {
	row := storage.Row{}
	for _, m := range a.mapping {
		v, err := m.source.ValueFrom(scope)
		if err != nil {
			return nil, err
		}
		writeAt(row, m.names, v.ToAny())
	}
	return row, nil
}

// seedRow prepares the first cumulate row: count columns start at 1 and
// averages get their companion counter.
func (a *insertRowAction) seedRow(fresh storage.Row) storage.Row {
	row := storage.CopyRow(fresh)
	for _, m := range a.mapping {
		switch m.arithmetic {
		case model.ArithmeticCount:
			writeAt(row, m.names, int64(1))
		case model.ArithmeticAvg:
			writeAt(row, append(append([]string{}, m.names[:len(m.names)-1]...),
				m.names[len(m.names)-1]+cumulateCountSuffix), int64(1))
		}
	}
	return row
}

// foldRow merges the fresh row onto the previous one column by column,
// applying each mapping's arithmetic at its leaf.
func (a *insertRowAction) foldRow(prev, fresh storage.Row) (storage.Row, error) {
	merged := storage.CopyRow(prev)
	for _, m := range a.mapping {
		next, err := leafValue(fresh, m.names)
		if err != nil {
			return nil, err
		}
		if m.arithmetic == model.ArithmeticNone {
			writeAt(merged, m.names, next.ToAny())
			continue
		}
		before, err := leafValue(merged, m.names)
		if err != nil {
			return nil, err
		}
		after, err := a.foldLeaf(merged, m, before, next)
		if err != nil {
			return nil, kerrors.From(err).At("factor[" + m.factorName + "]")
		}
		writeAt(merged, m.names, after.ToAny())
	}
	return merged, nil
}

func (a *insertRowAction) foldLeaf(merged storage.Row, m compiledMapping, before, next value.Value) (value.Value, error) {
	switch m.arithmetic {
	case model.ArithmeticSum:
		if before.IsNone() {
			return next, nil
		}
		return before.Add(next)
	case model.ArithmeticCount:
		if before.IsNone() {
			before = value.NVInt(0)
		}
		return before.Add(value.NVInt(1))
	case model.ArithmeticMax:
		more, err := next.IsMoreThan(before)
		if err != nil || more {
			return next, err
		}
		return before, nil
	case model.ArithmeticMin:
		less, err := next.IsLessThan(before)
		if err != nil || less {
			return next, err
		}
		return before, nil
	default: // avg keeps a running mean with its companion counter
		countNames := append(append([]string{}, m.names[:len(m.names)-1]...),
			m.names[len(m.names)-1]+cumulateCountSuffix)
		count, err := leafValue(merged, countNames)
		if err != nil {
			return value.None(), err
		}
		if before.IsNone() || count.IsNone() {
			writeAt(merged, countNames, int64(1))
			return next, nil
		}
		total, err := before.Mul(count)
		if err != nil {
			return value.None(), err
		}
		total, err = total.Add(next)
		if err != nil {
			return value.None(), err
		}
		grown, err := count.Add(value.NVInt(1))
		if err != nil {
			return value.None(), err
		}
		writeAt(merged, countNames, grown.ToAny())
		return value.NV(total.Num().Div(grown.Num())), nil
	}
}

// leafValue reads the nested cell at the plain path, none when absent.
func leafValue(row storage.Row, names []string) (value.Value, error) {
	var cursor interface{} = map[string]interface{}(row)
	for _, name := range names {
		m, ok := cursor.(map[string]interface{})
		if !ok {
			return value.None(), nil
		}
		cursor, ok = m[name]
		if !ok {
			return value.None(), nil
		}
	}
	return value.FromAny(cursor)
}

// writeAt writes the cell at the plain path, creating nested maps along
// the way.
func writeAt(row storage.Row, names []string, v interface{}) {
	cursor := map[string]interface{}(row)
	for _, name := range names[:len(names)-1] {
		child, ok := cursor[name].(map[string]interface{})
		if !ok {
			child = map[string]interface{}{}
			cursor[name] = child
		}
		cursor = child
	}
	cursor[names[len(names)-1]] = v
}
