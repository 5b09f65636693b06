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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/model"
	"github.com/rulego/topicflow/path"
	"github.com/rulego/topicflow/schema"
	"github.com/rulego/topicflow/storage"
	"github.com/rulego/topicflow/value"
)

// fakeScope is a plain in-memory scope for evaluator tests.
type fakeScope struct {
	current    value.Value
	hasCurrent bool
	previous   value.Value
	hasPrev    bool
	vars       map[string]value.Value
	varFrom    map[string]string
}

func newFakeScope() *fakeScope {
	return &fakeScope{vars: map[string]value.Value{}, varFrom: map[string]string{}}
}

func (s *fakeScope) withCurrent(v value.Value) *fakeScope {
	s.current = v
	s.hasCurrent = true
	return s
}

func (s *fakeScope) CurrentData() (value.Value, error) {
	if !s.hasCurrent {
		return value.None(), kerrors.CurrentDataNotFound()
	}
	return s.current, nil
}

func (s *fakeScope) PreviousData() (value.Value, bool) { return s.previous, s.hasPrev }

func (s *fakeScope) Variable(name string) (value.Value, bool) {
	v, ok := s.vars[name]
	return v, ok
}

func (s *fakeScope) SetVariable(name string, v value.Value) { s.vars[name] = v }

func (s *fakeScope) RecordVariableFrom(variable, factorName string) {
	s.varFrom[variable] = factorName
}

func (s *fakeScope) CandidateRow(string) (value.Value, bool) { return value.Value{}, false }

func (s *fakeScope) SnapshotVariables() map[string]interface{} {
	out := make(map[string]interface{}, len(s.vars))
	for name, v := range s.vars {
		out[name] = v.ToAny()
	}
	return out
}

func testTopic(t *testing.T, topicID, code string, factors ...*model.Factor) *schema.Topic {
	t.Helper()
	topic, err := schema.NormalizeTopic(&model.Topic{
		TopicID:  topicID,
		TenantID: "t-1",
		Code:     code,
		Kind:     model.TopicKindRaw,
		Factors:  factors,
	})
	require.NoError(t, err)
	return topic
}

type staticResolver map[string]*schema.Topic

func (r staticResolver) TopicByID(_ context.Context, topicID string) (*schema.Topic, error) {
	topic, ok := r[topicID]
	if !ok {
		return nil, kerrors.TopicNotFound("t-1", topicID)
	}
	return topic, nil
}

func orderTopic(t *testing.T) *schema.Topic {
	return testTopic(t, "tp-order", "order",
		&model.Factor{FactorID: "f-id", Name: "order_id", Type: model.FactorTypeText},
		&model.Factor{FactorID: "f-amount", Name: "amount", Type: model.FactorTypeNumber},
		&model.Factor{FactorID: "f-items", Name: "items", Type: model.FactorTypeArray},
	)
}

func TestTraverse(t *testing.T) {
	row := value.MV(map[string]value.Value{
		"order_id": value.SV("o-1"),
		"customer": value.MV(map[string]value.Value{"name": value.SV("ada")}),
		"items": value.VV([]value.Value{
			value.MV(map[string]value.Value{"price": value.NVInt(10), "sku": value.SV("a")}),
			value.MV(map[string]value.Value{"price": value.NVInt(30), "sku": value.SV("b")}),
		}),
	})

	tests := []struct {
		name string
		path string
		want value.Value
	}{
		{"plain", "order_id", value.SV("o-1")},
		{"nested", "customer.name", value.SV("ada")},
		{"missing key is none", "customer.phone", value.None()},
		{"list fan out", "items.price", value.VV([]value.Value{value.NVInt(10), value.NVInt(30)})},
		{"count", "count(items)", value.NVInt(2)},
		{"sum", "sum(items.price)", value.NVInt(40)},
		{"avg", "avg(items.price)", value.NVInt(20)},
		{"min", "min(items.price)", value.NVInt(10)},
		{"max", "max(items.price)", value.NVInt(30)},
		{"first", "first(items.sku)", value.SV("a")},
		{"concat", "concat(order_id, '-', customer.name)", value.SV("o-1-ada")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dp, err := path.Parse(tt.path)
			require.NoError(t, err)
			got, err := traverse(row, dp)
			require.NoError(t, err)
			same, err := got.IsSameAs(tt.want)
			require.NoError(t, err)
			assert.True(t, same, "got %s want %s", got, tt.want)
		})
	}

	t.Run("unknown function", func(t *testing.T) {
		dp, err := path.Parse("shuffle(items)")
		require.NoError(t, err)
		_, err = traverse(row, dp)
		assert.True(t, kerrors.HasCode(err, kerrors.CodePathParse))
	})
}

func TestCompileConstantParameter(t *testing.T) {
	c := NewCompiler(orderTopic(t), staticResolver{})
	scope := newFakeScope().withCurrent(value.MV(map[string]value.Value{
		"amount": value.NVInt(42),
	}))
	scope.SetVariable("customer_id", value.SV("c-7"))

	t.Run("plain text stays text", func(t *testing.T) {
		p, err := c.CompileParameter(context.Background(), &schema.Parameter{
			Kind: model.ParameterKindConstant, Value: "hello",
		})
		require.NoError(t, err)
		v, err := p.ValueFrom(scope)
		require.NoError(t, err)
		assert.Equal(t, value.SV("hello"), v)
	})

	t.Run("single placeholder keeps the value type", func(t *testing.T) {
		p, err := c.CompileParameter(context.Background(), &schema.Parameter{
			Kind: model.ParameterKindConstant, Value: "{amount}",
		})
		require.NoError(t, err)
		v, err := p.ValueFrom(scope)
		require.NoError(t, err)
		assert.Equal(t, value.KindNum, v.Kind())
	})

	t.Run("variables win over the trigger row", func(t *testing.T) {
		p, err := c.CompileParameter(context.Background(), &schema.Parameter{
			Kind: model.ParameterKindConstant, Value: "{customer_id}",
		})
		require.NoError(t, err)
		v, err := p.ValueFrom(scope)
		require.NoError(t, err)
		assert.Equal(t, value.SV("c-7"), v)
	})

	t.Run("mixed template renders text", func(t *testing.T) {
		p, err := c.CompileParameter(context.Background(), &schema.Parameter{
			Kind: model.ParameterKindConstant, Value: "order of {customer_id} for {amount}",
		})
		require.NoError(t, err)
		v, err := p.ValueFrom(scope)
		require.NoError(t, err)
		assert.Equal(t, value.SV("order of c-7 for 42"), v)
	})
}

func TestCompileTopicParameter(t *testing.T) {
	source := orderTopic(t)
	c := NewCompiler(source, staticResolver{})
	p, err := c.CompileParameter(context.Background(), &schema.Parameter{
		Kind: model.ParameterKindTopic, TopicID: "tp-order", FactorID: "f-amount",
	})
	require.NoError(t, err)

	t.Run("reads the trigger row", func(t *testing.T) {
		scope := newFakeScope().withCurrent(value.MV(map[string]value.Value{
			"amount": value.NVInt(17),
		}))
		v, err := p.ValueFrom(scope)
		require.NoError(t, err)
		assert.Equal(t, value.NVInt(17), v)
	})

	t.Run("missing current data fails", func(t *testing.T) {
		_, err := p.ValueFrom(newFakeScope())
		assert.True(t, kerrors.HasCode(err, kerrors.CodeCurrentDataNotFound))
	})

	t.Run("unknown factor fails at compile time", func(t *testing.T) {
		_, err := c.CompileParameter(context.Background(), &schema.Parameter{
			Kind: model.ParameterKindTopic, TopicID: "tp-order", FactorID: "f-missing",
		})
		assert.True(t, kerrors.HasCode(err, kerrors.CodeFactorNotFound))
	})
}

func TestCompileComputedParameter(t *testing.T) {
	c := NewCompiler(orderTopic(t), staticResolver{})
	scope := newFakeScope()

	constant := func(s string) *schema.Parameter {
		return &schema.Parameter{Kind: model.ParameterKindConstant, Value: s}
	}
	computed := func(ct model.ComputeType, children ...*schema.Parameter) *schema.Parameter {
		return &schema.Parameter{Kind: model.ParameterKindComputed, Compute: ct, Children: children}
	}

	tests := []struct {
		name  string
		param *schema.Parameter
		want  value.Value
	}{
		{"add folds left to right", computed(model.ComputeTypeAdd, constant("{x}"), constant("{y}"), constant("{z}")), value.NVInt(6)},
		{"subtract", computed(model.ComputeTypeSubtract, constant("{z}"), constant("{x}")), value.NVInt(2)},
		{"multiply", computed(model.ComputeTypeMultiply, constant("{y}"), constant("{z}")), value.NVInt(6)},
		{"modulus", computed(model.ComputeTypeModulus, constant("{z}"), constant("{y}")), value.NVInt(1)},
		{"day of week", computed(model.ComputeTypeDayOfWeek, constant("{day}")), value.NVInt(6)},
		{"coalesce picks first present", computed(model.ComputeTypeNone, constant("{gone}"), constant("{y}")), value.NVInt(2)},
	}
	scope.SetVariable("x", value.NVInt(1))
	scope.SetVariable("y", value.NVInt(2))
	scope.SetVariable("z", value.NVInt(3))
	scope.SetVariable("gone", value.None())
	day, ok := value.ParseDate("2024-03-15")
	require.True(t, ok)
	scope.SetVariable("day", day)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := c.CompileParameter(context.Background(), tt.param)
			require.NoError(t, err)
			got, err := p.ValueFrom(scope)
			require.NoError(t, err)
			same, err := got.IsSameAs(tt.want)
			require.NoError(t, err)
			assert.True(t, same, "got %s want %s", got, tt.want)
		})
	}
}

// stubParameter returns a fixed value and counts evaluations.
type stubParameter struct {
	v     value.Value
	calls int
}

func (p *stubParameter) ValueFrom(Scope) (value.Value, error) {
	p.calls++
	return p.v, nil
}

func stubExpr(left value.Value, op model.ExpressionOperator, right value.Value) (*expressionCondition, *stubParameter) {
	l := &stubParameter{v: left}
	e := &expressionCondition{operator: op, left: l}
	if op.IsUnary() {
		return e, l
	}
	e.right = &stubParameter{v: right}
	return e, l
}

func TestExpressionOperators(t *testing.T) {
	scope := newFakeScope()

	tests := []struct {
		name      string
		left      value.Value
		op        model.ExpressionOperator
		right     value.Value
		wantTrue  bool
		wantFalse bool
	}{
		{"equals same number", value.NVInt(10), model.OperatorEquals, value.NVInt(10), true, false},
		{"equals text vs number parses", value.SV("10"), model.OperatorEquals, value.NVInt(10), true, false},
		{"not equals", value.NVInt(1), model.OperatorNotEquals, value.NVInt(2), true, false},
		{"less", value.NVInt(1), model.OperatorLess, value.NVInt(2), true, false},
		{"less fails its dual", value.NVInt(2), model.OperatorLess, value.NVInt(2), false, true},
		{"less equals boundary", value.NVInt(2), model.OperatorLessEquals, value.NVInt(2), true, false},
		{"more", value.NVInt(3), model.OperatorMore, value.NVInt(2), true, false},
		{"more equals", value.NVInt(2), model.OperatorMoreEquals, value.NVInt(2), true, false},
		{"in list", value.SV("b"), model.OperatorIn, value.VV([]value.Value{value.SV("a"), value.SV("b")}), true, false},
		{"not in list", value.SV("c"), model.OperatorNotIn, value.VV([]value.Value{value.SV("a")}), true, false},
		{"empty none", value.None(), model.OperatorEmpty, value.Value{}, true, false},
		{"empty blank text", value.SV("  "), model.OperatorEmpty, value.Value{}, true, false},
		{"not empty", value.SV("x"), model.OperatorNotEmpty, value.Value{}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := stubExpr(tt.left, tt.op, tt.right)
			isTrue, err := e.IsTrue(scope)
			require.NoError(t, err)
			isFalse, err := e.IsFalse(scope)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTrue, isTrue, "IsTrue")
			assert.Equal(t, tt.wantFalse, isFalse, "IsFalse")
		})
	}

	t.Run("text vs number that does not parse errors", func(t *testing.T) {
		e, _ := stubExpr(value.SV("abc"), model.OperatorEquals, value.NVInt(10))
		_, err := e.IsTrue(scope)
		assert.True(t, kerrors.HasCode(err, kerrors.CodeDecimalParse))
	})
}

func TestJointShortCircuit(t *testing.T) {
	scope := newFakeScope()

	expr := func(left value.Value, op model.ExpressionOperator, right value.Value) (Condition, *stubParameter) {
		e, l := stubExpr(left, op, right)
		return e, l
	}

	t.Run("and stops at the first false filter", func(t *testing.T) {
		failing, _ := expr(value.NVInt(1), model.OperatorEquals, value.NVInt(2))
		second, probe := expr(value.NVInt(1), model.OperatorEquals, value.NVInt(1))
		j := &jointCondition{typ: model.JointTypeAnd, filters: []Condition{failing, second}}
		ok, err := j.IsTrue(scope)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, probe.calls, "second filter must not evaluate")
	})

	t.Run("or stops at the first true filter", func(t *testing.T) {
		passing, _ := expr(value.NVInt(1), model.OperatorEquals, value.NVInt(1))
		second, probe := expr(value.NVInt(1), model.OperatorEquals, value.NVInt(2))
		j := &jointCondition{typ: model.JointTypeOr, filters: []Condition{passing, second}}
		ok, err := j.IsTrue(scope)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, probe.calls, "second filter must not evaluate")
	})

	t.Run("and is false as soon as one filter is false", func(t *testing.T) {
		failing, _ := expr(value.NVInt(1), model.OperatorEquals, value.NVInt(2))
		second, probe := expr(value.NVInt(1), model.OperatorEquals, value.NVInt(1))
		j := &jointCondition{typ: model.JointTypeAnd, filters: []Condition{failing, second}}
		no, err := j.IsFalse(scope)
		require.NoError(t, err)
		assert.True(t, no)
		assert.Zero(t, probe.calls)
	})
}

func equalsConstJoint(factorTopic, factorID, constant string) *schema.Joint {
	return &schema.Joint{
		Type: model.JointTypeAnd,
		Filters: []*schema.Condition{{
			Expression: &schema.Expression{
				Left:     &schema.Parameter{Kind: model.ParameterKindTopic, TopicID: factorTopic, FactorID: factorID},
				Operator: model.OperatorEquals,
				Right:    &schema.Parameter{Kind: model.ParameterKindConstant, Value: constant},
			},
		}},
	}
}

func TestCopyToMemoryAction(t *testing.T) {
	source := orderTopic(t)
	c := NewCompiler(source, staticResolver{})

	action, err := c.CompileAction(context.Background(), &schema.Action{
		ActionID:     "a-1",
		Type:         model.ActionCopyToMemory,
		Source:       &schema.Parameter{Kind: model.ParameterKindTopic, TopicID: "tp-order", FactorID: "f-id"},
		VariableName: "order_id",
	})
	require.NoError(t, err)

	scope := newFakeScope().withCurrent(value.MV(map[string]value.Value{
		"order_id": value.SV("o-9"),
	}))
	require.NoError(t, action.Run(context.Background(), &Env{Scope: scope}))

	got, ok := scope.Variable("order_id")
	require.True(t, ok)
	assert.Equal(t, value.SV("o-9"), got)
	assert.Equal(t, "order_id", scope.varFrom["order_id"], "provenance recorded")
}

func TestReadAndExistsActions(t *testing.T) {
	source := orderTopic(t)
	stats := testTopic(t, "tp-stats", "daily_stats",
		&model.Factor{FactorID: "s-day", Name: "day", Type: model.FactorTypeText},
		&model.Factor{FactorID: "s-total", Name: "total", Type: model.FactorTypeNumber},
	)
	c := NewCompiler(source, staticResolver{"tp-stats": stats})
	store := storage.NewMemoryStore()
	store.Seed(stats,
		storage.Row{"day": "mon", "total": 5},
		storage.Row{"day": "tue", "total": 7},
	)
	scope := newFakeScope()
	env := &Env{Scope: scope, Store: store}

	t.Run("read-row stores the matching row", func(t *testing.T) {
		action, err := c.CompileAction(context.Background(), &schema.Action{
			ActionID: "a-r1", Type: model.ActionReadRow,
			TopicID: "tp-stats", By: equalsConstJoint("tp-stats", "s-day", "tue"),
			VariableName: "tue_row",
		})
		require.NoError(t, err)
		require.NoError(t, action.Run(context.Background(), env))
		row, ok := scope.Variable("tue_row")
		require.True(t, ok)
		same, err := row.Map()["total"].IsSameAs(value.NVInt(7))
		require.NoError(t, err)
		assert.True(t, same)
	})

	t.Run("read-row miss stores none", func(t *testing.T) {
		action, err := c.CompileAction(context.Background(), &schema.Action{
			ActionID: "a-r2", Type: model.ActionReadRow,
			TopicID: "tp-stats", By: equalsConstJoint("tp-stats", "s-day", "sun"),
			VariableName: "sun_row",
		})
		require.NoError(t, err)
		require.NoError(t, action.Run(context.Background(), env))
		row, ok := scope.Variable("sun_row")
		require.True(t, ok)
		assert.True(t, row.IsNone())
	})

	t.Run("read-rows stores a list", func(t *testing.T) {
		action, err := c.CompileAction(context.Background(), &schema.Action{
			ActionID: "a-r3", Type: model.ActionReadRows,
			TopicID: "tp-stats", VariableName: "all_rows",
		})
		require.NoError(t, err)
		require.NoError(t, action.Run(context.Background(), env))
		rows, ok := scope.Variable("all_rows")
		require.True(t, ok)
		assert.Len(t, rows.Vec(), 2)
	})

	t.Run("exists stores a boolean", func(t *testing.T) {
		action, err := c.CompileAction(context.Background(), &schema.Action{
			ActionID: "a-e1", Type: model.ActionExists,
			TopicID: "tp-stats", By: equalsConstJoint("tp-stats", "s-day", "mon"),
			VariableName: "has_mon",
		})
		require.NoError(t, err)
		require.NoError(t, action.Run(context.Background(), env))
		got, ok := scope.Variable("has_mon")
		require.True(t, ok)
		assert.Equal(t, value.BV(true), got)
	})
}

func TestInsertRowAction(t *testing.T) {
	source := orderTopic(t)
	stats := testTopic(t, "tp-stats", "daily_stats",
		&model.Factor{FactorID: "s-day", Name: "day", Type: model.FactorTypeText},
		&model.Factor{FactorID: "s-total", Name: "total", Type: model.FactorTypeNumber},
		&model.Factor{FactorID: "s-count", Name: "orders", Type: model.FactorTypeNumber},
	)
	c := NewCompiler(source, staticResolver{"tp-stats": stats})

	cumulate := &schema.Action{
		ActionID: "a-i1", Type: model.ActionInsertRow,
		TopicID:        "tp-stats",
		AccumulateMode: model.AccumulateCumulate,
		By:             equalsConstJoint("tp-stats", "s-day", "mon"),
		Mapping: []*schema.MappingFactor{
			{FactorID: "s-day", Arithmetic: model.ArithmeticNone,
				Source: &schema.Parameter{Kind: model.ParameterKindConstant, Value: "mon"}},
			{FactorID: "s-total", Arithmetic: model.ArithmeticSum,
				Source: &schema.Parameter{Kind: model.ParameterKindTopic, TopicID: "tp-order", FactorID: "f-amount"}},
			{FactorID: "s-count", Arithmetic: model.ArithmeticCount,
				Source: &schema.Parameter{Kind: model.ParameterKindConstant, Value: "{amount}"}},
		},
	}
	action, err := c.CompileAction(context.Background(), cumulate)
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	var changes []TopicChange
	run := func(amount int64) {
		scope := newFakeScope().withCurrent(value.MV(map[string]value.Value{
			"amount": value.NVInt(amount),
		}))
		scope.SetVariable("amount", value.NVInt(amount))
		env := &Env{Scope: scope, Store: store, OnChange: func(ch TopicChange) { changes = append(changes, ch) }}
		require.NoError(t, action.Run(context.Background(), env))
	}

	run(10)
	run(32)

	rows, err := store.FindMany(context.Background(), stats, func(storage.Row) (bool, error) { return true, nil })
	require.NoError(t, err)
	require.Len(t, rows, 1, "cumulate folds onto the matched row")

	row, err := value.FromRow(rows[0])
	require.NoError(t, err)
	total := row.Map()["total"]
	same, err := total.IsSameAs(value.NVInt(42))
	require.NoError(t, err)
	assert.True(t, same, "sum folded, got %s", total)
	count := row.Map()["orders"]
	same, err = count.IsSameAs(value.NVInt(2))
	require.NoError(t, err)
	assert.True(t, same, "count folded, got %s", count)

	require.Len(t, changes, 2)
	assert.Nil(t, changes[0].Previous, "first write is an insert")
	assert.NotNil(t, changes[1].Previous, "second write is a merge")
}

func TestDeleteActions(t *testing.T) {
	source := orderTopic(t)
	stats := testTopic(t, "tp-stats", "daily_stats",
		&model.Factor{FactorID: "s-day", Name: "day", Type: model.FactorTypeText},
	)
	c := NewCompiler(source, staticResolver{"tp-stats": stats})
	store := storage.NewMemoryStore()
	store.Seed(stats,
		storage.Row{"day": "mon"},
		storage.Row{"day": "tue"},
		storage.Row{"day": "wed"},
	)
	scope := newFakeScope()
	var changes []TopicChange
	env := &Env{Scope: scope, Store: store, OnChange: func(ch TopicChange) { changes = append(changes, ch) }}

	one, err := c.CompileAction(context.Background(), &schema.Action{
		ActionID: "a-d1", Type: model.ActionDeleteRow,
		TopicID: "tp-stats", By: equalsConstJoint("tp-stats", "s-day", "tue"),
	})
	require.NoError(t, err)
	require.NoError(t, one.Run(context.Background(), env))
	require.Len(t, changes, 1)
	assert.Equal(t, "tue", changes[0].Previous["day"])
	assert.Nil(t, changes[0].Current)

	many, err := c.CompileAction(context.Background(), &schema.Action{
		ActionID: "a-d2", Type: model.ActionDeleteRows, TopicID: "tp-stats",
	})
	require.NoError(t, err)
	require.NoError(t, many.Run(context.Background(), env))
	assert.Len(t, changes, 3)

	rows, err := store.FindMany(context.Background(), stats, func(storage.Row) (bool, error) { return true, nil })
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAlarmAction(t *testing.T) {
	source := orderTopic(t)
	c := NewCompiler(source, staticResolver{})

	t.Run("renders placeholders from variables", func(t *testing.T) {
		action, err := c.CompileAction(context.Background(), &schema.Action{
			ActionID: "a-a1", Type: model.ActionAlarm,
			Severity: model.SeverityHigh,
			Message:  "order {order_id} exceeded {limit}",
		})
		require.NoError(t, err)
		scope := newFakeScope()
		scope.SetVariable("order_id", value.SV("o-3"))
		scope.SetVariable("limit", value.NVInt(100))
		var events []AlarmEvent
		env := &Env{Scope: scope, OnAlarm: func(e AlarmEvent) { events = append(events, e) }}
		require.NoError(t, action.Run(context.Background(), env))
		require.Len(t, events, 1)
		assert.Equal(t, model.SeverityHigh, events[0].Severity)
		assert.Equal(t, "order o-3 exceeded 100", events[0].Message)
		assert.Equal(t, "a-a1", events[0].ActionID)
	})

	t.Run("gated alarm stays silent when the gate fails", func(t *testing.T) {
		action, err := c.CompileAction(context.Background(), &schema.Action{
			ActionID: "a-a2", Type: model.ActionAlarm,
			Severity: model.SeverityLow,
			Message:  "never",
			On:       equalsConstJoint("tp-order", "f-id", "o-404"),
		})
		require.NoError(t, err)
		scope := newFakeScope().withCurrent(value.MV(map[string]value.Value{
			"order_id": value.SV("o-1"),
		}))
		var events []AlarmEvent
		env := &Env{Scope: scope, OnAlarm: func(e AlarmEvent) { events = append(events, e) }}
		require.NoError(t, action.Run(context.Background(), env))
		assert.Empty(t, events)
	})
}

func TestCompilePipelineProgram(t *testing.T) {
	source := orderTopic(t)
	c := NewCompiler(source, staticResolver{})

	pipeline := &schema.Pipeline{
		PipelineID: "p-1", TopicID: "tp-order", TenantID: "t-1", Enabled: true,
		On: equalsConstJoint("tp-order", "f-id", "o-1"),
		Stages: []*schema.Stage{{
			StageID: "s-1",
			Units: []*schema.Unit{{
				UnitID: "u-1",
				Do: []*schema.Action{{
					ActionID: "a-1", Type: model.ActionCopyToMemory,
					Source:       &schema.Parameter{Kind: model.ParameterKindTopic, TopicID: "tp-order", FactorID: "f-amount"},
					VariableName: "amount",
				}},
			}},
		}},
	}
	program, err := c.CompilePipeline(context.Background(), pipeline)
	require.NoError(t, err)
	require.NotNil(t, program.Gate)
	require.Len(t, program.Stages, 1)
	require.Len(t, program.Stages[0].Units, 1)
	require.Len(t, program.Stages[0].Units[0].Actions, 1)
	assert.Equal(t, model.ActionCopyToMemory, program.Stages[0].Units[0].Actions[0].Type())

	scope := newFakeScope().withCurrent(value.MV(map[string]value.Value{
		"order_id": value.SV("o-1"),
		"amount":   value.NVInt(50),
	}))
	ok, err := program.Gate.IsTrue(scope)
	require.NoError(t, err)
	assert.True(t, ok)
}

// Numbers inside avg: the decimal division keeps exact halves exact.
func TestCumulateAverage(t *testing.T) {
	source := orderTopic(t)
	stats := testTopic(t, "tp-stats", "daily_stats",
		&model.Factor{FactorID: "s-day", Name: "day", Type: model.FactorTypeText},
		&model.Factor{FactorID: "s-avg", Name: "mean", Type: model.FactorTypeNumber},
	)
	c := NewCompiler(source, staticResolver{"tp-stats": stats})

	action, err := c.CompileAction(context.Background(), &schema.Action{
		ActionID: "a-i2", Type: model.ActionInsertRow,
		TopicID:        "tp-stats",
		AccumulateMode: model.AccumulateCumulate,
		By:             equalsConstJoint("tp-stats", "s-day", "mon"),
		Mapping: []*schema.MappingFactor{
			{FactorID: "s-day", Arithmetic: model.ArithmeticNone,
				Source: &schema.Parameter{Kind: model.ParameterKindConstant, Value: "mon"}},
			{FactorID: "s-avg", Arithmetic: model.ArithmeticAvg,
				Source: &schema.Parameter{Kind: model.ParameterKindConstant, Value: "{amount}"}},
		},
	})
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	for _, amount := range []int64{10, 20, 30} {
		scope := newFakeScope()
		scope.SetVariable("amount", value.NVInt(amount))
		env := &Env{Scope: scope, Store: store}
		require.NoError(t, action.Run(context.Background(), env))
	}

	rows, err := store.FindMany(context.Background(), stats, func(storage.Row) (bool, error) { return true, nil })
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row, err := value.FromRow(rows[0])
	require.NoError(t, err)
	mean := row.Map()["mean"]
	same, err := mean.IsSameAs(value.NVInt(20))
	require.NoError(t, err)
	assert.True(t, same, "got %s", mean)
}
