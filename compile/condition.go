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
	"github.com/rulego/topicflow/schema"
	"github.com/rulego/topicflow/storage"
	"github.com/rulego/topicflow/value"
)

// CompileJoint lowers a joint into a condition evaluator.
func (c *Compiler) CompileJoint(ctx context.Context, j *schema.Joint) (Condition, error) {
	filters := make([]Condition, 0, len(j.Filters))
	for _, filter := range j.Filters {
		compiled, err := c.CompileCondition(ctx, filter)
		if err != nil {
			return nil, err
		}
		filters = append(filters, compiled)
	}
	return &jointCondition{typ: j.Type, filters: filters}, nil
}

// CompileCondition lowers a condition node, joint or expression.
func (c *Compiler) CompileCondition(ctx context.Context, cond *schema.Condition) (Condition, error) {
	if cond.Joint != nil {
		return c.CompileJoint(ctx, cond.Joint)
	}
	return c.compileExpression(ctx, cond.Expression)
}

// jointCondition aggregates filters with And or Or. IsTrue and IsFalse
// short-circuit independently: an And is false as soon as one filter is
// false, an Or is true as soon as one filter is true.
type jointCondition struct {
	typ     model.JointType
	filters []Condition
}

func (j *jointCondition) IsTrue(scope Scope) (bool, error) {
	if j.typ == model.JointTypeOr {
		for _, filter := range j.filters {
			ok, err := filter.IsTrue(scope)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	for _, filter := range j.filters {
		ok, err := filter.IsTrue(scope)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (j *jointCondition) IsFalse(scope Scope) (bool, error) {
	if j.typ == model.JointTypeOr {
		for _, filter := range j.filters {
			no, err := filter.IsFalse(scope)
			if err != nil {
				return false, err
			}
			if !no {
				return false, nil
			}
		}
		return true, nil
	}
	for _, filter := range j.filters {
		no, err := filter.IsFalse(scope)
		if err != nil {
			return false, err
		}
		if no {
			return true, nil
		}
	}
	return false, nil
}

// expressionCondition evaluates one operator over its compiled operands.
// IsFalse is spelled out per operator rather than negating IsTrue, so the
// ordering operators keep their dual (less vs more-equals) and emptiness
// stays a property of the value, not of evaluation failure.
type expressionCondition struct {
	operator model.ExpressionOperator
	left     Parameter
	right    Parameter
}

func (c *Compiler) compileExpression(ctx context.Context, e *schema.Expression) (Condition, error) {
	left, err := c.CompileParameter(ctx, e.Left)
	if err != nil {
		return nil, err
	}
	compiled := &expressionCondition{operator: e.Operator, left: left}
	if e.Right != nil {
		right, err := c.CompileParameter(ctx, e.Right)
		if err != nil {
			return nil, err
		}
		compiled.right = right
	}
	return compiled, nil
}

func (e *expressionCondition) IsTrue(scope Scope) (bool, error) {
	left, right, err := e.operands(scope)
	if err != nil {
		return false, err
	}
	switch e.operator {
	case model.OperatorEmpty:
		return left.IsEmpty(), nil
	case model.OperatorNotEmpty:
		return left.IsNotEmpty(), nil
	case model.OperatorEquals:
		return left.IsSameAs(right)
	case model.OperatorNotEquals:
		same, err := left.IsSameAs(right)
		return !same && err == nil, err
	case model.OperatorLess:
		return left.IsLessThan(right)
	case model.OperatorLessEquals:
		return left.IsLessEquals(right)
	case model.OperatorMore:
		return left.IsMoreThan(right)
	case model.OperatorMoreEquals:
		return left.IsMoreEquals(right)
	case model.OperatorIn:
		return left.IsIn(right)
	case model.OperatorNotIn:
		in, err := left.IsIn(right)
		return !in && err == nil, err
	default:
		return false, kerrors.New(kerrors.CodeComparisonMismatch, "unsupported operator [%s]", e.operator)
	}
}

func (e *expressionCondition) IsFalse(scope Scope) (bool, error) {
	left, right, err := e.operands(scope)
	if err != nil {
		return false, err
	}
	switch e.operator {
	case model.OperatorEmpty:
		return left.IsNotEmpty(), nil
	case model.OperatorNotEmpty:
		return left.IsEmpty(), nil
	case model.OperatorEquals:
		same, err := left.IsSameAs(right)
		return !same && err == nil, err
	case model.OperatorNotEquals:
		return left.IsSameAs(right)
	case model.OperatorLess:
		return left.IsMoreEquals(right)
	case model.OperatorLessEquals:
		return left.IsMoreThan(right)
	case model.OperatorMore:
		return left.IsLessEquals(right)
	case model.OperatorMoreEquals:
		return left.IsLessThan(right)
	case model.OperatorIn:
		in, err := left.IsIn(right)
		return !in && err == nil, err
	case model.OperatorNotIn:
		return left.IsIn(right)
	default:
		return false, kerrors.New(kerrors.CodeComparisonMismatch, "unsupported operator [%s]", e.operator)
	}
}

func (e *expressionCondition) operands(scope Scope) (value.Value, value.Value, error) {
	left, err := e.left.ValueFrom(scope)
	if err != nil {
		return value.None(), value.None(), err
	}
	if e.right == nil {
		return left, value.None(), nil
	}
	right, err := e.right.ValueFrom(scope)
	if err != nil {
		return value.None(), value.None(), err
	}
	return left, right, nil
}

// predicateScope layers a candidate row for one topic over an outer
// scope. Parameters of that topic read from the candidate; everything
// else reaches through.
type predicateScope struct {
	outer   Scope
	topicID string
	row     value.Value
}

func (p *predicateScope) CurrentData() (value.Value, error)        { return p.outer.CurrentData() }
func (p *predicateScope) PreviousData() (value.Value, bool)       { return p.outer.PreviousData() }
func (p *predicateScope) Variable(name string) (value.Value, bool) { return p.outer.Variable(name) }
func (p *predicateScope) SetVariable(name string, v value.Value)   { p.outer.SetVariable(name, v) }
func (p *predicateScope) RecordVariableFrom(variable, factorName string) {
	p.outer.RecordVariableFrom(variable, factorName)
}
func (p *predicateScope) SnapshotVariables() map[string]interface{} {
	return p.outer.SnapshotVariables()
}

func (p *predicateScope) CandidateRow(topicID string) (value.Value, bool) {
	if topicID == p.topicID {
		return p.row, true
	}
	return p.outer.CandidateRow(topicID)
}

// RowPredicate adapts a compiled condition into a storage predicate over
// rows of the given topic.
func RowPredicate(cond Condition, scope Scope, topicID string) storage.Predicate {
	return func(row storage.Row) (bool, error) {
		candidate, err := value.FromRow(row)
		if err != nil {
			return false, err
		}
		return cond.IsTrue(&predicateScope{outer: scope, topicID: topicID, row: candidate})
	}
}
