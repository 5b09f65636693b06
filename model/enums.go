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

package model

import (
	"strings"

	"github.com/rulego/topicflow/kerrors"
)

// Enum parsing is strict: an unknown literal is a StrEnumParse error, never
// silently coerced. Empty strings are handled by the normalizer, which
// applies the documented defaults before parsing.

// TopicKind discriminates raw from derived topics.
type TopicKind string

const (
	TopicKindRaw     TopicKind = "raw"
	TopicKindDerived TopicKind = "derived"
)

// ParseTopicKind parses a topic kind literal.
func ParseTopicKind(s string) (TopicKind, *kerrors.Error) {
	switch TopicKind(strings.TrimSpace(s)) {
	case TopicKindRaw:
		return TopicKindRaw, nil
	case TopicKindDerived:
		return TopicKindDerived, nil
	default:
		return "", kerrors.StrEnumParse("topic kind", s)
	}
}

// FactorType is the declared type of a topic column.
type FactorType string

const (
	FactorTypeText     FactorType = "text"
	FactorTypeNumber   FactorType = "number"
	FactorTypeBool     FactorType = "boolean"
	FactorTypeDate     FactorType = "date"
	FactorTypeTime     FactorType = "time"
	FactorTypeDateTime FactorType = "datetime"
	FactorTypeObject   FactorType = "object"
	FactorTypeArray    FactorType = "array"
)

// ParseFactorType parses a factor type literal.
func ParseFactorType(s string) (FactorType, *kerrors.Error) {
	switch t := FactorType(strings.TrimSpace(s)); t {
	case FactorTypeText, FactorTypeNumber, FactorTypeBool, FactorTypeDate,
		FactorTypeTime, FactorTypeDateTime, FactorTypeObject, FactorTypeArray:
		return t, nil
	default:
		return "", kerrors.StrEnumParse("factor type", s)
	}
}

// ParameterKind discriminates the parameter variants.
type ParameterKind string

const (
	ParameterKindTopic    ParameterKind = "topic"
	ParameterKindConstant ParameterKind = "constant"
	ParameterKindComputed ParameterKind = "computed"
)

// ParseParameterKind parses a parameter kind literal.
func ParseParameterKind(s string) (ParameterKind, *kerrors.Error) {
	switch k := ParameterKind(strings.TrimSpace(s)); k {
	case ParameterKindTopic, ParameterKindConstant, ParameterKindComputed:
		return k, nil
	default:
		return "", kerrors.StrEnumParse("parameter kind", s)
	}
}

// ComputeType is the operator of a computed parameter.
type ComputeType string

const (
	ComputeTypeAdd         ComputeType = "add"
	ComputeTypeSubtract    ComputeType = "subtract"
	ComputeTypeMultiply    ComputeType = "multiply"
	ComputeTypeModulus     ComputeType = "modulus"
	ComputeTypeDayOfMonth  ComputeType = "day-of-month"
	ComputeTypeDayOfWeek   ComputeType = "day-of-week"
	ComputeTypeWeekOfMonth ComputeType = "week-of-month"
	ComputeTypeHalfYearOf  ComputeType = "half-year-of"
	ComputeTypeNone        ComputeType = "none"
)

// ParseComputeType parses a compute type literal.
func ParseComputeType(s string) (ComputeType, *kerrors.Error) {
	switch t := ComputeType(strings.TrimSpace(s)); t {
	case ComputeTypeAdd, ComputeTypeSubtract, ComputeTypeMultiply,
		ComputeTypeModulus, ComputeTypeDayOfMonth, ComputeTypeDayOfWeek,
		ComputeTypeWeekOfMonth, ComputeTypeHalfYearOf, ComputeTypeNone:
		return t, nil
	default:
		return "", kerrors.StrEnumParse("compute type", s)
	}
}

// IsUnary reports whether the compute type takes exactly one child.
func (t ComputeType) IsUnary() bool {
	switch t {
	case ComputeTypeDayOfMonth, ComputeTypeDayOfWeek, ComputeTypeWeekOfMonth, ComputeTypeHalfYearOf:
		return true
	default:
		return false
	}
}

// ExpressionOperator is the operator of a single predicate.
type ExpressionOperator string

const (
	OperatorEmpty      ExpressionOperator = "empty"
	OperatorNotEmpty   ExpressionOperator = "not-empty"
	OperatorEquals     ExpressionOperator = "equals"
	OperatorNotEquals  ExpressionOperator = "not-equals"
	OperatorLess       ExpressionOperator = "less"
	OperatorLessEquals ExpressionOperator = "less-equals"
	OperatorMore       ExpressionOperator = "more"
	OperatorMoreEquals ExpressionOperator = "more-equals"
	OperatorIn         ExpressionOperator = "in"
	OperatorNotIn      ExpressionOperator = "not-in"
)

// ParseExpressionOperator parses an expression operator literal.
func ParseExpressionOperator(s string) (ExpressionOperator, *kerrors.Error) {
	switch op := ExpressionOperator(strings.TrimSpace(s)); op {
	case OperatorEmpty, OperatorNotEmpty, OperatorEquals, OperatorNotEquals,
		OperatorLess, OperatorLessEquals, OperatorMore, OperatorMoreEquals,
		OperatorIn, OperatorNotIn:
		return op, nil
	default:
		return "", kerrors.StrEnumParse("expression operator", s)
	}
}

// IsUnary reports whether the operator takes no right parameter.
func (op ExpressionOperator) IsUnary() bool {
	return op == OperatorEmpty || op == OperatorNotEmpty
}

// JointType aggregates conditions with And or Or.
type JointType string

const (
	JointTypeAnd JointType = "and"
	JointTypeOr  JointType = "or"
)

// ParseJointType parses a joint type literal.
func ParseJointType(s string) (JointType, *kerrors.Error) {
	switch t := JointType(strings.TrimSpace(s)); t {
	case JointTypeAnd, JointTypeOr:
		return t, nil
	default:
		return "", kerrors.StrEnumParse("joint type", s)
	}
}

// ActionType discriminates the action variants.
type ActionType string

const (
	ActionCopyToMemory ActionType = "copy-to-memory"
	ActionReadRow      ActionType = "read-row"
	ActionReadRows     ActionType = "read-rows"
	ActionExists       ActionType = "exists"
	ActionInsertRow    ActionType = "insert-row"
	ActionDeleteRow    ActionType = "delete-row"
	ActionDeleteRows   ActionType = "delete-rows"
	ActionAlarm        ActionType = "alarm"
)

// ParseActionType parses an action type literal.
func ParseActionType(s string) (ActionType, *kerrors.Error) {
	switch t := ActionType(strings.TrimSpace(s)); t {
	case ActionCopyToMemory, ActionReadRow, ActionReadRows, ActionExists,
		ActionInsertRow, ActionDeleteRow, ActionDeleteRows, ActionAlarm:
		return t, nil
	default:
		return "", kerrors.StrEnumParse("action type", s)
	}
}

// AccumulateMode controls insert-row accumulation.
type AccumulateMode string

const (
	AccumulateStandard AccumulateMode = "standard"
	AccumulateCumulate AccumulateMode = "cumulate"
)

// ParseAccumulateMode parses an accumulate mode literal.
func ParseAccumulateMode(s string) (AccumulateMode, *kerrors.Error) {
	switch m := AccumulateMode(strings.TrimSpace(s)); m {
	case AccumulateStandard, AccumulateCumulate:
		return m, nil
	default:
		return "", kerrors.StrEnumParse("accumulate mode", s)
	}
}

// AlarmSeverity grades alarm events.
type AlarmSeverity string

const (
	SeverityLow      AlarmSeverity = "low"
	SeverityMedium   AlarmSeverity = "medium"
	SeverityHigh     AlarmSeverity = "high"
	SeverityCritical AlarmSeverity = "critical"
)

// ParseAlarmSeverity parses an alarm severity literal.
func ParseAlarmSeverity(s string) (AlarmSeverity, *kerrors.Error) {
	switch v := AlarmSeverity(strings.TrimSpace(s)); v {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return v, nil
	default:
		return "", kerrors.StrEnumParse("alarm severity", s)
	}
}

// FactorArithmetic is the column-level aggregate applied by cumulate
// inserts.
type FactorArithmetic string

const (
	ArithmeticNone  FactorArithmetic = "none"
	ArithmeticSum   FactorArithmetic = "sum"
	ArithmeticAvg   FactorArithmetic = "avg"
	ArithmeticCount FactorArithmetic = "count"
	ArithmeticMax   FactorArithmetic = "max"
	ArithmeticMin   FactorArithmetic = "min"
)

// ParseFactorArithmetic parses a factor arithmetic literal.
func ParseFactorArithmetic(s string) (FactorArithmetic, *kerrors.Error) {
	switch a := FactorArithmetic(strings.TrimSpace(s)); a {
	case ArithmeticNone, ArithmeticSum, ArithmeticAvg, ArithmeticCount,
		ArithmeticMax, ArithmeticMin:
		return a, nil
	default:
		return "", kerrors.StrEnumParse("factor arithmetic", s)
	}
}
