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

package schema

import (
	"fmt"
	"strings"

	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/model"
)

// The normalizer traverses the raw tree bottom-up, trimming string fields,
// rejecting blank or missing required ones and applying the documented
// defaults. Every rejection is collected; the caller receives one Multiple
// error per tree, ordered by traversal. Input trees are never mutated.

// NormalizePipeline validates a raw pipeline into its immutable schema
// form. Disabled pipelines normalize like enabled ones; skipping them is a
// runtime concern.
func NormalizePipeline(raw *model.Pipeline) (*Pipeline, error) {
	if raw == nil {
		return nil, kerrors.FieldMissed("pipeline", "Pipeline")
	}
	anchor := fmt.Sprintf("Pipeline[%s]", firstNonBlank(raw.PipelineID, raw.Name))
	acc := &kerrors.Accumulator{}

	p := &Pipeline{
		PipelineID: requireString(raw.PipelineID, "pipeline id", anchor, acc),
		Name:       requireString(raw.Name, "pipeline name", anchor, acc),
		TopicID:    requireString(raw.TopicID, "topic id", anchor, acc),
		TenantID:   requireString(raw.TenantID, "tenant id", anchor, acc),
		Enabled:    raw.Enabled,
		On:         normalizeGate(raw.Conditional, raw.On, anchor, acc),
	}
	for _, rawStage := range raw.Stages {
		if stage := normalizeStage(rawStage, acc); stage != nil {
			p.Stages = append(p.Stages, stage)
		}
	}
	if err := acc.Result(anchor); err != nil {
		return nil, err
	}
	return p, nil
}

func normalizeStage(raw *model.Stage, acc *kerrors.Accumulator) *Stage {
	if raw == nil {
		acc.Add(kerrors.FieldMissed("stage", "Stage"))
		return nil
	}
	anchor := fmt.Sprintf("Stage[%s]", firstNonBlank(raw.StageID, raw.Name))
	stage := &Stage{
		StageID: requireString(raw.StageID, "stage id", anchor, acc),
		Name:    strings.TrimSpace(raw.Name),
		On:      normalizeGate(raw.Conditional, raw.On, anchor, acc),
	}
	for _, rawUnit := range raw.Units {
		if unit := normalizeUnit(rawUnit, acc); unit != nil {
			stage.Units = append(stage.Units, unit)
		}
	}
	return stage
}

func normalizeUnit(raw *model.Unit, acc *kerrors.Accumulator) *Unit {
	if raw == nil {
		acc.Add(kerrors.FieldMissed("unit", "Unit"))
		return nil
	}
	anchor := fmt.Sprintf("Unit[%s]", firstNonBlank(raw.UnitID, raw.Name))
	unit := &Unit{
		UnitID: requireString(raw.UnitID, "unit id", anchor, acc),
		Name:   strings.TrimSpace(raw.Name),
		On:     normalizeGate(raw.Conditional, raw.On, anchor, acc),
	}
	for _, rawAction := range raw.Do {
		if action := normalizeAction(rawAction, acc); action != nil {
			unit.Do = append(unit.Do, action)
		}
	}
	return unit
}

// normalizeGate applies the conditional-gate rule: when conditional is true
// the on condition is required; when false it is dropped even if present.
func normalizeGate(conditional bool, on *model.Condition, anchor string, acc *kerrors.Accumulator) *Joint {
	if !conditional {
		return nil
	}
	if on == nil {
		acc.Add(kerrors.FieldMissed("on", anchor))
		return nil
	}
	return normalizeAsJoint(on, anchor, acc)
}

// normalizeAsJoint normalizes a condition that must be a joint; a bare
// expression is wrapped into a single-filter And joint.
func normalizeAsJoint(raw *model.Condition, anchor string, acc *kerrors.Accumulator) *Joint {
	if raw == nil {
		acc.Add(kerrors.FieldMissed("condition", anchor))
		return nil
	}
	if raw.IsJoint() {
		return normalizeJoint(raw, anchor, acc)
	}
	cond := normalizeCondition(raw, anchor, acc)
	if cond == nil {
		return nil
	}
	return &Joint{Type: model.JointTypeAnd, Filters: []*Condition{cond}}
}

func normalizeJoint(raw *model.Condition, anchor string, acc *kerrors.Accumulator) *Joint {
	jointType, kerr := model.ParseJointType(raw.JointType)
	if kerr != nil {
		acc.Add(kerr.At(anchor))
		return nil
	}
	if len(raw.Filters) == 0 {
		acc.Add(kerrors.JointFiltersMissed(anchor))
		return nil
	}
	joint := &Joint{Type: jointType}
	for _, rawFilter := range raw.Filters {
		if cond := normalizeCondition(rawFilter, anchor, acc); cond != nil {
			joint.Filters = append(joint.Filters, cond)
		}
	}
	return joint
}

func normalizeCondition(raw *model.Condition, anchor string, acc *kerrors.Accumulator) *Condition {
	if raw == nil {
		acc.Add(kerrors.FieldMissed("condition", anchor))
		return nil
	}
	if raw.IsJoint() {
		joint := normalizeJoint(raw, anchor, acc)
		if joint == nil {
			return nil
		}
		return &Condition{Joint: joint}
	}
	expr := normalizeExpression(raw, anchor, acc)
	if expr == nil {
		return nil
	}
	return &Condition{Expression: expr}
}

func normalizeExpression(raw *model.Condition, anchor string, acc *kerrors.Accumulator) *Expression {
	left := NormalizeParameter(raw.Left, anchor, acc)
	if strings.TrimSpace(raw.Operator) == "" {
		acc.Add(kerrors.FieldMissed("expression operator", anchor))
		return nil
	}
	operator, kerr := model.ParseExpressionOperator(raw.Operator)
	if kerr != nil {
		acc.Add(kerr.At(anchor))
		return nil
	}
	var right *Parameter
	// unary operators drop any supplied right parameter
	if !operator.IsUnary() {
		right = NormalizeParameter(raw.Right, anchor, acc)
	}
	if left == nil || (!operator.IsUnary() && right == nil) {
		return nil
	}
	return &Expression{Left: left, Operator: operator, Right: right}
}

// NormalizeParameter validates a raw parameter bottom-up.
func NormalizeParameter(raw *model.Parameter, anchor string, acc *kerrors.Accumulator) *Parameter {
	if raw == nil {
		acc.Add(kerrors.FieldMissed("parameter", anchor))
		return nil
	}
	if raw.Kind == "" {
		acc.Add(kerrors.FieldMissed("parameter kind", anchor))
		return nil
	}
	kind, kerr := model.ParseParameterKind(string(raw.Kind))
	if kerr != nil {
		acc.Add(kerr.At(anchor))
		return nil
	}
	switch kind {
	case model.ParameterKindTopic:
		p := &Parameter{Kind: kind}
		p.TopicID = strings.TrimSpace(raw.TopicID)
		if p.TopicID == "" {
			acc.Add(kerrors.TopicIDMissed(anchor))
		}
		p.FactorID = strings.TrimSpace(raw.FactorID)
		if p.FactorID == "" {
			acc.Add(kerrors.FactorIDMissed(anchor))
		}
		if p.TopicID == "" || p.FactorID == "" {
			return nil
		}
		return p
	case model.ParameterKindConstant:
		v := strings.TrimSpace(raw.Value)
		if v == "" {
			acc.Add(kerrors.FieldBlank("constant value", anchor))
			return nil
		}
		return &Parameter{Kind: kind, Value: v}
	default: // computed
		return normalizeComputed(raw, anchor, acc)
	}
}

func normalizeComputed(raw *model.Parameter, anchor string, acc *kerrors.Accumulator) *Parameter {
	if raw.Type == "" {
		acc.Add(kerrors.FieldMissed("compute type", anchor))
		return nil
	}
	compute, kerr := model.ParseComputeType(string(raw.Type))
	if kerr != nil {
		acc.Add(kerr.At(anchor))
		return nil
	}
	minChildren := 1
	if compute == model.ComputeTypeNone {
		// coalesce needs something to fall back to
		minChildren = 2
	}
	if len(raw.Parameters) < minChildren {
		acc.Add(kerrors.New(kerrors.CodeParameterInvalid,
			"compute[%s] requires at least %d parameter(s)", compute, minChildren).At(anchor))
		return nil
	}
	if compute.IsUnary() && len(raw.Parameters) > 1 {
		acc.Add(kerrors.New(kerrors.CodeParameterInvalid,
			"compute[%s] takes exactly one parameter", compute).At(anchor))
		return nil
	}
	p := &Parameter{Kind: model.ParameterKindComputed, Compute: compute}
	ok := true
	for _, rawChild := range raw.Parameters {
		child := NormalizeParameter(rawChild, anchor, acc)
		if child == nil {
			ok = false
			continue
		}
		p.Children = append(p.Children, child)
	}
	if !ok {
		return nil
	}
	return p
}

func normalizeAction(raw *model.Action, acc *kerrors.Accumulator) *Action {
	if raw == nil {
		acc.Add(kerrors.FieldMissed("action", "Action"))
		return nil
	}
	if strings.TrimSpace(raw.Type) == "" {
		acc.Add(kerrors.FieldMissed("action type", fmt.Sprintf("Action[%s]", raw.ActionID)))
		return nil
	}
	actionType, kerr := model.ParseActionType(raw.Type)
	if kerr != nil {
		acc.Add(kerr.At(fmt.Sprintf("Action[%s]", raw.ActionID)))
		return nil
	}
	anchor := actionAnchor(actionType, raw.ActionID)
	before := acc.Len()
	action := &Action{
		ActionID: requireString(raw.ActionID, "action id", anchor, acc),
		Type:     actionType,
	}

	switch actionType {
	case model.ActionCopyToMemory:
		action.Source = NormalizeParameter(raw.Source, anchor, acc)
		action.VariableName = requireVariable(raw.VariableName, anchor, acc)
	case model.ActionReadRow, model.ActionReadRows, model.ActionExists:
		action.TopicID = requireTopicID(raw.TopicID, anchor, acc)
		action.By = requireBy(raw.By, anchor, acc)
		action.VariableName = requireVariable(raw.VariableName, anchor, acc)
	case model.ActionInsertRow:
		action.TopicID = requireTopicID(raw.TopicID, anchor, acc)
		if len(raw.Mapping) == 0 {
			acc.Add(kerrors.ActionMappingFactorMissed(anchor))
		}
		for _, rawMapping := range raw.Mapping {
			if mf := normalizeMappingFactor(rawMapping, anchor, acc); mf != nil {
				action.Mapping = append(action.Mapping, mf)
			}
		}
		action.AccumulateMode = normalizeAccumulateMode(raw.AccumulateMode, anchor, acc)
		if raw.By != nil {
			action.By = normalizeAsJoint(raw.By, anchor, acc)
		}
	case model.ActionDeleteRow, model.ActionDeleteRows:
		action.TopicID = requireTopicID(raw.TopicID, anchor, acc)
		action.By = requireBy(raw.By, anchor, acc)
	case model.ActionAlarm:
		action.Severity = normalizeSeverity(raw.Severity, anchor, acc)
		action.Message = strings.TrimSpace(raw.Message)
		if raw.Conditional {
			if raw.On == nil {
				acc.Add(kerrors.AlarmOnMissed(anchor))
			} else {
				action.On = normalizeAsJoint(raw.On, anchor, acc)
			}
		}
	}
	if acc.Len() > before {
		return nil
	}
	return action
}

func normalizeMappingFactor(raw *model.MappingFactor, anchor string, acc *kerrors.Accumulator) *MappingFactor {
	if raw == nil {
		acc.Add(kerrors.FieldMissed("mapping factor", anchor))
		return nil
	}
	mf := &MappingFactor{
		Source:   NormalizeParameter(raw.Source, anchor, acc),
		FactorID: strings.TrimSpace(raw.FactorID),
	}
	if mf.FactorID == "" {
		acc.Add(kerrors.FactorIDMissed(anchor))
		return nil
	}
	if strings.TrimSpace(raw.Arithmetic) == "" {
		mf.Arithmetic = model.ArithmeticNone
	} else {
		arithmetic, kerr := model.ParseFactorArithmetic(raw.Arithmetic)
		if kerr != nil {
			acc.Add(kerr.At(anchor))
			return nil
		}
		mf.Arithmetic = arithmetic
	}
	if mf.Source == nil {
		return nil
	}
	return mf
}

func normalizeAccumulateMode(raw, anchor string, acc *kerrors.Accumulator) model.AccumulateMode {
	if strings.TrimSpace(raw) == "" {
		return model.AccumulateStandard
	}
	mode, kerr := model.ParseAccumulateMode(raw)
	if kerr != nil {
		acc.Add(kerr.At(anchor))
		return model.AccumulateStandard
	}
	return mode
}

func normalizeSeverity(raw, anchor string, acc *kerrors.Accumulator) model.AlarmSeverity {
	if strings.TrimSpace(raw) == "" {
		return model.SeverityMedium
	}
	severity, kerr := model.ParseAlarmSeverity(raw)
	if kerr != nil {
		acc.Add(kerr.At(anchor))
		return model.SeverityMedium
	}
	return severity
}

// actionAnchor renders the human-readable anchor of an action for error
// locations, e.g. "Insert row action[a-1]".
func actionAnchor(t model.ActionType, id string) string {
	var label string
	switch t {
	case model.ActionCopyToMemory:
		label = "Copy to memory action"
	case model.ActionReadRow:
		label = "Read row action"
	case model.ActionReadRows:
		label = "Read rows action"
	case model.ActionExists:
		label = "Exists action"
	case model.ActionInsertRow:
		label = "Insert row action"
	case model.ActionDeleteRow:
		label = "Delete row action"
	case model.ActionDeleteRows:
		label = "Delete rows action"
	case model.ActionAlarm:
		label = "Alarm action"
	default:
		label = "Action"
	}
	return fmt.Sprintf("%s[%s]", label, id)
}

func requireString(raw, field, anchor string, acc *kerrors.Accumulator) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		acc.Add(kerrors.FieldBlank(field, anchor))
	}
	return v
}

func requireVariable(raw, anchor string, acc *kerrors.Accumulator) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		acc.Add(kerrors.VariableMissed(anchor))
	}
	return v
}

func requireTopicID(raw, anchor string, acc *kerrors.Accumulator) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		acc.Add(kerrors.TopicIDMissed(anchor))
	}
	return v
}

func requireBy(raw *model.Condition, anchor string, acc *kerrors.Accumulator) *Joint {
	if raw == nil {
		acc.Add(kerrors.FieldMissed("by", anchor))
		return nil
	}
	return normalizeAsJoint(raw, anchor, acc)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// NormalizeTopic validates raw topic metadata.
func NormalizeTopic(raw *model.Topic) (*Topic, error) {
	if raw == nil {
		return nil, kerrors.FieldMissed("topic", "Topic")
	}
	anchor := fmt.Sprintf("Topic[%s]", firstNonBlank(raw.Code, raw.TopicID))
	acc := &kerrors.Accumulator{}

	t := &Topic{
		TopicID:  requireString(raw.TopicID, "topic id", anchor, acc),
		TenantID: requireString(raw.TenantID, "tenant id", anchor, acc),
		Code:     requireString(raw.Code, "topic code", anchor, acc),
		Name:     strings.TrimSpace(raw.Name),
		byID:     make(map[string]*Factor),
		byName:   make(map[string]*Factor),
	}
	if raw.Kind == "" {
		t.Kind = model.TopicKindRaw
	} else {
		kind, kerr := model.ParseTopicKind(string(raw.Kind))
		if kerr != nil {
			acc.Add(kerr.At(anchor))
		} else {
			t.Kind = kind
		}
	}
	for _, rawFactor := range raw.Factors {
		factor := normalizeFactor(rawFactor, anchor, acc)
		if factor == nil {
			continue
		}
		t.Factors = append(t.Factors, factor)
		t.byID[factor.FactorID] = factor
		t.byName[factor.Name] = factor
	}
	if err := acc.Result(anchor); err != nil {
		return nil, err
	}
	return t, nil
}

func normalizeFactor(raw *model.Factor, anchor string, acc *kerrors.Accumulator) *Factor {
	if raw == nil {
		acc.Add(kerrors.FieldMissed("factor", anchor))
		return nil
	}
	factor := &Factor{
		FactorID: requireString(raw.FactorID, "factor id", anchor, acc),
		Name:     requireString(raw.Name, "factor name", anchor, acc),
	}
	if raw.Type == "" {
		factor.Type = model.FactorTypeText
	} else {
		factorType, kerr := model.ParseFactorType(string(raw.Type))
		if kerr != nil {
			acc.Add(kerr.At(anchor))
			return nil
		}
		factor.Type = factorType
	}
	if factor.FactorID == "" || factor.Name == "" {
		return nil
	}
	return factor
}
