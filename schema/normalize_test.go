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
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/model"
)

func constant(v string) *model.Parameter {
	return &model.Parameter{Kind: model.ParameterKindConstant, Value: v}
}

func topicParam(topicID, factorID string) *model.Parameter {
	return &model.Parameter{Kind: model.ParameterKindTopic, TopicID: topicID, FactorID: factorID}
}

func equalsCondition(left, right *model.Parameter) *model.Condition {
	return &model.Condition{
		JointType: "and",
		Filters: []*model.Condition{
			{Left: left, Operator: "equals", Right: right},
		},
	}
}

func validPipeline() *model.Pipeline {
	return &model.Pipeline{
		PipelineID: "p-1",
		Name:       "order pipeline",
		TopicID:    "t-order",
		TenantID:   "tenant-1",
		Enabled:    true,
		Stages: []*model.Stage{
			{
				StageID: "s-1",
				Units: []*model.Unit{
					{
						UnitID: "u-1",
						Do: []*model.Action{
							{
								ActionID:     "a-1",
								Type:         "copy-to-memory",
								Source:       topicParam("t-order", "f-customer"),
								VariableName: "customer_id",
							},
						},
					},
				},
			},
		},
	}
}

// TestNormalizePipeline_Valid tests a well-formed pipeline
func TestNormalizePipeline_Valid(t *testing.T) {
	p, err := NormalizePipeline(validPipeline())
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.PipelineID)
	assert.Nil(t, p.On)
	require.Len(t, p.Stages, 1)
	require.Len(t, p.Stages[0].Units, 1)
	require.Len(t, p.Stages[0].Units[0].Do, 1)

	action := p.Stages[0].Units[0].Do[0]
	assert.Equal(t, model.ActionCopyToMemory, action.Type)
	assert.Equal(t, "customer_id", action.VariableName)
}

// TestNormalizePipeline_TrimsFields tests string trimming
func TestNormalizePipeline_TrimsFields(t *testing.T) {
	raw := validPipeline()
	raw.PipelineID = "  p-1  "
	raw.Name = " order pipeline "

	p, err := NormalizePipeline(raw)
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.PipelineID)
	assert.Equal(t, "order pipeline", p.Name)
}

// TestNormalizePipeline_BlankRequired tests blank required fields
func TestNormalizePipeline_BlankRequired(t *testing.T) {
	raw := validPipeline()
	raw.TopicID = "   "

	_, err := NormalizePipeline(raw)
	require.Error(t, err)
	assert.True(t, kerrors.HasCode(err, kerrors.CodeFieldBlank))
}

// TestNormalizeGate tests the conditional-gate rule
func TestNormalizeGate(t *testing.T) {
	t.Run("conditional without on is rejected", func(t *testing.T) {
		raw := validPipeline()
		raw.Conditional = true
		_, err := NormalizePipeline(raw)
		require.Error(t, err)
		assert.True(t, kerrors.HasCode(err, kerrors.CodeFieldMissed))
	})

	t.Run("on dropped when not conditional", func(t *testing.T) {
		raw := validPipeline()
		raw.Conditional = false
		raw.On = equalsCondition(topicParam("t-order", "f-status"), constant("PAID"))
		p, err := NormalizePipeline(raw)
		require.NoError(t, err)
		assert.Nil(t, p.On)
	})

	t.Run("conditional with joint", func(t *testing.T) {
		raw := validPipeline()
		raw.Conditional = true
		raw.On = equalsCondition(topicParam("t-order", "f-status"), constant("PAID"))
		p, err := NormalizePipeline(raw)
		require.NoError(t, err)
		require.NotNil(t, p.On)
		assert.Equal(t, model.JointTypeAnd, p.On.Type)
		require.Len(t, p.On.Filters, 1)
	})

	t.Run("bare expression wrapped into and joint", func(t *testing.T) {
		raw := validPipeline()
		raw.Conditional = true
		raw.On = &model.Condition{
			Left:     topicParam("t-order", "f-status"),
			Operator: "not-empty",
		}
		p, err := NormalizePipeline(raw)
		require.NoError(t, err)
		require.NotNil(t, p.On)
		assert.Equal(t, model.JointTypeAnd, p.On.Type)
	})
}

// TestNormalizeJoint_EmptyFilters tests that empty joint filters are invalid
func TestNormalizeJoint_EmptyFilters(t *testing.T) {
	raw := validPipeline()
	raw.Conditional = true
	raw.On = &model.Condition{JointType: "and"}

	_, err := NormalizePipeline(raw)
	require.Error(t, err)
	assert.True(t, kerrors.HasCode(err, kerrors.CodeJointFiltersMissed))
}

// TestNormalizeParameter tests parameter variants
func TestNormalizeParameter(t *testing.T) {
	t.Run("topic requires both ids", func(t *testing.T) {
		acc := &kerrors.Accumulator{}
		p := NormalizeParameter(&model.Parameter{Kind: model.ParameterKindTopic}, "anchor", acc)
		assert.Nil(t, p)
		err := acc.Result("anchor")
		assert.True(t, kerrors.HasCode(err, kerrors.CodeTopicIDMissed))
		assert.True(t, kerrors.HasCode(err, kerrors.CodeFactorIDMissed))
	})

	t.Run("constant requires non-blank value", func(t *testing.T) {
		acc := &kerrors.Accumulator{}
		p := NormalizeParameter(constant("  "), "anchor", acc)
		assert.Nil(t, p)
		assert.True(t, kerrors.HasCode(acc.Result("anchor"), kerrors.CodeFieldBlank))
	})

	t.Run("unknown kind", func(t *testing.T) {
		acc := &kerrors.Accumulator{}
		p := NormalizeParameter(&model.Parameter{Kind: "mystery"}, "anchor", acc)
		assert.Nil(t, p)
		assert.True(t, kerrors.HasCode(acc.Result("anchor"), kerrors.CodeStrEnumParse))
	})

	t.Run("computed coalesce arity", func(t *testing.T) {
		acc := &kerrors.Accumulator{}
		p := NormalizeParameter(&model.Parameter{
			Kind:       model.ParameterKindComputed,
			Type:       model.ComputeTypeNone,
			Parameters: []*model.Parameter{constant("1")},
		}, "anchor", acc)
		assert.Nil(t, p)
		assert.True(t, kerrors.HasCode(acc.Result("anchor"), kerrors.CodeParameterInvalid))
	})

	t.Run("computed add", func(t *testing.T) {
		acc := &kerrors.Accumulator{}
		p := NormalizeParameter(&model.Parameter{
			Kind:       model.ParameterKindComputed,
			Type:       model.ComputeTypeAdd,
			Parameters: []*model.Parameter{constant("1"), constant("2")},
		}, "anchor", acc)
		require.True(t, acc.Empty())
		require.NotNil(t, p)
		assert.Len(t, p.Children, 2)
	})

	t.Run("unary takes exactly one child", func(t *testing.T) {
		acc := &kerrors.Accumulator{}
		p := NormalizeParameter(&model.Parameter{
			Kind:       model.ParameterKindComputed,
			Type:       model.ComputeTypeDayOfMonth,
			Parameters: []*model.Parameter{constant("2024-01-01"), constant("2024-01-02")},
		}, "anchor", acc)
		assert.Nil(t, p)
		assert.False(t, acc.Empty())
	})
}

// TestNormalizeAction_InsertRowAccumulation tests that one action reports
// all its validation failures in a single Multiple error, in traversal
// order
func TestNormalizeAction_InsertRowAccumulation(t *testing.T) {
	raw := validPipeline()
	raw.Stages[0].Units[0].Do = []*model.Action{
		{ActionID: "a-1", Type: "insert-row"},
	}

	_, err := NormalizePipeline(raw)
	require.Error(t, err)

	ke := kerrors.From(err)
	assert.Equal(t, kerrors.CodeMultiple, ke.Code)
	require.Len(t, ke.Nested, 2)
	assert.Equal(t, kerrors.CodeTopicIDMissed, ke.Nested[0].Code)
	assert.Equal(t, kerrors.CodeMappingFactorMissed, ke.Nested[1].Code)
	assert.Contains(t, ke.Nested[0].Location, "Insert row action[a-1]")
}

// TestNormalizeAction_Defaults tests documented defaults
func TestNormalizeAction_Defaults(t *testing.T) {
	raw := validPipeline()
	raw.Stages[0].Units[0].Do = []*model.Action{
		{
			ActionID: "a-1",
			Type:     "insert-row",
			TopicID:  "t-target",
			Mapping: []*model.MappingFactor{
				{Source: constant("1"), FactorID: "f-count"},
			},
		},
		{ActionID: "a-2", Type: "alarm", Message: "over threshold"},
	}

	p, err := NormalizePipeline(raw)
	require.NoError(t, err)

	insert := p.Stages[0].Units[0].Do[0]
	assert.Equal(t, model.AccumulateStandard, insert.AccumulateMode)
	assert.Equal(t, model.ArithmeticNone, insert.Mapping[0].Arithmetic)

	alarm := p.Stages[0].Units[0].Do[1]
	assert.Equal(t, model.SeverityMedium, alarm.Severity)
	assert.Nil(t, alarm.On)
}

// TestNormalizeAction_ConditionalAlarm tests the alarm on-joint rule
func TestNormalizeAction_ConditionalAlarm(t *testing.T) {
	raw := validPipeline()
	raw.Stages[0].Units[0].Do = []*model.Action{
		{ActionID: "a-1", Type: "alarm", Conditional: true},
	}

	_, err := NormalizePipeline(raw)
	require.Error(t, err)
	assert.True(t, kerrors.HasCode(err, kerrors.CodeAlarmOnMissed))
}

// TestNormalize_Idempotence tests that re-normalizing a rendered schema
// tree yields an equal tree
func TestNormalize_Idempotence(t *testing.T) {
	raw := validPipeline()
	raw.Conditional = true
	raw.On = equalsCondition(topicParam("t-order", "f-status"), constant("PAID"))
	raw.Stages[0].Units[0].Do = append(raw.Stages[0].Units[0].Do, &model.Action{
		ActionID: "a-2",
		Type:     "insert-row",
		TopicID:  "t-target",
		Mapping: []*model.MappingFactor{
			{Source: constant("1"), FactorID: "f-count", Arithmetic: "sum"},
		},
		AccumulateMode: "cumulate",
		By:             equalsCondition(topicParam("t-target", "f-count"), constant("1")),
	})

	first, err := NormalizePipeline(raw)
	require.NoError(t, err)
	require.NotNil(t, first.Stages[0].Units[0].Do[1].By)

	second, err := NormalizePipeline(first.Raw())
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(first, second))
}

// TestNormalizeTopic tests topic metadata normalization
func TestNormalizeTopic(t *testing.T) {
	topic, err := NormalizeTopic(&model.Topic{
		TopicID:  "t-order",
		TenantID: "tenant-1",
		Code:     "order",
		Kind:     model.TopicKindRaw,
		Factors: []*model.Factor{
			{FactorID: "f-status", Name: "status", Type: model.FactorTypeText},
			{FactorID: "f-total", Name: "total", Type: model.FactorTypeNumber},
		},
	})
	require.NoError(t, err)

	f, ok := topic.FactorByID("f-status")
	require.True(t, ok)
	assert.Equal(t, "status", f.Name)

	f, ok = topic.FactorByName("total")
	require.True(t, ok)
	assert.Equal(t, "f-total", f.FactorID)

	_, ok = topic.FactorByID("nope")
	assert.False(t, ok)
}

// TestNormalizeTopic_Invalid tests rejection of bad topic metadata
func TestNormalizeTopic_Invalid(t *testing.T) {
	_, err := NormalizeTopic(&model.Topic{
		TopicID: "t-1",
		Code:    "order",
		Kind:    "weird",
	})
	require.Error(t, err)
	assert.True(t, kerrors.HasCode(err, kerrors.CodeStrEnumParse))
	assert.True(t, kerrors.HasCode(err, kerrors.CodeFieldBlank))
}
