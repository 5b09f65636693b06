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

package kerrors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorRendering(t *testing.T) {
	err := TopicNotFound("t-1", "order")
	assert.Equal(t, CodeTopicNotFound, err.Code)
	assert.Contains(t, err.Error(), "PLKN-00001")
	assert.Contains(t, err.Error(), "order")
}

func TestErrorJSONShape(t *testing.T) {
	err := FieldBlank("name", "Pipeline[p-1]")
	raw, jerr := json.Marshal(err)
	require.NoError(t, jerr)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, string(CodeFieldBlank), decoded["code"])
	assert.NotEmpty(t, decoded["details"])
}

func TestMultipleJSONNestsDetails(t *testing.T) {
	err := Multiple("Pipeline[p-1]",
		TopicIDMissed("Insert row action[a-1]"),
		ActionMappingFactorMissed("Insert row action[a-1]"),
	)
	raw, jerr := json.Marshal(err)
	require.NoError(t, jerr)

	var decoded struct {
		Code    string            `json:"code"`
		Details []json.RawMessage `json:"details"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, string(CodeMultiple), decoded.Code)
	assert.Len(t, decoded.Details, 2)
}

func TestAccumulatorFlattensMultiple(t *testing.T) {
	inner := Multiple("Unit[u-1]",
		FieldBlank("a", "x"),
		FieldBlank("b", "x"),
	)
	acc := &Accumulator{}
	acc.Add(FieldMissed("c", "y"))
	acc.Add(inner)

	require.Equal(t, 3, acc.Len(), "nested multiples flatten")
	err := acc.Result("Pipeline[p-1]")
	require.NotNil(t, err)
	assert.Equal(t, CodeMultiple, err.Code)
	assert.Len(t, err.Nested, 3)
}

func TestAccumulatorEmptyResult(t *testing.T) {
	acc := &Accumulator{}
	assert.True(t, acc.Empty())
	assert.Nil(t, acc.Result("anywhere"))
}

func TestHasCode(t *testing.T) {
	err := Multiple("Pipeline[p-1]", TopicIDMissed("a"), FieldBlank("b", "c"))
	assert.True(t, HasCode(err, CodeTopicIDMissed))
	assert.True(t, HasCode(err, CodeFieldBlank))
	assert.False(t, HasCode(err, CodeTenantMismatch))
	assert.False(t, HasCode(nil, CodeTopicIDMissed))
	assert.False(t, HasCode(errors.New("plain"), CodeTopicIDMissed))
}

func TestFromWrapsForeignErrors(t *testing.T) {
	plain := errors.New("boom")
	wrapped := From(plain)
	assert.Equal(t, CodeUnknown, wrapped.Code)
	assert.Contains(t, wrapped.Error(), "boom")

	already := TenantMismatch("t-1", "t-2")
	assert.Same(t, already, From(already), "kernel errors pass through")
}

func TestAt(t *testing.T) {
	err := FieldBlank("name", "Stage[s-1]").At("Pipeline[p-1]")
	assert.Contains(t, err.Error(), "Pipeline[p-1]")
}
