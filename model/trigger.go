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

// Principal carries the identity a trigger arrives under.
type Principal struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
	Role     string `json:"role,omitempty"`
}

// TopicTrigger is the input record of the engine: a topic changed from
// PreviousData to CurrentData under the given principal. All executions
// stemming from one trigger share its TraceID.
type TopicTrigger struct {
	TopicCode    string                 `json:"topicCode"`
	PreviousData map[string]interface{} `json:"previousData,omitempty"`
	CurrentData  map[string]interface{} `json:"currentData,omitempty"`
	Principal    Principal              `json:"principal"`
	TenantID     string                 `json:"tenantId"`
	TraceID      string                 `json:"traceId,omitempty"`
}

// Validate rejects triggers the engine must not accept: a blank topic code
// and a principal whose tenant differs from the trigger's tenant.
func (t *TopicTrigger) Validate() *kerrors.Error {
	if strings.TrimSpace(t.TopicCode) == "" {
		return kerrors.FieldBlank("topic code", "trigger")
	}
	if t.Principal.TenantID != t.TenantID {
		return kerrors.TenantMismatch(t.Principal.TenantID, t.TenantID)
	}
	return nil
}
