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

// Builders for the codes that recur across the kernel. Keeping the message
// text here keeps wording identical wherever a code is raised.

// TopicNotFound reports an unresolvable topic code for a tenant.
func TopicNotFound(tenantID, code string) *Error {
	return New(CodeTopicNotFound, "topic[%s] not found for tenant[%s]", code, tenantID)
}

// PipelineNotFound reports an unresolvable pipeline id for a tenant.
func PipelineNotFound(tenantID, pipelineID string) *Error {
	return New(CodePipelineNotFound, "pipeline[%s] not found for tenant[%s]", pipelineID, tenantID)
}

// FactorNotFound reports a factor id that is not declared on a topic.
func FactorNotFound(topicCode, factorID string) *Error {
	return New(CodeFactorNotFound, "factor[%s] not found on topic[%s]", factorID, topicCode)
}

// TopicIDMissed reports a required topic id that is missing or blank.
func TopicIDMissed(location string) *Error {
	return New(CodeTopicIDMissed, "topic id is required").At(location)
}

// FactorIDMissed reports a required factor id that is missing or blank.
func FactorIDMissed(location string) *Error {
	return New(CodeFactorIDMissed, "factor id is required").At(location)
}

// ActionMappingFactorMissed reports an insert-row action without mapping
// factors.
func ActionMappingFactorMissed(location string) *Error {
	return New(CodeMappingFactorMissed, "at least one mapping factor is required").At(location)
}

// JointFiltersMissed reports a joint without child conditions.
func JointFiltersMissed(location string) *Error {
	return New(CodeJointFiltersMissed, "joint filters must not be empty").At(location)
}

// FieldMissed reports any other required field that is missing.
func FieldMissed(field, location string) *Error {
	return New(CodeFieldMissed, "%s is required", field).At(location)
}

// FieldBlank reports a string field that is present but blank after trim.
func FieldBlank(field, location string) *Error {
	return New(CodeFieldBlank, "%s must not be blank", field).At(location)
}

// VariableMissed reports an action without a target variable name.
func VariableMissed(location string) *Error {
	return New(CodeVariableMissed, "variable name is required").At(location)
}

// AlarmOnMissed reports a conditional alarm without an on joint.
func AlarmOnMissed(location string) *Error {
	return New(CodeAlarmOnMissed, "conditional alarm requires an on joint").At(location)
}

// StrEnumParse reports an unknown enum literal.
func StrEnumParse(enum, value string) *Error {
	return New(CodeStrEnumParse, "unknown %s value [%s]", enum, value)
}

// PathParse reports a blank or malformed range inside a factor path. The
// offsets are half-open character positions into the original path string.
func PathParse(path string, start, end int) *Error {
	return New(CodePathParse, "path[%s] is malformed at [%d,%d)", path, start, end)
}

// DecimalParse reports a string that should be decimal but is not.
func DecimalParse(s string) *Error {
	return New(CodeDecimalParse, "value[%s] is not a decimal", s)
}

// ComparisonMismatch reports a comparison over incomparable variants.
func ComparisonMismatch(op string, left, right interface{}) *Error {
	return New(CodeComparisonMismatch, "cannot apply %s to [%v] and [%v]", op, left, right)
}

// ArithmeticMismatch reports arithmetic over non-numeric operands.
func ArithmeticMismatch(op string, operand interface{}) *Error {
	return New(CodeArithmeticMismatch, "cannot apply %s to [%v]", op, operand)
}

// CurrentDataNotFound reports a read of the current trigger row when the
// trigger carried none.
func CurrentDataNotFound() *Error {
	return New(CodeCurrentDataNotFound, "current trigger data is not available")
}

// RowIntegrity reports a single-row operation that matched more than one row.
func RowIntegrity(op, topicCode string, matched int) *Error {
	return New(CodeRowIntegrity, "%s on topic[%s] matched %d rows, expected at most one", op, topicCode, matched)
}

// TenantMismatch reports a trigger whose principal belongs to another tenant.
func TenantMismatch(principalTenant, triggerTenant string) *Error {
	return New(CodeTenantMismatch, "principal tenant[%s] does not match trigger tenant[%s]", principalTenant, triggerTenant)
}
