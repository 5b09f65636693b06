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

// Package kerrors defines the stable error-code taxonomy of the TopicFlow
// kernel. Every error surfaced by the engine carries one of the string codes
// below, grouped by prefix: PLKN-* pipeline kernel, RTMK-* runtime kernel,
// MDLE-* model, AUTH-* auth. An error holds either a single message or a
// nested list of errors accumulated during schema validation.
package kerrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Code is a stable string error code, e.g. "PLKN-00009".
type Code string

// Pipeline kernel codes
const (
	CodeTopicNotFound       Code = "PLKN-00001"
	CodePipelineNotFound    Code = "PLKN-00002"
	CodeFactorNotFound      Code = "PLKN-00003"
	CodeParameterInvalid    Code = "PLKN-00004"
	CodeConditionInvalid    Code = "PLKN-00005"
	CodeActionInvalid       Code = "PLKN-00006"
	CodeVariableMissed      Code = "PLKN-00007"
	CodeCurrentDataNotFound Code = "PLKN-00008"
	CodeTenantMismatch      Code = "PLKN-00009"
	CodeMultiple            Code = "PLKN-00010"
	CodePathParse           Code = "PLKN-00011"
	CodeTopicIDMissed       Code = "PLKN-00012"
	CodeFactorIDMissed      Code = "PLKN-00013"
	CodeMappingFactorMissed Code = "PLKN-00014"
	CodeJointFiltersMissed  Code = "PLKN-00015"
	CodeAlarmOnMissed       Code = "PLKN-00016"
)

// Runtime kernel codes
const (
	CodeComparisonMismatch Code = "RTMK-00001"
	CodeArithmeticMismatch Code = "RTMK-00002"
	CodeInNotSearchable    Code = "RTMK-00003"
	CodeDateConvert        Code = "RTMK-00004"
	CodeDecimalParse       Code = "RTMK-00005"
	CodeRowIntegrity       Code = "RTMK-00006"
	CodeStorageFailed      Code = "RTMK-00007"
	CodeDeadlineExceeded   Code = "RTMK-00008"
)

// Model codes
const (
	CodeStrEnumParse  Code = "MDLE-00001"
	CodeFieldMissed   Code = "MDLE-00002"
	CodeFieldBlank    Code = "MDLE-00003"
	CodeKeyStoreMissed Code = "MDLE-00004"
)

// Auth codes
const (
	CodeAuthScheme       Code = "AUTH-00001"
	CodeAuthTokenInvalid Code = "AUTH-00002"
)

// CodeUnknown wraps anything that is not already a kernel error.
const CodeUnknown Code = "RTMK-99999"

// Error is the structured kernel error. It carries a stable Code and either
// a single Message or a Nested list accumulated during validation. Location
// is a human-readable anchor attached at the call site that accumulates,
// e.g. "Insert row action[a-1]".
type Error struct {
	Code     Code
	Message  string
	Location string
	Nested   []*Error
}

// New creates an error with the given code and formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Multiple bundles validation errors collected over one tree traversal.
// Ordering of nested errors reflects the traversal order of the validator.
func Multiple(location string, errs ...*Error) *Error {
	return &Error{Code: CodeMultiple, Location: location, Nested: errs}
}

// At attaches a location anchor and returns the same error.
func (e *Error) At(location string) *Error {
	e.Location = location
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))
	if e.Location != "" {
		b.WriteString(" ")
		b.WriteString(e.Location)
		b.WriteString(":")
	}
	if e.Message != "" {
		b.WriteString(" ")
		b.WriteString(e.Message)
	}
	if len(e.Nested) > 0 {
		parts := make([]string, 0, len(e.Nested))
		for _, n := range e.Nested {
			parts = append(parts, n.Error())
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString("]")
	}
	return b.String()
}

// payload is the wire form: {code, details} where details is a string for a
// single error or a nested list for accumulated validation errors.
type payload struct {
	Code    Code        `json:"code"`
	Details interface{} `json:"details"`
}

// MarshalJSON renders the error as its {code, details} wire form.
func (e *Error) MarshalJSON() ([]byte, error) {
	if len(e.Nested) > 0 {
		return json.Marshal(payload{Code: e.Code, Details: e.Nested})
	}
	detail := e.Message
	if e.Location != "" {
		detail = e.Location + ": " + e.Message
	}
	return json.Marshal(payload{Code: e.Code, Details: detail})
}

// HasCode reports whether err is a kernel error carrying code, at the top
// level or nested inside a Multiple.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	ke := From(err)
	if ke.Code == code {
		return true
	}
	for _, n := range ke.Nested {
		if HasCode(n, code) {
			return true
		}
	}
	return false
}

// From converts any error into a kernel error, wrapping foreign errors with
// CodeUnknown.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ke *Error
	if errors.As(err, &ke) {
		return ke
	}
	return &Error{Code: CodeUnknown, Message: err.Error()}
}

// Accumulator collects validation errors during one tree traversal and
// flattens them into a single Multiple error at the scope boundary.
type Accumulator struct {
	errs []*Error
}

// Add records an error. Nil is ignored; a Multiple error is flattened so one
// response never nests accumulators.
func (a *Accumulator) Add(err *Error) {
	if err == nil {
		return
	}
	if err.Code == CodeMultiple {
		a.errs = append(a.errs, err.Nested...)
		return
	}
	a.errs = append(a.errs, err)
}

// AddAll records each error in turn.
func (a *Accumulator) AddAll(errs ...*Error) {
	for _, err := range errs {
		a.Add(err)
	}
}

// Empty reports whether nothing was recorded.
func (a *Accumulator) Empty() bool {
	return len(a.errs) == 0
}

// Len returns how many errors were recorded so far.
func (a *Accumulator) Len() int {
	return len(a.errs)
}

// Result returns nil when no error was recorded, the single error when
// exactly one was, and a Multiple wrapper otherwise.
func (a *Accumulator) Result(location string) *Error {
	switch len(a.errs) {
	case 0:
		return nil
	case 1:
		return a.errs[0]
	default:
		return Multiple(location, a.errs...)
	}
}
