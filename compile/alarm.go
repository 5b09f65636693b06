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
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/model"
	"github.com/rulego/topicflow/schema"
	"github.com/rulego/topicflow/value"
)

// alarmAction emits an alarm event when its gate holds. The message is a
// template whose {expression} placeholders are compiled once and
// evaluated against the execution variables.
type alarmAction struct {
	baseAction
	severity model.AlarmSeverity
	gate     Condition
	template []alarmSegment
}

type alarmSegment struct {
	text    string
	program *vm.Program
}

func compileAlarm(ctx context.Context, c *Compiler, a *schema.Action) (Action, error) {
	compiled := &alarmAction{
		baseAction: baseAction{id: a.ActionID, typ: a.Type},
		severity:   a.Severity,
	}
	if a.On != nil {
		gate, err := c.CompileJoint(ctx, a.On)
		if err != nil {
			return nil, err
		}
		compiled.gate = gate
	}
	template, err := compileAlarmTemplate(a.Message)
	if err != nil {
		return nil, err
	}
	compiled.template = template
	return compiled, nil
}

// compileAlarmTemplate splits "text {expr} text" into literal and program
// segments.
func compileAlarmTemplate(message string) ([]alarmSegment, error) {
	var segments []alarmSegment
	rest := message
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if rest != "" {
				segments = append(segments, alarmSegment{text: rest})
			}
			return segments, nil
		}
		clos := strings.IndexByte(rest[open:], '}')
		if clos < 0 {
			return nil, kerrors.New(kerrors.CodePathParse,
				"alarm message [%s] has an unterminated placeholder", message)
		}
		clos += open
		if open > 0 {
			segments = append(segments, alarmSegment{text: rest[:open]})
		}
		program, err := expr.Compile(rest[open+1:clos], expr.AllowUndefinedVariables())
		if err != nil {
			return nil, kerrors.New(kerrors.CodePathParse,
				"alarm placeholder [%s] does not compile: %v", rest[open+1:clos], err)
		}
		segments = append(segments, alarmSegment{program: program})
		rest = rest[clos+1:]
	}
}

func (a *alarmAction) Run(ctx context.Context, env *Env) error {
	if a.gate != nil {
		ok, err := a.gate.IsTrue(env.Scope)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	message, err := a.render(env.Scope)
	if err != nil {
		return err
	}
	if env.OnAlarm != nil {
		env.OnAlarm(AlarmEvent{
			Severity: a.severity,
			Message:  message,
			ActionID: a.id,
		})
	}
	return nil
}

func (a *alarmAction) render(scope Scope) (string, error) {
	var vars map[string]interface{}
	var b strings.Builder
	for _, seg := range a.template {
		if seg.program == nil {
			b.WriteString(seg.text)
			continue
		}
		if vars == nil {
			vars = renderEnv(scope)
		}
		out, err := expr.Run(seg.program, vars)
		if err != nil {
			return "", kerrors.New(kerrors.CodeVariableMissed,
				"alarm placeholder evaluation failed: %v", err)
		}
		if out != nil {
			b.WriteString(fmt.Sprint(out))
		}
	}
	return b.String(), nil
}

// renderEnv exposes the current trigger row overlaid with the execution
// variables; variables win on name clashes, matching placeholder lookup
// in constants.
func renderEnv(scope Scope) map[string]interface{} {
	vars := map[string]interface{}{}
	if current, err := scope.CurrentData(); err == nil && current.Kind() == value.KindMap {
		for name, v := range current.Map() {
			vars[name] = v.ToAny()
		}
	}
	for name, v := range scope.SnapshotVariables() {
		vars[name] = v
	}
	return vars
}
