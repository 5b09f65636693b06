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

package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rulego/topicflow/compile"
	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/logger"
	"github.com/rulego/topicflow/meta"
	"github.com/rulego/topicflow/model"
	"github.com/rulego/topicflow/schema"
	"github.com/rulego/topicflow/storage"
)

// State is the lifecycle of one pipeline execution.
type State int

const (
	StateQueued State = iota
	StateGating
	StateSkipped
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateGating:
		return "gating"
	case StateSkipped:
		return "skipped"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ExecutionResult is the outcome of one pipeline execution.
type ExecutionResult struct {
	TraceID      string
	TenantID     string
	TopicCode    string
	PipelineID   string
	PipelineName string
	State        State
	Err          *kerrors.Error
	Alarms       []compile.AlarmEvent
}

// AlarmListener receives alarm events as they fire, before the trigger
// returns.
type AlarmListener func(result *ExecutionResult, event compile.AlarmEvent)

// Runner executes triggers against the catalog and the store.
type Runner struct {
	Catalog  *meta.Catalog
	Store    storage.Store
	Log      logger.Logger
	Deadline time.Duration
	OnAlarm  AlarmListener
}

// workItem is one queued topic change awaiting execution.
type workItem struct {
	topic    *schema.Topic
	previous storage.Row
	current  storage.Row
}

// Trigger runs every enabled pipeline of the triggered topic and of every
// topic changed by write actions, breadth-first, all under one trace. The
// returned results are in execution order; sibling pipeline failures do
// not stop each other.
func (r *Runner) Trigger(ctx context.Context, trigger *model.TopicTrigger) ([]ExecutionResult, error) {
	if err := trigger.Validate(); err != nil {
		return nil, err
	}
	traceID := trigger.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	if r.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Deadline)
		defer cancel()
	}

	root, err := r.Catalog.TopicByCode(ctx, trigger.TenantID, trigger.TopicCode)
	if err != nil {
		return nil, err
	}

	queue := []workItem{{topic: root, previous: trigger.PreviousData, current: trigger.CurrentData}}
	var results []ExecutionResult
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		programs, err := r.Catalog.ProgramsFor(ctx, item.topic)
		if err != nil {
			return results, kerrors.From(err)
		}
		for _, program := range programs {
			result, changes := r.runPipeline(ctx, traceID, program, item)
			results = append(results, *result)
			for _, change := range changes {
				queue = append(queue, workItem{
					topic:    change.Topic,
					previous: change.Previous,
					current:  change.Current,
				})
			}
		}
		if err := ctx.Err(); err != nil {
			return results, deadlineError(err)
		}
	}
	return results, nil
}

// runPipeline walks one compiled pipeline through its states. The
// returned changes are the topic writes it performed, in order, including
// those of a run that later failed.
func (r *Runner) runPipeline(ctx context.Context, traceID string, program *compile.Pipeline, item workItem) (*ExecutionResult, []compile.TopicChange) {
	result := &ExecutionResult{
		TraceID:      traceID,
		TenantID:     program.Schema.TenantID,
		TopicCode:    item.topic.Code,
		PipelineID:   program.Schema.PipelineID,
		PipelineName: program.Schema.Name,
		State:        StateQueued,
	}

	scope, err := NewVariables(item.previous, item.current)
	if err != nil {
		return r.fail(result, err), nil
	}
	var changes []compile.TopicChange
	env := &compile.Env{
		Scope: scope,
		Store: r.Store,
		OnAlarm: func(event compile.AlarmEvent) {
			result.Alarms = append(result.Alarms, event)
			if r.OnAlarm != nil {
				r.OnAlarm(result, event)
			}
		},
		OnChange: func(change compile.TopicChange) {
			changes = append(changes, change)
		},
	}

	if program.Gate != nil {
		result.State = StateGating
		open, err := program.Gate.IsTrue(scope)
		if err != nil {
			return r.fail(result, err), changes
		}
		if !open {
			result.State = StateSkipped
			r.log().Debug("pipeline %s skipped by gate, trace %s", result.PipelineID, traceID)
			return result, changes
		}
	}

	result.State = StateRunning
	r.log().Debug("pipeline %s running, trace %s", result.PipelineID, traceID)
	for _, stage := range program.Stages {
		if err := ctx.Err(); err != nil {
			return r.fail(result, deadlineError(err)), changes
		}
		if stage.Gate != nil {
			open, err := stage.Gate.IsTrue(scope)
			if err != nil {
				return r.fail(result, err), changes
			}
			if !open {
				continue
			}
		}
		for _, unit := range stage.Units {
			if unit.Gate != nil {
				open, err := unit.Gate.IsTrue(scope)
				if err != nil {
					return r.fail(result, err), changes
				}
				if !open {
					continue
				}
			}
			for _, action := range unit.Actions {
				if err := action.Run(ctx, env); err != nil {
					return r.fail(result, err), changes
				}
			}
		}
	}
	result.State = StateCompleted
	r.log().Debug("pipeline %s completed, trace %s", result.PipelineID, traceID)
	return result, changes
}

func (r *Runner) fail(result *ExecutionResult, err error) *ExecutionResult {
	result.State = StateFailed
	result.Err = kerrors.From(deadlineError(err))
	r.log().Error("pipeline %s failed, trace %s: %v", result.PipelineID, result.TraceID, err)
	return result
}

func (r *Runner) log() logger.Logger {
	if r.Log != nil {
		return r.Log
	}
	return logger.GetDefault()
}

// deadlineError maps a context cancellation onto the stable deadline
// code; any other error passes through.
func deadlineError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return kerrors.New(kerrors.CodeDeadlineExceeded, "execution deadline exceeded")
	}
	return err
}
