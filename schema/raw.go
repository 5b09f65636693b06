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
	"github.com/rulego/topicflow/model"
)

// Raw renders the normalized pipeline back into its raw wire form. The
// rendering is already trimmed and defaulted, so normalizing it again
// yields an equal schema tree.

// Raw converts the pipeline to its raw form.
func (p *Pipeline) Raw() *model.Pipeline {
	raw := &model.Pipeline{
		PipelineID:  p.PipelineID,
		Name:        p.Name,
		TopicID:     p.TopicID,
		TenantID:    p.TenantID,
		Conditional: p.On != nil,
		On:          p.On.raw(),
		Enabled:     p.Enabled,
	}
	for _, stage := range p.Stages {
		raw.Stages = append(raw.Stages, stage.raw())
	}
	return raw
}

func (s *Stage) raw() *model.Stage {
	raw := &model.Stage{
		StageID:     s.StageID,
		Name:        s.Name,
		Conditional: s.On != nil,
		On:          s.On.raw(),
	}
	for _, unit := range s.Units {
		raw.Units = append(raw.Units, unit.raw())
	}
	return raw
}

func (u *Unit) raw() *model.Unit {
	raw := &model.Unit{
		UnitID:      u.UnitID,
		Name:        u.Name,
		Conditional: u.On != nil,
		On:          u.On.raw(),
	}
	for _, action := range u.Do {
		raw.Do = append(raw.Do, action.raw())
	}
	return raw
}

func (a *Action) raw() *model.Action {
	raw := &model.Action{
		ActionID:     a.ActionID,
		Type:         string(a.Type),
		Source:       a.Source.raw(),
		VariableName: a.VariableName,
		TopicID:      a.TopicID,
		By:           a.By.raw(),
		Message:      a.Message,
		Severity:     string(a.Severity),
		Conditional:  a.On != nil,
		On:           a.On.raw(),
	}
	if a.Type == model.ActionInsertRow {
		raw.AccumulateMode = string(a.AccumulateMode)
		for _, mf := range a.Mapping {
			raw.Mapping = append(raw.Mapping, &model.MappingFactor{
				Source:     mf.Source.raw(),
				FactorID:   mf.FactorID,
				Arithmetic: string(mf.Arithmetic),
			})
		}
	}
	return raw
}

func (j *Joint) raw() *model.Condition {
	if j == nil {
		return nil
	}
	raw := &model.Condition{JointType: string(j.Type)}
	for _, filter := range j.Filters {
		raw.Filters = append(raw.Filters, filter.raw())
	}
	return raw
}

func (c *Condition) raw() *model.Condition {
	if c == nil {
		return nil
	}
	if c.Joint != nil {
		return c.Joint.raw()
	}
	expr := c.Expression
	raw := &model.Condition{
		Left:     expr.Left.raw(),
		Operator: string(expr.Operator),
	}
	if expr.Right != nil {
		raw.Right = expr.Right.raw()
	}
	return raw
}

func (p *Parameter) raw() *model.Parameter {
	if p == nil {
		return nil
	}
	raw := &model.Parameter{
		Kind:     p.Kind,
		TopicID:  p.TopicID,
		FactorID: p.FactorID,
		Value:    p.Value,
		Type:     p.Compute,
	}
	for _, child := range p.Children {
		raw.Parameters = append(raw.Parameters, child.raw())
	}
	return raw
}
