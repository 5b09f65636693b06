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
	"fmt"
	"strings"
	"sync"

	"github.com/rulego/topicflow/kerrors"
	"github.com/rulego/topicflow/path"
	"github.com/rulego/topicflow/value"
)

// PathFunc evaluates a function segment of a factor path against the value
// the path has reached so far. args are the raw parameter parts; evalPart
// resolves them.
type PathFunc func(base value.Value, args []path.FuncParam) (value.Value, error)

var (
	pathFuncMu sync.RWMutex
	pathFuncs  = map[string]PathFunc{}
)

// RegisterPathFunc registers a named path function. Registering an already
// known name is an error.
func RegisterPathFunc(name string, fn PathFunc) error {
	pathFuncMu.Lock()
	defer pathFuncMu.Unlock()
	key := strings.ToLower(name)
	if _, exists := pathFuncs[key]; exists {
		return fmt.Errorf("path function %s already registered", name)
	}
	pathFuncs[key] = fn
	return nil
}

func lookupPathFunc(name string) (PathFunc, bool) {
	pathFuncMu.RLock()
	defer pathFuncMu.RUnlock()
	fn, ok := pathFuncs[strings.ToLower(name)]
	return fn, ok
}

func init() {
	_ = RegisterPathFunc("count", funcCount)
	_ = RegisterPathFunc("sum", sumFunc(value.Value.Add))
	_ = RegisterPathFunc("min", pickFunc(func(best, next value.Value) (bool, error) { return next.IsLessThan(best) }))
	_ = RegisterPathFunc("max", pickFunc(func(best, next value.Value) (bool, error) { return next.IsMoreThan(best) }))
	_ = RegisterPathFunc("avg", funcAvg)
	_ = RegisterPathFunc("concat", funcConcat)
	_ = RegisterPathFunc("first", funcFirst)
}

// traverse walks a value along the parsed path. Missing map keys resolve
// to none rather than erroring; plain segments over a list map across its
// elements.
func traverse(v value.Value, dp path.DataPath) (value.Value, error) {
	current := v
	for i, seg := range dp {
		switch s := seg.(type) {
		case path.PlainSegment:
			next, err := step(current, s.Ident)
			if err != nil {
				return value.None(), err
			}
			current = next
		case path.FuncSegment:
			fn, ok := lookupPathFunc(s.Ident)
			if !ok {
				return value.None(), kerrors.New(kerrors.CodePathParse, "unknown path function [%s]", s.Ident)
			}
			next, err := fn(current, s.Params)
			if err != nil {
				return value.None(), err
			}
			current = next
		default:
			return value.None(), kerrors.New(kerrors.CodePathParse, "unsupported segment at %d", i)
		}
	}
	return current, nil
}

// step resolves one plain segment.
func step(v value.Value, name string) (value.Value, error) {
	switch v.Kind() {
	case value.KindNone:
		return value.None(), nil
	case value.KindMap:
		child, ok := v.Map()[name]
		if !ok {
			return value.None(), nil
		}
		return child, nil
	case value.KindVec:
		// fan the segment across list elements
		items := make([]value.Value, 0, len(v.Vec()))
		for _, item := range v.Vec() {
			child, err := step(item, name)
			if err != nil {
				return value.None(), err
			}
			items = append(items, child)
		}
		return value.VV(items), nil
	default:
		return value.None(), kerrors.New(kerrors.CodeFactorNotFound,
			"segment [%s] cannot be read from a %s value", name, v.Kind())
	}
}

// evalPart resolves one function parameter part relative to the base
// value: literals pass through, nested paths traverse.
func evalPart(base value.Value, param path.FuncParam) (value.Value, error) {
	switch part := param.Part.(type) {
	case path.LiteralPart:
		return part.Value, nil
	case path.PathPart:
		return traverse(base, part.Path)
	default:
		return value.None(), kerrors.New(kerrors.CodePathParse, "unsupported part [%s]", param.Source)
	}
}

// asItems flattens the single argument of an aggregate path function into
// the list of values it aggregates over. None aggregates as empty.
func asItems(base value.Value, args []path.FuncParam, name string) ([]value.Value, error) {
	if len(args) != 1 {
		return nil, kerrors.New(kerrors.CodePathParse, "%s takes exactly one parameter", name)
	}
	v, err := evalPart(base, args[0])
	if err != nil {
		return nil, err
	}
	switch v.Kind() {
	case value.KindNone:
		return nil, nil
	case value.KindVec:
		return v.Vec(), nil
	default:
		return []value.Value{v}, nil
	}
}

func funcCount(base value.Value, args []path.FuncParam) (value.Value, error) {
	items, err := asItems(base, args, "count")
	if err != nil {
		return value.None(), err
	}
	return value.NVInt(int64(len(items))), nil
}

func sumFunc(op func(value.Value, value.Value) (value.Value, error)) PathFunc {
	return func(base value.Value, args []path.FuncParam) (value.Value, error) {
		items, err := asItems(base, args, "sum")
		if err != nil {
			return value.None(), err
		}
		acc := value.NVInt(0)
		for _, item := range items {
			if item.IsNone() {
				continue
			}
			acc, err = op(acc, item)
			if err != nil {
				return value.None(), err
			}
		}
		return acc, nil
	}
}

func funcAvg(base value.Value, args []path.FuncParam) (value.Value, error) {
	items, err := asItems(base, args, "avg")
	if err != nil {
		return value.None(), err
	}
	acc := value.NVInt(0)
	n := 0
	for _, item := range items {
		if item.IsNone() {
			continue
		}
		acc, err = acc.Add(item)
		if err != nil {
			return value.None(), err
		}
		n++
	}
	if n == 0 {
		return value.None(), nil
	}
	return value.NV(acc.Num().Div(value.NVInt(int64(n)).Num())), nil
}

func pickFunc(better func(best, next value.Value) (bool, error)) PathFunc {
	return func(base value.Value, args []path.FuncParam) (value.Value, error) {
		items, err := asItems(base, args, "min/max")
		if err != nil {
			return value.None(), err
		}
		best := value.None()
		for _, item := range items {
			if item.IsNone() {
				continue
			}
			if best.IsNone() {
				best = item
				continue
			}
			ok, err := better(best, item)
			if err != nil {
				return value.None(), err
			}
			if ok {
				best = item
			}
		}
		return best, nil
	}
}

func funcConcat(base value.Value, args []path.FuncParam) (value.Value, error) {
	var b strings.Builder
	for _, arg := range args {
		v, err := evalPart(base, arg)
		if err != nil {
			return value.None(), err
		}
		if !v.IsNone() {
			b.WriteString(v.String())
		}
	}
	return value.SV(b.String()), nil
}

func funcFirst(base value.Value, args []path.FuncParam) (value.Value, error) {
	items, err := asItems(base, args, "first")
	if err != nil {
		return value.None(), err
	}
	if len(items) == 0 {
		return value.None(), nil
	}
	return items[0], nil
}
