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

// Package value implements the tagged value model carried through pipeline
// execution. A Value is one of: string, arbitrary-precision decimal, bool,
// date, time, datetime, map, list or none. All operations return typed
// kernel errors instead of panicking.
package value

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/rulego/topicflow/kerrors"
)

// Kind discriminates the value variants.
type Kind int

const (
	KindNone Kind = iota
	KindStr
	KindNum
	KindBool
	KindDate
	KindTime
	KindDateTime
	KindMap
	KindVec
)

// String returns the variant name, used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindStr:
		return "string"
	case KindNum:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	case KindMap:
		return "map"
	case KindVec:
		return "list"
	default:
		return "unknown"
	}
}

// Date/time layouts accepted on parse and used on render.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	ShortTimeLayout = "15:04"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Value is the closed tagged variant. The zero Value is None.
type Value struct {
	kind Kind
	str  string
	num  decimal.Decimal
	b    bool
	t    time.Time
	m    map[string]Value
	vec  []Value
}

// None is the absent value.
func None() Value { return Value{kind: KindNone} }

// SV creates a string value.
func SV(s string) Value { return Value{kind: KindStr, str: s} }

// NV creates a decimal number value.
func NV(d decimal.Decimal) Value { return Value{kind: KindNum, num: d} }

// NVInt creates a number value from an int64.
func NVInt(i int64) Value { return NV(decimal.NewFromInt(i)) }

// NVFloat creates a number value from a float64.
func NVFloat(f float64) Value { return NV(decimal.NewFromFloat(f)) }

// BV creates a bool value.
func BV(b bool) Value { return Value{kind: KindBool, b: b} }

// DV creates a date value, truncated to day precision.
func DV(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// TV creates a time-of-day value.
func TV(t time.Time) Value {
	return Value{kind: KindTime, t: time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// DTV creates a datetime value, truncated to second precision.
func DTV(t time.Time) Value {
	return Value{kind: KindDateTime, t: t.UTC().Truncate(time.Second)}
}

// MV creates a map value. The map is taken over, not copied.
func MV(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// VV creates a list value. The slice is taken over, not copied.
func VV(vs []Value) Value { return Value{kind: KindVec, vec: vs} }

// Kind returns the variant discriminator.
func (v Value) Kind() Kind { return v.kind }

// IsNone reports whether this is the absent value.
func (v Value) IsNone() bool { return v.kind == KindNone }

// Str returns the inner string; valid only for KindStr.
func (v Value) Str() string { return v.str }

// Num returns the inner decimal; valid only for KindNum.
func (v Value) Num() decimal.Decimal { return v.num }

// Bool returns the inner bool; valid only for KindBool.
func (v Value) Bool() bool { return v.b }

// Time returns the inner time; valid for KindDate, KindTime, KindDateTime.
func (v Value) Time() time.Time { return v.t }

// Map returns the inner map; valid only for KindMap. Callers must not
// mutate it, schema-resolved values are shared.
func (v Value) Map() map[string]Value { return v.m }

// Vec returns the inner list; valid only for KindVec. Callers must not
// mutate it.
func (v Value) Vec() []Value { return v.vec }

// ParseDate parses a yyyy-MM-dd literal.
func ParseDate(s string) (Value, bool) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DV(t), true
	}
	return None(), false
}

// ParseTime parses a HH:mm[:ss] literal.
func ParseTime(s string) (Value, bool) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return TV(t), true
	}
	if t, err := time.Parse(ShortTimeLayout, s); err == nil {
		return TV(t), true
	}
	return None(), false
}

// ParseDateTime parses a yyyy-MM-dd HH:mm:ss or RFC3339 literal.
func ParseDateTime(s string) (Value, bool) {
	if t, err := time.Parse(DateTimeLayout, s); err == nil {
		return DTV(t), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DTV(t), true
	}
	return None(), false
}

// FromAny converts a raw row cell into a tagged value. Scalars go through
// cast, maps and slices recurse, time.Time becomes a datetime. Unsupported
// Go types are an error rather than a silent string.
func FromAny(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return None(), nil
	case Value:
		return x, nil
	case string:
		return SV(x), nil
	case bool:
		return BV(x), nil
	case decimal.Decimal:
		return NV(x), nil
	case time.Time:
		return DTV(x), nil
	case map[string]interface{}:
		m := make(map[string]Value, len(x))
		for k, raw := range x {
			v, err := FromAny(raw)
			if err != nil {
				return None(), err
			}
			m[k] = v
		}
		return MV(m), nil
	case []interface{}:
		vs := make([]Value, 0, len(x))
		for _, raw := range x {
			v, err := FromAny(raw)
			if err != nil {
				return None(), err
			}
			vs = append(vs, v)
		}
		return VV(vs), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return NVInt(cast.ToInt64(x)), nil
	case float32, float64:
		return NVFloat(cast.ToFloat64(x)), nil
	default:
		s, err := cast.ToStringE(x)
		if err != nil {
			return None(), kerrors.New(kerrors.CodeUnknown, "unsupported value type %T", raw)
		}
		return SV(s), nil
	}
}

// FromRow converts a raw row map into a map value.
func FromRow(row map[string]interface{}) (Value, error) {
	return FromAny(row)
}

// ToAny renders the value into its wire form: dates and times as ISO
// strings, decimals as strings, maps and lists recursive, none as nil.
func (v Value) ToAny() interface{} {
	switch v.kind {
	case KindNone:
		return nil
	case KindStr:
		return v.str
	case KindNum:
		return v.num.String()
	case KindBool:
		return v.b
	case KindDate:
		return v.t.Format(DateLayout)
	case KindTime:
		return v.t.Format(TimeLayout)
	case KindDateTime:
		return v.t.Format(DateTimeLayout)
	case KindMap:
		m := make(map[string]interface{}, len(v.m))
		for k, inner := range v.m {
			m[k] = inner.ToAny()
		}
		return m
	case KindVec:
		vs := make([]interface{}, 0, len(v.vec))
		for _, inner := range v.vec {
			vs = append(vs, inner.ToAny())
		}
		return vs
	default:
		return nil
	}
}

// String renders a debug representation.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "none"
	case KindStr:
		return v.str
	case KindNum:
		return v.num.String()
	case KindBool:
		return cast.ToString(v.b)
	case KindDate:
		return v.t.Format(DateLayout)
	case KindTime:
		return v.t.Format(TimeLayout)
	case KindDateTime:
		return v.t.Format(DateTimeLayout)
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s:%s", k, v.m[k].String()))
		}
		return "{" + strings.Join(parts, ",") + "}"
	case KindVec:
		parts := make([]string, 0, len(v.vec))
		for _, inner := range v.vec {
			parts = append(parts, inner.String())
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return "unknown"
	}
}
