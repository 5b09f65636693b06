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

package value

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rulego/topicflow/kerrors"
)

// Arithmetic over values follows decimal rules: operands must be numbers or
// numeric strings. Date-part extraction coerces its argument to a date or
// datetime and returns a number.

// Add returns v + other.
func (v Value) Add(other Value) (Value, error) {
	return v.binary(other, "add", decimal.Decimal.Add)
}

// Sub returns v - other.
func (v Value) Sub(other Value) (Value, error) {
	return v.binary(other, "subtract", decimal.Decimal.Sub)
}

// Mul returns v * other.
func (v Value) Mul(other Value) (Value, error) {
	return v.binary(other, "multiply", decimal.Decimal.Mul)
}

// Mod returns v mod other.
func (v Value) Mod(other Value) (Value, error) {
	rd, err := other.asDecimal()
	if err != nil {
		return None(), err
	}
	if rd.IsZero() {
		return None(), kerrors.ArithmeticMismatch("modulus", "zero divisor")
	}
	return v.binary(other, "modulus", decimal.Decimal.Mod)
}

func (v Value) binary(other Value, op string, f func(decimal.Decimal, decimal.Decimal) decimal.Decimal) (Value, error) {
	ld, err := v.arithDecimal(op)
	if err != nil {
		return None(), err
	}
	rd, err := other.arithDecimal(op)
	if err != nil {
		return None(), err
	}
	return NV(f(ld, rd)), nil
}

func (v Value) arithDecimal(op string) (decimal.Decimal, error) {
	switch v.kind {
	case KindNum, KindStr:
		return v.asDecimal()
	default:
		return decimal.Zero, kerrors.ArithmeticMismatch(op, v.kind)
	}
}

// DayOfMonth returns the day component, 1..31.
func (v Value) DayOfMonth() (Value, error) {
	t, err := v.asDayTime("day-of-month")
	if err != nil {
		return None(), err
	}
	return NVInt(int64(t.Day())), nil
}

// DayOfWeek returns the weekday, 1..7 with Sunday as 1.
func (v Value) DayOfWeek() (Value, error) {
	t, err := v.asDayTime("day-of-week")
	if err != nil {
		return None(), err
	}
	return NVInt(int64(t.Weekday()) + 1), nil
}

// WeekOfMonth returns the week the day falls in, 1..6, where week 1 is the
// week containing the first of the month.
func (v Value) WeekOfMonth() (Value, error) {
	t, err := v.asDayTime("week-of-month")
	if err != nil {
		return None(), err
	}
	first := t.AddDate(0, 0, 1-t.Day())
	offset := int(first.Weekday())
	return NVInt(int64((t.Day()+offset-1)/7 + 1)), nil
}

// HalfYearOf returns 1 for January..June, 2 for July..December.
func (v Value) HalfYearOf() (Value, error) {
	t, err := v.asDayTime("half-year-of")
	if err != nil {
		return None(), err
	}
	if t.Month() <= 6 {
		return NVInt(1), nil
	}
	return NVInt(2), nil
}

// asDayTime coerces the value into a calendar day for date-part extraction.
// Dates and datetimes pass through; strings are parsed as date, datetime or
// RFC3339.
func (v Value) asDayTime(op string) (time.Time, error) {
	switch v.kind {
	case KindDate, KindDateTime:
		return v.t, nil
	case KindStr:
		if d, ok := ParseDate(v.str); ok {
			return d.t, nil
		}
		if dt, ok := ParseDateTime(v.str); ok {
			return dt.t, nil
		}
		return time.Time{}, kerrors.New(kerrors.CodeDateConvert, "value[%s] is not a date", v.str)
	default:
		return time.Time{}, kerrors.New(kerrors.CodeDateConvert, "cannot apply %s to %s", op, v.kind)
	}
}
