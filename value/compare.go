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
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rulego/topicflow/kerrors"
)

// IsSameAs reports value equality. Variants must match, except Num and Str
// which are compared after parsing the string as a decimal; a non-numeric
// string surfaces a decimal-parse error. Any other mixed pair is simply not
// equal. Numeric equality is value based, 1.0 equals 1.
func (v Value) IsSameAs(other Value) (bool, error) {
	if v.kind != other.kind {
		return v.mixedSameAs(other)
	}
	switch v.kind {
	case KindNone:
		return true, nil
	case KindStr:
		return v.str == other.str, nil
	case KindNum:
		return v.num.Equal(other.num), nil
	case KindBool:
		return v.b == other.b, nil
	case KindDate, KindTime, KindDateTime:
		return v.t.Equal(other.t), nil
	case KindVec:
		if len(v.vec) != len(other.vec) {
			return false, nil
		}
		for i := range v.vec {
			same, err := v.vec[i].IsSameAs(other.vec[i])
			if err != nil || !same {
				return false, err
			}
		}
		return true, nil
	case KindMap:
		if len(v.m) != len(other.m) {
			return false, nil
		}
		for k, inner := range v.m {
			otherInner, ok := other.m[k]
			if !ok {
				return false, nil
			}
			same, err := inner.IsSameAs(otherInner)
			if err != nil || !same {
				return false, err
			}
		}
		return true, nil
	default:
		return false, nil
	}
}

func (v Value) mixedSameAs(other Value) (bool, error) {
	// Num vs Str is the only cross-variant equality; everything else is
	// unequal without being an error.
	if v.kind == KindNum && other.kind == KindStr {
		d, err := other.asDecimal()
		if err != nil {
			return false, err
		}
		return v.num.Equal(d), nil
	}
	if v.kind == KindStr && other.kind == KindNum {
		return other.mixedSameAs(v)
	}
	return false, nil
}

// compare returns -1, 0 or 1 for ordered variants. Ordering is defined for
// Num, Date, Time and DateTime pairs; a Str facing a Num is parsed as a
// decimal first. Anything else is a comparison-mismatch error.
func (v Value) compare(other Value, op string) (int, error) {
	ld, lok, err := v.orderedDecimal(other)
	if err != nil {
		return 0, err
	}
	if lok {
		rd, _, err := other.orderedDecimal(v)
		if err != nil {
			return 0, err
		}
		return ld.Cmp(rd), nil
	}
	if v.isTemporal() && v.kind == other.kind {
		switch {
		case v.t.Before(other.t):
			return -1, nil
		case v.t.After(other.t):
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, kerrors.ComparisonMismatch(op, v.kind, other.kind)
}

func (v Value) isTemporal() bool {
	return v.kind == KindDate || v.kind == KindTime || v.kind == KindDateTime
}

// orderedDecimal yields the decimal view of v when the (v, other) pair is
// numerically ordered. ok is false when the pair is not numeric.
func (v Value) orderedDecimal(other Value) (decimal.Decimal, bool, error) {
	switch v.kind {
	case KindNum:
		if other.kind == KindNum || other.kind == KindStr {
			return v.num, true, nil
		}
	case KindStr:
		if other.kind == KindNum {
			d, err := v.asDecimal()
			if err != nil {
				return decimal.Zero, false, err
			}
			return d, true, nil
		}
	}
	return decimal.Zero, false, nil
}

func (v Value) asDecimal() (decimal.Decimal, error) {
	switch v.kind {
	case KindNum:
		return v.num, nil
	case KindStr:
		d, err := decimal.NewFromString(strings.TrimSpace(v.str))
		if err != nil {
			return decimal.Zero, kerrors.DecimalParse(v.str)
		}
		return d, nil
	default:
		return decimal.Zero, kerrors.ArithmeticMismatch("decimal", v.kind)
	}
}

// IsLessThan reports v < other under the ordering rules of compare.
func (v Value) IsLessThan(other Value) (bool, error) {
	c, err := v.compare(other, "less")
	return c < 0, err
}

// IsLessEquals reports v <= other.
func (v Value) IsLessEquals(other Value) (bool, error) {
	c, err := v.compare(other, "less-equals")
	return c <= 0, err
}

// IsMoreThan reports v > other.
func (v Value) IsMoreThan(other Value) (bool, error) {
	c, err := v.compare(other, "more")
	return c > 0, err
}

// IsMoreEquals reports v >= other.
func (v Value) IsMoreEquals(other Value) (bool, error) {
	c, err := v.compare(other, "more-equals")
	return c >= 0, err
}

// IsIn reports containment of v in other. The right side must be a list or
// a string: list membership uses IsSameAs per element, string containment is
// a substring test. A list on the left requires every element present.
func (v Value) IsIn(other Value) (bool, error) {
	switch other.kind {
	case KindVec:
		if v.kind == KindVec {
			for _, inner := range v.vec {
				found, err := inner.IsIn(other)
				if err != nil || !found {
					return false, err
				}
			}
			return true, nil
		}
		for _, candidate := range other.vec {
			same, err := v.IsSameAs(candidate)
			if err != nil {
				return false, err
			}
			if same {
				return true, nil
			}
		}
		return false, nil
	case KindStr:
		if v.kind == KindVec {
			for _, inner := range v.vec {
				found, err := inner.IsIn(other)
				if err != nil || !found {
					return false, err
				}
			}
			return true, nil
		}
		return strings.Contains(other.str, v.String()), nil
	default:
		return false, kerrors.New(kerrors.CodeInNotSearchable, "in requires a list or string on the right, got %s", other.kind)
	}
}

// IsEmpty reports emptiness: none, a blank string after trimming, an empty
// list or an empty map. Every other value is non-empty.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNone:
		return true
	case KindStr:
		return strings.TrimSpace(v.str) == ""
	case KindVec:
		return len(v.vec) == 0
	case KindMap:
		return len(v.m) == 0
	default:
		return false
	}
}

// IsNotEmpty is the exact negation of IsEmpty for every variant.
func (v Value) IsNotEmpty() bool {
	return !v.IsEmpty()
}
