package partitionkey

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an invalid (zero) value. It is rejected by
	// every hashing and query-building operation.
	KindInvalid Kind = iota
	// KindUndefined represents a component that carries no value, e.g. a
	// document that does not contain the partition-key path.
	KindUndefined
	// KindNull represents an explicit JSON null.
	KindNull
	// KindBool represents a boolean value.
	KindBool
	// KindNumber represents a numeric value. All numbers are IEEE-754
	// doubles, matching the service's JSON number model.
	KindNumber
	// KindString represents a string value.
	KindString
	// KindList represents an ordered list of scalar components for
	// hierarchical (multi-path) partition keys.
	KindList
	// KindEmpty represents the explicit absence of a partition key, used
	// for containers migrated from a non-partitioned setup.
	KindEmpty
)

// Value is a partition-key value: a small closed union over the JSON
// scalar types plus the Undefined and Empty sentinels.
//
// The representation is designed to make grouping and hashing exact and
// predictable: numbers are compared and keyed by their raw IEEE-754 bits,
// so -0.0 and NaN round-trip without normalization.
type Value struct {
	Kind Kind
	B    bool
	F64  float64
	S    string
	L    []Value
}

// Undefined returns the Undefined sentinel Value.
func Undefined() Value { return Value{Kind: KindUndefined} }

// Null returns a null Value.
func Null() Value { return Value{Kind: KindNull} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// Number returns a numeric Value. The bit pattern of f is preserved
// exactly, including negative zero and NaN payloads.
func Number(f float64) Value { return Value{Kind: KindNumber, F64: f} }

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, S: s} }

// List returns a hierarchical Value with the given components in path
// order. Components must be scalars; nested lists are rejected during
// validation, not here.
func List(components ...Value) Value { return Value{Kind: KindList, L: components} }

// Empty returns the Empty sentinel Value, the explicit absence of a
// partition key.
func Empty() Value { return Value{Kind: KindEmpty} }

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsNumber returns the numeric value if Kind is KindNumber.
func (v Value) AsNumber() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.F64, true
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.S, true
}

// AsList returns the component list if Kind is KindList.
func (v Value) AsList() ([]Value, bool) {
	if v.Kind != KindList {
		return nil, false
	}
	return v.L, true
}

// IsDefined reports whether the value carries real data. The Undefined
// and Empty sentinels (and the invalid zero value) are not defined.
func (v Value) IsDefined() bool {
	switch v.Kind {
	case KindNull, KindBool, KindNumber, KindString, KindList:
		return true
	default:
		return false
	}
}

// Bindable reports whether the value can be bound as a query parameter.
// Sentinels cannot be bound; lists are bindable only if every component is.
func (v Value) Bindable() bool {
	switch v.Kind {
	case KindNull, KindBool, KindNumber, KindString:
		return true
	case KindList:
		for _, c := range v.L {
			if !c.Bindable() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Interface returns the value as a plain Go value suitable for JSON
// parameter binding: nil, bool, float64, string or []any.
// Sentinels map to nil; callers must check Bindable first.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.B
	case KindNumber:
		return v.F64
	case KindString:
		return v.S
	case KindList:
		out := make([]any, len(v.L))
		for i, c := range v.L {
			out[i] = c.Interface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether two values are the same logical partition key.
// Numbers compare by raw bits so the comparison is consistent with
// hashing: NaN equals NaN, and -0.0 differs from 0.0. Lists compare as
// ordered tuples.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.B == o.B
	case KindNumber:
		return math.Float64bits(v.F64) == math.Float64bits(o.F64)
	case KindString:
		return v.S == o.S
	case KindList:
		if len(v.L) != len(o.L) {
			return false
		}
		for i := range v.L {
			if !v.L[i].Equal(o.L[i]) {
				return false
			}
		}
		return true
	default:
		// Sentinels carry no payload.
		return true
	}
}

// Key returns a stable string representation for use as a map key when
// grouping items by logical partition key. It is injective over valid
// values and consistent with Equal.
func (v Value) Key() string {
	switch v.Kind {
	case KindUndefined:
		return "u"
	case KindNull:
		return "n"
	case KindBool:
		if v.B {
			return "b:1"
		}
		return "b:0"
	case KindNumber:
		return "f:" + strconv.FormatUint(math.Float64bits(v.F64), 16)
	case KindString:
		return "s:" + v.S
	case KindList:
		if len(v.L) == 0 {
			return "a:"
		}
		parts := make([]string, len(v.L))
		for i := range v.L {
			parts[i] = v.L[i].Key()
		}
		return "a:" + strings.Join(parts, "\x1f")
	case KindEmpty:
		return "e"
	default:
		return "invalid"
	}
}

// String implements fmt.Stringer for debugging and log output.
func (v Value) String() string {
	switch v.Kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindNumber:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.S)
	case KindList:
		parts := make([]string, len(v.L))
		for i := range v.L {
			parts[i] = v.L[i].String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindEmpty:
		return "empty"
	default:
		return "invalid"
	}
}
