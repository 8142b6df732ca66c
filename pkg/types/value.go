package types

import (
	"strconv"
	"strings"
)

// ValueKind identifies which variant of the five-way Value union is active.
type ValueKind uint8

const (
	KindStr ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindDict
)

// DictHandle is an opaque token owned by the host environment. The core
// never dereferences it — it is only ever passed back into host.Lookup and
// host.Serialize. Per SPEC_FULL §1 the host's Dict representation is none of
// the core's business, so this is intentionally an empty interface alias
// rather than a concrete struct.
type DictHandle = interface{}

// Value is the tagged union described in SPEC_FULL §3: Str, Bool, Int,
// Float, or Dict. Exactly one field is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	Str  string
	Bool bool
	Int  int64
	Flt  float64
	Dict DictHandle
}

func Str(s string) Value   { return Value{Kind: KindStr, Str: s} }
func Bool(b bool) Value    { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value    { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Flt: f} }
func Dict(h DictHandle) Value { return Value{Kind: KindDict, Dict: h} }

// widenRank gives the widening order from SPEC_FULL §4.5: Dict < Str < Bool
// < Int < Float. Used by equality/comparison operators to find the common
// type both sides are coerced to before comparing.
func (k ValueKind) widenRank() int {
	switch k {
	case KindDict:
		return 0
	case KindStr:
		return 1
	case KindBool:
		return 2
	case KindInt:
		return 3
	case KindFloat:
		return 4
	default:
		return -1
	}
}

// Widen returns the wider of two kinds per the Dict < Str < Bool < Int <
// Float order.
func Widen(a, b ValueKind) ValueKind {
	if a.widenRank() >= b.widenRank() {
		return a
	}
	return b
}

// Serializer renders a Dict handle to text; the evaluator supplies the
// host's callback, or a fallback that always returns "<obj>" when the host
// provides none, per SPEC_FULL §4.5.
type Serializer func(DictHandle) (string, bool)

// ToStr coerces a value to its canonical string form (SPEC_FULL §4.5).
func (v Value) ToStr(serialize Serializer) string {
	switch v.Kind {
	case KindStr:
		return v.Str
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Flt, 'f', -1, 64)
	case KindDict:
		if serialize != nil {
			if s, ok := serialize(v.Dict); ok {
				return s
			}
		}
		return "<obj>"
	default:
		return ""
	}
}

// ToBool coerces a value to Bool (SPEC_FULL §4.5): Bool passthrough,
// non-zero Int/Float is true, non-empty Str is true, Dict is always true.
func (v Value) ToBool() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Flt != 0
	case KindStr:
		return v.Str != ""
	case KindDict:
		return true
	default:
		return false
	}
}

// ToInt coerces a value to Int. Bool maps to 0/1, Float truncates, Str
// parses (returning ok=false on a malformed numeral), Dict is not
// convertible.
func (v Value) ToInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case KindFloat:
		return int64(v.Flt), true
	case KindStr:
		i, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	default:
		return 0, false
	}
}

// ToFloat coerces a value to Float, analogous to ToInt.
func (v Value) ToFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Flt, true
	case KindInt:
		return float64(v.Int), true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case KindStr:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// IsNumeric reports whether the value is an Int or Float.
func (v Value) IsNumeric() bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}
