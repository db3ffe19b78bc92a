package runtime

import (
	"math"
	"strconv"
)

// ValueType is the tag of a Value.
type ValueType int

const (
	TypeUndefined ValueType = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeObject
)

var typeNames = [...]string{
	TypeUndefined: "undefined",
	TypeNull:      "object", // typeof null
	TypeBoolean:   "boolean",
	TypeNumber:    "number",
	TypeString:    "string",
	TypeObject:    "object",
}

func (t ValueType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// Value is a tagged runtime value. Only the field matching Type is
// meaningful. Functions are objects whose Object carries a Function.
type Value struct {
	Type   ValueType
	Bool   bool
	Number float64
	Str    string
	Object *Object
}

var (
	Undefined = &Value{Type: TypeUndefined}
	Null      = &Value{Type: TypeNull}
	True      = &Value{Type: TypeBoolean, Bool: true}
	False     = &Value{Type: TypeBoolean}
	NaN       = &Value{Type: TypeNumber, Number: math.NaN()}
)

func NewNumber(n float64) *Value { return &Value{Type: TypeNumber, Number: n} }

func NewString(s string) *Value { return &Value{Type: TypeString, Str: s} }

func NewBool(b bool) *Value {
	if b {
		return True
	}
	return False
}

// NewObject wraps obj. A nil object becomes Null, which is how a missing
// parent surfaces to callers.
func NewObject(obj *Object) *Value {
	if obj == nil {
		return Null
	}
	return &Value{Type: TypeObject, Object: obj}
}

// IsNullish reports whether v is nil, undefined or null.
func (v *Value) IsNullish() bool {
	return v == nil || v.Type == TypeUndefined || v.Type == TypeNull
}

// AsObject returns the object held by v, or nil.
func (v *Value) AsObject() *Object {
	if v == nil || v.Type != TypeObject {
		return nil
	}
	return v.Object
}

// AsFunction returns the function held by v, or nil when v is not callable.
func (v *Value) AsFunction() *Function {
	if obj := v.AsObject(); obj != nil {
		return obj.Function()
	}
	return nil
}

// TypeOf is the typeof operator.
func (v *Value) TypeOf() string {
	if v.AsFunction() != nil {
		return "function"
	}
	return v.Type.String()
}

// String is for logs and failure messages; strings come out quoted.
func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.Type == TypeString {
		return strconv.Quote(v.Str)
	}
	return v.ToString()
}
