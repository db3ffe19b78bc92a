package runtime

import (
	"math"
	"strconv"
	"strings"
)

// ToBoolean is the truthiness test used by conditions.
func (v *Value) ToBoolean() bool {
	switch v.Type {
	case TypeBoolean:
		return v.Bool
	case TypeNumber:
		return v.Number != 0 && !math.IsNaN(v.Number)
	case TypeString:
		return v.Str != ""
	case TypeObject:
		return true
	}
	return false
}

// ToString converts v the way string concatenation does.
func (v *Value) ToString() string {
	switch v.Type {
	case TypeNull:
		return "null"
	case TypeBoolean:
		return strconv.FormatBool(v.Bool)
	case TypeNumber:
		return formatNumber(v.Number)
	case TypeString:
		return v.Str
	case TypeObject:
		if fn := v.AsFunction(); fn != nil {
			return "function " + fn.Name + "() { [native code] }"
		}
		return "[object Object]"
	}
	return "undefined"
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0" // also -0
	}
	if abs := math.Abs(n); abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(n, 'e', -1, 64)
		// Go writes e+06 / e-07; JS writes e+6 / e-7.
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// ToNumber converts v the way arithmetic does.
func (v *Value) ToNumber() float64 {
	switch v.Type {
	case TypeNull:
		return 0
	case TypeBoolean:
		if v.Bool {
			return 1
		}
		return 0
	case TypeNumber:
		return v.Number
	case TypeString:
		return parseNumber(v.Str)
	}
	return math.NaN()
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	// ParseFloat also takes inf, infinity, underscores and hex floats.
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "inf", "infinity":
		return math.NaN()
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || strings.ContainsAny(s, "_xXpP") {
		return math.NaN()
	}
	return n
}

// StrictEquals is ===. Objects compare by identity and NaN equals nothing.
func StrictEquals(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TypeBoolean:
		return a.Bool == b.Bool
	case TypeNumber:
		return a.Number == b.Number
	case TypeString:
		return a.Str == b.Str
	case TypeObject:
		return a.Object == b.Object
	}
	return true // undefined, null
}

// Add is binary +: concatenation when either side is a string or an
// object, numeric addition otherwise.
func Add(a, b *Value) *Value {
	if a.Type == TypeString || b.Type == TypeString || a.Type == TypeObject || b.Type == TypeObject {
		return NewString(a.ToString() + b.ToString())
	}
	return NewNumber(a.ToNumber() + b.ToNumber())
}
