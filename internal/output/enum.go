package output

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/policyconf/internal/model"
)

// ParseEnum coerces a raw option value. The literal "null" means absent
// (ok is false). Numeric strings become integers, truncated to their leading
// integer part; "true" and "false" become booleans; anything else is returned
// unchanged.
func ParseEnum(raw string) (value any, ok bool) {
	if raw == model.NullOption {
		return nil, false
	}
	if n, isNum := leadingInt(raw); isNum {
		return n, true
	}
	switch raw {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return raw, true
}

// leadingInt parses numeric strings such as "5", " 42 ", "-3", "1.9" or
// "0x10" to their integer part. The result is an int, or a float64 when the
// integer does not fit. Strings that are not numbers, or numbers with no
// leading digits (".5", "Infinity"), are rejected.
func leadingInt(raw string) (any, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if n, ok := prefixedInt(s); ok {
		return n, true
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	if strings.ContainsAny(s, "nNxX") {
		// ParseFloat accepts "NaN", "Inf", "Infinity" and hex floats.
		return 0, false
	}

	end := 0
	if s[0] == '+' || s[0] == '-' {
		end = 1
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	return intValue(s[:end], 10)
}

// prefixedInt handles unsigned "0x", "0o" and "0b" literals. Hexadecimal
// digits are read as a number; octal and binary literals read as 0, only
// their leading "0" being an integer.
func prefixedInt(s string) (any, bool) {
	if len(s) < 3 || s[0] != '0' {
		return 0, false
	}
	digits := s[2:]
	if digits[0] == '+' || digits[0] == '-' {
		return 0, false
	}
	switch s[1] {
	case 'x', 'X':
		return intValue(digits, 16)
	case 'o', 'O':
		if _, ok := new(big.Int).SetString(digits, 8); ok {
			return 0, true
		}
	case 'b', 'B':
		if _, ok := new(big.Int).SetString(digits, 2); ok {
			return 0, true
		}
	}
	return 0, false
}

func intValue(digits string, base int) (any, bool) {
	b, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return 0, false
	}
	if b.IsInt64() && b.Int64() >= math.MinInt && b.Int64() <= math.MaxInt {
		return int(b.Int64()), true
	}
	f, _ := new(big.Float).SetInt(b).Float64()
	if math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
