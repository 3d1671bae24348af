package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// decimalSyntax is the only number form a feed cell may take. It excludes the
// hex, infinity and NaN spellings strconv.ParseFloat would otherwise accept.
var decimalSyntax = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)([eE][-+]?\d+)?$`)

// ParseLocaleFloat parses a numeric cell. With decimalComma set, the first comma
// is read as the decimal separator ("21,8" -> 21.8).
//
// ok is false only when the trimmed cell is empty. A non-empty cell that is not
// a finite decimal number returns NaN with ok true; callers must check math.IsNaN.
func ParseLocaleFloat(raw string, decimalComma bool) (v float64, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if decimalComma {
		s = strings.Replace(s, ",", ".", 1)
	}
	if !decimalSyntax.MatchString(s) {
		return math.NaN(), true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN(), true
	}
	return v, true
}

// ParseNullableInt parses an optional integer cell such as id or occupancyrate.
// Fractional values are truncated toward zero. Returns nil when the cell is
// empty or not a finite number.
func ParseNullableInt(raw string, decimalComma bool) *int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	v, ok := ParseLocaleFloat(s, decimalComma)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt32 {
		return nil
	}
	n := int(v)
	return &n
}
