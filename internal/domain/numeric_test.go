package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocaleFloat(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		decimalComma bool
		expected     float64
		ok           bool
	}{
		{"decimal comma", "21,8", true, 21.8, true},
		{"decimal point still accepted", "21.8", true, 21.8, true},
		{"surrounding whitespace", "  45,75 ", true, 45.75, true},
		{"negative", "-0,5", true, -0.5, true},
		{"integer", "612", true, 612, true},
		{"point locale", "4.85", false, 4.85, true},
		{"exponent", "1,5e2", true, 150, true},
		{"leading point", ".5", false, 0.5, true},
		{"empty", "", true, 0, false},
		{"whitespace only", "   ", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ParseLocaleFloat(tt.raw, tt.decimalComma)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestParseLocaleFloat_NotANumber(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		decimalComma bool
	}{
		{"text", "abc", true},
		{"second comma kept", "1,234,5", true},
		{"comma without locale", "21,8", false},
		{"unit suffix", "21,8°C", true},
		{"infinity short", "inf", true},
		{"infinity long", "-Infinity", false},
		{"nan spelling", "NaN", true},
		{"hex integer", "0x10", true},
		{"hex float", "0x1p4", false},
		{"overflow", "1e400", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ParseLocaleFloat(tt.raw, tt.decimalComma)
			require.True(t, ok, "non-empty cells are present even when unparseable")
			assert.True(t, math.IsNaN(v))
		})
	}
}

func TestParseNullableInt(t *testing.T) {
	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name     string
		raw      string
		expected *int
	}{
		{"integer", "45", intPtr(45)},
		{"padded", " 7 ", intPtr(7)},
		{"fraction truncated", "45,9", intPtr(45)},
		{"negative fraction truncated toward zero", "-3,7", intPtr(-3)},
		{"out of range kept", "130", intPtr(130)},
		{"empty", "", nil},
		{"blank", "  ", nil},
		{"text", "n/a", nil},
		{"infinity", "Inf", nil},
		{"hex", "0x10", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseNullableInt(tt.raw, true))
		})
	}
}
