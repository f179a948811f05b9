package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{"String", "exit", "exit"},
		{"Spaces", "  Colors imagination ", "Colors imagination"},
		{"Integer", "42", 42.0},
		{"Float", "-1.5", -1.5},
		{"True", "true", true},
		{"False", "false", false},
		{"Newline Escape", `\n`, "\n"},
		{"Tab Escape", `\t`, "\t"},
		{"Space Escape", `\s`, " "},
		{"NaN Stays String", "NaN", "NaN"},
		{"Infinity Stays String", "Inf", "Inf"},
		{"Numeric Prefix Stays String", "42abc", "42abc"},
		{"Quoted Scalar", `"42"`, "42"},
		{"Array Of Strings", "RED,GREEN,BLUE", []any{"RED", "GREEN", "BLUE"}},
		{"Array Of Numbers", "1, 2.5, 3", []any{1.0, 2.5, 3.0}},
		{"Array Drops Empty", "blank,", []any{"blank"}},
		{"Array Keeps Quoted Commas", `"a, b", c`, []any{"a, b", "c"}},
		{"Mixed Array", `"string with spaces", true, 42, \s, \n, \t, false, NaN`,
			[]any{"string with spaces", true, 42.0, " ", "\n", "\t", false, "NaN"}},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.input))
		})
	}
}

func TestCoerceScalarIgnoresCommas(t *testing.T) {
	assert.Equal(t, "a,b", coerceScalar("a,b"))
}
