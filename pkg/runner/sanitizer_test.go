package runner

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"plain", "Hello World", "Hello World", nil},
		{"newline and tab", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed", nil},
		{"crlf", "a\r\nb", "a\nb", nil},
		{"lone cr", "a\rb", "ab", nil},
		{"ansi escape", "\x1b[31mRed\x1b[0m", "[31mRed[0m", nil},
		{"nul and bel", "Nu\x00ll\x07", "Null", nil},
		{"at limit", strings.Repeat("a", DefaultMaxInputSize), strings.Repeat("a", DefaultMaxInputSize), nil},
		{"over limit", strings.Repeat("a", DefaultMaxInputSize+1), "", ErrInputTooLarge},
		{"invalid utf8", "\xbd\xb2\x3d\xbc", "", ErrInvalidUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SanitizeInput() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SanitizeInput() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeInput_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "10")

	if _, err := SanitizeInput("12345678901"); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("Expected ErrInputTooLarge over the override, got %v", err)
	}
	if _, err := SanitizeInput("12345"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	t.Setenv(EnvMaxInputSize, "nope")
	if _, err := SanitizeInput(strings.Repeat("a", 100)); err != nil {
		t.Errorf("An unparsable override should fall back to the default: %v", err)
	}
}
