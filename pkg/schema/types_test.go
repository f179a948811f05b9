package schema

import (
	"errors"
	"testing"
)

func TestTypes_Validate(t *testing.T) {
	tests := []struct {
		typ     Type
		value   any
		wantErr bool
	}{
		{String(), "Ann", false},
		{String(), 42.0, true},
		{Int(), 3, false},
		{Int(), 3.0, false},
		{Int(), 3.5, true},
		{Int(), "3", true},
		{Float(), 3.5, false},
		{Float(), 7, false},
		{Float(), true, true},
		{Bool(), false, false},
		{Bool(), "false", true},
		{Any(), nil, false},
		{Slice(String()), []any{"red", "green"}, false},
		{Slice(String()), []string{"red"}, false},
		{Slice(String()), []any{"red", 1.0}, true},
		{Slice(Int()), "1,2", true},
	}

	for _, tt := range tests {
		err := tt.typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s.Validate(%#v) error = %v, wantErr %v", tt.typ.Name(), tt.value, err, tt.wantErr)
		}
	}
}

func TestCustomType(t *testing.T) {
	mood := Custom("mood", func(v any) error {
		if s, ok := v.(string); ok && (s == "happy" || s == "sad") {
			return nil
		}
		return errors.New("expected happy or sad")
	})

	if mood.Name() != "mood" {
		t.Errorf("Name() = %q, want mood", mood.Name())
	}
	if err := mood.Validate("happy"); err != nil {
		t.Errorf("Validate(happy) error = %v", err)
	}
	if err := mood.Validate("bored"); err == nil {
		t.Error("Validate(bored) should fail")
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		wantErr  bool
		wantName string
	}{
		{"string", false, "string"},
		{"int", false, "int"},
		{"float", false, "float"},
		{"number", false, "float"},
		{"bool", false, "bool"},
		{"any", false, "any"},
		{"[string]", false, "[string]"},
		{"[[int]]", false, "[[int]]"},
		{"invalid", true, ""},
		{"[invalid]", true, ""},
	}

	for _, tt := range tests {
		typ, err := ParseType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && typ.Name() != tt.wantName {
			t.Errorf("ParseType(%q) Name() = %q, want %q", tt.input, typ.Name(), tt.wantName)
		}
	}
}

func TestParseTypeMapError(t *testing.T) {
	if _, err := ParseTypeMap(map[string]string{"age": "integer"}); err == nil {
		t.Fatal("ParseTypeMap() should return error for invalid type")
	}
}
