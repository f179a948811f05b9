package schema

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/aretw0/actscript/pkg/domain"
)

func TestValidate(t *testing.T) {
	s := Schema{
		"age":      Int(),
		"tags":     Slice(String()),
		"user.vip": Bool(),
	}

	tests := []struct {
		name   string
		data   domain.Context
		errors int
	}{
		{"all valid", domain.Context{"age": 30.0, "tags": []any{"a"}, "user": map[string]any{"vip": true}}, 0},
		{"absent fields are skipped", domain.Context{"name": "Ann"}, 0},
		{"empty context", nil, 0},
		{"one mismatch", domain.Context{"age": "thirty"}, 1},
		{"nested mismatch", domain.Context{"user": map[string]any{"vip": "yes"}}, 1},
		{"several mismatches", domain.Context{"age": 1.5, "tags": "a", "user": map[string]any{"vip": 1.0}}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(s, tt.data)
			if tt.errors == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if got := len(ValidationErrors(err)); got != tt.errors {
				t.Errorf("Validate() = %d errors, want %d: %v", got, tt.errors, err)
			}
		})
	}

	if err := Validate(nil, domain.Context{"age": "x"}); err != nil {
		t.Errorf("Validate() with nil schema should return nil, got %v", err)
	}
}

func TestValidationError_Message(t *testing.T) {
	err := Validate(Schema{"age": Int()}, domain.Context{"age": "x"})
	if err == nil || !strings.Contains(err.Error(), `field "age"`) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := domain.Config{}
	cfg.Set("schema.age", "int")
	cfg.Set("schema.user.vip", "bool")
	cfg.Set("schema.tags", "[string]")
	cfg.Set("title", "ignored")

	s, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if want := []string{"age", "tags", "user.vip"}; !reflect.DeepEqual(s.Fields(), want) {
		t.Errorf("Fields() = %v, want %v", s.Fields(), want)
	}

	empty, err := FromConfig(domain.Config{})
	if err != nil || empty != nil {
		t.Errorf("FromConfig(empty) = %v, %v", empty, err)
	}

	bad := domain.Config{}
	bad.Set("schema.age", 42.0)
	if _, err := FromConfig(bad); err == nil {
		t.Error("FromConfig() should reject non-string declarations")
	}

	bad = domain.Config{}
	bad.Set("schema.age", "integer")
	if _, err := FromConfig(bad); err == nil {
		t.Error("FromConfig() should reject unknown types")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		typ     Type
		raw     string
		want    any
		wantErr bool
	}{
		{String(), " Ann ", "Ann", false},
		{Int(), "42", 42.0, false},
		{Int(), "4.2", nil, true},
		{Float(), "4.2", 4.2, false},
		{Float(), "four", nil, true},
		{Bool(), "true", true, false},
		{Bool(), "yes", nil, true},
		{Slice(Int()), "1, 2,", []any{1.0, 2.0}, false},
		{Slice(Int()), "1, x", nil, true},
		{Any(), "x", "x", false},
	}

	for _, tt := range tests {
		got, err := Parse(tt.typ, tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%s, %q) error = %v, wantErr %v", tt.typ.Name(), tt.raw, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Parse(%s, %q) = %#v, want %#v", tt.typ.Name(), tt.raw, got, tt.want)
		}
	}
}

func TestSchema_JSON(t *testing.T) {
	data, err := json.Marshal(Schema{"age": Int(), "tags": Slice(String())})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"age":"int","tags":"[string]"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if s["tags"].Name() != "[string]" {
		t.Errorf("tags = %s, want [string]", s["tags"].Name())
	}
}
