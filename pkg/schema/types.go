package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Type checks a context value.
type Type interface {
	// Name is the declaration the type is written as, such as "int" or "[string]".
	Name() string
	Validate(value any) error
}

type kind int

const (
	kindString kind = iota
	kindInt
	kindFloat
	kindBool
	kindAny
)

var kindNames = map[kind]string{
	kindString: "string",
	kindInt:    "int",
	kindFloat:  "float",
	kindBool:   "bool",
	kindAny:    "any",
}

// scalar is one of the built-in leaf types.
type scalar struct{ kind kind }

func (t scalar) Name() string { return kindNames[t.kind] }

func (t scalar) Validate(value any) error {
	ok := true
	switch t.kind {
	case kindString:
		_, ok = value.(string)
	case kindBool:
		_, ok = value.(bool)
	case kindInt:
		ok = isInt(value)
		if f, isFloat := value.(float64); isFloat && !ok {
			return fmt.Errorf("expected int, got %v", f)
		}
	case kindFloat:
		ok = isInt(value)
		switch value.(type) {
		case float32, float64:
			ok = true
		}
	}
	if !ok {
		return fmt.Errorf("expected %s, got %T", t.Name(), value)
	}
	return nil
}

// isInt accepts Go integers and whole float64 values, which is how JSON and
// directive coercion deliver numbers.
func isInt(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return v == float64(int64(v))
	}
	return false
}

type slice struct{ elem Type }

func (t slice) Name() string { return "[" + t.elem.Name() + "]" }

func (t slice) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected %s, got %T", t.Name(), value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

type custom struct {
	name  string
	check func(any) error
}

func (t custom) Name() string             { return t.name }
func (t custom) Validate(value any) error { return t.check(value) }

func String() Type { return scalar{kindString} }
func Int() Type    { return scalar{kindInt} }
func Float() Type  { return scalar{kindFloat} }
func Bool() Type   { return scalar{kindBool} }
func Any() Type    { return scalar{kindAny} }

// Slice types a list whose elements are all of elem.
func Slice(elem Type) Type { return slice{elem: elem} }

// Custom wraps a validation function under a display name. Custom types
// cannot be declared from a script.
func Custom(name string, check func(any) error) Type {
	return custom{name: name, check: check}
}

// ParseType reads a type declaration.
// Supports "string", "int", "float" (or "number"), "bool", "any" and
// slices of them such as "[string]".
func ParseType(decl string) (Type, error) {
	decl = strings.TrimSpace(decl)
	if inner, ok := strings.CutPrefix(decl, "["); ok {
		if inner, ok = strings.CutSuffix(inner, "]"); ok {
			elem, err := ParseType(inner)
			if err != nil {
				return nil, err
			}
			return Slice(elem), nil
		}
	}
	if decl == "number" {
		return Float(), nil
	}
	for k, name := range kindNames {
		if name == decl {
			return scalar{k}, nil
		}
	}
	return nil, fmt.Errorf("unsupported type: %s", decl)
}

// ParseTypeMap reads a map of paths to type declarations.
// Example: {"name": "string", "age": "int"}
func ParseTypeMap(decls map[string]string) (Schema, error) {
	s := make(Schema, len(decls))
	for path, decl := range decls {
		t, err := ParseType(decl)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", path, err)
		}
		s[path] = t
	}
	return s, nil
}
