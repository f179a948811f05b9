package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ValidationError is one field that failed its type.
type ValidationError struct {
	Key    string
	Reason string
	Value  any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
}

// AggregateError collects every failure of one Validate call.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns the individual failures wrapped in err, or nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// MarshalJSON writes the schema as its declarations.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	decls := make(map[string]string, len(s))
	for path, t := range s {
		decls[path] = t.Name()
	}
	return json.Marshal(decls)
}

// UnmarshalJSON reads declarations written by MarshalJSON.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var decls map[string]string
	if err := json.Unmarshal(data, &decls); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if decls == nil {
		*s = nil
		return nil
	}
	parsed, err := ParseTypeMap(decls)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
