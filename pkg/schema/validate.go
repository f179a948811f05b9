package schema

import (
	"sort"

	"github.com/aretw0/actscript/pkg/domain"
)

// Schema maps context paths to their expected types.
// Example: {"age": Int(), "user.vip": Bool(), "tags": Slice(String())}
type Schema map[string]Type

// Fields returns the declared paths in sorted order.
func (s Schema) Fields() []string {
	fields := make([]string, 0, len(s))
	for f := range s {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Validate checks the fields of data that the schema declares. Absent
// fields are skipped. Returns an error with all validation failures found.
func Validate(schema Schema, data domain.Context) error {
	if len(schema) == 0 || len(data) == 0 {
		return nil
	}

	var errs []error
	for _, field := range schema.Fields() {
		value, exists := data.Lookup(field)
		if !exists {
			continue
		}
		if err := schema[field].Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    field,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
