package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse converts raw text into a value of type t. Numbers and booleans are
// parsed, slices are split on commas and anything else stays a string.
func Parse(t Type, raw string) (any, error) {
	raw = strings.TrimSpace(raw)

	var value any
	switch typ := t.(type) {
	case scalar:
		switch typ.kind {
		case kindInt, kindFloat:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("expected %s, got %q", t.Name(), raw)
			}
			value = f
		case kindBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("expected bool, got %q", raw)
			}
			value = b
		default:
			value = raw
		}
	case slice:
		items := []any{}
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			item, err := Parse(typ.elem, part)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", len(items), err)
			}
			items = append(items, item)
		}
		value = items
	default:
		value = raw
	}

	if err := t.Validate(value); err != nil {
		return nil, err
	}
	return value, nil
}
