package domain

import "fmt"

// Context carries caller supplied values used to fill placeholders.
type Context map[string]any

// Lookup resolves a dotted path.
func (c Context) Lookup(path string) (any, bool) {
	return lookup(map[string]any(c), SplitPath(path))
}

// Clone returns a deep copy.
func (c Context) Clone() Context {
	if c == nil {
		return nil
	}
	return Context(cloneMap(c))
}

// MergeContexts folds right into left and returns a new Context. Arrays
// concatenate, nested maps merge recursively and scalar conflicts take the
// right-hand value. Neither argument is modified.
func MergeContexts(left, right Context) Context {
	out := Context(cloneMap(left))
	if out == nil {
		out = Context{}
	}
	for k, v := range right {
		out[k] = mergeValue(out[k], v)
	}
	return out
}

func mergeValue(left, right any) any {
	if left == nil {
		return cloneValue(right)
	}
	if la, ok := asSlice(left); ok {
		if ra, ok := asSlice(right); ok {
			merged := make([]any, 0, len(la)+len(ra))
			merged = append(merged, la...)
			for _, item := range ra {
				merged = append(merged, cloneValue(item))
			}
			return merged
		}
	}
	lm, lok := AsConfig(left)
	rm, rok := AsConfig(right)
	if lok && rok {
		out := cloneMap(lm)
		for k, v := range rm {
			out[k] = mergeValue(out[k], v)
		}
		if _, ok := left.(Context); ok {
			return Context(out)
		}
		return out
	}
	return cloneValue(right)
}

func asSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// Stringify renders a context value the way it is substituted into content.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	case []any:
		s := ""
		for i, item := range t {
			if i > 0 {
				s += ","
			}
			s += Stringify(item)
		}
		return s
	}
	return fmt.Sprint(v)
}
