package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/ports"
)

// Mask replaces sensitive values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks context values whose keys
// match the patterns. String values masked this way are also redacted from
// the message history, where placeholders may have copied them.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		patterns[i] = re
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	// Work on a copy; the engine keeps using the live state.
	cloned := state.Snapshot()

	secrets := map[string]bool{}
	m.maskMap(cloned.Context, secrets)
	for _, c := range cloned.Contexts {
		m.maskMap(c, secrets)
	}
	for i, msg := range cloned.History {
		for secret := range secrets {
			msg.Content = strings.ReplaceAll(msg.Content, secret, Mask)
		}
		cloned.History[i] = msg
	}

	return m.next.Save(ctx, sessionID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// maskMap masks matching keys in place, recursing into nested maps, and
// collects the masked string values.
func (m *piiMiddleware) maskMap(values map[string]any, secrets map[string]bool) {
	for k, v := range values {
		if m.matches(k) {
			collect(v, secrets)
			values[k] = Mask
			continue
		}
		if sub, ok := nested(v); ok {
			m.maskMap(sub, secrets)
		}
	}
}

func nested(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case domain.Context:
		return t, true
	case domain.Config:
		return t, true
	}
	return nil, false
}

func collect(v any, secrets map[string]bool) {
	switch t := v.(type) {
	case string:
		if t != "" {
			secrets[t] = true
		}
	case []any:
		for _, item := range t {
			collect(item, secrets)
		}
	default:
		if sub, ok := nested(v); ok {
			for _, item := range sub {
				collect(item, secrets)
			}
		}
	}
}
