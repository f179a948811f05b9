package compiler

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	assignmentLine = regexp.MustCompile(`^\s*([^=]*?)\s*=\s*(.*?)\s*$`)
	flagWord       = regexp.MustCompile(`^[\w.-]+$`)
)

const parserOverridesKey = "parserOverrides"

// scope identifies where an act-level directive lands. index is negative
// outside of a message body.
type scope struct {
	act   string
	index int
}

func actScope(act string) scope { return scope{act: act, index: -1} }

// key prefixes key with the message namespace when scanning a message body.
func (s scope) key(key string) string {
	if s.index < 0 {
		return key
	}
	return "messages." + strconv.Itoa(s.index) + "." + key
}

// extractDirectives removes every directive line from text, applying each
// one, and returns the remaining lines.
func (c *compilation) extractDirectives(text string, sc scope) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if directive, ok := c.directive(line); ok {
			c.applyDirective(directive, sc)
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// directive reports whether line is a directive and returns its text.
func (c *compilation) directive(line string) (string, bool) {
	marker := c.cfg.Directive
	if marker == "" || !strings.HasPrefix(line, marker) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, marker)), true
}

// applyDirective dispatches to the first matching form. Anything else is dropped.
func (c *compilation) applyDirective(directive string, sc scope) {
	switch {
	case strings.HasPrefix(directive, "parse "):
		c.applyParse(directive)
	case strings.HasPrefix(directive, "use "):
		c.applyUse(directive)
	case strings.Contains(directive, "="):
		c.applyAssignment(directive, sc)
	case flagWord.MatchString(directive):
		c.applyFlag(directive, sc)
	}
}

// keyValue splits `<word> <key> <value...>`.
func keyValue(directive string) (string, string, bool) {
	fields := strings.Fields(directive)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[1], strings.Join(fields[2:], " "), true
}

// applyParse changes the live parser settings and records the change so a
// runtime can rebuild the same settings later.
func (c *compilation) applyParse(directive string) {
	key, value, ok := keyValue(directive)
	if !ok {
		return
	}
	c.setParser(key, Coerce(value))
}

// applyUse writes scenario-wide config.
func (c *compilation) applyUse(directive string) {
	key, value, ok := keyValue(directive)
	if !ok {
		return
	}
	c.data.Config.Set(key, Coerce(value))
}

// applyAssignment handles `key=value`, routed by the scenario., parser. and
// act. prefixes. Unprefixed keys belong to the act.
func (c *compilation) applyAssignment(directive string, sc scope) {
	m := assignmentLine.FindStringSubmatch(directive)
	if m == nil || m[1] == "" {
		return
	}
	key, value := m[1], Coerce(m[2])

	switch {
	case strings.HasPrefix(key, "scenario."):
		c.data.Config.Set(strings.TrimPrefix(key, "scenario."), value)
	case strings.HasPrefix(key, "parser."):
		c.setParser(strings.TrimPrefix(key, "parser."), value)
	default:
		key = strings.TrimPrefix(key, "act.")
		c.data.AddAct(sc.act).Config.Set(sc.key(key), value)
	}
}

// applyFlag sets a bare word to true in the act config.
func (c *compilation) applyFlag(directive string, sc scope) {
	c.data.AddAct(sc.act).Config.Set(sc.key(directive), true)
}

func (c *compilation) setParser(key string, value any) {
	c.cfg.Set(key, value)
	c.data.Config.Set(parserOverridesKey+"."+key, value)
}
