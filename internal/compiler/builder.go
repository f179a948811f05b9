package compiler

import (
	"regexp"
	"strings"

	"github.com/aretw0/actscript/pkg/domain"
)

var defaultSplitter = regexp.MustCompile(`\s*\|\s*`)

// compilation carries the working parser settings and the scenario being
// built through one parse.
type compilation struct {
	cfg  *domain.ParserConfig
	data *domain.ScenarioData
}

// declareAct handles an act heading block and returns the act name now in effect.
func (c *compilation) declareAct(head string, body []string) string {
	name := actName(head, c.cfg.Keys.DefaultAct)
	if isComment(name, c.cfg.Comment) {
		return name
	}
	act := c.data.AddAct(name)
	text := c.extractDirectives(strings.Join(withoutComments(body, c.cfg.Comment), "\n"), actScope(name))
	if desc := strings.TrimSpace(text); desc != "" && act.Description == "" {
		act.Description = desc
	}
	return name
}

// appendMessage turns a message block into a Message of the current act.
func (c *compilation) appendMessage(actName, head string, body []string) {
	act := c.data.AddAct(actName)
	sc := scope{act: actName, index: len(act.Messages)}

	lines := make([]string, 0, len(body))
	for _, line := range withoutComments(body, c.cfg.Comment) {
		if strings.TrimSpace(c.extractDirectives(line, sc)) != "" {
			lines = append(lines, line)
		}
	}

	content := strings.Join(lines, c.cfg.Join)
	if re := c.hardBreak(); re != nil {
		content = re.ReplaceAllString(content, "\n")
	}
	content = domain.PlaceholderPattern.ReplaceAllStringFunc(content, func(token string) string {
		m := domain.PlaceholderPattern.FindStringSubmatch(token)
		return "{" + c.storePlaceholder(act, m[1], m[2]) + "}"
	})

	act.Messages = append(act.Messages, domain.Message{
		Role:    roleName(head),
		Content: content,
	})
}

// hardBreak matches the continuation marker followed by the join sequence.
func (c *compilation) hardBreak() *regexp.Regexp {
	if c.cfg.NewLine == "" {
		return nil
	}
	join := c.cfg.Join
	if join == "" {
		return regexp.MustCompile(regexp.QuoteMeta(c.cfg.NewLine))
	}
	return regexp.MustCompile(regexp.QuoteMeta(c.cfg.NewLine) + "(?:" + regexp.QuoteMeta(join) + ")+")
}

// storePlaceholder registers a placeholder and returns its bare name. The
// first non-empty default seen in the act wins.
func (c *compilation) storePlaceholder(act *domain.Act, name, defaults string) string {
	name = strings.TrimSpace(name)
	var value any
	if d := strings.TrimSpace(strings.Join(defaultSplitter.Split(strings.TrimSpace(defaults), -1), " ")); d != "" {
		value = coerceScalar(d)
	}
	if prev, ok := act.Placeholders[name]; !ok || (prev == nil && value != nil) {
		act.Placeholders[name] = value
	}
	act.HasPlaceholders = true
	return name
}
