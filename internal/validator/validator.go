package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/schema"
)

// Severity grades an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding about a compiled script.
type Issue struct {
	Severity Severity `json:"severity"`
	Act      string   `json:"act,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Act == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: act %q: %s", i.Severity, i.Act, i.Message)
}

// ValidateScenario reports problems the compiler tolerates silently: a
// script without acts, acts without messages, messages without content and
// placeholder names that read as context paths. Declared context types must
// parse and placeholder defaults must match them.
func ValidateScenario(data *domain.ScenarioData) []Issue {
	if data == nil || len(data.Order) == 0 {
		return []Issue{{Severity: SeverityError, Message: "script defines no acts"}}
	}

	var issues []Issue
	types, err := schema.FromConfig(data.Config)
	if err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Message: fmt.Sprintf("invalid schema: %v", err)})
	}
	for _, name := range data.Order {
		act := data.Acts[name]
		if act == nil {
			issues = append(issues, Issue{Severity: SeverityError, Act: name, Message: "listed in order but not compiled"})
			continue
		}
		if len(act.Messages) == 0 {
			issues = append(issues, Issue{Severity: SeverityWarning, Act: name, Message: "act has no messages"})
		}
		for i, msg := range act.Messages {
			if strings.TrimSpace(msg.Content) == "" {
				issues = append(issues, Issue{Severity: SeverityWarning, Act: name, Message: fmt.Sprintf("message %d (%s) is empty", i+1, msg.Role)})
			}
		}

		placeholders := make([]string, 0, len(act.Placeholders))
		for p := range act.Placeholders {
			placeholders = append(placeholders, p)
		}
		sort.Strings(placeholders)
		for _, p := range placeholders {
			if strings.Contains(p, ".") {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Act:      name,
					Message:  fmt.Sprintf("placeholder %q contains a dot and resolves as a context path before the flat key", p),
				})
			}
			def, ok := act.Placeholders[p].(string)
			if typ := types[p]; typ != nil && ok {
				if _, err := schema.Parse(typ, def); err != nil {
					issues = append(issues, Issue{
						Severity: SeverityWarning,
						Act:      name,
						Message:  fmt.Sprintf("default of placeholder %q does not match its type: %v", p, err),
					})
				}
			}
		}
	}
	return issues
}

// Err folds the error level issues into one error, or nil.
func Err(issues []Issue) error {
	var errs []string
	for _, i := range issues {
		if i.Severity == SeverityError {
			errs = append(errs, i.String())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}
