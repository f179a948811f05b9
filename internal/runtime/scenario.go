package runtime

import (
	"strconv"
	"strings"

	"github.com/aretw0/actscript/internal/compiler"
	"github.com/aretw0/actscript/pkg/domain"
)

// Scenario answers runtime questions about compiled ScenarioData: it builds
// the messages of an act and resolves configuration through the
// act -> default act -> scenario chain.
type Scenario struct {
	data   *domain.ScenarioData
	parser domain.ParserConfig
}

// NewScenario wraps compiled data. Parser settings are rebuilt from the
// recorded parserOverrides laid over cfg and the defaults.
func NewScenario(data *domain.ScenarioData, cfg domain.ParserConfig) *Scenario {
	if data == nil {
		data = domain.NewScenarioData()
	}
	base := domain.DefaultParserConfig().Merge(cfg)
	parser, err := compiler.DecodeConfig(base, data.ParserOverrides())
	if err != nil {
		parser = base
	}
	return &Scenario{data: data, parser: parser}
}

// NewScenarioFromText compiles text with cfg.
func NewScenarioFromText(text string, cfg domain.ParserConfig) *Scenario {
	return NewScenario(compiler.NewParserFromText(text, cfg).Scenario(), cfg)
}

// Data returns the compiled scenario.
func (s *Scenario) Data() *domain.ScenarioData { return s.data }

// DefaultAct returns the name acts fall back to.
func (s *Scenario) DefaultAct() string { return s.parser.Keys.DefaultAct }

// Keys returns the message key names recorded by the script.
func (s *Scenario) Keys() domain.MessageKeys { return s.parser.Keys }

// ParserConfig returns the effective parser settings.
func (s *Scenario) ParserConfig() domain.ParserConfig { return s.parser.Clone() }

// Order returns the act sequence.
func (s *Scenario) Order() []string { return append([]string(nil), s.data.Order...) }

// Act returns the named act or nil.
func (s *Scenario) Act(name string) *domain.Act { return s.data.Act(name) }

func (s *Scenario) resolve(act string) string {
	if act == "" {
		return s.DefaultAct()
	}
	return act
}

// Build returns fresh messages for act with placeholders substituted from
// ctx. Messages whose role starts with the comment marker are left out.
// Unknown acts yield nil.
func (s *Scenario) Build(ctx domain.Context, act string) []domain.Message {
	built := s.build(ctx, act)
	if built == nil {
		return nil
	}
	out := make([]domain.Message, len(built))
	for i, b := range built {
		out[i] = b.message
	}
	return out
}

// builtMessage keeps the compiled index of a built message so message-scoped
// config stays addressable after comment roles are filtered out.
type builtMessage struct {
	message domain.Message
	index   int
}

func (s *Scenario) build(ctx domain.Context, act string) []builtMessage {
	act = s.resolve(act)
	data := s.data.Act(act)
	if data == nil {
		return nil
	}
	rolePlaceholders := truthy(s.data.Config["rolePlaceholders"])

	out := make([]builtMessage, 0, len(data.Messages))
	for i, msg := range data.Messages {
		if s.parser.Comment != "" && strings.HasPrefix(msg.Role, s.parser.Comment) {
			continue
		}
		role := msg.Role
		if rolePlaceholders {
			role = s.substitute(role, ctx, data)
		}
		out = append(out, builtMessage{
			message: domain.Message{Role: role, Content: s.substitute(msg.Content, ctx, data)},
			index:   i,
		})
	}
	return out
}

// substitute fills tokens from the context, then the act defaults, then the
// global placeholder.
func (s *Scenario) substitute(text string, ctx domain.Context, act *domain.Act) string {
	return domain.PlaceholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := strings.TrimSpace(domain.PlaceholderPattern.FindStringSubmatch(token)[1])
		if v, ok := ctx.Lookup(name); ok && v != nil {
			return domain.Stringify(v)
		}
		if v, ok := ctx[name]; ok && v != nil {
			return domain.Stringify(v)
		}
		if v := act.Placeholders[name]; v != nil {
			return domain.Stringify(v)
		}
		return s.parser.DefaultPlaceholder
	})
}

func (s *Scenario) chain(act string) []domain.Config {
	def := s.DefaultAct()
	var chain []domain.Config
	if act != "" && act != def {
		if a := s.data.Act(act); a != nil {
			chain = append(chain, a.Config)
		}
	}
	if a := s.data.Act(def); a != nil {
		chain = append(chain, a.Config)
	}
	return append(chain, s.data.Config)
}

// ActConfig returns the configuration of act. With inherited set the view
// falls back to the default act and then the scenario config; otherwise it
// holds the first layer only. Unknown acts yield nil; an empty name means the
// default act.
func (s *Scenario) ActConfig(act string, inherited bool) *domain.LayeredConfig {
	if act != "" && s.data.Act(act) == nil {
		return nil
	}
	chain := s.chain(act)
	if !inherited {
		return domain.NewLayeredConfig(chain[0])
	}
	return domain.NewLayeredConfig(chain...)
}

// InheritConfigs lays ctx over the config chain of act.
func (s *Scenario) InheritConfigs(ctx domain.Context, act string) *domain.LayeredConfig {
	if ctx == nil {
		ctx = domain.Context{}
	}
	return domain.NewLayeredConfig(append([]domain.Config{domain.Config(ctx)}, s.chain(act)...)...)
}

// MessageConfig returns the config scoped to message index of act, or nil.
func (s *Scenario) MessageConfig(act string, index int) domain.Config {
	a := s.data.Act(s.resolve(act))
	if a == nil {
		return nil
	}
	return a.Config.Sub("messages." + strconv.Itoa(index))
}

// ResolveConfig is the full chain for one message: message, act, default act, scenario.
func (s *Scenario) ResolveConfig(act string, index int) *domain.LayeredConfig {
	act = s.resolve(act)
	if s.data.Act(act) == nil {
		return nil
	}
	return domain.NewLayeredConfig(append([]domain.Config{s.MessageConfig(act, index)}, s.chain(act)...)...)
}

// ActPlaceholders lists the placeholder names of act in first-use order.
func (s *Scenario) ActPlaceholders(act string) []string {
	a := s.data.Act(s.resolve(act))
	if a == nil {
		return nil
	}
	seen := map[string]bool{}
	names := []string{}
	for _, msg := range a.Messages {
		for _, m := range domain.PlaceholderPattern.FindAllStringSubmatch(msg.Content, -1) {
			name := strings.TrimSpace(m[1])
			if _, declared := a.Placeholders[name]; declared && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// NamedAct pairs an act with its name.
type NamedAct struct {
	Name     string
	Act      *domain.Act
	Messages []domain.Message
}

// Acts lists the acts in scenario order. With messagesOnly the Act field is
// left nil and only Messages is filled.
func (s *Scenario) Acts(messagesOnly bool) []NamedAct {
	out := make([]NamedAct, 0, len(s.data.Order))
	for _, name := range s.data.Order {
		a := s.data.Act(name)
		if a == nil {
			continue
		}
		entry := NamedAct{Name: name, Messages: a.Messages}
		if !messagesOnly {
			entry.Act = a
		}
		out = append(out, entry)
	}
	return out
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	}
	return true
}
