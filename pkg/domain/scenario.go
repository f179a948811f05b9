package domain

import "regexp"

// PlaceholderPattern matches `{name}` and `{name|default}` tokens. Names may
// not contain braces, pipes, quotes or line breaks, so literal JSON objects
// inside message content are left alone.
var PlaceholderPattern = regexp.MustCompile(`\{\s*([^{}|"\n]*[^{}|"\s][^{}|"\n]*?)\s*(?:\|([^{}]*))?\}`)

// Message is a single role-tagged line of dialogue.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// MessageKeys names the fields a Message is exported with.
type MessageKeys struct {
	Role       string `json:"role" yaml:"role" mapstructure:"role"`
	Content    string `json:"content" yaml:"content" mapstructure:"content"`
	DefaultAct string `json:"defaultAct" yaml:"defaultAct" mapstructure:"defaultAct"`
}

// Fields renders the message with the configured key names.
func (m Message) Fields(keys MessageKeys) map[string]string {
	role, content := keys.Role, keys.Content
	if role == "" {
		role = "role"
	}
	if content == "" {
		content = "content"
	}
	return map[string]string{role: m.Role, content: m.Content}
}

// MessageFromFields is the inverse of Message.Fields.
func MessageFromFields(fields map[string]string, keys MessageKeys) Message {
	role, content := keys.Role, keys.Content
	if role == "" {
		role = "role"
	}
	if content == "" {
		content = "content"
	}
	return Message{Role: fields[role], Content: fields[content]}
}

// Act is a named stage of a scenario.
type Act struct {
	Messages        []Message      `json:"messages"`
	Description     string         `json:"description,omitempty"`
	HasPlaceholders bool           `json:"hasPlaceholders"`
	Placeholders    map[string]any `json:"placeholders"`
	Config          Config         `json:"config"`
}

// NewAct returns an empty act with its maps allocated.
func NewAct() *Act {
	return &Act{
		Messages:     []Message{},
		Placeholders: map[string]any{},
		Config:       Config{},
	}
}

// ScenarioData is the compiled form of a script.
type ScenarioData struct {
	Acts   map[string]*Act `json:"acts"`
	Order  []string        `json:"order"`
	Config Config          `json:"config"`
}

// NewScenarioData returns an empty scenario.
func NewScenarioData() *ScenarioData {
	return &ScenarioData{
		Acts:   map[string]*Act{},
		Order:  []string{},
		Config: Config{},
	}
}

// AddAct registers name if it is new and returns the act.
func (s *ScenarioData) AddAct(name string) *Act {
	if act, ok := s.Acts[name]; ok {
		return act
	}
	act := NewAct()
	s.Acts[name] = act
	s.Order = append(s.Order, name)
	return act
}

// Act returns the named act or nil.
func (s *ScenarioData) Act(name string) *Act {
	if s == nil {
		return nil
	}
	return s.Acts[name]
}

// ParserOverrides returns the parser settings recorded by `parse` directives.
func (s *ScenarioData) ParserOverrides() Config {
	if s == nil {
		return nil
	}
	return s.Config.Sub("parserOverrides")
}
