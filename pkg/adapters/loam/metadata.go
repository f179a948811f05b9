package loam

// ScriptMetadata is the front matter of a script document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type ScriptMetadata struct {
	ID    string `json:"id" mapstructure:"id"`
	Title string `json:"title" mapstructure:"title"`

	// Parser overrides the host parser settings for this script
	// (e.g. comment: "//" or keys.defaultAct: main).
	Parser map[string]any `json:"parser" mapstructure:"parser"`

	// Context seeds the first act of new sessions.
	Context map[string]any `json:"context" mapstructure:"context"`

	Tags []string `json:"tags" mapstructure:"tags"`
}
