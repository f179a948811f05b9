package domain

// Script is a dialogue script as served by a ScriptLoader.
type Script struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`

	// Parser holds parser settings declared next to the script (front matter),
	// laid over the host defaults before compiling.
	Parser Config `json:"parser,omitempty"`

	// Context seeds the first act of sessions started from this script.
	Context Context `json:"context,omitempty"`
}
