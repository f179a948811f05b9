package testutils

import _ "embed"

// ColorsScript exercises acts, comments, continuations, placeholders and
// every directive form.
//
//go:embed testdata/colors.scenario
var ColorsScript string

// ChatScript relies on a `parse comment //` override and the "main" default act.
//
//go:embed testdata/chat.scenario
var ChatScript string

// TwoActScript has a default act with one placeholder and a literal final act.
const TwoActScript = `system:
Hello {name}

[Final]

system:
Goodbye`
