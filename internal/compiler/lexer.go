package compiler

import (
	"regexp"
	"strings"
)

var (
	blockSplitter = regexp.MustCompile(`(?:\s*\n\s*){2,}`)
	lineSplitter  = regexp.MustCompile(`\s*\n\s*`)
	actHeading    = regexp.MustCompile(`^\[.*\]$`)
	actBrackets   = regexp.MustCompile(`^\s*\[\s*|\s*\]\s*$`)
	roleSuffix    = regexp.MustCompile(`:\s*$`)
)

// normalize trims the script and drops carriage returns.
func normalize(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\r", ""))
}

// splitBlocks cuts text on runs of blank lines. Blank blocks are dropped.
func splitBlocks(text string) []string {
	var blocks []string
	for _, b := range blockSplitter.Split(text, -1) {
		if b = strings.TrimSpace(b); b != "" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// splitLines returns the head line of a block and its body lines, all trimmed.
func splitLines(block string) (string, []string) {
	lines := lineSplitter.Split(strings.TrimSpace(block), -1)
	return lines[0], lines[1:]
}

func isActHeading(head string) bool {
	return actHeading.MatchString(strings.TrimSpace(head))
}

// actName strips the brackets of an act heading. An empty name falls back to fallback.
func actName(head, fallback string) string {
	name := strings.TrimSpace(actBrackets.ReplaceAllString(head, ""))
	if name == "" {
		return fallback
	}
	return name
}

// roleName strips the trailing colon of a message head.
func roleName(head string) string {
	return strings.TrimSpace(roleSuffix.ReplaceAllString(head, ""))
}

func isComment(line, marker string) bool {
	return marker != "" && strings.HasPrefix(line, marker)
}

// withoutComments drops lines starting with the comment marker.
func withoutComments(lines []string, marker string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if !isComment(l, marker) {
			out = append(out, l)
		}
	}
	return out
}
