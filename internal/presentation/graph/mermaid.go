package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/actscript/pkg/domain"
)

// EndNodeID closes every chart.
const EndNodeID = "__end"

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedActs []string
	CurrentAct  string
}

// OverlayFromState marks the acts already played by state. Acts still
// queued are left unstyled.
func OverlayFromState(data *domain.ScenarioData, state *domain.State) *GraphOverlay {
	if data == nil || state == nil {
		return nil
	}
	queued := make(map[string]bool, len(state.Queue))
	for _, act := range state.Queue {
		queued[act] = true
	}
	overlay := &GraphOverlay{CurrentAct: state.Act}
	for _, act := range data.Order {
		if !queued[act] && act != state.Act {
			overlay.VisitedActs = append(overlay.VisitedActs, act)
		}
	}
	if state.Terminated() {
		overlay.CurrentAct = EndNodeID
	}
	return overlay
}

// GenerateMermaid produces a Mermaid flowchart of the act order.
// It applies semantic styling:
// - First act: ((Circle))
// - Act with placeholders: [/Parallelogram/]
// - Default: [Rectangle]
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(data *domain.ScenarioData, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if data == nil {
		return sb.String()
	}

	prev := ""
	for i, name := range data.Order {
		act := data.Acts[name]
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		switch {
		case i == 0:
			opener, closer = "((", "))"
		case act != nil && len(act.Placeholders) > 0:
			opener, closer = "[/", "/]"
		}

		label := escapeLabel(name)
		if act != nil {
			if act.Description != "" {
				label += " <br/> " + escapeLabel(act.Description)
			}
			if n := len(act.Placeholders); n > 0 {
				label += fmt.Sprintf(" <br/> %d placeholder(s)", n)
			}
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		if prev != "" {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", prev, safeID))
		}
		prev = safeID
	}

	sb.WriteString(fmt.Sprintf("    %s(((\"end\")))\n", EndNodeID))
	if prev != "" {
		sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", prev, EndNodeID))
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, name := range overlay.VisitedActs {
			safeID := sanitizeMermaidID(name)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentAct != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentAct)))
		}
	}

	return sb.String()
}

// sanitizeMermaidID maps act names, which may hold spaces and punctuation,
// to identifiers Mermaid accepts.
func sanitizeMermaidID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
