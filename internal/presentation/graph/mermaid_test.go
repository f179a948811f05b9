package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/actscript/internal/presentation/graph"
	"github.com/aretw0/actscript/pkg/domain"
)

func scenario() *domain.ScenarioData {
	data := domain.NewScenarioData()
	data.AddAct("default")
	ask := data.AddAct("Ask Name")
	ask.Placeholders["name"] = nil
	ask.Description = `Say "hi"`
	data.AddAct("Final")
	return data
}

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(scenario(), nil)

	for _, want := range []string{
		"graph TD\n",
		"default((\"default\"))",
		"Ask_Name[/\"Ask Name <br/> Say 'hi' <br/> 1 placeholder(s)\"/]",
		"Final[\"Final\"]",
		"default --> Ask_Name",
		"Ask_Name --> Final",
		"Final -.-> __end",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "classDef") {
		t.Error("Did not expect overlay styles without an overlay")
	}
}

func TestGenerateMermaid_Empty(t *testing.T) {
	if out := graph.GenerateMermaid(nil, nil); out != "graph TD\n" {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	data := scenario()
	state := domain.NewState(data)
	state.Act = "Ask Name"
	state.Queue = []string{"Final"}

	overlay := graph.OverlayFromState(data, state)
	if overlay.CurrentAct != "Ask Name" || len(overlay.VisitedActs) != 1 || overlay.VisitedActs[0] != "default" {
		t.Fatalf("Unexpected overlay %+v", overlay)
	}

	out := graph.GenerateMermaid(data, overlay)
	for _, want := range []string{"class default visited;", "class Ask_Name current;"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "class Final") {
		t.Error("Queued acts should not be styled")
	}
}

func TestOverlayFromState_Terminated(t *testing.T) {
	data := scenario()
	state := domain.NewState(data)
	state.Act = ""
	state.Queue = nil

	overlay := graph.OverlayFromState(data, state)
	if overlay.CurrentAct != graph.EndNodeID {
		t.Errorf("Expected the end node to be current, got %q", overlay.CurrentAct)
	}
	if len(overlay.VisitedActs) != 3 {
		t.Errorf("Expected every act visited, got %v", overlay.VisitedActs)
	}
	if graph.OverlayFromState(nil, state) != nil {
		t.Error("Expected nil overlay without scenario")
	}
}
