package llmtool

import (
	"strings"
	"testing"
)

func TestRender_RendersSections(t *testing.T) {
	spec := StructuredPromptSpec{
		Purpose:      "Diagnosticar la causa raíz.",
		Background:   "Consultoría de procesos.",
		Input:        map[string]any{"problem": "<envíos> lentos"},
		Tasks:        []string{"Analiza.", " ", "Propón."},
		OutputFormat: "JSON only.",
		Language:     "Español",
		OutputFields: []PromptField{
			{Name: "rootCause", Type: "string", Required: true, Description: "Causa raíz."},
			{Name: "requirements", Type: "[]string", Required: false},
		},
		Constraints: []string{"No markdown."},
		Rules:       []string{"Sé conciso."},
	}

	out, err := Render(spec)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	for _, sec := range []string{"[PURPOSE]", "[BACKGROUND]", "[INPUT]", "[TASKS]", "[OUTPUT]", "[CONSTRAINTS]", "[RULES]", "[OUTPUT_FORMAT]", "[LANGUAGE]"} {
		if !strings.Contains(out, sec) {
			t.Fatalf("expected section %s in prompt", sec)
		}
	}
	if !strings.Contains(out, "1. Analiza.\n2. Propón.") {
		t.Fatalf("tasks should be numbered skipping blanks, got:\n%s", out)
	}
	if !strings.Contains(out, "<envíos> lentos") {
		t.Fatalf("input must not be HTML-escaped, got:\n%s", out)
	}
	if !strings.Contains(out, "- requirements ([]string, optional)") {
		t.Fatalf("missing optional field line, got:\n%s", out)
	}
}

func TestRender_SkipsEmptySections(t *testing.T) {
	out, err := Render(StructuredPromptSpec{
		Purpose:      "x",
		OutputFields: []PromptField{{Name: "a", Type: "string", Required: true}},
	})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if strings.Contains(out, "[INPUT]") || strings.Contains(out, "[RULES]") {
		t.Fatalf("empty sections should be omitted, got:\n%s", out)
	}
}

func TestRender_RequiresPurpose(t *testing.T) {
	_, err := Render(StructuredPromptSpec{OutputFields: []PromptField{{Name: "summary", Type: "string", Required: true}}})
	if err == nil || !strings.Contains(err.Error(), "purpose") {
		t.Fatalf("expected purpose error, got %v", err)
	}
}

func TestRender_RequiresOutputFields(t *testing.T) {
	_, err := Render(StructuredPromptSpec{Purpose: "x"})
	if err == nil || !strings.Contains(err.Error(), "output fields") {
		t.Fatalf("expected output fields error, got %v", err)
	}
}

func TestWithPresets_PrependsInOrder(t *testing.T) {
	spec := StructuredPromptSpec{Constraints: []string{"propia"}, Rules: []string{"regla"}}
	got := WithPresets(spec, Preset{Constraints: []string{"a"}}, Preset{Constraints: []string{"b"}, Rules: []string{"r"}})

	if strings.Join(got.Constraints, ",") != "a,b,propia" {
		t.Fatalf("constraints = %v", got.Constraints)
	}
	if strings.Join(got.Rules, ",") != "r,regla" {
		t.Fatalf("rules = %v", got.Rules)
	}
	if len(spec.Constraints) != 1 {
		t.Fatalf("input spec mutated: %v", spec.Constraints)
	}
	if same := WithPresets(spec); len(same.Constraints) != 1 {
		t.Fatalf("no presets should leave the spec alone")
	}
}
