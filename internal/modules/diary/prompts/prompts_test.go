package prompts

import (
	"strings"
	"testing"
)

func TestEmbeddedCatalogRenders(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	analyze, err := c.Get(AnalyzeEntry)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	_, user, err := analyze.Render(struct{ Content string }{Content: "Board exams next week"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(user, "Board exams next week") {
		t.Fatalf("user prompt missing content: %q", user)
	}

	reflect, _ := c.Get(DailyReflection)
	type item struct {
		Content   string
		MoodScore float64
	}
	_, user, err = reflect.Render(struct{ Entries []item }{Entries: []item{{"Played cricket", 0.8}}})
	if err != nil {
		t.Fatalf("Render reflection: %v", err)
	}
	if !strings.Contains(user, "[mood 0.80] Played cricket") {
		t.Fatalf("unexpected reflection prompt: %q", user)
	}
}

func TestParseRejectsIncompleteCatalog(t *testing.T) {
	if _, err := Parse([]byte("version: 1\nprompts:\n  analyze_entry:\n    version: 1\n    schema_name: x\n    system: s\n    user: u\n")); err == nil {
		t.Fatalf("expected error for missing daily_reflection")
	}
}

func TestAnalysisSchemaRequiresAllProperties(t *testing.T) {
	s := AnalysisSchema()
	props := s["properties"].(map[string]any)
	req := s["required"].([]string)
	if len(props) != len(req) {
		t.Fatalf("strict schema must require every property: %d props, %d required", len(props), len(req))
	}
}
