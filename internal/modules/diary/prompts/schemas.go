package prompts

func stringArray() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

// AnalysisSchema is strict: every property is required and no extras are allowed.
func AnalysisSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sentiment":         map[string]any{"type": "string", "enum": []string{"positive", "neutral", "negative"}},
			"mood_score":        map[string]any{"type": "number"},
			"emotions":          stringArray(),
			"topics":            stringArray(),
			"academic_subjects": stringArray(),
			"stress_indicators": stringArray(),
			"cultural_context":  stringArray(),
			"support_needed":    map[string]any{"type": "boolean"},
			"crisis_level":      map[string]any{"type": "string", "enum": []string{"none", "low", "medium", "high"}},
		},
		"required": []string{
			"sentiment", "mood_score", "emotions", "topics", "academic_subjects",
			"stress_indicators", "cultural_context", "support_needed", "crisis_level",
		},
		"additionalProperties": false,
	}
}
