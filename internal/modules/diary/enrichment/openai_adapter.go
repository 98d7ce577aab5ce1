package enrichment

import (
	"context"
	"fmt"

	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	"github.com/yungbote/studentdiary-backend/internal/modules/diary/prompts"
	"github.com/yungbote/studentdiary-backend/internal/platform/openai"
)

type OpenAIAnalyzer struct {
	llm    openai.Client
	prompt prompts.Template
}

func NewOpenAIAnalyzer(llm openai.Client, catalog *prompts.Catalog) (*OpenAIAnalyzer, error) {
	t, err := catalog.Get(prompts.AnalyzeEntry)
	if err != nil {
		return nil, err
	}
	return &OpenAIAnalyzer{llm: llm, prompt: t}, nil
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, content string) (types.Analysis, error) {
	system, user, err := a.prompt.Render(struct{ Content string }{Content: content})
	if err != nil {
		return types.Analysis{}, err
	}
	var out types.Analysis
	if err := a.llm.GenerateJSON(ctx, system, user, a.prompt.SchemaName, prompts.AnalysisSchema(), &out); err != nil {
		return types.Analysis{}, err
	}
	return out, nil
}

type OpenAIReflector struct {
	llm    openai.Client
	prompt prompts.Template
}

func NewOpenAIReflector(llm openai.Client, catalog *prompts.Catalog) (*OpenAIReflector, error) {
	t, err := catalog.Get(prompts.DailyReflection)
	if err != nil {
		return nil, err
	}
	return &OpenAIReflector{llm: llm, prompt: t}, nil
}

func (r *OpenAIReflector) Reflect(ctx context.Context, entries []ReflectionInput) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("no entries to reflect on")
	}
	system, user, err := r.prompt.Render(struct{ Entries []ReflectionInput }{Entries: entries})
	if err != nil {
		return "", err
	}
	return r.llm.GenerateText(ctx, system, user)
}
