package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/studentdiary-backend/internal/pkg/httpx"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

type Config struct {
	APIKey         string        `envconfig:"OPENAI_API_KEY"`
	BaseURL        string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com"`
	Model          string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel string        `envconfig:"OPENAI_EMBED_MODEL" default:"text-embedding-3-small"`
	Temperature    float64       `envconfig:"OPENAI_TEMPERATURE" default:"0.3"`
	HTTPTimeout    time.Duration `envconfig:"OPENAI_HTTP_TIMEOUT" default:"60s"`
}

func (c Config) Enabled() bool { return strings.TrimSpace(c.APIKey) != "" }

// Client is the subset of the OpenAI API the diary pipeline needs. Calls are single attempts;
// retry policy belongs to the caller.
type Client interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)

	// Structured outputs (json_schema); the model's JSON is decoded into out.
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any, out any) error

	GenerateText(ctx context.Context, system string, user string) (string, error)
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	embedModel  string
	temperature float64
	httpClient  *http.Client
}

func NewClient(cfg Config, log *logger.Logger) (Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &client{
		log:         log.With("client", "OpenAIClient"),
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		embedModel:  cfg.EmbeddingModel,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Debug("OpenAI request failed", "path", path, "status", resp.StatusCode, "elapsed", time.Since(start).String())
		return &httpx.StatusError{
			Service:    "openai",
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			RetryAfter: httpx.RetryAfterDuration(resp.Header, 0, 30*time.Second),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("openai decode error: %w", err)
	}
	return nil
}

// -------------------- Embeddings --------------------

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	clean := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}

	var resp embeddingsResponse
	if err := c.do(ctx, http.MethodPost, "/v1/embeddings", embeddingsRequest{Model: c.embedModel, Input: clean}, &resp); err != nil {
		return nil, err
	}

	out := make([][]float32, len(clean))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[d.Index] = vec
	}
	for i := range out {
		if out[i] == nil {
			return nil, fmt.Errorf("openai embeddings missing index %d: requested=%d returned=%d", i, len(clean), len(resp.Data))
		}
	}
	return out, nil
}

// -------------------- Responses --------------------

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model string         `json:"model"`
	Input []inputMessage `json:"input"`
	Text  *struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
}

// ErrRefused is returned when the model declines to answer.
var ErrRefused = errors.New("openai: model refused")

func extractOutputText(resp responsesResponse) (string, error) {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			switch {
			case c.Type == "refusal" && c.Refusal != "":
				return "", fmt.Errorf("%w: %s", ErrRefused, c.Refusal)
			case c.Type == "output_text" && c.Text != "":
				out.WriteString(c.Text)
			}
		}
	}
	text := out.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	return text, nil
}

func (c *client) newRequest(system, user string) *responsesRequest {
	temp := c.temperature
	return &responsesRequest{
		Model: c.model,
		Input: []inputMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: &temp,
	}
}

func (c *client) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any, out any) error {
	if schemaName == "" {
		return errors.New("schemaName required")
	}
	if schema == nil {
		return errors.New("schema required")
	}
	req := c.newRequest(system, user)
	req.Text = &struct {
		Format map[string]any `json:"format,omitempty"`
	}{
		Format: map[string]any{
			"type":   "json_schema",
			"name":   schemaName,
			"schema": schema,
			"strict": true,
		},
	}

	var resp responsesResponse
	if err := c.do(ctx, http.MethodPost, "/v1/responses", req, &resp); err != nil {
		return err
	}
	jsonText, err := extractOutputText(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonText), out); err != nil {
		return fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return nil
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	var resp responsesResponse
	if err := c.do(ctx, http.MethodPost, "/v1/responses", c.newRequest(system, user), &resp); err != nil {
		return "", err
	}
	return extractOutputText(resp)
}
