package pinecone

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/studentdiary-backend/internal/pkg/httpx"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

type Config struct {
	APIKey          string        `envconfig:"PINECONE_API_KEY"`
	IndexName       string        `envconfig:"PINECONE_INDEX_NAME"`
	IndexHost       string        `envconfig:"PINECONE_INDEX_HOST"`
	ControlPlaneURL string        `envconfig:"PINECONE_CONTROL_URL" default:"https://api.pinecone.io"`
	APIVersion      string        `envconfig:"PINECONE_API_VERSION" default:"2025-04"`
	NamespacePrefix string        `envconfig:"PINECONE_NAMESPACE_PREFIX" default:"diary"`
	Timeout         time.Duration `envconfig:"PINECONE_TIMEOUT" default:"15s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != "" && (strings.TrimSpace(c.IndexHost) != "" || strings.TrimSpace(c.IndexName) != "")
}

type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type UpsertRequest struct {
	Namespace string   `json:"namespace,omitempty"`
	Vectors   []Vector `json:"vectors"`
}

type UpsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

type QueryRequest struct {
	Namespace       string         `json:"namespace,omitempty"`
	Vector          []float32      `json:"vector,omitempty"`
	ID              string         `json:"id,omitempty"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeValues   bool           `json:"includeValues"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type QueryMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type QueryResponse struct {
	Matches   []QueryMatch `json:"matches"`
	Namespace string       `json:"namespace"`
}

type IndexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Host      string `json:"host"`
}

// Client speaks the Pinecone data-plane and control-plane REST APIs.
type Client interface {
	DescribeIndex(ctx context.Context, name string) (*IndexDescription, error)
	UpsertVectors(ctx context.Context, host string, req UpsertRequest) (*UpsertResponse, error)
	Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error)
}

type client struct {
	log        *logger.Logger
	http       *resty.Client
	controlURL string
}

func NewClient(cfg Config, log *logger.Logger) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing PINECONE_API_KEY")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("Api-Key", cfg.APIKey).
		SetHeader("X-Pinecone-Api-Version", cfg.APIVersion).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &client{
		log:        log.With("client", "PineconeClient"),
		http:       rc,
		controlURL: strings.TrimRight(cfg.ControlPlaneURL, "/"),
	}, nil
}

func normalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" || strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}

func doJSON[T any](ctx context.Context, c *client, method, url string, body any) (*T, error) {
	var out T
	req := c.http.R().SetContext(ctx).SetResult(&out)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, &httpx.StatusError{
			Service:    "pinecone",
			StatusCode: resp.StatusCode(),
			Body:       string(resp.Body()),
			RetryAfter: httpx.RetryAfterDuration(resp.Header(), 0, 30*time.Second),
		}
	}
	return &out, nil
}

func (c *client) DescribeIndex(ctx context.Context, name string) (*IndexDescription, error) {
	return doJSON[IndexDescription](ctx, c, resty.MethodGet, c.controlURL+"/indexes/"+name, nil)
}

func (c *client) UpsertVectors(ctx context.Context, host string, req UpsertRequest) (*UpsertResponse, error) {
	return doJSON[UpsertResponse](ctx, c, resty.MethodPost, normalizeHost(host)+"/vectors/upsert", req)
}

func (c *client) Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error) {
	return doJSON[QueryResponse](ctx, c, resty.MethodPost, normalizeHost(host)+"/query", req)
}
