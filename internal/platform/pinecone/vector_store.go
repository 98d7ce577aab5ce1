package pinecone

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

// VectorStore scopes the raw client to one index and a namespace prefix.
type VectorStore interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	// QueryByID returns the nearest neighbours of an already indexed vector (higher score is closer).
	QueryByID(ctx context.Context, namespace string, id string, topK int) ([]QueryMatch, error)
	// Query searches by vector, restricted to vectors whose metadata matches filter.
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]any) ([]QueryMatch, error)
}

type vectorStore struct {
	log       *logger.Logger
	pc        Client
	indexHost string
	nsPrefix  string
}

func NewVectorStore(ctx context.Context, cfg Config, pc Client, log *logger.Logger) (VectorStore, error) {
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}
	nsPrefix := strings.TrimSpace(cfg.NamespacePrefix)
	if nsPrefix == "" {
		nsPrefix = "diary"
	}
	host := strings.TrimSpace(cfg.IndexHost)
	if host == "" {
		if strings.TrimSpace(cfg.IndexName) == "" {
			return nil, fmt.Errorf("missing PINECONE_INDEX_HOST or PINECONE_INDEX_NAME")
		}
		desc, err := pc.DescribeIndex(ctx, cfg.IndexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		if host == "" {
			return nil, fmt.Errorf("pinecone describe_index returned empty host")
		}
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index",
			"index_name", cfg.IndexName,
			"index_host", host,
		)
	}
	return &vectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		indexHost: host,
		nsPrefix:  nsPrefix,
	}, nil
}

func (s *vectorStore) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	_, err := s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{
		Namespace: s.qualifyNamespace(namespace),
		Vectors:   vectors,
	})
	return err
}

func (s *vectorStore) QueryByID(ctx context.Context, namespace string, id string, topK int) ([]QueryMatch, error) {
	return s.query(ctx, QueryRequest{Namespace: namespace, ID: id, TopK: topK})
}

func (s *vectorStore) Query(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]any) ([]QueryMatch, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("pinecone query: empty vector")
	}
	return s.query(ctx, QueryRequest{Namespace: namespace, Vector: vector, TopK: topK, Filter: filter})
}

func (s *vectorStore) query(ctx context.Context, req QueryRequest) ([]QueryMatch, error) {
	if req.TopK <= 0 {
		req.TopK = 5
	}
	req.Namespace = s.qualifyNamespace(req.Namespace)
	req.IncludeMetadata = true
	resp, err := s.pc.Query(ctx, s.indexHost, req)
	if err != nil {
		return nil, err
	}
	out := make([]QueryMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *vectorStore) qualifyNamespace(ns string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return s.nsPrefix
	}
	return s.nsPrefix + ":" + ns
}
