package enrichment

import (
	"context"
	"time"

	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
)

type Analyzer interface {
	Analyze(ctx context.Context, content string) (types.Analysis, error)
}

type Indexer interface {
	// EmbedAndIndex stores a vector for the entry and returns an opaque reference.
	EmbedAndIndex(ctx context.Context, entry *types.Entry) (string, error)
}

type GraphLinker interface {
	// LinkGraph records the entry and its analysis in the graph and returns an opaque reference.
	LinkGraph(ctx context.Context, entry *types.Entry, analysis types.Analysis) (string, error)
}

type Reflector interface {
	Reflect(ctx context.Context, entries []ReflectionInput) (string, error)
}

// SimilarFinder is implemented by indexers that can answer nearest-neighbour queries.
type SimilarFinder interface {
	Similar(ctx context.Context, ownerID string, entryID string, topK int) ([]SimilarEntry, error)
}

// MemoryFinder is implemented by indexers that can search an owner's entries written on good days.
type MemoryFinder interface {
	PositiveMemories(ctx context.Context, ownerID string, limit int) ([]types.Memory, error)
}

// InsightReader is implemented by graph linkers that can aggregate labels per owner.
type InsightReader interface {
	TopInsights(ctx context.Context, ownerID string, limit int) (emotions []types.CountedLabel, topics []types.CountedLabel, err error)
}

type ReflectionInput struct {
	Content   string
	MoodScore float64
	CreatedAt time.Time
}

type SimilarEntry struct {
	EntryID   string     `json:"entry_id"`
	Score     float64    `json:"score"`
	MoodScore *float64   `json:"mood_score,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Preview   string     `json:"preview,omitempty"`
}
