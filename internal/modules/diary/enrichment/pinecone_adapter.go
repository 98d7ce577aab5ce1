package enrichment

import (
	"context"
	"fmt"
	"time"

	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	"github.com/yungbote/studentdiary-backend/internal/platform/openai"
	"github.com/yungbote/studentdiary-backend/internal/platform/pinecone"
)

const (
	previewRunes = 200

	// PositiveMoodThreshold is the client mood score at or above which an entry counts as a good day.
	PositiveMoodThreshold = 0.7
	memoryAnchor          = "A happy moment from school or home that I am proud of and grateful for."
)

// PineconeIndexer embeds entry content with OpenAI and stores it in the owner's namespace.
type PineconeIndexer struct {
	embedder openai.Client
	store    pinecone.VectorStore
}

func NewPineconeIndexer(embedder openai.Client, store pinecone.VectorStore) *PineconeIndexer {
	return &PineconeIndexer{embedder: embedder, store: store}
}

func (p *PineconeIndexer) EmbedAndIndex(ctx context.Context, entry *types.Entry) (string, error) {
	vecs, err := p.embedder.Embed(ctx, []string{entry.Content})
	if err != nil {
		return "", err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return "", fmt.Errorf("empty embedding for entry %s", entry.ID)
	}
	id := entry.ID.String()
	err = p.store.Upsert(ctx, entry.OwnerID, []pinecone.Vector{{
		ID:     id,
		Values: vecs[0],
		Metadata: map[string]any{
			"owner_id":   entry.OwnerID,
			"entry_type": entry.EntryType,
			"mood_score": entry.MoodScore,
			"created_at": entry.CreatedAt.UTC().Format(time.RFC3339),
			"preview":    entry.Preview(previewRunes),
		},
	}})
	if err != nil {
		return "", err
	}
	return "pinecone:" + id, nil
}

func (p *PineconeIndexer) Similar(ctx context.Context, ownerID string, entryID string, topK int) ([]SimilarEntry, error) {
	matches, err := p.store.QueryByID(ctx, ownerID, entryID, topK+1)
	if err != nil {
		return nil, err
	}
	out := make([]SimilarEntry, 0, len(matches))
	for _, m := range matches {
		if m.ID == entryID {
			continue
		}
		se := SimilarEntry{EntryID: m.ID, Score: m.Score}
		se.MoodScore, se.CreatedAt, se.Preview = matchMetadata(m)
		out = append(out, se)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

// PositiveMemories embeds a fixed happy-moment text and searches the owner's namespace, restricted
// to entries whose mood score clears PositiveMoodThreshold.
func (p *PineconeIndexer) PositiveMemories(ctx context.Context, ownerID string, limit int) ([]types.Memory, error) {
	if limit <= 0 {
		limit = 3
	}
	vecs, err := p.embedder.Embed(ctx, []string{memoryAnchor})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("empty embedding for memory search")
	}
	matches, err := p.store.Query(ctx, ownerID, vecs[0], limit, map[string]any{
		"owner_id":   map[string]any{"$eq": ownerID},
		"mood_score": map[string]any{"$gte": PositiveMoodThreshold},
	})
	if err != nil {
		return nil, err
	}
	out := make([]types.Memory, 0, len(matches))
	for _, m := range matches {
		mood, createdAt, preview := matchMetadata(m)
		mem := types.Memory{EntryID: m.ID, Preview: preview, CreatedAt: createdAt}
		if mood != nil {
			mem.MoodScore = *mood
		}
		out = append(out, mem)
	}
	return out, nil
}

func matchMetadata(m pinecone.QueryMatch) (mood *float64, createdAt *time.Time, preview string) {
	if v, ok := m.Metadata["mood_score"].(float64); ok {
		mood = &v
	}
	if v, ok := m.Metadata["created_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			createdAt = &ts
		}
	}
	preview, _ = m.Metadata["preview"].(string)
	return mood, createdAt, preview
}
