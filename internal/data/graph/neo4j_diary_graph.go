package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
	"github.com/yungbote/studentdiary-backend/internal/platform/neo4jdb"
)

// EntryRef is the opaque reference stored on the entry after a successful graph write.
func EntryRef(entryID string) string { return "neo4j:Entry:" + entryID }

func EnsureDiarySchema(ctx context.Context, client *neo4jdb.Client, log *logger.Logger) {
	if client == nil || client.Driver == nil {
		return
	}
	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	for _, stmt := range []string{
		`CREATE CONSTRAINT student_id_unique IF NOT EXISTS FOR (s:Student) REQUIRE s.id IS UNIQUE`,
		`CREATE CONSTRAINT entry_id_unique IF NOT EXISTS FOR (e:Entry) REQUIRE e.id IS UNIQUE`,
		`CREATE CONSTRAINT emotion_name_unique IF NOT EXISTS FOR (m:Emotion) REQUIRE m.name IS UNIQUE`,
		`CREATE CONSTRAINT topic_name_unique IF NOT EXISTS FOR (t:Topic) REQUIRE t.name IS UNIQUE`,
	} {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			log.Warn("neo4j schema init failed (continuing)", "error", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}
}

// UpsertDiaryEntry links Student-[:WROTE]->Entry and the entry's emotions and topics.
// Re-running it for the same entry replaces the previous edges.
func UpsertDiaryEntry(ctx context.Context, client *neo4jdb.Client, entry *types.Entry, analysis *types.Analysis) (string, error) {
	if client == nil || client.Driver == nil {
		return "", fmt.Errorf("neo4j not configured")
	}
	if entry == nil || analysis == nil {
		return "", fmt.Errorf("entry and analysis required")
	}

	params := map[string]any{
		"owner_id":     entry.OwnerID,
		"entry_id":     entry.ID.String(),
		"sentiment":    analysis.Sentiment,
		"mood_score":   entry.MoodScore,
		"crisis_level": analysis.CrisisLevel,
		"created_at":   entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		"synced_at":    time.Now().UTC().Format(time.RFC3339Nano),
		"emotions":     NormalizeLabels(analysis.Emotions),
		"topics":       NormalizeLabels(analysis.Topics),
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, q := range []string{`
MERGE (s:Student {id: $owner_id})
MERGE (e:Entry {id: $entry_id})
SET e.sentiment = $sentiment,
    e.mood_score = $mood_score,
    e.crisis_level = $crisis_level,
    e.created_at = $created_at,
    e.synced_at = $synced_at
MERGE (s)-[:WROTE]->(e)
WITH e
OPTIONAL MATCH (e)-[r:EXPRESSES|DISCUSSES]->()
DELETE r
`, `
MATCH (e:Entry {id: $entry_id})
UNWIND $emotions AS name
MERGE (m:Emotion {name: name})
MERGE (e)-[:EXPRESSES]->(m)
`, `
MATCH (e:Entry {id: $entry_id})
UNWIND $topics AS name
MERGE (t:Topic {name: name})
MERGE (e)-[:DISCUSSES]->(t)
`} {
			res, err := tx.Run(ctx, q, params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return "", err
	}
	return EntryRef(entry.ID.String()), nil
}

// TopInsights returns the most frequent emotions and topics across the owner's entries.
func TopInsights(ctx context.Context, client *neo4jdb.Client, ownerID string, limit int) ([]types.CountedLabel, []types.CountedLabel, error) {
	if client == nil || client.Driver == nil {
		return nil, nil, fmt.Errorf("neo4j not configured")
	}
	if limit <= 0 {
		limit = 5
	}
	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	read := func(rel, label string) ([]types.CountedLabel, error) {
		out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, fmt.Sprintf(`
MATCH (:Student {id: $owner_id})-[:WROTE]->(:Entry)-[:%s]->(n:%s)
RETURN n.name AS name, count(*) AS c
ORDER BY c DESC, name ASC
LIMIT $limit
`, rel, label), map[string]any{"owner_id": ownerID, "limit": int64(limit)})
			if err != nil {
				return nil, err
			}
			records, err := res.Collect(ctx)
			if err != nil {
				return nil, err
			}
			rows := make([]types.CountedLabel, 0, len(records))
			for _, rec := range records {
				name, _, _ := neo4j.GetRecordValue[string](rec, "name")
				count, _, _ := neo4j.GetRecordValue[int64](rec, "c")
				if name == "" {
					continue
				}
				rows = append(rows, types.CountedLabel{Label: name, Count: int(count)})
			}
			return rows, nil
		})
		if err != nil {
			return nil, err
		}
		return out.([]types.CountedLabel), nil
	}

	emotions, err := read("EXPRESSES", "Emotion")
	if err != nil {
		return nil, nil, err
	}
	topics, err := read("DISCUSSES", "Topic")
	if err != nil {
		return nil, nil, err
	}
	return emotions, topics, nil
}

// NormalizeLabels lowercases, trims and de-duplicates labels, preserving first-seen order.
func NormalizeLabels(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// RankLabels turns label counts into a descending list, ties broken alphabetically.
func RankLabels(counts map[string]int, limit int) []types.CountedLabel {
	out := make([]types.CountedLabel, 0, len(counts))
	for k, v := range counts {
		out = append(out, types.CountedLabel{Label: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
