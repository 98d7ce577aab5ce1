package enrichment

import (
	"context"

	"github.com/yungbote/studentdiary-backend/internal/data/graph"
	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	"github.com/yungbote/studentdiary-backend/internal/platform/neo4jdb"
)

type Neo4jLinker struct {
	client *neo4jdb.Client
}

func NewNeo4jLinker(client *neo4jdb.Client) *Neo4jLinker {
	return &Neo4jLinker{client: client}
}

func (l *Neo4jLinker) LinkGraph(ctx context.Context, entry *types.Entry, analysis types.Analysis) (string, error) {
	return graph.UpsertDiaryEntry(ctx, l.client, entry, &analysis)
}

func (l *Neo4jLinker) TopInsights(ctx context.Context, ownerID string, limit int) ([]types.CountedLabel, []types.CountedLabel, error) {
	return graph.TopInsights(ctx, l.client, ownerID, limit)
}
