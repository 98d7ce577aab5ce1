package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/studentdiary-backend/internal/data/db"
	"github.com/yungbote/studentdiary-backend/internal/data/graph"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
	"github.com/yungbote/studentdiary-backend/internal/platform/neo4jdb"
	"github.com/yungbote/studentdiary-backend/internal/platform/openai"
	"github.com/yungbote/studentdiary-backend/internal/platform/pinecone"
	"github.com/yungbote/studentdiary-backend/internal/platform/redisdb"
)

// Clients holds every external connection. Only DB is mandatory; the rest are nil when
// unconfigured or unreachable at startup, and the features behind them degrade.
type Clients struct {
	DB      *db.Service
	OpenAI  openai.Client
	Vectors pinecone.VectorStore
	Neo4j   *neo4jdb.Client
	Redis   *redis.Client
}

func wireClients(ctx context.Context, cfg Config, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	dbs, err := db.Open(cfg.DB, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init database: %w", err)
	}
	out := Clients{DB: dbs}

	// OpenAI
	if cfg.OpenAI.Enabled() {
		c, err := openai.NewClient(cfg.OpenAI, log)
		if err != nil {
			log.Warn("OpenAI disabled", "error", err)
		} else {
			out.OpenAI = c
		}
	}

	// Pinecone needs embeddings, so it is only useful alongside OpenAI.
	if cfg.Pinecone.Enabled() && out.OpenAI != nil {
		pc, err := pinecone.NewClient(cfg.Pinecone, log)
		if err == nil {
			out.Vectors, err = pinecone.NewVectorStore(ctx, cfg.Pinecone, pc, log)
		}
		if err != nil {
			log.Warn("Pinecone disabled", "error", err)
			out.Vectors = nil
		}
	}

	// Neo4j
	if n, err := neo4jdb.New(ctx, cfg.Neo4j, log); err != nil {
		log.Warn("Neo4j disabled", "error", err)
	} else if n != nil {
		graph.EnsureDiarySchema(ctx, n, log)
		out.Neo4j = n
	}

	// Redis
	if r, err := redisdb.New(ctx, cfg.Redis, log); err != nil {
		log.Warn("Redis disabled", "error", err)
	} else {
		out.Redis = r
	}

	log.Info("Providers configured",
		"openai", out.OpenAI != nil,
		"pinecone", out.Vectors != nil,
		"neo4j", out.Neo4j != nil,
		"redis", out.Redis != nil,
		"db_driver", dbs.Driver(),
	)
	return out, nil
}

func (c Clients) Close(ctx context.Context, log *logger.Logger) {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
	if c.Neo4j != nil {
		if err := c.Neo4j.Close(ctx); err != nil {
			log.Warn("neo4j close failed", "error", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			log.Warn("database close failed", "error", err)
		}
	}
}
