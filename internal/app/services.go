package app

import (
	"fmt"

	"github.com/yungbote/studentdiary-backend/internal/jobs/enrichment"
	providers "github.com/yungbote/studentdiary-backend/internal/modules/diary/enrichment"
	"github.com/yungbote/studentdiary-backend/internal/modules/diary/prompts"
	"github.com/yungbote/studentdiary-backend/internal/observability"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
	"github.com/yungbote/studentdiary-backend/internal/services"
)

type Services struct {
	Enrichment   *providers.Client
	Orchestrator *enrichment.Orchestrator
	Dispatcher   *enrichment.Dispatcher

	Entry      services.EntryService
	Analytics  services.AnalyticsService
	Reflection services.ReflectionService
}

func wireProviders(cfg Config, clients Clients, log *logger.Logger) (providers.Providers, error) {
	var p providers.Providers

	var catalog *prompts.Catalog
	if clients.OpenAI != nil {
		c, err := prompts.Load(cfg.PromptsYAML)
		if err != nil {
			return p, fmt.Errorf("load prompts: %w", err)
		}
		catalog = c
	}

	switch cfg.Analyzer {
	case AnalyzerOpenAI, AnalyzerAuto:
		if clients.OpenAI != nil {
			a, err := providers.NewOpenAIAnalyzer(clients.OpenAI, catalog)
			if err != nil {
				return p, err
			}
			p.Analyzer = a
		} else if cfg.Analyzer == AnalyzerAuto {
			p.Analyzer = providers.HeuristicAnalyzer{}
		} else {
			log.Warn("ENRICH_ANALYZER=openai but OpenAI is not configured; analysis disabled")
		}
	case AnalyzerHeuristic:
		p.Analyzer = providers.HeuristicAnalyzer{}
	}

	if clients.OpenAI != nil {
		r, err := providers.NewOpenAIReflector(clients.OpenAI, catalog)
		if err != nil {
			return p, err
		}
		p.Reflector = r
		if clients.Vectors != nil {
			p.Indexer = providers.NewPineconeIndexer(clients.OpenAI, clients.Vectors)
		}
	}
	if clients.Neo4j != nil {
		p.Linker = providers.NewNeo4jLinker(clients.Neo4j)
	}
	return p, nil
}

func wireServices(cfg Config, clients Clients, reposet Repos, metrics *observability.Metrics, log *logger.Logger) (Services, error) {
	log.Info("Wiring services...")

	p, err := wireProviders(cfg, clients, log)
	if err != nil {
		return Services{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return Services{}, err
	}

	client := providers.NewClient(p, cfg.Policy, metrics, log)
	log.Info("Enrichment client ready", "indexer", client.IndexerEnabled(), "graph_linker", client.LinkerEnabled())
	orchestrator := enrichment.NewOrchestrator(reposet.Entry, client, metrics, log)
	dispatcher := enrichment.NewDispatcher(orchestrator, reposet.Entry, cfg.Dispatcher, metrics, log)

	return Services{
		Enrichment:   client,
		Orchestrator: orchestrator,
		Dispatcher:   dispatcher,
		Entry:        services.NewEntryService(reposet.Entry, dispatcher, client, log),
		Analytics:    services.NewAnalyticsService(reposet.Entry, client, loc, log),
		Reflection: services.NewReflectionService(reposet.Entry, client, services.ReflectionOptions{
			Timeout:  cfg.ReflectionTimeout,
			Location: loc,
			Cache:    services.NewRedisReflectionCache(clients.Redis),
			Metrics:  metrics,
		}, log),
	}, nil
}
