package enrichment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	diaryrepo "github.com/yungbote/studentdiary-backend/internal/data/repos/diary"
	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	providers "github.com/yungbote/studentdiary-backend/internal/modules/diary/enrichment"
	"github.com/yungbote/studentdiary-backend/internal/observability"
	"github.com/yungbote/studentdiary-backend/internal/pkg/dbctx"
	"github.com/yungbote/studentdiary-backend/internal/pkg/pointers"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

type EntryStore interface {
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Entry, error)
	UpdateEnrichment(dbc dbctx.Context, id uuid.UUID, patch diaryrepo.EnrichmentPatch, newStatus types.Status) (bool, error)
}

type Providers interface {
	Analyze(ctx context.Context, content string) (types.Analysis, error)
	EmbedAndIndex(ctx context.Context, entry *types.Entry) (string, error)
	LinkGraph(ctx context.Context, entry *types.Entry, analysis types.Analysis) (string, error)
}

// Orchestrator drives one entry through pending -> enriching -> {enriched, partial, failed}.
type Orchestrator struct {
	log       *logger.Logger
	store     EntryStore
	providers Providers
	metrics   *observability.Metrics
}

func NewOrchestrator(store EntryStore, p Providers, metrics *observability.Metrics, baseLog *logger.Logger) *Orchestrator {
	return &Orchestrator{
		log:       baseLog.With("service", "EnrichmentOrchestrator"),
		store:     store,
		providers: p,
		metrics:   metrics,
	}
}

// Enrich is safe to call repeatedly for the same entry: terminal entries are left alone and every
// store write goes through the status compare-and-swap. Provider failures are recorded on the
// entry; only store failures are returned.
func (o *Orchestrator) Enrich(ctx context.Context, entryID uuid.UUID) error {
	ctx, span := otel.Tracer("studentdiary/enrichment").Start(ctx, "enrichment.Enrich")
	span.SetAttributes(attribute.String("entry_id", entryID.String()))
	defer span.End()

	start := time.Now()
	dbc := dbctx.New(ctx)
	log := o.log.With("entry_id", entryID.String())

	entry, err := o.store.Get(dbc, entryID)
	if err != nil {
		if types.IsNotFound(err) {
			log.Warn("Enrichment skipped: entry not found")
			return nil
		}
		return err
	}
	if entry.Status.Terminal() {
		log.Debug("Enrichment skipped: entry already terminal", "status", string(entry.Status))
		return nil
	}

	ok, err := o.store.UpdateEnrichment(dbc, entryID, diaryrepo.EnrichmentPatch{}, types.StatusEnriching)
	if err != nil {
		return err
	}
	if !ok {
		log.Debug("Enrichment skipped: entry advanced concurrently")
		return nil
	}

	analysis, err := o.analyze(ctx, entry.Content)
	if err != nil {
		log.Warn("Entry analysis failed", "error", err)
		if _, err := o.store.UpdateEnrichment(dbc, entryID, diaryrepo.EnrichmentPatch{Error: pointers.String(err.Error())}, types.StatusFailed); err != nil {
			return err
		}
		o.finish(span, types.StatusFailed, start)
		return nil
	}

	var (
		embedRef, graphRef string
		embedErr, graphErr error
		g                  errgroup.Group
	)
	g.Go(func() (err error) {
		defer recoverInto(providers.ProviderVector, &embedErr, &err)
		embedRef, embedErr = o.providers.EmbedAndIndex(ctx, entry)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverInto(providers.ProviderGraph, &graphErr, &err)
		graphRef, graphErr = o.providers.LinkGraph(ctx, entry, analysis)
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("Enrichment provider panicked", "error", err)
	}

	patch := diaryrepo.EnrichmentPatch{Analysis: &analysis}
	var failures []string
	if embedErr == nil {
		patch.EmbeddingRef = pointers.NonEmpty(embedRef)
	} else if !providers.Disabled(embedErr) {
		log.Warn("Entry indexing failed", "error", embedErr)
		failures = append(failures, embedErr.Error())
	}
	if graphErr == nil {
		patch.GraphRef = pointers.NonEmpty(graphRef)
	} else if !providers.Disabled(graphErr) {
		log.Warn("Entry graph linking failed", "error", graphErr)
		failures = append(failures, graphErr.Error())
	}

	status := types.StatusEnriched
	if len(failures) > 0 {
		status = types.StatusPartial
		patch.Error = pointers.String(strings.Join(failures, "; "))
	}
	if _, err := o.store.UpdateEnrichment(dbc, entryID, patch, status); err != nil {
		return err
	}
	o.finish(span, status, start)
	log.Info("Entry enriched", "status", string(status), "elapsed", time.Since(start).String())
	return nil
}

func (o *Orchestrator) finish(span trace.Span, status types.Status, start time.Time) {
	span.SetAttributes(attribute.String("status", string(status)))
	o.metrics.ObserveEnrichment(string(status), time.Since(start))
}

func (o *Orchestrator) analyze(ctx context.Context, content string) (analysis types.Analysis, err error) {
	defer recoverInto(providers.ProviderLLM, &err, nil)
	return o.providers.Analyze(ctx, content)
}

// recoverInto must be deferred directly. It records a provider panic in providerErr and,
// when groupErr is set, reports it to the errgroup as well.
func recoverInto(provider providers.Provider, providerErr *error, groupErr *error) {
	r := recover()
	if r == nil {
		return
	}
	pe := providers.Recovered(provider, r)
	*providerErr = pe
	if groupErr != nil {
		*groupErr = pe
	}
}
