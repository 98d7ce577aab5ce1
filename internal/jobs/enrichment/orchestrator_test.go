package enrichment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	diaryrepo "github.com/yungbote/studentdiary-backend/internal/data/repos/diary"
	"github.com/yungbote/studentdiary-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	providers "github.com/yungbote/studentdiary-backend/internal/modules/diary/enrichment"
	"github.com/yungbote/studentdiary-backend/internal/pkg/dbctx"
	"github.com/yungbote/studentdiary-backend/internal/pkg/pointers"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

type spyProviders struct {
	analyzeErr error
	embedErr   error
	graphErr   error

	analyzePanic any
	embedPanic   any

	analyzeCalls int32
	embedCalls   int32
	graphCalls   int32

	// barrier, when set, makes embed and link wait for each other.
	barrier *sync.WaitGroup
}

func (s *spyProviders) Analyze(ctx context.Context, content string) (types.Analysis, error) {
	atomic.AddInt32(&s.analyzeCalls, 1)
	if s.analyzePanic != nil {
		panic(s.analyzePanic)
	}
	if s.analyzeErr != nil {
		return types.Analysis{}, s.analyzeErr
	}
	return types.Analysis{Sentiment: types.SentimentPositive, MoodScore: 0.8, Emotions: []string{"joy"}, Topics: []string{"friends"}}, nil
}

func (s *spyProviders) meet() {
	if s.barrier == nil {
		return
	}
	s.barrier.Done()
	done := make(chan struct{})
	go func() { s.barrier.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

func (s *spyProviders) EmbedAndIndex(ctx context.Context, entry *types.Entry) (string, error) {
	atomic.AddInt32(&s.embedCalls, 1)
	s.meet()
	if s.embedPanic != nil {
		panic(s.embedPanic)
	}
	if s.embedErr != nil {
		return "", s.embedErr
	}
	return "vec-" + entry.ID.String(), nil
}

func (s *spyProviders) LinkGraph(ctx context.Context, entry *types.Entry, analysis types.Analysis) (string, error) {
	atomic.AddInt32(&s.graphCalls, 1)
	s.meet()
	if s.graphErr != nil {
		return "", s.graphErr
	}
	return "graph-" + entry.ID.String(), nil
}

func setup(t *testing.T, p Providers) (*Orchestrator, diaryrepo.EntryRepo, *types.Entry) {
	t.Helper()
	repo := diaryrepo.NewEntryRepo(testutil.DB(t), testutil.Logger(t))
	entry, err := repo.Create(dbctx.New(context.Background()), "owner", "Went to the fair with friends", 0.9, "text")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return NewOrchestrator(repo, p, nil, logger.Nop()), repo, entry
}

func reload(t *testing.T, repo diaryrepo.EntryRepo, id uuid.UUID) *types.Entry {
	t.Helper()
	e, err := repo.Get(dbctx.New(context.Background()), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return e
}

func TestEnrichAllProvidersSucceed(t *testing.T) {
	spy := &spyProviders{}
	o, repo, entry := setup(t, spy)

	if err := o.Enrich(context.Background(), entry.ID); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	got := reload(t, repo, entry.ID)
	if got.Status != types.StatusEnriched {
		t.Fatalf("status: got %s want enriched", got.Status)
	}
	if pointers.Deref(got.EmbeddingRef) == "" || pointers.Deref(got.GraphRef) == "" {
		t.Fatalf("refs missing: embed=%v graph=%v", got.EmbeddingRef, got.GraphRef)
	}
	if a, _ := got.DecodeAnalysis(); a == nil || a.Sentiment != types.SentimentPositive {
		t.Fatalf("analysis not stored: %v", a)
	}
}

func TestEnrichAnalyzeFailureSkipsDownstream(t *testing.T) {
	spy := &spyProviders{analyzeErr: &providers.ProviderError{Provider: providers.ProviderLLM, Kind: providers.Permanent, Err: errors.New("bad request")}}
	o, repo, entry := setup(t, spy)

	if err := o.Enrich(context.Background(), entry.ID); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	got := reload(t, repo, entry.ID)
	if got.Status != types.StatusFailed {
		t.Fatalf("status: got %s want failed", got.Status)
	}
	if len(got.Analysis) != 0 {
		t.Fatalf("failed entry must not carry analysis")
	}
	if got.EnrichmentError == "" {
		t.Fatalf("expected failure to be recorded")
	}
	if spy.embedCalls != 0 || spy.graphCalls != 0 {
		t.Fatalf("downstream providers invoked: embed=%d graph=%d", spy.embedCalls, spy.graphCalls)
	}
}

func TestEnrichPartialKeepsSuccessfulRef(t *testing.T) {
	spy := &spyProviders{embedErr: &providers.ProviderError{Provider: providers.ProviderVector, Kind: providers.Transient, Err: errors.New("503")}}
	o, repo, entry := setup(t, spy)

	if err := o.Enrich(context.Background(), entry.ID); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	got := reload(t, repo, entry.ID)
	if got.Status != types.StatusPartial {
		t.Fatalf("status: got %s want partial", got.Status)
	}
	if got.EmbeddingRef != nil {
		t.Fatalf("embedding ref should be empty, got %q", *got.EmbeddingRef)
	}
	if pointers.Deref(got.GraphRef) != "graph-"+entry.ID.String() {
		t.Fatalf("graph ref not kept: %v", got.GraphRef)
	}
	if a, _ := got.DecodeAnalysis(); a == nil {
		t.Fatalf("partial entry must carry analysis")
	}
}

func TestEnrichRunsEmbedAndLinkConcurrently(t *testing.T) {
	var barrier sync.WaitGroup
	barrier.Add(2)
	spy := &spyProviders{barrier: &barrier}
	o, repo, entry := setup(t, spy)

	start := time.Now()
	if err := o.Enrich(context.Background(), entry.ID); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("embed and link did not overlap (took %v)", elapsed)
	}
	if got := reload(t, repo, entry.ID); got.Status != types.StatusEnriched {
		t.Fatalf("status: got %s", got.Status)
	}
}

func TestEnrichDisabledProvidersAreNotRequired(t *testing.T) {
	client := providers.NewClient(providers.Providers{Analyzer: providers.HeuristicAnalyzer{}}, providers.DefaultPolicy(), nil, logger.Nop())
	o, repo, entry := setup(t, client)

	if err := o.Enrich(context.Background(), entry.ID); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	got := reload(t, repo, entry.ID)
	if got.Status != types.StatusEnriched {
		t.Fatalf("status: got %s want enriched", got.Status)
	}
	if got.EmbeddingRef != nil || got.GraphRef != nil {
		t.Fatalf("disabled providers should leave refs empty")
	}
}

func TestEnrichTerminalEntryIsNoop(t *testing.T) {
	spy := &spyProviders{}
	o, repo, entry := setup(t, spy)

	if err := o.Enrich(context.Background(), entry.ID); err != nil {
		t.Fatalf("first Enrich: %v", err)
	}
	if err := o.Enrich(context.Background(), entry.ID); err != nil {
		t.Fatalf("second Enrich: %v", err)
	}
	if spy.analyzeCalls != 1 {
		t.Fatalf("analyze calls: got %d want 1", spy.analyzeCalls)
	}
	if got := reload(t, repo, entry.ID); got.Status != types.StatusEnriched {
		t.Fatalf("status changed on re-trigger: %s", got.Status)
	}
	if err := o.Enrich(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unknown id should be ignored, got %v", err)
	}
}

func TestEnrichRecoversIndexerPanic(t *testing.T) {
	spy := &spyProviders{embedPanic: "indexer blew up"}
	o, repo, entry := setup(t, spy)

	if err := o.Enrich(context.Background(), entry.ID); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	got := reload(t, repo, entry.ID)
	if got.Status != types.StatusPartial {
		t.Fatalf("status: got %s want partial", got.Status)
	}
	if got.EmbeddingRef != nil || got.GraphRef == nil {
		t.Fatalf("refs: embedding=%v graph=%v", got.EmbeddingRef, got.GraphRef)
	}
	if msg := got.EnrichmentError; !strings.Contains(msg, "indexer blew up") {
		t.Fatalf("enrichment error = %q", msg)
	}
}

func TestEnrichRecoversAnalyzerPanic(t *testing.T) {
	spy := &spyProviders{analyzePanic: "bad model output"}
	o, repo, entry := setup(t, spy)

	if err := o.Enrich(context.Background(), entry.ID); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got := reload(t, repo, entry.ID); got.Status != types.StatusFailed {
		t.Fatalf("status: got %s want failed", got.Status)
	}
	if spy.embedCalls != 0 || spy.graphCalls != 0 {
		t.Fatalf("downstream providers ran after analysis panic")
	}
}
