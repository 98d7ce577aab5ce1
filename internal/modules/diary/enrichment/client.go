package enrichment

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	"github.com/yungbote/studentdiary-backend/internal/observability"
	"github.com/yungbote/studentdiary-backend/internal/pkg/httpx"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

type Policy struct {
	AttemptTimeout time.Duration `envconfig:"ENRICH_ATTEMPT_TIMEOUT" default:"20s"`
	MaxRetries     uint64        `envconfig:"ENRICH_MAX_RETRIES" default:"2"`
	InitialBackoff time.Duration `envconfig:"ENRICH_INITIAL_BACKOFF" default:"500ms"`
	MaxBackoff     time.Duration `envconfig:"ENRICH_MAX_BACKOFF" default:"5s"`
	// RatePerSec caps calls per provider; zero disables limiting.
	RatePerSec float64 `envconfig:"ENRICH_PROVIDER_RPS" default:"5"`
	RateBurst  int     `envconfig:"ENRICH_PROVIDER_BURST" default:"5"`
}

func DefaultPolicy() Policy {
	return Policy{
		AttemptTimeout: 20 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

type Providers struct {
	Analyzer  Analyzer
	Indexer   Indexer
	Linker    GraphLinker
	Reflector Reflector
}

// Client applies timeout, retry and rate-limit policy around the provider adapters and
// normalizes every failure into a *ProviderError.
type Client struct {
	log       *logger.Logger
	metrics   *observability.Metrics
	policy    Policy
	providers Providers
	limiters  map[Provider]*rate.Limiter
}

func NewClient(p Providers, policy Policy, metrics *observability.Metrics, baseLog *logger.Logger) *Client {
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = 20 * time.Second
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = 500 * time.Millisecond
	}
	if policy.MaxBackoff < policy.InitialBackoff {
		policy.MaxBackoff = policy.InitialBackoff
	}
	limiters := map[Provider]*rate.Limiter{}
	if policy.RatePerSec > 0 {
		burst := policy.RateBurst
		if burst <= 0 {
			burst = 1
		}
		for _, p := range []Provider{ProviderLLM, ProviderVector, ProviderGraph} {
			limiters[p] = rate.NewLimiter(rate.Limit(policy.RatePerSec), burst)
		}
	}
	return &Client{
		log:       baseLog.With("service", "EnrichmentClient"),
		metrics:   metrics,
		policy:    policy,
		providers: p,
		limiters:  limiters,
	}
}

func (c *Client) IndexerEnabled() bool { return c.providers.Indexer != nil }
func (c *Client) LinkerEnabled() bool  { return c.providers.Linker != nil }

func (c *Client) Analyze(ctx context.Context, content string) (types.Analysis, error) {
	if c.providers.Analyzer == nil {
		return types.Analysis{}, disabledError(ProviderLLM)
	}
	a, err := call(ctx, c, ProviderLLM, "analyze", func(ctx context.Context) (types.Analysis, error) {
		return c.providers.Analyzer.Analyze(ctx, content)
	})
	if err != nil {
		return types.Analysis{}, err
	}
	a.Normalize()
	return a, nil
}

func (c *Client) EmbedAndIndex(ctx context.Context, entry *types.Entry) (string, error) {
	if c.providers.Indexer == nil {
		return "", disabledError(ProviderVector)
	}
	return call(ctx, c, ProviderVector, "embed_and_index", func(ctx context.Context) (string, error) {
		return c.providers.Indexer.EmbedAndIndex(ctx, entry)
	})
}

func (c *Client) LinkGraph(ctx context.Context, entry *types.Entry, analysis types.Analysis) (string, error) {
	if c.providers.Linker == nil {
		return "", disabledError(ProviderGraph)
	}
	return call(ctx, c, ProviderGraph, "link_graph", func(ctx context.Context) (string, error) {
		return c.providers.Linker.LinkGraph(ctx, entry, analysis)
	})
}

func (c *Client) Reflect(ctx context.Context, entries []ReflectionInput) (string, error) {
	if c.providers.Reflector == nil {
		return "", disabledError(ProviderLLM)
	}
	return call(ctx, c, ProviderLLM, "reflect", func(ctx context.Context) (string, error) {
		return c.providers.Reflector.Reflect(ctx, entries)
	})
}

func (c *Client) Similar(ctx context.Context, ownerID, entryID string, topK int) ([]SimilarEntry, error) {
	finder, ok := c.providers.Indexer.(SimilarFinder)
	if !ok || finder == nil {
		return nil, disabledError(ProviderVector)
	}
	return call(ctx, c, ProviderVector, "similar", func(ctx context.Context) ([]SimilarEntry, error) {
		return finder.Similar(ctx, ownerID, entryID, topK)
	})
}

func (c *Client) PositiveMemories(ctx context.Context, ownerID string, limit int) ([]types.Memory, error) {
	finder, ok := c.providers.Indexer.(MemoryFinder)
	if !ok || finder == nil {
		return nil, disabledError(ProviderVector)
	}
	return call(ctx, c, ProviderVector, "positive_memories", func(ctx context.Context) ([]types.Memory, error) {
		return finder.PositiveMemories(ctx, ownerID, limit)
	})
}

func (c *Client) TopInsights(ctx context.Context, ownerID string, limit int) ([]types.CountedLabel, []types.CountedLabel, error) {
	reader, ok := c.providers.Linker.(InsightReader)
	if !ok || reader == nil {
		return nil, nil, disabledError(ProviderGraph)
	}
	type pair struct{ emotions, topics []types.CountedLabel }
	out, err := call(ctx, c, ProviderGraph, "top_insights", func(ctx context.Context) (pair, error) {
		e, t, err := reader.TopInsights(ctx, ownerID, limit)
		return pair{e, t}, err
	})
	if err != nil {
		return nil, nil, err
	}
	return out.emotions, out.topics, nil
}

// newBackOff keeps the context wrapper outermost so RetryNotify can cancel its sleeps.
func (c *Client) newBackOff(ctx context.Context) (backoff.BackOff, *hintedBackOff) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.policy.InitialBackoff
	exp.MaxInterval = c.policy.MaxBackoff
	exp.MaxElapsedTime = 0
	hinted := &hintedBackOff{BackOff: backoff.WithMaxRetries(exp, c.policy.MaxRetries)}
	return backoff.WithContext(hinted, ctx), hinted
}

// hintedBackOff waits at least as long as the last Retry-After the provider sent.
type hintedBackOff struct {
	backoff.BackOff
	hint time.Duration
}

func (b *hintedBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	hint := b.hint
	b.hint = 0
	if next == backoff.Stop || hint <= next {
		return next
	}
	return hint
}

// call runs fn with a fresh timeout per attempt and retries transient failures.
func call[T any](ctx context.Context, c *Client, provider Provider, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := otel.Tracer("studentdiary/enrichment").Start(ctx, "provider."+op)
	span.SetAttributes(attribute.String("provider", string(provider)))
	defer span.End()

	start := time.Now()
	attempts := 0
	var out T
	retry, hinted := c.newBackOff(ctx)
	operation := func() error {
		attempts++
		if lim := c.limiters[provider]; lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return backoff.Permanent(Classify(provider, err))
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout)
		defer cancel()
		res, err := fn(attemptCtx)
		if err == nil {
			out = res
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			if ctx.Err() == nil {
				return &ProviderError{Provider: provider, Kind: Transient, Err: err}
			}
		}
		pe := Classify(provider, err)
		if !pe.Transient() {
			return backoff.Permanent(pe)
		}
		hinted.hint = httpx.RetryAfterHint(err)
		return pe
	}
	notify := func(err error, wait time.Duration) {
		c.metrics.IncProviderRetry(string(provider), op)
		c.log.Warn("Provider call retrying",
			"provider", string(provider),
			"operation", op,
			"attempt", attempts,
			"sleep", wait.String(),
			"error", err.Error(),
		)
	}

	err := backoff.RetryNotify(operation, retry, notify)
	if err == nil {
		c.metrics.ObserveProviderCall(string(provider), op, "ok", time.Since(start))
		return out, nil
	}

	pe := Classify(provider, err)
	c.metrics.ObserveProviderCall(string(provider), op, string(pe.Kind), time.Since(start))
	span.RecordError(pe)
	span.SetStatus(codes.Error, pe.Error())
	span.SetAttributes(attribute.Int("attempts", attempts))
	var zero T
	return zero, pe
}
