package enrichment

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	"github.com/yungbote/studentdiary-backend/internal/pkg/httpx"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

type analyzerFunc func(ctx context.Context, content string) (types.Analysis, error)

func (f analyzerFunc) Analyze(ctx context.Context, content string) (types.Analysis, error) {
	return f(ctx, content)
}

func testPolicy() Policy {
	return Policy{
		AttemptTimeout: time.Second,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls int32
	c := NewClient(Providers{Analyzer: analyzerFunc(func(ctx context.Context, content string) (types.Analysis, error) {
		atomic.AddInt32(&calls, 1)
		return types.Analysis{}, &httpx.StatusError{Service: "openai", StatusCode: 503}
	})}, testPolicy(), nil, logger.Nop())

	_, err := c.Analyze(context.Background(), "text")
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %T %v", err, err)
	}
	if pe.Provider != ProviderLLM || pe.Kind != Transient {
		t.Fatalf("unexpected classification: %+v", pe)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("attempts: got %d want 3", got)
	}
}

func TestClientDoesNotRetryPermanentFailures(t *testing.T) {
	var calls int32
	c := NewClient(Providers{Analyzer: analyzerFunc(func(ctx context.Context, content string) (types.Analysis, error) {
		atomic.AddInt32(&calls, 1)
		return types.Analysis{}, &httpx.StatusError{Service: "openai", StatusCode: 400}
	})}, testPolicy(), nil, logger.Nop())

	_, err := c.Analyze(context.Background(), "text")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Kind != Permanent {
		t.Fatalf("expected permanent ProviderError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("attempts: got %d want 1", got)
	}
}

func TestClientRecoversAfterTransientFailure(t *testing.T) {
	var calls int32
	c := NewClient(Providers{Analyzer: analyzerFunc(func(ctx context.Context, content string) (types.Analysis, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return types.Analysis{}, &httpx.StatusError{Service: "openai", StatusCode: 429}
		}
		return types.Analysis{Sentiment: "positive", MoodScore: 0.9}, nil
	})}, testPolicy(), nil, logger.Nop())

	a, err := c.Analyze(context.Background(), "text")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Sentiment != "positive" || a.Emotions == nil {
		t.Fatalf("expected normalized analysis, got %+v", a)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("attempts: got %d want 2", got)
	}
}

func TestClientHonoursRetryAfter(t *testing.T) {
	var calls int32
	c := NewClient(Providers{Analyzer: analyzerFunc(func(ctx context.Context, content string) (types.Analysis, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return types.Analysis{}, &httpx.StatusError{Service: "openai", StatusCode: 429, RetryAfter: 150 * time.Millisecond}
		}
		return types.Analysis{Sentiment: "neutral", MoodScore: 0.5}, nil
	})}, testPolicy(), nil, logger.Nop())

	start := time.Now()
	if _, err := c.Analyze(context.Background(), "text"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("retried after %v, before the provider's Retry-After", elapsed)
	}
}

func TestHintedBackOff(t *testing.T) {
	b := &hintedBackOff{BackOff: backoff.WithMaxRetries(&backoff.ConstantBackOff{Interval: time.Second}, 2)}
	b.hint = 3 * time.Second
	if got := b.NextBackOff(); got != 3*time.Second {
		t.Fatalf("hinted wait = %v, want 3s", got)
	}
	if got := b.NextBackOff(); got != time.Second {
		t.Fatalf("hint must apply once, got %v", got)
	}
	b.hint = time.Minute
	if got := b.NextBackOff(); got != backoff.Stop {
		t.Fatalf("exhausted retries must stop, got %v", got)
	}
}

func TestClientAttemptTimeoutIsTransient(t *testing.T) {
	policy := testPolicy()
	policy.AttemptTimeout = 10 * time.Millisecond
	var calls int32
	c := NewClient(Providers{Analyzer: analyzerFunc(func(ctx context.Context, content string) (types.Analysis, error) {
		atomic.AddInt32(&calls, 1)
		<-ctx.Done()
		return types.Analysis{}, ctx.Err()
	})}, policy, nil, logger.Nop())

	start := time.Now()
	_, err := c.Analyze(context.Background(), "text")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Kind != Transient {
		t.Fatalf("expected transient ProviderError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("attempts: got %d want 3", got)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeouts not enforced: took %v", elapsed)
	}
}

func TestClientDisabledProviders(t *testing.T) {
	c := NewClient(Providers{}, testPolicy(), nil, logger.Nop())
	if _, err := c.EmbedAndIndex(context.Background(), &types.Entry{}); !Disabled(err) {
		t.Fatalf("expected disabled indexer, got %v", err)
	}
	if _, err := c.LinkGraph(context.Background(), &types.Entry{}, types.Analysis{}); !Disabled(err) {
		t.Fatalf("expected disabled linker, got %v", err)
	}
	if _, err := c.Reflect(context.Background(), nil); !Disabled(err) {
		t.Fatalf("expected disabled reflector, got %v", err)
	}
	if c.IndexerEnabled() || c.LinkerEnabled() {
		t.Fatalf("nothing should be enabled")
	}
}

func TestClassify(t *testing.T) {
	if k := Classify(ProviderGraph, context.DeadlineExceeded).Kind; k != Transient {
		t.Fatalf("deadline: got %s", k)
	}
	if k := Classify(ProviderGraph, errors.New("syntax error")).Kind; k != Permanent {
		t.Fatalf("plain error: got %s", k)
	}
	inner := &ProviderError{Provider: ProviderVector, Kind: Transient, Err: errors.New("x")}
	if got := Classify(ProviderGraph, inner); got != inner {
		t.Fatalf("existing ProviderError should pass through")
	}
}

func TestHeuristicAnalyzer(t *testing.T) {
	a, err := HeuristicAnalyzer{}.Analyze(context.Background(), "I am so stressed about the math exam, really worried")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Sentiment != types.SentimentNegative {
		t.Fatalf("sentiment: got %s", a.Sentiment)
	}
	if len(a.AcademicSubjects) != 1 || a.AcademicSubjects[0] != "math" {
		t.Fatalf("subjects: %v", a.AcademicSubjects)
	}
	if len(a.Topics) == 0 || a.Topics[0] != "academics" {
		t.Fatalf("topics: %v", a.Topics)
	}

	happy, _ := HeuristicAnalyzer{}.Analyze(context.Background(), "Had a great day with my friend")
	if happy.Sentiment != types.SentimentPositive || happy.MoodScore != 0.7 {
		t.Fatalf("unexpected analysis: %+v", happy)
	}
}
