package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	repos "github.com/yungbote/studentdiary-backend/internal/data/repos/diary"
	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	"github.com/yungbote/studentdiary-backend/internal/modules/diary/enrichment"
	"github.com/yungbote/studentdiary-backend/internal/observability"
	"github.com/yungbote/studentdiary-backend/internal/pkg/dbctx"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

const (
	reflectionEntries        = 5
	DefaultReflectionTimeout = 15 * time.Second

	ReflectionSourceGenerated = "generated"
	ReflectionSourceCache     = "cache"
	ReflectionSourceFallback  = "fallback"
)

type ReflectionService interface {
	Daily(ctx context.Context, ownerID string) (types.Reflection, error)
}

// ReflectionGenerator is satisfied by enrichment.Client.
type ReflectionGenerator interface {
	Reflect(ctx context.Context, entries []enrichment.ReflectionInput) (string, error)
}

type ReflectionCache interface {
	Get(ctx context.Context, key string) (*types.Reflection, error)
	Set(ctx context.Context, key string, r types.Reflection, ttl time.Duration) error
}

type reflectionService struct {
	log       *logger.Logger
	metrics   *observability.Metrics
	entries   repos.EntryRepo
	generator ReflectionGenerator
	cache     ReflectionCache
	timeout   time.Duration
	loc       *time.Location
	now       func() time.Time
}

type ReflectionOptions struct {
	Timeout  time.Duration
	Location *time.Location
	Cache    ReflectionCache
	Metrics  *observability.Metrics
}

func NewReflectionService(entries repos.EntryRepo, generator ReflectionGenerator, opts ReflectionOptions, baseLog *logger.Logger) ReflectionService {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultReflectionTimeout
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &reflectionService{
		log:       baseLog.With("service", "ReflectionService"),
		metrics:   opts.Metrics,
		entries:   entries,
		generator: generator,
		cache:     opts.Cache,
		timeout:   opts.Timeout,
		loc:       opts.Location,
		now:       time.Now,
	}
}

// Daily never returns a provider error: anything short of a store failure yields text.
func (s *reflectionService) Daily(ctx context.Context, ownerID string) (types.Reflection, error) {
	recent, err := s.entries.ListByOwner(dbctx.New(ctx), ownerID, repos.ListOptions{Limit: reflectionEntries})
	if err != nil {
		return types.Reflection{}, err
	}
	now := s.now()
	if len(recent) == 0 || s.generator == nil {
		return s.fallback(now, len(recent)), nil
	}

	key := reflectionKey(ownerID, now.In(s.loc), recent[0])
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, key); err != nil {
			s.log.Debug("reflection cache read failed", "error", err)
		} else if hit != nil {
			s.metrics.IncReflection(ReflectionSourceCache)
			return *hit, nil
		}
	}

	inputs := make([]enrichment.ReflectionInput, 0, len(recent))
	for _, e := range recent {
		inputs = append(inputs, enrichment.ReflectionInput{
			Content:   e.Content,
			MoodScore: e.MoodScore,
			CreatedAt: e.CreatedAt,
		})
	}
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, err := s.generator.Reflect(rctx, inputs)
	if err != nil || text == "" {
		if err != nil && !enrichment.Disabled(err) {
			s.log.Warn("reflection generation failed, using fallback", "owner_id", ownerID, "error", err)
		}
		return s.fallback(now, len(recent)), nil
	}

	out := types.Reflection{Text: text, GeneratedAt: now.UTC(), BasedOnEntries: len(recent)}
	s.metrics.IncReflection(ReflectionSourceGenerated)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, out, untilEndOfDay(now, s.loc)); err != nil {
			s.log.Debug("reflection cache write failed", "error", err)
		}
	}
	return out, nil
}

func (s *reflectionService) fallback(now time.Time, based int) types.Reflection {
	s.metrics.IncReflection(ReflectionSourceFallback)
	return types.Reflection{
		Text:           types.FallbackReflection,
		GeneratedAt:    now.UTC(),
		BasedOnEntries: based,
		Fallback:       true,
	}
}

// The newest entry id is part of the key so a fresh entry invalidates the day's reflection.
func reflectionKey(ownerID string, day time.Time, newest *types.Entry) string {
	return fmt.Sprintf("diary:reflection:%s:%s:%s", ownerID, day.Format("2006-01-02"), newest.ID)
}

func untilEndOfDay(now time.Time, loc *time.Location) time.Duration {
	end := startOfDay(now, loc).AddDate(0, 0, 1)
	ttl := end.Sub(now)
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}

type redisReflectionCache struct {
	rdb *redis.Client
}

// NewRedisReflectionCache returns nil when rdb is nil so callers can pass it straight through.
func NewRedisReflectionCache(rdb *redis.Client) ReflectionCache {
	if rdb == nil {
		return nil
	}
	return &redisReflectionCache{rdb: rdb}
}

func (c *redisReflectionCache) Get(ctx context.Context, key string) (*types.Reflection, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r types.Reflection
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *redisReflectionCache) Set(ctx context.Context, key string, r types.Reflection, ttl time.Duration) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}
