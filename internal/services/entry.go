package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	repos "github.com/yungbote/studentdiary-backend/internal/data/repos/diary"
	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	"github.com/yungbote/studentdiary-backend/internal/modules/diary/enrichment"
	"github.com/yungbote/studentdiary-backend/internal/pkg/dbctx"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	DefaultTopK      = 5
	MaxTopK          = 20
)

type SubmitInput struct {
	Content   string
	MoodScore float64
	EntryType string
}

type EntryService interface {
	Submit(ctx context.Context, ownerID string, in SubmitInput) (*types.Entry, error)
	Get(ctx context.Context, ownerID string, id uuid.UUID) (*types.Entry, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]*types.Entry, int64, error)
	Similar(ctx context.Context, ownerID string, id uuid.UUID, topK int) ([]enrichment.SimilarEntry, error)
}

// Enqueuer hands an entry to the background enrichment pool.
type Enqueuer interface {
	Enqueue(id uuid.UUID) bool
}

// SimilarSource is satisfied by enrichment.Client.
type SimilarSource interface {
	Similar(ctx context.Context, ownerID, entryID string, topK int) ([]enrichment.SimilarEntry, error)
}

type entryService struct {
	log     *logger.Logger
	entries repos.EntryRepo
	queue   Enqueuer
	similar SimilarSource
}

func NewEntryService(entries repos.EntryRepo, queue Enqueuer, similar SimilarSource, baseLog *logger.Logger) EntryService {
	return &entryService{
		log:     baseLog.With("service", "EntryService"),
		entries: entries,
		queue:   queue,
		similar: similar,
	}
}

// Submit persists the entry as pending and schedules enrichment. The entry is durable
// before this returns; a full queue only delays enrichment until the next sweep.
func (s *entryService) Submit(ctx context.Context, ownerID string, in SubmitInput) (*types.Entry, error) {
	entryType := strings.ToLower(strings.TrimSpace(in.EntryType))
	if entryType == "" {
		entryType = types.EntryTypeText
	}
	entry, err := s.entries.Create(dbctx.New(ctx), ownerID, in.Content, in.MoodScore, entryType)
	if err != nil {
		return nil, err
	}
	if s.queue != nil && !s.queue.Enqueue(entry.ID) {
		s.log.Warn("enrichment not scheduled, left for sweep", "entry_id", entry.ID)
	}
	return entry, nil
}

func (s *entryService) Get(ctx context.Context, ownerID string, id uuid.UUID) (*types.Entry, error) {
	return s.entries.GetForOwner(dbctx.New(ctx), ownerID, id)
}

func (s *entryService) List(ctx context.Context, ownerID string, limit, offset int) ([]*types.Entry, int64, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	dbc := dbctx.New(ctx)
	rows, err := s.entries.ListByOwner(dbc, ownerID, repos.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, err
	}
	total, err := s.entries.CountByOwner(dbc, ownerID)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Similar never fails on provider errors; an unindexed entry has no neighbours.
func (s *entryService) Similar(ctx context.Context, ownerID string, id uuid.UUID, topK int) ([]enrichment.SimilarEntry, error) {
	entry, err := s.entries.GetForOwner(dbctx.New(ctx), ownerID, id)
	if err != nil {
		return nil, err
	}
	out := []enrichment.SimilarEntry{}
	if s.similar == nil || entry.EmbeddingRef == nil {
		return out, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	found, err := s.similar.Similar(ctx, ownerID, entry.ID.String(), topK)
	if err != nil {
		if !enrichment.Disabled(err) {
			s.log.Warn("similar entries lookup failed", "entry_id", entry.ID, "error", err)
		}
		return out, nil
	}
	return append(out, found...), nil
}
