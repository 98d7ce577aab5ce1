package diary

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	"github.com/yungbote/studentdiary-backend/internal/pkg/dbctx"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

const (
	MaxContentRunes   = 20000
	MaxEntryTypeRunes = 32
)

type ListOptions struct {
	Limit  int
	Offset int
	// Since restricts results to entries created at or after this instant.
	Since *time.Time
	// Statuses restricts results when non-empty.
	Statuses []types.Status
}

// EnrichmentPatch carries the provider outputs written alongside a status change.
// Nil fields are left untouched.
type EnrichmentPatch struct {
	Analysis     *types.Analysis
	EmbeddingRef *string
	GraphRef     *string
	Error        *string
}

type EntryRepo interface {
	Create(dbc dbctx.Context, ownerID string, content string, moodScore float64, entryType string) (*types.Entry, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Entry, error)
	GetForOwner(dbc dbctx.Context, ownerID string, id uuid.UUID) (*types.Entry, error)
	ListByOwner(dbc dbctx.Context, ownerID string, opts ListOptions) ([]*types.Entry, error)
	CountByOwner(dbc dbctx.Context, ownerID string) (int64, error)
	UpdateEnrichment(dbc dbctx.Context, id uuid.UUID, patch EnrichmentPatch, newStatus types.Status) (bool, error)
	ListStale(dbc dbctx.Context, statuses []types.Status, olderThan time.Time, limit int) ([]uuid.UUID, error)
	Ping(dbc dbctx.Context) error
}

type entryRepo struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewEntryRepo(db *gorm.DB, baseLog *logger.Logger) EntryRepo {
	return &entryRepo{
		db:  db,
		log: baseLog.With("repo", "EntryRepo"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *entryRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func validateNewEntry(ownerID, content string, moodScore float64, entryType string) error {
	if strings.TrimSpace(ownerID) == "" {
		return types.NewValidationError("owner_id", "must not be empty")
	}
	if strings.TrimSpace(content) == "" {
		return types.NewValidationError("content", "must not be empty")
	}
	if utf8.RuneCountInString(content) > MaxContentRunes {
		return types.NewValidationError("content", "exceeds maximum length")
	}
	if math.IsNaN(moodScore) || moodScore < 0 || moodScore > 1 {
		return types.NewValidationError("mood_score", "must be between 0 and 1")
	}
	if utf8.RuneCountInString(entryType) > MaxEntryTypeRunes {
		return types.NewValidationError("entry_type", "exceeds maximum length")
	}
	return nil
}

func (r *entryRepo) Create(dbc dbctx.Context, ownerID string, content string, moodScore float64, entryType string) (*types.Entry, error) {
	entryType = strings.ToLower(strings.TrimSpace(entryType))
	if entryType == "" {
		entryType = types.EntryTypeText
	}
	if err := validateNewEntry(ownerID, content, moodScore, entryType); err != nil {
		return nil, err
	}
	now := r.now()
	entry := &types.Entry{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Content:   content,
		EntryType: entryType,
		MoodScore: moodScore,
		Status:    types.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.tx(dbc).Create(entry).Error; err != nil {
		return nil, types.WrapStoreError("create entry", err)
	}
	return entry, nil
}

func (r *entryRepo) Get(dbc dbctx.Context, id uuid.UUID) (*types.Entry, error) {
	var entry types.Entry
	err := r.tx(dbc).Where("id = ?", id).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &types.NotFoundError{Resource: "entry", ID: id.String()}
	}
	if err != nil {
		return nil, types.WrapStoreError("get entry", err)
	}
	return &entry, nil
}

func (r *entryRepo) GetForOwner(dbc dbctx.Context, ownerID string, id uuid.UUID) (*types.Entry, error) {
	var entry types.Entry
	err := r.tx(dbc).Where("id = ? AND owner_id = ?", id, ownerID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &types.NotFoundError{Resource: "entry", ID: id.String()}
	}
	if err != nil {
		return nil, types.WrapStoreError("get entry", err)
	}
	return &entry, nil
}

func (r *entryRepo) ListByOwner(dbc dbctx.Context, ownerID string, opts ListOptions) ([]*types.Entry, error) {
	out := []*types.Entry{}
	if ownerID == "" {
		return out, nil
	}
	q := r.tx(dbc).Where("owner_id = ?", ownerID)
	if opts.Since != nil {
		q = q.Where("created_at >= ?", opts.Since.UTC())
	}
	if len(opts.Statuses) > 0 {
		q = q.Where("status IN ?", opts.Statuses)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, types.WrapStoreError("list entries", err)
	}
	return out, nil
}

func (r *entryRepo) CountByOwner(dbc dbctx.Context, ownerID string) (int64, error) {
	var count int64
	if err := r.tx(dbc).Model(&types.Entry{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return 0, types.WrapStoreError("count entries", err)
	}
	return count, nil
}

// UpdateEnrichment is a compare-and-swap on status. The row is promoted only when its current
// status ranks strictly below newStatus; when it already equals newStatus the patch fields are
// rewritten (last writer wins). Any lower target leaves the row untouched and returns false.
func (r *entryRepo) UpdateEnrichment(dbc dbctx.Context, id uuid.UUID, patch EnrichmentPatch, newStatus types.Status) (bool, error) {
	if !newStatus.Valid() {
		return false, types.NewValidationError("status", "unknown status "+string(newStatus))
	}
	if newStatus.HasAnalysis() && patch.Analysis == nil {
		return false, types.NewValidationError("analysis", "required for status "+string(newStatus))
	}
	if !newStatus.HasAnalysis() && patch.Analysis != nil {
		return false, types.NewValidationError("analysis", "not allowed for status "+string(newStatus))
	}

	updates := map[string]interface{}{
		"updated_at": r.now(),
	}
	if patch.Analysis != nil {
		raw, err := json.Marshal(patch.Analysis)
		if err != nil {
			return false, types.NewValidationError("analysis", err.Error())
		}
		updates["analysis"] = datatypes.JSON(raw)
	}
	if patch.EmbeddingRef != nil {
		updates["embedding_ref"] = *patch.EmbeddingRef
	}
	if patch.GraphRef != nil {
		updates["graph_ref"] = *patch.GraphRef
	}
	if patch.Error != nil {
		updates["enrichment_error"] = *patch.Error
	}

	promote := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		promote[k] = v
	}
	promote["status"] = newStatus

	res := r.tx(dbc).Model(&types.Entry{}).
		Where("id = ? AND status IN ?", id, newStatus.RankedBelow()).
		Updates(promote)
	if res.Error != nil {
		return false, types.WrapStoreError("update enrichment", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	res = r.tx(dbc).Model(&types.Entry{}).
		Where("id = ? AND status = ?", id, newStatus).
		Updates(updates)
	if res.Error != nil {
		return false, types.WrapStoreError("update enrichment", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.tx(dbc).Model(&types.Entry{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, types.WrapStoreError("update enrichment", err)
	}
	if count == 0 {
		return false, &types.NotFoundError{Resource: "entry", ID: id.String()}
	}
	r.log.Debug("Enrichment write superseded", "entry_id", id.String(), "target_status", string(newStatus))
	return false, nil
}

func (r *entryRepo) ListStale(dbc dbctx.Context, statuses []types.Status, olderThan time.Time, limit int) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	if len(statuses) == 0 {
		return ids, nil
	}
	if limit <= 0 {
		limit = 100
	}
	err := r.tx(dbc).Model(&types.Entry{}).
		Where("status IN ? AND updated_at < ?", statuses, olderThan.UTC()).
		Order("updated_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, types.WrapStoreError("list stale entries", err)
	}
	return ids, nil
}

func (r *entryRepo) Ping(dbc dbctx.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return types.WrapStoreError("ping", err)
	}
	if err := sqlDB.PingContext(dbc.Ctx); err != nil {
		return types.WrapStoreError("ping", err)
	}
	return nil
}
