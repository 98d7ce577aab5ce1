package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	"github.com/yungbote/studentdiary-backend/internal/http/response"
	"github.com/yungbote/studentdiary-backend/internal/platform/apierr"
	"github.com/yungbote/studentdiary-backend/internal/platform/ctxutil"
	"github.com/yungbote/studentdiary-backend/internal/services"
)

type DiaryHandler struct {
	entries    services.EntryService
	reflection services.ReflectionService
}

func NewDiaryHandler(entries services.EntryService, reflection services.ReflectionService) *DiaryHandler {
	return &DiaryHandler{entries: entries, reflection: reflection}
}

type createEntryRequest struct {
	Content   string   `json:"content"`
	MoodScore *float64 `json:"mood_score"`
	EntryType string   `json:"entry_type"`
}

type entrySummary struct {
	EntryID   string       `json:"entry_id"`
	Content   string       `json:"content"`
	MoodScore float64      `json:"mood_score"`
	EntryType string       `json:"entry_type"`
	Status    types.Status `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

func toSummary(e *types.Entry) entrySummary {
	return entrySummary{
		EntryID:   e.ID.String(),
		Content:   e.Content,
		MoodScore: e.MoodScore,
		EntryType: e.EntryType,
		Status:    e.Status,
		CreatedAt: e.CreatedAt,
	}
}

// POST /api/v1/diary/entries
// body: { "content": "...", "mood_score": 0.0-1.0, "entry_type": "text" }
func (h *DiaryHandler) CreateEntry(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.MoodScore == nil {
		response.RespondServiceError(c, types.NewValidationError("mood_score", "is required"))
		return
	}
	e, err := h.entries.Submit(c.Request.Context(), ctxutil.OwnerID(c.Request.Context()), services.SubmitInput{
		Content:   req.Content,
		MoodScore: *req.MoodScore,
		EntryType: req.EntryType,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{
		"entry_id":   e.ID.String(),
		"status":     e.Status,
		"created_at": e.CreatedAt,
	})
}

// GET /api/v1/diary/entries?limit=&offset=
func (h *DiaryHandler) ListEntries(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	rows, total, err := h.entries.List(c.Request.Context(), ctxutil.OwnerID(c.Request.Context()), limit, offset)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	out := make([]entrySummary, 0, len(rows))
	for _, e := range rows {
		out = append(out, toSummary(e))
	}
	response.RespondOK(c, gin.H{"entries": out, "total": total})
}

// GET /api/v1/diary/entries/:id
func (h *DiaryHandler) GetEntry(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		return
	}
	e, err := h.entries.Get(c.Request.Context(), ctxutil.OwnerID(c.Request.Context()), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entry": e})
}

// GET /api/v1/diary/entries/:id/analysis
// 202 while enrichment is still running, 200 once the entry has settled.
func (h *DiaryHandler) GetAnalysis(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		return
	}
	e, err := h.entries.Get(c.Request.Context(), ctxutil.OwnerID(c.Request.Context()), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if e.Status.InProgress() {
		c.JSON(http.StatusAccepted, gin.H{"entry_id": e.ID.String(), "status": e.Status})
		return
	}
	analysis, err := e.DecodeAnalysis()
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	body := gin.H{
		"entry_id":      e.ID.String(),
		"status":        e.Status,
		"analysis":      analysis,
		"embedding_ref": e.EmbeddingRef,
		"graph_ref":     e.GraphRef,
	}
	if e.EnrichmentError != "" {
		body["enrichment_error"] = e.EnrichmentError
	}
	response.RespondOK(c, body)
}

// GET /api/v1/diary/entries/:id/similar?top_k=
func (h *DiaryHandler) SimilarEntries(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		return
	}
	topK, err := intQuery(c, "top_k", 0)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	found, err := h.entries.Similar(c.Request.Context(), ctxutil.OwnerID(c.Request.Context()), id, topK)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entry_id": id.String(), "similar": found})
}

// GET /api/v1/diary/reflection/daily
func (h *DiaryHandler) DailyReflection(c *gin.Context) {
	r, err := h.reflection.Daily(c.Request.Context(), ctxutil.OwnerID(c.Request.Context()))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, r)
}

func entryID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.RespondServiceError(c, apierr.BadRequest("invalid_id", errors.New("entry id must be a uuid")))
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, types.NewValidationError(key, "must be a non-negative integer")
	}
	return n, nil
}
