package diary

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EntryTypeText  = "text"
	EntryTypeVoice = "voice"
)

type Entry struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID         string         `gorm:"column:owner_id;not null;index:idx_diary_entry_owner_created,priority:1" json:"owner_id"`
	Content         string         `gorm:"column:content;type:text;not null" json:"content"`
	EntryType       string         `gorm:"column:entry_type;not null;default:text" json:"entry_type"`
	MoodScore       float64        `gorm:"column:mood_score;not null" json:"mood_score"`
	Status          Status         `gorm:"column:status;not null;index" json:"status"`
	Analysis        datatypes.JSON `gorm:"column:analysis;type:jsonb" json:"analysis,omitempty"`
	EmbeddingRef    *string        `gorm:"column:embedding_ref" json:"embedding_ref,omitempty"`
	GraphRef        *string        `gorm:"column:graph_ref" json:"graph_ref,omitempty"`
	EnrichmentError string         `gorm:"column:enrichment_error" json:"enrichment_error,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at;not null;index:idx_diary_entry_owner_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Entry) TableName() string { return "diary_entry" }

// DecodeAnalysis returns nil when the entry has not been analyzed.
func (e *Entry) DecodeAnalysis() (*Analysis, error) {
	if e == nil || len(e.Analysis) == 0 || string(e.Analysis) == "null" {
		return nil, nil
	}
	var a Analysis
	if err := json.Unmarshal(e.Analysis, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Preview is a short prefix of the content, safe to hand to metadata stores.
func (e *Entry) Preview(max int) string {
	if e == nil {
		return ""
	}
	r := []rune(e.Content)
	if max <= 0 || len(r) <= max {
		return e.Content
	}
	return string(r[:max])
}
