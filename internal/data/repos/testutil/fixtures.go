package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
)

// SeedEntry inserts an entry directly, bypassing repo validation so tests can backdate
// rows and start them in any status.
func SeedEntry(tb testing.TB, gdb *gorm.DB, ownerID string, mood float64, status types.Status, createdAt time.Time) *types.Entry {
	tb.Helper()
	e := &types.Entry{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Content:   "seeded entry",
		EntryType: types.EntryTypeText,
		MoodScore: mood,
		Status:    status,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: createdAt.UTC(),
	}
	if status.HasAnalysis() {
		e.Analysis = []byte(`{"sentiment":"neutral","mood_score":0.5,"emotions":[],"topics":[],"support_needed":false}`)
	}
	if err := gdb.Create(e).Error; err != nil {
		tb.Fatalf("seed entry: %v", err)
	}
	return e
}
