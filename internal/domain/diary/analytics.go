package diary

import "time"

// AnalyticsSnapshot.InsightsCount is the number of distinct emotions and topics found across
// analyzed entries.
type AnalyticsSnapshot struct {
	TotalEntries  int        `json:"total_entries"`
	MoodAverage   float64    `json:"mood_average"`
	StreakDays    int        `json:"streak_days"`
	InsightsCount int        `json:"insights_count"`
	LastEntryAt   *time.Time `json:"last_entry_date"`
}

type MoodPoint struct {
	Date        string  `json:"date"`
	AverageMood float64 `json:"average_mood"`
	Entries     int     `json:"entries"`
}

type CountedLabel struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Insights struct {
	TopEmotions []CountedLabel `json:"top_emotions"`
	TopTopics   []CountedLabel `json:"top_topics"`
	Source      string         `json:"source"`
}

const (
	StressLow      = "low"
	StressModerate = "moderate"
	StressHigh     = "high"

	StressRising  = "rising"
	StressFalling = "falling"
	StressStable  = "stable"
)

type StressLevels struct {
	Current string `json:"current"`
	Trend   string `json:"trend"`
}

type Achievement struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Memory is a past entry worth resurfacing, usually one written on a good day.
type Memory struct {
	EntryID   string     `json:"entry_id"`
	Preview   string     `json:"preview"`
	MoodScore float64    `json:"mood_score"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type RecentEntry struct {
	EntryID   string    `json:"entry_id"`
	Preview   string    `json:"preview"`
	MoodScore float64   `json:"mood_score"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Dashboard struct {
	Overview         AnalyticsSnapshot `json:"overview"`
	MoodTrends       []MoodPoint       `json:"mood_trends"`
	RecentEntries    []RecentEntry     `json:"recent_entries"`
	StressLevels     StressLevels      `json:"stress_levels"`
	Recommendations  []string          `json:"recommendations"`
	Achievements     []Achievement     `json:"achievements"`
	PositiveMemories []Memory          `json:"positive_memories"`
	MemoriesSource   string            `json:"memories_source"`
}

type Reflection struct {
	Text           string    `json:"reflection"`
	GeneratedAt    time.Time `json:"generated_at"`
	BasedOnEntries int       `json:"based_on_entries"`
	Fallback       bool      `json:"fallback"`
}

// FallbackReflection is returned whenever a generated reflection is unavailable.
const FallbackReflection = "Good morning! Every new day brings fresh opportunities to learn and grow. " +
	"You're doing great on your journey, and every small step forward counts. " +
	"Take today as a chance to discover something new about yourself. You've got this!"
