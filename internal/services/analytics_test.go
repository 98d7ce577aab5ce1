package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	diaryrepo "github.com/yungbote/studentdiary-backend/internal/data/repos/diary"
	"github.com/yungbote/studentdiary-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	"github.com/yungbote/studentdiary-backend/internal/pkg/dbctx"
	"github.com/yungbote/studentdiary-backend/internal/pkg/pointers"
)

var refNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func entryAt(t time.Time, status types.Status, mood float64) *types.Entry {
	return &types.Entry{ID: uuid.New(), OwnerID: "owner", Status: status, MoodScore: mood, CreatedAt: t}
}

func daysAgo(n int) time.Time {
	return refNow.AddDate(0, 0, -n)
}

func TestStreakDays(t *testing.T) {
	cases := []struct {
		name string
		days []int
		want int
	}{
		{"none", nil, 0},
		{"today only", []int{0}, 1},
		{"yesterday only", []int{1}, 1},
		{"two days ago only", []int{2}, 0},
		{"run broken by gap", []int{0, 1, 3}, 2},
		{"run of three", []int{0, 1, 2}, 3},
		{"run ending yesterday", []int{1, 2, 3, 5}, 3},
		{"several entries per day", []int{0, 0, 1, 1, 1}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var entries []*types.Entry
			for _, d := range tc.days {
				entries = append(entries, entryAt(daysAgo(d), types.StatusPending, 0.5))
			}
			got := ComputeSnapshot(entries, refNow, time.UTC).StreakDays
			if got != tc.want {
				t.Fatalf("streak = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestStreakDaysUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// 20:00 UTC on the 9th is already the 10th in loc.
	entries := []*types.Entry{
		entryAt(time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC), types.StatusEnriched, 0.5),
		entryAt(time.Date(2024, 3, 9, 1, 0, 0, 0, time.UTC), types.StatusEnriched, 0.5),
	}
	if got := ComputeSnapshot(entries, refNow, loc).StreakDays; got != 2 {
		t.Fatalf("streak in loc = %d, want 2", got)
	}
	if got := ComputeSnapshot(entries, refNow, time.UTC).StreakDays; got != 1 {
		t.Fatalf("streak in UTC = %d, want 1", got)
	}
}

func TestMoodAverageExcludesFailed(t *testing.T) {
	entries := []*types.Entry{
		entryAt(daysAgo(0), types.StatusFailed, 0.2),
		entryAt(daysAgo(0), types.StatusEnriched, 0.8),
		entryAt(daysAgo(1), types.StatusPartial, 0.6),
		entryAt(daysAgo(1), types.StatusPending, 0.1),
	}
	snap := ComputeSnapshot(entries, refNow, time.UTC)
	if math.Abs(snap.MoodAverage-0.7) > 1e-9 {
		t.Fatalf("mood average = %v, want 0.7", snap.MoodAverage)
	}
	if snap.TotalEntries != 4 {
		t.Fatalf("total = %d, want 4", snap.TotalEntries)
	}
	if snap.LastEntryAt == nil || !snap.LastEntryAt.Equal(daysAgo(0)) {
		t.Fatalf("last entry = %v", snap.LastEntryAt)
	}
}

func TestMoodAverageZeroWithoutAnalyzedEntries(t *testing.T) {
	snap := ComputeSnapshot([]*types.Entry{entryAt(daysAgo(0), types.StatusFailed, 0.9)}, refNow, time.UTC)
	if snap.MoodAverage != 0 {
		t.Fatalf("mood average = %v, want 0", snap.MoodAverage)
	}
	empty := ComputeSnapshot(nil, refNow, time.UTC)
	if empty.TotalEntries != 0 || empty.StreakDays != 0 || empty.LastEntryAt != nil {
		t.Fatalf("empty snapshot = %+v", empty)
	}
}

func TestComputeTrends(t *testing.T) {
	entries := []*types.Entry{
		entryAt(daysAgo(0), types.StatusEnriched, 0.8),
		entryAt(daysAgo(0).Add(-time.Hour), types.StatusPartial, 0.4),
		entryAt(daysAgo(2), types.StatusEnriched, 0.5),
		entryAt(daysAgo(1), types.StatusFailed, 0.1),
	}
	got := ComputeTrends(entries, time.UTC)
	want := []types.MoodPoint{
		{Date: "2024-03-08", AverageMood: 0.5, Entries: 1},
		{Date: "2024-03-10", AverageMood: 0.6, Entries: 2},
	}
	approx := cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-9 })
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Fatalf("trends mismatch (-want +got):\n%s", diff)
	}
}

func TestClampTrendDays(t *testing.T) {
	for in, want := range map[int]int{0: 7, -3: 7, 1: 1, 30: 30, 365: 365, 1000: 365} {
		if got := ClampTrendDays(in); got != want {
			t.Fatalf("ClampTrendDays(%d) = %d, want %d", in, got, want)
		}
	}
}

type fakeInsights struct {
	emotions, topics []types.CountedLabel
	err              error
}

func (f fakeInsights) TopInsights(ctx context.Context, ownerID string, limit int) ([]types.CountedLabel, []types.CountedLabel, error) {
	return f.emotions, f.topics, f.err
}

func seedAnalyzed(t *testing.T, repo diaryrepo.EntryRepo, owner string, emotions, topics []string) {
	t.Helper()
	dbc := dbctx.New(context.Background())
	e, err := repo.Create(dbc, owner, "a day at school", 0.6, "text")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	a := types.Analysis{Sentiment: types.SentimentNeutral, MoodScore: 0.6, Emotions: emotions, Topics: topics}
	if _, err := repo.UpdateEnrichment(dbc, e.ID, diaryrepo.EnrichmentPatch{Analysis: &a, GraphRef: pointers.String("g")}, types.StatusPartial); err != nil {
		t.Fatalf("UpdateEnrichment: %v", err)
	}
}

func TestInsightsFallsBackToEntries(t *testing.T) {
	repo := diaryrepo.NewEntryRepo(testutil.DB(t), testutil.Logger(t))
	seedAnalyzed(t, repo, "owner", []string{"Joy", "stress"}, []string{"exams"})
	seedAnalyzed(t, repo, "owner", []string{"joy"}, []string{"Exams", "friends"})
	seedAnalyzed(t, repo, "other", []string{"anger"}, []string{"sports"})

	svc := NewAnalyticsService(repo, fakeInsights{err: errors.New("graph down")}, time.UTC, testutil.Logger(t))
	got, err := svc.Insights(context.Background(), "owner")
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	want := types.Insights{
		TopEmotions: []types.CountedLabel{{Label: "joy", Count: 2}, {Label: "stress", Count: 1}},
		TopTopics:   []types.CountedLabel{{Label: "exams", Count: 2}, {Label: "friends", Count: 1}},
		Source:      InsightsSourceEntries,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("insights mismatch (-want +got):\n%s", diff)
	}
}

func TestInsightsPrefersGraph(t *testing.T) {
	repo := diaryrepo.NewEntryRepo(testutil.DB(t), testutil.Logger(t))
	src := fakeInsights{emotions: []types.CountedLabel{{Label: "calm", Count: 4}}}
	svc := NewAnalyticsService(repo, src, time.UTC, testutil.Logger(t))
	got, err := svc.Insights(context.Background(), "owner")
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if got.Source != InsightsSourceGraph || len(got.TopEmotions) != 1 || got.TopTopics == nil {
		t.Fatalf("unexpected insights %+v", got)
	}
}

func TestMoodTrendsWindow(t *testing.T) {
	gdb := testutil.DB(t)
	repo := diaryrepo.NewEntryRepo(gdb, testutil.Logger(t))
	testutil.SeedEntry(t, gdb, "owner", 0.9, types.StatusEnriched, daysAgo(0))
	testutil.SeedEntry(t, gdb, "owner", 0.3, types.StatusPartial, daysAgo(6))
	testutil.SeedEntry(t, gdb, "owner", 0.1, types.StatusEnriched, daysAgo(7))
	testutil.SeedEntry(t, gdb, "owner", 0.2, types.StatusFailed, daysAgo(1))

	svc := NewAnalyticsService(repo, nil, time.UTC, testutil.Logger(t)).(*analyticsService)
	svc.now = func() time.Time { return refNow }
	got, period, err := svc.MoodTrends(context.Background(), "owner", 0)
	if err != nil {
		t.Fatalf("MoodTrends: %v", err)
	}
	if period != DefaultTrendDays {
		t.Fatalf("period = %d", period)
	}
	if len(got) != 2 || got[0].Date != "2024-03-04" || got[1].Date != "2024-03-10" {
		t.Fatalf("unexpected trends %+v", got)
	}
}
