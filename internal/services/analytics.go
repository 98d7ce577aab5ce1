package services

import (
	"context"
	"sort"
	"time"

	"github.com/yungbote/studentdiary-backend/internal/data/graph"
	repos "github.com/yungbote/studentdiary-backend/internal/data/repos/diary"
	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
	"github.com/yungbote/studentdiary-backend/internal/pkg/dbctx"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

const (
	DefaultTrendDays = 7
	MaxTrendDays     = 365
	insightsLimit    = 10

	InsightsSourceGraph   = "graph"
	InsightsSourceEntries = "entries"

	MemoriesSourceVector  = "vector"
	MemoriesSourceEntries = "entries"

	dashboardRecentEntries = 5
	dashboardMemories      = 3
	previewRunes           = 200
	positiveMood           = 0.7
	lowMood                = 0.4
)

type AnalyticsService interface {
	Overview(ctx context.Context, ownerID string) (types.AnalyticsSnapshot, error)
	MoodTrends(ctx context.Context, ownerID string, windowDays int) ([]types.MoodPoint, int, error)
	Insights(ctx context.Context, ownerID string) (types.Insights, error)
	Dashboard(ctx context.Context, ownerID string) (types.Dashboard, error)
}

// InsightSource is satisfied by enrichment.Client.
type InsightSource interface {
	TopInsights(ctx context.Context, ownerID string, limit int) ([]types.CountedLabel, []types.CountedLabel, error)
}

// MemorySource is optional on the InsightSource; enrichment.Client provides it.
type MemorySource interface {
	PositiveMemories(ctx context.Context, ownerID string, limit int) ([]types.Memory, error)
}

type analyticsService struct {
	log      *logger.Logger
	entries  repos.EntryRepo
	insights InsightSource
	loc      *time.Location
	now      func() time.Time
}

func NewAnalyticsService(entries repos.EntryRepo, insights InsightSource, loc *time.Location, baseLog *logger.Logger) AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &analyticsService{
		log:      baseLog.With("service", "AnalyticsService"),
		entries:  entries,
		insights: insights,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *analyticsService) Overview(ctx context.Context, ownerID string) (types.AnalyticsSnapshot, error) {
	all, err := s.entries.ListByOwner(dbctx.New(ctx), ownerID, repos.ListOptions{})
	if err != nil {
		return types.AnalyticsSnapshot{}, err
	}
	return ComputeSnapshot(all, s.now(), s.loc), nil
}

func (s *analyticsService) MoodTrends(ctx context.Context, ownerID string, windowDays int) ([]types.MoodPoint, int, error) {
	windowDays = ClampTrendDays(windowDays)
	now := s.now().In(s.loc)
	since := startOfDay(now, s.loc).AddDate(0, 0, -(windowDays - 1))
	rows, err := s.entries.ListByOwner(dbctx.New(ctx), ownerID, repos.ListOptions{
		Since:    &since,
		Statuses: types.AnalyzedStatuses(),
	})
	if err != nil {
		return nil, windowDays, err
	}
	return ComputeTrends(rows, s.loc), windowDays, nil
}

func (s *analyticsService) Insights(ctx context.Context, ownerID string) (types.Insights, error) {
	if s.insights != nil {
		emotions, topics, err := s.insights.TopInsights(ctx, ownerID, insightsLimit)
		if err == nil {
			return types.Insights{
				TopEmotions: nonNilLabels(emotions),
				TopTopics:   nonNilLabels(topics),
				Source:      InsightsSourceGraph,
			}, nil
		}
		s.log.Debug("graph insights unavailable, counting entries", "owner_id", ownerID, "error", err)
	}
	rows, err := s.entries.ListByOwner(dbctx.New(ctx), ownerID, repos.ListOptions{Statuses: types.AnalyzedStatuses()})
	if err != nil {
		return types.Insights{}, err
	}
	emotions := map[string]int{}
	topics := map[string]int{}
	for _, e := range rows {
		a, err := e.DecodeAnalysis()
		if err != nil || a == nil {
			continue
		}
		for _, l := range graph.NormalizeLabels(a.Emotions) {
			emotions[l]++
		}
		for _, l := range graph.NormalizeLabels(a.Topics) {
			topics[l]++
		}
	}
	return types.Insights{
		TopEmotions: nonNilLabels(graph.RankLabels(emotions, insightsLimit)),
		TopTopics:   nonNilLabels(graph.RankLabels(topics, insightsLimit)),
		Source:      InsightsSourceEntries,
	}, nil
}

func (s *analyticsService) Dashboard(ctx context.Context, ownerID string) (types.Dashboard, error) {
	all, err := s.entries.ListByOwner(dbctx.New(ctx), ownerID, repos.ListOptions{})
	if err != nil {
		return types.Dashboard{}, err
	}
	now := s.now()
	snap := ComputeSnapshot(all, now, s.loc)
	since := startOfDay(now, s.loc).AddDate(0, 0, -(DefaultTrendDays - 1))

	var week []*types.Entry
	for _, e := range all {
		if !e.CreatedAt.Before(since) {
			week = append(week, e)
		}
	}
	recent := make([]types.RecentEntry, 0, dashboardRecentEntries)
	for _, e := range all {
		if len(recent) == dashboardRecentEntries {
			break
		}
		recent = append(recent, types.RecentEntry{
			EntryID:   e.ID.String(),
			Preview:   e.Preview(previewRunes),
			MoodScore: e.MoodScore,
			Status:    e.Status,
			CreatedAt: e.CreatedAt,
		})
	}
	stress := ComputeStress(all, now, s.loc)
	memories, source := s.positiveMemories(ctx, ownerID, all)

	return types.Dashboard{
		Overview:         snap,
		MoodTrends:       ComputeTrends(week, s.loc),
		RecentEntries:    recent,
		StressLevels:     stress,
		Recommendations:  Recommendations(snap, stress, supportRequested(week)),
		Achievements:     Achievements(snap),
		PositiveMemories: memories,
		MemoriesSource:   source,
	}, nil
}

func (s *analyticsService) positiveMemories(ctx context.Context, ownerID string, all []*types.Entry) ([]types.Memory, string) {
	if src, ok := s.insights.(MemorySource); ok {
		mems, err := src.PositiveMemories(ctx, ownerID, dashboardMemories)
		if err == nil && len(mems) > 0 {
			return mems, MemoriesSourceVector
		}
		if err != nil {
			s.log.Debug("vector memories unavailable, scanning entries", "owner_id", ownerID, "error", err)
		}
	}
	return PositiveMemories(all, dashboardMemories), MemoriesSourceEntries
}

func ClampTrendDays(days int) int {
	if days <= 0 {
		return DefaultTrendDays
	}
	if days > MaxTrendDays {
		return MaxTrendDays
	}
	return days
}

// ComputeSnapshot derives the overview from every entry an owner has.
// Mood is averaged over analyzed entries only; the streak counts entries of any status.
func ComputeSnapshot(entries []*types.Entry, now time.Time, loc *time.Location) types.AnalyticsSnapshot {
	if loc == nil {
		loc = time.UTC
	}
	snap := types.AnalyticsSnapshot{TotalEntries: len(entries)}
	var sum float64
	var n int
	days := map[time.Time]struct{}{}
	labels := map[string]struct{}{}
	for _, e := range entries {
		if e == nil {
			continue
		}
		if e.Status.HasAnalysis() {
			sum += e.MoodScore
			n++
			if a, err := e.DecodeAnalysis(); err == nil && a != nil {
				for _, l := range graph.NormalizeLabels(a.Emotions) {
					labels["emotion:"+l] = struct{}{}
				}
				for _, l := range graph.NormalizeLabels(a.Topics) {
					labels["topic:"+l] = struct{}{}
				}
			}
		}
		days[startOfDay(e.CreatedAt, loc)] = struct{}{}
		if snap.LastEntryAt == nil || e.CreatedAt.After(*snap.LastEntryAt) {
			t := e.CreatedAt
			snap.LastEntryAt = &t
		}
	}
	if n > 0 {
		snap.MoodAverage = sum / float64(n)
	}
	snap.StreakDays = streak(days, now, loc)
	snap.InsightsCount = len(labels)
	return snap
}

// streak walks back one calendar day at a time from today, or from yesterday when
// nothing was written today, and stops at the first day without an entry.
func streak(days map[time.Time]struct{}, now time.Time, loc *time.Location) int {
	if len(days) == 0 {
		return 0
	}
	day := startOfDay(now, loc)
	if _, ok := days[day]; !ok {
		day = day.AddDate(0, 0, -1)
		if _, ok := days[day]; !ok {
			return 0
		}
	}
	n := 0
	for {
		if _, ok := days[day]; !ok {
			return n
		}
		n++
		day = day.AddDate(0, 0, -1)
	}
}

// ComputeTrends buckets entries by calendar day in loc, ascending.
func ComputeTrends(entries []*types.Entry, loc *time.Location) []types.MoodPoint {
	if loc == nil {
		loc = time.UTC
	}
	type bucket struct {
		sum float64
		n   int
	}
	buckets := map[string]*bucket{}
	for _, e := range entries {
		if e == nil || !e.Status.HasAnalysis() {
			continue
		}
		key := e.CreatedAt.In(loc).Format("2006-01-02")
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.sum += e.MoodScore
		b.n++
	}
	out := make([]types.MoodPoint, 0, len(buckets))
	for day, b := range buckets {
		out = append(out, types.MoodPoint{Date: day, AverageMood: b.sum / float64(b.n), Entries: b.n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// ComputeStress compares stress indicators per analyzed entry over the last seven days with the
// seven days before. A high crisis level in the current week always reads as high.
func ComputeStress(entries []*types.Entry, now time.Time, loc *time.Location) types.StressLevels {
	if loc == nil {
		loc = time.UTC
	}
	weekStart := startOfDay(now, loc).AddDate(0, 0, -(DefaultTrendDays - 1))
	prevStart := weekStart.AddDate(0, 0, -DefaultTrendDays)

	var cur, prev struct {
		indicators, n int
	}
	crisis := false
	for _, e := range entries {
		if e == nil || !e.Status.HasAnalysis() || e.CreatedAt.Before(prevStart) {
			continue
		}
		a, err := e.DecodeAnalysis()
		if err != nil || a == nil {
			continue
		}
		k := len(graph.NormalizeLabels(a.StressIndicators))
		if e.CreatedAt.Before(weekStart) {
			prev.indicators += k
			prev.n++
			continue
		}
		cur.indicators += k
		cur.n++
		if a.CrisisLevel == types.CrisisHigh {
			crisis = true
		}
	}

	out := types.StressLevels{Current: types.StressLow, Trend: types.StressStable}
	if cur.n == 0 {
		return out
	}
	curRate := float64(cur.indicators) / float64(cur.n)
	switch {
	case crisis || curRate >= 1.5:
		out.Current = types.StressHigh
	case curRate >= 0.5:
		out.Current = types.StressModerate
	}
	if prev.n > 0 {
		diff := curRate - float64(prev.indicators)/float64(prev.n)
		switch {
		case diff > 0.25:
			out.Trend = types.StressRising
		case diff < -0.25:
			out.Trend = types.StressFalling
		}
	}
	return out
}

func supportRequested(entries []*types.Entry) bool {
	for _, e := range entries {
		if e == nil || !e.Status.HasAnalysis() {
			continue
		}
		if a, err := e.DecodeAnalysis(); err == nil && a != nil && a.SupportNeeded {
			return true
		}
	}
	return false
}

func Recommendations(snap types.AnalyticsSnapshot, stress types.StressLevels, support bool) []string {
	if snap.TotalEntries == 0 {
		return []string{"Write your first diary entry to start tracking how your days go."}
	}
	var out []string
	if snap.StreakDays == 0 {
		out = append(out, "Write an entry today to start a new streak.")
	}
	if stress.Current == types.StressHigh {
		out = append(out, "Stress has been high this week. Short breaks and enough sleep make revision easier.")
	} else if stress.Trend == types.StressRising {
		out = append(out, "Stress is rising compared to last week. Try splitting your study time into smaller blocks.")
	}
	if support {
		out = append(out, "Consider talking to a teacher, a counselor or someone you trust about how you feel.")
	}
	if snap.MoodAverage > 0 && snap.MoodAverage < lowMood {
		out = append(out, "Your mood has been low lately. Look back at one of your good days below.")
	}
	if len(out) == 0 {
		out = append(out,
			"Keep up the great work with your diary entries!",
			"Consider adding more details about your daily activities.",
		)
	}
	return out
}

type milestone struct {
	kind, title, description string
	reached                  func(types.AnalyticsSnapshot) bool
}

var milestones = []milestone{
	{"entries", "Getting Started!", "Welcome to your AI diary journey", func(s types.AnalyticsSnapshot) bool { return s.TotalEntries >= 1 }},
	{"entries", "Dedicated Writer", "Wrote 10 diary entries", func(s types.AnalyticsSnapshot) bool { return s.TotalEntries >= 10 }},
	{"entries", "Storyteller", "Wrote 50 diary entries", func(s types.AnalyticsSnapshot) bool { return s.TotalEntries >= 50 }},
	{"streak", "On a Roll", "Wrote 3 days in a row", func(s types.AnalyticsSnapshot) bool { return s.StreakDays >= 3 }},
	{"streak", "Week Warrior", "Wrote 7 days in a row", func(s types.AnalyticsSnapshot) bool { return s.StreakDays >= 7 }},
	{"streak", "Habit Formed", "Wrote 30 days in a row", func(s types.AnalyticsSnapshot) bool { return s.StreakDays >= 30 }},
}

func Achievements(snap types.AnalyticsSnapshot) []types.Achievement {
	out := []types.Achievement{}
	for _, m := range milestones {
		if m.reached(snap) {
			out = append(out, types.Achievement{Type: m.kind, Title: m.title, Description: m.description})
		}
	}
	return out
}

// PositiveMemories picks analyzed entries written on good days, best mood first, newest on ties.
func PositiveMemories(entries []*types.Entry, limit int) []types.Memory {
	var picked []*types.Entry
	for _, e := range entries {
		if e == nil || !e.Status.HasAnalysis() {
			continue
		}
		good := e.MoodScore >= positiveMood
		if !good {
			if a, err := e.DecodeAnalysis(); err == nil && a != nil && a.Sentiment == types.SentimentPositive {
				good = true
			}
		}
		if good {
			picked = append(picked, e)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		if picked[i].MoodScore != picked[j].MoodScore {
			return picked[i].MoodScore > picked[j].MoodScore
		}
		return picked[i].CreatedAt.After(picked[j].CreatedAt)
	})
	if len(picked) > limit {
		picked = picked[:limit]
	}
	out := make([]types.Memory, 0, len(picked))
	for _, e := range picked {
		t := e.CreatedAt
		out = append(out, types.Memory{EntryID: e.ID.String(), Preview: e.Preview(previewRunes), MoodScore: e.MoodScore, CreatedAt: &t})
	}
	return out
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func nonNilLabels(in []types.CountedLabel) []types.CountedLabel {
	if in == nil {
		return []types.CountedLabel{}
	}
	return in
}
