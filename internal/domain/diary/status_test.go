package diary

import "testing"

func TestStatusRankOrder(t *testing.T) {
	order := []Status{StatusPending, StatusEnriching, StatusFailed, StatusPartial, StatusEnriched}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Fatalf("%s should rank below %s", order[i-1], order[i])
		}
	}
	if Status("bogus").Valid() || Status("bogus").Rank() != -1 {
		t.Fatalf("unknown status should be invalid")
	}
	if got := len(StatusEnriched.RankedBelow()); got != 4 {
		t.Fatalf("RankedBelow(enriched): got %d want 4", got)
	}
	if got := len(StatusPending.RankedBelow()); got != 0 {
		t.Fatalf("RankedBelow(pending): got %d want 0", got)
	}
}

func TestAnalysisNormalize(t *testing.T) {
	a := &Analysis{Sentiment: "ecstatic", MoodScore: 3}
	a.Normalize()
	if a.Sentiment != SentimentNeutral || a.MoodScore != 1 || a.CrisisLevel != CrisisNone {
		t.Fatalf("unexpected normalized analysis: %+v", a)
	}
	if a.Emotions == nil || a.Topics == nil {
		t.Fatalf("expected empty slices, got %+v", a)
	}
}
