package diary

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

const (
	CrisisNone   = "none"
	CrisisLow    = "low"
	CrisisMedium = "medium"
	CrisisHigh   = "high"
)

type Analysis struct {
	Sentiment        string   `json:"sentiment"`
	MoodScore        float64  `json:"mood_score"`
	Emotions         []string `json:"emotions"`
	Topics           []string `json:"topics"`
	AcademicSubjects []string `json:"academic_subjects,omitempty"`
	StressIndicators []string `json:"stress_indicators,omitempty"`
	CulturalContext  []string `json:"cultural_context,omitempty"`
	SupportNeeded    bool     `json:"support_needed"`
	CrisisLevel      string   `json:"crisis_level,omitempty"`
}

// Normalize clamps and fills fields so downstream consumers never see out-of-range values.
func (a *Analysis) Normalize() {
	if a == nil {
		return
	}
	switch a.Sentiment {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
	default:
		a.Sentiment = SentimentNeutral
	}
	if a.MoodScore < 0 || a.MoodScore != a.MoodScore {
		a.MoodScore = 0
	}
	if a.MoodScore > 1 {
		a.MoodScore = 1
	}
	if a.Emotions == nil {
		a.Emotions = []string{}
	}
	if a.Topics == nil {
		a.Topics = []string{}
	}
	switch a.CrisisLevel {
	case CrisisNone, CrisisLow, CrisisMedium, CrisisHigh:
	default:
		a.CrisisLevel = CrisisNone
	}
}
