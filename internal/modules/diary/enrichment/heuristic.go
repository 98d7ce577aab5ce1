package enrichment

import (
	"context"
	"sort"
	"strings"

	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
)

// HeuristicAnalyzer is a keyword-based analyzer used when no language model is configured.
type HeuristicAnalyzer struct{}

var (
	positiveWords = []string{"good", "happy", "excited", "great", "proud", "fun", "love", "enjoyed"}
	negativeWords = []string{"sad", "angry", "tired", "stressed", "worried", "anxious", "lonely", "scared", "bad"}

	emotionWords = map[string]string{
		"happy": "joy", "excited": "excitement", "proud": "pride", "sad": "sadness",
		"angry": "anger", "worried": "anxiety", "anxious": "anxiety", "stressed": "stress",
		"lonely": "loneliness", "scared": "fear", "tired": "fatigue",
	}
	topicWords = map[string]string{
		"study": "academics", "exam": "academics", "test": "academics", "homework": "academics",
		"friend": "friends", "family": "family", "mom": "family", "dad": "family",
		"cricket": "sports", "football": "sports", "game": "hobbies", "music": "hobbies",
	}
	subjectWords = []string{"math", "science", "physics", "chemistry", "biology", "history", "english", "geography"}
	stressWords  = map[string]string{
		"exam": "exam pressure", "jee": "competitive exam pressure", "neet": "competitive exam pressure",
		"board": "board exam pressure", "marks": "grades pressure", "parents expect": "family expectations",
	}
	crisisWords = []string{"hopeless", "hurt myself", "end it", "give up on life"}
)

func (HeuristicAnalyzer) Analyze(_ context.Context, content string) (types.Analysis, error) {
	text := strings.ToLower(content)

	score := 0
	for _, w := range positiveWords {
		if strings.Contains(text, w) {
			score++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(text, w) {
			score--
		}
	}

	a := types.Analysis{
		Sentiment:   types.SentimentNeutral,
		MoodScore:   0.5,
		CrisisLevel: types.CrisisNone,
	}
	switch {
	case score > 0:
		a.Sentiment = types.SentimentPositive
		a.MoodScore = 0.7
	case score < 0:
		a.Sentiment = types.SentimentNegative
		a.MoodScore = 0.3
	}

	a.Emotions = collect(text, emotionWords)
	if len(a.Emotions) == 0 {
		a.Emotions = []string{"neutral"}
	}
	a.Topics = collect(text, topicWords)
	if len(a.Topics) == 0 {
		a.Topics = []string{"general"}
	}
	for _, s := range subjectWords {
		if strings.Contains(text, s) {
			a.AcademicSubjects = append(a.AcademicSubjects, s)
		}
	}
	a.StressIndicators = collect(text, stressWords)
	for _, w := range crisisWords {
		if strings.Contains(text, w) {
			a.CrisisLevel = types.CrisisHigh
			a.SupportNeeded = true
			break
		}
	}
	if a.Sentiment == types.SentimentNegative && len(a.StressIndicators) > 1 {
		a.SupportNeeded = true
	}
	return a, nil
}

// collect returns the labels of every keyword found in text, ordered by first occurrence.
func collect(text string, words map[string]string) []string {
	type hit struct {
		pos   int
		label string
	}
	var hits []hit
	for k, label := range words {
		if i := strings.Index(text, k); i >= 0 {
			hits = append(hits, hit{i, label})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].label < hits[j].label
	})
	seen := map[string]bool{}
	var out []string
	for _, h := range hits {
		if seen[h.label] {
			continue
		}
		seen[h.label] = true
		out = append(out, h.label)
	}
	return out
}
