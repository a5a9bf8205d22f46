package stats

import (
	"encoding/json"

	"github.com/aceprep/backend/internal/domain/category"
	"github.com/aceprep/backend/internal/domain/scoring"
)

// UserStats is the durable, cross-session performance profile.
// The JSON shape matches what has always been written under the profile key.
type UserStats struct {
	CompletedQuizzes  int                       `json:"completedQuizzes"`
	AverageScore      int                       `json:"averageScore"`
	CategoryScores    map[category.Category]int `json:"categoryScores"`
	QuestionsAnswered int                       `json:"questionsAnswered"`
}

// New returns the all-zero profile with an entry for every category.
func New() UserStats {
	scores := make(map[category.Category]int, len(category.All()))
	for _, c := range category.All() {
		scores[c] = 0
	}
	return UserStats{CategoryScores: scores}
}

// Clone returns a deep copy.
func (s UserStats) Clone() UserStats {
	out := s
	out.CategoryScores = make(map[category.Category]int, len(s.CategoryScores))
	for k, v := range s.CategoryScores {
		out.CategoryScores[k] = v
	}
	return out
}

// UnmarshalJSON decodes a stored profile. Category keys that do not name a
// known category are skipped instead of failing the whole profile.
func (s *UserStats) UnmarshalJSON(b []byte) error {
	type plain UserStats
	var raw struct {
		plain
		CategoryScores map[string]int `json:"categoryScores"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*s = UserStats(raw.plain)
	s.CategoryScores = make(map[category.Category]int, len(raw.CategoryScores))
	for k, v := range raw.CategoryScores {
		c, err := category.Parse(k)
		if err != nil {
			continue
		}
		s.CategoryScores[c] = v
	}
	return nil
}

// Normalize repairs a profile read from storage: missing categories are
// added, scores clamped to [0,100], negative counters reset and the average
// recomputed. Unknown categories are already dropped by UnmarshalJSON.
func (s UserStats) Normalize() UserStats {
	out := New()
	for _, c := range category.All() {
		out.CategoryScores[c] = clamp(s.CategoryScores[c])
	}
	out.CompletedQuizzes = max(s.CompletedQuizzes, 0)
	out.QuestionsAnswered = max(s.QuestionsAnswered, 0)
	out.AverageScore = Average(out.CategoryScores)
	return out
}

// Attempted reports whether the category has a recorded score. A score of
// exactly 0% is indistinguishable from "never attempted".
func (s UserStats) Attempted(c category.Category) bool {
	return s.CategoryScores[c] > 0
}

// ApplySessionResult folds one finished session into the profile.
//
// The session's accuracy is blended into the category score: a category
// with no score takes the accuracy as is, otherwise the new score is the
// rounded mean of the old score and the accuracy. A session with total == 0
// only bumps the counters. The average is recomputed over every attempted
// category afterwards. p is not modified.
func ApplySessionResult(p UserStats, c category.Category, score, total int) UserStats {
	next := p.Clone()
	if next.CategoryScores == nil {
		next = New()
	}

	if acc, ok := Accuracy(score, total); ok {
		next.CategoryScores[c] = Blend(next.CategoryScores[c], acc)
	}

	next.CompletedQuizzes++
	next.QuestionsAnswered += max(total, 0)
	next.AverageScore = Average(next.CategoryScores)
	return next
}

// Accuracy is round(100*score/total). ok is false when total is zero.
func Accuracy(score, total int) (pct int, ok bool) {
	if total <= 0 {
		return 0, false
	}
	return clamp(scoring.Percent(score, total)), true
}

// Blend weights the latest accuracy at 50% against the prior score.
func Blend(prior, accuracy int) int {
	if prior == 0 {
		return accuracy
	}
	return scoring.Round(float64(prior+accuracy) / 2)
}

// Average is the rounded mean of every score above zero, or 0 if none.
func Average(scores map[category.Category]int) int {
	sum, n := 0, 0
	for _, v := range scores {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return scoring.Round(float64(sum) / float64(n))
}

func clamp(v int) int {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
