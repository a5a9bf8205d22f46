package scoring

import (
	"errors"
	"math"

	"github.com/aceprep/backend/internal/domain/category"
	"github.com/aceprep/backend/internal/domain/question"
)

var ErrInvalidSelection = errors.New("selected option is not a valid index")

// IsCorrect reports whether selected is the question's correct option.
func IsCorrect(q question.Question, selected int) (bool, error) {
	if !q.HasOption(selected) {
		return false, ErrInvalidSelection
	}
	return selected == q.CorrectAnswer, nil
}

// Tally counts answers within one category for a single session.
type Tally struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Accuracy returns the rounded percentage of correct answers.
// ok is false when nothing has been answered.
func (t Tally) Accuracy() (pct int, ok bool) {
	if t.Total == 0 {
		return 0, false
	}
	return Percent(t.Correct, t.Total), true
}

// Tallies maps a category to its tally.
type Tallies map[category.Category]Tally

// TallyUpdate returns a copy of t with one more answer recorded for c.
func TallyUpdate(t Tallies, c category.Category, correct bool) Tallies {
	out := make(Tallies, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	cur := out[c]
	cur.Total++
	if correct {
		cur.Correct++
	}
	out[c] = cur
	return out
}

// Sum folds every category into a single tally.
func (t Tallies) Sum() Tally {
	var s Tally
	for _, v := range t {
		s.Correct += v.Correct
		s.Total += v.Total
	}
	return s
}

// Categories lists the categories present in t in category.All order.
func (t Tallies) Categories() []category.Category {
	var out []category.Category
	for _, c := range category.All() {
		if _, ok := t[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Percent computes round(100*part/whole) with halves rounded up.
// whole must be positive.
func Percent(part, whole int) int {
	return Round(100 * float64(part) / float64(whole))
}

// Round rounds half up, the way the stored scores have always been rounded.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}
