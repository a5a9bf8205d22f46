package generator

import (
	"context"
	"fmt"

	"github.com/aceprep/backend/internal/domain/category"
	"github.com/aceprep/backend/internal/domain/question"
)

// Generator produces the questions for one session. Implementations may
// return fewer than count questions, or none at all.
type Generator interface {
	Generate(ctx context.Context, c category.Category, count int) ([]question.Question, error)
}

// GenerationError is returned when no usable questions could be produced,
// so callers can tell a provider failure from an empty but valid answer.
type GenerationError struct {
	Reason  string
	Wrapped error
}

func (e *GenerationError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("question generation failed: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("question generation failed: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Wrapped
}

// Slot is one section of the mock test.
type Slot struct {
	Category category.Category
	Count    int
}

// The real exam opens with language arts and closes with math.
var mockLayout = []Slot{
	{Category: category.Reading, Count: 5},
	{Category: category.Grammar, Count: 3},
	{Category: category.Vocabulary, Count: 2},
	{Category: category.Math, Count: 10},
}

// MockBlueprint splits count questions over the mock test sections in exam
// order. The standard 20 questions give 5 reading, 3 grammar, 2 vocabulary
// and 10 math; other sizes are scaled, with the remainder going to math.
func MockBlueprint(count int) []Slot {
	base := 0
	for _, s := range mockLayout {
		base += s.Count
	}
	if count <= 0 {
		return nil
	}

	out := make([]Slot, 0, len(mockLayout))
	used := 0
	for _, s := range mockLayout {
		if s.Category == category.Math {
			continue
		}
		n := s.Count * count / base
		used += n
		if n > 0 {
			out = append(out, Slot{Category: s.Category, Count: n})
		}
	}
	out = append(out, Slot{Category: category.Math, Count: count - used})
	return out
}
