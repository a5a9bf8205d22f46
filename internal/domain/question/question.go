package question

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aceprep/backend/internal/domain/category"
)

// Question is one multiple-choice item as delivered by a generator.
// It is treated as immutable once it is part of a Batch.
type Question struct {
	ID            string            `json:"id" yaml:"id"`
	Category      category.Category `json:"category" yaml:"category"`
	Passage       string            `json:"passage,omitempty" yaml:"passage,omitempty"`
	Text          string            `json:"questionText" yaml:"question"`
	Options       []string          `json:"options" yaml:"options"`
	CorrectAnswer int               `json:"correctAnswer" yaml:"answer"`
	Explanation   string            `json:"explanation" yaml:"explanation"`
}

var (
	ErrEmptyText        = errors.New("question text cannot be empty")
	ErrTooFewOptions    = errors.New("question needs at least two options")
	ErrAnswerOutOfRange = errors.New("correct answer is not a valid option index")
	ErrBadCategory      = errors.New("question category must be a single subject")
)

// Validate checks the structural invariants every scored question must hold.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrEmptyText
	}
	if len(q.Options) < 2 {
		return ErrTooFewOptions
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return ErrAnswerOutOfRange
	}
	if !q.Category.Valid() || q.Category.IsComposite() {
		return ErrBadCategory
	}
	return nil
}

// HasOption reports whether i indexes one of the options.
func (q Question) HasOption(i int) bool {
	return i >= 0 && i < len(q.Options)
}

// CorrectText returns the text of the correct option.
func (q Question) CorrectText() string {
	if !q.HasOption(q.CorrectAnswer) {
		return ""
	}
	return q.Options[q.CorrectAnswer]
}

// OptionLabel returns the letter shown next to option i ("A", "B", ...).
func OptionLabel(i int) string {
	if i < 0 || i >= 26 {
		return fmt.Sprintf("%d", i+1)
	}
	return string(rune('A' + i))
}

// Batch is the ordered set of questions for one session.
type Batch []Question

// NewBatch cleans up raw generator output. Questions carrying an invalid or
// composite category are re-tagged with fallback when fallback is a subject.
// Questions that still fail validation are dropped and counted. IDs are made
// unique within the batch.
func NewBatch(raw []Question, fallback category.Category) (Batch, int) {
	batch := make(Batch, 0, len(raw))
	dropped := 0
	seen := make(map[string]bool, len(raw))

	for _, q := range raw {
		if (!q.Category.Valid() || q.Category.IsComposite()) && fallback.Valid() && !fallback.IsComposite() {
			q.Category = fallback
		}
		if err := q.Validate(); err != nil {
			dropped++
			continue
		}

		q.ID = strings.TrimSpace(q.ID)
		if q.ID == "" || seen[q.ID] {
			q.ID = fmt.Sprintf("q%d", len(batch)+1)
			for seen[q.ID] {
				q.ID += "x"
			}
		}
		seen[q.ID] = true

		q.Options = append([]string(nil), q.Options...)
		batch = append(batch, q)
	}

	return batch, dropped
}
