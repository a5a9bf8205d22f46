package practicesession

import (
	"time"

	"github.com/aceprep/backend/internal/domain/category"
)

const (
	subjectQuestionCount = 5
	mockQuestionCount    = 20
	mockMathStart        = 10
)

// SessionConfig holds the tunables of a practice session.
type SessionConfig struct {
	MaxQuestions    *int          // nil = category default (5, or 20 for the mock test)
	FeedbackTimeout time.Duration // upper bound for one tutor request
	MockMathStart   int           // zero-based position where the mock test's math half begins
}

// DefaultConfig returns the standard exam setup.
func DefaultConfig() SessionConfig {
	return SessionConfig{
		MaxQuestions:    nil,
		FeedbackTimeout: 30 * time.Second,
		MockMathStart:   mockMathStart,
	}
}

// QuestionCount is how many questions to request for a session in c.
func (cfg SessionConfig) QuestionCount(c category.Category) int {
	if cfg.MaxQuestions != nil && *cfg.MaxQuestions > 0 {
		return *cfg.MaxQuestions
	}
	if c.IsComposite() {
		return mockQuestionCount
	}
	return subjectQuestionCount
}
