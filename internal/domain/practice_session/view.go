package practicesession

import (
	"fmt"

	"github.com/aceprep/backend/internal/domain/category"
	"github.com/aceprep/backend/internal/domain/question"
	"github.com/aceprep/backend/internal/domain/scoring"
)

// State is the engine's position in the session state machine.
type State int

const (
	StateLoading State = iota
	StatePresenting
	StateSubmitted
	StateComplete
	StateAborted
)

var stateNames = [...]string{
	StateLoading:    "loading",
	StatePresenting: "presenting",
	StateSubmitted:  "submitted",
	StateComplete:   "complete",
	StateAborted:    "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further operation is valid.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateAborted
}

// View is everything a client needs to render the session. It is a copy;
// holding on to it never affects the session.
type View struct {
	SessionID      string
	Category       category.Category
	State          State
	Position       int
	Total          int
	Question       *question.Question // nil unless presenting or submitted
	Selected       *int
	Locked         bool
	Correct        *bool // set once locked
	Feedback       string
	FeedbackStatus FeedbackStatus
	Score          int
	Progress       int // percent of the batch reached, counting the current question
	MathSection    bool
	Sections       scoring.Tallies
}

// Current returns a snapshot of the session. It has no side effects.
func (s *Session) Current() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID:      s.ID,
		Category:       s.Category,
		State:          s.state,
		Position:       s.position,
		Total:          len(s.batch),
		Feedback:       s.feedback,
		FeedbackStatus: s.feedbackStatus,
		Score:          s.score,
		Sections:       make(scoring.Tallies, len(s.tallies)),
	}
	for k, t := range s.tallies {
		v.Sections[k] = t
	}

	switch s.state {
	case StatePresenting, StateSubmitted:
		q := s.batch[s.position]
		q.Options = append([]string(nil), q.Options...)
		v.Question = &q
		if s.selected >= 0 {
			sel := s.selected
			v.Selected = &sel
		}
		if s.state == StateSubmitted {
			correct := s.correct
			v.Locked = true
			v.Correct = &correct
		}
		v.Progress = scoring.Percent(s.position+1, len(s.batch))
		v.MathSection = s.Category.IsComposite() && s.position >= s.cfg.MockMathStart
	case StateComplete:
		v.Progress = 100
	}

	return v
}
