package practicesession

import (
	"context"
	"errors"
	"sync"

	"github.com/aceprep/backend/internal/domain/category"
	"github.com/aceprep/backend/internal/domain/question"
	"github.com/aceprep/backend/internal/domain/scoring"
	"github.com/aceprep/backend/internal/id"
)

var (
	ErrNotReady         = errors.New("session is still loading")
	ErrNoSelection      = errors.New("no option selected")
	ErrNotSubmitted     = errors.New("current question has not been submitted")
	ErrAlreadySubmitted = errors.New("current question is already submitted")
	ErrSessionClosed    = errors.New("session is no longer active")
	ErrInvalidSelection = scoring.ErrInvalidSelection
)

// Explainer produces tutor commentary for a submitted answer.
type Explainer interface {
	Explain(ctx context.Context, q question.Question, chosen string) (string, error)
}

// Result is the final outcome of a session. It is produced exactly once.
type Result struct {
	Category         category.Category `json:"category"`
	Score            int               `json:"score"`
	Total            int               `json:"total"`
	Sections         scoring.Tallies   `json:"sections"`
	GenerationFailed bool              `json:"generationFailed,omitempty"`
}

// Session drives one run through a question batch:
//
//	Loading → Presenting(i) → Submitted(i) → Presenting(i+1) → … → Complete
//
// Abort moves any non-terminal state to Aborted. All methods are safe for
// concurrent use.
type Session struct {
	ID       string
	Category category.Category

	cfg        SessionConfig
	explainer  Explainer
	onComplete func(Result)

	mu             sync.Mutex
	state          State
	batch          question.Batch
	position       int
	selected       int // -1 = nothing selected
	correct        bool
	score          int
	tallies        scoring.Tallies
	feedback       string
	feedbackStatus FeedbackStatus
	cancelFeedback context.CancelFunc
	result         *Result
	genErr         error

	ready     chan struct{}
	readyOnce sync.Once
	inflight  sync.WaitGroup
}

// New creates a session in the Loading state. explainer may be nil, in which
// case the question's stored explanation is shown after submit. onComplete,
// if set, is called once with the final result, outside the session lock.
func New(c category.Category, cfg SessionConfig, explainer Explainer, onComplete func(Result)) *Session {
	return &Session{
		ID:             id.GenerateID(),
		Category:       c,
		cfg:            cfg,
		explainer:      explainer,
		onComplete:     onComplete,
		state:          StateLoading,
		selected:       -1,
		tallies:        scoring.Tallies{},
		feedbackStatus: FeedbackNone,
		ready:          make(chan struct{}),
	}
}

// Load hands the fetched batch to the session. A non-nil genErr is recorded
// and the session continues with an empty batch. An empty batch completes
// the session immediately with a 0/0 result. Calls after the first, or
// after Abort, are ignored.
func (s *Session) Load(batch question.Batch, genErr error) {
	s.mu.Lock()
	if s.state != StateLoading {
		s.mu.Unlock()
		return
	}

	s.genErr = genErr
	if genErr != nil {
		batch = nil
	}
	s.batch = batch

	if len(batch) == 0 {
		res := s.finishLocked()
		s.mu.Unlock()
		s.complete(res)
		s.markReady()
		return
	}

	s.state = StatePresenting
	s.position = 0
	s.selected = -1
	s.markReady()
	s.mu.Unlock()
}

// Select records a tentative choice for the current question.
func (s *Session) Select(option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState(StatePresenting); err != nil {
		return err
	}
	if !s.batch[s.position].HasOption(option) {
		return ErrInvalidSelection
	}
	s.selected = option
	return nil
}

// Submit locks the tentative choice, scores it and starts fetching tutor
// feedback in the background.
func (s *Session) Submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState(StatePresenting); err != nil {
		return err
	}
	if s.selected < 0 {
		return ErrNoSelection
	}

	q := s.batch[s.position]
	correct, err := scoring.IsCorrect(q, s.selected)
	if err != nil {
		return err
	}

	s.correct = correct
	if correct {
		s.score++
	}
	s.tallies = scoring.TallyUpdate(s.tallies, q.Category, correct)
	s.state = StateSubmitted
	s.startFeedbackLocked(q, q.Options[s.selected])
	return nil
}

// Advance moves past a submitted question. On the last question the session
// completes and the result is returned; otherwise the result is nil.
func (s *Session) Advance() (*Result, error) {
	s.mu.Lock()

	if err := s.requireState(StateSubmitted); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.stopFeedbackLocked()

	if s.position == len(s.batch)-1 {
		res := s.finishLocked()
		s.mu.Unlock()
		s.complete(res)
		return &res, nil
	}

	s.position++
	s.selected = -1
	s.correct = false
	s.state = StatePresenting
	s.mu.Unlock()
	return nil, nil
}

// Abort discards the session. No result is produced and in-flight feedback
// is cancelled.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateComplete || s.state == StateAborted {
		return
	}
	s.stopFeedbackLocked()
	s.state = StateAborted
	s.markReady()
}

// Result returns the final result once the session is complete.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return s.result.clone(), true
}

// GenerationErr is the error reported by the question generator, if any.
func (s *Session) GenerationErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.genErr
}

// Ready is closed when the session leaves Loading. A session that completes
// on Load closes it only after the completion callback has returned.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until every feedback request started by Submit has returned.
func (s *Session) Wait() {
	s.inflight.Wait()
}

func (s *Session) requireState(want State) error {
	if s.state == want {
		return nil
	}
	switch s.state {
	case StateLoading:
		return ErrNotReady
	case StateComplete, StateAborted:
		return ErrSessionClosed
	case StateSubmitted:
		return ErrAlreadySubmitted
	default:
		return ErrNotSubmitted
	}
}

func (s *Session) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Session) finishLocked() Result {
	s.state = StateComplete
	res := Result{
		Category:         s.Category,
		Score:            s.score,
		Total:            len(s.batch),
		Sections:         s.tallies,
		GenerationFailed: s.genErr != nil,
	}
	s.result = &res
	return res.clone()
}

func (s *Session) complete(res Result) {
	if s.onComplete != nil {
		s.onComplete(res)
	}
}

func (r Result) clone() Result {
	out := r
	out.Sections = make(scoring.Tallies, len(r.Sections))
	for k, v := range r.Sections {
		out.Sections[k] = v
	}
	return out
}
