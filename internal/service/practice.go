package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aceprep/backend/internal/domain/category"
	practicesession "github.com/aceprep/backend/internal/domain/practice_session"
	"github.com/aceprep/backend/internal/domain/question"
	"github.com/aceprep/backend/internal/domain/stats"
	"github.com/aceprep/backend/internal/generator"
	"github.com/aceprep/backend/internal/platform/logger"
	"github.com/aceprep/backend/internal/store"
	"github.com/aceprep/backend/internal/tutor"
	"github.com/aceprep/backend/internal/worker"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidCategory = errors.New("invalid category")
	ErrNotComplete     = errors.New("session is not complete")
)

// Config holds the service tunables.
type Config struct {
	Session           practicesession.SessionConfig
	GenerationTimeout time.Duration
	Workers           int
}

func DefaultConfig() Config {
	return Config{
		Session:           practicesession.DefaultConfig(),
		GenerationTimeout: 2 * time.Minute,
		Workers:           2,
	}
}

// Outcome is returned by Advance once the last question has been passed.
type Outcome struct {
	Result  practicesession.Result
	Profile stats.UserStats
}

// CategoryInfo describes one practice entry point.
type CategoryInfo struct {
	Category      category.Category
	QuestionCount int
	Score         int
}

type fetched struct {
	questions []question.Question
	err       error
}

// PracticeService owns the practice sessions. At most one session is active:
// starting a new one aborts the previous. Question batches are fetched on a
// worker pool and handed to their session by ID; a batch that arrives for a
// session that is gone is dropped.
type PracticeService struct {
	generator generator.Generator
	explainer practicesession.Explainer
	profiles  *store.ProfileStore
	logger    *logger.Logger
	cfg       Config

	pool       *worker.Pool[fetched]
	dispatched chan struct{}

	mu        sync.RWMutex
	current   *practicesession.Session
	cancelGen context.CancelFunc
}

// NewPracticeService wires the service and starts its dispatcher. t may be
// nil, in which case each question's stored explanation is used as feedback.
func NewPracticeService(g generator.Generator, t tutor.Tutor, profiles *store.ProfileStore, log *logger.Logger, cfg Config) *PracticeService {
	if log == nil {
		log = logger.Nop()
	}
	s := &PracticeService{
		generator:  g,
		profiles:   profiles,
		logger:     log.With("component", "PracticeService"),
		cfg:        cfg,
		pool:       worker.NewPool[fetched](cfg.Workers, 8),
		dispatched: make(chan struct{}),
	}
	if t != nil {
		s.explainer = &loggingExplainer{tutor: t, logger: s.logger}
	}

	go s.dispatch()
	return s
}

// StartSession aborts any active session, creates a new one for c and
// queues its question fetch. The session starts in the loading state.
func (s *PracticeService) StartSession(c category.Category) (*practicesession.Session, error) {
	if !c.Valid() {
		return nil, ErrInvalidCategory
	}

	sess := practicesession.New(c, s.cfg.Session, s.explainer, s.onComplete)
	count := s.cfg.Session.QuestionCount(c)

	genCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.current != nil {
		s.current.Abort()
		s.cancelGen()
		s.logger.Info("session replaced", "session_id", s.current.ID)
	}
	s.current = sess
	s.cancelGen = cancel
	s.mu.Unlock()

	err := s.pool.Submit(sess.ID, func() fetched {
		ctx := genCtx
		if s.cfg.GenerationTimeout > 0 {
			var stop context.CancelFunc
			ctx, stop = context.WithTimeout(genCtx, s.cfg.GenerationTimeout)
			defer stop()
		}
		qs, err := s.generator.Generate(ctx, c, count)
		return fetched{questions: qs, err: err}
	})
	if err != nil {
		sess.Abort()
		cancel()
		return nil, err
	}

	s.logger.Info("session started", "session_id", sess.ID, "category", c.String(), "questions", count)
	return sess, nil
}

// Session returns the session with the given ID if it is still held.
func (s *PracticeService) Session(id string) (*practicesession.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.ID != id {
		return nil, ErrSessionNotFound
	}
	return s.current, nil
}

func (s *PracticeService) Current(id string) (practicesession.View, error) {
	sess, err := s.Session(id)
	if err != nil {
		return practicesession.View{}, err
	}
	return sess.Current(), nil
}

// WaitReady blocks until the session has its questions or ctx is done.
func (s *PracticeService) WaitReady(ctx context.Context, id string) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}
	select {
	case <-sess.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *PracticeService) Select(id string, option int) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}
	return sess.Select(option)
}

func (s *PracticeService) Submit(id string) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}
	return sess.Submit()
}

// Advance moves past the submitted question. When the session completes,
// the returned Outcome carries the result and the profile it produced.
func (s *PracticeService) Advance(id string) (*Outcome, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	res, err := sess.Advance()
	if err != nil || res == nil {
		return nil, err
	}
	return &Outcome{Result: *res, Profile: s.profiles.Profile()}, nil
}

// Abort discards the session without touching the profile.
func (s *PracticeService) Abort(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != id {
		return ErrSessionNotFound
	}
	s.current.Abort()
	s.cancelGen()
	s.logger.Info("session aborted", "session_id", id)
	return nil
}

func (s *PracticeService) Result(id string) (practicesession.Result, error) {
	sess, err := s.Session(id)
	if err != nil {
		return practicesession.Result{}, err
	}
	res, ok := sess.Result()
	if !ok {
		return practicesession.Result{}, ErrNotComplete
	}
	return res, nil
}

// Profile returns the current profile.
func (s *PracticeService) Profile() stats.UserStats {
	return s.profiles.Profile()
}

// Categories lists every practice entry point with its session size and the
// profile's score for it.
func (s *PracticeService) Categories() []CategoryInfo {
	profile := s.profiles.Profile()
	out := make([]CategoryInfo, 0, len(category.All()))
	for _, c := range category.All() {
		out = append(out, CategoryInfo{
			Category:      c,
			QuestionCount: s.cfg.Session.QuestionCount(c),
			Score:         profile.CategoryScores[c],
		})
	}
	return out
}

// Close aborts the active session, drains pending fetches and stops the
// dispatcher.
func (s *PracticeService) Close() {
	s.mu.Lock()
	if s.current != nil {
		s.current.Abort()
		s.cancelGen()
	}
	s.mu.Unlock()

	s.pool.Close()
	<-s.dispatched
}

func (s *PracticeService) dispatch() {
	defer close(s.dispatched)

	for r := range s.pool.Results() {
		sess, err := s.Session(r.JobID)
		if err != nil {
			s.logger.Debug("dropping batch for discarded session", "session_id", r.JobID)
			continue
		}

		if r.Output.err != nil {
			s.logger.Warn("question generation failed",
				"session_id", sess.ID,
				"category", sess.Category.String(),
				"error", r.Output.err,
			)
			sess.Load(nil, r.Output.err)
			continue
		}

		batch, dropped := question.NewBatch(r.Output.questions, sess.Category)
		if dropped > 0 {
			s.logger.Warn("dropped malformed questions", "session_id", sess.ID, "dropped", dropped)
		}
		s.logger.Debug("batch loaded", "session_id", sess.ID, "questions", len(batch))
		sess.Load(batch, nil)
	}
}

// onComplete folds a finished session into the profile.
func (s *PracticeService) onComplete(res practicesession.Result) {
	profile, err := s.profiles.Apply(context.Background(), res.Category, res.Score, res.Total)
	if err != nil {
		s.logger.Error("failed to persist profile",
			"category", res.Category.String(),
			"error", err,
		)
		return
	}
	s.logger.Info("session complete",
		"category", res.Category.String(),
		"score", res.Score,
		"total", res.Total,
		"average", profile.AverageScore,
	)
}

// loggingExplainer reports tutor failures; the session itself only shows
// that feedback is unavailable.
type loggingExplainer struct {
	tutor  tutor.Tutor
	logger *logger.Logger
}

func (e *loggingExplainer) Explain(ctx context.Context, q question.Question, chosen string) (string, error) {
	text, err := e.tutor.Explain(ctx, q, chosen)
	if err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Warn("tutor feedback failed", "question_id", q.ID, "error", err)
	}
	return text, err
}
