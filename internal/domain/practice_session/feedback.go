package practicesession

import (
	"context"

	"github.com/aceprep/backend/internal/domain/question"
)

// FeedbackStatus tracks the tutor commentary for the current question.
type FeedbackStatus string

const (
	FeedbackNone    FeedbackStatus = "none"
	FeedbackPending FeedbackStatus = "pending"
	FeedbackReady   FeedbackStatus = "ready"
	FeedbackFailed  FeedbackStatus = "failed"
)

// startFeedbackLocked launches the tutor request for the current position.
// The request is bound to a context that Advance and Abort cancel, and its
// answer is only written back while the session still sits on the same
// submitted question.
func (s *Session) startFeedbackLocked(q question.Question, chosen string) {
	if s.explainer == nil {
		s.feedback = q.Explanation
		s.feedbackStatus = FeedbackReady
		return
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.cfg.FeedbackTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), s.cfg.FeedbackTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	s.cancelFeedback = cancel
	s.feedback = ""
	s.feedbackStatus = FeedbackPending

	position := s.position
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()

		text, err := s.explainer.Explain(ctx, q, chosen)
		s.deliverFeedback(position, text, err)
	}()
}

func (s *Session) deliverFeedback(position int, text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSubmitted || s.position != position {
		return
	}
	s.cancelFeedback = nil
	if err != nil {
		s.feedback = ""
		s.feedbackStatus = FeedbackFailed
		return
	}
	s.feedback = text
	s.feedbackStatus = FeedbackReady
}

// stopFeedbackLocked detaches the current feedback task and clears the
// feedback shown for the question being left.
func (s *Session) stopFeedbackLocked() {
	if s.cancelFeedback != nil {
		s.cancelFeedback()
		s.cancelFeedback = nil
	}
	s.feedback = ""
	s.feedbackStatus = FeedbackNone
}
