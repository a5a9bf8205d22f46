package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aceprep/backend/internal/domain/category"
	practicesession "github.com/aceprep/backend/internal/domain/practice_session"
	"github.com/aceprep/backend/internal/domain/question"
	"github.com/aceprep/backend/internal/domain/scoring"
	"github.com/aceprep/backend/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────────

type CreateSessionRequest struct {
	Category string `json:"category"`
}

func (r *CreateSessionRequest) Validate() (category.Category, error) {
	if r.Category == "" {
		return 0, errors.New("category is required")
	}
	return category.Parse(r.Category)
}

type CreateSessionResponse struct {
	ID       string                `json:"id"`
	Category category.Category     `json:"category"`
	State    practicesession.State `json:"state"`
}

type SelectRequest struct {
	Option *int `json:"option"`
}

// QuestionResponse is a question as shown to the student. The correct
// answer and explanation are only included once the answer is locked.
type QuestionResponse struct {
	ID            string            `json:"id"`
	Category      category.Category `json:"category"`
	Passage       string            `json:"passage,omitempty"`
	QuestionText  string            `json:"questionText"`
	Options       []OptionResponse  `json:"options"`
	CorrectAnswer *int              `json:"correctAnswer,omitempty"`
	Explanation   string            `json:"explanation,omitempty"`
}

type OptionResponse struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type SessionResponse struct {
	ID             string                         `json:"id"`
	Category       category.Category              `json:"category"`
	State          practicesession.State          `json:"state"`
	Position       int                            `json:"position"`
	Total          int                            `json:"total"`
	Progress       int                            `json:"progress"`
	Score          int                            `json:"score"`
	MathSection    bool                           `json:"mathSection"`
	Question       *QuestionResponse              `json:"question,omitempty"`
	Selected       *int                           `json:"selected,omitempty"`
	Locked         bool                           `json:"locked"`
	Correct        *bool                          `json:"correct,omitempty"`
	Feedback       string                         `json:"feedback,omitempty"`
	FeedbackStatus practicesession.FeedbackStatus `json:"feedbackStatus"`
	Sections       scoring.Tallies                `json:"sections"`
}

type AdvanceResponse struct {
	Complete bool                    `json:"complete"`
	Session  *SessionResponse        `json:"session,omitempty"`
	Result   *practicesession.Result `json:"result,omitempty"`
	Profile  *ProfileResponse        `json:"profile,omitempty"`
}

func newSessionResponse(v practicesession.View) SessionResponse {
	resp := SessionResponse{
		ID:             v.SessionID,
		Category:       v.Category,
		State:          v.State,
		Position:       v.Position,
		Total:          v.Total,
		Progress:       v.Progress,
		Score:          v.Score,
		MathSection:    v.MathSection,
		Selected:       v.Selected,
		Locked:         v.Locked,
		Correct:        v.Correct,
		Feedback:       v.Feedback,
		FeedbackStatus: v.FeedbackStatus,
		Sections:       v.Sections,
	}
	if v.Question != nil {
		resp.Question = newQuestionResponse(*v.Question, v.Locked)
	}
	return resp
}

func newQuestionResponse(q question.Question, reveal bool) *QuestionResponse {
	out := &QuestionResponse{
		ID:           q.ID,
		Category:     q.Category,
		Passage:      q.Passage,
		QuestionText: q.Text,
		Options:      make([]OptionResponse, len(q.Options)),
	}
	for i, text := range q.Options {
		out.Options[i] = OptionResponse{Label: question.OptionLabel(i), Text: text}
	}
	if reveal {
		correct := q.CorrectAnswer
		out.CorrectAnswer = &correct
		out.Explanation = q.Explanation
	}
	return out
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /sessions
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := req.Validate()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.practice.StartSession(c)
	if h.handleSessionError(w, err) {
		return
	}

	respondJSON(w, http.StatusAccepted, CreateSessionResponse{
		ID:       sess.ID,
		Category: sess.Category,
		State:    sess.Current().State,
	})
}

// GET /sessions/{sessionID}
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	v, err := h.practice.Current(chi.URLParam(r, "sessionID"))
	if h.handleSessionError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, newSessionResponse(v))
}

// POST /sessions/{sessionID}/select
func (h *Handler) selectOption(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var req SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Option == nil {
		respondError(w, http.StatusBadRequest, "option is required")
		return
	}

	if h.handleSessionError(w, h.practice.Select(id, *req.Option)) {
		return
	}
	h.getSession(w, r)
}

// POST /sessions/{sessionID}/submit
func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	if h.handleSessionError(w, h.practice.Submit(chi.URLParam(r, "sessionID"))) {
		return
	}
	h.getSession(w, r)
}

// POST /sessions/{sessionID}/advance
func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	out, err := h.practice.Advance(id)
	if h.handleSessionError(w, err) {
		return
	}

	if out != nil {
		profile := newProfileResponse(out.Profile)
		respondJSON(w, http.StatusOK, AdvanceResponse{
			Complete: true,
			Result:   &out.Result,
			Profile:  &profile,
		})
		return
	}

	v, err := h.practice.Current(id)
	if h.handleSessionError(w, err) {
		return
	}
	session := newSessionResponse(v)
	respondJSON(w, http.StatusOK, AdvanceResponse{Session: &session})
}

// GET /sessions/{sessionID}/result
func (h *Handler) getResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.practice.Result(chi.URLParam(r, "sessionID"))
	if errors.Is(err, service.ErrNotComplete) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if h.handleSessionError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// DELETE /sessions/{sessionID}
func (h *Handler) abortSession(w http.ResponseWriter, r *http.Request) {
	if h.handleSessionError(w, h.practice.Abort(chi.URLParam(r, "sessionID"))) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
