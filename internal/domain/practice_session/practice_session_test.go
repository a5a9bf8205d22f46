package practicesession_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aceprep/backend/internal/domain/category"
	practicesession "github.com/aceprep/backend/internal/domain/practice_session"
	"github.com/aceprep/backend/internal/domain/question"
	"github.com/aceprep/backend/internal/domain/scoring"
)

func createBatch(n int, cat category.Category) question.Batch {
	batch := make(question.Batch, n)
	for i := 0; i < n; i++ {
		batch[i] = question.Question{
			ID:            "q" + string(rune('A'+i)),
			Category:      cat,
			Text:          "Question " + string(rune('A'+i)),
			Options:       []string{"w", "x", "y", "z"},
			CorrectAnswer: i % 4,
			Explanation:   "because " + string(rune('A'+i)),
		}
	}
	return batch
}

// answer selects, submits and advances one question.
func answer(t *testing.T, s *practicesession.Session, option int) *practicesession.Result {
	t.Helper()
	if err := s.Select(option); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	res, err := s.Advance()
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	return res
}

// blockingExplainer holds every request until release is closed.
type blockingExplainer struct {
	release chan struct{}
	calls   chan int
}

func (b *blockingExplainer) Explain(ctx context.Context, q question.Question, chosen string) (string, error) {
	b.calls <- 1
	select {
	case <-b.release:
		return "late feedback for " + q.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type fixedExplainer struct {
	text string
	err  error
}

func (f fixedExplainer) Explain(ctx context.Context, q question.Question, chosen string) (string, error) {
	return f.text, f.err
}

func TestNew_StartsLoading(t *testing.T) {
	s := practicesession.New(category.Math, practicesession.DefaultConfig(), nil, nil)

	if s.ID == "" {
		t.Error("expected non-empty session ID")
	}
	v := s.Current()
	if v.State != practicesession.StateLoading {
		t.Errorf("expected loading, got %v", v.State)
	}
	if v.Question != nil {
		t.Error("expected no question while loading")
	}

	if err := s.Select(0); !errors.Is(err, practicesession.ErrNotReady) {
		t.Errorf("Select while loading = %v, want ErrNotReady", err)
	}
	if err := s.Submit(); !errors.Is(err, practicesession.ErrNotReady) {
		t.Errorf("Submit while loading = %v, want ErrNotReady", err)
	}
	if _, err := s.Advance(); !errors.Is(err, practicesession.ErrNotReady) {
		t.Errorf("Advance while loading = %v, want ErrNotReady", err)
	}
}

func TestSession_FullRun(t *testing.T) {
	var (
		completions int
		got         practicesession.Result
	)
	s := practicesession.New(category.Math, practicesession.DefaultConfig(), nil, func(r practicesession.Result) {
		completions++
		got = r
	})
	batch := createBatch(5, category.Math)
	s.Load(batch, nil)

	// Answer 4 of 5 correctly: the last one gets a wrong option.
	for i, q := range batch {
		option := q.CorrectAnswer
		if i == 4 {
			option = (q.CorrectAnswer + 1) % 4
		}
		res := answer(t, s, option)
		if i < 4 && res != nil {
			t.Fatalf("unexpected result after question %d", i)
		}
		if i == 4 && res == nil {
			t.Fatal("expected result after last question")
		}
	}

	if completions != 1 {
		t.Fatalf("expected 1 completion, got %d", completions)
	}
	if got.Score != 4 || got.Total != 5 {
		t.Errorf("expected 4/5, got %d/%d", got.Score, got.Total)
	}
	if got.Sections[category.Math] != (scoring.Tally{Correct: 4, Total: 5}) {
		t.Errorf("unexpected sections %+v", got.Sections)
	}

	if v := s.Current(); v.State != practicesession.StateComplete || v.Progress != 100 {
		t.Errorf("expected complete at 100%%, got %v at %d%%", v.State, v.Progress)
	}
	stored, ok := s.Result()
	if !ok || stored.Score != 4 {
		t.Errorf("Result() = %+v, %v", stored, ok)
	}
}

func TestSession_CompleteIsTerminal(t *testing.T) {
	s := practicesession.New(category.Vocabulary, practicesession.DefaultConfig(), nil, nil)
	s.Load(createBatch(1, category.Vocabulary), nil)
	answer(t, s, 0)

	if err := s.Select(0); !errors.Is(err, practicesession.ErrSessionClosed) {
		t.Errorf("Select after complete = %v", err)
	}
	if err := s.Submit(); !errors.Is(err, practicesession.ErrSessionClosed) {
		t.Errorf("Submit after complete = %v", err)
	}
	if _, err := s.Advance(); !errors.Is(err, practicesession.ErrSessionClosed) {
		t.Errorf("Advance after complete = %v", err)
	}
}

func TestSelect_OverwritesUntilSubmit(t *testing.T) {
	s := practicesession.New(category.Grammar, practicesession.DefaultConfig(), nil, nil)
	s.Load(createBatch(2, category.Grammar), nil)

	if err := s.Select(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(3); err != nil {
		t.Fatal(err)
	}
	if v := s.Current(); v.Selected == nil || *v.Selected != 3 || v.Locked {
		t.Fatalf("expected tentative selection 3, got %+v", v.Selected)
	}

	if err := s.Submit(); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(0); !errors.Is(err, practicesession.ErrAlreadySubmitted) {
		t.Errorf("Select after submit = %v, want ErrAlreadySubmitted", err)
	}
	if err := s.Submit(); !errors.Is(err, practicesession.ErrAlreadySubmitted) {
		t.Errorf("second Submit = %v, want ErrAlreadySubmitted", err)
	}

	v := s.Current()
	if v.Selected == nil || *v.Selected != 3 || !v.Locked {
		t.Errorf("expected locked selection 3, got %+v locked=%v", v.Selected, v.Locked)
	}
	if v.Correct == nil || *v.Correct {
		t.Errorf("expected incorrect answer (correct is 0), got %v", v.Correct)
	}
}

func TestContractViolations(t *testing.T) {
	s := practicesession.New(category.Math, practicesession.DefaultConfig(), nil, nil)
	s.Load(createBatch(2, category.Math), nil)

	if err := s.Submit(); !errors.Is(err, practicesession.ErrNoSelection) {
		t.Errorf("Submit without selection = %v, want ErrNoSelection", err)
	}
	if _, err := s.Advance(); !errors.Is(err, practicesession.ErrNotSubmitted) {
		t.Errorf("Advance from presenting = %v, want ErrNotSubmitted", err)
	}
	for _, idx := range []int{-1, 4} {
		if err := s.Select(idx); !errors.Is(err, practicesession.ErrInvalidSelection) {
			t.Errorf("Select(%d) = %v, want ErrInvalidSelection", idx, err)
		}
	}
	if v := s.Current(); v.Selected != nil {
		t.Error("invalid selection must not be recorded")
	}
}

func TestAdvance_ForwardOnly(t *testing.T) {
	s := practicesession.New(category.Reading, practicesession.DefaultConfig(), nil, nil)
	s.Load(createBatch(4, category.Reading), nil)

	last := -1
	for s.Current().State != practicesession.StateComplete {
		v := s.Current()
		if v.Position <= last {
			t.Fatalf("position went from %d to %d", last, v.Position)
		}
		if v.Selected != nil {
			t.Fatalf("selection not reset at position %d", v.Position)
		}
		last = v.Position
		answer(t, s, 0)
	}
	if last != 3 {
		t.Errorf("expected to visit position 3 last, got %d", last)
	}
}

func TestCurrent_Idempotent(t *testing.T) {
	s := practicesession.New(category.Math, practicesession.DefaultConfig(), nil, nil)
	s.Load(createBatch(3, category.Math), nil)
	_ = s.Select(2)

	first := s.Current()
	second := s.Current()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Current() changed between calls:\n%+v\n%+v", first, second)
	}

	// Mutating the snapshot must not leak into the session.
	first.Question.Options[0] = "changed"
	if s.Current().Question.Options[0] == "changed" {
		t.Error("view shares option storage with the session")
	}
}

func TestLoad_EmptyBatchCompletesImmediately(t *testing.T) {
	var got *practicesession.Result
	s := practicesession.New(category.Math, practicesession.DefaultConfig(), nil, func(r practicesession.Result) {
		got = &r
	})
	s.Load(nil, nil)

	select {
	case <-s.Ready():
	default:
		t.Fatal("expected Ready to be closed")
	}
	if got == nil {
		t.Fatal("expected completion callback")
	}
	if got.Score != 0 || got.Total != 0 || got.GenerationFailed {
		t.Errorf("unexpected result %+v", got)
	}
	if s.Current().State != practicesession.StateComplete {
		t.Errorf("expected complete, got %v", s.Current().State)
	}
}

func TestLoad_ReadyWaitsForCompletionCallback(t *testing.T) {
	release := make(chan struct{})
	var applied atomic.Bool
	s := practicesession.New(category.Math, practicesession.DefaultConfig(), nil, func(practicesession.Result) {
		<-release
		applied.Store(true)
	})

	go s.Load(nil, errors.New("quota"))

	select {
	case <-s.Ready():
		t.Fatal("Ready closed before the completion callback returned")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-s.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("Ready never closed")
	}
	if !applied.Load() {
		t.Error("completion callback had not finished when Ready closed")
	}
}

func TestLoad_GenerationFailureIsDegenerateSession(t *testing.T) {
	var got *practicesession.Result
	s := practicesession.New(category.Math, practicesession.DefaultConfig(), nil, func(r practicesession.Result) {
		got = &r
	})
	genErr := errors.New("provider unavailable")

	// Questions delivered alongside an error are ignored.
	s.Load(createBatch(3, category.Math), genErr)

	if got == nil || got.Total != 0 || !got.GenerationFailed {
		t.Fatalf("unexpected result %+v", got)
	}
	if !errors.Is(s.GenerationErr(), genErr) {
		t.Errorf("GenerationErr() = %v", s.GenerationErr())
	}
}

func TestLoad_SecondCallIgnored(t *testing.T) {
	s := practicesession.New(category.Math, practicesession.DefaultConfig(), nil, nil)
	s.Load(createBatch(2, category.Math), nil)
	s.Load(createBatch(5, category.Math), nil)

	if total := s.Current().Total; total != 2 {
		t.Errorf("expected first batch to stick, total=%d", total)
	}
}

func TestAbort_DiscardsWithoutResult(t *testing.T) {
	completed := false
	s := practicesession.New(category.Math, practicesession.DefaultConfig(), nil, func(practicesession.Result) {
		completed = true
	})
	s.Load(createBatch(3, category.Math), nil)
	answer(t, s, 0)

	s.Abort()

	if completed {
		t.Error("abort must not complete the session")
	}
	if _, ok := s.Result(); ok {
		t.Error("abort must not produce a result")
	}
	if err := s.Select(0); !errors.Is(err, practicesession.ErrSessionClosed) {
		t.Errorf("Select after abort = %v", err)
	}

	// A batch arriving after abort is ignored.
	late := practicesession.New(category.Math, practicesession.DefaultConfig(), nil, func(practicesession.Result) {
		completed = true
	})
	late.Abort()
	late.Load(nil, nil)
	if completed || late.Current().State != practicesession.StateAborted {
		t.Error("load after abort must be ignored")
	}
}

func TestFeedback_WithoutExplainerUsesStoredExplanation(t *testing.T) {
	s := practicesession.New(category.Math, practicesession.DefaultConfig(), nil, nil)
	s.Load(createBatch(1, category.Math), nil)
	_ = s.Select(0)
	_ = s.Submit()

	v := s.Current()
	if v.FeedbackStatus != practicesession.FeedbackReady || v.Feedback != "because A" {
		t.Errorf("unexpected feedback %q (%s)", v.Feedback, v.FeedbackStatus)
	}
}

func TestFeedback_Delivered(t *testing.T) {
	s := practicesession.New(category.Math, practicesession.DefaultConfig(), fixedExplainer{text: "Nice work"}, nil)
	s.Load(createBatch(2, category.Math), nil)
	_ = s.Select(0)
	_ = s.Submit()
	s.Wait()

	v := s.Current()
	if v.FeedbackStatus != practicesession.FeedbackReady || v.Feedback != "Nice work" {
		t.Errorf("unexpected feedback %q (%s)", v.Feedback, v.FeedbackStatus)
	}
}

func TestFeedback_FailureLeavesGameStateAlone(t *testing.T) {
	s := practicesession.New(category.Math, practicesession.DefaultConfig(), fixedExplainer{err: errors.New("boom")}, nil)
	s.Load(createBatch(2, category.Math), nil)
	_ = s.Select(0)
	_ = s.Submit()
	s.Wait()

	v := s.Current()
	if v.FeedbackStatus != practicesession.FeedbackFailed || v.Feedback != "" {
		t.Errorf("unexpected feedback %q (%s)", v.Feedback, v.FeedbackStatus)
	}
	if v.Score != 1 || v.State != practicesession.StateSubmitted {
		t.Errorf("feedback failure changed game state: %+v", v)
	}
}

func TestFeedback_StaleResultDiscarded(t *testing.T) {
	exp := &blockingExplainer{release: make(chan struct{}), calls: make(chan int, 4)}
	cfg := practicesession.DefaultConfig()
	cfg.FeedbackTimeout = 0
	s := practicesession.New(category.Math, cfg, exp, nil)
	s.Load(createBatch(3, category.Math), nil)

	_ = s.Select(0)
	_ = s.Submit()
	<-exp.calls
	if st := s.Current().FeedbackStatus; st != practicesession.FeedbackPending {
		t.Fatalf("expected pending feedback, got %s", st)
	}

	// Move on before the tutor answers.
	if _, err := s.Advance(); err != nil {
		t.Fatal(err)
	}
	close(exp.release)
	s.Wait()

	v := s.Current()
	if v.Position != 1 {
		t.Fatalf("expected position 1, got %d", v.Position)
	}
	if v.Feedback != "" || v.FeedbackStatus != practicesession.FeedbackNone {
		t.Errorf("stale feedback leaked into next question: %q (%s)", v.Feedback, v.FeedbackStatus)
	}
}

func TestFeedback_TimeoutMarksFailed(t *testing.T) {
	exp := &blockingExplainer{release: make(chan struct{}), calls: make(chan int, 1)}
	cfg := practicesession.DefaultConfig()
	cfg.FeedbackTimeout = 10 * time.Millisecond
	s := practicesession.New(category.Math, cfg, exp, nil)
	s.Load(createBatch(1, category.Math), nil)

	_ = s.Select(0)
	_ = s.Submit()
	s.Wait()

	if st := s.Current().FeedbackStatus; st != practicesession.FeedbackFailed {
		t.Errorf("expected failed feedback after timeout, got %s", st)
	}
}

func TestMockSession_MathSectionAndSections(t *testing.T) {
	batch := append(createBatch(10, category.Reading), createBatch(10, category.Math)...)
	var got practicesession.Result
	s := practicesession.New(category.Mock, practicesession.DefaultConfig(), nil, func(r practicesession.Result) { got = r })
	s.Load(batch, nil)

	for i := range batch {
		v := s.Current()
		if wantMath := i >= 10; v.MathSection != wantMath {
			t.Errorf("position %d: MathSection = %v, want %v", i, v.MathSection, wantMath)
		}
		answer(t, s, batch[i].CorrectAnswer)
	}

	if got.Category != category.Mock || got.Score != 20 || got.Total != 20 {
		t.Errorf("unexpected result %+v", got)
	}
	if got.Sections[category.Reading].Total != 10 || got.Sections[category.Math].Total != 10 {
		t.Errorf("expected per-subject sections, got %+v", got.Sections)
	}
	if _, ok := got.Sections[category.Mock]; ok {
		t.Error("mock must not appear as a section")
	}
}

func TestSession_ScoreMatchesCorrectSubmissions(t *testing.T) {
	batch := createBatch(8, category.Grammar)
	s := practicesession.New(category.Grammar, practicesession.DefaultConfig(), nil, nil)
	s.Load(batch, nil)

	picks := []int{0, 0, 2, 1, 0, 1, 2, 3}
	want := 0
	var res *practicesession.Result
	for i, p := range picks {
		if p == batch[i].CorrectAnswer {
			want++
		}
		res = answer(t, s, p)
	}

	if res == nil || res.Score != want || res.Score > res.Total {
		t.Errorf("result %+v, want score %d", res, want)
	}
}

func TestSession_ConcurrentReads(t *testing.T) {
	s := practicesession.New(category.Math, practicesession.DefaultConfig(), fixedExplainer{text: "ok"}, nil)
	s.Load(createBatch(5, category.Math), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Current()
			}
		}()
	}
	for s.Current().State != practicesession.StateComplete {
		answer(t, s, 0)
	}
	wg.Wait()
	s.Wait()
}

func TestQuestionCount(t *testing.T) {
	cfg := practicesession.DefaultConfig()
	if n := cfg.QuestionCount(category.Math); n != 5 {
		t.Errorf("math count = %d, want 5", n)
	}
	if n := cfg.QuestionCount(category.Mock); n != 20 {
		t.Errorf("mock count = %d, want 20", n)
	}

	maxQ := 3
	cfg.MaxQuestions = &maxQ
	if n := cfg.QuestionCount(category.Mock); n != 3 {
		t.Errorf("override count = %d, want 3", n)
	}
}
