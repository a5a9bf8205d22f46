package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/aceprep/backend/internal/domain/category"
	practicesession "github.com/aceprep/backend/internal/domain/practice_session"
	"github.com/aceprep/backend/internal/domain/question"
	"github.com/aceprep/backend/internal/service"
)

// Strategy picks the option to submit for a question.
type Strategy func(q question.Question) int

// Perfect always picks the correct option.
func Perfect(q question.Question) int { return q.CorrectAnswer }

// First always picks option A.
func First(question.Question) int { return 0 }

// Random picks uniformly among the options.
func Random(q question.Question) int { return rand.IntN(len(q.Options)) }

// ParseStrategy maps a command line name to a strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "perfect":
		return Perfect, nil
	case "first":
		return First, nil
	case "random":
		return Random, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want perfect, first or random)", name)
	}
}

// Run plays one full session in c through the service, answering with
// strategy, and prints each outcome to out. It returns the final result and
// the updated profile.
func Run(ctx context.Context, svc *service.PracticeService, c category.Category, strategy Strategy, out io.Writer) (*service.Outcome, error) {
	sess, err := svc.StartSession(c)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Session started: %s (%s)\n", sess.ID, c)

	if err := svc.WaitReady(ctx, sess.ID); err != nil {
		_ = svc.Abort(sess.ID)
		return nil, err
	}

	// A session with no questions completes while loading, and its profile
	// update has run by the time it is ready.
	if res, err := svc.Result(sess.ID); err == nil {
		if res.GenerationFailed {
			fmt.Fprintln(out, "Question generation failed; nothing to practice.")
		}
		return &service.Outcome{Result: res, Profile: svc.Profile()}, nil
	}

	for {
		v, err := svc.Current(sess.ID)
		if err != nil {
			return nil, err
		}
		if v.Question == nil {
			return nil, fmt.Errorf("session %s has no current question in state %s", sess.ID, v.State)
		}
		q := *v.Question

		if err := svc.Select(sess.ID, strategy(q)); err != nil {
			return nil, err
		}
		if err := svc.Submit(sess.ID); err != nil {
			return nil, err
		}
		sess.Wait()
		printQuestion(out, svc, sess.ID, q)

		outcome, err := svc.Advance(sess.ID)
		if err != nil {
			return nil, err
		}
		if outcome != nil {
			printOutcome(out, outcome)
			return outcome, nil
		}
		if ctx.Err() != nil {
			_ = svc.Abort(sess.ID)
			return nil, errors.Join(errors.New("simulation interrupted"), ctx.Err())
		}
	}
}

func printQuestion(out io.Writer, svc *service.PracticeService, id string, q question.Question) {
	v, err := svc.Current(id)
	if err != nil {
		return
	}

	mark := "✗"
	if v.Correct != nil && *v.Correct {
		mark = "✓"
	}
	section := ""
	if v.MathSection {
		section = " [math section]"
	}
	fmt.Fprintf(out, "\n=== Question %d/%d (%s)%s ===\n", v.Position+1, v.Total, q.Category, section)
	fmt.Fprintf(out, "%s\n", q.Text)
	if v.Selected != nil {
		fmt.Fprintf(out, "%s picked %s: %s, correct %s: %s\n", mark,
			question.OptionLabel(*v.Selected), q.Options[*v.Selected],
			question.OptionLabel(q.CorrectAnswer), q.CorrectText())
	}
	switch v.FeedbackStatus {
	case practicesession.FeedbackReady:
		fmt.Fprintf(out, "Tutor: %s\n", v.Feedback)
	case practicesession.FeedbackFailed:
		fmt.Fprintln(out, "Tutor: feedback unavailable")
	}
}

func printOutcome(out io.Writer, o *service.Outcome) {
	fmt.Fprintf(out, "\nFinal score: %d/%d\n", o.Result.Score, o.Result.Total)
	for _, c := range o.Result.Sections.Categories() {
		t := o.Result.Sections[c]
		fmt.Fprintf(out, "  %-22s %d/%d\n", c, t.Correct, t.Total)
	}

	p := o.Profile
	fmt.Fprintf(out, "\nProfile: %d quizzes, %d questions answered, average %d%%\n",
		p.CompletedQuizzes, p.QuestionsAnswered, p.AverageScore)
	for _, c := range category.All() {
		fmt.Fprintf(out, "  %-22s %d%%\n", c, p.CategoryScores[c])
	}
}
