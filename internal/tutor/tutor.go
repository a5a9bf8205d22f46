package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/aceprep/backend/internal/domain/question"
	"github.com/aceprep/backend/internal/llm"
)

// FallbackMessage is shown when the tutor has nothing to say.
const FallbackMessage = "Keep pushing, you're doing great!"

// Tutor explains a submitted answer. chosen is the text of the option the
// student picked.
type Tutor interface {
	Explain(ctx context.Context, q question.Question, chosen string) (string, error)
}

const persona = "You are 'Ace', an elite admissions coach. Be concise, brilliant, and encouraging."

// LLMTutor asks a chat model for commentary in the Ace persona.
type LLMTutor struct {
	client *llm.Client
	model  string
}

// Compile-time check: *LLMTutor satisfies the Tutor interface.
var _ Tutor = (*LLMTutor)(nil)

func NewLLMTutor(client *llm.Client, model string) *LLMTutor {
	return &LLMTutor{client: client, model: model}
}

func (t *LLMTutor) Explain(ctx context.Context, q question.Question, chosen string) (string, error) {
	text, err := t.client.Complete(ctx, llm.Request{
		Model:       t.model,
		System:      persona,
		Prompt:      buildPrompt(q, chosen),
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("tutor feedback: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackMessage, nil
	}
	return text, nil
}

func buildPrompt(q question.Question, chosen string) string {
	return fmt.Sprintf(`Question: %s
Category: %s
User Answer: %s
Correct Answer: %s
Explain why the answer is correct and provide a 'Pro-Tip' for this specific question type.`,
		q.Text, q.Category, chosen, q.CorrectText())
}

// StaticTutor answers from the explanation stored with the question and
// never calls out.
type StaticTutor struct{}

var _ Tutor = StaticTutor{}

func (StaticTutor) Explain(_ context.Context, q question.Question, chosen string) (string, error) {
	var b strings.Builder
	if chosen == q.CorrectText() {
		b.WriteString("Correct! ")
	} else {
		fmt.Fprintf(&b, "The answer is %s. ", q.CorrectText())
	}

	if exp := strings.TrimSpace(q.Explanation); exp != "" {
		b.WriteString(exp)
	} else {
		b.WriteString(FallbackMessage)
	}
	return b.String(), nil
}
