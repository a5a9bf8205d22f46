package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aceprep/backend/internal/domain/category"
	"github.com/aceprep/backend/internal/domain/question"
	"github.com/aceprep/backend/internal/llm"
)

const maxRetries = 2

// LLMGenerator asks a chat completions endpoint for practice questions.
type LLMGenerator struct {
	client *llm.Client
	model  string
}

// Compile-time check: *LLMGenerator satisfies the Generator interface.
var _ Generator = (*LLMGenerator)(nil)

func NewLLMGenerator(client *llm.Client, model string) *LLMGenerator {
	return &LLMGenerator{client: client, model: model}
}

// rawQuestion mirrors the JSON the model is asked for. Category stays a
// string so one badly tagged item does not sink the whole array.
type rawQuestion struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Passage       string   `json:"passage"`
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Generate returns up to count questions for c. A mock test is requested
// one section at a time, concurrently, and assembled in exam order.
func (g *LLMGenerator) Generate(ctx context.Context, c category.Category, count int) ([]question.Question, error) {
	if count <= 0 {
		return nil, nil
	}
	if !c.IsComposite() {
		return g.generateSection(ctx, c, count, false)
	}

	slots := MockBlueprint(count)
	sections := make([][]question.Question, len(slots))

	eg, ctx := errgroup.WithContext(ctx)
	for i, slot := range slots {
		eg.Go(func() error {
			qs, err := g.generateSection(ctx, slot.Category, slot.Count, true)
			if err != nil {
				return err
			}
			sections[i] = qs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var out []question.Question
	for _, qs := range sections {
		out = append(out, qs...)
	}
	return out, nil
}

func (g *LLMGenerator) generateSection(ctx context.Context, c category.Category, count int, mock bool) ([]question.Question, error) {
	req := llm.Request{
		Model:       g.model,
		System:      buildSystemPrompt(c, mock),
		Prompt:      buildUserPrompt(c, count),
		Temperature: 0.7,
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		text, err := g.client.Complete(ctx, req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		jsonStr := llm.ExtractJSON(text)
		if jsonStr == "" {
			lastErr = &GenerationError{Reason: "no JSON array found in LLM response"}
			continue
		}

		raw, err := decodeQuestions(jsonStr)
		if err != nil {
			lastErr = &GenerationError{Reason: "invalid JSON from LLM", Wrapped: err}
			continue
		}

		out := make([]question.Question, 0, len(raw))
		for _, r := range raw {
			out = append(out, r.toQuestion(c))
		}
		if len(out) > count {
			out = out[:count]
		}
		return out, nil
	}

	return nil, &GenerationError{
		Reason:  fmt.Sprintf("%s: failed after %d attempts", c, maxRetries),
		Wrapped: lastErr,
	}
}

// decodeQuestions accepts either a bare array or an object wrapping one
// under "questions", which some models prefer.
func decodeQuestions(s string) ([]rawQuestion, error) {
	var list []rawQuestion
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var wrapped struct {
		Questions []rawQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(s), &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Questions, nil
}

// toQuestion maps the model's output onto a Question. Unknown category
// labels fall back to the section that was requested.
func (r rawQuestion) toQuestion(requested category.Category) question.Question {
	c, err := category.Parse(r.Category)
	if err != nil || c.IsComposite() {
		c = requested
	}
	return question.Question{
		ID:            r.ID,
		Category:      c,
		Passage:       r.Passage,
		Text:          r.QuestionText,
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		Explanation:   r.Explanation,
	}
}

// ============================================================================
// Prompts
// ============================================================================

var sectionGuidelines = map[category.Category]string{
	category.Reading:    "Academic-level passages of about 300 words with inference-heavy questions. Every question must carry the passage it refers to in the 'passage' field.",
	category.Vocabulary: "Upper-level SSAT/ISEE style words in context.",
	category.Grammar:    "Punctuation (colons, semicolons), active and passive voice, misplaced modifiers.",
	category.Math:       "Advanced honors grade 8/9 level: multi-step word problems, factoring, geometry.",
}

const mockMathGuidelines = `The math must be DIFFICULT. Focus on:
- Advanced algebra (systems of equations, quadratic word problems, complex inequalities).
- Honors geometry (circle theorems, 3D Pythagorean applications, coordinate geometry).
- Logic and number theory (patterns, probability, base systems, non-routine problems).
Avoid basic arithmetic. Use multi-step problems that require critical thinking.`

func buildSystemPrompt(c category.Category, mock bool) string {
	var b strings.Builder
	b.WriteString("You are an expert tutor for the Monmouth County Vocational School District (MCVSD) high school admissions test.\n\n")

	if mock {
		b.WriteString("You are writing one section of a FULL MOCK SIMULATION. Harder difficulty.\n")
	}
	fmt.Fprintf(&b, "SECTION: %s\n", c)
	if mock && c == category.Math {
		b.WriteString(mockMathGuidelines)
	} else {
		b.WriteString(sectionGuidelines[c])
	}

	fmt.Fprintf(&b, `

FORMATTING RULES:
- Respond with ONLY a JSON array. No prose, no markdown.
- Each item: {"id": string, "category": %q, "passage": string, "questionText": string, "options": [string, ...], "correctAnswer": integer index into options, "explanation": string}
- Use exactly four options.
- Every question MUST have an explanation that teaches the underlying concept.`, c.String())

	return b.String()
}

func buildUserPrompt(c category.Category, count int) string {
	return fmt.Sprintf("Generate %d difficult practice questions for the %s section of the MCVSD exam.", count, c)
}
