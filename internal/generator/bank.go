package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aceprep/backend/internal/domain/category"
	"github.com/aceprep/backend/internal/domain/question"
)

// BankGenerator draws questions from a fixed, pre-written question bank.
// It needs no network access, which makes it the offline and test choice.
type BankGenerator struct {
	byCategory map[category.Category][]question.Question
}

// Compile-time check: *BankGenerator satisfies the Generator interface.
var _ Generator = (*BankGenerator)(nil)

type bankFile struct {
	Questions []question.Question `yaml:"questions"`
}

// LoadBank reads a YAML question bank from path. Invalid entries are
// skipped; a bank with no usable questions is an error.
func LoadBank(path string) (*BankGenerator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank: %w", err)
	}

	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse question bank %s: %w", path, err)
	}

	g := NewBank(f.Questions)
	if len(g.byCategory) == 0 {
		return nil, fmt.Errorf("question bank %s has no valid questions", path)
	}
	return g, nil
}

// NewBank builds a generator over an in-memory set of questions.
func NewBank(questions []question.Question) *BankGenerator {
	valid, _ := question.NewBatch(questions, -1)

	g := &BankGenerator{byCategory: make(map[category.Category][]question.Question)}
	for _, q := range valid {
		g.byCategory[q.Category] = append(g.byCategory[q.Category], q)
	}
	return g
}

// Size returns how many questions the bank holds for c. For Mock it is the
// total across all subjects.
func (g *BankGenerator) Size(c category.Category) int {
	if c.IsComposite() {
		n := 0
		for _, qs := range g.byCategory {
			n += len(qs)
		}
		return n
	}
	return len(g.byCategory[c])
}

// Generate draws up to count random questions. A mock test follows the
// section blueprint; a section that runs short is simply shorter.
func (g *BankGenerator) Generate(ctx context.Context, c category.Category, count int) ([]question.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, &GenerationError{Reason: "cancelled", Wrapped: err}
	}
	if !c.Valid() {
		return nil, &GenerationError{Reason: fmt.Sprintf("unknown category %d", int(c))}
	}
	if count <= 0 {
		return nil, nil
	}

	if !c.IsComposite() {
		return g.draw(c, count), nil
	}

	var out []question.Question
	for _, slot := range MockBlueprint(count) {
		out = append(out, g.draw(slot.Category, slot.Count)...)
	}
	return out, nil
}

func (g *BankGenerator) draw(c category.Category, count int) []question.Question {
	pool := g.byCategory[c]
	picked := make([]question.Question, len(pool))
	copy(picked, pool)
	rand.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	if len(picked) > count {
		picked = picked[:count]
	}
	return picked
}
