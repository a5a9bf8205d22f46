package scoring_test

import (
	"errors"
	"testing"

	"github.com/aceprep/backend/internal/domain/category"
	"github.com/aceprep/backend/internal/domain/question"
	"github.com/aceprep/backend/internal/domain/scoring"
)

func mathQuestion() question.Question {
	return question.Question{
		ID:            "q1",
		Category:      category.Math,
		Text:          "x + 1 = 3, x = ?",
		Options:       []string{"1", "2", "3"},
		CorrectAnswer: 1,
	}
}

func TestIsCorrect(t *testing.T) {
	q := mathQuestion()

	ok, err := scoring.IsCorrect(q, 1)
	if err != nil || !ok {
		t.Errorf("IsCorrect(1) = %v, %v; want true, nil", ok, err)
	}

	ok, err = scoring.IsCorrect(q, 2)
	if err != nil || ok {
		t.Errorf("IsCorrect(2) = %v, %v; want false, nil", ok, err)
	}
}

func TestIsCorrect_InvalidSelection(t *testing.T) {
	q := mathQuestion()
	for _, idx := range []int{-1, 3, 100} {
		if _, err := scoring.IsCorrect(q, idx); !errors.Is(err, scoring.ErrInvalidSelection) {
			t.Errorf("IsCorrect(%d) error = %v, want ErrInvalidSelection", idx, err)
		}
	}
}

func TestTallyUpdate(t *testing.T) {
	orig := scoring.Tallies{category.Reading: {Correct: 1, Total: 2}}

	got := scoring.TallyUpdate(orig, category.Math, true)
	got = scoring.TallyUpdate(got, category.Math, false)
	got = scoring.TallyUpdate(got, category.Reading, true)

	if got[category.Math] != (scoring.Tally{Correct: 1, Total: 2}) {
		t.Errorf("math tally = %+v", got[category.Math])
	}
	if got[category.Reading] != (scoring.Tally{Correct: 2, Total: 3}) {
		t.Errorf("reading tally = %+v", got[category.Reading])
	}
	if orig[category.Reading] != (scoring.Tally{Correct: 1, Total: 2}) {
		t.Error("TallyUpdate mutated its input")
	}
	if _, ok := orig[category.Math]; ok {
		t.Error("TallyUpdate added a key to its input")
	}
}

func TestTallies_SumAndOrder(t *testing.T) {
	tallies := scoring.Tallies{
		category.Math:    {Correct: 3, Total: 4},
		category.Reading: {Correct: 1, Total: 1},
	}

	if sum := tallies.Sum(); sum != (scoring.Tally{Correct: 4, Total: 5}) {
		t.Errorf("Sum() = %+v", sum)
	}

	cats := tallies.Categories()
	if len(cats) != 2 || cats[0] != category.Reading || cats[1] != category.Math {
		t.Errorf("Categories() = %v", cats)
	}
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		tally  scoring.Tally
		want   int
		wantOK bool
	}{
		{scoring.Tally{}, 0, false},
		{scoring.Tally{Correct: 4, Total: 5}, 80, true},
		{scoring.Tally{Correct: 2, Total: 3}, 67, true},
		{scoring.Tally{Correct: 1, Total: 8}, 13, true}, // 12.5 rounds up
	}

	for _, tt := range tests {
		got, ok := tt.tally.Accuracy()
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("%+v.Accuracy() = %d, %v; want %d, %v", tt.tally, got, ok, tt.want, tt.wantOK)
		}
	}
}
