package services

import (
	"io"
	"log/slog"
	"testing"

	"github.com/quizdesk/assignment-service/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustContent(t *testing.T) func(content []byte, err error) []byte {
	return func(content []byte, err error) []byte {
		t.Helper()
		if err != nil {
			t.Fatalf("failed to build question content: %v", err)
		}
		return content
	}
}

func singleSelectQuestion(t *testing.T, options []string, correct int) *models.Question {
	t.Helper()
	return &models.Question{
		Kind:    models.SingleSelect,
		Prompt:  "pick one",
		Content: mustContent(t)(models.NewSingleSelectContent(options, correct)),
	}
}

func multiSelectQuestion(t *testing.T, options []string, correct []int) *models.Question {
	t.Helper()
	return &models.Question{
		Kind:    models.MultiSelect,
		Prompt:  "pick all that apply",
		Content: mustContent(t)(models.NewMultiSelectContent(options, correct)),
	}
}

func TestGradingService_Grade_Open(t *testing.T) {
	g := NewGradingService(testLogger())
	question := &models.Question{Kind: models.Open, Prompt: "explain"}

	result, err := g.Grade(question, models.AnswerPayload{Text: "because"})
	if err != nil {
		t.Fatalf("Grade() error = %v", err)
	}
	if result != nil {
		t.Errorf("open questions must not be graded, got %v", *result)
	}

	if _, err := g.Grade(question, models.AnswerPayload{Text: "   "}); err == nil {
		t.Error("expected error for blank open answer")
	}
}

func TestGradingService_Grade_SingleSelect(t *testing.T) {
	g := NewGradingService(testLogger())
	question := singleSelectQuestion(t, []string{"a", "b", "c"}, 1)

	tests := []struct {
		name     string
		selected []int
		want     bool
		wantErr  bool
	}{
		{name: "correct option", selected: []int{1}, want: true},
		{name: "wrong option", selected: []int{0}, want: false},
		{name: "no selection", selected: nil, wantErr: true},
		{name: "multiple selections", selected: []int{0, 1}, wantErr: true},
		{name: "out of range", selected: []int{5}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := g.Grade(question, models.AnswerPayload{Selected: tt.selected})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}
			if result == nil || *result != tt.want {
				t.Errorf("Grade() = %v, want %v", result, tt.want)
			}
		})
	}
}

func TestGradingService_Grade_MultiSelect(t *testing.T) {
	g := NewGradingService(testLogger())
	question := multiSelectQuestion(t, []string{"a", "b", "c", "d"}, []int{0, 2})

	tests := []struct {
		name     string
		selected []int
		want     bool
		wantErr  bool
	}{
		{name: "exact set", selected: []int{0, 2}, want: true},
		{name: "order irrelevant", selected: []int{2, 0}, want: true},
		{name: "subset is wrong", selected: []int{0}, want: false},
		{name: "superset is wrong", selected: []int{0, 1, 2}, want: false},
		{name: "disjoint is wrong", selected: []int{1, 3}, want: false},
		{name: "empty selection", selected: nil, wantErr: true},
		{name: "out of range", selected: []int{0, 9}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := g.Grade(question, models.AnswerPayload{Selected: tt.selected})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}
			if result == nil || *result != tt.want {
				t.Errorf("Grade() = %v, want %v", result, tt.want)
			}
		})
	}
}

func TestGradingService_Score(t *testing.T) {
	g := NewGradingService(testLogger())

	boolPtr := func(v bool) *bool { return &v }

	questions := []*models.Question{
		singleSelectQuestion(t, []string{"a", "b"}, 0),
		singleSelectQuestion(t, []string{"a", "b"}, 1),
		multiSelectQuestion(t, []string{"a", "b", "c"}, []int{0, 1}),
		{Kind: models.Open, Prompt: "explain"},
	}
	answers := []*models.Answer{
		{IsCorrect: boolPtr(true)},
		{IsCorrect: boolPtr(false)},
		{IsCorrect: boolPtr(true)},
		{IsCorrect: nil}, // open question, excluded
	}

	score := g.Score(questions, answers)
	if score.Gradable != 3 {
		t.Errorf("Gradable = %d, want 3", score.Gradable)
	}
	if score.Correct != 2 {
		t.Errorf("Correct = %d, want 2", score.Correct)
	}
	if score.Percent < 66.6 || score.Percent > 66.7 {
		t.Errorf("Percent = %.2f, want ~66.67", score.Percent)
	}
}

// An unanswered closed question still counts against the total, so a run
// that ran out of time does not report an inflated percent.
func TestGradingService_Score_UnansweredCountAgainstTotal(t *testing.T) {
	g := NewGradingService(testLogger())

	boolPtr := func(v bool) *bool { return &v }

	questions := []*models.Question{
		singleSelectQuestion(t, []string{"a", "b"}, 0),
		singleSelectQuestion(t, []string{"a", "b"}, 1),
		multiSelectQuestion(t, []string{"a", "b", "c"}, []int{0, 1}),
		singleSelectQuestion(t, []string{"a", "b"}, 0),
	}
	// Only one answered before the deadline
	answers := []*models.Answer{{IsCorrect: boolPtr(true)}}

	score := g.Score(questions, answers)
	if score.Gradable != 4 {
		t.Errorf("Gradable = %d, want 4", score.Gradable)
	}
	if score.Correct != 1 {
		t.Errorf("Correct = %d, want 1", score.Correct)
	}
	if score.Percent != 25.0 {
		t.Errorf("Percent = %.2f, want 25", score.Percent)
	}
}

func TestGradingService_Score_AllOpen(t *testing.T) {
	g := NewGradingService(testLogger())

	questions := []*models.Question{
		{Kind: models.Open, Prompt: "explain"},
		{Kind: models.Open, Prompt: "elaborate"},
	}
	score := g.Score(questions, []*models.Answer{{IsCorrect: nil}, {IsCorrect: nil}})
	if score.Gradable != 0 || score.Correct != 0 || score.Percent != 0 {
		t.Errorf("Score() = %+v, want zero score", score)
	}
}
