package validator

import (
	"strings"
	"testing"
	"time"

	"github.com/quizdesk/assignment-service/internal/models"
)

func validTemplateRequest() *TemplateCreateRequest {
	return &TemplateCreateRequest{
		Title: "Security basics",
		Questions: []QuestionSpec{
			{
				Kind:           models.SingleSelect,
				Prompt:         "Pick the strongest password",
				Options:        []string{"123456", "correct horse battery staple"},
				CorrectIndices: []int{1},
			},
			{
				Kind:   models.Open,
				Prompt: "Describe phishing in one sentence",
			},
		},
	}
}

func fieldsOf(errs ValidationErrors) []string {
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	return fields
}

func hasFieldError(errs ValidationErrors, fragment string) bool {
	for _, e := range errs {
		if strings.Contains(e.Field, fragment) {
			return true
		}
	}
	return false
}

func TestValidateTemplateCreate_Valid(t *testing.T) {
	bv := NewBusinessValidator()

	if errs := bv.ValidateTemplateCreate(validTemplateRequest()); len(errs) > 0 {
		t.Errorf("unexpected validation errors: %v", fieldsOf(errs))
	}
}

func TestValidateTemplateCreate_EmptyTitle(t *testing.T) {
	bv := NewBusinessValidator()

	req := validTemplateRequest()
	req.Title = "   "

	errs := bv.ValidateTemplateCreate(req)
	if !hasFieldError(errs, "title") {
		t.Errorf("expected title error, got %v", fieldsOf(errs))
	}
}

func TestValidateTemplateCreate_NoQuestions(t *testing.T) {
	bv := NewBusinessValidator()

	req := validTemplateRequest()
	req.Questions = nil

	errs := bv.ValidateTemplateCreate(req)
	if len(errs) == 0 {
		t.Error("expected error for empty question list")
	}
}

func TestValidateQuestionSpecs(t *testing.T) {
	bv := NewBusinessValidator()

	tests := []struct {
		name      string
		spec      QuestionSpec
		wantField string
	}{
		{
			name: "open question with options",
			spec: QuestionSpec{
				Kind:    models.Open,
				Prompt:  "Why?",
				Options: []string{"a", "b"},
			},
			wantField: "options",
		},
		{
			name: "single option only",
			spec: QuestionSpec{
				Kind:           models.SingleSelect,
				Prompt:         "Pick one",
				Options:        []string{"only"},
				CorrectIndices: []int{0},
			},
			wantField: "options",
		},
		{
			name: "blank option text",
			spec: QuestionSpec{
				Kind:           models.SingleSelect,
				Prompt:         "Pick one",
				Options:        []string{"a", "  "},
				CorrectIndices: []int{0},
			},
			wantField: "options[1]",
		},
		{
			name: "no correct index",
			spec: QuestionSpec{
				Kind:    models.MultiSelect,
				Prompt:  "Pick some",
				Options: []string{"a", "b"},
			},
			wantField: "correct_indices",
		},
		{
			name: "single select with two correct indices",
			spec: QuestionSpec{
				Kind:           models.SingleSelect,
				Prompt:         "Pick one",
				Options:        []string{"a", "b"},
				CorrectIndices: []int{0, 1},
			},
			wantField: "correct_indices",
		},
		{
			name: "correct index out of bounds",
			spec: QuestionSpec{
				Kind:           models.MultiSelect,
				Prompt:         "Pick some",
				Options:        []string{"a", "b"},
				CorrectIndices: []int{0, 5},
			},
			wantField: "correct_indices",
		},
		{
			name: "duplicated correct index",
			spec: QuestionSpec{
				Kind:           models.MultiSelect,
				Prompt:         "Pick some",
				Options:        []string{"a", "b"},
				CorrectIndices: []int{1, 1},
			},
			wantField: "correct_indices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateQuestionSpecs([]QuestionSpec{tt.spec})
			if !hasFieldError(errs, tt.wantField) {
				t.Errorf("expected error on %q, got %v", tt.wantField, fieldsOf(errs))
			}
		})
	}
}

func TestValidateAssignmentCreate(t *testing.T) {
	bv := NewBusinessValidator()

	future := time.Now().Add(24 * time.Hour)
	req := &AssignmentCreateRequest{
		TemplateID: 1,
		AssigneeID: "user-1",
		Deadline:   &future,
	}
	if errs := bv.ValidateAssignmentCreate(req); len(errs) > 0 {
		t.Errorf("unexpected validation errors: %v", fieldsOf(errs))
	}

	past := time.Now().Add(-time.Hour)
	req.Deadline = &past
	if errs := bv.ValidateAssignmentCreate(req); !hasFieldError(errs, "deadline") {
		t.Errorf("expected deadline error, got %v", fieldsOf(errs))
	}
}

func TestValidateAssignmentCreate_TimeLimitBounds(t *testing.T) {
	bv := NewBusinessValidator()

	tooShort := 10
	req := &AssignmentCreateRequest{
		TemplateID: 1,
		AssigneeID: "user-1",
		TimeLimit:  &tooShort,
	}
	if errs := bv.ValidateAssignmentCreate(req); !hasFieldError(errs, "time_limit") {
		t.Errorf("expected time_limit error, got %v", fieldsOf(errs))
	}
}
