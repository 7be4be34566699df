package validator

import (
	"time"

	"github.com/quizdesk/assignment-service/internal/models"
)

// TemplateCreateRequest represents the request structure for creating quiz templates
type TemplateCreateRequest struct {
	Title     string         `json:"title" validate:"required,assignment_title"`
	Questions []QuestionSpec `json:"questions" validate:"required,min=1,max=100,dive"`
}

// TemplateUpdateRequest represents the request structure for updating quiz templates
type TemplateUpdateRequest struct {
	Title     *string        `json:"title" validate:"omitempty,assignment_title"`
	Questions []QuestionSpec `json:"questions" validate:"omitempty,min=1,max=100,dive"`
}

// QuestionSpec describes one question inside a template request.
// Options and correct indices are meaningful for closed kinds only.
type QuestionSpec struct {
	Kind           models.QuestionKind `json:"kind" validate:"required,question_kind"`
	Prompt         string              `json:"prompt" validate:"required,min=1,max=2000"`
	Options        []string            `json:"options" validate:"omitempty,max=10,dive,min=1,max=500"`
	CorrectIndices []int               `json:"correct_indices"`
}

// AssignmentCreateRequest represents the request structure for assigning a quiz
type AssignmentCreateRequest struct {
	TemplateID uint       `json:"template_id" validate:"required"`
	AssigneeID string     `json:"assignee_id" validate:"required"`
	TimeLimit  *int       `json:"time_limit" validate:"omitempty,min=30,max=86400"` // seconds
	Deadline   *time.Time `json:"deadline" validate:"omitempty,future_date"`
}

// SubmitAnswerRequest represents a response to the assignment's current question
type SubmitAnswerRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Text       string `json:"text" validate:"omitempty,max=4000"`
	Selected   []int  `json:"selected" validate:"omitempty,max=10"`
}
