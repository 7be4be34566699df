package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AssignmentStatus string

const (
	StatusAssigned   AssignmentStatus = "assigned"
	StatusInProgress AssignmentStatus = "in_progress"
	StatusFinished   AssignmentStatus = "finished"
	StatusExpired    AssignmentStatus = "expired"
	StatusCanceled   AssignmentStatus = "canceled"
)

// IsTerminal reports whether no further transitions are allowed from the status.
func (s AssignmentStatus) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusExpired, StatusCanceled:
		return true
	}
	return false
}

type Assignment struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	TemplateID uint `json:"template_id" gorm:"not null;index"`

	AssigneeID string `json:"assignee_id" gorm:"not null;index;size:255"`
	AssignerID string `json:"assigner_id" gorm:"not null;index;size:255"`

	Status AssignmentStatus `json:"status" gorm:"not null;default:'assigned';index"`

	// CurrentPosition is 1-based; N+1 means all questions are answered.
	CurrentPosition int `json:"current_position" gorm:"not null;default:1"`

	// TimeLimit is the per-assignment budget in seconds, counted from StartedAt.
	TimeLimit *int       `json:"time_limit,omitempty"`
	Deadline  *time.Time `json:"deadline,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Saved marks completed assignments the assigner pinned for later review.
	Saved bool `json:"saved" gorm:"not null;default:false;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Template Template `json:"template" gorm:"foreignKey:TemplateID"`
	Answers  []Answer `json:"answers" gorm:"foreignKey:AssignmentID"`

	// Computed fields (not stored)
	Score *Score `json:"score,omitempty" gorm:"-"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// ExpiresAt returns the effective expiry instant, or nil when unlimited.
// The earlier of deadline and started-at-plus-budget wins when both are set.
func (a *Assignment) ExpiresAt() *time.Time {
	var budgetEnd *time.Time
	if a.TimeLimit != nil && a.StartedAt != nil {
		t := a.StartedAt.Add(time.Duration(*a.TimeLimit) * time.Second)
		budgetEnd = &t
	}
	if a.Deadline == nil {
		return budgetEnd
	}
	if budgetEnd == nil || a.Deadline.Before(*budgetEnd) {
		return a.Deadline
	}
	return budgetEnd
}

// IsExpired reports whether the assignment is past its expiry at the given instant.
func (a *Assignment) IsExpired(now time.Time) bool {
	if a.Status.IsTerminal() {
		return a.Status == StatusExpired
	}
	expiresAt := a.ExpiresAt()
	return expiresAt != nil && now.After(*expiresAt)
}

type Answer struct {
	ID           uint `json:"id" gorm:"primaryKey"`
	AssignmentID uint `json:"assignment_id" gorm:"not null;uniqueIndex:idx_assignment_question"`
	QuestionID   uint `json:"question_id" gorm:"not null;uniqueIndex:idx_assignment_question"`

	// Payload holds the submitted response: {"text": ...} for open questions,
	// {"selected": [...]} for closed ones.
	Payload datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`

	// IsCorrect is nil for open questions, which have no defined correctness.
	IsCorrect *bool `json:"is_correct,omitempty"`

	AnsweredAt time.Time `json:"answered_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Question Question `json:"question" gorm:"foreignKey:QuestionID"`
}

func (Answer) TableName() string {
	return "answers"
}

// AnswerPayload is the decoded form of Answer.Payload.
type AnswerPayload struct {
	Text     string `json:"text,omitempty"`
	Selected []int  `json:"selected,omitempty"`
}

// Score summarizes graded answers for a finished or expired assignment.
// Open questions are excluded from both counters.
type Score struct {
	Correct  int     `json:"correct"`
	Gradable int     `json:"gradable"`
	Percent  float64 `json:"percent"`
}
