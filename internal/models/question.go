package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type QuestionKind string

const (
	Open         QuestionKind = "open"
	SingleSelect QuestionKind = "single_select"
	MultiSelect  QuestionKind = "multi_select"
)

// IsClosed reports whether the kind carries a defined correct-answer set.
func (k QuestionKind) IsClosed() bool {
	return k == SingleSelect || k == MultiSelect
}

type Question struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	TemplateID uint         `json:"template_id" gorm:"not null;index;uniqueIndex:idx_template_position"`
	Position   int          `json:"position" gorm:"not null;uniqueIndex:idx_template_position"` // 1-based, contiguous per template
	Kind       QuestionKind `json:"kind" gorm:"not null;index"`
	Prompt     string       `json:"prompt" gorm:"type:text;not null" validate:"required"`

	// Kind-specific payload stored as JSONB; empty for open questions.
	Content datatypes.JSON `json:"content" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Template Template `json:"-" gorm:"foreignKey:TemplateID"`
}

func (Question) TableName() string {
	return "quiz_questions"
}

// ===== QUESTION CONTENT SCHEMAS =====

type SingleSelectContent struct {
	Options      []string `json:"options" validate:"min=2,max=10"`
	CorrectIndex int      `json:"correct_index"`
}

type MultiSelectContent struct {
	Options        []string `json:"options" validate:"min=2,max=10"`
	CorrectIndices []int    `json:"correct_indices" validate:"min=1"`
}

// NewSingleSelectContent builds and validates a single-select payload at
// construction time, so malformed correct sets never reach storage.
func NewSingleSelectContent(options []string, correctIndex int) (datatypes.JSON, error) {
	if len(options) < 2 {
		return nil, fmt.Errorf("single-select question requires at least 2 options, got %d", len(options))
	}
	if correctIndex < 0 || correctIndex >= len(options) {
		return nil, fmt.Errorf("correct index %d out of bounds for %d options", correctIndex, len(options))
	}
	return json.Marshal(SingleSelectContent{Options: options, CorrectIndex: correctIndex})
}

// NewMultiSelectContent builds and validates a multi-select payload.
func NewMultiSelectContent(options []string, correctIndices []int) (datatypes.JSON, error) {
	if len(options) < 2 {
		return nil, fmt.Errorf("multi-select question requires at least 2 options, got %d", len(options))
	}
	if len(correctIndices) == 0 {
		return nil, fmt.Errorf("multi-select question requires at least one correct index")
	}
	seen := make(map[int]bool, len(correctIndices))
	for _, idx := range correctIndices {
		if idx < 0 || idx >= len(options) {
			return nil, fmt.Errorf("correct index %d out of bounds for %d options", idx, len(options))
		}
		if seen[idx] {
			return nil, fmt.Errorf("duplicate correct index %d", idx)
		}
		seen[idx] = true
	}
	return json.Marshal(MultiSelectContent{Options: options, CorrectIndices: correctIndices})
}

// SingleSelectContent decodes the payload of a single-select question.
func (q *Question) SingleSelectContent() (*SingleSelectContent, error) {
	if q.Kind != SingleSelect {
		return nil, fmt.Errorf("question %d is %s, not single-select", q.ID, q.Kind)
	}
	var content SingleSelectContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal single-select content: %w", err)
	}
	return &content, nil
}

// MultiSelectContent decodes the payload of a multi-select question.
func (q *Question) MultiSelectContent() (*MultiSelectContent, error) {
	if q.Kind != MultiSelect {
		return nil, fmt.Errorf("question %d is %s, not multi-select", q.ID, q.Kind)
	}
	var content MultiSelectContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal multi-select content: %w", err)
	}
	return &content, nil
}

// OptionList returns the option strings for closed questions, nil for open ones.
func (q *Question) OptionList() ([]string, error) {
	switch q.Kind {
	case SingleSelect:
		content, err := q.SingleSelectContent()
		if err != nil {
			return nil, err
		}
		return content.Options, nil
	case MultiSelect:
		content, err := q.MultiSelectContent()
		if err != nil {
			return nil, err
		}
		return content.Options, nil
	default:
		return nil, nil
	}
}
