package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the service layer
var (
	ErrTemplateNotFound   = errors.New("template not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrUserNotFound       = errors.New("user not found")

	// ErrTemplateInUse blocks template mutation while assignments run on it
	ErrTemplateInUse = errors.New("template is used by active assignments")

	// ErrAssignmentNotActive is returned when an operation needs an
	// in-progress assignment and the row is not in that state
	ErrAssignmentNotActive = errors.New("assignment is not in progress")

	// ErrAssignmentTerminal rejects transitions out of a terminal state
	ErrAssignmentTerminal = errors.New("assignment is already in a terminal state")

	// ErrAssignmentExpired is returned by the lazy expiration guard
	ErrAssignmentExpired = errors.New("assignment has expired")

	// ErrQuestionNotCurrent is returned when a submission targets a question
	// other than the one at the assignment's cursor
	ErrQuestionNotCurrent = errors.New("question is not the current one")

	// ErrEmptySelection rejects closed-question submissions with no option chosen
	ErrEmptySelection = errors.New("no option selected")

	// ErrNotArchivable rejects saving assignments that are still running
	ErrNotArchivable = errors.New("only finished or expired assignments can be saved")

	// ErrNoDeliveryTarget is returned when the assignee has no linked chat
	ErrNoDeliveryTarget = errors.New("assignee has no linked chat")
)

// PermissionError describes a rejected operation on a resource
type PermissionError struct {
	UserID   string
	Resource string
	ID       uint
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ID, e.Reason)
}

func NewPermissionError(userID string, id uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		Resource: resource,
		ID:       id,
		Action:   action,
		Reason:   reason,
	}
}

// IsPermissionError reports whether err is a permission rejection
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// ValidationError wraps field-level validation failures with context
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string, err error) *ValidationError {
	return &ValidationError{Message: message, Err: err}
}

// IsValidationError reports whether err stems from request validation
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
