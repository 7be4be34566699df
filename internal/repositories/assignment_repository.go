package repositories

import (
	"context"
	"time"

	"github.com/quizdesk/assignment-service/internal/models"
	"gorm.io/gorm"
)

// AssignmentRepository interface for assignment lifecycle operations
type AssignmentRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) // Include template, questions, answers
	Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters AssignmentFilters) ([]*models.Assignment, int64, error)
	GetByAssignee(ctx context.Context, tx *gorm.DB, assigneeID string, filters AssignmentFilters) ([]*models.Assignment, int64, error)
	GetByAssigner(ctx context.Context, tx *gorm.DB, assignerID string, filters AssignmentFilters) ([]*models.Assignment, int64, error)
	GetActiveByAssignee(ctx context.Context, tx *gorm.DB, assigneeID string) ([]*models.Assignment, error)
	GetRecentTerminal(ctx context.Context, tx *gorm.DB, assignerID string, since time.Time, limit int) ([]*models.Assignment, error)

	// State transitions
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.AssignmentStatus) error
	MarkStarted(ctx context.Context, tx *gorm.DB, id uint, startedAt time.Time) error
	MarkFinished(ctx context.Context, tx *gorm.DB, id uint, status models.AssignmentStatus, finishedAt time.Time) error
	SetSaved(ctx context.Context, tx *gorm.DB, id uint, saved bool) error

	// AdvancePosition moves the cursor from expectedPosition to
	// expectedPosition+1 only if the row still holds expectedPosition and the
	// assignment is in progress. Returns false when the guard did not match.
	AdvancePosition(ctx context.Context, tx *gorm.DB, id uint, expectedPosition int) (bool, error)

	// Statistics
	GetAssigneeStats(ctx context.Context, tx *gorm.DB, assigneeID string) (*AssigneeStats, error)
	CountActiveByTemplate(ctx context.Context, tx *gorm.DB, templateID uint) (int64, error)
}

// AnswerRepository interface for submitted answer operations
type AnswerRepository interface {
	// Upsert replaces any previous answer for the same (assignment, question) pair.
	Upsert(ctx context.Context, tx *gorm.DB, answer *models.Answer) error

	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error)
	GetByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.Answer, error)
	GetByAssignmentAndQuestion(ctx context.Context, tx *gorm.DB, assignmentID, questionID uint) (*models.Answer, error)
	CountByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) (int64, error)

	// DeleteByAssignment purges all answers of a canceled assignment.
	DeleteByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) error
}
