package services

import (
	"context"
	"time"

	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
	"github.com/quizdesk/assignment-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateTemplateRequest = validator.TemplateCreateRequest
type UpdateTemplateRequest = validator.TemplateUpdateRequest
type QuestionSpec = validator.QuestionSpec
type CreateAssignmentRequest = validator.AssignmentCreateRequest
type SubmitAnswerRequest = validator.SubmitAnswerRequest

type TemplateResponse struct {
	*models.Template
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type TemplateListResponse struct {
	Templates []*TemplateResponse `json:"templates"`
	Total     int64               `json:"total"`
	Page      int                 `json:"page"`
	Size      int                 `json:"size"`
}

type AssignmentResponse struct {
	*models.Assignment
	QuestionCount int  `json:"question_count"`
	CanCancel     bool `json:"can_cancel"`
	CanSave       bool `json:"can_save"`
}

type AssignmentListResponse struct {
	Assignments []*AssignmentResponse `json:"assignments"`
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	Size        int                   `json:"size"`
}

// QuestionView is the assignee-facing projection of a question: prompt and
// options only, never the correct set.
type QuestionView struct {
	QuestionID uint                `json:"question_id"`
	Position   int                 `json:"position"`
	Total      int                 `json:"total"`
	Kind       models.QuestionKind `json:"kind"`
	Prompt     string              `json:"prompt"`
	Options    []string            `json:"options,omitempty"`
	Selected   []int               `json:"selected,omitempty"`
}

// SubmitResult describes the outcome of one answer submission
type SubmitResult struct {
	Accepted bool          `json:"accepted"`
	Correct  *bool         `json:"correct,omitempty"` // nil for open questions
	Finished bool          `json:"finished"`
	Next     *QuestionView `json:"next,omitempty"`
	Score    *models.Score `json:"score,omitempty"`
}

// StartResult is the outcome of starting an assignment. AlreadyStarted marks
// the benign repeat-start case.
type StartResult struct {
	Assignment     *AssignmentResponse `json:"assignment"`
	AlreadyStarted bool                `json:"already_started"`
	// AlreadyFinished reports a start tap on a run that already reached a
	// terminal state; the duplicate tap is absorbed, not rejected.
	AlreadyFinished bool          `json:"already_finished,omitempty"`
	First           *QuestionView `json:"first,omitempty"`
}

// ToggleResult reflects the selection set after a toggle on a multi-select
type ToggleResult struct {
	Question *QuestionView `json:"question"`
	Selected []int         `json:"selected"`
}

// ===== REPORT DTOs =====

type AnswerReportRow struct {
	Position  int                 `json:"position"`
	Kind      models.QuestionKind `json:"kind"`
	Prompt    string              `json:"prompt"`
	Given     string              `json:"given"`
	Expected  string              `json:"expected,omitempty"`
	IsCorrect *bool               `json:"is_correct,omitempty"`
}

type AssignmentReport struct {
	AssignmentID uint                    `json:"assignment_id"`
	Template     string                  `json:"template"`
	AssigneeID   string                  `json:"assignee_id"`
	AssigneeName string                  `json:"assignee_name,omitempty"`
	Status       models.AssignmentStatus `json:"status"`
	StartedAt    *time.Time              `json:"started_at,omitempty"`
	FinishedAt   *time.Time              `json:"finished_at,omitempty"`
	Score        models.Score            `json:"score"`
	Answers      []AnswerReportRow       `json:"answers"`
}

type RecentReportsResponse struct {
	Reports []*AssignmentReport `json:"reports"`
	Total   int                 `json:"total"`
}

// ===== SERVICE INTERFACES =====

type TemplateService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateTemplateRequest, creatorID string) (*TemplateResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*TemplateResponse, error)
	GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*TemplateResponse, error)
	Update(ctx context.Context, id uint, req *UpdateTemplateRequest, userID string) (*TemplateResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// List and search operations
	List(ctx context.Context, filters repositories.TemplateFilters, userID string) (*TemplateListResponse, error)
	GetByCreator(ctx context.Context, creatorID string, filters repositories.TemplateFilters) (*TemplateListResponse, error)
	Search(ctx context.Context, query string, filters repositories.TemplateFilters, userID string) (*TemplateListResponse, error)

	// Statistics
	GetStats(ctx context.Context, id uint, userID string) (*repositories.TemplateStats, error)

	// Permission checks
	CanEdit(ctx context.Context, templateID uint, userID string) (bool, error)
	CanDelete(ctx context.Context, templateID uint, userID string) (bool, error)
}

type AssignmentService interface {
	// Lifecycle operations
	Assign(ctx context.Context, req *CreateAssignmentRequest, assignerID string) (*AssignmentResponse, error)
	Start(ctx context.Context, assignmentID uint, assigneeID string) (*StartResult, error)
	SubmitAnswer(ctx context.Context, assignmentID uint, req *SubmitAnswerRequest, assigneeID string) (*SubmitResult, error)
	ToggleSelection(ctx context.Context, assignmentID, questionID uint, optionIndex int, assigneeID string) (*ToggleResult, error)
	Cancel(ctx context.Context, assignmentID uint, assignerID string) error
	Save(ctx context.Context, assignmentID uint, assignerID string) error

	// Read operations
	GetByID(ctx context.Context, id uint, userID string) (*AssignmentResponse, error)
	CurrentQuestion(ctx context.Context, assignmentID uint, assigneeID string) (*QuestionView, error)
	GetActiveForAssignee(ctx context.Context, assigneeID string) ([]*AssignmentResponse, error)

	// List operations
	List(ctx context.Context, filters repositories.AssignmentFilters, userID string) (*AssignmentListResponse, error)
	GetByAssigner(ctx context.Context, assignerID string, filters repositories.AssignmentFilters) (*AssignmentListResponse, error)

	// Statistics
	GetAssigneeStats(ctx context.Context, assigneeID string, userID string) (*repositories.AssigneeStats, error)
}

type GradingService interface {
	// Grade evaluates a submitted payload against a question's answer key.
	// Open questions come back with a nil correctness.
	Grade(question *models.Question, payload models.AnswerPayload) (*bool, error)

	// Score aggregates graded answers into a result. The gradable count comes
	// from the template's closed questions, so unanswered ones still weigh in.
	Score(questions []*models.Question, answers []*models.Answer) models.Score
}

type ReportService interface {
	// BuildReport assembles the per-question breakdown of one assignment
	BuildReport(ctx context.Context, assignmentID uint, userID string) (*AssignmentReport, error)

	// ListRecent returns reports for the assigner's recently finished or
	// saved assignments
	ListRecent(ctx context.Context, assignerID string, since time.Time, limit int) (*RecentReportsResponse, error)

	// ExportXLSX renders the recent reports as a spreadsheet
	ExportXLSX(ctx context.Context, assignerID string, since time.Time) ([]byte, error)
}

type DeliveryService interface {
	// NotifyAssigned delivers the assignment invitation to the assignee's chat
	NotifyAssigned(ctx context.Context, assignment *models.Assignment) error

	// DeliverQuestion pushes the given question view to the assignee's chat
	DeliverQuestion(ctx context.Context, assignment *models.Assignment, view *QuestionView) error

	// NotifyResult delivers the final score to the assignee's chat
	NotifyResult(ctx context.Context, assignment *models.Assignment, score models.Score) error

	// NotifyExpired tells the assignee their run hit its deadline
	NotifyExpired(ctx context.Context, assignment *models.Assignment) error
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Template() TemplateService
	Assignment() AssignmentService
	Grading() GradingService
	Report() ReportService
	Delivery() DeliveryService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
