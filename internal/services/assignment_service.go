package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/quizdesk/assignment-service/internal/events"
	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
	"github.com/quizdesk/assignment-service/internal/validator"
	"gorm.io/gorm"
)

type assignmentService struct {
	repo       repositories.Repository
	db         *gorm.DB
	grading    GradingService
	delivery   DeliveryService
	publisher  events.EventPublisher
	selections *SelectionStore
	logger     *slog.Logger
	validator  *validator.Validator

	// now is swappable for expiry tests
	now func() time.Time
}

func NewAssignmentService(
	repo repositories.Repository,
	db *gorm.DB,
	grading GradingService,
	delivery DeliveryService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
) AssignmentService {
	return &assignmentService{
		repo:       repo,
		db:         db,
		grading:    grading,
		delivery:   delivery,
		publisher:  publisher,
		selections: NewSelectionStore(),
		logger:     logger,
		validator:  validator,
		now:        time.Now,
	}
}

// ===== LIFECYCLE OPERATIONS =====

func (s *assignmentService) Assign(ctx context.Context, req *CreateAssignmentRequest, assignerID string) (*AssignmentResponse, error) {
	s.logger.Info("Assigning quiz", "template_id", req.TemplateID, "assignee_id", req.AssigneeID, "assigner_id", assignerID)

	if errors := s.validator.GetBusinessValidator().ValidateAssignmentCreate(req); len(errors) > 0 {
		return nil, errors
	}

	canAssign, err := s.canAssign(ctx, assignerID)
	if err != nil {
		return nil, fmt.Errorf("permission check failed: %w", err)
	}
	if !canAssign {
		return nil, NewPermissionError(assignerID, req.TemplateID, "assignment", "create", "insufficient role permissions")
	}

	template, err := s.repo.Template().GetByID(ctx, nil, req.TemplateID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	questionCount, err := s.repo.Question().CountByTemplate(ctx, nil, template.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	if questionCount == 0 {
		return nil, NewValidationError("template has no questions", nil)
	}

	exists, err := s.repo.User().ExistsByID(ctx, req.AssigneeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check assignee: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	assignment := &models.Assignment{
		TemplateID:      template.ID,
		AssigneeID:      req.AssigneeID,
		AssignerID:      assignerID,
		Status:          models.StatusAssigned,
		CurrentPosition: 1,
		TimeLimit:       req.TimeLimit,
		Deadline:        req.Deadline,
	}
	if err := s.repo.Assignment().Create(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	assignment.Template = *template

	s.publishLifecycleEvent(ctx, events.EventAssignmentAssigned, assignment)

	// Delivery is best effort; a missing or unreachable chat never rolls the
	// assignment back.
	if err := s.delivery.NotifyAssigned(ctx, assignment); err != nil {
		s.logger.Warn("Assignment delivery failed",
			"assignment_id", assignment.ID, "assignee_id", assignment.AssigneeID, "error", err)
		s.publishEvent(ctx, events.EventDeliveryFailed, events.DeliveryFailedData{
			AssignmentID: assignment.ID,
			AssigneeID:   assignment.AssigneeID,
			AssignerID:   assignment.AssignerID,
			Reason:       err.Error(),
		})
	}

	s.logger.Info("Assignment created successfully", "assignment_id", assignment.ID)

	return s.buildAssignmentResponse(ctx, assignment), nil
}

func (s *assignmentService) Start(ctx context.Context, assignmentID uint, assigneeID string) (*StartResult, error) {
	s.logger.Info("Starting assignment", "assignment_id", assignmentID, "assignee_id", assigneeID)

	assignment, err := s.getOwnedAssignment(ctx, assignmentID, assigneeID, "start")
	if err != nil {
		return nil, err
	}

	if err := s.expireIfPastDue(ctx, assignment); err != nil {
		return nil, err
	}

	// Repeated starts resume at the current question instead of failing
	if assignment.Status == models.StatusInProgress {
		view, err := s.questionViewAt(ctx, assignment, assignment.CurrentPosition)
		if err != nil {
			return nil, err
		}
		return &StartResult{
			Assignment:     s.buildAssignmentResponse(ctx, assignment),
			AlreadyStarted: true,
			First:          view,
		}, nil
	}

	// A start tap after the run ended is harmless; report the state instead
	// of erroring so stale clients settle down
	if assignment.Status.IsTerminal() {
		return &StartResult{
			Assignment:      s.buildAssignmentResponse(ctx, assignment),
			AlreadyFinished: true,
		}, nil
	}

	startedAt := s.now()
	if err := s.repo.Assignment().MarkStarted(ctx, nil, assignment.ID, startedAt); err != nil {
		// A concurrent start already won; re-read and resume
		if err == repositories.ErrOptimisticLock {
			return s.Start(ctx, assignmentID, assigneeID)
		}
		return nil, fmt.Errorf("failed to start assignment: %w", err)
	}
	assignment.Status = models.StatusInProgress
	assignment.StartedAt = &startedAt

	s.publishLifecycleEvent(ctx, events.EventAssignmentStarted, assignment)

	view, err := s.questionViewAt(ctx, assignment, 1)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Assignment started", "assignment_id", assignment.ID)

	return &StartResult{
		Assignment: s.buildAssignmentResponse(ctx, assignment),
		First:      view,
	}, nil
}

func (s *assignmentService) SubmitAnswer(ctx context.Context, assignmentID uint, req *SubmitAnswerRequest, assigneeID string) (*SubmitResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assignment, err := s.getOwnedAssignment(ctx, assignmentID, assigneeID, "answer")
	if err != nil {
		return nil, err
	}

	if err := s.expireIfPastDue(ctx, assignment); err != nil {
		return nil, err
	}
	if assignment.Status != models.StatusInProgress {
		return nil, ErrAssignmentNotActive
	}

	question, err := s.repo.Question().GetByTemplateAndPosition(ctx, nil, assignment.TemplateID, assignment.CurrentPosition)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get current question: %w", err)
	}

	// Answers are accepted for the current question only
	if question.ID != req.QuestionID {
		return nil, ErrQuestionNotCurrent
	}

	payload := models.AnswerPayload{Text: req.Text, Selected: req.Selected}
	if question.Kind == models.MultiSelect && len(payload.Selected) == 0 {
		// Confirm without an explicit set falls back to the toggled selection
		payload.Selected = s.selections.Get(assignment.ID, question.ID)
	}

	isCorrect, err := s.grading.Grade(question, payload)
	if err != nil {
		return nil, err
	}

	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answer payload: %w", err)
	}

	answeredAt := s.now()
	var advanced bool
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		answer := &models.Answer{
			AssignmentID: assignment.ID,
			QuestionID:   question.ID,
			Payload:      rawPayload,
			IsCorrect:    isCorrect,
			AnsweredAt:   answeredAt,
		}
		if err := txRepo.Answer().Upsert(ctx, nil, answer); err != nil {
			return fmt.Errorf("failed to store answer: %w", err)
		}

		advanced, err = txRepo.Assignment().AdvancePosition(ctx, nil, assignment.ID, assignment.CurrentPosition)
		if err != nil {
			return fmt.Errorf("failed to advance position: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !advanced {
		// A concurrent submission moved the cursor first
		return nil, ErrQuestionNotCurrent
	}

	s.selections.Clear(assignment.ID, question.ID)
	assignment.CurrentPosition++

	questionCount, err := s.repo.Question().CountByTemplate(ctx, nil, assignment.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	result := &SubmitResult{
		Accepted: true,
		Correct:  isCorrect,
	}

	if assignment.CurrentPosition > int(questionCount) {
		score, err := s.finish(ctx, assignment, models.StatusFinished)
		if err != nil {
			return nil, err
		}
		result.Finished = true
		result.Score = score
		return result, nil
	}

	next, err := s.questionViewAt(ctx, assignment, assignment.CurrentPosition)
	if err != nil {
		return nil, err
	}
	result.Next = next

	if err := s.delivery.DeliverQuestion(ctx, assignment, next); err != nil {
		s.logger.Warn("Question delivery failed",
			"assignment_id", assignment.ID, "question_id", next.QuestionID, "error", err)
	}

	return result, nil
}

func (s *assignmentService) ToggleSelection(ctx context.Context, assignmentID, questionID uint, optionIndex int, assigneeID string) (*ToggleResult, error) {
	assignment, err := s.getOwnedAssignment(ctx, assignmentID, assigneeID, "toggle")
	if err != nil {
		return nil, err
	}

	if err := s.expireIfPastDue(ctx, assignment); err != nil {
		return nil, err
	}
	if assignment.Status != models.StatusInProgress {
		return nil, ErrAssignmentNotActive
	}

	question, err := s.repo.Question().GetByTemplateAndPosition(ctx, nil, assignment.TemplateID, assignment.CurrentPosition)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get current question: %w", err)
	}
	if question.ID != questionID {
		return nil, ErrQuestionNotCurrent
	}
	if question.Kind != models.MultiSelect {
		return nil, NewValidationError("only multi-select questions support toggling", nil)
	}

	options, err := question.OptionList()
	if err != nil {
		return nil, fmt.Errorf("failed to decode question content: %w", err)
	}
	if optionIndex < 0 || optionIndex >= len(options) {
		return nil, NewValidationError(fmt.Sprintf("option index %d out of range", optionIndex), nil)
	}

	selected := s.selections.Toggle(assignment.ID, question.ID, optionIndex)

	view, err := s.questionViewAt(ctx, assignment, assignment.CurrentPosition)
	if err != nil {
		return nil, err
	}

	return &ToggleResult{Question: view, Selected: selected}, nil
}

func (s *assignmentService) Cancel(ctx context.Context, assignmentID uint, assignerID string) error {
	s.logger.Info("Canceling assignment", "assignment_id", assignmentID, "assigner_id", assignerID)

	assignment, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if assignment.AssignerID != assignerID {
		return NewPermissionError(assignerID, assignmentID, "assignment", "cancel", "not the assigner")
	}
	// Cancel is valid from any state, so an assigner can discard a completed
	// run under review; only re-canceling is rejected.
	if assignment.Status == models.StatusCanceled {
		return ErrAssignmentTerminal
	}

	// Cancellation leaves no partial responses behind
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Assignment().UpdateStatus(ctx, nil, assignment.ID, models.StatusCanceled); err != nil {
			return fmt.Errorf("failed to cancel assignment: %w", err)
		}
		if err := txRepo.Answer().DeleteByAssignment(ctx, nil, assignment.ID); err != nil {
			return fmt.Errorf("failed to purge answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.selections.ClearAssignment(assignment.ID)
	assignment.Status = models.StatusCanceled
	s.publishLifecycleEvent(ctx, events.EventAssignmentCanceled, assignment)

	s.logger.Info("Assignment canceled", "assignment_id", assignment.ID)
	return nil
}

func (s *assignmentService) Save(ctx context.Context, assignmentID uint, assignerID string) error {
	assignment, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if assignment.AssignerID != assignerID {
		return NewPermissionError(assignerID, assignmentID, "assignment", "save", "not the assigner")
	}

	// Only completed runs are worth pinning
	if assignment.Status != models.StatusFinished && assignment.Status != models.StatusExpired {
		return ErrNotArchivable
	}

	if err := s.repo.Assignment().SetSaved(ctx, nil, assignment.ID, true); err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}

	s.logger.Info("Assignment saved", "assignment_id", assignment.ID, "assigner_id", assignerID)
	return nil
}

// ===== READ OPERATIONS =====

func (s *assignmentService) GetByID(ctx context.Context, id uint, userID string) (*AssignmentResponse, error) {
	assignment, err := s.getAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment.AssigneeID != userID && assignment.AssignerID != userID {
		return nil, NewPermissionError(userID, id, "assignment", "read", "not a participant")
	}

	if err := s.expireIfPastDue(ctx, assignment); err != nil && err != ErrAssignmentExpired {
		return nil, err
	}

	return s.buildAssignmentResponse(ctx, assignment), nil
}

func (s *assignmentService) CurrentQuestion(ctx context.Context, assignmentID uint, assigneeID string) (*QuestionView, error) {
	assignment, err := s.getOwnedAssignment(ctx, assignmentID, assigneeID, "read")
	if err != nil {
		return nil, err
	}

	if err := s.expireIfPastDue(ctx, assignment); err != nil {
		return nil, err
	}
	if assignment.Status != models.StatusInProgress {
		return nil, ErrAssignmentNotActive
	}

	return s.questionViewAt(ctx, assignment, assignment.CurrentPosition)
}

func (s *assignmentService) GetActiveForAssignee(ctx context.Context, assigneeID string) ([]*AssignmentResponse, error) {
	assignments, err := s.repo.Assignment().GetActiveByAssignee(ctx, nil, assigneeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active assignments: %w", err)
	}

	responses := make([]*AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		// Lazily expired rows drop out of the active list
		if err := s.expireIfPastDue(ctx, assignment); err == ErrAssignmentExpired {
			continue
		} else if err != nil {
			return nil, err
		}
		responses = append(responses, s.buildAssignmentResponse(ctx, assignment))
	}
	return responses, nil
}

// ===== LIST OPERATIONS =====

func (s *assignmentService) List(ctx context.Context, filters repositories.AssignmentFilters, userID string) (*AssignmentListResponse, error) {
	assignments, total, err := s.repo.Assignment().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return s.buildAssignmentListResponse(ctx, assignments, total, filters), nil
}

func (s *assignmentService) GetByAssigner(ctx context.Context, assignerID string, filters repositories.AssignmentFilters) (*AssignmentListResponse, error) {
	assignments, total, err := s.repo.Assignment().GetByAssigner(ctx, nil, assignerID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments by assigner: %w", err)
	}
	return s.buildAssignmentListResponse(ctx, assignments, total, filters), nil
}

// ===== STATISTICS =====

func (s *assignmentService) GetAssigneeStats(ctx context.Context, assigneeID string, userID string) (*repositories.AssigneeStats, error) {
	if assigneeID != userID {
		isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
		if err != nil {
			return nil, fmt.Errorf("permission check failed: %w", err)
		}
		if !isAdmin {
			return nil, NewPermissionError(userID, 0, "assignment", "stats", "not the assignee")
		}
	}
	return s.repo.Assignment().GetAssigneeStats(ctx, nil, assigneeID)
}
