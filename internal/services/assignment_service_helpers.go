package services

import (
	"context"
	"fmt"

	"github.com/quizdesk/assignment-service/internal/events"
	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
)

// ===== LOOKUP HELPERS =====

func (s *assignmentService) getAssignment(ctx context.Context, id uint) (*models.Assignment, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return assignment, nil
}

func (s *assignmentService) getOwnedAssignment(ctx context.Context, id uint, assigneeID, action string) (*models.Assignment, error) {
	assignment, err := s.getAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment.AssigneeID != assigneeID {
		return nil, NewPermissionError(assigneeID, id, "assignment", action, "not the assignee")
	}
	return assignment, nil
}

func (s *assignmentService) canAssign(ctx context.Context, userID string) (bool, error) {
	isEditor, err := s.repo.User().HasRole(ctx, userID, models.RoleEditor)
	if err != nil {
		return false, err
	}
	if isEditor {
		return true, nil
	}
	return s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
}

// ===== EXPIRY GUARD =====

// expireIfPastDue applies the lazy expiry rule: any touch of an overdue
// assignment transitions it to expired before the caller's operation runs.
// Returns ErrAssignmentExpired when the transition fired (or the row already
// was expired by a concurrent touch).
func (s *assignmentService) expireIfPastDue(ctx context.Context, assignment *models.Assignment) error {
	if assignment.Status.IsTerminal() {
		return nil
	}
	if !assignment.IsExpired(s.now()) {
		return nil
	}

	s.logger.Info("Assignment expired", "assignment_id", assignment.ID, "assignee_id", assignment.AssigneeID)

	if _, err := s.finish(ctx, assignment, models.StatusExpired); err != nil {
		return err
	}
	return ErrAssignmentExpired
}

// finish moves an assignment to a terminal status, grades what was answered
// and publishes the matching lifecycle event.
func (s *assignmentService) finish(ctx context.Context, assignment *models.Assignment, status models.AssignmentStatus) (*models.Score, error) {
	finishedAt := s.now()
	if err := s.repo.Assignment().MarkFinished(ctx, nil, assignment.ID, status, finishedAt); err != nil {
		return nil, fmt.Errorf("failed to finish assignment: %w", err)
	}
	assignment.Status = status
	assignment.FinishedAt = &finishedAt

	questions, err := s.repo.Question().GetByTemplate(ctx, nil, assignment.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	answers, err := s.repo.Answer().GetByAssignment(ctx, nil, assignment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	score := s.grading.Score(questions, answers)
	assignment.Score = &score

	s.selections.ClearAssignment(assignment.ID)

	eventType := events.EventAssignmentCompleted
	if status == models.StatusExpired {
		eventType = events.EventAssignmentExpired
	}
	s.publishLifecycleEvent(ctx, eventType, assignment)

	if status == models.StatusFinished {
		if err := s.delivery.NotifyResult(ctx, assignment, score); err != nil {
			s.logger.Warn("Result delivery failed", "assignment_id", assignment.ID, "error", err)
		}
	} else if status == models.StatusExpired {
		if err := s.delivery.NotifyExpired(ctx, assignment); err != nil {
			s.logger.Warn("Expiry notice delivery failed", "assignment_id", assignment.ID, "error", err)
		}
	}

	return &score, nil
}

// ===== VIEW BUILDERS =====

// questionViewAt builds the assignee-facing projection of the question at the
// given position. The answer key never leaves this method.
func (s *assignmentService) questionViewAt(ctx context.Context, assignment *models.Assignment, position int) (*QuestionView, error) {
	question, err := s.repo.Question().GetByTemplateAndPosition(ctx, nil, assignment.TemplateID, position)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question at position %d: %w", position, err)
	}

	total, err := s.repo.Question().CountByTemplate(ctx, nil, assignment.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	options, err := question.OptionList()
	if err != nil {
		return nil, fmt.Errorf("failed to decode question content: %w", err)
	}

	view := &QuestionView{
		QuestionID: question.ID,
		Position:   question.Position,
		Total:      int(total),
		Kind:       question.Kind,
		Prompt:     question.Prompt,
		Options:    options,
	}
	if question.Kind == models.MultiSelect {
		view.Selected = s.selections.Get(assignment.ID, question.ID)
	}
	return view, nil
}

func (s *assignmentService) buildAssignmentResponse(ctx context.Context, assignment *models.Assignment) *AssignmentResponse {
	count, err := s.repo.Question().CountByTemplate(ctx, nil, assignment.TemplateID)
	if err != nil {
		s.logger.Warn("Failed to count questions", "template_id", assignment.TemplateID, "error", err)
	}
	return &AssignmentResponse{
		Assignment:    assignment,
		QuestionCount: int(count),
		CanCancel:     assignment.Status != models.StatusCanceled,
		CanSave:       assignment.Status == models.StatusFinished || assignment.Status == models.StatusExpired,
	}
}

func (s *assignmentService) buildAssignmentListResponse(ctx context.Context, assignments []*models.Assignment, total int64, filters repositories.AssignmentFilters) *AssignmentListResponse {
	responses := make([]*AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, s.buildAssignmentResponse(ctx, assignment))
	}
	page := 1
	if filters.Limit > 0 {
		page = filters.Offset/filters.Limit + 1
	}
	return &AssignmentListResponse{
		Assignments: responses,
		Total:       total,
		Page:        page,
		Size:        len(responses),
	}
}

// ===== EVENT HELPERS =====

func (s *assignmentService) publishLifecycleEvent(ctx context.Context, eventType string, assignment *models.Assignment) {
	s.publishEvent(ctx, eventType, events.AssignmentEventData{
		AssignmentID: assignment.ID,
		TemplateID:   assignment.TemplateID,
		AssigneeID:   assignment.AssigneeID,
		AssignerID:   assignment.AssignerID,
		Status:       string(assignment.Status),
	})
}

func (s *assignmentService) publishEvent(ctx context.Context, eventType string, data interface{}) {
	if s.publisher == nil {
		return
	}
	event := events.Event{Type: eventType, Data: data}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}
