package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/quizdesk/assignment-service/internal/gateway"
	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
)

type deliveryService struct {
	repo    repositories.Repository
	gateway gateway.Gateway
	logger  *slog.Logger

	// lastRef remembers the latest delivered message per assignment so
	// question updates edit in place instead of flooding the chat
	mu      sync.Mutex
	lastRef map[uint]string
}

func NewDeliveryService(repo repositories.Repository, gw gateway.Gateway, logger *slog.Logger) DeliveryService {
	return &deliveryService{
		repo:    repo,
		gateway: gw,
		logger:  logger,
		lastRef: make(map[uint]string),
	}
}

func (d *deliveryService) NotifyAssigned(ctx context.Context, assignment *models.Assignment) error {
	chatID, err := d.chatIDFor(ctx, assignment.AssigneeID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You have a new quiz: %s\n", assignment.Template.Title)
	if assignment.TimeLimit != nil {
		fmt.Fprintf(&sb, "Time limit: %s\n", formatDuration(*assignment.TimeLimit))
	}
	if assignment.Deadline != nil {
		fmt.Fprintf(&sb, "Deadline: %s\n", assignment.Deadline.Format("2006-01-02 15:04"))
	}
	sb.WriteString("Press Start when you are ready.")

	msg := gateway.RenderedMessage{
		Text: sb.String(),
		Buttons: [][]gateway.Button{{
			{Label: "Start", Data: fmt.Sprintf("start:%d", assignment.ID)},
		}},
	}

	ref, err := d.gateway.Deliver(ctx, chatID, msg)
	if err != nil {
		return fmt.Errorf("failed to deliver assignment notification: %w", err)
	}
	d.remember(assignment.ID, ref)

	d.logger.Info("Assignment notification delivered",
		"assignment_id", assignment.ID, "assignee_id", assignment.AssigneeID)
	return nil
}

func (d *deliveryService) DeliverQuestion(ctx context.Context, assignment *models.Assignment, view *QuestionView) error {
	chatID, err := d.chatIDFor(ctx, assignment.AssigneeID)
	if err != nil {
		return err
	}

	msg := renderQuestion(assignment.ID, view)

	// Prefer editing the previous message; fall back to a fresh one
	if ref := d.recall(assignment.ID); ref != "" {
		if err := d.gateway.Edit(ctx, chatID, ref, msg); err == nil {
			return nil
		}
	}

	ref, err := d.gateway.Deliver(ctx, chatID, msg)
	if err != nil {
		return fmt.Errorf("failed to deliver question: %w", err)
	}
	d.remember(assignment.ID, ref)
	return nil
}

func (d *deliveryService) NotifyResult(ctx context.Context, assignment *models.Assignment, score models.Score) error {
	chatID, err := d.chatIDFor(ctx, assignment.AssigneeID)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("Quiz finished: %s\nScore: %d/%d (%.0f%%)",
		assignment.Template.Title, score.Correct, score.Gradable, score.Percent)
	if score.Gradable == 0 {
		text = fmt.Sprintf("Quiz finished: %s\nYour answers were recorded.", assignment.Template.Title)
	}

	if _, err := d.gateway.Deliver(ctx, chatID, gateway.RenderedMessage{Text: text}); err != nil {
		return fmt.Errorf("failed to deliver result: %w", err)
	}

	d.forget(assignment.ID)
	return nil
}

func (d *deliveryService) NotifyExpired(ctx context.Context, assignment *models.Assignment) error {
	chatID, err := d.chatIDFor(ctx, assignment.AssigneeID)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("Quiz expired: %s\nTime is up; no further answers will be accepted.",
		assignment.Template.Title)
	if score := assignment.Score; score != nil && score.Gradable > 0 {
		text = fmt.Sprintf("Quiz expired: %s\nScore so far: %d/%d (%.0f%%)",
			assignment.Template.Title, score.Correct, score.Gradable, score.Percent)
	}

	if _, err := d.gateway.Deliver(ctx, chatID, gateway.RenderedMessage{Text: text}); err != nil {
		return fmt.Errorf("failed to deliver expiry notice: %w", err)
	}

	d.forget(assignment.ID)
	return nil
}

// ===== HELPERS =====

func (d *deliveryService) chatIDFor(ctx context.Context, userID string) (string, error) {
	chatID, err := d.repo.User().GetChatID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve chat target: %w", err)
	}
	if chatID == "" {
		return "", ErrNoDeliveryTarget
	}
	return chatID, nil
}

func (d *deliveryService) remember(assignmentID uint, ref string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastRef[assignmentID] = ref
}

func (d *deliveryService) recall(assignmentID uint) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastRef[assignmentID]
}

func (d *deliveryService) forget(assignmentID uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.lastRef, assignmentID)
}

func renderQuestion(assignmentID uint, view *QuestionView) gateway.RenderedMessage {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question %d of %d\n\n%s", view.Position, view.Total, view.Prompt)

	var buttons [][]gateway.Button
	switch view.Kind {
	case models.Open:
		sb.WriteString("\n\nReply with your answer.")

	case models.SingleSelect:
		for i, option := range view.Options {
			buttons = append(buttons, []gateway.Button{{
				Label: option,
				Data:  fmt.Sprintf("answer:%d:%d:%d", assignmentID, view.QuestionID, i),
			}})
		}

	case models.MultiSelect:
		selected := make(map[int]bool, len(view.Selected))
		for _, idx := range view.Selected {
			selected[idx] = true
		}
		for i, option := range view.Options {
			label := option
			if selected[i] {
				label = "[x] " + option
			}
			buttons = append(buttons, []gateway.Button{{
				Label: label,
				Data:  fmt.Sprintf("toggle:%d:%d:%d", assignmentID, view.QuestionID, i),
			}})
		}
		buttons = append(buttons, []gateway.Button{{
			Label: "Confirm",
			Data:  fmt.Sprintf("confirm:%d:%d", assignmentID, view.QuestionID),
		}})
	}

	return gateway.RenderedMessage{Text: sb.String(), Buttons: buttons}
}

func formatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
