package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type reportService struct {
	repo    repositories.Repository
	db      *gorm.DB
	grading GradingService
	logger  *slog.Logger
}

func NewReportService(repo repositories.Repository, db *gorm.DB, grading GradingService, logger *slog.Logger) ReportService {
	return &reportService{
		repo:    repo,
		db:      db,
		grading: grading,
		logger:  logger,
	}
}

func (r *reportService) BuildReport(ctx context.Context, assignmentID uint, userID string) (*AssignmentReport, error) {
	assignment, err := r.repo.Assignment().GetByIDWithDetails(ctx, nil, assignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if assignment.AssignerID != userID && assignment.AssigneeID != userID {
		return nil, NewPermissionError(userID, assignmentID, "assignment", "report", "not a participant")
	}

	return r.buildReport(ctx, assignment)
}

func (r *reportService) ListRecent(ctx context.Context, assignerID string, since time.Time, limit int) (*RecentReportsResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	assignments, err := r.repo.Assignment().GetRecentTerminal(ctx, nil, assignerID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent assignments: %w", err)
	}

	reports := make([]*AssignmentReport, 0, len(assignments))
	for _, assignment := range assignments {
		detailed, err := r.repo.Assignment().GetByIDWithDetails(ctx, nil, assignment.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load assignment %d: %w", assignment.ID, err)
		}
		report, err := r.buildReport(ctx, detailed)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	return &RecentReportsResponse{Reports: reports, Total: len(reports)}, nil
}

func (r *reportService) ExportXLSX(ctx context.Context, assignerID string, since time.Time) ([]byte, error) {
	recent, err := r.ListRecent(ctx, assignerID, since, 100)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Assignment", "Quiz", "Assignee", "Status", "Started", "Finished", "Correct", "Gradable", "Percent"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		f.SetRowStyle(sheet, 1, 1, headerStyle)
	}

	for row, report := range recent.Reports {
		values := []interface{}{
			report.AssignmentID,
			report.Template,
			assigneeLabel(report),
			string(report.Status),
			formatTimestamp(report.StartedAt),
			formatTimestamp(report.FinishedAt),
			report.Score.Correct,
			report.Score.Gradable,
			fmt.Sprintf("%.0f%%", report.Score.Percent),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	f.SetColWidth(sheet, "B", "C", 30)
	f.SetColWidth(sheet, "E", "F", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render spreadsheet: %w", err)
	}

	r.logger.Info("Exported results spreadsheet", "assigner_id", assignerID, "reports", len(recent.Reports))

	return buf.Bytes(), nil
}

// ===== HELPERS =====

func (r *reportService) buildReport(ctx context.Context, assignment *models.Assignment) (*AssignmentReport, error) {
	questions, err := r.repo.Question().GetByTemplate(ctx, nil, assignment.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	answerByQuestion := make(map[uint]*models.Answer, len(assignment.Answers))
	answers := make([]*models.Answer, 0, len(assignment.Answers))
	for i := range assignment.Answers {
		answer := &assignment.Answers[i]
		answerByQuestion[answer.QuestionID] = answer
		answers = append(answers, answer)
	}

	rows := make([]AnswerReportRow, 0, len(questions))
	for _, question := range questions {
		row := AnswerReportRow{
			Position: question.Position,
			Kind:     question.Kind,
			Prompt:   question.Prompt,
			Expected: expectedLabel(question),
		}
		if answer, ok := answerByQuestion[question.ID]; ok {
			row.Given = givenLabel(question, answer)
			row.IsCorrect = answer.IsCorrect
		}
		rows = append(rows, row)
	}

	report := &AssignmentReport{
		AssignmentID: assignment.ID,
		Template:     assignment.Template.Title,
		AssigneeID:   assignment.AssigneeID,
		Status:       assignment.Status,
		StartedAt:    assignment.StartedAt,
		FinishedAt:   assignment.FinishedAt,
		Score:        r.grading.Score(questions, answers),
		Answers:      rows,
	}

	if user, err := r.repo.User().GetByID(ctx, assignment.AssigneeID); err == nil {
		report.AssigneeName = user.FullName
	}

	return report, nil
}

// expectedLabel renders the answer key of a closed question; open questions
// have none.
func expectedLabel(question *models.Question) string {
	switch question.Kind {
	case models.SingleSelect:
		content, err := question.SingleSelectContent()
		if err != nil {
			return ""
		}
		return content.Options[content.CorrectIndex]

	case models.MultiSelect:
		content, err := question.MultiSelectContent()
		if err != nil {
			return ""
		}
		labels := make([]string, 0, len(content.CorrectIndices))
		for _, idx := range content.CorrectIndices {
			labels = append(labels, content.Options[idx])
		}
		return strings.Join(labels, "; ")
	}
	return ""
}

// givenLabel renders what the assignee actually submitted.
func givenLabel(question *models.Question, answer *models.Answer) string {
	var payload models.AnswerPayload
	if err := json.Unmarshal(answer.Payload, &payload); err != nil {
		return ""
	}

	if question.Kind == models.Open {
		return payload.Text
	}

	options, err := question.OptionList()
	if err != nil {
		return ""
	}
	labels := make([]string, 0, len(payload.Selected))
	for _, idx := range payload.Selected {
		if idx >= 0 && idx < len(options) {
			labels = append(labels, options[idx])
		}
	}
	return strings.Join(labels, "; ")
}

func assigneeLabel(report *AssignmentReport) string {
	if report.AssigneeName != "" {
		return report.AssigneeName
	}
	return report.AssigneeID
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
