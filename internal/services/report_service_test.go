package services

import (
	"context"
	"testing"
	"time"

	"github.com/quizdesk/assignment-service/internal/models"
)

type reportFixture struct {
	*assignmentFixture
	reports ReportService
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	fx := newAssignmentFixture(t)
	return &reportFixture{
		assignmentFixture: fx,
		reports:           NewReportService(fx.repo, nil, NewGradingService(testLogger()), testLogger()),
	}
}

// A run that expired mid-quiz still reports every question: the unanswered
// ones show up as blank rows and count against the gradable total.
func TestReportService_BuildReport_UnansweredRows(t *testing.T) {
	fx := newReportFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	limit := 300
	assignment := fx.seedQuiz(t, "member-1", "editor-1", func(a *models.Assignment) {
		a.TimeLimit = &limit
	})

	startedAt := time.Now()
	fx.service.now = func() time.Time { return startedAt }
	start, err := fx.service.Start(ctx, assignment.ID, "member-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := fx.service.SubmitAnswer(ctx, assignment.ID, &SubmitAnswerRequest{
		QuestionID: start.First.QuestionID,
		Selected:   []int{0},
	}, "member-1"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	// The clock runs out before the remaining questions are touched
	fx.service.now = func() time.Time { return startedAt.Add(10 * time.Minute) }
	if _, err := fx.service.CurrentQuestion(ctx, assignment.ID, "member-1"); err != ErrAssignmentExpired {
		t.Fatalf("error = %v, want ErrAssignmentExpired", err)
	}

	report, err := fx.reports.BuildReport(ctx, assignment.ID, "editor-1")
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}

	if report.Status != models.StatusExpired {
		t.Errorf("Status = %s, want expired", report.Status)
	}
	if len(report.Answers) != 3 {
		t.Fatalf("rows = %d, want one per question", len(report.Answers))
	}
	first := report.Answers[0]
	if first.Given == "" || first.IsCorrect == nil || !*first.IsCorrect {
		t.Errorf("answered row = %+v, want recorded correct answer", first)
	}
	for _, row := range report.Answers[1:] {
		if row.Given != "" {
			t.Errorf("unanswered row %d Given = %q, want empty", row.Position, row.Given)
		}
		if row.IsCorrect != nil {
			t.Errorf("unanswered row %d IsCorrect = %v, want nil", row.Position, *row.IsCorrect)
		}
	}

	// One of two closed questions answered correctly
	if report.Score.Gradable != 2 || report.Score.Correct != 1 {
		t.Errorf("Score = %+v, want 1/2", report.Score)
	}
	if report.Score.Percent != 50.0 {
		t.Errorf("Percent = %.2f, want 50", report.Score.Percent)
	}
}

// Canceling purges the answers, so a later report shows only blank rows and
// the run disappears from the assigner's recent results.
func TestReportService_BuildReport_AfterCancel(t *testing.T) {
	fx := newReportFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	assignment := fx.seedQuiz(t, "member-1", "editor-1", nil)

	start, err := fx.service.Start(ctx, assignment.ID, "member-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := fx.service.SubmitAnswer(ctx, assignment.ID, &SubmitAnswerRequest{
		QuestionID: start.First.QuestionID,
		Selected:   []int{0},
	}, "member-1"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	if err := fx.service.Cancel(ctx, assignment.ID, "editor-1"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	report, err := fx.reports.BuildReport(ctx, assignment.ID, "editor-1")
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}
	if report.Status != models.StatusCanceled {
		t.Errorf("Status = %s, want canceled", report.Status)
	}
	for _, row := range report.Answers {
		if row.Given != "" || row.IsCorrect != nil {
			t.Errorf("row %d = %+v, want purged answer", row.Position, row)
		}
	}
	if report.Score.Correct != 0 {
		t.Errorf("Correct = %d, want 0 after purge", report.Score.Correct)
	}

	recent, err := fx.reports.ListRecent(ctx, "editor-1", time.Time{}, 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if recent.Total != 0 {
		t.Errorf("recent reports = %d, want 0 after cancel", recent.Total)
	}
}

func TestReportService_BuildReport_NotParticipant(t *testing.T) {
	fx := newReportFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	assignment := fx.seedQuiz(t, "member-1", "editor-1", nil)

	if _, err := fx.reports.BuildReport(ctx, assignment.ID, "outsider"); !IsPermissionError(err) {
		t.Errorf("expected permission error, got %v", err)
	}
}
