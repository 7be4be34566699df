package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quizdesk/assignment-service/internal/events"
	"github.com/quizdesk/assignment-service/internal/gateway"
	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/validator"
)

type assignmentFixture struct {
	repo      *fakeRepository
	service   *assignmentService
	publisher *events.MockEventPublisher
	gateway   *gateway.MockGateway
}

func newAssignmentFixture(t *testing.T) *assignmentFixture {
	t.Helper()
	logger := testLogger()
	repo := newFakeRepository()
	publisher := events.NewMockEventPublisher(logger)
	gw := gateway.NewMockGateway()

	service := NewAssignmentService(
		repo,
		nil,
		NewGradingService(logger),
		NewDeliveryService(repo, gw, logger),
		publisher,
		logger,
		validator.New(),
	).(*assignmentService)

	return &assignmentFixture{repo: repo, service: service, publisher: publisher, gateway: gw}
}

// seedQuiz creates a 3-question template (single, multi, open) assigned to the
// given assignee and returns the assignment.
func (fx *assignmentFixture) seedQuiz(t *testing.T, assigneeID, assignerID string, mutate func(*models.Assignment)) *models.Assignment {
	t.Helper()
	template := fx.repo.seedTemplate("Go basics", assignerID,
		&models.Question{Kind: models.SingleSelect, Prompt: "q1",
			Content: mustContent(t)(models.NewSingleSelectContent([]string{"a", "b"}, 0))},
		&models.Question{Kind: models.MultiSelect, Prompt: "q2",
			Content: mustContent(t)(models.NewMultiSelectContent([]string{"a", "b", "c"}, []int{0, 1}))},
		&models.Question{Kind: models.Open, Prompt: "q3"},
	)
	assignment := &models.Assignment{
		TemplateID: template.ID,
		AssigneeID: assigneeID,
		AssignerID: assignerID,
	}
	if mutate != nil {
		mutate(assignment)
	}
	return fx.repo.seedAssignment(assignment)
}

func eventTypes(publisher *events.MockEventPublisher) []string {
	published := publisher.GetPublishedEvents()
	types := make([]string, 0, len(published))
	for _, event := range published {
		types = append(types, event.Type)
	}
	return types
}

func hasEventType(publisher *events.MockEventPublisher, eventType string) bool {
	for _, published := range eventTypes(publisher) {
		if published == eventType {
			return true
		}
	}
	return false
}

func TestAssignmentService_Assign(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("editor-1", models.RoleEditor)
	fx.repo.seedUser("member-1", models.RoleMember)
	fx.repo.seedChatID("member-1", "100200")
	template := fx.repo.seedTemplate("Go basics", "editor-1",
		&models.Question{Kind: models.Open, Prompt: "q1"})

	resp, err := fx.service.Assign(ctx, &CreateAssignmentRequest{
		TemplateID: template.ID,
		AssigneeID: "member-1",
	}, "editor-1")
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}

	if resp.Status != models.StatusAssigned {
		t.Errorf("Status = %s, want assigned", resp.Status)
	}
	if resp.CurrentPosition != 1 {
		t.Errorf("CurrentPosition = %d, want 1", resp.CurrentPosition)
	}
	if !hasEventType(fx.publisher, events.EventAssignmentAssigned) {
		t.Errorf("missing assigned event, got %v", eventTypes(fx.publisher))
	}
	if _, ok := fx.gateway.LastMessage(); !ok {
		t.Error("expected an invitation message in the chat")
	}
}

func TestAssignmentService_Assign_NoChatLinked(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("editor-1", models.RoleEditor)
	fx.repo.seedUser("member-1", models.RoleMember)
	// no chat id seeded
	template := fx.repo.seedTemplate("Go basics", "editor-1",
		&models.Question{Kind: models.Open, Prompt: "q1"})

	resp, err := fx.service.Assign(ctx, &CreateAssignmentRequest{
		TemplateID: template.ID,
		AssigneeID: "member-1",
	}, "editor-1")
	if err != nil {
		t.Fatalf("Assign() must survive delivery failure, got %v", err)
	}
	if resp.Status != models.StatusAssigned {
		t.Errorf("Status = %s, want assigned", resp.Status)
	}
	if !hasEventType(fx.publisher, events.EventDeliveryFailed) {
		t.Errorf("missing delivery failure event, got %v", eventTypes(fx.publisher))
	}
}

func TestAssignmentService_Assign_PermissionDenied(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	fx.repo.seedUser("member-1", models.RoleMember)
	template := fx.repo.seedTemplate("Go basics", "member-1",
		&models.Question{Kind: models.Open, Prompt: "q1"})

	_, err := fx.service.Assign(ctx, &CreateAssignmentRequest{
		TemplateID: template.ID,
		AssigneeID: "member-1",
	}, "member-1")
	if !IsPermissionError(err) {
		t.Errorf("expected permission error, got %v", err)
	}
}

func TestAssignmentService_Start(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	assignment := fx.seedQuiz(t, "member-1", "editor-1", nil)

	result, err := fx.service.Start(ctx, assignment.ID, "member-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if result.AlreadyStarted {
		t.Error("first start must not report already started")
	}
	if result.Assignment.Status != models.StatusInProgress {
		t.Errorf("Status = %s, want in_progress", result.Assignment.Status)
	}
	if result.First == nil || result.First.Position != 1 {
		t.Fatalf("First = %+v, want question at position 1", result.First)
	}
	if !hasEventType(fx.publisher, events.EventAssignmentStarted) {
		t.Errorf("missing started event, got %v", eventTypes(fx.publisher))
	}

	// Repeated start resumes instead of failing
	again, err := fx.service.Start(ctx, assignment.ID, "member-1")
	if err != nil {
		t.Fatalf("repeated Start() error = %v", err)
	}
	if !again.AlreadyStarted {
		t.Error("repeated start must report already started")
	}
	if again.First == nil || again.First.Position != 1 {
		t.Errorf("repeated start must resume at position 1, got %+v", again.First)
	}
}

func TestAssignmentService_Start_NotAssignee(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	assignment := fx.seedQuiz(t, "member-1", "editor-1", nil)

	if _, err := fx.service.Start(ctx, assignment.ID, "intruder"); !IsPermissionError(err) {
		t.Errorf("expected permission error, got %v", err)
	}
}

// A start tap on a finished run is absorbed instead of erroring
func TestAssignmentService_Start_AfterFinish(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	finishedAt := time.Now()
	assignment := fx.seedQuiz(t, "member-1", "editor-1", func(a *models.Assignment) {
		a.Status = models.StatusFinished
		a.FinishedAt = &finishedAt
	})

	result, err := fx.service.Start(ctx, assignment.ID, "member-1")
	if err != nil {
		t.Fatalf("Start() after finish error = %v", err)
	}
	if !result.AlreadyFinished {
		t.Error("start on a finished run must report already finished")
	}
	if result.First != nil {
		t.Errorf("First = %+v, want nil for a finished run", result.First)
	}
	if result.Assignment.Status != models.StatusFinished {
		t.Errorf("Status = %s, want finished", result.Assignment.Status)
	}
}

func TestAssignmentService_SubmitAnswer_FullRun(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	fx.repo.seedChatID("member-1", "100200")
	assignment := fx.seedQuiz(t, "member-1", "editor-1", nil)

	start, err := fx.service.Start(ctx, assignment.ID, "member-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Question 1: single-select, correct answer
	r1, err := fx.service.SubmitAnswer(ctx, assignment.ID, &SubmitAnswerRequest{
		QuestionID: start.First.QuestionID,
		Selected:   []int{0},
	}, "member-1")
	if err != nil {
		t.Fatalf("SubmitAnswer(q1) error = %v", err)
	}
	if r1.Correct == nil || !*r1.Correct {
		t.Errorf("q1 Correct = %v, want true", r1.Correct)
	}
	if r1.Finished || r1.Next == nil || r1.Next.Position != 2 {
		t.Fatalf("q1 result = %+v, want next at position 2", r1)
	}

	// Question 2: multi-select, subset only (wrong by exact-set rule)
	r2, err := fx.service.SubmitAnswer(ctx, assignment.ID, &SubmitAnswerRequest{
		QuestionID: r1.Next.QuestionID,
		Selected:   []int{0},
	}, "member-1")
	if err != nil {
		t.Fatalf("SubmitAnswer(q2) error = %v", err)
	}
	if r2.Correct == nil || *r2.Correct {
		t.Errorf("q2 Correct = %v, want false", r2.Correct)
	}

	// Question 3: open answer finishes the run
	r3, err := fx.service.SubmitAnswer(ctx, assignment.ID, &SubmitAnswerRequest{
		QuestionID: r2.Next.QuestionID,
		Text:       "channels are typed conduits",
	}, "member-1")
	if err != nil {
		t.Fatalf("SubmitAnswer(q3) error = %v", err)
	}
	if !r3.Finished {
		t.Fatal("last answer must finish the assignment")
	}
	if r3.Correct != nil {
		t.Errorf("open answer Correct = %v, want nil", r3.Correct)
	}
	if r3.Score == nil || r3.Score.Gradable != 2 || r3.Score.Correct != 1 {
		t.Errorf("Score = %+v, want 1/2", r3.Score)
	}

	stored, err := fx.repo.Assignment().GetByID(ctx, nil, assignment.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Status != models.StatusFinished {
		t.Errorf("stored Status = %s, want finished", stored.Status)
	}
	if !hasEventType(fx.publisher, events.EventAssignmentCompleted) {
		t.Errorf("missing completed event, got %v", eventTypes(fx.publisher))
	}
}

func TestAssignmentService_SubmitAnswer_WrongQuestion(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	assignment := fx.seedQuiz(t, "member-1", "editor-1", nil)

	start, err := fx.service.Start(ctx, assignment.ID, "member-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Answer a question that is not the current one
	_, err = fx.service.SubmitAnswer(ctx, assignment.ID, &SubmitAnswerRequest{
		QuestionID: start.First.QuestionID + 1,
		Selected:   []int{0},
	}, "member-1")
	if err != ErrQuestionNotCurrent {
		t.Errorf("error = %v, want ErrQuestionNotCurrent", err)
	}
}

// Two submissions racing on the same question must advance the cursor exactly
// once; the loser is turned away instead of double-counting the question.
func TestAssignmentService_SubmitAnswer_ConcurrentDuplicate(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	assignment := fx.seedQuiz(t, "member-1", "editor-1", nil)

	start, err := fx.service.Start(ctx, assignment.ID, "member-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.service.SubmitAnswer(ctx, assignment.ID, &SubmitAnswerRequest{
				QuestionID: start.First.QuestionID,
				Selected:   []int{0},
			}, "member-1")
		}(i)
	}
	wg.Wait()

	var accepted, rejected int
	for _, err := range errs {
		switch err {
		case nil:
			accepted++
		case ErrQuestionNotCurrent:
			rejected++
		default:
			t.Fatalf("unexpected error = %v", err)
		}
	}
	if accepted != 1 || rejected != 1 {
		t.Fatalf("accepted = %d, rejected = %d, want exactly one of each", accepted, rejected)
	}

	stored, err := fx.repo.Assignment().GetByID(ctx, nil, assignment.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.CurrentPosition != 2 {
		t.Errorf("CurrentPosition = %d, want 2", stored.CurrentPosition)
	}
	if answers := fx.repo.answersFor(assignment.ID); len(answers) != 1 {
		t.Errorf("stored answers = %d, want 1", len(answers))
	}
}

func TestAssignmentService_SubmitAnswer_NotStarted(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	assignment := fx.seedQuiz(t, "member-1", "editor-1", nil)

	_, err := fx.service.SubmitAnswer(ctx, assignment.ID, &SubmitAnswerRequest{
		QuestionID: 1,
		Selected:   []int{0},
	}, "member-1")
	if err != ErrAssignmentNotActive {
		t.Errorf("error = %v, want ErrAssignmentNotActive", err)
	}
}

func TestAssignmentService_LazyExpiry_Deadline(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	fx.repo.seedChatID("member-1", "100200")
	deadline := time.Now().Add(time.Hour)
	assignment := fx.seedQuiz(t, "member-1", "editor-1", func(a *models.Assignment) {
		a.Deadline = &deadline
	})

	if _, err := fx.service.Start(ctx, assignment.ID, "member-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Move the clock past the deadline; the next touch expires the run
	fx.service.now = func() time.Time { return deadline.Add(time.Minute) }

	_, err := fx.service.SubmitAnswer(ctx, assignment.ID, &SubmitAnswerRequest{
		QuestionID: 1,
		Selected:   []int{0},
	}, "member-1")
	if err != ErrAssignmentExpired {
		t.Fatalf("error = %v, want ErrAssignmentExpired", err)
	}

	stored, err := fx.repo.Assignment().GetByID(ctx, nil, assignment.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Status != models.StatusExpired {
		t.Errorf("stored Status = %s, want expired", stored.Status)
	}
	if !hasEventType(fx.publisher, events.EventAssignmentExpired) {
		t.Errorf("missing expired event, got %v", eventTypes(fx.publisher))
	}

	// The assignee hears about the deadline, not just the event bus
	last, ok := fx.gateway.LastMessage()
	if !ok {
		t.Fatal("expected an expiry notice in the chat")
	}
	if !strings.Contains(last.Message.Text, "expired") {
		t.Errorf("last message = %q, want expiry notice", last.Message.Text)
	}
}

func TestAssignmentService_LazyExpiry_TimeLimit(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	limit := 600 // 10 minutes
	assignment := fx.seedQuiz(t, "member-1", "editor-1", func(a *models.Assignment) {
		a.TimeLimit = &limit
	})

	startedAt := time.Now()
	fx.service.now = func() time.Time { return startedAt }
	if _, err := fx.service.Start(ctx, assignment.ID, "member-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Within the budget the run stays active
	fx.service.now = func() time.Time { return startedAt.Add(9 * time.Minute) }
	if _, err := fx.service.CurrentQuestion(ctx, assignment.ID, "member-1"); err != nil {
		t.Fatalf("CurrentQuestion() within budget error = %v", err)
	}

	// Past the budget it expires on touch
	fx.service.now = func() time.Time { return startedAt.Add(11 * time.Minute) }
	if _, err := fx.service.CurrentQuestion(ctx, assignment.ID, "member-1"); err != ErrAssignmentExpired {
		t.Fatalf("error = %v, want ErrAssignmentExpired", err)
	}
}

func TestAssignmentService_ToggleSelection(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	assignment := fx.seedQuiz(t, "member-1", "editor-1", nil)

	start, err := fx.service.Start(ctx, assignment.ID, "member-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Move to the multi-select question
	r1, err := fx.service.SubmitAnswer(ctx, assignment.ID, &SubmitAnswerRequest{
		QuestionID: start.First.QuestionID,
		Selected:   []int{0},
	}, "member-1")
	if err != nil {
		t.Fatalf("SubmitAnswer(q1) error = %v", err)
	}
	multiID := r1.Next.QuestionID

	toggle1, err := fx.service.ToggleSelection(ctx, assignment.ID, multiID, 0, "member-1")
	if err != nil {
		t.Fatalf("ToggleSelection() error = %v", err)
	}
	if len(toggle1.Selected) != 1 || toggle1.Selected[0] != 0 {
		t.Errorf("Selected = %v, want [0]", toggle1.Selected)
	}

	toggle2, err := fx.service.ToggleSelection(ctx, assignment.ID, multiID, 1, "member-1")
	if err != nil {
		t.Fatalf("ToggleSelection() error = %v", err)
	}
	if len(toggle2.Selected) != 2 {
		t.Errorf("Selected = %v, want [0 1]", toggle2.Selected)
	}

	// Toggling again removes the option
	toggle3, err := fx.service.ToggleSelection(ctx, assignment.ID, multiID, 0, "member-1")
	if err != nil {
		t.Fatalf("ToggleSelection() error = %v", err)
	}
	if len(toggle3.Selected) != 1 || toggle3.Selected[0] != 1 {
		t.Errorf("Selected = %v, want [1]", toggle3.Selected)
	}

	// Confirming with no explicit selection uses the toggled set
	r2, err := fx.service.SubmitAnswer(ctx, assignment.ID, &SubmitAnswerRequest{
		QuestionID: multiID,
	}, "member-1")
	if err != nil {
		t.Fatalf("SubmitAnswer(q2) error = %v", err)
	}
	if r2.Correct == nil || *r2.Correct {
		t.Errorf("q2 Correct = %v, want false for partial set", r2.Correct)
	}
}

func TestAssignmentService_Cancel(t *testing.T) {
	fx := newAssignmentFixture(t)
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

	stored, err := fx.repo.Assignment().GetByID(ctx, nil, assignment.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Status != models.StatusCanceled {
		t.Errorf("stored Status = %s, want canceled", stored.Status)
	}
	if remaining := fx.repo.answersFor(assignment.ID); len(remaining) != 0 {
		t.Errorf("answers remaining after cancel = %d, want 0", len(remaining))
	}
	if !hasEventType(fx.publisher, events.EventAssignmentCanceled) {
		t.Errorf("missing canceled event, got %v", eventTypes(fx.publisher))
	}

	// Only re-canceling is rejected
	if err := fx.service.Cancel(ctx, assignment.ID, "editor-1"); err != ErrAssignmentTerminal {
		t.Errorf("second Cancel() error = %v, want ErrAssignmentTerminal", err)
	}
}

// An assigner can discard a run even after the assignee finished it: the
// answers are purged and the assignment ends up canceled, not finished.
func TestAssignmentService_Cancel_Finished(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	assignment := fx.seedQuiz(t, "member-1", "editor-1", nil)

	start, err := fx.service.Start(ctx, assignment.ID, "member-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	answers := []*SubmitAnswerRequest{
		{QuestionID: start.First.QuestionID, Selected: []int{0}},
		{QuestionID: start.First.QuestionID + 1, Selected: []int{0, 1}},
		{QuestionID: start.First.QuestionID + 2, Text: "done"},
	}
	for _, req := range answers {
		if _, err := fx.service.SubmitAnswer(ctx, assignment.ID, req, "member-1"); err != nil {
			t.Fatalf("SubmitAnswer(%d) error = %v", req.QuestionID, err)
		}
	}

	stored, err := fx.repo.Assignment().GetByID(ctx, nil, assignment.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Status != models.StatusFinished {
		t.Fatalf("stored Status = %s, want finished before cancel", stored.Status)
	}

	if err := fx.service.Cancel(ctx, assignment.ID, "editor-1"); err != nil {
		t.Fatalf("Cancel() of finished assignment error = %v", err)
	}

	stored, err = fx.repo.Assignment().GetByID(ctx, nil, assignment.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Status != models.StatusCanceled {
		t.Errorf("stored Status = %s, want canceled", stored.Status)
	}
	if remaining := fx.repo.answersFor(assignment.ID); len(remaining) != 0 {
		t.Errorf("answers remaining after cancel = %d, want 0", len(remaining))
	}
	if !hasEventType(fx.publisher, events.EventAssignmentCanceled) {
		t.Errorf("missing canceled event, got %v", eventTypes(fx.publisher))
	}
}

func TestAssignmentService_Cancel_NotAssigner(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	assignment := fx.seedQuiz(t, "member-1", "editor-1", nil)

	if err := fx.service.Cancel(ctx, assignment.ID, "member-1"); !IsPermissionError(err) {
		t.Errorf("expected permission error, got %v", err)
	}
}

func TestAssignmentService_Save(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)

	finishedAt := time.Now()
	assignment := fx.seedQuiz(t, "member-1", "editor-1", func(a *models.Assignment) {
		a.Status = models.StatusFinished
		a.FinishedAt = &finishedAt
	})

	if err := fx.service.Save(ctx, assignment.ID, "editor-1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	stored, err := fx.repo.Assignment().GetByID(ctx, nil, assignment.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !stored.Saved {
		t.Error("assignment must be marked saved")
	}
}

func TestAssignmentService_Save_ActiveRejected(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)
	assignment := fx.seedQuiz(t, "member-1", "editor-1", nil)

	if err := fx.service.Save(ctx, assignment.ID, "editor-1"); err != ErrNotArchivable {
		t.Errorf("Save() error = %v, want ErrNotArchivable", err)
	}
}

func TestAssignmentService_GetActiveForAssignee_DropsExpired(t *testing.T) {
	fx := newAssignmentFixture(t)
	ctx := context.Background()

	fx.repo.seedUser("member-1", models.RoleMember)

	pastDeadline := time.Now().Add(-time.Hour)
	fx.seedQuiz(t, "member-1", "editor-1", func(a *models.Assignment) {
		a.Deadline = &pastDeadline
	})
	fx.seedQuiz(t, "member-1", "editor-1", nil)

	active, err := fx.service.GetActiveForAssignee(ctx, "member-1")
	if err != nil {
		t.Fatalf("GetActiveForAssignee() error = %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active = %d, want 1 (expired one dropped)", len(active))
	}
}
