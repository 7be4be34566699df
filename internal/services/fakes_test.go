package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
	"gorm.io/gorm"
)

// fakeRepository is an in-memory repositories.Repository for service tests.
type fakeRepository struct {
	mu sync.Mutex

	templates   map[uint]*models.Template
	questions   map[uint]*models.Question
	assignments map[uint]*models.Assignment
	answers     map[uint]*models.Answer
	users       map[string]*models.User
	roles       map[string][]models.UserRole
	chatIDs     map[string]string

	nextTemplateID   uint
	nextQuestionID   uint
	nextAssignmentID uint
	nextAnswerID     uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		templates:   make(map[uint]*models.Template),
		questions:   make(map[uint]*models.Question),
		assignments: make(map[uint]*models.Assignment),
		answers:     make(map[uint]*models.Answer),
		users:       make(map[string]*models.User),
		roles:       make(map[string][]models.UserRole),
		chatIDs:     make(map[string]string),
	}
}

func (f *fakeRepository) Template() repositories.TemplateRepository     { return &fakeTemplateRepo{f} }
func (f *fakeRepository) Question() repositories.QuestionRepository     { return &fakeQuestionRepo{f} }
func (f *fakeRepository) Assignment() repositories.AssignmentRepository { return &fakeAssignmentRepo{f} }
func (f *fakeRepository) Answer() repositories.AnswerRepository         { return &fakeAnswerRepo{f} }
func (f *fakeRepository) User() repositories.UserRepository             { return &fakeUserRepo{f} }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}
func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// ===== SEEDING HELPERS =====

func (f *fakeRepository) seedUser(id string, roles ...models.UserRole) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := &models.User{ID: id, FullName: "User " + id, Email: id + "@example.com"}
	f.users[id] = user
	f.roles[id] = roles
	return user
}

func (f *fakeRepository) seedChatID(userID, chatID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatIDs[userID] = chatID
}

func (f *fakeRepository) seedTemplate(title, createdBy string, questions ...*models.Question) *models.Template {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTemplateID++
	template := &models.Template{ID: f.nextTemplateID, Title: title, CreatedBy: createdBy, CreatedAt: time.Now()}
	f.templates[template.ID] = template
	for i, question := range questions {
		f.nextQuestionID++
		question.ID = f.nextQuestionID
		question.TemplateID = template.ID
		if question.Position == 0 {
			question.Position = i + 1
		}
		f.questions[question.ID] = question
	}
	return template
}

func (f *fakeRepository) seedAssignment(assignment *models.Assignment) *models.Assignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextAssignmentID++
	assignment.ID = f.nextAssignmentID
	if assignment.Status == "" {
		assignment.Status = models.StatusAssigned
	}
	if assignment.CurrentPosition == 0 {
		assignment.CurrentPosition = 1
	}
	f.assignments[assignment.ID] = assignment
	return assignment
}

func (f *fakeRepository) answersFor(assignmentID uint) []*models.Answer {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Answer
	for _, answer := range f.answers {
		if answer.AssignmentID == assignmentID {
			out = append(out, answer)
		}
	}
	return out
}

// ===== TEMPLATE REPO =====

type fakeTemplateRepo struct{ f *fakeRepository }

func (r *fakeTemplateRepo) Create(ctx context.Context, tx *gorm.DB, template *models.Template) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.nextTemplateID++
	template.ID = r.f.nextTemplateID
	template.CreatedAt = time.Now()
	r.f.templates[template.ID] = template
	return nil
}

func (r *fakeTemplateRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Template, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	template, ok := r.f.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *template
	return &copied, nil
}

func (r *fakeTemplateRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Template, error) {
	template, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, question := range r.f.questions {
		if question.TemplateID == id {
			template.Questions = append(template.Questions, *question)
		}
	}
	sort.Slice(template.Questions, func(i, j int) bool {
		return template.Questions[i].Position < template.Questions[j].Position
	})
	return template, nil
}

func (r *fakeTemplateRepo) Update(ctx context.Context, tx *gorm.DB, template *models.Template) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.templates[template.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.f.templates[template.ID] = template
	return nil
}

func (r *fakeTemplateRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	delete(r.f.templates, id)
	return nil
}

func (r *fakeTemplateRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.TemplateFilters) ([]*models.Template, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Template
	for _, template := range r.f.templates {
		out = append(out, template)
	}
	return out, int64(len(out)), nil
}

func (r *fakeTemplateRepo) GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters repositories.TemplateFilters) ([]*models.Template, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Template
	for _, template := range r.f.templates {
		if template.CreatedBy == creatorID {
			out = append(out, template)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeTemplateRepo) Search(ctx context.Context, tx *gorm.DB, query string, filters repositories.TemplateFilters) ([]*models.Template, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Template
	for _, template := range r.f.templates {
		if strings.Contains(strings.ToLower(template.Title), strings.ToLower(query)) {
			out = append(out, template)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeTemplateRepo) ExistsByTitle(ctx context.Context, tx *gorm.DB, title string, creatorID string, excludeID *uint) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, template := range r.f.templates {
		if excludeID != nil && template.ID == *excludeID {
			continue
		}
		if template.CreatedBy == creatorID && template.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTemplateRepo) IsUsedByActiveAssignments(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, assignment := range r.f.assignments {
		if assignment.TemplateID == id && !assignment.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTemplateRepo) GetStats(ctx context.Context, tx *gorm.DB, id uint) (*repositories.TemplateStats, error) {
	return &repositories.TemplateStats{}, nil
}

// ===== QUESTION REPO =====

type fakeQuestionRepo struct{ f *fakeRepository }

func (r *fakeQuestionRepo) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.nextQuestionID++
	question.ID = r.f.nextQuestionID
	r.f.questions[question.ID] = question
	return nil
}

func (r *fakeQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	question, ok := r.f.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return question, nil
}

func (r *fakeQuestionRepo) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.questions[question.ID] = question
	return nil
}

func (r *fakeQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	delete(r.f.questions, id)
	return nil
}

func (r *fakeQuestionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	for _, question := range questions {
		if err := r.Create(ctx, tx, question); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeQuestionRepo) DeleteByTemplate(ctx context.Context, tx *gorm.DB, templateID uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for id, question := range r.f.questions {
		if question.TemplateID == templateID {
			delete(r.f.questions, id)
		}
	}
	return nil
}

func (r *fakeQuestionRepo) GetByTemplate(ctx context.Context, tx *gorm.DB, templateID uint) ([]*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Question
	for _, question := range r.f.questions {
		if question.TemplateID == templateID {
			out = append(out, question)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeQuestionRepo) GetByTemplateAndPosition(ctx context.Context, tx *gorm.DB, templateID uint, position int) (*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, question := range r.f.questions {
		if question.TemplateID == templateID && question.Position == position {
			return question, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeQuestionRepo) CountByTemplate(ctx context.Context, tx *gorm.DB, templateID uint) (int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var count int64
	for _, question := range r.f.questions {
		if question.TemplateID == templateID {
			count++
		}
	}
	return count, nil
}

// ===== ASSIGNMENT REPO =====

type fakeAssignmentRepo struct{ f *fakeRepository }

func (r *fakeAssignmentRepo) Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.nextAssignmentID++
	assignment.ID = r.f.nextAssignmentID
	assignment.CreatedAt = time.Now()
	r.f.assignments[assignment.ID] = assignment
	return nil
}

func (r *fakeAssignmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	assignment, ok := r.f.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *assignment
	return &copied, nil
}

func (r *fakeAssignmentRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	assignment, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if template, ok := r.f.templates[assignment.TemplateID]; ok {
		assignment.Template = *template
	}
	for _, answer := range r.f.answers {
		if answer.AssignmentID == id {
			assignment.Answers = append(assignment.Answers, *answer)
		}
	}
	return assignment, nil
}

func (r *fakeAssignmentRepo) Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	stored := *assignment
	r.f.assignments[assignment.ID] = &stored
	return nil
}

func (r *fakeAssignmentRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	delete(r.f.assignments, id)
	return nil
}

func (r *fakeAssignmentRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Assignment
	for _, assignment := range r.f.assignments {
		out = append(out, assignment)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAssignmentRepo) GetByAssignee(ctx context.Context, tx *gorm.DB, assigneeID string, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Assignment
	for _, assignment := range r.f.assignments {
		if assignment.AssigneeID == assigneeID {
			out = append(out, assignment)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeAssignmentRepo) GetByAssigner(ctx context.Context, tx *gorm.DB, assignerID string, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Assignment
	for _, assignment := range r.f.assignments {
		if assignment.AssignerID == assignerID {
			out = append(out, assignment)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeAssignmentRepo) GetActiveByAssignee(ctx context.Context, tx *gorm.DB, assigneeID string) ([]*models.Assignment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Assignment
	for _, assignment := range r.f.assignments {
		if assignment.AssigneeID == assigneeID && !assignment.Status.IsTerminal() {
			copied := *assignment
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeAssignmentRepo) GetRecentTerminal(ctx context.Context, tx *gorm.DB, assignerID string, since time.Time, limit int) ([]*models.Assignment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Assignment
	for _, assignment := range r.f.assignments {
		if assignment.AssignerID != assignerID {
			continue
		}
		if assignment.Status != models.StatusFinished && assignment.Status != models.StatusExpired {
			continue
		}
		recent := assignment.FinishedAt != nil && !assignment.FinishedAt.Before(since)
		if recent || assignment.Saved {
			copied := *assignment
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAssignmentRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.AssignmentStatus) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	assignment, ok := r.f.assignments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	assignment.Status = status
	return nil
}

func (r *fakeAssignmentRepo) MarkStarted(ctx context.Context, tx *gorm.DB, id uint, startedAt time.Time) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	assignment, ok := r.f.assignments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if assignment.Status != models.StatusAssigned {
		return repositories.ErrOptimisticLock
	}
	assignment.Status = models.StatusInProgress
	assignment.StartedAt = &startedAt
	return nil
}

func (r *fakeAssignmentRepo) MarkFinished(ctx context.Context, tx *gorm.DB, id uint, status models.AssignmentStatus, finishedAt time.Time) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	assignment, ok := r.f.assignments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if assignment.Status.IsTerminal() {
		return repositories.ErrOptimisticLock
	}
	assignment.Status = status
	assignment.FinishedAt = &finishedAt
	return nil
}

func (r *fakeAssignmentRepo) SetSaved(ctx context.Context, tx *gorm.DB, id uint, saved bool) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	assignment, ok := r.f.assignments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	assignment.Saved = saved
	return nil
}

func (r *fakeAssignmentRepo) AdvancePosition(ctx context.Context, tx *gorm.DB, id uint, expectedPosition int) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	assignment, ok := r.f.assignments[id]
	if !ok {
		return false, nil
	}
	if assignment.Status != models.StatusInProgress || assignment.CurrentPosition != expectedPosition {
		return false, nil
	}
	assignment.CurrentPosition = expectedPosition + 1
	return true, nil
}

func (r *fakeAssignmentRepo) GetAssigneeStats(ctx context.Context, tx *gorm.DB, assigneeID string) (*repositories.AssigneeStats, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	stats := &repositories.AssigneeStats{StatusBreakdown: make(map[models.AssignmentStatus]int)}
	for _, assignment := range r.f.assignments {
		if assignment.AssigneeID != assigneeID {
			continue
		}
		stats.TotalAssignments++
		stats.StatusBreakdown[assignment.Status]++
		if assignment.Status == models.StatusFinished {
			stats.FinishedAssignments++
		}
	}
	return stats, nil
}

func (r *fakeAssignmentRepo) CountActiveByTemplate(ctx context.Context, tx *gorm.DB, templateID uint) (int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var count int64
	for _, assignment := range r.f.assignments {
		if assignment.TemplateID == templateID && !assignment.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

// ===== ANSWER REPO =====

type fakeAnswerRepo struct{ f *fakeRepository }

func (r *fakeAnswerRepo) Upsert(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, existing := range r.f.answers {
		if existing.AssignmentID == answer.AssignmentID && existing.QuestionID == answer.QuestionID {
			answer.ID = existing.ID
			r.f.answers[existing.ID] = answer
			return nil
		}
	}
	r.f.nextAnswerID++
	answer.ID = r.f.nextAnswerID
	r.f.answers[answer.ID] = answer
	return nil
}

func (r *fakeAnswerRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	answer, ok := r.f.answers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return answer, nil
}

func (r *fakeAnswerRepo) GetByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.Answer, error) {
	return r.f.answersFor(assignmentID), nil
}

func (r *fakeAnswerRepo) GetByAssignmentAndQuestion(ctx context.Context, tx *gorm.DB, assignmentID, questionID uint) (*models.Answer, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, answer := range r.f.answers {
		if answer.AssignmentID == assignmentID && answer.QuestionID == questionID {
			return answer, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAnswerRepo) CountByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) (int64, error) {
	return int64(len(r.f.answersFor(assignmentID))), nil
}

func (r *fakeAnswerRepo) DeleteByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for id, answer := range r.f.answers {
		if answer.AssignmentID == assignmentID {
			delete(r.f.answers, id)
		}
	}
	return nil
}

// ===== USER REPO =====

type fakeUserRepo struct{ f *fakeRepository }

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	user, ok := r.f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, user := range r.f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if user, err := r.GetByID(ctx, id); err == nil {
			out = append(out, user)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.User
	for _, user := range r.f.users {
		out = append(out, user)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Search(ctx context.Context, query string, filters repositories.UserFilters) ([]*models.User, int64, error) {
	return r.List(ctx, filters)
}

func (r *fakeUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	_, ok := r.f.users[id]
	return ok, nil
}

func (r *fakeUserRepo) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, assigned := range r.f.roles[id] {
		if assigned == role {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) GetChatID(ctx context.Context, id string) (string, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return r.f.chatIDs[id], nil
}
