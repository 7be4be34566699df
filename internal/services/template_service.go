package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
	"github.com/quizdesk/assignment-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type templateService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewTemplateService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) TemplateService {
	return &templateService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *templateService) Create(ctx context.Context, req *CreateTemplateRequest, creatorID string) (*TemplateResponse, error) {
	s.logger.Info("Creating template", "creator_id", creatorID, "title", req.Title)

	// Validate request with business rules
	if errors := s.validator.GetBusinessValidator().ValidateTemplateCreate(req); len(errors) > 0 {
		return nil, errors
	}

	canCreate, err := s.canCreateTemplate(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("permission check failed: %w", err)
	}
	if !canCreate {
		return nil, NewPermissionError(creatorID, 0, "template", "create", "insufficient role permissions")
	}

	// Duplicate titles per creator are rejected early
	exists, err := s.repo.Template().ExistsByTitle(ctx, nil, req.Title, creatorID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check title uniqueness: %w", err)
	}
	if exists {
		return nil, NewValidationError(fmt.Sprintf("template with title %q already exists", req.Title), nil)
	}

	var template *models.Template
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		template = &models.Template{
			Title:     req.Title,
			CreatedBy: creatorID,
		}
		if err := txRepo.Template().Create(ctx, nil, template); err != nil {
			return fmt.Errorf("failed to create template: %w", err)
		}

		questions, err := buildQuestions(template.ID, req.Questions)
		if err != nil {
			return err
		}
		if err := txRepo.Question().CreateBatch(ctx, nil, questions); err != nil {
			return fmt.Errorf("failed to create questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Template created successfully", "template_id", template.ID, "questions", len(req.Questions))

	return s.GetByIDWithQuestions(ctx, template.ID, creatorID)
}

func (s *templateService) GetByID(ctx context.Context, id uint, userID string) (*TemplateResponse, error) {
	template, err := s.repo.Template().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	count, err := s.repo.Question().CountByTemplate(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	template.QuestionCount = int(count)

	return s.buildTemplateResponse(ctx, template, userID), nil
}

func (s *templateService) GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*TemplateResponse, error) {
	template, err := s.repo.Template().GetByIDWithQuestions(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	template.QuestionCount = len(template.Questions)

	// The answer key stays with the creator; other callers get the
	// assignee-safe projection.
	if template.CreatedBy != userID {
		for i := range template.Questions {
			template.Questions[i].Content = nil
		}
	}

	return s.buildTemplateResponse(ctx, template, userID), nil
}

func (s *templateService) Update(ctx context.Context, id uint, req *UpdateTemplateRequest, userID string) (*TemplateResponse, error) {
	s.logger.Info("Updating template", "template_id", id, "user_id", userID)

	template, err := s.repo.Template().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	if template.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "template", "update", "not the creator")
	}

	// Templates referenced by active assignments are frozen
	inUse, err := s.repo.Template().IsUsedByActiveAssignments(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check template usage: %w", err)
	}
	if inUse {
		return nil, ErrTemplateInUse
	}

	if req.Title != nil && *req.Title != template.Title {
		exists, err := s.repo.Template().ExistsByTitle(ctx, nil, *req.Title, userID, &id)
		if err != nil {
			return nil, fmt.Errorf("failed to check title uniqueness: %w", err)
		}
		if exists {
			return nil, NewValidationError(fmt.Sprintf("template with title %q already exists", *req.Title), nil)
		}
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if req.Title != nil {
			template.Title = *req.Title
		}
		if err := txRepo.Template().Update(ctx, nil, template); err != nil {
			return fmt.Errorf("failed to update template: %w", err)
		}

		// A question list replaces the whole set; positions are reassigned
		if req.Questions != nil {
			if errs := s.validator.GetBusinessValidator().ValidateQuestionSpecs(req.Questions); len(errs) > 0 {
				return errs
			}
			if err := txRepo.Question().DeleteByTemplate(ctx, nil, id); err != nil {
				return fmt.Errorf("failed to delete old questions: %w", err)
			}
			questions, err := buildQuestions(id, req.Questions)
			if err != nil {
				return err
			}
			if err := txRepo.Question().CreateBatch(ctx, nil, questions); err != nil {
				return fmt.Errorf("failed to create questions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Template updated successfully", "template_id", id)

	return s.GetByIDWithQuestions(ctx, id, userID)
}

func (s *templateService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting template", "template_id", id, "user_id", userID)

	template, err := s.repo.Template().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTemplateNotFound
		}
		return fmt.Errorf("failed to get template: %w", err)
	}

	if template.CreatedBy != userID {
		isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
		if err != nil {
			return fmt.Errorf("permission check failed: %w", err)
		}
		if !isAdmin {
			return NewPermissionError(userID, id, "template", "delete", "not the creator")
		}
	}

	inUse, err := s.repo.Template().IsUsedByActiveAssignments(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to check template usage: %w", err)
	}
	if inUse {
		return ErrTemplateInUse
	}

	if err := s.repo.Template().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	s.logger.Info("Template deleted successfully", "template_id", id)
	return nil
}

// ===== LIST AND SEARCH OPERATIONS =====

func (s *templateService) List(ctx context.Context, filters repositories.TemplateFilters, userID string) (*TemplateListResponse, error) {
	templates, total, err := s.repo.Template().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return s.buildTemplateListResponse(ctx, templates, total, filters, userID), nil
}

func (s *templateService) GetByCreator(ctx context.Context, creatorID string, filters repositories.TemplateFilters) (*TemplateListResponse, error) {
	templates, total, err := s.repo.Template().GetByCreator(ctx, nil, creatorID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates by creator: %w", err)
	}
	return s.buildTemplateListResponse(ctx, templates, total, filters, creatorID), nil
}

func (s *templateService) Search(ctx context.Context, query string, filters repositories.TemplateFilters, userID string) (*TemplateListResponse, error) {
	templates, total, err := s.repo.Template().Search(ctx, nil, query, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search templates: %w", err)
	}
	return s.buildTemplateListResponse(ctx, templates, total, filters, userID), nil
}

// ===== STATISTICS =====

func (s *templateService) GetStats(ctx context.Context, id uint, userID string) (*repositories.TemplateStats, error) {
	template, err := s.repo.Template().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	if template.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "template", "stats", "not the creator")
	}

	return s.repo.Template().GetStats(ctx, nil, id)
}

// ===== PERMISSION CHECKS =====

func (s *templateService) CanEdit(ctx context.Context, templateID uint, userID string) (bool, error) {
	template, err := s.repo.Template().GetByID(ctx, nil, templateID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrTemplateNotFound
		}
		return false, err
	}
	return template.CreatedBy == userID, nil
}

func (s *templateService) CanDelete(ctx context.Context, templateID uint, userID string) (bool, error) {
	canEdit, err := s.CanEdit(ctx, templateID, userID)
	if err != nil {
		return false, err
	}
	if canEdit {
		return true, nil
	}
	return s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
}

// ===== HELPER METHODS =====

func (s *templateService) canCreateTemplate(ctx context.Context, userID string) (bool, error) {
	isEditor, err := s.repo.User().HasRole(ctx, userID, models.RoleEditor)
	if err != nil {
		return false, err
	}
	if isEditor {
		return true, nil
	}
	return s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
}

func (s *templateService) buildTemplateResponse(ctx context.Context, template *models.Template, userID string) *TemplateResponse {
	isCreator := template.CreatedBy == userID
	return &TemplateResponse{
		Template:  template,
		CanEdit:   isCreator,
		CanDelete: isCreator,
	}
}

func (s *templateService) buildTemplateListResponse(ctx context.Context, templates []*models.Template, total int64, filters repositories.TemplateFilters, userID string) *TemplateListResponse {
	responses := make([]*TemplateResponse, 0, len(templates))
	for _, template := range templates {
		responses = append(responses, s.buildTemplateResponse(ctx, template, userID))
	}
	page := 1
	if filters.Limit > 0 {
		page = filters.Offset/filters.Limit + 1
	}
	return &TemplateListResponse{
		Templates: responses,
		Total:     total,
		Page:      page,
		Size:      len(responses),
	}
}

// buildQuestions turns validated question specs into rows, assigning 1-based
// positions in request order and encoding the per-kind content payload.
func buildQuestions(templateID uint, specs []QuestionSpec) ([]*models.Question, error) {
	questions := make([]*models.Question, 0, len(specs))
	for i, spec := range specs {
		var (
			content datatypes.JSON
			err     error
		)
		switch spec.Kind {
		case models.Open:
			content = nil
		case models.SingleSelect:
			if len(spec.CorrectIndices) != 1 {
				return nil, NewValidationError(fmt.Sprintf("question %d: single-select needs exactly one correct option", i+1), nil)
			}
			content, err = models.NewSingleSelectContent(spec.Options, spec.CorrectIndices[0])
		case models.MultiSelect:
			content, err = models.NewMultiSelectContent(spec.Options, spec.CorrectIndices)
		default:
			return nil, NewValidationError(fmt.Sprintf("question %d: unknown kind %q", i+1, spec.Kind), nil)
		}
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("question %d: %s", i+1, err.Error()), err)
		}

		questions = append(questions, &models.Question{
			TemplateID: templateID,
			Position:   i + 1,
			Kind:       spec.Kind,
			Prompt:     spec.Prompt,
			Content:    content,
		})
	}
	return questions, nil
}
