package repositories

import (
	"context"

	"github.com/quizdesk/assignment-service/internal/models"
	"gorm.io/gorm"
)

// TemplateRepository interface for quiz template operations
type TemplateRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, template *models.Template) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Template, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Template, error)
	Update(ctx context.Context, tx *gorm.DB, template *models.Template) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters TemplateFilters) ([]*models.Template, int64, error)
	GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters TemplateFilters) ([]*models.Template, int64, error)
	Search(ctx context.Context, tx *gorm.DB, query string, filters TemplateFilters) ([]*models.Template, int64, error)

	// Validation and checks
	ExistsByTitle(ctx context.Context, tx *gorm.DB, title string, creatorID string, excludeID *uint) (bool, error)
	IsUsedByActiveAssignments(ctx context.Context, tx *gorm.DB, id uint) (bool, error)

	// Statistics
	GetStats(ctx context.Context, tx *gorm.DB, id uint) (*TemplateStats, error)
}

// QuestionRepository interface for template question operations
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Bulk operations
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	DeleteByTemplate(ctx context.Context, tx *gorm.DB, templateID uint) error

	// Query operations
	GetByTemplate(ctx context.Context, tx *gorm.DB, templateID uint) ([]*models.Question, error)
	GetByTemplateAndPosition(ctx context.Context, tx *gorm.DB, templateID uint, position int) (*models.Question, error)
	CountByTemplate(ctx context.Context, tx *gorm.DB, templateID uint) (int64, error)
}
