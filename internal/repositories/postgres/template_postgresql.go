package postgres

import (
	"context"
	"fmt"

	"github.com/quizdesk/assignment-service/internal/cache"
	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type TemplatePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewTemplatePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.TemplateRepository {
	return &TemplatePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (t *TemplatePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return t.db
}

func (t *TemplatePostgreSQL) Create(ctx context.Context, tx *gorm.DB, template *models.Template) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Create(template).Error; err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, t.cacheManager.Template, "list:*")
	return nil
}

func (t *TemplatePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Template, error) {
	db := t.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var template models.Template

	err := t.cacheManager.Template.CacheOrExecute(ctx, cacheKey, &template, cache.TemplateCacheConfig.TTL, func() (interface{}, error) {
		var dbTemplate models.Template
		if err := db.WithContext(ctx).First(&dbTemplate, id).Error; err != nil {
			return nil, err
		}
		return &dbTemplate, nil
	})

	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (t *TemplatePostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Template, error) {
	db := t.getDB(tx)
	var template models.Template
	if err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&template, id).Error; err != nil {
		return nil, err
	}
	template.QuestionCount = len(template.Questions)
	return &template, nil
}

func (t *TemplatePostgreSQL) Update(ctx context.Context, tx *gorm.DB, template *models.Template) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Save(template).Error; err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	cache.InvalidateTemplateCache(ctx, t.cacheManager, template.ID, template.CreatedBy)
	return nil
}

func (t *TemplatePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Delete(&models.Template{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	cache.SafeDelete(ctx, t.cacheManager.Template, fmt.Sprintf("id:%d", id), fmt.Sprintf("details:%d", id))
	cache.SafeInvalidatePattern(ctx, t.cacheManager.Template, "list:*")
	return nil
}

func (t *TemplatePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.TemplateFilters) ([]*models.Template, int64, error) {
	db := t.getDB(tx)
	var templates []*models.Template
	var total int64

	// apply filter first
	query := db.WithContext(ctx).Model(&models.Template{})
	query = t.helpers.ApplyTemplateFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = t.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Questions").Find(&templates).Error; err != nil {
		return nil, 0, err
	}

	for _, template := range templates {
		template.QuestionCount = len(template.Questions)
	}

	return templates, total, nil
}

func (t *TemplatePostgreSQL) GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters repositories.TemplateFilters) ([]*models.Template, int64, error) {
	filters.CreatedBy = &creatorID
	return t.List(ctx, tx, filters)
}

func (t *TemplatePostgreSQL) Search(ctx context.Context, tx *gorm.DB, searchQuery string, filters repositories.TemplateFilters) ([]*models.Template, int64, error) {
	filters.Title = &searchQuery
	return t.List(ctx, tx, filters)
}

func (t *TemplatePostgreSQL) ExistsByTitle(ctx context.Context, tx *gorm.DB, title string, creatorID string, excludeID *uint) (bool, error) {
	db := t.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.Template{}).
		Where("title = ? AND created_by = ?", title, creatorID)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (t *TemplatePostgreSQL) IsUsedByActiveAssignments(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	db := t.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("template_id = ? AND status IN ?", id, []models.AssignmentStatus{models.StatusAssigned, models.StatusInProgress}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (t *TemplatePostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, id uint) (*repositories.TemplateStats, error) {
	db := t.getDB(tx)
	cacheKey := fmt.Sprintf("template:%d", id)
	var stats repositories.TemplateStats

	err := t.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var result repositories.TemplateStats

		var questionCount int64
		if err := db.WithContext(ctx).
			Model(&models.Question{}).
			Where("template_id = ?", id).
			Count(&questionCount).Error; err != nil {
			return nil, err
		}
		result.QuestionCount = int(questionCount)

		type statusCount struct {
			Status models.AssignmentStatus
			Count  int
		}
		var counts []statusCount
		if err := db.WithContext(ctx).
			Model(&models.Assignment{}).
			Select("status, COUNT(*) as count").
			Where("template_id = ?", id).
			Group("status").
			Scan(&counts).Error; err != nil {
			return nil, err
		}
		for _, c := range counts {
			result.TotalAssignments += c.Count
			switch c.Status {
			case models.StatusFinished:
				result.FinishedAssignments = c.Count
			case models.StatusExpired:
				result.ExpiredAssignments = c.Count
			}
		}

		// Average share of correct answers over gradable questions, finished runs only
		var avg *float64
		err := db.WithContext(ctx).Raw(`
			SELECT AVG(per.pct) FROM (
				SELECT a.id,
					COUNT(*) FILTER (WHERE ans.is_correct) * 100.0 / NULLIF(COUNT(ans.is_correct), 0) AS pct
				FROM assignments a
				JOIN answers ans ON ans.assignment_id = a.id
				WHERE a.template_id = ? AND a.status = ?
				GROUP BY a.id
			) per`, id, models.StatusFinished).Scan(&avg).Error
		if err != nil {
			return nil, err
		}
		if avg != nil {
			result.AverageScore = *avg
		}

		return &result, nil
	})

	if err != nil {
		return nil, err
	}
	return &stats, nil
}
