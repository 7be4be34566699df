package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/quizdesk/assignment-service/internal/cache"
	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type AssignmentPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAssignmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AssignmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AssignmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	db := a.getDB(tx)
	return db.WithContext(ctx).Create(assignment).Error
}

func (a *AssignmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	db := a.getDB(tx)
	var assignment models.Assignment
	if err := db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	db := a.getDB(tx)
	var assignment models.Assignment
	if err := db.WithContext(ctx).
		Preload("Template").
		Preload("Template.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Answers").
		Preload("Answers.Question").
		First(&assignment, id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Save(assignment).Error; err != nil {
		return err
	}

	cache.SafeInvalidatePattern(ctx, a.cacheManager.Stats, fmt.Sprintf("assignment:%d:*", assignment.ID))
	return nil
}

func (a *AssignmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := a.getDB(tx)
	return db.WithContext(ctx).Delete(&models.Assignment{}, id).Error
}

func (a *AssignmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	db := a.getDB(tx)
	var assignments []*models.Assignment
	var total int64

	// apply filter first
	query := db.WithContext(ctx).Model(&models.Assignment{})
	query = a.helpers.ApplyAssignmentFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Template").Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (a *AssignmentPostgreSQL) GetByAssignee(ctx context.Context, tx *gorm.DB, assigneeID string, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	filters.AssigneeID = &assigneeID
	return a.List(ctx, tx, filters)
}

func (a *AssignmentPostgreSQL) GetByAssigner(ctx context.Context, tx *gorm.DB, assignerID string, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	filters.AssignerID = &assignerID
	return a.List(ctx, tx, filters)
}

func (a *AssignmentPostgreSQL) GetActiveByAssignee(ctx context.Context, tx *gorm.DB, assigneeID string) ([]*models.Assignment, error) {
	db := a.getDB(tx)
	var assignments []*models.Assignment
	if err := db.WithContext(ctx).
		Where("assignee_id = ? AND status IN ?", assigneeID,
			[]models.AssignmentStatus{models.StatusAssigned, models.StatusInProgress}).
		Preload("Template").
		Order("created_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (a *AssignmentPostgreSQL) GetRecentTerminal(ctx context.Context, tx *gorm.DB, assignerID string, since time.Time, limit int) ([]*models.Assignment, error) {
	db := a.getDB(tx)
	var assignments []*models.Assignment
	query := db.WithContext(ctx).
		Where("assigner_id = ? AND status IN ?", assignerID,
			[]models.AssignmentStatus{models.StatusFinished, models.StatusExpired}).
		Where("(finished_at >= ? OR saved = true)", since).
		Preload("Template").
		Preload("Answers").
		Order("finished_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (a *AssignmentPostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.AssignmentStatus) error {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (a *AssignmentPostgreSQL) MarkStarted(ctx context.Context, tx *gorm.DB, id uint, startedAt time.Time) error {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ? AND status = ?", id, models.StatusAssigned).
		Updates(map[string]interface{}{
			"status":     models.StatusInProgress,
			"started_at": startedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrOptimisticLock
	}
	return nil
}

func (a *AssignmentPostgreSQL) MarkFinished(ctx context.Context, tx *gorm.DB, id uint, status models.AssignmentStatus, finishedAt time.Time) error {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ? AND status IN ?", id,
			[]models.AssignmentStatus{models.StatusAssigned, models.StatusInProgress}).
		Updates(map[string]interface{}{
			"status":      status,
			"finished_at": finishedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrOptimisticLock
	}

	cache.SafeInvalidatePattern(ctx, a.cacheManager.Stats, fmt.Sprintf("assignment:%d:*", id))
	return nil
}

func (a *AssignmentPostgreSQL) SetSaved(ctx context.Context, tx *gorm.DB, id uint, saved bool) error {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", id).
		Update("saved", saved)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdvancePosition performs a guarded single-step move of the question cursor.
// The WHERE clause carries the expected position so concurrent submissions for
// the same question advance at most once.
func (a *AssignmentPostgreSQL) AdvancePosition(ctx context.Context, tx *gorm.DB, id uint, expectedPosition int) (bool, error) {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ? AND current_position = ? AND status = ?", id, expectedPosition, models.StatusInProgress).
		Update("current_position", expectedPosition+1)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (a *AssignmentPostgreSQL) GetAssigneeStats(ctx context.Context, tx *gorm.DB, assigneeID string) (*repositories.AssigneeStats, error) {
	db := a.getDB(tx)
	cacheKey := fmt.Sprintf("assignee:%s", assigneeID)
	var stats repositories.AssigneeStats

	err := a.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		result := &repositories.AssigneeStats{
			StatusBreakdown: make(map[models.AssignmentStatus]int),
		}

		type statusCount struct {
			Status models.AssignmentStatus
			Count  int
		}
		var counts []statusCount
		if err := db.WithContext(ctx).
			Model(&models.Assignment{}).
			Select("status, COUNT(*) as count").
			Where("assignee_id = ?", assigneeID).
			Group("status").
			Scan(&counts).Error; err != nil {
			return nil, err
		}
		for _, c := range counts {
			result.StatusBreakdown[c.Status] = c.Count
			result.TotalAssignments += c.Count
			if c.Status == models.StatusFinished {
				result.FinishedAssignments = c.Count
			}
		}

		var avg *float64
		err := db.WithContext(ctx).Raw(`
			SELECT AVG(per.pct) FROM (
				SELECT a.id,
					COUNT(*) FILTER (WHERE ans.is_correct) * 100.0 / NULLIF(COUNT(ans.is_correct), 0) AS pct
				FROM assignments a
				JOIN answers ans ON ans.assignment_id = a.id
				WHERE a.assignee_id = ? AND a.status = ?
				GROUP BY a.id
			) per`, assigneeID, models.StatusFinished).Scan(&avg).Error
		if err != nil {
			return nil, err
		}
		if avg != nil {
			result.AverageScore = *avg
		}

		return result, nil
	})

	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (a *AssignmentPostgreSQL) CountActiveByTemplate(ctx context.Context, tx *gorm.DB, templateID uint) (int64, error) {
	db := a.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("template_id = ? AND status IN ?", templateID,
			[]models.AssignmentStatus{models.StatusAssigned, models.StatusInProgress}).
		Count(&count).Error
	return count, err
}
