package postgres

import (
	"context"

	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
	"gorm.io/gorm"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// CountAssignments counts assignments for a template
func (h *SharedHelpers) CountAssignments(ctx context.Context, templateID uint) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("template_id = ?", templateID).
		Count(&count).Error
	return count, err
}

// CountAssignmentsByStatus counts assignments for a template by status
func (h *SharedHelpers) CountAssignmentsByStatus(ctx context.Context, templateID uint, status models.AssignmentStatus) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("template_id = ? AND status = ?", templateID, status).
		Count(&count).Error
	return count, err
}

// ApplyTemplateFilters applies common filters to template queries
func (h *SharedHelpers) ApplyTemplateFilters(query *gorm.DB, filters repositories.TemplateFilters) *gorm.DB {
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.Title != nil {
		query = query.Where("title ILIKE ?", "%"+*filters.Title+"%")
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyAssignmentFilters applies common filters to assignment queries
func (h *SharedHelpers) ApplyAssignmentFilters(query *gorm.DB, filters repositories.AssignmentFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *filters.AssigneeID)
	}
	if filters.AssignerID != nil {
		query = query.Where("assigner_id = ?", *filters.AssignerID)
	}
	if filters.TemplateID != nil {
		query = query.Where("template_id = ?", *filters.TemplateID)
	}
	if filters.Saved != nil {
		query = query.Where("saved = ?", *filters.Saved)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at":  true,
		"updated_at":  true,
		"id":          true,
		"title":       true,
		"status":      true,
		"finished_at": true,
	}

	// Validate and set sort column
	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	// Validate and set sort order
	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
