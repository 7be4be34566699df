package repositories

import (
	"time"

	"github.com/quizdesk/assignment-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type TemplateFilters struct {
	CreatedBy *string    `json:"created_by"`
	Title     *string    `json:"title"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`    // "created_at", "title"
	SortOrder string     `json:"sort_order"` // "asc", "desc"
}

type AssignmentFilters struct {
	Status     *models.AssignmentStatus `json:"status"`
	AssigneeID *string                  `json:"assignee_id"`
	AssignerID *string                  `json:"assigner_id"`
	TemplateID *uint                    `json:"template_id"`
	Saved      *bool                    `json:"saved"`
	DateFrom   *time.Time               `json:"date_from"`
	DateTo     *time.Time               `json:"date_to"`
	Limit      int                      `json:"limit"`
	Offset     int                      `json:"offset"`
	SortBy     string                   `json:"sort_by"`
	SortOrder  string                   `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

type TemplateStats struct {
	QuestionCount       int     `json:"question_count"`
	TotalAssignments    int     `json:"total_assignments"`
	FinishedAssignments int     `json:"finished_assignments"`
	ExpiredAssignments  int     `json:"expired_assignments"`
	AverageScore        float64 `json:"average_score"`
}

type AssigneeStats struct {
	TotalAssignments    int                             `json:"total_assignments"`
	StatusBreakdown     map[models.AssignmentStatus]int `json:"status_breakdown"`
	AverageScore        float64                         `json:"average_score"`
	FinishedAssignments int                             `json:"finished_assignments"`
}
