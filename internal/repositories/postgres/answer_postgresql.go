package postgres

import (
	"context"
	"fmt"

	"github.com/quizdesk/assignment-service/internal/models"
	"github.com/quizdesk/assignment-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB, _ *redis.Client) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// Upsert inserts the answer or, when one already exists for the same
// (assignment, question) pair, replaces its payload and grading result.
func (a *AnswerPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	db := a.getDB(tx)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "assignment_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"payload", "is_correct", "answered_at", "updated_at",
			}),
		}).
		Create(answer).Error
	if err != nil {
		return fmt.Errorf("failed to upsert answer: %w", err)
	}
	return nil
}

func (a *AnswerPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error) {
	db := a.getDB(tx)
	var answer models.Answer
	if err := db.WithContext(ctx).First(&answer, id).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (a *AnswerPostgreSQL) GetByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.Answer, error) {
	db := a.getDB(tx)
	var answers []*models.Answer
	if err := db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Preload("Question").
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (a *AnswerPostgreSQL) GetByAssignmentAndQuestion(ctx context.Context, tx *gorm.DB, assignmentID, questionID uint) (*models.Answer, error) {
	db := a.getDB(tx)
	var answer models.Answer
	if err := db.WithContext(ctx).
		Where("assignment_id = ? AND question_id = ?", assignmentID, questionID).
		First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (a *AnswerPostgreSQL) CountByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) (int64, error) {
	db := a.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("assignment_id = ?", assignmentID).
		Count(&count).Error
	return count, err
}

func (a *AnswerPostgreSQL) DeleteByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) error {
	db := a.getDB(tx)
	// Hard delete: canceled assignments must not retain responses
	return db.WithContext(ctx).
		Unscoped().
		Where("assignment_id = ?", assignmentID).
		Delete(&models.Answer{}).Error
}
