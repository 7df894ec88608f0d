package repository

import (
	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository creates a new progress repository instance
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

// Upsert writes progress keyed by (user, material) and reloads the stored row
func (r *progressRepository) Upsert(progress *models.Progress) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "material_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"course_id",
			"unit_id",
			"completed",
			"completed_at",
			"progress_percentage",
			"last_position",
			"updated_at",
		}),
	}).Create(progress).Error; err != nil {
		return err
	}

	return r.db.Where("user_id = ? AND material_id = ?", progress.UserID, progress.MaterialID).
		First(progress).Error
}

func (r *progressRepository) GetByMaterial(userID, materialID uint) (*models.Progress, error) {
	var progress models.Progress
	err := r.db.Where("user_id = ? AND material_id = ?", userID, materialID).First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *progressRepository) ListByCourse(userID, courseID uint) ([]models.Progress, error) {
	var rows []models.Progress
	err := r.db.Where("user_id = ? AND course_id = ?", userID, courseID).Order("material_id ASC").Find(&rows).Error
	return rows, err
}
