package repository

import (
	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
)

type unitRepository struct {
	db *gorm.DB
}

// NewUnitRepository creates a new unit repository instance
func NewUnitRepository(db *gorm.DB) UnitRepository {
	return &unitRepository{db: db}
}

func (r *unitRepository) Create(unit *models.Unit) error {
	return r.db.Create(unit).Error
}

func (r *unitRepository) GetByID(id uint) (*models.Unit, error) {
	var unit models.Unit
	err := r.db.First(&unit, id).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// ListByCourse returns the units of a course with their materials, ordered by position
func (r *unitRepository) ListByCourse(courseID uint) ([]models.Unit, error) {
	var units []models.Unit
	err := r.db.Where("course_id = ?", courseID).
		Preload("Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Order("position ASC, id ASC").
		Find(&units).Error
	return units, err
}

func (r *unitRepository) Update(unit *models.Unit) error {
	return r.db.Save(unit).Error
}

// Delete removes a unit and its materials
func (r *unitRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("unit_id = ?", id).Delete(&models.Material{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Unit{}, id).Error
	})
}
