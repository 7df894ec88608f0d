package repository

import (
	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
)

type materialRepository struct {
	db *gorm.DB
}

// NewMaterialRepository creates a new material repository instance
func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) Create(material *models.Material) error {
	return r.db.Create(material).Error
}

func (r *materialRepository) GetByID(id uint) (*models.Material, error) {
	var material models.Material
	err := r.db.First(&material, id).Error
	if err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepository) ListByUnit(unitID uint) ([]models.Material, error) {
	var materials []models.Material
	err := r.db.Where("unit_id = ?", unitID).Order("id ASC").Find(&materials).Error
	return materials, err
}

// ListByCourse returns every material of every unit in a course
func (r *materialRepository) ListByCourse(courseID uint) ([]models.Material, error) {
	var materials []models.Material
	err := r.db.
		Joins("JOIN units ON units.id = materials.unit_id").
		Where("units.course_id = ?", courseID).
		Order("units.position ASC, materials.id ASC").
		Find(&materials).Error
	return materials, err
}

// CourseIDOf resolves the course a material belongs to
func (r *materialRepository) CourseIDOf(materialID uint) (uint, error) {
	var row struct {
		CourseID uint
	}
	err := r.db.Model(&models.Material{}).
		Select("units.course_id AS course_id").
		Joins("JOIN units ON units.id = materials.unit_id").
		Where("materials.id = ?", materialID).
		Take(&row).Error
	if err != nil {
		return 0, err
	}
	return row.CourseID, nil
}

func (r *materialRepository) Update(material *models.Material) error {
	return r.db.Save(material).Error
}

func (r *materialRepository) Delete(id uint) error {
	return r.db.Delete(&models.Material{}, id).Error
}
