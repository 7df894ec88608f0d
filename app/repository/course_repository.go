package repository

import (
	"strings"

	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
)

// courseRepository implements the CourseRepository interface
type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository creates a new course repository instance
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

// Create creates a new course
func (r *courseRepository) Create(course *models.Course) error {
	return r.db.Create(course).Error
}

// GetByID retrieves a course without its units
func (r *courseRepository) GetByID(id uint) (*models.Course, error) {
	var course models.Course
	err := r.db.First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// GetWithUnits retrieves a course with units and materials in display order
func (r *courseRepository) GetWithUnits(id uint) (*models.Course, error) {
	var course models.Course
	err := r.db.
		Preload("Units", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Units.Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns one page of courses matching the filter and the total match count
func (r *courseRepository) List(filter CourseFilter) ([]models.Course, int64, error) {
	query := r.db.Model(&models.Course{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []models.Course
	err := query.Order("created_at DESC").Offset(filter.Offset).Limit(filter.Limit).Find(&courses).Error
	return courses, total, err
}

// Update updates an existing course
func (r *courseRepository) Update(course *models.Course) error {
	return r.db.Save(course).Error
}

// Delete removes a course together with its units and their materials
func (r *courseRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		unitIDs := tx.Model(&models.Unit{}).Select("id").Where("course_id = ?", id)
		if err := tx.Where("unit_id IN (?)", unitIDs).Delete(&models.Material{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.Unit{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Course{}, id).Error
	})
}

// CountByCategory returns the number of active courses per category
func (r *courseRepository) CountByCategory() ([]CategoryCount, error) {
	var counts []CategoryCount
	err := r.db.Model(&models.Course{}).
		Select("category, COUNT(*) AS count").
		Where("status = ?", models.CourseStatusActive).
		Group("category").
		Scan(&counts).Error
	return counts, err
}
