package entitlements

import (
	"time"

	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists enrollments. Implementations must keep (user, course) unique.
type Store interface {
	UpsertActive(userID, courseID uint, activatedAt time.Time) (*models.Enrollment, error)
	Get(userID, courseID uint) (*models.Enrollment, error)
	ListByUser(userID uint) ([]models.Enrollment, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates an enrollment store backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) UpsertActive(userID, courseID uint, activatedAt time.Time) (*models.Enrollment, error) {
	enrollment := &models.Enrollment{
		UserID:      userID,
		CourseID:    courseID,
		Status:      models.EnrollmentStatusActive,
		ActivatedAt: &activatedAt,
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "course_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"activated_at",
			"expires_at",
			"updated_at",
		}),
	}).Create(enrollment).Error; err != nil {
		return nil, err
	}

	return s.Get(userID, courseID)
}

func (s *gormStore) Get(userID, courseID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := s.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (s *gormStore) ListByUser(userID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := s.db.Preload("Course").Where("user_id = ?", userID).Order("updated_at DESC").Find(&enrollments).Error
	return enrollments, err
}
