package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentStatusPending  EnrollmentStatus = "PENDING"
	EnrollmentStatusActive   EnrollmentStatus = "ACTIVE"
	EnrollmentStatusExpired  EnrollmentStatus = "EXPIRED"
	EnrollmentStatusCanceled EnrollmentStatus = "CANCELED"
)

// Enrollment grants a user access to a course. There is one row per (user, course).
type Enrollment struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"not null;index:ux_enrollments_user_course,unique,priority:1" json:"userId"`
	CourseID    uint             `gorm:"not null;index:ux_enrollments_user_course,unique,priority:2;index" json:"courseId"`
	Course      *Course          `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Status      EnrollmentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ActivatedAt *time.Time       `gorm:"type:timestamp;default:null" json:"activatedAt,omitempty"`
	ExpiresAt   *time.Time       `gorm:"type:timestamp;default:null" json:"expiresAt,omitempty"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
}

// GrantsAccess reports whether the enrollment currently unlocks course content.
func (e *Enrollment) GrantsAccess(now time.Time) bool {
	if e.Status != EnrollmentStatusActive {
		return false
	}
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}
