package models

import "time"

// Progress tracks how far a user got through one material.
type Progress struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             uint       `gorm:"not null;index:ux_progress_user_material,unique,priority:1;index:idx_progress_user_course,priority:1" json:"userId"`
	CourseID           uint       `gorm:"not null;index:idx_progress_user_course,priority:2" json:"courseId"`
	UnitID             uint       `gorm:"not null;index" json:"unitId"`
	MaterialID         uint       `gorm:"not null;index:ux_progress_user_material,unique,priority:2" json:"materialId"`
	Completed          bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt        *time.Time `gorm:"type:timestamp;default:null" json:"completedAt,omitempty"`
	ProgressPercentage int        `gorm:"not null;default:0" json:"progressPercentage"`
	LastPosition       int        `gorm:"not null;default:0" json:"lastPosition"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Normalize clamps the percentage and keeps completion fields consistent.
func (p *Progress) Normalize(now time.Time) {
	if p.ProgressPercentage < 0 {
		p.ProgressPercentage = 0
	}
	if p.ProgressPercentage > 100 {
		p.ProgressPercentage = 100
	}
	if p.LastPosition < 0 {
		p.LastPosition = 0
	}
	if p.ProgressPercentage == 100 {
		p.Completed = true
	}
	if p.Completed {
		p.ProgressPercentage = 100
		if p.CompletedAt == nil {
			p.CompletedAt = &now
		}
	} else {
		p.CompletedAt = nil
	}
}
