package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Category is an admin-defined category shown next to the system categories.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name" validate:"required,min=2,max=100"`
	Description string    `gorm:"type:text" json:"description" validate:"max=1000"`
	Active      bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (c *Category) Validate() error {
	return validator.New().Struct(c)
}
