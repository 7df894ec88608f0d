package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "ACTIVE"
	CourseStatusInactive CourseStatus = "INACTIVE"
)

// CourseCategory is the fixed set of system categories a course can belong to.
type CourseCategory string

const (
	CategoryProgramming         CourseCategory = "PROGRAMMING"
	CategoryDesign              CourseCategory = "DESIGN"
	CategoryBusiness            CourseCategory = "BUSINESS"
	CategoryMarketing           CourseCategory = "MARKETING"
	CategoryHealth              CourseCategory = "HEALTH"
	CategoryMusic               CourseCategory = "MUSIC"
	CategoryPhotography         CourseCategory = "PHOTOGRAPHY"
	CategoryPersonalDevelopment CourseCategory = "PERSONAL_DEVELOPMENT"
	CategoryOther               CourseCategory = "OTHER"
)

// SystemCategories lists the built-in categories in display order.
var SystemCategories = []CourseCategory{
	CategoryProgramming,
	CategoryDesign,
	CategoryBusiness,
	CategoryMarketing,
	CategoryHealth,
	CategoryMusic,
	CategoryPhotography,
	CategoryPersonalDevelopment,
	CategoryOther,
}

// ParseCourseCategory normalizes user input to a system category.
func ParseCourseCategory(raw string) (CourseCategory, bool) {
	c := CourseCategory(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range SystemCategories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

type Course struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Description string         `gorm:"type:text" json:"description" validate:"max=10000"`
	PriceUSD    float64        `gorm:"type:decimal(10,2);not null;default:0" json:"priceUsd" validate:"gte=0"`
	CoverURL    string         `gorm:"type:varchar(500);default:null" json:"coverUrl,omitempty" validate:"omitempty,url,max=500"`
	Status      CourseStatus   `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status" validate:"oneof=ACTIVE INACTIVE"`
	Category    CourseCategory `gorm:"type:varchar(50);not null;default:'OTHER';index" json:"category" validate:"oneof=PROGRAMMING DESIGN BUSINESS MARKETING HEALTH MUSIC PHOTOGRAPHY PERSONAL_DEVELOPMENT OTHER"`
	Units       []Unit         `gorm:"foreignKey:CourseID" json:"units,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Course) Validate() error {
	return validator.New().Struct(c)
}

// IsActive reports whether the course can be purchased.
func (c *Course) IsActive() bool {
	return c.Status == CourseStatusActive
}

type Unit struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CourseID  uint       `gorm:"not null;index" json:"courseId"`
	Title     string     `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=1,max=200"`
	Position  int        `gorm:"not null;default:0" json:"order"`
	Materials []Material `gorm:"foreignKey:UnitID" json:"materials,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (u *Unit) Validate() error {
	return validator.New().Struct(u)
}

type MaterialType string

const (
	MaterialTypePDF   MaterialType = "PDF"
	MaterialTypeImage MaterialType = "IMG"
	MaterialTypeVideo MaterialType = "VIDEO"
)

type Material struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	UnitID      uint         `gorm:"not null;index" json:"unitId"`
	Title       string       `gorm:"type:varchar(200)" json:"title" validate:"max=200"`
	Type        MaterialType `gorm:"type:varchar(10);not null" json:"type" validate:"oneof=PDF IMG VIDEO"`
	StorageKey  string       `gorm:"type:varchar(500);default:null" json:"storageKey,omitempty" validate:"max=500"`
	ExternalURL string       `gorm:"type:varchar(500);default:null" json:"externalUrl,omitempty" validate:"omitempty,url,max=500"`
	SizeBytes   int64        `gorm:"default:0" json:"sizeBytes" validate:"gte=0"`
	Checksum    string       `gorm:"type:varchar(128);default:null" json:"checksum,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Validate checks field rules and requires either a storage key or an external URL.
func (m *Material) Validate() error {
	if err := validator.New().Struct(m); err != nil {
		return err
	}
	if strings.TrimSpace(m.StorageKey) == "" && strings.TrimSpace(m.ExternalURL) == "" {
		return ErrMaterialWithoutSource
	}
	return nil
}
