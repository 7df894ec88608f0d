package repository

import (
	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByProviderAccount(provider, providerUserID string) (*models.User, error)
	LinkProviderAccount(account *models.ProviderAccount) error
	Update(user *models.User) error
}

// CourseFilter narrows a course listing. Zero values mean "no filter".
type CourseFilter struct {
	Status   models.CourseStatus
	Category models.CourseCategory
	Search   string
	Offset   int
	Limit    int
}

// CategoryCount is the number of courses in one category.
type CategoryCount struct {
	Category models.CourseCategory `json:"category"`
	Count    int64                 `json:"count"`
}

// CourseRepository defines the interface for course catalog operations
type CourseRepository interface {
	Create(course *models.Course) error
	GetByID(id uint) (*models.Course, error)
	GetWithUnits(id uint) (*models.Course, error)
	List(filter CourseFilter) ([]models.Course, int64, error)
	Update(course *models.Course) error
	Delete(id uint) error
	CountByCategory() ([]CategoryCount, error)
}

// UnitRepository defines the interface for course unit operations
type UnitRepository interface {
	Create(unit *models.Unit) error
	GetByID(id uint) (*models.Unit, error)
	ListByCourse(courseID uint) ([]models.Unit, error)
	Update(unit *models.Unit) error
	Delete(id uint) error
}

// MaterialRepository defines the interface for unit material operations
type MaterialRepository interface {
	Create(material *models.Material) error
	GetByID(id uint) (*models.Material, error)
	ListByUnit(unitID uint) ([]models.Material, error)
	ListByCourse(courseID uint) ([]models.Material, error)
	CourseIDOf(materialID uint) (uint, error)
	Update(material *models.Material) error
	Delete(id uint) error
}

// CategoryRepository defines the interface for custom category operations
type CategoryRepository interface {
	Create(category *models.Category) error
	GetByID(id uint) (*models.Category, error)
	List(includeInactive bool) ([]models.Category, error)
	Update(category *models.Category) error
	Deactivate(id uint) error
}

// ProgressRepository defines the interface for learning progress operations
type ProgressRepository interface {
	Upsert(progress *models.Progress) error
	GetByMaterial(userID, materialID uint) (*models.Progress, error)
	ListByCourse(userID, courseID uint) ([]models.Progress, error)
}

// CommentRepository defines the interface for material comment operations
type CommentRepository interface {
	Create(comment *models.Comment) error
	GetByID(id uint) (*models.Comment, error)
	ListTopLevel(materialID uint, offset, limit int) ([]models.Comment, int64, error)
	ListReplies(parentID uint) ([]models.Comment, error)
	CountReplies(parentIDs []uint) (map[uint]int64, error)
	LikedBy(userID uint, commentIDs []uint) (map[uint]bool, error)
	Like(commentID, userID uint) (bool, error)
	Unlike(commentID, userID uint) (bool, error)
	Delete(id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User     UserRepository
	Course   CourseRepository
	Unit     UnitRepository
	Material MaterialRepository
	Category CategoryRepository
	Progress ProgressRepository
	Comment  CommentRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Course:   NewCourseRepository(db),
		Unit:     NewUnitRepository(db),
		Material: NewMaterialRepository(db),
		Category: NewCategoryRepository(db),
		Progress: NewProgressRepository(db),
		Comment:  NewCommentRepository(db),
	}
}
