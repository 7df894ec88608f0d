package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

// EnrollmentLister reads a user's enrollments with their course.
type EnrollmentLister interface {
	ListForUser(ctx context.Context, userID uint) ([]models.Enrollment, error)
}

type EnrollmentController struct {
	enrollments EnrollmentLister
}

func NewEnrollmentController(enrollments EnrollmentLister) *EnrollmentController {
	return &EnrollmentController{enrollments: enrollments}
}

type enrolledCourseView struct {
	ID       uint                  `json:"id"`
	Title    string                `json:"title"`
	CoverURL string                `json:"coverUrl,omitempty"`
	Category models.CourseCategory `json:"category"`
}

type enrollmentView struct {
	ID          uint                    `json:"id"`
	CourseID    uint                    `json:"courseId"`
	Status      models.EnrollmentStatus `json:"status"`
	ActivatedAt *time.Time              `json:"activatedAt,omitempty"`
	ExpiresAt   *time.Time              `json:"expiresAt,omitempty"`
	Course      *enrolledCourseView     `json:"course,omitempty"`
}

// HandleMine lists the caller's enrollments.
func (ec *EnrollmentController) HandleMine(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	rows, err := ec.enrollments.ListForUser(c.UserContext(), userID)
	if err != nil {
		log.Errorf("[Enrollment] list for user %d: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load enrollments")
	}

	items := make([]enrollmentView, 0, len(rows))
	for i := range rows {
		e := rows[i]
		v := enrollmentView{
			ID:          e.ID,
			CourseID:    e.CourseID,
			Status:      e.Status,
			ActivatedAt: e.ActivatedAt,
			ExpiresAt:   e.ExpiresAt,
		}
		if e.Course != nil {
			v.Course = &enrolledCourseView{
				ID:       e.Course.ID,
				Title:    e.Course.Title,
				CoverURL: e.Course.CoverURL,
				Category: e.Course.Category,
			}
		}
		items = append(items, v)
	}
	return c.JSON(fiber.Map{"items": items})
}
