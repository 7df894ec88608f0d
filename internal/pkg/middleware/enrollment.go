package middleware

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/repository"
	icuser "github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

// AccessChecker reports whether a user holds an active enrollment.
type AccessChecker interface {
	HasAccess(ctx context.Context, userID, courseID uint) (bool, error)
}

// CourseResolver maps nested resources back to their course.
type CourseResolver interface {
	CourseIDOfMaterial(materialID uint) (uint, error)
	CourseIDOfComment(commentID uint) (uint, error)
}

type repositoryResolver struct {
	materials repository.MaterialRepository
	comments  repository.CommentRepository
}

// NewCourseResolver resolves through the material and comment repositories.
func NewCourseResolver(materials repository.MaterialRepository, comments repository.CommentRepository) CourseResolver {
	return &repositoryResolver{materials: materials, comments: comments}
}

func (r *repositoryResolver) CourseIDOfMaterial(materialID uint) (uint, error) {
	return r.materials.CourseIDOf(materialID)
}

func (r *repositoryResolver) CourseIDOfComment(commentID uint) (uint, error) {
	comment, err := r.comments.GetByID(commentID)
	if err != nil {
		return 0, err
	}
	return r.materials.CourseIDOf(comment.MaterialID)
}

// RequireEnrollment lets admins and actively enrolled users through. The
// course is taken from :courseId, :materialId or :commentId, in that order.
// Must run after RequireAuth.
func RequireEnrollment(access AccessChecker, resolver CourseResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := icuser.GetUserContext(c)
		if !uc.IsLoggedIn {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
		}

		courseID, err := resolveCourseID(c, resolver)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "resource not found"})
			}
			if errors.Is(err, errBadParam) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id", "message": err.Error()})
			}
			log.Errorf("[Enrollment] resolve course for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not check enrollment"})
		}
		if uc.IsAdmin {
			return c.Next()
		}

		ok, err := access.HasAccess(c.UserContext(), uc.UserID, courseID)
		if err != nil {
			log.Errorf("[Enrollment] access check user=%d course=%d: %v", uc.UserID, courseID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not check enrollment"})
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not_enrolled", "message": "an active enrollment is required"})
		}
		return c.Next()
	}
}

var errBadParam = errors.New("invalid id parameter")

func resolveCourseID(c *fiber.Ctx, resolver CourseResolver) (uint, error) {
	if raw := c.Params("courseId"); raw != "" {
		return parseParamID(raw)
	}
	if raw := c.Params("materialId"); raw != "" {
		id, err := parseParamID(raw)
		if err != nil {
			return 0, err
		}
		return resolver.CourseIDOfMaterial(id)
	}
	if raw := c.Params("commentId"); raw != "" {
		id, err := parseParamID(raw)
		if err != nil {
			return 0, err
		}
		return resolver.CourseIDOfComment(id)
	}
	return 0, errBadParam
}

func parseParamID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errBadParam
	}
	return uint(id), nil
}
