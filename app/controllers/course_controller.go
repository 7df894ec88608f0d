package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

// CourseCache holds rendered course details.
type CourseCache interface {
	Get(ctx context.Context, courseID uint, dst any) bool
	Put(ctx context.Context, courseID uint, v any)
	Invalidate(ctx context.Context, courseID uint)
}

// MaterialSigner issues short-lived read links for stored materials.
type MaterialSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	DefaultTTL() time.Duration
}

// CourseController serves the public catalog and enrolled content.
type CourseController struct {
	courses   repository.CourseRepository
	units     repository.UnitRepository
	materials repository.MaterialRepository
	cache     CourseCache
	signer    MaterialSigner
}

func NewCourseController(repos *repository.Repositories, cache CourseCache, signer MaterialSigner) *CourseController {
	return &CourseController{
		courses:   repos.Course,
		units:     repos.Unit,
		materials: repos.Material,
		cache:     cache,
		signer:    signer,
	}
}

// HandleList pages through courses. Only admins may see inactive ones.
func (cc *CourseController) HandleList(c *fiber.Ctx) error {
	page, size, offset := pagination(c)
	filter := repository.CourseFilter{
		Status: models.CourseStatusActive,
		Search: strings.TrimSpace(c.Query("search")),
		Offset: offset,
		Limit:  size,
	}

	if raw := c.Query("category"); raw != "" {
		category, ok := models.ParseCourseCategory(raw)
		if !ok {
			return jsonError(c, fiber.StatusBadRequest, "invalid_category", "unknown category")
		}
		filter.Category = category
	}
	if usercontext.IsAdmin(c) {
		switch strings.ToUpper(c.Query("status")) {
		case "":
		case string(models.CourseStatusActive):
		case string(models.CourseStatusInactive):
			filter.Status = models.CourseStatusInactive
		case "ALL":
			filter.Status = ""
		default:
			return jsonError(c, fiber.StatusBadRequest, "invalid_status", "status must be ACTIVE, INACTIVE or ALL")
		}
	}

	items, total, err := cc.courses.List(filter)
	if err != nil {
		log.Errorf("[Catalog] list courses: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not list courses")
	}
	if items == nil {
		items = []models.Course{}
	}
	return c.JSON(fiber.Map{"items": items, "total": total, "page": page, "pageSize": size})
}

// HandleDetail returns one course; the response is cached until an admin write.
func (cc *CourseController) HandleDetail(c *fiber.Ctx) error {
	id, ok := paramID(c, "courseId")
	if !ok {
		return invalidID(c, "courseId")
	}

	var course models.Course
	if cc.cache != nil && cc.cache.Get(c.UserContext(), id, &course) {
		if !course.IsActive() && !usercontext.IsAdmin(c) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "course not found")
		}
		return c.JSON(course)
	}

	found, err := cc.courses.GetByID(id)
	if err != nil {
		if isNotFound(err) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "course not found")
		}
		log.Errorf("[Catalog] get course %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load course")
	}
	if cc.cache != nil {
		cc.cache.Put(c.UserContext(), id, found)
	}
	if !found.IsActive() && !usercontext.IsAdmin(c) {
		return jsonError(c, fiber.StatusNotFound, "not_found", "course not found")
	}
	return c.JSON(found)
}

// HandleUnits lists the units with their materials in order. Guarded by
// RequireEnrollment.
func (cc *CourseController) HandleUnits(c *fiber.Ctx) error {
	id, ok := paramID(c, "courseId")
	if !ok {
		return invalidID(c, "courseId")
	}
	if _, err := cc.courses.GetByID(id); err != nil {
		if isNotFound(err) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "course not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load course")
	}

	units, err := cc.units.ListByCourse(id)
	if err != nil {
		log.Errorf("[Catalog] units of course %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not list units")
	}
	materials, err := cc.materials.ListByCourse(id)
	if err != nil {
		log.Errorf("[Catalog] materials of course %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not list materials")
	}

	byUnit := make(map[uint][]models.Material, len(units))
	for _, m := range materials {
		m.StorageKey = ""
		byUnit[m.UnitID] = append(byUnit[m.UnitID], m)
	}
	for i := range units {
		units[i].Materials = byUnit[units[i].ID]
	}
	if units == nil {
		units = []models.Unit{}
	}
	return c.JSON(units)
}

// HandleMaterialURL returns a signed link to a material. With a :courseId in
// the route the material must belong to that course.
func (cc *CourseController) HandleMaterialURL(c *fiber.Ctx) error {
	materialID, ok := paramID(c, "materialId")
	if !ok {
		return invalidID(c, "materialId")
	}

	material, err := cc.materials.GetByID(materialID)
	if err != nil {
		if isNotFound(err) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "material not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load material")
	}
	if c.Params("courseId") != "" {
		courseID, _ := paramID(c, "courseId")
		owner, err := cc.materials.CourseIDOf(materialID)
		if err != nil || owner != courseID {
			return jsonError(c, fiber.StatusNotFound, "not_found", "material not found")
		}
	}

	if material.StorageKey == "" {
		if material.ExternalURL == "" {
			return jsonError(c, fiber.StatusNotFound, "not_found", "material has no content")
		}
		return c.JSON(fiber.Map{"url": material.ExternalURL, "external": true})
	}

	ttl := cc.signer.DefaultTTL()
	url, err := cc.signer.PresignGet(c.UserContext(), material.StorageKey, ttl)
	if err != nil {
		log.Errorf("[Catalog] sign material %d: %v", materialID, err)
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "could not sign material url")
	}
	return c.JSON(fiber.Map{"url": url, "expiresIn": int(ttl / time.Second)})
}
