package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/storage"
)

// ObjectStore is the admin view of the course bucket.
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*storage.PresignedRequest, error)
	Delete(ctx context.Context, key string) error
}

// EnrollmentGranter activates course access outside the payment flow.
type EnrollmentGranter interface {
	Activate(ctx context.Context, userID, courseID uint) (*models.Enrollment, error)
}

// AdminController handles catalog management using the repository pattern
type AdminController struct {
	repos       *repository.Repositories
	cache       CourseCache
	objects     ObjectStore
	enrollments EnrollmentGranter
}

func NewAdminController(repos *repository.Repositories, cache CourseCache, objects ObjectStore, enrollments EnrollmentGranter) *AdminController {
	return &AdminController{
		repos:       repos,
		cache:       cache,
		objects:     objects,
		enrollments: enrollments,
	}
}

type createCourseRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=200"`
	Description string  `json:"description" validate:"max=10000"`
	PriceUSD    float64 `json:"priceUsd" validate:"gte=0"`
	CoverURL    string  `json:"coverUrl" validate:"omitempty,url,max=500"`
	Category    string  `json:"category"`
}

type updateCourseRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	PriceUSD    *float64 `json:"priceUsd"`
	CoverURL    *string  `json:"coverUrl"`
	Status      *string  `json:"status"`
	Category    *string  `json:"category"`
}

// HandleCreateCourse creates an ACTIVE course.
func (ac *AdminController) HandleCreateCourse(c *fiber.Ctx) error {
	var req createCourseRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	course := &models.Course{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		PriceUSD:    req.PriceUSD,
		CoverURL:    req.CoverURL,
		Status:      models.CourseStatusActive,
		Category:    models.CategoryOther,
	}
	if req.Category != "" {
		category, ok := models.ParseCourseCategory(req.Category)
		if !ok {
			return jsonError(c, fiber.StatusBadRequest, "invalid_category", "unknown category")
		}
		course.Category = category
	}
	if err := course.Validate(); err != nil {
		return badRequest(c, err)
	}
	if err := ac.repos.Course.Create(course); err != nil {
		log.Errorf("[Admin] create course: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not create course")
	}
	log.Infof("[Admin] course %d created", course.ID)
	return c.Status(fiber.StatusCreated).JSON(course)
}

// HandleUpdateCourse applies the fields present in the body.
func (ac *AdminController) HandleUpdateCourse(c *fiber.Ctx) error {
	id, ok := paramID(c, "courseId")
	if !ok {
		return invalidID(c, "courseId")
	}
	var req updateCourseRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	course, err := ac.repos.Course.GetByID(id)
	if err != nil {
		return ac.notFoundOr500(c, err, "course")
	}
	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.PriceUSD != nil {
		course.PriceUSD = *req.PriceUSD
	}
	if req.CoverURL != nil {
		course.CoverURL = *req.CoverURL
	}
	if req.Status != nil {
		course.Status = models.CourseStatus(strings.ToUpper(*req.Status))
	}
	if req.Category != nil {
		category, ok := models.ParseCourseCategory(*req.Category)
		if !ok {
			return jsonError(c, fiber.StatusBadRequest, "invalid_category", "unknown category")
		}
		course.Category = category
	}
	if err := course.Validate(); err != nil {
		return badRequest(c, err)
	}
	if err := ac.repos.Course.Update(course); err != nil {
		log.Errorf("[Admin] update course %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not update course")
	}
	ac.cache.Invalidate(c.UserContext(), id)
	return c.JSON(course)
}

// HandleDeleteCourse removes the course with its units and materials.
func (ac *AdminController) HandleDeleteCourse(c *fiber.Ctx) error {
	id, ok := paramID(c, "courseId")
	if !ok {
		return invalidID(c, "courseId")
	}
	if _, err := ac.repos.Course.GetByID(id); err != nil {
		return ac.notFoundOr500(c, err, "course")
	}
	materials, err := ac.repos.Material.ListByCourse(id)
	if err != nil {
		log.Warnf("[Admin] list materials of course %d before delete: %v", id, err)
	}
	if err := ac.repos.Course.Delete(id); err != nil {
		log.Errorf("[Admin] delete course %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not delete course")
	}
	for i := range materials {
		ac.deleteObject(c.UserContext(), materials[i].StorageKey)
	}
	ac.cache.Invalidate(c.UserContext(), id)
	log.Infof("[Admin] course %d deleted", id)
	return c.JSON(fiber.Map{"ok": true})
}

type unitRequest struct {
	Title *string `json:"title" validate:"omitempty,min=1,max=200"`
	Order *int    `json:"order" validate:"omitempty,gte=0"`
}

func (ac *AdminController) HandleCreateUnit(c *fiber.Ctx) error {
	courseID, ok := paramID(c, "courseId")
	if !ok {
		return invalidID(c, "courseId")
	}
	var req unitRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	if req.Title == nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "title failed required")
	}
	if _, err := ac.repos.Course.GetByID(courseID); err != nil {
		return ac.notFoundOr500(c, err, "course")
	}

	unit := &models.Unit{CourseID: courseID, Title: strings.TrimSpace(*req.Title)}
	if req.Order != nil {
		unit.Position = *req.Order
	}
	if err := unit.Validate(); err != nil {
		return badRequest(c, err)
	}
	if err := ac.repos.Unit.Create(unit); err != nil {
		log.Errorf("[Admin] create unit for course %d: %v", courseID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not create unit")
	}
	ac.cache.Invalidate(c.UserContext(), courseID)
	return c.Status(fiber.StatusCreated).JSON(unit)
}

func (ac *AdminController) HandleUpdateUnit(c *fiber.Ctx) error {
	id, ok := paramID(c, "unitId")
	if !ok {
		return invalidID(c, "unitId")
	}
	var req unitRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	unit, err := ac.repos.Unit.GetByID(id)
	if err != nil {
		return ac.notFoundOr500(c, err, "unit")
	}
	if req.Title != nil {
		unit.Title = strings.TrimSpace(*req.Title)
	}
	if req.Order != nil {
		unit.Position = *req.Order
	}
	if err := unit.Validate(); err != nil {
		return badRequest(c, err)
	}
	if err := ac.repos.Unit.Update(unit); err != nil {
		log.Errorf("[Admin] update unit %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not update unit")
	}
	ac.cache.Invalidate(c.UserContext(), unit.CourseID)
	return c.JSON(unit)
}

// HandleDeleteUnit removes the unit and its materials.
func (ac *AdminController) HandleDeleteUnit(c *fiber.Ctx) error {
	id, ok := paramID(c, "unitId")
	if !ok {
		return invalidID(c, "unitId")
	}
	unit, err := ac.repos.Unit.GetByID(id)
	if err != nil {
		return ac.notFoundOr500(c, err, "unit")
	}
	materials, _ := ac.repos.Material.ListByUnit(id)
	if err := ac.repos.Unit.Delete(id); err != nil {
		log.Errorf("[Admin] delete unit %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not delete unit")
	}
	for i := range materials {
		ac.deleteObject(c.UserContext(), materials[i].StorageKey)
	}
	ac.cache.Invalidate(c.UserContext(), unit.CourseID)
	return c.JSON(fiber.Map{"ok": true})
}

type materialRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Type        *string `json:"type" validate:"omitempty,oneof=PDF IMG VIDEO"`
	StorageKey  *string `json:"storageKey" validate:"omitempty,max=500"`
	ExternalURL *string `json:"externalUrl" validate:"omitempty,url,max=500"`
	SizeBytes   *int64  `json:"sizeBytes" validate:"omitempty,gte=0"`
	Checksum    *string `json:"checksum" validate:"omitempty,max=128"`
}

func (r *materialRequest) apply(m *models.Material) {
	if r.Title != nil {
		m.Title = strings.TrimSpace(*r.Title)
	}
	if r.Type != nil {
		m.Type = models.MaterialType(*r.Type)
	}
	if r.StorageKey != nil {
		m.StorageKey = strings.TrimSpace(*r.StorageKey)
	}
	if r.ExternalURL != nil {
		m.ExternalURL = strings.TrimSpace(*r.ExternalURL)
	}
	if r.SizeBytes != nil {
		m.SizeBytes = *r.SizeBytes
	}
	if r.Checksum != nil {
		m.Checksum = *r.Checksum
	}
}

func (ac *AdminController) HandleCreateMaterial(c *fiber.Ctx) error {
	unitID, ok := paramID(c, "unitId")
	if !ok {
		return invalidID(c, "unitId")
	}
	var req materialRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	if req.Type == nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "type failed required")
	}
	unit, err := ac.repos.Unit.GetByID(unitID)
	if err != nil {
		return ac.notFoundOr500(c, err, "unit")
	}

	material := &models.Material{UnitID: unitID}
	req.apply(material)
	if material.StorageKey != "" && !storage.ValidKey(material.StorageKey) {
		return jsonError(c, fiber.StatusBadRequest, "invalid_storage_key", "storageKey is not a valid object key")
	}
	if err := material.Validate(); err != nil {
		return badRequest(c, err)
	}
	if err := ac.repos.Material.Create(material); err != nil {
		log.Errorf("[Admin] create material for unit %d: %v", unitID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not create material")
	}
	ac.cache.Invalidate(c.UserContext(), unit.CourseID)
	return c.Status(fiber.StatusCreated).JSON(material)
}

func (ac *AdminController) HandleUpdateMaterial(c *fiber.Ctx) error {
	id, ok := paramID(c, "materialId")
	if !ok {
		return invalidID(c, "materialId")
	}
	var req materialRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	material, err := ac.repos.Material.GetByID(id)
	if err != nil {
		return ac.notFoundOr500(c, err, "material")
	}
	previousKey := material.StorageKey
	req.apply(material)
	if material.StorageKey != "" && !storage.ValidKey(material.StorageKey) {
		return jsonError(c, fiber.StatusBadRequest, "invalid_storage_key", "storageKey is not a valid object key")
	}
	if err := material.Validate(); err != nil {
		return badRequest(c, err)
	}
	if err := ac.repos.Material.Update(material); err != nil {
		log.Errorf("[Admin] update material %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not update material")
	}
	if previousKey != "" && previousKey != material.StorageKey {
		ac.deleteObject(c.UserContext(), previousKey)
	}
	if courseID, err := ac.repos.Material.CourseIDOf(id); err == nil {
		ac.cache.Invalidate(c.UserContext(), courseID)
	}
	return c.JSON(material)
}

func (ac *AdminController) HandleDeleteMaterial(c *fiber.Ctx) error {
	id, ok := paramID(c, "materialId")
	if !ok {
		return invalidID(c, "materialId")
	}
	material, err := ac.repos.Material.GetByID(id)
	if err != nil {
		return ac.notFoundOr500(c, err, "material")
	}
	courseID, _ := ac.repos.Material.CourseIDOf(id)
	if err := ac.repos.Material.Delete(id); err != nil {
		log.Errorf("[Admin] delete material %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not delete material")
	}
	ac.deleteObject(c.UserContext(), material.StorageKey)
	if courseID != 0 {
		ac.cache.Invalidate(c.UserContext(), courseID)
	}
	return c.JSON(fiber.Map{"ok": true})
}

type uploadURLRequest struct {
	Key          string `json:"key" validate:"omitempty,max=400"`
	Filename     string `json:"filename" validate:"omitempty,max=200"`
	Folder       string `json:"folder" validate:"omitempty,max=200"`
	ContentType  string `json:"contentType" validate:"required,max=100"`
	ExpiresInSec int    `json:"expiresInSec" validate:"omitempty,gte=30,lte=3600"`
}

// HandleUploadURL returns a presigned PUT. Callers pass an explicit key or a
// filename from which a unique key is derived.
func (ac *AdminController) HandleUploadURL(c *fiber.Ctx) error {
	var req uploadURLRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	key := strings.TrimSpace(req.Key)
	switch {
	case key != "":
		if !storage.ValidKey(key) {
			return jsonError(c, fiber.StatusBadRequest, "invalid_storage_key", "key is not a valid object key")
		}
	case strings.TrimSpace(req.Filename) != "":
		key = storage.UploadKey(req.Folder, req.Filename)
	default:
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "key or filename is required")
	}

	presigned, err := ac.objects.PresignPut(c.UserContext(), key, req.ContentType, time.Duration(req.ExpiresInSec)*time.Second)
	if err != nil {
		log.Errorf("[Admin] presign upload %s: %v", key, err)
		return jsonError(c, fiber.StatusServiceUnavailable, "storage_unavailable", "could not create upload url")
	}
	return c.JSON(presigned)
}

type activateEnrollmentRequest struct {
	UserID   uint `json:"userId" validate:"required"`
	CourseID uint `json:"courseId" validate:"required"`
}

// HandleActivateEnrollment grants access manually, e.g. after an offline payment.
func (ac *AdminController) HandleActivateEnrollment(c *fiber.Ctx) error {
	var req activateEnrollmentRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	if _, err := ac.repos.User.GetByID(req.UserID); err != nil {
		return ac.notFoundOr500(c, err, "user")
	}
	if _, err := ac.repos.Course.GetByID(req.CourseID); err != nil {
		return ac.notFoundOr500(c, err, "course")
	}
	enrollment, err := ac.enrollments.Activate(c.UserContext(), req.UserID, req.CourseID)
	if err != nil {
		log.Errorf("[Admin] activate enrollment user=%d course=%d: %v", req.UserID, req.CourseID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not activate enrollment")
	}
	return c.JSON(enrollment)
}

func (ac *AdminController) deleteObject(ctx context.Context, key string) {
	if key == "" || ac.objects == nil {
		return
	}
	if err := ac.objects.Delete(ctx, key); err != nil {
		log.Warnf("[Admin] delete object %s: %v", key, err)
	}
}

func (ac *AdminController) notFoundOr500(c *fiber.Ctx, err error, what string) error {
	if isNotFound(err) {
		return jsonError(c, fiber.StatusNotFound, "not_found", what+" not found")
	}
	log.Errorf("[Admin] load %s: %v", what, err)
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load "+what)
}
