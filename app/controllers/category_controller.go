package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

type CategoryController struct {
	categories repository.CategoryRepository
	courses    repository.CourseRepository
}

func NewCategoryController(repos *repository.Repositories) *CategoryController {
	return &CategoryController{categories: repos.Category, courses: repos.Course}
}

type systemCategoryView struct {
	Value models.CourseCategory `json:"value"`
	Label string                `json:"label"`
}

func categoryLabel(c models.CourseCategory) string {
	words := strings.Split(strings.ToLower(string(c)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// HandleList returns the built-in categories and the custom ones. Admins can
// ask for deactivated custom categories with ?all=true.
func (cc *CategoryController) HandleList(c *fiber.Ctx) error {
	system := make([]systemCategoryView, 0, len(models.SystemCategories))
	for _, cat := range models.SystemCategories {
		system = append(system, systemCategoryView{Value: cat, Label: categoryLabel(cat)})
	}

	includeInactive := usercontext.IsAdmin(c) && c.QueryBool("all", false)
	custom, err := cc.categories.List(includeInactive)
	if err != nil {
		log.Errorf("[Category] list: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load categories")
	}
	return c.JSON(fiber.Map{
		"system": system,
		"custom": custom,
	})
}

// HandleStats counts courses per system category, including empty ones.
func (cc *CategoryController) HandleStats(c *fiber.Ctx) error {
	counts, err := cc.courses.CountByCategory()
	if err != nil {
		log.Errorf("[Category] stats: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load category stats")
	}
	byCategory := make(map[models.CourseCategory]int64, len(counts))
	var total int64
	for _, row := range counts {
		byCategory[row.Category] = row.Count
		total += row.Count
	}
	stats := make([]repository.CategoryCount, 0, len(models.SystemCategories))
	for _, cat := range models.SystemCategories {
		stats = append(stats, repository.CategoryCount{Category: cat, Count: byCategory[cat]})
	}
	return c.JSON(fiber.Map{"items": stats, "total": total})
}

type categoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Active      *bool   `json:"active"`
}

func (cc *CategoryController) HandleCreate(c *fiber.Ctx) error {
	var req categoryRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	if req.Name == nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "name failed required")
	}
	category := &models.Category{Name: strings.TrimSpace(*req.Name), Active: true}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if _, system := models.ParseCourseCategory(category.Name); system {
		return jsonError(c, fiber.StatusConflict, "category_exists", "name collides with a system category")
	}
	if err := category.Validate(); err != nil {
		return badRequest(c, err)
	}
	if err := cc.categories.Create(category); err != nil {
		log.Errorf("[Category] create %q: %v", category.Name, err)
		return jsonError(c, fiber.StatusConflict, "category_exists", "category could not be created")
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (cc *CategoryController) HandleUpdate(c *fiber.Ctx) error {
	id, ok := paramID(c, "categoryId")
	if !ok {
		return invalidID(c, "categoryId")
	}
	var req categoryRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	category, err := cc.categories.GetByID(id)
	if err != nil {
		if isNotFound(err) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "category not found")
		}
		log.Errorf("[Category] load %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load category")
	}
	if req.Name != nil {
		category.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.Active != nil {
		category.Active = *req.Active
	}
	if err := category.Validate(); err != nil {
		return badRequest(c, err)
	}
	if err := cc.categories.Update(category); err != nil {
		log.Errorf("[Category] update %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not update category")
	}
	return c.JSON(category)
}

// HandleDelete deactivates a custom category. Rows are kept.
func (cc *CategoryController) HandleDelete(c *fiber.Ctx) error {
	id, ok := paramID(c, "categoryId")
	if !ok {
		return invalidID(c, "categoryId")
	}
	if _, err := cc.categories.GetByID(id); err != nil {
		if isNotFound(err) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "category not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load category")
	}
	if err := cc.categories.Deactivate(id); err != nil {
		log.Errorf("[Category] deactivate %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not delete category")
	}
	return c.JSON(fiber.Map{"ok": true})
}
