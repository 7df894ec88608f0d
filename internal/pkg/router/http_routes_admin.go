package router

import (
	"github.com/ManuelReschke/CourseFox/internal/pkg/constants"
	"github.com/ManuelReschke/CourseFox/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	ctl := h.deps.Controllers
	adminGroup := app.Group(constants.AdminPrefix, middleware.RequireAdmin)

	// Dashboard
	adminGroup.Get("/stats", ctl.Stats.HandleDashboard)

	// Courses
	adminGroup.Post("/courses", ctl.Admin.HandleCreateCourse)
	adminGroup.Patch("/courses/:courseId", ctl.Admin.HandleUpdateCourse)
	adminGroup.Delete("/courses/:courseId", ctl.Admin.HandleDeleteCourse)

	// Units and materials
	adminGroup.Post("/courses/:courseId/units", ctl.Admin.HandleCreateUnit)
	adminGroup.Patch("/units/:unitId", ctl.Admin.HandleUpdateUnit)
	adminGroup.Delete("/units/:unitId", ctl.Admin.HandleDeleteUnit)
	adminGroup.Post("/units/:unitId/materials", ctl.Admin.HandleCreateMaterial)
	adminGroup.Patch("/materials/:materialId", ctl.Admin.HandleUpdateMaterial)
	adminGroup.Delete("/materials/:materialId", ctl.Admin.HandleDeleteMaterial)

	// Uploads go straight to the bucket
	adminGroup.Post("/upload/s3-url", ctl.Admin.HandleUploadURL)

	// Enrollments
	adminGroup.Post("/enrollments/activate", ctl.Admin.HandleActivateEnrollment)

	// Custom categories
	adminGroup.Post("/categories", ctl.Category.HandleCreate)
	adminGroup.Patch("/categories/:categoryId", ctl.Category.HandleUpdate)
	adminGroup.Delete("/categories/:categoryId", ctl.Category.HandleDelete)
}
