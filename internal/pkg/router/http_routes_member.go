package router

import (
	"github.com/ManuelReschke/CourseFox/internal/pkg/constants"
	"github.com/ManuelReschke/CourseFox/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

// registerMemberRoutes installs everything that needs a signed-in user.
func (h HttpRouter) registerMemberRoutes(app *fiber.App) {
	ctl := h.deps.Controllers
	enrolled := h.requireEnrollment()

	// Checkout
	payments := app.Group(constants.PaymentsPrefix, middleware.RequireAuth)
	payments.Get("/my", ctl.Payment.HandleMyPayments)
	payments.Post("/mp/preferences", h.checkoutLimiter(), ctl.Payment.HandleMercadoPagoPreference)
	payments.Post("/pp/create-order", h.checkoutLimiter(), ctl.Payment.HandlePayPalOrder)

	enrollments := app.Group("/enrollments", middleware.RequireAuth)
	enrollments.Get("/my", ctl.Enrollment.HandleMine)
	enrollments.Post("/:courseId/mp", h.checkoutLimiter(), ctl.Payment.HandleEnrollMercadoPago)
	enrollments.Post("/:courseId/paypal", h.checkoutLimiter(), ctl.Payment.HandleEnrollPayPal)

	// Course content
	app.Get("/courses/:courseId/units", middleware.RequireAuth, enrolled, ctl.Course.HandleUnits)
	app.Get("/materials/:materialId/url", middleware.RequireAuth, enrolled, ctl.Course.HandleMaterialURL)

	// Progress; PUT checks enrollment against the course in the body.
	progress := app.Group("/progress", middleware.RequireAuth)
	progress.Put("/", ctl.Progress.HandleUpsert)
	progress.Get("/course/:courseId", enrolled, ctl.Progress.HandleCourse)
	progress.Get("/material/:materialId", enrolled, ctl.Progress.HandleMaterial)

	// Comments
	app.Post("/materials/:materialId/comments", middleware.RequireAuth, enrolled, ctl.Comment.HandleCreate)
	app.Get("/materials/:materialId/comments", middleware.RequireAuth, enrolled, ctl.Comment.HandleList)
	comments := app.Group("/comments/:commentId", middleware.RequireAuth, enrolled)
	comments.Get("/replies", ctl.Comment.HandleReplies)
	comments.Post("/like", ctl.Comment.HandleLike)
	comments.Delete("/like", ctl.Comment.HandleUnlike)
	comments.Delete("/", ctl.Comment.HandleDelete)
}
