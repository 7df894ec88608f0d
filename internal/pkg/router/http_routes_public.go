package router

import (
	"github.com/ManuelReschke/CourseFox/internal/pkg/constants"
	"github.com/ManuelReschke/CourseFox/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	ctl := h.deps.Controllers

	// Auth
	app.Post("/auth/register", ctl.Auth.HandleRegister)
	app.Post("/auth/login", ctl.Auth.HandleLogin)
	app.Get("/auth/me", middleware.RequireAuth, ctl.Auth.HandleMe)
	app.Post("/auth/logout", ctl.Auth.HandleLogout)

	// Social OAuth
	app.Get("/auth/:provider", ctl.Auth.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", ctl.Auth.HandleOAuthCallback)

	// Catalog
	app.Get("/courses", ctl.Course.HandleList)
	app.Get("/courses/:courseId", ctl.Course.HandleDetail)
	app.Get("/categories", ctl.Category.HandleList)
	app.Get("/categories/stats", ctl.Category.HandleStats)
	app.Get("/enrollments/:courseId/payment-options", ctl.Payment.HandlePaymentOptions)

	// Provider webhooks: no auth, authenticity is checked against the provider.
	app.Post(constants.MercadoPagoWebhookPath, ctl.Payment.HandleMercadoPagoWebhook)
	app.Post(constants.PayPalWebhookPath, ctl.Payment.HandlePayPalWebhook)

	// Browser back-channel after checkout
	app.Get(constants.PaymentSuccessPath, ctl.Payment.HandleReturnSuccess)
	app.Get(constants.PaymentFailurePath, ctl.Payment.HandleReturnFailure)
	app.Get(constants.PaymentPendingPath, ctl.Payment.HandleReturnPending)
}
