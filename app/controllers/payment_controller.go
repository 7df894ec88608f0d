package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/billing"
	"github.com/ManuelReschke/CourseFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

const webhookTimeout = 15 * time.Second

// PaymentService is the billing surface the HTTP layer depends on.
type PaymentService interface {
	CreateCheckout(ctx context.Context, providerName string, userID, courseID uint) (*billing.CheckoutResult, error)
	HandleWebhook(ctx context.Context, providerName string, req billing.WebhookRequest) (*billing.WebhookOutcome, error)
	ListPayments(ctx context.Context, userID uint) ([]models.Payment, error)
	Providers() []string
}

// WebhookCounter tallies webhook deliveries per provider and outcome.
type WebhookCounter interface {
	Add(ctx context.Context, provider, outcome string)
}

type PaymentController struct {
	payments PaymentService
	courses  repository.CourseRepository
	counter  WebhookCounter
}

func NewPaymentController(payments PaymentService, courses repository.CourseRepository, tally WebhookCounter) *PaymentController {
	return &PaymentController{payments: payments, courses: courses, counter: tally}
}

type checkoutRequest struct {
	CourseID uint `json:"courseId" validate:"required"`
}

// HandleMercadoPagoPreference opens a MercadoPago checkout preference.
func (pc *PaymentController) HandleMercadoPagoPreference(c *fiber.Ctx) error {
	return pc.checkoutFromBody(c, models.PaymentProviderMercadoPago)
}

// HandlePayPalOrder opens a PayPal order.
func (pc *PaymentController) HandlePayPalOrder(c *fiber.Ctx) error {
	return pc.checkoutFromBody(c, models.PaymentProviderPayPal)
}

// HandleEnrollMercadoPago is the course-scoped alias of HandleMercadoPagoPreference.
func (pc *PaymentController) HandleEnrollMercadoPago(c *fiber.Ctx) error {
	return pc.checkoutFromPath(c, models.PaymentProviderMercadoPago)
}

func (pc *PaymentController) HandleEnrollPayPal(c *fiber.Ctx) error {
	return pc.checkoutFromPath(c, models.PaymentProviderPayPal)
}

func (pc *PaymentController) checkoutFromBody(c *fiber.Ctx, provider string) error {
	var req checkoutRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	return pc.checkout(c, provider, req.CourseID)
}

func (pc *PaymentController) checkoutFromPath(c *fiber.Ctx, provider string) error {
	courseID, ok := paramID(c, "courseId")
	if !ok {
		return invalidID(c, "courseId")
	}
	return pc.checkout(c, provider, courseID)
}

func (pc *PaymentController) checkout(c *fiber.Ctx, provider string, courseID uint) error {
	userID := usercontext.GetUserID(c)
	result, err := pc.payments.CreateCheckout(c.UserContext(), provider, userID, courseID)
	if err != nil {
		return checkoutError(c, provider, err)
	}

	body := fiber.Map{
		"provider":      result.Provider,
		"redirectUrl":   result.RedirectURL,
		"providerRef":   result.ProviderRef,
		"correlationId": result.CorrelationID,
		"amount":        result.Amount,
		"currency":      result.Currency,
	}
	switch provider {
	case models.PaymentProviderMercadoPago:
		body["init_point"] = result.RedirectURL
	case models.PaymentProviderPayPal:
		body["approveUrl"] = result.RedirectURL
	}
	return c.Status(fiber.StatusCreated).JSON(body)
}

func checkoutError(c *fiber.Ctx, provider string, err error) error {
	switch {
	case errors.Is(err, billing.ErrCourseNotFound):
		return jsonError(c, fiber.StatusNotFound, "course_not_found", "course not found")
	case errors.Is(err, billing.ErrCourseInactive):
		return jsonError(c, fiber.StatusBadRequest, "course_inactive", "course is not available for purchase")
	case errors.Is(err, billing.ErrUnknownProvider):
		return jsonError(c, fiber.StatusNotFound, "unknown_provider", "unknown payment provider")
	case errors.Is(err, billing.ErrProviderDisabled):
		return jsonError(c, fiber.StatusServiceUnavailable, "provider_unavailable", provider+" is not configured")
	case errors.Is(err, billing.ErrProviderUnavailable):
		log.Warnf("[Payment] %s checkout failed: %v", provider, err)
		return jsonError(c, fiber.StatusBadGateway, "provider_error", "payment provider request failed")
	default:
		log.Errorf("[Payment] %s checkout: %v", provider, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not create checkout")
	}
}

// HandlePaymentOptions lists the enabled providers together with the course price.
func (pc *PaymentController) HandlePaymentOptions(c *fiber.Ctx) error {
	courseID, ok := paramID(c, "courseId")
	if !ok {
		return invalidID(c, "courseId")
	}
	course, err := pc.courses.GetByID(courseID)
	if err != nil {
		if isNotFound(err) {
			return jsonError(c, fiber.StatusNotFound, "course_not_found", "course not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load course")
	}
	if !course.IsActive() {
		return jsonError(c, fiber.StatusNotFound, "course_not_found", "course not found")
	}

	providers := pc.payments.Providers()
	if providers == nil {
		providers = []string{}
	}
	return c.JSON(fiber.Map{
		"courseId":  course.ID,
		"title":     course.Title,
		"priceUsd":  course.PriceUSD,
		"providers": providers,
	})
}

// HandleMyPayments lists the caller's ledger rows.
func (pc *PaymentController) HandleMyPayments(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	rows, err := pc.payments.ListPayments(c.UserContext(), userID)
	if err != nil {
		log.Errorf("[Payment] list for user %d: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load payments")
	}
	if rows == nil {
		rows = []models.Payment{}
	}
	return c.JSON(fiber.Map{"items": rows})
}

func (pc *PaymentController) HandleMercadoPagoWebhook(c *fiber.Ctx) error {
	return pc.webhook(c, models.PaymentProviderMercadoPago)
}

func (pc *PaymentController) HandlePayPalWebhook(c *fiber.Ctx) error {
	return pc.webhook(c, models.PaymentProviderPayPal)
}

// webhook answers 200 for every processed delivery, including ignored and
// pending ones. Only rejected signatures and malformed bodies are client errors.
func (pc *PaymentController) webhook(c *fiber.Ctx, provider string) error {
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	outcome, err := pc.payments.HandleWebhook(ctx, provider, webhookRequest(c))
	pc.count(ctx, provider, outcome, err)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrSignatureInvalid):
			return jsonError(c, fiber.StatusUnauthorized, "invalid_signature", "webhook signature invalid")
		case errors.Is(err, billing.ErrInvalidPayload):
			return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "webhook payload invalid")
		case errors.Is(err, billing.ErrUnknownProvider), errors.Is(err, billing.ErrProviderDisabled):
			return jsonError(c, fiber.StatusServiceUnavailable, "provider_unavailable", provider+" is not configured")
		case errors.Is(err, billing.ErrProviderUnavailable):
			return jsonError(c, fiber.StatusBadGateway, "provider_error", "payment provider request failed")
		default:
			log.Errorf("[Payment] %s webhook: %v", provider, err)
			return jsonError(c, fiber.StatusInternalServerError, "webhook_processing_failed", "webhook could not be processed")
		}
	}

	body := fiber.Map{"ok": true}
	if outcome.Duplicate {
		body["duplicate"] = true
	}
	if outcome.Ignored {
		body["ignored"] = true
	}
	if outcome.Reason != "" {
		body["reason"] = outcome.Reason
	}
	if outcome.Pending {
		body["pending"] = true
	}
	if outcome.PaymentStatus != "" {
		body["status"] = outcome.PaymentStatus
	}
	if outcome.EnrollmentActivated {
		body["enrollmentActivated"] = true
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

func (pc *PaymentController) count(ctx context.Context, provider string, outcome *billing.WebhookOutcome, err error) {
	if pc.counter == nil {
		return
	}
	pc.counter.Add(ctx, provider, outcomeLabel(outcome, err))
}

func outcomeLabel(outcome *billing.WebhookOutcome, err error) string {
	switch {
	case errors.Is(err, billing.ErrSignatureInvalid):
		return counter.OutcomeRejected
	case err != nil:
		return counter.OutcomeFailed
	case outcome.Ignored:
		return counter.OutcomeIgnored
	case outcome.Duplicate:
		return counter.OutcomeDuplicate
	case outcome.Pending:
		return counter.OutcomePending
	default:
		return counter.OutcomeApplied
	}
}

// webhookRequest snapshots the delivery. Header keys are lower-cased and the
// body is copied because fasthttp reuses its buffers.
func webhookRequest(c *fiber.Ctx) billing.WebhookRequest {
	headers := make(map[string]string)
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers[strings.ToLower(string(key))] = string(value)
	})
	return billing.WebhookRequest{
		Headers: headers,
		Query:   c.Queries(),
		Body:    append([]byte(nil), c.BodyRaw()...),
	}
}

// HandleReturnSuccess, HandleReturnFailure and HandleReturnPending are the
// browser landing pages after a checkout. They never touch the ledger.
func (pc *PaymentController) HandleReturnSuccess(c *fiber.Ctx) error {
	return paymentReturn(c, "success")
}

func (pc *PaymentController) HandleReturnFailure(c *fiber.Ctx) error {
	return paymentReturn(c, "failure")
}

func (pc *PaymentController) HandleReturnPending(c *fiber.Ctx) error {
	return paymentReturn(c, "pending")
}

func paymentReturn(c *fiber.Ctx, status string) error {
	reference := firstNonEmpty(c.Query("external_reference"), c.Query("token"))
	paymentID := firstNonEmpty(c.Query("payment_id"), c.Query("collection_id"), c.Query("PayerID"))

	if wantsHTML(c) {
		return c.Render("payments/result", fiber.Map{
			"Status":    status,
			"Reference": reference,
			"PaymentID": paymentID,
		})
	}
	body := fiber.Map{"ok": status != "failure", "status": status}
	if reference != "" {
		body["reference"] = reference
	}
	if paymentID != "" {
		body["paymentId"] = paymentID
	}
	return c.JSON(body)
}
