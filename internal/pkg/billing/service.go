package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/entitlements"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourseLookup resolves the course being purchased.
type CourseLookup interface {
	GetByID(id uint) (*models.Course, error)
}

// EnrollmentActivator grants course access once a payment is approved.
type EnrollmentActivator interface {
	Activate(ctx context.Context, userID, courseID uint) (*models.Enrollment, error)
}

// Service runs checkout creation and webhook reconciliation.
type Service struct {
	repo      Repository
	providers *Registry
	courses   CourseLookup
	activator EnrollmentActivator
	newID     func() string
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, providers *Registry, courses CourseLookup, activator EnrollmentActivator) *Service {
	return &Service{
		repo:      repo,
		providers: providers,
		courses:   courses,
		activator: activator,
		newID:     uuid.NewString,
	}
}

// NewServiceFromDB wires the GORM-backed ledger, course lookup and activator.
func NewServiceFromDB(db *gorm.DB, providers *Registry) *Service {
	return NewService(
		NewRepository(db),
		providers,
		repository.NewCourseRepository(db),
		entitlements.NewActivatorFromDB(db),
	)
}

// Providers returns the enabled provider names.
func (s *Service) Providers() []string {
	return s.providers.Names()
}

// CheckoutResult is returned to the client after a checkout was opened.
type CheckoutResult struct {
	Provider      string
	ProviderRef   string
	RedirectURL   string
	CorrelationID string
	Amount        float64
	Currency      string
	PaymentID     uint
}

// CreateCheckout opens a remote checkout for an active course and records a
// CREATED ledger row. Nothing is written when the provider call fails.
func (s *Service) CreateCheckout(ctx context.Context, providerName string, userID, courseID uint) (*CheckoutResult, error) {
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	if courseID == 0 {
		return nil, ErrCourseNotFound
	}
	p, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	course, err := s.courses.GetByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	if !course.IsActive() {
		return nil, ErrCourseInactive
	}

	correlationID := s.newID()
	checkout, err := p.CreateCheckout(ctx, CheckoutRequest{
		CorrelationID: correlationID,
		Title:         course.Title,
		Amount:        course.PriceUSD,
		UserID:        userID,
		CourseID:      course.ID,
	})
	if err != nil {
		log.Errorf("[Billing] %s checkout failed course=%d user=%d: %v", p.Name(), course.ID, userID, err)
		if !errors.Is(err, ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, err
	}

	payment := &models.Payment{
		UserID:         userID,
		CourseID:       course.ID,
		Provider:       p.Name(),
		CorrelationID:  correlationID,
		ProviderRef:    checkout.ProviderRef,
		Status:         models.PaymentStatusCreated,
		Amount:         course.PriceUSD,
		Currency:       currencyOrDefault(checkout.Currency),
		RawPayloadJSON: checkout.RawJSON,
	}
	if err := s.repo.CreatePayment(payment); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	log.Infof("[Billing] %s checkout created course=%d user=%d correlation=%s ref=%s", p.Name(), course.ID, userID, correlationID, checkout.ProviderRef)

	return &CheckoutResult{
		Provider:      p.Name(),
		ProviderRef:   checkout.ProviderRef,
		RedirectURL:   checkout.RedirectURL,
		CorrelationID: correlationID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		PaymentID:     payment.ID,
	}, nil
}

// ListPayments returns the ledger rows of a user, newest first.
func (s *Service) ListPayments(ctx context.Context, userID uint) ([]models.Payment, error) {
	_ = ctx
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	return s.repo.ListPaymentsByUser(userID)
}

// RecordWebhookEvent persists a webhook delivery once per (provider, event id).
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.EventID)
	if eventID == "" {
		return false, nil, errors.New("event id is required")
	}

	event := &models.WebhookEvent{
		Provider:    provider,
		EventID:     eventID,
		Topic:       strings.TrimSpace(in.Topic),
		ResourceID:  strings.TrimSpace(in.ResourceID),
		SyntheticID: in.SyntheticID,
		PayloadJSON: in.PayloadJSON,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
