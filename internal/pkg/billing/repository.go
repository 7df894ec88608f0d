package billing

import (
	"errors"
	"time"

	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the ledger and event store operations used by the billing service.
type Repository interface {
	CreatePayment(payment *models.Payment) error
	GetPaymentByCorrelationID(correlationID string) (*models.Payment, error)
	ApplyPaymentStatus(update PaymentStatusUpdate) (*models.Payment, error)
	ListPaymentsByUser(userID uint) ([]models.Payment, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreatePayment(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *gormRepository) GetPaymentByCorrelationID(correlationID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("correlation_id = ?", correlationID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ApplyPaymentStatus sets a payment status keyed by correlation id, falling
// back to (provider, provider_ref) when the provider did not echo it. With
// both user and course known a ledger row lost before checkout persisted is
// recreated. Moves the status table forbids leave the row untouched, and the
// current row is returned either way.
func (r *gormRepository) ApplyPaymentStatus(u PaymentStatusUpdate) (*models.Payment, error) {
	if u.CorrelationID == "" {
		return r.applyByProviderRef(u)
	}

	if u.UserID != 0 && u.CourseID != 0 {
		if err := insertLedgerRow(r.db, ledgerRow(u)).Error; err != nil {
			return nil, err
		}
	}
	if err := guardedStatusUpdate(r.db, u, "correlation_id = ?", u.CorrelationID).Error; err != nil {
		return nil, err
	}

	p, err := r.GetPaymentByCorrelationID(u.CorrelationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

func (r *gormRepository) applyByProviderRef(u PaymentStatusUpdate) (*models.Payment, error) {
	if u.ProviderRef == "" {
		return nil, ErrPaymentNotFound
	}
	var p models.Payment
	err := r.db.Where("provider = ? AND provider_ref = ?", u.Provider, u.ProviderRef).
		Order("id DESC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := guardedStatusUpdate(r.db, u, "id = ?", p.ID).Error; err != nil {
		return nil, err
	}
	if err := r.db.First(&p, p.ID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func ledgerRow(u PaymentStatusUpdate) *models.Payment {
	return &models.Payment{
		UserID:            u.UserID,
		CourseID:          u.CourseID,
		Provider:          u.Provider,
		CorrelationID:     u.CorrelationID,
		ProviderRef:       u.ProviderRef,
		ProviderPaymentID: u.ProviderPaymentID,
		Status:            u.Status,
		StatusDetail:      u.StatusDetail,
		Amount:            u.Amount,
		Currency:          currencyOrDefault(u.Currency),
		RawPayloadJSON:    u.RawPayloadJSON,
	}
}

// insertLedgerRow inserts the row unless its correlation id already exists.
func insertLedgerRow(db *gorm.DB, row *models.Payment) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "correlation_id"}},
		DoNothing: true,
	}).Create(row)
}

// guardedStatusUpdate applies u to the rows matching where, skipping any whose
// current status may not move to u.Status.
func guardedStatusUpdate(db *gorm.DB, u PaymentStatusUpdate, where string, args ...interface{}) *gorm.DB {
	return db.Model(&models.Payment{}).
		Where(where, args...).
		Where("status IN ?", models.PaymentStatusSources(u.Status)).
		Updates(statusUpdates(u))
}

func statusUpdates(u PaymentStatusUpdate) map[string]interface{} {
	updates := map[string]interface{}{
		"status":           u.Status,
		"status_detail":    u.StatusDetail,
		"raw_payload_json": u.RawPayloadJSON,
		"updated_at":       time.Now(),
	}
	if u.ProviderPaymentID != "" {
		updates["provider_payment_id"] = u.ProviderPaymentID
	}
	if u.Amount > 0 {
		updates["amount"] = u.Amount
	}
	return updates
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "USD"
	}
	return c
}

func (r *gormRepository) ListPaymentsByUser(userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := insertWebhookEvent(r.db, event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND event_id = ?", event.Provider, event.EventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

// insertWebhookEvent inserts the event unless (provider, event_id) was seen before.
func insertWebhookEvent(db *gorm.DB, event *models.WebhookEvent) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "event_id"},
		},
		DoNothing: true,
	}).Create(event)
}
