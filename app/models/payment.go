package models

import "time"

const (
	PaymentProviderMercadoPago = "mercadopago"
	PaymentProviderPayPal      = "paypal"
)

type PaymentStatus string

const (
	PaymentStatusCreated  PaymentStatus = "CREATED"
	PaymentStatusApproved PaymentStatus = "APPROVED"
	PaymentStatusRejected PaymentStatus = "REJECTED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Payment is a ledger row for one checkout attempt. CorrelationID is generated
// locally at checkout time and is the key every later status change is applied by.
type Payment struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	UserID            uint          `gorm:"not null;index" json:"userId"`
	CourseID          uint          `gorm:"not null;index" json:"courseId"`
	Provider          string        `gorm:"type:varchar(20);not null;index" json:"provider"`
	CorrelationID     string        `gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_correlation" json:"correlationId"`
	ProviderRef       string        `gorm:"type:varchar(191);index" json:"providerRef"`
	ProviderPaymentID string        `gorm:"type:varchar(191);index" json:"providerPaymentId,omitempty"`
	Status            PaymentStatus `gorm:"type:varchar(20);not null;default:'CREATED';index" json:"status"`
	StatusDetail      string        `gorm:"type:varchar(191)" json:"statusDetail,omitempty"`
	Amount            float64       `gorm:"type:decimal(10,2);not null;default:0" json:"amount"`
	Currency          string        `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	RawPayloadJSON    string        `gorm:"type:longtext" json:"-"`
	CreatedAt         time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
}

// paymentSources lists, per target status, the statuses a ledger row may move
// from. APPROVED is never demoted to REJECTED and REFUNDED is terminal. A
// refund on a CREATED or REJECTED row is accepted since money did move.
var paymentSources = map[PaymentStatus][]PaymentStatus{
	PaymentStatusCreated:  {PaymentStatusCreated},
	PaymentStatusApproved: {PaymentStatusCreated, PaymentStatusRejected, PaymentStatusApproved},
	PaymentStatusRejected: {PaymentStatusCreated, PaymentStatusRejected},
	PaymentStatusRefunded: {PaymentStatusCreated, PaymentStatusRejected, PaymentStatusApproved, PaymentStatusRefunded},
}

// PaymentStatusSources returns the statuses from which a row may be set to next.
func PaymentStatusSources(next PaymentStatus) []PaymentStatus {
	return paymentSources[next]
}

// CanTransitionTo reports whether a row in status s may be set to next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, from := range paymentSources[next] {
		if from == s {
			return true
		}
	}
	return false
}
