package billing

import "github.com/ManuelReschke/CourseFox/app/models"

// ProviderState is the provider-neutral state of a remote payment. Every raw
// provider status maps to exactly one of these values.
type ProviderState string

const (
	StatePending  ProviderState = "pending"
	StateApproved ProviderState = "approved"
	StateRejected ProviderState = "rejected"
	StateRefunded ProviderState = "refunded"
	StateUnknown  ProviderState = "unknown"
)

// LedgerStatus returns the ledger status a state settles to. ok is false for
// states that must not mutate the ledger.
func (s ProviderState) LedgerStatus() (models.PaymentStatus, bool) {
	switch s {
	case StateApproved:
		return models.PaymentStatusApproved, true
	case StateRejected:
		return models.PaymentStatusRejected, true
	case StateRefunded:
		return models.PaymentStatusRefunded, true
	case StatePending, StateUnknown:
		return "", false
	}
	return "", false
}

// Topic classifies an inbound notification.
type Topic string

const (
	TopicPayment       Topic = "payment"
	TopicMerchantOrder Topic = "merchant_order"
	TopicOther         Topic = "other"
	TopicUnknown       Topic = "unknown"
)

// WebhookRequest is the raw inbound delivery as seen by the HTTP layer.
// Header keys are lower-case.
type WebhookRequest struct {
	Headers map[string]string
	Query   map[string]string
	Body    []byte
}

// Header returns a header value by lower-case key.
func (r WebhookRequest) Header(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[key]
}

// Notification is a parsed webhook delivery.
type Notification struct {
	Provider   string
	Topic      Topic
	EventType  string
	RequestID  string
	EventID    string
	ResourceID string
	Request    WebhookRequest
}

// CheckoutRequest is what a provider needs to open a remote checkout.
type CheckoutRequest struct {
	CorrelationID string
	Title         string
	Amount        float64
	UserID        uint
	CourseID      uint
}

// Checkout is the result of a remote checkout creation.
type Checkout struct {
	ProviderRef string
	RedirectURL string
	Currency    string
	RawJSON     string
}

// PaymentSnapshot is the authoritative payment state fetched from a provider.
type PaymentSnapshot struct {
	ProviderPaymentID string
	ProviderRef       string
	CorrelationID     string
	State             ProviderState
	RawStatus         string
	StatusDetail      string
	Amount            float64
	Currency          string
	UserID            uint
	CourseID          uint
	RawJSON           string
}

// VerificationOutcome is the tri-state result of webhook authentication.
type VerificationOutcome int

const (
	VerificationFailed VerificationOutcome = iota
	VerificationVerified
	VerificationSkipped
)

func (o VerificationOutcome) String() string {
	switch o {
	case VerificationVerified:
		return "verified"
	case VerificationSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Verification carries the outcome and a machine-readable reason.
type Verification struct {
	Outcome VerificationOutcome
	Reason  string
}

func verified() Verification {
	return Verification{Outcome: VerificationVerified}
}

func skipped(reason string) Verification {
	return Verification{Outcome: VerificationSkipped, Reason: reason}
}

func failed(reason string) Verification {
	return Verification{Outcome: VerificationFailed, Reason: reason}
}

// PaymentStatusUpdate is one status application to the ledger.
type PaymentStatusUpdate struct {
	Provider          string
	CorrelationID     string
	ProviderRef       string
	ProviderPaymentID string
	Status            models.PaymentStatus
	StatusDetail      string
	Amount            float64
	Currency          string
	UserID            uint
	CourseID          uint
	RawPayloadJSON    string
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider    string
	EventID     string
	Topic       string
	ResourceID  string
	SyntheticID bool
	PayloadJSON string
}
