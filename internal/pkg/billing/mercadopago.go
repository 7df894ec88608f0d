package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/env"
)

const defaultMercadoPagoAPIBaseURL = "https://api.mercadopago.com"

type MercadoPagoClient struct {
	AccessToken string
	APIBaseURL  string
	CurrencyID  string

	SuccessURL      string
	FailureURL      string
	PendingURL      string
	NotificationURL string

	// WebhookSecrets are tried in order: current secret, then the rotation secret.
	WebhookSecrets []string

	HTTPClient *http.Client
}

type mercadoPagoPreferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type mercadoPagoPayment struct {
	ID                        json.Number    `json:"id"`
	Status                    string         `json:"status"`
	StatusDetail              string         `json:"status_detail"`
	ExternalReference         string         `json:"external_reference"`
	TransactionAmount         float64        `json:"transaction_amount"`
	TransactionAmountRefunded float64        `json:"transaction_amount_refunded"`
	CurrencyID                string         `json:"currency_id"`
	Metadata                  map[string]any `json:"metadata"`
}

// NewMercadoPagoClientFromEnv builds the client. MP_ACCESS_TOKEN is required.
func NewMercadoPagoClientFromEnv() (*MercadoPagoClient, error) {
	token := strings.TrimSpace(env.GetEnv("MP_ACCESS_TOKEN", ""))
	if token == "" {
		return nil, errors.New("MP_ACCESS_TOKEN is not configured")
	}
	base := strings.TrimRight(env.GetEnv("BACKEND_PUBLIC_URL", "http://localhost:4000"), "/")

	return &MercadoPagoClient{
		AccessToken:     token,
		APIBaseURL:      strings.TrimRight(env.GetEnv("MP_API_BASE_URL", defaultMercadoPagoAPIBaseURL), "/"),
		CurrencyID:      strings.ToUpper(strings.TrimSpace(env.GetEnv("MP_CURRENCY_ID", "USD"))),
		SuccessURL:      env.GetEnv("MP_BACK_URL_SUCCESS", base+"/payments/success"),
		FailureURL:      env.GetEnv("MP_BACK_URL_FAILURE", base+"/payments/failure"),
		PendingURL:      env.GetEnv("MP_BACK_URL_PENDING", base+"/payments/pending"),
		NotificationURL: env.GetEnv("MP_NOTIFICATION_URL", base+"/payments/mp/webhook"),
		WebhookSecrets: []string{
			env.GetEnv("MP_WEBHOOK_SECRET", ""),
			env.GetEnv("MP_WEBHOOK_SECRET_OLD", ""),
		},
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (c *MercadoPagoClient) Name() string {
	return models.PaymentProviderMercadoPago
}

// CreateCheckout creates a checkout preference whose external_reference is the correlation id.
func (c *MercadoPagoClient) CreateCheckout(ctx context.Context, in CheckoutRequest) (*Checkout, error) {
	if strings.TrimSpace(in.CorrelationID) == "" {
		return nil, errors.New("correlation id is required")
	}

	payload := map[string]any{
		"items": []map[string]any{{
			"id":          in.CorrelationID,
			"title":       in.Title,
			"quantity":    1,
			"currency_id": c.CurrencyID,
			"unit_price":  roundCents(in.Amount),
		}},
		"external_reference": in.CorrelationID,
		"back_urls": map[string]string{
			"success": c.SuccessURL,
			"failure": c.FailureURL,
			"pending": c.PendingURL,
		},
		"auto_return":      "approved",
		"notification_url": c.NotificationURL,
		"metadata": map[string]any{
			"user_id":   in.UserID,
			"course_id": in.CourseID,
		},
	}

	body, err := c.do(ctx, http.MethodPost, "/checkout/preferences", payload, in.CorrelationID)
	if err != nil {
		return nil, err
	}

	var out mercadoPagoPreferenceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("mercadopago preference decode: %w", err)
	}
	if out.ID == "" || out.InitPoint == "" {
		return nil, errors.New("mercadopago preference response misses id or init_point")
	}
	return &Checkout{
		ProviderRef: out.ID,
		RedirectURL: out.InitPoint,
		Currency:    c.CurrencyID,
		RawJSON:     string(body),
	}, nil
}

// FetchPayment loads the payment by id and maps its status.
func (c *MercadoPagoClient) FetchPayment(ctx context.Context, paymentID string) (*PaymentSnapshot, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, errors.New("payment id is required")
	}

	body, err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, "")
	if err != nil {
		return nil, err
	}

	var p mercadoPagoPayment
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("mercadopago payment decode: %w", err)
	}

	refunded := p.TransactionAmount > 0 && p.TransactionAmountRefunded >= p.TransactionAmount
	snap := &PaymentSnapshot{
		ProviderPaymentID: p.ID.String(),
		CorrelationID:     strings.TrimSpace(p.ExternalReference),
		State:             MercadoPagoStatusToState(p.Status, refunded),
		RawStatus:         p.Status,
		StatusDetail:      p.StatusDetail,
		Amount:            p.TransactionAmount,
		Currency:          p.CurrencyID,
		RawJSON:           string(body),
	}
	if snap.ProviderPaymentID == "" {
		snap.ProviderPaymentID = paymentID
	}
	snap.UserID, snap.CourseID = metadataIDs(p.Metadata)
	return snap, nil
}

// MercadoPagoStatusToState maps a payment status to a provider state.
// An approved payment that was fully refunded is reported as refunded.
func MercadoPagoStatusToState(status string, fullyRefunded bool) ProviderState {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved":
		if fullyRefunded {
			return StateRefunded
		}
		return StateApproved
	case "pending", "in_process", "authorized", "in_mediation":
		return StatePending
	case "rejected", "cancelled":
		return StateRejected
	case "refunded", "charged_back":
		return StateRefunded
	default:
		return StateUnknown
	}
}

// ParseNotification classifies the delivery and pulls out the ids used for
// idempotency and the payment lookup.
func (c *MercadoPagoClient) ParseNotification(req WebhookRequest) (*Notification, error) {
	body, err := decodeJSONObject(req.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	topic := mercadoPagoTopic(body, req.Query, req.Header("user-agent"))
	eventID := stringAt(body, "id")
	if eventID == "" {
		eventID = stringAt(body, "action")
	}
	eventType := stringAt(body, "action")
	if eventType == "" {
		eventType = string(topic)
	}

	return &Notification{
		Provider:   c.Name(),
		Topic:      topic,
		EventType:  eventType,
		RequestID:  strings.TrimSpace(req.Header("x-request-id")),
		EventID:    eventID,
		ResourceID: ExtractDataID(req.Query, body),
		Request:    req,
	}, nil
}

// VerifyWebhook checks the x-signature HMAC. MercadoPago deliveries are
// either verified or failed; there is no skipped outcome.
func (c *MercadoPagoClient) VerifyWebhook(ctx context.Context, n *Notification) Verification {
	_ = ctx
	signature := strings.TrimSpace(n.Request.Header("x-signature"))
	if signature == "" || n.RequestID == "" || n.ResourceID == "" {
		return failed("missing_signature_fields")
	}
	if !hasSecret(c.WebhookSecrets) {
		return failed("webhook_secret_not_configured")
	}
	if !VerifyMercadoPagoSignature(n.ResourceID, n.RequestID, signature, c.WebhookSecrets...) {
		return failed("signature_mismatch")
	}
	return verified()
}

func (c *MercadoPagoClient) do(ctx context.Context, method, path string, payload any, idempotencyKey string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: mercadopago %s %s: %v", ErrProviderUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: mercadopago %s %s failed: status=%d body=%s", ErrProviderUnavailable, method, path, resp.StatusCode, string(body))
	}
	return body, nil
}

// mercadoPagoTopic resolves the topic from body topic, body type, query
// topic, query type and finally the user agent.
func mercadoPagoTopic(body map[string]any, query map[string]string, userAgent string) Topic {
	raw := ""
	for _, candidate := range []string{
		stringAt(body, "topic"),
		stringAt(body, "type"),
		query["topic"],
		query["type"],
	} {
		if v := strings.ToLower(strings.TrimSpace(candidate)); v != "" {
			raw = v
			break
		}
	}
	if raw == "" {
		ua := strings.ToLower(userAgent)
		switch {
		case strings.Contains(ua, "merchant_order"):
			raw = "merchant_order"
		case strings.Contains(ua, "payment"):
			raw = "payment"
		}
	}

	switch raw {
	case "payment":
		return TopicPayment
	case "merchant_order":
		return TopicMerchantOrder
	case "":
		return TopicUnknown
	default:
		return TopicOther
	}
}

// metadataIDs reads user and course ids from preference metadata.
// MercadoPago snake-cases metadata keys, older preferences used camelCase.
func metadataIDs(meta map[string]any) (userID, courseID uint) {
	if meta == nil {
		return 0, 0
	}
	userID = uintFrom(meta["user_id"])
	if userID == 0 {
		userID = uintFrom(meta["userId"])
	}
	courseID = uintFrom(meta["course_id"])
	if courseID == 0 {
		courseID = uintFrom(meta["courseId"])
	}
	return userID, courseID
}

func hasSecret(secrets []string) bool {
	for _, s := range secrets {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
