package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/env"
)

const (
	defaultPayPalSandboxBaseURL = "https://api-m.sandbox.paypal.com"
	defaultPayPalLiveBaseURL    = "https://api-m.paypal.com"

	payPalCurrency = "USD"
)

type PayPalClient struct {
	ClientID     string
	ClientSecret string
	APIBaseURL   string
	Sandbox      bool
	WebhookID    string

	BrandName string
	ReturnURL string
	CancelURL string

	HTTPClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

type payPalTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type payPalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type payPalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type payPalCapture struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Amount payPalAmount `json:"amount"`
}

type payPalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id"`
	CustomID    string       `json:"custom_id"`
	Amount      payPalAmount `json:"amount"`
	Payments    struct {
		Captures []payPalCapture `json:"captures"`
	} `json:"payments"`
}

type payPalOrder struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	PurchaseUnits []payPalPurchaseUnit `json:"purchase_units"`
	Links         []payPalLink         `json:"links"`
}

// payPalCustomID is stored in purchase_units[0].custom_id.
type payPalCustomID struct {
	CourseID uint `json:"courseId"`
	UserID   uint `json:"userId"`
}

// NewPayPalClientFromEnv builds the client. PAYPAL_CLIENT_ID and
// PAYPAL_CLIENT_SECRET are required. PAYPAL_ENV selects sandbox (default) or live.
func NewPayPalClientFromEnv() (*PayPalClient, error) {
	clientID := strings.TrimSpace(env.GetEnv("PAYPAL_CLIENT_ID", ""))
	secret := strings.TrimSpace(env.GetEnv("PAYPAL_CLIENT_SECRET", ""))
	if clientID == "" || secret == "" {
		return nil, errors.New("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET are required")
	}

	sandbox := strings.ToLower(strings.TrimSpace(env.GetEnv("PAYPAL_ENV", "sandbox"))) != "live"
	defaultBase := defaultPayPalSandboxBaseURL
	if !sandbox {
		defaultBase = defaultPayPalLiveBaseURL
	}
	base := strings.TrimRight(env.GetEnv("BACKEND_PUBLIC_URL", "http://localhost:4000"), "/")

	return &PayPalClient{
		ClientID:     clientID,
		ClientSecret: secret,
		APIBaseURL:   strings.TrimRight(env.GetEnv("PAYPAL_API_BASE_URL", defaultBase), "/"),
		Sandbox:      sandbox,
		WebhookID:    strings.TrimSpace(env.GetEnv("PAYPAL_WEBHOOK_ID", "")),
		BrandName:    env.GetEnv("PP_BRAND_NAME", "CourseFox"),
		ReturnURL:    env.GetEnv("PP_RETURN_URL", base+"/payments/success"),
		CancelURL:    env.GetEnv("PP_CANCEL_URL", base+"/payments/failure"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (c *PayPalClient) Name() string {
	return models.PaymentProviderPayPal
}

// CreateCheckout creates a CAPTURE order. reference_id carries the correlation
// id and custom_id the buyer and course.
func (c *PayPalClient) CreateCheckout(ctx context.Context, in CheckoutRequest) (*Checkout, error) {
	if strings.TrimSpace(in.CorrelationID) == "" {
		return nil, errors.New("correlation id is required")
	}
	custom, err := json.Marshal(payPalCustomID{CourseID: in.CourseID, UserID: in.UserID})
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": in.CorrelationID,
			"description":  in.Title,
			"custom_id":    string(custom),
			"amount": payPalAmount{
				CurrencyCode: payPalCurrency,
				Value:        strconv.FormatFloat(roundCents(in.Amount), 'f', 2, 64),
			},
		}},
		"application_context": map[string]string{
			"brand_name":  c.BrandName,
			"user_action": "PAY_NOW",
			"return_url":  c.ReturnURL,
			"cancel_url":  c.CancelURL,
		},
	}

	headers := map[string]string{
		"Prefer":            "return=representation",
		"PayPal-Request-Id": in.CorrelationID,
	}
	body, err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", payload, headers)
	if err != nil {
		return nil, err
	}

	var order payPalOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("paypal order decode: %w", err)
	}
	approveURL := ""
	for _, l := range order.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			approveURL = l.Href
			break
		}
	}
	if order.ID == "" || approveURL == "" {
		return nil, errors.New("paypal order response misses id or approve link")
	}
	return &Checkout{
		ProviderRef: order.ID,
		RedirectURL: approveURL,
		Currency:    payPalCurrency,
		RawJSON:     string(body),
	}, nil
}

// FetchPayment loads an order and derives its state from the order status
// and the status of its captures.
func (c *PayPalClient) FetchPayment(ctx context.Context, orderID string) (*PaymentSnapshot, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("order id is required")
	}

	body, err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), nil, nil)
	if err != nil {
		return nil, err
	}

	var order payPalOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("paypal order decode: %w", err)
	}

	snap := &PaymentSnapshot{
		ProviderRef: order.ID,
		RawStatus:   order.Status,
		RawJSON:     string(body),
	}
	if snap.ProviderRef == "" {
		snap.ProviderRef = orderID
	}

	var captureStatuses []string
	if len(order.PurchaseUnits) > 0 {
		pu := order.PurchaseUnits[0]
		snap.CorrelationID = strings.TrimSpace(pu.ReferenceID)
		snap.Currency = pu.Amount.CurrencyCode
		if v, err := strconv.ParseFloat(pu.Amount.Value, 64); err == nil {
			snap.Amount = v
		}
		snap.UserID, snap.CourseID = parsePayPalCustomID(pu.CustomID)
		for _, capture := range pu.Payments.Captures {
			captureStatuses = append(captureStatuses, capture.Status)
			if snap.ProviderPaymentID == "" {
				snap.ProviderPaymentID = capture.ID
			}
		}
	}

	snap.State = PayPalOrderToState(order.Status, captureStatuses)
	if len(captureStatuses) > 0 {
		snap.StatusDetail = "capture:" + strings.ToLower(captureStatuses[0])
	}
	return snap, nil
}

// PayPalOrderToState maps an order and its captures to a provider state.
// Capture outcomes take precedence over the order status.
func PayPalOrderToState(orderStatus string, captureStatuses []string) ProviderState {
	for _, cs := range captureStatuses {
		switch strings.ToUpper(strings.TrimSpace(cs)) {
		case "REFUNDED", "PARTIALLY_REFUNDED":
			return StateRefunded
		case "DECLINED", "FAILED":
			return StateRejected
		}
	}

	switch strings.ToUpper(strings.TrimSpace(orderStatus)) {
	case "CREATED", "SAVED", "PAYER_ACTION_REQUIRED":
		return StatePending
	case "APPROVED", "COMPLETED":
		return StateApproved
	case "VOIDED":
		return StateRejected
	default:
		return StateUnknown
	}
}

// payPalPaymentEvents are the event types that move money on an order.
var payPalPaymentEvents = map[string]bool{
	"CHECKOUT.ORDER.APPROVED":   true,
	"CHECKOUT.ORDER.COMPLETED":  true,
	"PAYMENT.CAPTURE.COMPLETED": true,
	"PAYMENT.CAPTURE.DENIED":    true,
	"PAYMENT.CAPTURE.REFUNDED":  true,
	"PAYMENT.CAPTURE.REVERSED":  true,
}

func (c *PayPalClient) ParseNotification(req WebhookRequest) (*Notification, error) {
	body, err := decodeJSONObject(req.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	eventType := strings.ToUpper(strings.TrimSpace(stringAt(body, "event_type")))
	if eventType == "" {
		return nil, fmt.Errorf("%w: event_type missing", ErrInvalidPayload)
	}

	topic := TopicOther
	if payPalPaymentEvents[eventType] {
		topic = TopicPayment
	}

	return &Notification{
		Provider:   c.Name(),
		Topic:      topic,
		EventType:  eventType,
		RequestID:  strings.TrimSpace(req.Header("paypal-transmission-id")),
		EventID:    stringAt(body, "id"),
		ResourceID: payPalOrderID(eventType, body),
		Request:    req,
	}, nil
}

// payPalOrderID resolves the order an event refers to. Order events carry it
// as resource.id, capture events as the related order id.
func payPalOrderID(eventType string, body map[string]any) string {
	if strings.HasPrefix(eventType, "CHECKOUT.ORDER.") {
		return stringAt(body, "resource", "id")
	}
	return stringAt(body, "resource", "supplementary_data", "related_ids", "order_id")
}

func parsePayPalCustomID(raw string) (userID, courseID uint) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, 0
	}
	obj, err := decodeJSONObject([]byte(raw))
	if err != nil {
		return 0, 0
	}
	return uintFrom(obj["userId"]), uintFrom(obj["courseId"])
}

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if c.token != "" && now.Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ClientID, c.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: paypal token: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: paypal token request failed: status=%d body=%s", ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	var out payPalTokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("paypal token response misses access_token")
	}

	// Refresh a minute early so in-flight requests never carry an expired token.
	ttl := time.Duration(out.ExpiresIn)*time.Second - time.Minute
	if ttl < 0 {
		ttl = 0
	}
	c.token = out.AccessToken
	c.tokenExpiry = now.Add(ttl)
	return c.token, nil
}

func (c *PayPalClient) do(ctx context.Context, method, path string, payload any, headers map[string]string) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

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
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: paypal %s %s: %v", ErrProviderUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: paypal %s %s failed: status=%d body=%s", ErrProviderUnavailable, method, path, resp.StatusCode, string(body))
	}
	return body, nil
}

func (c *PayPalClient) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}
