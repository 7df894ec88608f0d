package billing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMercadoPagoClient(baseURL string) *MercadoPagoClient {
	return &MercadoPagoClient{
		AccessToken:     "TEST-token",
		APIBaseURL:      baseURL,
		CurrencyID:      "USD",
		SuccessURL:      "http://backend/payments/success",
		FailureURL:      "http://backend/payments/failure",
		PendingURL:      "http://backend/payments/pending",
		NotificationURL: "http://backend/payments/mp/webhook",
		WebhookSecrets:  []string{"current", "old"},
		HTTPClient:      http.DefaultClient,
	}
}

func TestMercadoPagoCreateCheckout(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer TEST-token", r.Header.Get("Authorization"))
		assert.Equal(t, "corr-1", r.Header.Get("X-Idempotency-Key"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &got))
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp.test/init?pref_id=pref-1"}`))
	}))
	defer srv.Close()

	c := newTestMercadoPagoClient(srv.URL)
	out, err := c.CreateCheckout(context.Background(), CheckoutRequest{
		CorrelationID: "corr-1",
		Title:         "Go in Practice",
		Amount:        49.999,
		UserID:        7,
		CourseID:      42,
	})
	require.NoError(t, err)
	assert.Equal(t, "pref-1", out.ProviderRef)
	assert.Equal(t, "https://mp.test/init?pref_id=pref-1", out.RedirectURL)
	assert.Equal(t, "USD", out.Currency)

	assert.Equal(t, "corr-1", got["external_reference"])
	assert.Equal(t, "approved", got["auto_return"])
	assert.Equal(t, "http://backend/payments/mp/webhook", got["notification_url"])
	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, 50.0, item["unit_price"])
	assert.Equal(t, float64(1), item["quantity"])
	meta := got["metadata"].(map[string]any)
	assert.Equal(t, float64(7), meta["user_id"])
	assert.Equal(t, float64(42), meta["course_id"])
}

func TestMercadoPagoCreateCheckoutProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid"}`))
	}))
	defer srv.Close()

	_, err := newTestMercadoPagoClient(srv.URL).CreateCheckout(context.Background(), CheckoutRequest{CorrelationID: "c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestMercadoPagoFetchPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/987", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": 987,
			"status": "approved",
			"status_detail": "accredited",
			"external_reference": "corr-1",
			"transaction_amount": 49.99,
			"currency_id": "USD",
			"metadata": {"user_id": 7, "course_id": "42"}
		}`))
	}))
	defer srv.Close()

	snap, err := newTestMercadoPagoClient(srv.URL).FetchPayment(context.Background(), "987")
	require.NoError(t, err)
	assert.Equal(t, StateApproved, snap.State)
	assert.Equal(t, "987", snap.ProviderPaymentID)
	assert.Equal(t, "corr-1", snap.CorrelationID)
	assert.Equal(t, 49.99, snap.Amount)
	assert.Equal(t, uint(7), snap.UserID)
	assert.Equal(t, uint(42), snap.CourseID)
	assert.Equal(t, "accredited", snap.StatusDetail)
}

func TestMercadoPagoStatusToState(t *testing.T) {
	tests := []struct {
		status   string
		refunded bool
		want     ProviderState
	}{
		{"approved", false, StateApproved},
		{"approved", true, StateRefunded},
		{"APPROVED", false, StateApproved},
		{"pending", false, StatePending},
		{"in_process", false, StatePending},
		{"authorized", false, StatePending},
		{"in_mediation", false, StatePending},
		{"rejected", false, StateRejected},
		{"cancelled", false, StateRejected},
		{"refunded", false, StateRefunded},
		{"charged_back", false, StateRefunded},
		{"", false, StateUnknown},
		{"something_new", false, StateUnknown},
	}
	for _, tt := range tests {
		if got := MercadoPagoStatusToState(tt.status, tt.refunded); got != tt.want {
			t.Fatalf("MercadoPagoStatusToState(%q, %v) = %q, want %q", tt.status, tt.refunded, got, tt.want)
		}
	}
}

func TestMercadoPagoParseNotification(t *testing.T) {
	c := newTestMercadoPagoClient("")

	tests := []struct {
		name      string
		req       WebhookRequest
		topic     Topic
		requestID string
		eventID   string
		resource  string
	}{
		{
			name: "webhook body",
			req: WebhookRequest{
				Headers: map[string]string{"x-request-id": "req-1"},
				Query:   map[string]string{"data.id": "123", "type": "payment"},
				Body:    []byte(`{"id": 555, "type": "payment", "action": "payment.updated", "data": {"id": "123"}}`),
			},
			topic: TopicPayment, requestID: "req-1", eventID: "555", resource: "123",
		},
		{
			name: "ipn query only",
			req: WebhookRequest{
				Query: map[string]string{"topic": "merchant_order", "id": "777"},
			},
			topic: TopicMerchantOrder, resource: "777",
		},
		{
			name: "user agent fallback",
			req: WebhookRequest{
				Headers: map[string]string{"user-agent": "MercadoPago WebHook v1.0 payment"},
				Body:    []byte(`{"resource": "321"}`),
			},
			topic: TopicPayment, resource: "321",
		},
		{
			name:  "no topic",
			req:   WebhookRequest{Body: []byte(`{"action": "test.created"}`)},
			topic: TopicUnknown, eventID: "test.created",
		},
		{
			name:  "other topic",
			req:   WebhookRequest{Body: []byte(`{"type": "subscription_preapproval"}`)},
			topic: TopicOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := c.ParseNotification(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.topic, n.Topic)
			assert.Equal(t, tt.requestID, n.RequestID)
			assert.Equal(t, tt.eventID, n.EventID)
			assert.Equal(t, tt.resource, n.ResourceID)
		})
	}
}

func TestMercadoPagoParseNotificationRejectsMalformedBody(t *testing.T) {
	_, err := newTestMercadoPagoClient("").ParseNotification(WebhookRequest{Body: []byte(`{"type":`)})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestMercadoPagoVerifyWebhook(t *testing.T) {
	c := newTestMercadoPagoClient("")
	digest := signMercadoPago("current", "id:123;request-id:req-1;ts:1700000000;")

	n := &Notification{
		RequestID:  "req-1",
		ResourceID: "123",
		Request:    WebhookRequest{Headers: map[string]string{"x-signature": "ts=1700000000,v1=" + digest}},
	}
	assert.Equal(t, VerificationVerified, c.VerifyWebhook(context.Background(), n).Outcome)

	n.ResourceID = "124"
	v := c.VerifyWebhook(context.Background(), n)
	assert.Equal(t, VerificationFailed, v.Outcome)
	assert.Equal(t, "signature_mismatch", v.Reason)

	n.Request.Headers = nil
	v = c.VerifyWebhook(context.Background(), n)
	assert.Equal(t, VerificationFailed, v.Outcome)
	assert.Equal(t, "missing_signature_fields", v.Reason)
}

func TestMercadoPagoVerifyWebhookWithoutSecretFailsClosed(t *testing.T) {
	c := newTestMercadoPagoClient("")
	c.WebhookSecrets = []string{"", " "}
	digest := signMercadoPago("current", "id:123;request-id:req-1;ts:1700000000;")

	v := c.VerifyWebhook(context.Background(), &Notification{
		RequestID:  "req-1",
		ResourceID: "123",
		Request:    WebhookRequest{Headers: map[string]string{"x-signature": "ts=1700000000,v1=" + digest}},
	})
	assert.Equal(t, VerificationFailed, v.Outcome)
	assert.Equal(t, "webhook_secret_not_configured", v.Reason)
}
