package billing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payPalStub struct {
	tokenCalls  int32
	verifyCalls int32
	verifyBody  map[string]any
	verifyReply string
	order       string
}

func (s *payPalStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`{"access_token":"A21","token_type":"Bearer","expires_in":32400}`))
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer A21", r.Header.Get("Authorization"))
		assert.Equal(t, "corr-1", r.Header.Get("PayPal-Request-Id"))
		var in map[string]any
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &in))
		assert.Equal(t, "CAPTURE", in["intent"])
		pu := in["purchase_units"].([]any)[0].(map[string]any)
		assert.Equal(t, "corr-1", pu["reference_id"])
		assert.JSONEq(t, `{"courseId":42,"userId":7}`, pu["custom_id"].(string))
		assert.Equal(t, "49.99", pu["amount"].(map[string]any)["value"])
		_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"CREATED","links":[
			{"href":"https://api.test/v2/checkout/orders/ORDER-1","rel":"self"},
			{"href":"https://paypal.test/checkoutnow?token=ORDER-1","rel":"approve"}]}`))
	})
	mux.HandleFunc("/v2/checkout/orders/ORDER-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(s.order))
	})
	mux.HandleFunc("/v1/notifications/verify-webhook-signature", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.verifyCalls, 1)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &s.verifyBody))
		_, _ = w.Write([]byte(s.verifyReply))
	})
	return mux
}

func newTestPayPalClient(baseURL string) *PayPalClient {
	return &PayPalClient{
		ClientID:     "client",
		ClientSecret: "secret",
		APIBaseURL:   baseURL,
		Sandbox:      true,
		WebhookID:    "WH-CONFIG",
		BrandName:    "CourseFox",
		ReturnURL:    "http://backend/payments/success",
		CancelURL:    "http://backend/payments/failure",
		HTTPClient:   http.DefaultClient,
	}
}

func signedPayPalRequest(body string) WebhookRequest {
	return WebhookRequest{
		Headers: map[string]string{
			"paypal-auth-algo":         "SHA256withRSA",
			"paypal-cert-url":          "https://api.sandbox.paypal.com/v1/notifications/certs/CERT-1",
			"paypal-transmission-id":   "tx-1",
			"paypal-transmission-sig":  "sig",
			"paypal-transmission-time": "2024-01-01T00:00:00Z",
		},
		Body: []byte(body),
	}
}

func TestPayPalCreateCheckoutCachesToken(t *testing.T) {
	stub := &payPalStub{}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	c := newTestPayPalClient(srv.URL)
	for i := 0; i < 2; i++ {
		out, err := c.CreateCheckout(context.Background(), CheckoutRequest{
			CorrelationID: "corr-1",
			Title:         "Go in Practice",
			Amount:        49.99,
			UserID:        7,
			CourseID:      42,
		})
		require.NoError(t, err)
		assert.Equal(t, "ORDER-1", out.ProviderRef)
		assert.Equal(t, "https://paypal.test/checkoutnow?token=ORDER-1", out.RedirectURL)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.tokenCalls))
}

func TestPayPalFetchPayment(t *testing.T) {
	stub := &payPalStub{order: `{
		"id": "ORDER-1",
		"status": "APPROVED",
		"purchase_units": [{
			"reference_id": "corr-1",
			"custom_id": "{\"courseId\":42,\"userId\":7}",
			"amount": {"currency_code": "USD", "value": "49.99"}
		}]
	}`}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	snap, err := newTestPayPalClient(srv.URL).FetchPayment(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, StateApproved, snap.State)
	assert.Equal(t, "corr-1", snap.CorrelationID)
	assert.Equal(t, "ORDER-1", snap.ProviderRef)
	assert.Equal(t, 49.99, snap.Amount)
	assert.Equal(t, uint(7), snap.UserID)
	assert.Equal(t, uint(42), snap.CourseID)
}

func TestPayPalFetchPaymentRefundedCapture(t *testing.T) {
	stub := &payPalStub{order: `{
		"id": "ORDER-1",
		"status": "COMPLETED",
		"purchase_units": [{
			"reference_id": "corr-1",
			"amount": {"currency_code": "USD", "value": "49.99"},
			"payments": {"captures": [{"id": "CAP-1", "status": "REFUNDED"}]}
		}]
	}`}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	snap, err := newTestPayPalClient(srv.URL).FetchPayment(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, StateRefunded, snap.State)
	assert.Equal(t, "CAP-1", snap.ProviderPaymentID)
}

func TestPayPalOrderToState(t *testing.T) {
	tests := []struct {
		order    string
		captures []string
		want     ProviderState
	}{
		{"CREATED", nil, StatePending},
		{"SAVED", nil, StatePending},
		{"PAYER_ACTION_REQUIRED", nil, StatePending},
		{"APPROVED", nil, StateApproved},
		{"COMPLETED", []string{"COMPLETED"}, StateApproved},
		{"COMPLETED", []string{"PENDING"}, StateApproved},
		{"COMPLETED", []string{"PARTIALLY_REFUNDED"}, StateRefunded},
		{"COMPLETED", []string{"DECLINED"}, StateRejected},
		{"VOIDED", nil, StateRejected},
		{"", nil, StateUnknown},
	}
	for _, tt := range tests {
		if got := PayPalOrderToState(tt.order, tt.captures); got != tt.want {
			t.Fatalf("PayPalOrderToState(%q, %v) = %q, want %q", tt.order, tt.captures, got, tt.want)
		}
	}
}

func TestPayPalParseNotification(t *testing.T) {
	c := newTestPayPalClient("")

	n, err := c.ParseNotification(signedPayPalRequest(`{"id":"WH-1","event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"ORDER-1"}}`))
	require.NoError(t, err)
	assert.Equal(t, TopicPayment, n.Topic)
	assert.Equal(t, "tx-1", n.RequestID)
	assert.Equal(t, "WH-1", n.EventID)
	assert.Equal(t, "ORDER-1", n.ResourceID)

	n, err = c.ParseNotification(signedPayPalRequest(`{"id":"WH-2","event_type":"PAYMENT.CAPTURE.REFUNDED",
		"resource":{"id":"REFUND-1","supplementary_data":{"related_ids":{"order_id":"ORDER-1"}}}}`))
	require.NoError(t, err)
	assert.Equal(t, TopicPayment, n.Topic)
	assert.Equal(t, "ORDER-1", n.ResourceID)

	n, err = c.ParseNotification(signedPayPalRequest(`{"id":"WH-3","event_type":"BILLING.PLAN.CREATED","resource":{"id":"P-1"}}`))
	require.NoError(t, err)
	assert.Equal(t, TopicOther, n.Topic)

	_, err = c.ParseNotification(signedPayPalRequest(`{"id":"WH-4"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestPayPalVerifyWebhook(t *testing.T) {
	body := `{"id":"WH-1","event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"ORDER-1"}}`

	t.Run("verified", func(t *testing.T) {
		stub := &payPalStub{verifyReply: `{"verification_status":"SUCCESS"}`}
		srv := httptest.NewServer(stub.handler(t))
		defer srv.Close()

		c := newTestPayPalClient(srv.URL)
		n, err := c.ParseNotification(signedPayPalRequest(body))
		require.NoError(t, err)

		v := c.VerifyWebhook(context.Background(), n)
		assert.Equal(t, VerificationVerified, v.Outcome)
		assert.Equal(t, "WH-CONFIG", stub.verifyBody["webhook_id"])
		assert.Equal(t, "tx-1", stub.verifyBody["transmission_id"])
		assert.Equal(t, "WH-1", stub.verifyBody["webhook_event"].(map[string]any)["id"])
	})

	t.Run("remote failure", func(t *testing.T) {
		stub := &payPalStub{verifyReply: `{"verification_status":"FAILURE"}`}
		srv := httptest.NewServer(stub.handler(t))
		defer srv.Close()

		c := newTestPayPalClient(srv.URL)
		n, _ := c.ParseNotification(signedPayPalRequest(body))
		v := c.VerifyWebhook(context.Background(), n)
		assert.Equal(t, VerificationFailed, v.Outcome)
		assert.Equal(t, "verification_status_failure", v.Reason)
	})

	t.Run("skipped without webhook id", func(t *testing.T) {
		c := newTestPayPalClient("http://unused")
		c.WebhookID = ""
		n, _ := c.ParseNotification(signedPayPalRequest(body))
		v := c.VerifyWebhook(context.Background(), n)
		assert.Equal(t, VerificationSkipped, v.Outcome)
		assert.Equal(t, "webhook_id_missing", v.Reason)
	})

	t.Run("skipped without headers", func(t *testing.T) {
		c := newTestPayPalClient("http://unused")
		n, _ := c.ParseNotification(WebhookRequest{Body: []byte(body)})
		v := c.VerifyWebhook(context.Background(), n)
		assert.Equal(t, VerificationSkipped, v.Outcome)
		assert.Equal(t, "missing_signature_headers", v.Reason)
	})

	t.Run("skipped on live cert in sandbox", func(t *testing.T) {
		stub := &payPalStub{verifyReply: `{"verification_status":"SUCCESS"}`}
		srv := httptest.NewServer(stub.handler(t))
		defer srv.Close()

		c := newTestPayPalClient(srv.URL)
		req := signedPayPalRequest(body)
		req.Headers["paypal-cert-url"] = "https://api.paypal.com/v1/notifications/certs/CERT-1"
		n, _ := c.ParseNotification(req)
		v := c.VerifyWebhook(context.Background(), n)
		assert.Equal(t, VerificationSkipped, v.Outcome)
		assert.Equal(t, "cert_url_env_mismatch", v.Reason)
		assert.Equal(t, int32(0), atomic.LoadInt32(&stub.verifyCalls))
	})
}

func TestCertURLMatchesEnv(t *testing.T) {
	assert.True(t, certURLMatchesEnv("https://api.sandbox.paypal.com/certs/1", true))
	assert.False(t, certURLMatchesEnv("https://api.paypal.com/certs/1", true))
	assert.True(t, certURLMatchesEnv("https://api.paypal.com/certs/1", false))
	assert.False(t, certURLMatchesEnv("https://api.sandbox.paypal.com/certs/1", false))
	assert.False(t, certURLMatchesEnv("https://evil.example.com/certs/1", false))

	tests := []struct {
		name    string
		certURL string
		sandbox bool
		want    bool
	}{
		{"live api-m host", "https://api-m.paypal.com/v1/notifications/certs/CERT-1", false, true},
		{"sandbox api-m host", "https://api-m.sandbox.paypal.com/v1/notifications/certs/CERT-1", true, true},
		{"host is case insensitive", "https://API.PayPal.com/certs/1", false, true},
		{"live host in path", "https://attacker.example/api.paypal.com/cert.pem", false, false},
		{"sandbox host as subdomain prefix", "https://api.sandbox.paypal.com.evil.example/cert.pem", true, false},
		{"live host in query", "https://evil.example/cert.pem?h=api.paypal.com", false, false},
		{"userinfo trick", "https://api.paypal.com@evil.example/cert.pem", false, false},
		{"plain http", "http://api.paypal.com/certs/1", false, false},
		{"unparsable", "https://api.paypal.com/%zz", false, false},
		{"empty", "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, certURLMatchesEnv(tt.certURL, tt.sandbox))
		})
	}
}
