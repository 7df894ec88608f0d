package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2/log"
)

// Hosts PayPal serves signing certificates from, per environment.
var (
	payPalSandboxCertHosts = []string{"api.sandbox.paypal.com", "api-m.sandbox.paypal.com"}
	payPalLiveCertHosts    = []string{"api.paypal.com", "api-m.paypal.com"}
)

type payPalVerifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type payPalVerifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// VerifyWebhook asks PayPal to verify the transmission signature.
//
// Missing webhook id or signature headers and a certificate from the other
// environment are reported as skipped; the caller decides what to do with
// them. Only a completed remote check can yield verified.
func (c *PayPalClient) VerifyWebhook(ctx context.Context, n *Notification) Verification {
	if c.WebhookID == "" {
		return skipped("webhook_id_missing")
	}

	h := n.Request.Header
	in := payPalVerifyRequest{
		AuthAlgo:         strings.TrimSpace(h("paypal-auth-algo")),
		CertURL:          strings.TrimSpace(h("paypal-cert-url")),
		TransmissionID:   strings.TrimSpace(h("paypal-transmission-id")),
		TransmissionSig:  strings.TrimSpace(h("paypal-transmission-sig")),
		TransmissionTime: strings.TrimSpace(h("paypal-transmission-time")),
		WebhookID:        c.WebhookID,
		WebhookEvent:     json.RawMessage(n.Request.Body),
	}
	if in.AuthAlgo == "" || in.CertURL == "" || in.TransmissionID == "" || in.TransmissionSig == "" || in.TransmissionTime == "" {
		return skipped("missing_signature_headers")
	}
	if !certURLMatchesEnv(in.CertURL, c.Sandbox) {
		return skipped("cert_url_env_mismatch")
	}
	if !json.Valid(in.WebhookEvent) {
		return failed("invalid_event_body")
	}

	body, err := c.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", in, nil)
	if err != nil {
		log.Warnf("[PayPal] verify request failed: %v", err)
		return failed("verify_request_error")
	}

	var out payPalVerifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return failed("verify_response_invalid")
	}
	if strings.ToUpper(out.VerificationStatus) != "SUCCESS" {
		return failed("verification_status_" + strings.ToLower(out.VerificationStatus))
	}
	return verified()
}

// certURLMatchesEnv checks the signing certificate is fetched over https from
// a PayPal host of the environment the client is configured for.
func certURLMatchesEnv(certURL string, sandbox bool) bool {
	u, err := url.Parse(certURL)
	if err != nil || !strings.EqualFold(u.Scheme, "https") || u.User != nil {
		return false
	}
	hosts := payPalLiveCertHosts
	if sandbox {
		hosts = payPalSandboxCertHosts
	}
	return slices.Contains(hosts, strings.ToLower(u.Hostname()))
}
