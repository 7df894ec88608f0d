package constants

// Route prefixes shared by the router and controllers
const (
	PaymentsPrefix = "/payments"
	AdminPrefix    = "/admin"
	APIV1Prefix    = "/api/v1"
	DocsRoute      = "/docs/api/v1"
	MetricsRoute   = "/metrics"

	// Back-channel pages the providers redirect the browser to
	PaymentSuccessPath = PaymentsPrefix + "/success"
	PaymentFailurePath = PaymentsPrefix + "/failure"
	PaymentPendingPath = PaymentsPrefix + "/pending"

	MercadoPagoWebhookPath = PaymentsPrefix + "/mp/webhook"
	PayPalWebhookPath      = PaymentsPrefix + "/pp/webhook"

	// Frontend route receiving the OAuth token
	FrontendAuthCallback = "/auth/callback"
)
