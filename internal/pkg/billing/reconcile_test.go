package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentNotification(requestID, resourceID string) func(WebhookRequest) (*Notification, error) {
	return func(WebhookRequest) (*Notification, error) {
		return &Notification{Topic: TopicPayment, RequestID: requestID, ResourceID: resourceID}, nil
	}
}

func approvedProvider() *fakeProvider {
	return &fakeProvider{
		name:         "mercadopago",
		parse:        paymentNotification("req-1", "987"),
		verification: verified(),
		checkout:     &Checkout{ProviderRef: "pref-1", RedirectURL: "https://mp.test/init"},
		snapshot: &PaymentSnapshot{
			ProviderPaymentID: "987",
			CorrelationID:     "corr-1",
			State:             StateApproved,
			RawStatus:         "approved",
			Amount:            49.99,
			UserID:            7,
			CourseID:          42,
		},
	}
}

func TestWebhookApprovedPaymentActivatesEnrollment(t *testing.T) {
	p := approvedProvider()
	svc, repo, activator := newTestService(p)
	ctx := context.Background()

	_, err := svc.CreateCheckout(ctx, "mercadopago", 7, 42)
	require.NoError(t, err)

	out, err := svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	assert.True(t, out.EnrollmentActivated)
	assert.Equal(t, models.PaymentStatusApproved, out.PaymentStatus)

	stored, _ := repo.GetPaymentByCorrelationID("corr-1")
	assert.Equal(t, models.PaymentStatusApproved, stored.Status)
	assert.Equal(t, 49.99, stored.Amount)

	require.Len(t, activator.rows, 1)
	e := activator.rows[enrollmentKey{7, 42}]
	require.NotNil(t, e)
	assert.Equal(t, models.EnrollmentStatusActive, e.Status)
	assert.Len(t, repo.events, 1)
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	p := approvedProvider()
	svc, repo, activator := newTestService(p)
	ctx := context.Background()
	_, err := svc.CreateCheckout(ctx, "mercadopago", 7, 42)
	require.NoError(t, err)

	_, err = svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)
	first, _ := repo.GetPaymentByCorrelationID("corr-1")

	out, err := svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)
	second, _ := repo.GetPaymentByCorrelationID("corr-1")

	assert.True(t, out.Duplicate)
	assert.Equal(t, first, second)
	assert.Len(t, repo.payments, 1)
	assert.Len(t, repo.events, 1)
	assert.Len(t, activator.rows, 1)
	assert.Equal(t, 2, p.fetchCalls)
}

func TestWebhookRetryAfterActivationFailureCompletes(t *testing.T) {
	p := approvedProvider()
	svc, repo, activator := newTestService(p)
	ctx := context.Background()
	_, err := svc.CreateCheckout(ctx, "mercadopago", 7, 42)
	require.NoError(t, err)

	activator.err = errors.New("db down")
	_, err = svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.Error(t, err)

	stored, _ := repo.GetPaymentByCorrelationID("corr-1")
	assert.Equal(t, models.PaymentStatusApproved, stored.Status)
	assert.Empty(t, activator.rows)
	assert.NotEmpty(t, repo.events["mercadopago|req-1"].ProcessingError)

	activator.err = nil
	out, err := svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.True(t, out.EnrollmentActivated)
	assert.Len(t, activator.rows, 1)
}

func TestWebhookInvalidSignatureTouchesNothing(t *testing.T) {
	p := approvedProvider()
	p.verification = failed("signature_mismatch")
	svc, repo, activator := newTestService(p)
	ctx := context.Background()
	_, err := svc.CreateCheckout(ctx, "mercadopago", 7, 42)
	require.NoError(t, err)

	_, err = svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	stored, _ := repo.GetPaymentByCorrelationID("corr-1")
	assert.Equal(t, models.PaymentStatusCreated, stored.Status)
	assert.Empty(t, repo.events)
	assert.Equal(t, 0, activator.calls)
	assert.Equal(t, 0, p.fetchCalls)
}

func TestWebhookSkippedVerificationIsIgnored(t *testing.T) {
	p := approvedProvider()
	p.name = "paypal"
	p.verification = skipped("missing_signature_headers")
	svc, repo, activator := newTestService(p)

	out, err := svc.HandleWebhook(context.Background(), "paypal", WebhookRequest{})
	require.NoError(t, err)
	assert.True(t, out.Ignored)
	assert.Equal(t, "verification_skipped:missing_signature_headers", out.Reason)
	assert.Empty(t, repo.events)
	assert.Equal(t, 0, activator.calls)
	assert.Equal(t, 0, p.fetchCalls)
}

func TestWebhookNonPaymentTopicIsRecordedOnly(t *testing.T) {
	p := approvedProvider()
	p.parse = func(WebhookRequest) (*Notification, error) {
		return &Notification{Topic: TopicMerchantOrder, RequestID: "req-mo", ResourceID: "555"}, nil
	}
	p.verification = failed("should not be consulted")
	svc, repo, activator := newTestService(p)

	out, err := svc.HandleWebhook(context.Background(), "mercadopago", WebhookRequest{})
	require.NoError(t, err)
	assert.True(t, out.Ignored)
	assert.Equal(t, TopicMerchantOrder, out.Topic)
	assert.Contains(t, repo.events, "mercadopago|req-mo")
	assert.Empty(t, repo.payments)
	assert.Equal(t, 0, activator.calls)
	assert.Equal(t, 0, p.fetchCalls)
}

func TestWebhookPendingPaymentDoesNotMutateLedger(t *testing.T) {
	p := approvedProvider()
	p.snapshot.State = StatePending
	p.snapshot.RawStatus = "in_process"
	svc, repo, activator := newTestService(p)
	ctx := context.Background()
	_, err := svc.CreateCheckout(ctx, "mercadopago", 7, 42)
	require.NoError(t, err)

	out, err := svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)
	assert.True(t, out.Pending)
	assert.Equal(t, "in_process", out.RawStatus)

	stored, _ := repo.GetPaymentByCorrelationID("corr-1")
	assert.Equal(t, models.PaymentStatusCreated, stored.Status)
	assert.Equal(t, 0, activator.calls)
}

func TestWebhookRejectedAndRefundedPayments(t *testing.T) {
	for _, tt := range []struct {
		state ProviderState
		want  models.PaymentStatus
	}{
		{StateRejected, models.PaymentStatusRejected},
		{StateRefunded, models.PaymentStatusRefunded},
	} {
		p := approvedProvider()
		p.snapshot.State = tt.state
		svc, repo, activator := newTestService(p)
		ctx := context.Background()
		_, err := svc.CreateCheckout(ctx, "mercadopago", 7, 42)
		require.NoError(t, err)

		_, err = svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
		require.NoError(t, err)

		stored, _ := repo.GetPaymentByCorrelationID("corr-1")
		assert.Equal(t, tt.want, stored.Status)
		assert.Equal(t, 0, activator.calls)
	}
}

func TestWebhookRefundDoesNotRevokeEnrollment(t *testing.T) {
	p := approvedProvider()
	svc, repo, activator := newTestService(p)
	ctx := context.Background()
	_, err := svc.CreateCheckout(ctx, "mercadopago", 7, 42)
	require.NoError(t, err)
	_, err = svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)

	p.parse = paymentNotification("req-2", "987")
	p.snapshot.State = StateRefunded
	_, err = svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)

	stored, _ := repo.GetPaymentByCorrelationID("corr-1")
	assert.Equal(t, models.PaymentStatusRefunded, stored.Status)
	assert.Equal(t, models.EnrollmentStatusActive, activator.rows[enrollmentKey{7, 42}].Status)
}

func TestWebhookFetchFailureIsTransient(t *testing.T) {
	p := approvedProvider()
	p.fetchErr = errors.New("timeout")
	svc, repo, _ := newTestService(p)

	_, err := svc.HandleWebhook(context.Background(), "mercadopago", WebhookRequest{})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Len(t, repo.events, 1)
}

func TestWebhookMissingResourceIDAcknowledged(t *testing.T) {
	p := approvedProvider()
	p.parse = paymentNotification("req-1", "")
	svc, _, _ := newTestService(p)

	out, err := svc.HandleWebhook(context.Background(), "mercadopago", WebhookRequest{})
	require.NoError(t, err)
	assert.True(t, out.Ignored)
	assert.Equal(t, "missing_resource_id", out.Reason)
	assert.Equal(t, 0, p.fetchCalls)
}

func TestWebhookApprovedWithoutCorrelationIsIgnored(t *testing.T) {
	p := approvedProvider()
	p.snapshot.CorrelationID = ""
	svc, _, activator := newTestService(p)

	out, err := svc.HandleWebhook(context.Background(), "mercadopago", WebhookRequest{})
	require.NoError(t, err)
	assert.Equal(t, "missing_correlation_id", out.Reason)
	assert.Equal(t, 0, activator.calls)
}

func TestWebhookFallsBackToLedgerForEnrollmentPair(t *testing.T) {
	p := approvedProvider()
	p.snapshot.UserID = 0
	p.snapshot.CourseID = 0
	svc, _, activator := newTestService(p)
	ctx := context.Background()
	_, err := svc.CreateCheckout(ctx, "mercadopago", 7, 42)
	require.NoError(t, err)

	_, err = svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)
	assert.Contains(t, activator.rows, enrollmentKey{7, 42})
}

func TestIdempotencyKeyPrecedence(t *testing.T) {
	svc, _, _ := newTestService()

	key, synthetic := svc.idempotencyKey(&Notification{RequestID: "r", EventID: "e"})
	assert.Equal(t, "r", key)
	assert.False(t, synthetic)

	key, synthetic = svc.idempotencyKey(&Notification{EventID: "e"})
	assert.Equal(t, "e", key)
	assert.False(t, synthetic)

	key, synthetic = svc.idempotencyKey(&Notification{})
	assert.Equal(t, "gen:corr-1", key)
	assert.True(t, synthetic)
}

func TestWebhookLateRejectionKeepsApprovedLedger(t *testing.T) {
	p := approvedProvider()
	p.parse = paymentNotification("req-988", "988")
	p.snapshot.ProviderPaymentID = "988"
	svc, repo, activator := newTestService(p)
	ctx := context.Background()
	_, err := svc.CreateCheckout(ctx, "mercadopago", 7, 42)
	require.NoError(t, err)

	_, err = svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)

	// an earlier attempt on the same preference is delivered after the approval
	p.parse = paymentNotification("req-987", "987")
	p.snapshot.ProviderPaymentID = "987"
	p.snapshot.State = StateRejected
	p.snapshot.RawStatus = "rejected"
	out, err := svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusApproved, out.PaymentStatus)
	assert.Equal(t, "status_transition_skipped", out.Reason)
	stored, _ := repo.GetPaymentByCorrelationID("corr-1")
	assert.Equal(t, models.PaymentStatusApproved, stored.Status)
	assert.Equal(t, "988", stored.ProviderPaymentID)
	assert.Equal(t, models.EnrollmentStatusActive, activator.rows[enrollmentKey{7, 42}].Status)
}

func TestWebhookApprovalAfterRejectedAttemptActivates(t *testing.T) {
	p := approvedProvider()
	p.snapshot.State = StateRejected
	svc, repo, activator := newTestService(p)
	ctx := context.Background()
	_, err := svc.CreateCheckout(ctx, "mercadopago", 7, 42)
	require.NoError(t, err)

	_, err = svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)

	p.parse = paymentNotification("req-2", "988")
	p.snapshot.State = StateApproved
	out, err := svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)

	assert.True(t, out.EnrollmentActivated)
	stored, _ := repo.GetPaymentByCorrelationID("corr-1")
	assert.Equal(t, models.PaymentStatusApproved, stored.Status)
	assert.Equal(t, 1, activator.calls)
}

func TestWebhookApprovalAfterRefundKeepsRefundedLedger(t *testing.T) {
	p := approvedProvider()
	p.snapshot.State = StateRefunded
	svc, repo, activator := newTestService(p)
	ctx := context.Background()
	_, err := svc.CreateCheckout(ctx, "mercadopago", 7, 42)
	require.NoError(t, err)

	_, err = svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)

	p.parse = paymentNotification("req-2", "987")
	p.snapshot.State = StateApproved
	out, err := svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusRefunded, out.PaymentStatus)
	assert.False(t, out.EnrollmentActivated)
	stored, _ := repo.GetPaymentByCorrelationID("corr-1")
	assert.Equal(t, models.PaymentStatusRefunded, stored.Status)
	assert.Equal(t, 0, activator.calls)
}

func TestWebhookProviderRefFallbackUsesNewestRow(t *testing.T) {
	p := approvedProvider()
	p.snapshot.CorrelationID = ""
	p.snapshot.ProviderRef = "pref-1"
	p.snapshot.State = StateRejected
	svc, repo, _ := newTestService(p)
	ctx := context.Background()

	// two checkouts reuse the same provider reference
	_, err := svc.CreateCheckout(ctx, "mercadopago", 7, 42)
	require.NoError(t, err)
	_, err = svc.CreateCheckout(ctx, "mercadopago", 7, 42)
	require.NoError(t, err)

	_, err = svc.HandleWebhook(ctx, "mercadopago", WebhookRequest{})
	require.NoError(t, err)

	older, _ := repo.GetPaymentByCorrelationID("corr-1")
	newer, _ := repo.GetPaymentByCorrelationID("corr-2")
	assert.Equal(t, models.PaymentStatusCreated, older.Status)
	assert.Equal(t, models.PaymentStatusRejected, newer.Status)
}
