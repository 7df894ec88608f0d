package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/gofiber/fiber/v2/log"
)

// WebhookOutcome describes what a delivery did. Every outcome returned
// without an error is acknowledged to the provider with HTTP 200.
type WebhookOutcome struct {
	Provider            string
	Topic               Topic
	EventID             string
	Duplicate           bool
	Ignored             bool
	Reason              string
	Pending             bool
	State               ProviderState
	RawStatus           string
	StatusDetail        string
	PaymentStatus       models.PaymentStatus
	CorrelationID       string
	EnrollmentActivated bool
}

// HandleWebhook reconciles one inbound delivery:
//
//  1. non-payment topics are recorded and ignored
//  2. the signature is verified; failure is returned as ErrSignatureInvalid
//  3. the delivery is recorded once per idempotency key; repeats still reconcile
//  4. the payment state is fetched from the provider
//  5. the ledger is updated and, on approval, the enrollment activated
func (s *Service) HandleWebhook(ctx context.Context, providerName string, req WebhookRequest) (*WebhookOutcome, error) {
	p, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}
	n, err := p.ParseNotification(req)
	if err != nil {
		return nil, err
	}

	if n.Topic != TopicPayment {
		key, synthetic := s.idempotencyKey(n)
		created, _, err := s.RecordWebhookEvent(ctx, eventInput(n, key, synthetic))
		if err != nil {
			return nil, fmt.Errorf("record webhook event: %w", err)
		}
		log.Infof("[Reconcile] %s ignored topic=%s type=%s event=%s", n.Provider, n.Topic, n.EventType, key)
		return &WebhookOutcome{
			Provider:  n.Provider,
			Topic:     n.Topic,
			EventID:   key,
			Duplicate: !created,
			Ignored:   true,
			Reason:    "non_payment_topic",
		}, nil
	}

	v := p.VerifyWebhook(ctx, n)
	switch v.Outcome {
	case VerificationVerified:
	case VerificationSkipped:
		log.Warnf("[Reconcile] %s verification skipped reason=%s resource=%s", n.Provider, v.Reason, n.ResourceID)
		return &WebhookOutcome{
			Provider: n.Provider,
			Topic:    n.Topic,
			Ignored:  true,
			Reason:   "verification_skipped:" + v.Reason,
		}, nil
	default:
		log.Warnf("[Reconcile] %s signature rejected reason=%s resource=%s", n.Provider, v.Reason, n.ResourceID)
		return nil, fmt.Errorf("%w: %s", ErrSignatureInvalid, v.Reason)
	}

	key, synthetic := s.idempotencyKey(n)
	created, event, err := s.RecordWebhookEvent(ctx, eventInput(n, key, synthetic))
	if err != nil {
		return nil, fmt.Errorf("record webhook event: %w", err)
	}

	out, procErr := s.reconcile(ctx, p, n)
	if markErr := s.MarkWebhookProcessed(ctx, event.ID, procErr); markErr != nil {
		log.Errorf("[Reconcile] %s mark event %d processed: %v", n.Provider, event.ID, markErr)
	}
	if procErr != nil {
		log.Errorf("[Reconcile] %s event=%s resource=%s failed: %v", n.Provider, key, n.ResourceID, procErr)
		return nil, procErr
	}

	out.EventID = key
	out.Duplicate = !created
	log.Infof("[Reconcile] %s event=%s duplicate=%t resource=%s state=%s ledger=%s enrollment=%t",
		n.Provider, key, out.Duplicate, n.ResourceID, out.State, out.PaymentStatus, out.EnrollmentActivated)
	return out, nil
}

func (s *Service) reconcile(ctx context.Context, p Provider, n *Notification) (*WebhookOutcome, error) {
	out := &WebhookOutcome{Provider: n.Provider, Topic: n.Topic}
	if n.ResourceID == "" {
		out.Ignored = true
		out.Reason = "missing_resource_id"
		return out, nil
	}

	snap, err := p.FetchPayment(ctx, n.ResourceID)
	if err != nil {
		if !errors.Is(err, ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, err
	}
	out.State = snap.State
	out.RawStatus = snap.RawStatus
	out.StatusDetail = snap.StatusDetail
	out.CorrelationID = snap.CorrelationID

	status, final := snap.State.LedgerStatus()
	if !final {
		out.Pending = true
		return out, nil
	}
	if snap.State == StateApproved && snap.CorrelationID == "" {
		log.Warnf("[Reconcile] %s approved payment %s carries no correlation id", n.Provider, n.ResourceID)
		out.Ignored = true
		out.Reason = "missing_correlation_id"
		return out, nil
	}

	payment, err := s.repo.ApplyPaymentStatus(PaymentStatusUpdate{
		Provider:          n.Provider,
		CorrelationID:     snap.CorrelationID,
		ProviderRef:       snap.ProviderRef,
		ProviderPaymentID: snap.ProviderPaymentID,
		Status:            status,
		StatusDetail:      snap.StatusDetail,
		Amount:            snap.Amount,
		Currency:          snap.Currency,
		UserID:            snap.UserID,
		CourseID:          snap.CourseID,
		RawPayloadJSON:    snap.RawJSON,
	})
	if errors.Is(err, ErrPaymentNotFound) {
		log.Warnf("[Reconcile] %s no ledger row for correlation=%q ref=%q", n.Provider, snap.CorrelationID, snap.ProviderRef)
		out.Ignored = true
		out.Reason = "payment_not_found"
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("apply payment status: %w", err)
	}
	out.PaymentStatus = payment.Status
	if payment.Status != status {
		log.Infof("[Reconcile] %s ledger correlation=%s stays %s, payment %s reported %s",
			n.Provider, payment.CorrelationID, payment.Status, snap.ProviderPaymentID, status)
		out.Reason = "status_transition_skipped"
	}

	if snap.State != StateApproved || payment.Status != models.PaymentStatusApproved {
		return out, nil
	}

	userID, courseID := snap.UserID, snap.CourseID
	if userID == 0 || courseID == 0 {
		userID, courseID = payment.UserID, payment.CourseID
	} else if userID != payment.UserID || courseID != payment.CourseID {
		log.Warnf("[Reconcile] %s metadata user=%d course=%d differs from ledger user=%d course=%d (correlation=%s)",
			n.Provider, userID, courseID, payment.UserID, payment.CourseID, snap.CorrelationID)
	}
	if snap.Amount > 0 && payment.Amount > 0 && snap.Amount+0.005 < payment.Amount {
		log.Warnf("[Reconcile] %s paid amount %.2f below ledger amount %.2f (correlation=%s)",
			n.Provider, snap.Amount, payment.Amount, snap.CorrelationID)
	}

	if _, err := s.activator.Activate(ctx, userID, courseID); err != nil {
		return nil, fmt.Errorf("activate enrollment: %w", err)
	}
	out.EnrollmentActivated = true
	return out, nil
}

// idempotencyKey picks the provider request id, then the body event id. A
// random key is only minted when a delivery carries neither; such deliveries
// cannot be deduplicated and are flagged.
func (s *Service) idempotencyKey(n *Notification) (string, bool) {
	if n.RequestID != "" {
		return n.RequestID, false
	}
	if n.EventID != "" {
		return n.EventID, false
	}
	key := "gen:" + s.newID()
	log.Warnf("[Reconcile] %s delivery without request or event id, using %s", n.Provider, key)
	return key, true
}

func eventInput(n *Notification, key string, synthetic bool) WebhookEventInput {
	return WebhookEventInput{
		Provider:    n.Provider,
		EventID:     key,
		Topic:       eventTopicLabel(n),
		ResourceID:  n.ResourceID,
		SyntheticID: synthetic,
		PayloadJSON: payloadSnapshot(n),
	}
}

func eventTopicLabel(n *Notification) string {
	if n.EventType != "" && n.EventType != string(n.Topic) {
		return string(n.Topic) + ":" + n.EventType
	}
	return string(n.Topic)
}

// payloadSnapshot stores the body, or the query when the provider sent none.
func payloadSnapshot(n *Notification) string {
	if len(n.Request.Body) > 0 {
		return string(n.Request.Body)
	}
	raw, err := json.Marshal(map[string]any{"query": n.Request.Query})
	if err != nil {
		return "{}"
	}
	return string(raw)
}
