package billing

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
)

type fakeProvider struct {
	name         string
	parse        func(req WebhookRequest) (*Notification, error)
	verification Verification
	snapshot     *PaymentSnapshot
	fetchErr     error
	checkout     *Checkout
	checkoutErr  error

	fetchCalls    int
	checkoutCalls int
	lastCheckout  CheckoutRequest
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	p.checkoutCalls++
	p.lastCheckout = req
	if p.checkoutErr != nil {
		return nil, p.checkoutErr
	}
	return p.checkout, nil
}

func (p *fakeProvider) FetchPayment(ctx context.Context, resourceID string) (*PaymentSnapshot, error) {
	p.fetchCalls++
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	cp := *p.snapshot
	return &cp, nil
}

func (p *fakeProvider) ParseNotification(req WebhookRequest) (*Notification, error) {
	n, err := p.parse(req)
	if err != nil {
		return nil, err
	}
	n.Provider = p.name
	n.Request = req
	return n, nil
}

func (p *fakeProvider) VerifyWebhook(ctx context.Context, n *Notification) Verification {
	return p.verification
}

type memoryRepo struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
	events   map[string]*models.WebhookEvent
	nextID   uint
	applyErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		payments: map[string]*models.Payment{},
		events:   map[string]*models.WebhookEvent{},
	}
}

func (r *memoryRepo) CreatePayment(p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.CorrelationID]; ok {
		return errors.New("duplicate correlation id")
	}
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.payments[p.CorrelationID] = &cp
	return nil
}

func (r *memoryRepo) GetPaymentByCorrelationID(id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepo) ApplyPaymentStatus(u PaymentStatusUpdate) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return nil, r.applyErr
	}
	var p *models.Payment
	if u.CorrelationID != "" {
		p = r.payments[u.CorrelationID]
		if p == nil && u.UserID != 0 && u.CourseID != 0 {
			r.nextID++
			p = &models.Payment{ID: r.nextID, UserID: u.UserID, CourseID: u.CourseID, Provider: u.Provider, CorrelationID: u.CorrelationID, Status: models.PaymentStatusCreated}
			r.payments[u.CorrelationID] = p
		}
	} else if u.ProviderRef != "" {
		// newest row wins, as in the GORM repository's id DESC lookup
		for _, candidate := range r.payments {
			if candidate.Provider == u.Provider && candidate.ProviderRef == u.ProviderRef && (p == nil || candidate.ID > p.ID) {
				p = candidate
			}
		}
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	if !p.Status.CanTransitionTo(u.Status) {
		cp := *p
		return &cp, nil
	}
	p.Status = u.Status
	p.StatusDetail = u.StatusDetail
	p.RawPayloadJSON = u.RawPayloadJSON
	if u.ProviderPaymentID != "" {
		p.ProviderPaymentID = u.ProviderPaymentID
	}
	if u.Amount > 0 {
		p.Amount = u.Amount
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepo) ListPaymentsByUser(userID uint) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memoryRepo) CreateWebhookEventIfNotExists(e *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := e.Provider + "|" + e.EventID
	if stored, ok := r.events[key]; ok {
		cp := *stored
		return false, &cp, nil
	}
	r.nextID++
	e.ID = r.nextID
	cp := *e
	r.events[key] = &cp
	return true, e, nil
}

func (r *memoryRepo) MarkWebhookProcessed(id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeCourses map[uint]*models.Course

func (f fakeCourses) GetByID(id uint) (*models.Course, error) {
	c, ok := f[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

type enrollmentKey struct {
	user   uint
	course uint
}

type fakeActivator struct {
	rows  map[enrollmentKey]*models.Enrollment
	calls int
	err   error
}

func newFakeActivator() *fakeActivator {
	return &fakeActivator{rows: map[enrollmentKey]*models.Enrollment{}}
}

func (a *fakeActivator) Activate(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	k := enrollmentKey{userID, courseID}
	e, ok := a.rows[k]
	if !ok {
		e = &models.Enrollment{UserID: userID, CourseID: courseID}
		a.rows[k] = e
	}
	e.Status = models.EnrollmentStatusActive
	return e, nil
}
