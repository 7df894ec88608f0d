package billing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/gofiber/fiber/v2/log"
)

// Provider is one payment processor integration.
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	FetchPayment(ctx context.Context, resourceID string) (*PaymentSnapshot, error)
	ParseNotification(req WebhookRequest) (*Notification, error)
	VerifyWebhook(ctx context.Context, n *Notification) Verification
}

// Registry holds the providers that could be built from configuration and
// remembers why the others are missing.
type Registry struct {
	providers map[string]Provider
	disabled  map[string]error
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(providers)),
		disabled:  make(map[string]error),
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// NewRegistryFromEnv builds every provider from the environment. A provider
// with missing credentials is disabled; the others stay usable.
func NewRegistryFromEnv() *Registry {
	r := NewRegistry()

	if mp, err := NewMercadoPagoClientFromEnv(); err != nil {
		log.Warnf("[Billing] mercadopago disabled: %v", err)
		r.Disable(models.PaymentProviderMercadoPago, err)
	} else {
		r.Register(mp)
	}

	if pp, err := NewPayPalClientFromEnv(); err != nil {
		log.Warnf("[Billing] paypal disabled: %v", err)
		r.Disable(models.PaymentProviderPayPal, err)
	} else {
		r.Register(pp)
	}

	return r
}

func (r *Registry) Register(p Provider) {
	name := normalizeProvider(p.Name())
	r.providers[name] = p
	delete(r.disabled, name)
}

func (r *Registry) Disable(name string, reason error) {
	name = normalizeProvider(name)
	delete(r.providers, name)
	r.disabled[name] = reason
}

// Get returns the provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	name = normalizeProvider(name)
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	if reason, ok := r.disabled[name]; ok {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderDisabled, name, reason)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// Names lists the enabled providers in a stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
