// Package payment holds the checkout placeholder. No payment processor is
// contacted: every session points at the configured redirect URL.
package payment

import (
	"github.com/safar/go-storefront/internal/config"
)

const PlaceholderMessage = "Checkout session created (placeholder)"

type CheckoutSession struct {
	CheckoutURL string `json:"checkoutUrl"`
	Message     string `json:"message"`
}

type Placeholder struct {
	checkoutURL string
	live        bool
}

func NewPlaceholder(cfg config.PaymentConfig) *Placeholder {
	url := cfg.CheckoutURL
	if url == "" {
		url = config.DefaultCheckoutURL
	}
	return &Placeholder{
		checkoutURL: url,
		live:        cfg.PublishableKey != "" && cfg.PublishableKey != config.PlaceholderPublishableKey,
	}
}

// CreateCheckoutSession returns the fixed redirect. It creates no order,
// takes no payment and leaves stock alone.
func (p *Placeholder) CreateCheckoutSession() CheckoutSession {
	return CheckoutSession{
		CheckoutURL: p.checkoutURL,
		Message:     PlaceholderMessage,
	}
}

// Configured reports whether a real publishable key was supplied.
func (p *Placeholder) Configured() bool {
	return p.live
}
