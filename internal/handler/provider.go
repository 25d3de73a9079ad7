package handler

import (
	stripe "github.com/stripe/stripe-go/v82"

	sitestripe "github.com/languaro/site/internal/stripe"
)

// PaymentProvider is the slice of the payment provider's API the
// handlers use. Satisfied by *internal/stripe.Client; tests substitute
// fakes.
type PaymentProvider interface {
	CreateCheckoutSession(p sitestripe.CheckoutParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(id string) (*stripe.CheckoutSession, error)
	GetSubscription(id string) (*stripe.Subscription, error)
	CustomerEmail(id string) (string, error)
	VerifyWebhook(payload []byte, sigHeader string) error
}
