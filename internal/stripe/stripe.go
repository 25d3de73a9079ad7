// Package stripe wraps the Stripe SDK calls this service makes.
package stripe

import (
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

type Config struct {
	SecretKey string
	// WebhookSecret enables signature verification when non-empty.
	WebhookSecret string
}

type Client struct {
	api *client.API
	cfg Config
}

func NewClient(cfg Config) *Client {
	return &Client{
		api: client.New(cfg.SecretKey, nil),
		cfg: cfg,
	}
}

// Configured returns true if the secret key is set.
func (c *Client) Configured() bool {
	return c.cfg.SecretKey != ""
}

// VerifiesWebhooks returns true if a webhook signing secret is configured.
func (c *Client) VerifiesWebhooks() bool {
	return c.cfg.WebhookSecret != ""
}

// CheckoutParams describes a checkout session to create.
type CheckoutParams struct {
	PriceID    string
	Plan       string
	Origin     string
	Email      string
	SuccessURL string
	CancelURL  string
}

// CreateCheckoutSession creates a checkout session for a single line item.
// Monthly plans use subscription mode; everything else is a one-time
// payment. Promotion codes are always allowed.
func (c *Client) CreateCheckoutSession(p CheckoutParams) (*stripe.CheckoutSession, error) {
	mode := stripe.CheckoutSessionModePayment
	if p.Plan == "monthly" {
		mode = stripe.CheckoutSessionModeSubscription
	}

	params := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:                     stripe.String(string(mode)),
		SuccessURL:               stripe.String(p.SuccessURL),
		CancelURL:                stripe.String(p.CancelURL),
		AllowPromotionCodes:      stripe.Bool(true),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionAuto)),
	}
	if p.Email != "" {
		params.CustomerEmail = stripe.String(p.Email)
	}
	planTag := p.Plan
	if planTag == "" {
		planTag = "unknown"
	}
	params.AddMetadata("plan", planTag)

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return sess, nil
}

// GetCheckoutSession retrieves a checkout session by ID.
func (c *Client) GetCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	sess, err := c.api.CheckoutSessions.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return sess, nil
}

// GetSubscription retrieves a subscription by ID.
func (c *Client) GetSubscription(id string) (*stripe.Subscription, error) {
	sub, err := c.api.Subscriptions.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

// CustomerEmail looks up a customer's email address by customer ID.
func (c *Client) CustomerEmail(id string) (string, error) {
	cust, err := c.api.Customers.Get(id, nil)
	if err != nil {
		return "", fmt.Errorf("get customer: %w", err)
	}
	return cust.Email, nil
}

// VerifyWebhook checks the event signature. A no-op when no webhook
// secret is configured.
func (c *Client) VerifyWebhook(payload []byte, sigHeader string) error {
	if c.cfg.WebhookSecret == "" {
		return nil
	}
	if err := webhook.ValidatePayload(payload, sigHeader, c.cfg.WebhookSecret); err != nil {
		return fmt.Errorf("verify webhook signature: %w", err)
	}
	return nil
}

// PeriodEnd returns the current billing-period end of a subscription,
// read from its first item.
func PeriodEnd(sub *stripe.Subscription) (time.Time, bool) {
	if sub == nil || sub.Items == nil {
		return time.Time{}, false
	}
	for _, item := range sub.Items.Data {
		if item != nil && item.CurrentPeriodEnd > 0 {
			return time.Unix(item.CurrentPeriodEnd, 0).UTC(), true
		}
	}
	return time.Time{}, false
}
