package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/languaro/site/internal/emailaddr"
	"github.com/languaro/site/internal/model"
	"github.com/languaro/site/internal/plan"
	"github.com/languaro/site/internal/supabase"
)

// WebhookHandler receives purchase notifications. Two payload shapes
// arrive on the same endpoint: Stripe event envelopes and legacy flat
// payloads ({email, product_name, ...}) from the previous checkout
// provider. Events this service has no action for are acknowledged with
// 200 so the provider does not retry-storm.
type WebhookHandler struct {
	provider   PaymentProvider
	store      *supabase.Client
	usersTable string
	logger     *slog.Logger
}

func NewWebhookHandler(provider PaymentProvider, store *supabase.Client, usersTable string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		provider:   provider,
		store:      store,
		usersTable: usersTable,
		logger:     logger,
	}
}

type webhookResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
	Plan    string `json:"plan,omitempty"`
}

// stripeEnvelope is the outer event shape. A payload without a type and
// data.object is treated as a legacy webhook instead.
type stripeEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// recurrence accepts both {"interval":"month"} and the bare string
// "month", both of which occur in provider payloads.
type recurrence struct {
	Interval string
}

func (rc *recurrence) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		rc.Interval = s
		return nil
	}
	var obj struct {
		Interval string `json:"interval"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		rc.Interval = obj.Interval
	}
	return nil
}

type sessionObject struct {
	ID              string `json:"id"`
	AmountTotal     int64  `json:"amount_total"`
	Amount          int64  `json:"amount"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Recurring           recurrence `json:"recurring"`
	SubscriptionDetails recurrence `json:"subscription_details"`
}

type invoiceObject struct {
	CustomerEmail string `json:"customer_email"`
	Customer      string `json:"customer"`
}

type subscriptionObject struct {
	Customer string `json:"customer"`
}

type legacyPayload struct {
	Email     string `json:"email"`
	Purchaser struct {
		Email string `json:"email"`
	} `json:"purchaser"`
	SaleID      string  `json:"sale_id"`
	ProductName string  `json:"product_name"`
	Price       flexInt `json:"price"`
}

// Handle handles POST /api/purchase-webhook.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if !h.store.Configured() {
		h.logger.Error("store not configured")
		writeError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	var env stripeEnvelope
	_ = json.Unmarshal(body, &env)

	if env.Type != "" && len(env.Data.Object) > 0 {
		h.handleStripeEvent(w, r, body, env)
		return
	}

	h.handleLegacy(w, r, body)
}

func (h *WebhookHandler) handleStripeEvent(w http.ResponseWriter, r *http.Request, body []byte, env stripeEnvelope) {
	h.logger.Info("stripe webhook received", "type", env.Type)

	if h.provider != nil {
		if err := h.provider.VerifyWebhook(body, r.Header.Get("Stripe-Signature")); err != nil {
			h.logger.Warn("webhook signature rejected", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid signature")
			return
		}
	}

	switch env.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(w, r, env.Data.Object)

	case "invoice.payment_succeeded":
		h.handleInvoicePaid(w, r, env.Data.Object)

	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(w, r, env.Data.Object)

	case "payment_intent.succeeded", "invoice.payment_failed":
		// Informational only.
		h.logger.Info("event received, no action needed", "type", env.Type)
		writeJSON(w, http.StatusOK, webhookResponse{OK: true, Message: "Event logged"})

	default:
		h.logger.Warn("unhandled event type", "type", env.Type)
		writeJSON(w, http.StatusOK, webhookResponse{OK: true, Message: "Event received"})
	}
}

// handleCheckoutCompleted activates a subscription on initial purchase.
func (h *WebhookHandler) handleCheckoutCompleted(w http.ResponseWriter, r *http.Request, object json.RawMessage) {
	var sess sessionObject
	if err := json.Unmarshal(object, &sess); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	email := sess.CustomerDetails.Email
	if email == "" {
		email = sess.CustomerEmail
	}
	email = emailaddr.Normalize(email)
	if !emailaddr.Valid(email) {
		h.logger.Error("invalid email in checkout session", "email", email)
		writeError(w, http.StatusBadRequest, "Invalid email")
		return
	}

	amount := sess.AmountTotal
	if amount == 0 {
		amount = sess.Amount
	}
	interval := sess.Recurring.Interval
	if interval == "" {
		interval = sess.SubscriptionDetails.Interval
	}

	now := time.Now().UTC()
	expiresAt := now.Add(30 * 24 * time.Hour)
	record := model.User{
		Email:                 email,
		IsPro:                 true,
		Plan:                  plan.FromStripe(amount, interval),
		ActivatedAt:           &now,
		SubscriptionExpiresAt: &expiresAt,
		PurchaseData: &model.PurchaseData{
			Source:    "stripe",
			SessionID: sess.ID,
			Amount:    sess.AmountTotal,
		},
	}

	if _, err := h.store.Upsert(r.Context(), h.usersTable, record, "email"); err != nil {
		h.logger.Error("activate subscription", "error", err, "email", email)
		writeError(w, http.StatusInternalServerError, upstreamMessage(err))
		return
	}

	h.logger.Info("subscription activated", "email", email)
	writeJSON(w, http.StatusOK, webhookResponse{OK: true, Message: "Subscription activated"})
}

// handleInvoicePaid extends the subscription on a recurring payment.
func (h *WebhookHandler) handleInvoicePaid(w http.ResponseWriter, r *http.Request, object json.RawMessage) {
	var invoice invoiceObject
	if err := json.Unmarshal(object, &invoice); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	email := invoice.CustomerEmail
	if email == "" && invoice.Customer != "" {
		if h.provider == nil {
			writeError(w, http.StatusInternalServerError, "Stripe not configured")
			return
		}
		looked, err := h.provider.CustomerEmail(invoice.Customer)
		if err != nil {
			h.logger.Error("look up customer", "error", err, "customer", invoice.Customer)
			writeError(w, http.StatusInternalServerError, upstreamMessage(err))
			return
		}
		email = looked
	}

	email = emailaddr.Normalize(email)
	if !emailaddr.Valid(email) {
		h.logger.Error("invalid email on invoice", "email", email)
		writeError(w, http.StatusBadRequest, "Invalid email")
		return
	}

	expiresAt := time.Now().UTC().Add(30 * 24 * time.Hour)
	record := model.User{
		Email:                 email,
		IsPro:                 true,
		SubscriptionExpiresAt: &expiresAt,
	}

	if _, err := h.store.Upsert(r.Context(), h.usersTable, record, "email"); err != nil {
		h.logger.Error("extend subscription", "error", err, "email", email)
		writeError(w, http.StatusInternalServerError, upstreamMessage(err))
		return
	}

	h.logger.Info("subscription extended", "email", email)
	writeJSON(w, http.StatusOK, webhookResponse{OK: true, Message: "Subscription extended"})
}

// handleSubscriptionDeleted revokes access on cancellation.
func (h *WebhookHandler) handleSubscriptionDeleted(w http.ResponseWriter, r *http.Request, object json.RawMessage) {
	var sub subscriptionObject
	if err := json.Unmarshal(object, &sub); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	if h.provider == nil {
		writeError(w, http.StatusInternalServerError, "Stripe not configured")
		return
	}
	email, err := h.provider.CustomerEmail(sub.Customer)
	if err != nil {
		h.logger.Error("look up customer", "error", err, "customer", sub.Customer)
		writeError(w, http.StatusInternalServerError, upstreamMessage(err))
		return
	}

	email = emailaddr.Normalize(email)
	if !emailaddr.Valid(email) {
		h.logger.Error("invalid email on cancelled subscription", "email", email)
		writeError(w, http.StatusBadRequest, "Invalid email")
		return
	}

	record := model.User{Email: email, IsPro: false}
	if _, err := h.store.Upsert(r.Context(), h.usersTable, record, "email"); err != nil {
		h.logger.Error("revoke subscription", "error", err, "email", email)
		writeError(w, http.StatusInternalServerError, upstreamMessage(err))
		return
	}

	h.logger.Info("subscription cancelled", "email", email)
	writeJSON(w, http.StatusOK, webhookResponse{OK: true, Message: "Subscription cancelled"})
}

// handleLegacy processes flat payloads from the pre-Stripe provider.
func (h *WebhookHandler) handleLegacy(w http.ResponseWriter, r *http.Request, body []byte) {
	h.logger.Info("legacy webhook received")

	var payload legacyPayload
	_ = json.Unmarshal(body, &payload)

	email := payload.Email
	if email == "" {
		email = payload.Purchaser.Email
	}
	if email == "" {
		h.logger.Error("could not extract email from webhook")
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	email = emailaddr.Normalize(email)
	if !emailaddr.Valid(email) {
		h.logger.Error("invalid email in legacy payload", "email", email)
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	now := time.Now().UTC()
	planLabel := plan.FromProduct(payload.ProductName, int64(payload.Price))
	record := model.User{
		Email:       email,
		IsPro:       true,
		Plan:        planLabel,
		ActivatedAt: &now,
		PurchaseData: &model.PurchaseData{
			Source:      "gumroad",
			SaleID:      payload.SaleID,
			ProductName: payload.ProductName,
		},
	}

	if _, err := h.store.Upsert(r.Context(), h.usersTable, record, "email"); err != nil {
		h.logger.Error("process legacy purchase", "error", err, "email", email)
		writeError(w, http.StatusInternalServerError, upstreamMessage(err))
		return
	}

	h.logger.Info("purchase processed", "email", email, "plan", planLabel)
	writeJSON(w, http.StatusOK, webhookResponse{
		OK:      true,
		Message: "Purchase processed successfully",
		Email:   email,
		Plan:    planLabel,
	})
}
