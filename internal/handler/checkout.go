package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/languaro/site/internal/emailaddr"
	"github.com/languaro/site/internal/model"
	sitestripe "github.com/languaro/site/internal/stripe"
	"github.com/languaro/site/internal/supabase"
)

// CheckoutHandler creates checkout sessions and confirms them after the
// fact. Confirm is a polling fallback for when webhook delivery is not
// wired up; it writes to the licensing store rather than the marketing
// one.
type CheckoutHandler struct {
	provider       PaymentProvider
	licensingStore *supabase.Client
	usersTable     string
	defaultOrigin  string
	logger         *slog.Logger
}

func NewCheckoutHandler(provider PaymentProvider, licensingStore *supabase.Client, usersTable, defaultOrigin string, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		provider:       provider,
		licensingStore: licensingStore,
		usersTable:     usersTable,
		defaultOrigin:  defaultOrigin,
		logger:         logger,
	}
}

type createCheckoutRequest struct {
	PriceID string `json:"priceId"`
	Plan    string `json:"plan"`
	Email   string `json:"email"`
}

type createCheckoutResponse struct {
	OK        bool   `json:"ok"`
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// Create handles POST /api/create-checkout.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeError(w, http.StatusInternalServerError, "Stripe not configured")
		return
	}

	var req createCheckoutRequest
	readBody(r, &req)

	if req.PriceID == "" {
		writeError(w, http.StatusBadRequest, "Price ID required")
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = h.defaultOrigin
	}

	sess, err := h.provider.CreateCheckoutSession(sitestripe.CheckoutParams{
		PriceID:    req.PriceID,
		Plan:       req.Plan,
		Email:      req.Email,
		SuccessURL: origin + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  origin + "/#pricing",
	})
	if err != nil {
		h.logger.Error("create checkout session", "error", err)
		writeError(w, http.StatusInternalServerError, upstreamMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, createCheckoutResponse{
		OK:        true,
		URL:       sess.URL,
		SessionID: sess.ID,
	})
}

type confirmCheckoutResponse struct {
	OK     bool            `json:"ok"`
	Email  string          `json:"email"`
	Result json.RawMessage `json:"result"`
}

// Confirm handles GET /api/confirm-checkout.
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeError(w, http.StatusInternalServerError, "Stripe not configured")
		return
	}
	if !h.licensingStore.Configured() {
		writeError(w, http.StatusInternalServerError, "Supabase not configured")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = r.URL.Query().Get("sessionId")
	}
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Missing session_id")
		return
	}

	sess, err := h.provider.GetCheckoutSession(sessionID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Error("retrieve checkout session", "error", err, "session_id", sessionID)
		writeError(w, http.StatusInternalServerError, upstreamMessage(err))
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	email := ""
	if sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}
	if email == "" {
		email = sess.CustomerEmail
	}
	email = emailaddr.Normalize(email)
	if !emailaddr.Valid(email) {
		writeError(w, http.StatusBadRequest, "Could not determine email from session")
		return
	}

	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid && sess.Status != stripe.CheckoutSessionStatusComplete {
		writeError(w, http.StatusBadRequest, "Payment not completed")
		return
	}

	now := time.Now().UTC()
	expiresAt := now.Add(30 * 24 * time.Hour)
	if sess.Mode == stripe.CheckoutSessionModeSubscription && sess.Subscription != nil {
		// Best effort: a failed lookup falls back to the 30-day default.
		if sub, err := h.provider.GetSubscription(sess.Subscription.ID); err == nil {
			if end, ok := sitestripe.PeriodEnd(sub); ok {
				expiresAt = end
			}
		} else {
			h.logger.Warn("retrieve subscription", "error", err, "session_id", sessionID)
		}
	}

	record := model.User{
		Email:                 email,
		IsPro:                 true,
		ActivatedAt:           &now,
		SubscriptionExpiresAt: &expiresAt,
		PurchaseData: &model.PurchaseData{
			Source:    "stripe",
			SessionID: sess.ID,
			Amount:    sess.AmountTotal,
		},
	}

	res, err := h.licensingStore.Upsert(r.Context(), h.usersTable, record, "email")
	if err != nil {
		h.logger.Error("confirm upsert", "error", err, "email", email)
		writeError(w, http.StatusInternalServerError, upstreamMessage(err))
		return
	}

	h.logger.Info("checkout confirmed", "email", email, "session_id", sess.ID)
	writeJSON(w, http.StatusOK, confirmCheckoutResponse{
		OK:     true,
		Email:  email,
		Result: res.Body,
	})
}
