package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/languaro/site/internal/emailaddr"
	"github.com/languaro/site/internal/model"
	"github.com/languaro/site/internal/supabase"
)

// WaitlistHandler records newsletter/waitlist signups from the landing
// page form.
type WaitlistHandler struct {
	store  *supabase.Client
	table  string
	logger *slog.Logger
}

func NewWaitlistHandler(store *supabase.Client, table string, logger *slog.Logger) *WaitlistHandler {
	return &WaitlistHandler{
		store:  store,
		table:  table,
		logger: logger,
	}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

type subscribeResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Subscribe handles POST /api/subscribe.
func (h *WaitlistHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if !h.store.Configured() {
		writeError(w, http.StatusInternalServerError, "Supabase environment variables not configured")
		return
	}

	var req subscribeRequest
	readBody(r, &req)

	email := emailaddr.Normalize(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	if !emailaddr.Valid(email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	entry := model.WaitlistEntry{
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	res, err := h.store.Upsert(r.Context(), h.table, entry, "email")
	if err != nil {
		h.logger.Error("store subscription", "error", err, "email", email)
		writeError(w, http.StatusInternalServerError, upstreamMessage(err))
		return
	}

	// A merged (already present) row answers differently so the form can
	// tell the visitor they were already on the list.
	message := "Already subscribed"
	if res.Created {
		message = "Subscribed"
	}

	h.logger.Info("waitlist signup", "email", email, "created", res.Created)
	writeJSON(w, http.StatusOK, subscribeResponse{OK: true, Message: message})
}
