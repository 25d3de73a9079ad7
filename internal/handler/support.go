package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/languaro/site/internal/emailaddr"
	"github.com/languaro/site/internal/model"
	"github.com/languaro/site/internal/supabase"
)

const (
	maxPageURLLen   = 2048
	maxUserAgentLen = 512
)

// SupportHandler records support-form submissions. Repeat submissions
// from the same address update the existing row.
type SupportHandler struct {
	store  *supabase.Client
	table  string
	logger *slog.Logger
}

func NewSupportHandler(store *supabase.Client, table string, logger *slog.Logger) *SupportHandler {
	return &SupportHandler{
		store:  store,
		table:  table,
		logger: logger,
	}
}

type supportRequest struct {
	Email     string `json:"email"`
	Message   string `json:"message"`
	PageURL   string `json:"pageUrl"`
	UserAgent string `json:"userAgent"`
}

// Submit handles POST /api/support.
func (h *SupportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !h.store.Configured() {
		writeError(w, http.StatusInternalServerError, "Supabase environment variables not configured")
		return
	}

	var req supportRequest
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

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	record := model.SupportRequest{
		Email:          email,
		SupportMessage: message,
		LastSupportAt:  time.Now().UTC(),
		Source:         "support",
		UserAgent:      clip(req.UserAgent, maxUserAgentLen),
		PageURL:        clip(req.PageURL, maxPageURLLen),
	}

	if _, err := h.store.Upsert(r.Context(), h.table, record, "email"); err != nil {
		h.logger.Error("store support request", "error", err, "email", email)
		writeError(w, http.StatusInternalServerError, upstreamMessage(err))
		return
	}

	h.logger.Info("support request received", "email", email)
	writeJSON(w, http.StatusOK, subscribeResponse{OK: true, Message: "Support request sent"})
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
