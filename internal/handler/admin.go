package handler

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/languaro/site/internal/emailaddr"
	"github.com/languaro/site/internal/model"
	"github.com/languaro/site/internal/plan"
	"github.com/languaro/site/internal/supabase"
)

// AdminHandler manually grants pro access, guarded by a shared secret.
// With no secret configured every request is rejected.
type AdminHandler struct {
	secret     string
	store      *supabase.Client
	usersTable string
	logger     *slog.Logger
}

func NewAdminHandler(secret string, store *supabase.Client, usersTable string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		secret:     secret,
		store:      store,
		usersTable: usersTable,
		logger:     logger,
	}
}

type addProUserRequest struct {
	Secret string `json:"secret"`
	Email  string `json:"email"`
	Plan   string `json:"plan"`
}

type addProUserResponse struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message"`
	User    json.RawMessage `json:"user"`
}

// AddProUser handles POST /api/add-pro-user.
func (h *AdminHandler) AddProUser(w http.ResponseWriter, r *http.Request) {
	if !h.store.Configured() {
		writeError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}

	var req addProUserRequest
	readBody(r, &req)

	// Fail closed: an unset secret rejects everything.
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.secret)) != 1 {
		h.logger.Warn("unauthorized add-pro-user attempt")
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	email := emailaddr.Normalize(req.Email)
	if !emailaddr.Valid(email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	planLabel := req.Plan
	if planLabel == "" {
		planLabel = plan.Pro
	}

	now := time.Now().UTC()
	record := model.User{
		Email:       email,
		IsPro:       true,
		Plan:        planLabel,
		ActivatedAt: &now,
		PurchaseData: &model.PurchaseData{
			Source:  "manual",
			AddedBy: "admin",
		},
	}

	res, err := h.store.Upsert(r.Context(), h.usersTable, record, "email")
	if err != nil {
		h.logger.Error("add pro user", "error", err, "email", email)
		writeError(w, http.StatusInternalServerError, upstreamMessage(err))
		return
	}

	h.logger.Info("pro user added", "email", email, "plan", planLabel)
	writeJSON(w, http.StatusOK, addProUserResponse{
		OK:      true,
		Message: "Pro user added successfully",
		User:    res.Body,
	})
}
