package handler

import (
	"crypto/subtle"
	_ "embed"
	"log/slog"
	"net/http"
)

//go:embed dash.html
var dashHTML []byte

// DashHandler serves the private metrics dashboard behind HTTP Basic
// auth. The page itself polls /api/metrics from the browser.
type DashHandler struct {
	username string
	password string
	logger   *slog.Logger
}

func NewDashHandler(username, password string, logger *slog.Logger) *DashHandler {
	return &DashHandler{
		username: username,
		password: password,
		logger:   logger,
	}
}

// Serve handles GET /dash.
func (h *DashHandler) Serve(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok {
		h.challenge(w, "Authentication required")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(h.password)) == 1
	if !userOK || !passOK {
		h.logger.Warn("dashboard login rejected", "user", user)
		h.challenge(w, "Invalid credentials")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Robots-Tag", "noindex, nofollow, noarchive")
	w.WriteHeader(http.StatusOK)
	w.Write(dashHTML)
}

func (h *DashHandler) challenge(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="Languaro Dashboard"`)
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	http.Error(w, msg, http.StatusUnauthorized)
}
