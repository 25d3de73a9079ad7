package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/languaro/site/internal/supabase"
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// upstreamMessage extracts a caller-safe message from an upstream
// failure: the store's own message when available, the error text
// otherwise.
func upstreamMessage(err error) string {
	var storeErr *supabase.Error
	if errors.As(err, &storeErr) {
		return storeErr.Message
	}
	return err.Error()
}
