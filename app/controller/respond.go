package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/service"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed store request
// Example: {"ok": false, "error": "Código inválido"}
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.S().Errorf("❌ respondJSON: Error encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{OK: false, Error: message})
}

// respondServiceError writes a *service.RequestError with its own status and anything
// else as a 500
func respondServiceError(w http.ResponseWriter, op string, err error) {
	var re *service.RequestError
	if errors.As(err, &re) {
		respondError(w, re.StatusCode, re.Message)
		return
	}
	zap.S().Errorf("❌ %s: %v", op, err)
	respondError(w, http.StatusInternalServerError, "Error del servidor")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// int64Param parses a positive integer URL parameter
func int64Param(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
