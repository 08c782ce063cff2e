// Package response writes the uniform {success, ...} JSON envelope returned
// by every API handler.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"gamedoc/pkg/apperr"
	"gamedoc/pkg/logger"
)

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// OK writes {"success":true,"<key>":data}. A nil data writes only the flag.
func OK(w http.ResponseWriter, status int, key string, data any) {
	body := map[string]any{"success": true}
	if data != nil && key != "" {
		body[key] = data
	}
	write(w, status, body)
}

// Fail writes {"success":false,"error":msg}.
func Fail(w http.ResponseWriter, status int, msg string) {
	write(w, status, failure{Success: false, Error: msg})
}

// Error maps err onto a status code and a generic, user-safe message.
// The underlying detail is logged, never returned.
func Error(w http.ResponseWriter, err error) {
	status, msg := Classify(err)
	if status >= http.StatusInternalServerError {
		logger.Sugar.Errorf("request failed: %v", err)
	} else {
		logger.Sugar.Debugf("request rejected: %v", err)
	}
	Fail(w, status, msg)
}

// Classify returns the status code and message for err.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		if msg := apperr.Message(err); msg != "" {
			return http.StatusBadRequest, msg
		}
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, apperr.ErrPermissionDenied):
		return http.StatusForbidden, "Permission denied"
	case errors.Is(err, apperr.ErrInvalidState):
		return http.StatusConflict, "Operation not allowed in the current state"
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "Already exists"
	case errors.Is(err, apperr.ErrExpired):
		return http.StatusGone, "Expired"
	default:
		return http.StatusInternalServerError, "Something went wrong"
	}
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Sugar.Errorf("Failed to encode response: %v", err)
	}
}
