package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"interview-monitor/internal/domain"
)

type apiErrorBody struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code string, message string, details interface{}) {
	if code == "" {
		code = http.StatusText(status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiErrorBody{Error: apiError{Code: code, Message: message, Details: details}})
}

// writeDomainError maps controller sentinels to a status and code.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoTarget):
		writeError(w, http.StatusConflict, "NO_TARGET", err.Error(), nil)
	case errors.Is(err, domain.ErrAlreadyActive):
		writeError(w, http.StatusConflict, "ALREADY_ACTIVE", err.Error(), nil)
	case errors.Is(err, domain.ErrNotConnected):
		writeError(w, http.StatusConflict, "NOT_CONNECTED", err.Error(), nil)
	case errors.Is(err, domain.ErrUnknownSource):
		writeError(w, http.StatusNotFound, "UNKNOWN_SOURCE", err.Error(), nil)
	case errors.Is(err, domain.ErrUnknownAlert):
		writeError(w, http.StatusNotFound, "UNKNOWN_ALERT", err.Error(), nil)
	case errors.Is(err, domain.ErrTransportUnavailable):
		writeError(w, http.StatusServiceUnavailable, "TRANSPORT_UNAVAILABLE", err.Error(), nil)
	case errors.Is(err, domain.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "CLOSED", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
