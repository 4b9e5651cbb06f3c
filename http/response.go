package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the error response matching err's sentinel. Client
// errors carry the error text; upstream and internal failures are logged
// and answered with a generic message.
func HandleError(w http.ResponseWriter, err error) {
	status, code := classify(err)

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err)
		message := "Internal server error"
		if status == http.StatusBadGateway {
			message = "A backing store is unavailable, retry later"
		}
		WriteError(w, status, code, message)
		return
	}

	slog.Debug("request rejected", "status", status, "error", err)
	WriteError(w, status, code, err.Error())
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
