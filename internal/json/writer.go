package json

import (
	"encoding/json"
	"net/http"

	"github.com/mattppal/external-notifier/internal/log"
)

// ErrorResponse is the error body used by the OAuth endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// FailureResponse is the error body used by the API endpoints
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteResponse writes a JSON response with the given status code
func WriteResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.LogError("Failed to encode JSON response: %v", err)
		return err
	}
	return nil
}

// Write writes a JSON response with 200 OK status
func Write(w http.ResponseWriter, data any) error {
	return WriteResponse(w, http.StatusOK, data)
}

// WriteError writes {"error": ..., "details": ...}
func WriteError(w http.ResponseWriter, statusCode int, error string, details string) {
	response := ErrorResponse{
		Error:   error,
		Details: details,
	}

	// the header is already sent; WriteResponse logs the failure
	_ = WriteResponse(w, statusCode, response)
}

// WriteFailure writes {"success": false, "error": ...}
func WriteFailure(w http.ResponseWriter, statusCode int, error string) {
	_ = WriteResponse(w, statusCode, FailureResponse{Error: error})
}

func WriteBadRequest(w http.ResponseWriter, error string) {
	WriteError(w, http.StatusBadRequest, error, "")
}

func WriteUnauthenticated(w http.ResponseWriter) {
	WriteFailure(w, http.StatusUnauthorized, "Not authenticated")
}
