// Package handlers provides the HTTP handlers of the ingestion and
// catalogue API.
package handlers

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationDetail names one offending input field.
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrorResponse is the body of a 400 caused by input validation.
type ValidationErrorResponse struct {
	Error   string             `json:"error"`
	Details []ValidationDetail `json:"details"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes status with an {"error": message} body.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// BadRequest writes a 400 with the given message.
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// NotFound writes a 404 with the given message.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// ValidationError writes a 400 listing the offending fields.
func ValidationError(w http.ResponseWriter, details []ValidationDetail) {
	WriteJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:   "Validation Error",
		Details: details,
	})
}

// InternalError writes a generic 500. Detail never reaches the client; the
// caller is responsible for logging it.
func InternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "Internal server error")
}

// ServiceUnavailable writes a 503 with the given message.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, message)
}

// NoContent writes an empty 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
