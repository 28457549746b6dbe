package handlers

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON body of every error response. Details carries
// machine-readable context such as the failing parameter name.
type ErrorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return ErrorResponseWithDetails(w, statusCode, errorCode, message, nil)
}

// ErrorResponseWithDetails is ErrorResponse with a details object.
func ErrorResponseWithDetails(w http.ResponseWriter, statusCode int, errorCode, message string, details map[string]any) error {
	return WriteJSON(w, statusCode, ErrorBody{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, err = w.Write(append(body, '\n'))
	return err
}
