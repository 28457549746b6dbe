package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseSessionID extracts and validates the session ID from the request path.
// Returns the ID and true on success, or "" and false after writing a 400.
// Expects path parameter: sid
func ParseSessionID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	id, err := uuid.Parse(r.PathValue("sid"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_session_id", "Invalid session ID format"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return id.String(), true
}

// decodeJSONBody decodes the request body into dst. An empty body is
// accepted when allowEmpty is set and leaves dst untouched. On failure a 400
// has been written.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool, logger *zap.Logger) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
	return false
}
