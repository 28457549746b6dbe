package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
)

// ErrorResponse is a structured error returned as a tool result so the agent
// sees what went wrong and can fix its next call.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for actionable errors (bad parameter text, unknown session,
// evaluation failures). System failures should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// HandleServiceError converts a domain error into an error result. Errors
// the agent cannot act on are returned unchanged as Go errors.
func HandleServiceError(err error) (*mcp.CallToolResult, error) {
	var paramErr *apperrors.ParameterError
	var remoteErr *apperrors.RemoteError
	var depErr *apperrors.DependencyValidationError

	switch {
	case errors.As(err, &paramErr):
		code := "invalid_parameter"
		if errors.Is(err, apperrors.ErrSuspiciousParameterValue) {
			code = "suspicious_parameter_value"
		}
		return NewErrorResultWithDetails(code, err.Error(), map[string]any{"parameter": paramErr.Parameter}), nil
	case errors.As(err, &depErr):
		return NewErrorResultWithDetails("invalid_dependency_request", err.Error(), map[string]any{
			"missing_fields": depErr.MissingFields,
		}), nil
	case errors.Is(err, apperrors.ErrMissingQuery):
		return NewErrorResult("missing_query", err.Error()), nil
	case errors.Is(err, apperrors.ErrMissingDependency):
		return NewErrorResult("missing_dependency", err.Error()), nil
	case errors.Is(err, apperrors.ErrMissingChartConfig):
		return NewErrorResult("missing_chart_config", err.Error()), nil
	case errors.Is(err, apperrors.ErrInvalidDashboardConfig):
		return NewErrorResult("invalid_dashboard_config", err.Error()), nil
	case errors.Is(err, apperrors.ErrNotFound):
		return NewErrorResult("not_found", err.Error()), nil
	case errors.As(err, &remoteErr):
		code := remoteErrorCode(err)
		details := map[string]any{"op": remoteErr.Op}
		if remoteErr.StatusCode != 0 {
			details["status_code"] = remoteErr.StatusCode
		}
		return NewErrorResultWithDetails(code, err.Error(), details), nil
	default:
		return nil, err
	}
}

func remoteErrorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrEvaluation):
		return "evaluation_failed"
	case errors.Is(err, apperrors.ErrCreate):
		return "create_failed"
	case errors.Is(err, apperrors.ErrSaveDashboard):
		return "save_failed"
	case errors.Is(err, apperrors.ErrLoadDashboards):
		return "dashboards_unavailable"
	default:
		return "fetch_failed"
	}
}
