package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
)

// writeServiceError maps a service error to a status code and error code.
// Parameter, build and validation failures are 422, an unknown session is
// 404 and failures of the evaluation service are 502.
func writeServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("code", code), zap.Error(err))
	}
	if err := ErrorResponseWithDetails(w, status, code, err.Error(), errorDetails(err)); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

func classifyError(err error) (int, string) {
	var paramErr *apperrors.ParameterError
	var remoteErr *apperrors.RemoteError
	var depErr *apperrors.DependencyValidationError

	switch {
	case errors.As(err, &paramErr):
		if errors.Is(err, apperrors.ErrSuspiciousParameterValue) {
			return http.StatusUnprocessableEntity, "suspicious_parameter_value"
		}
		return http.StatusUnprocessableEntity, "invalid_parameter"
	case errors.As(err, &depErr):
		return http.StatusUnprocessableEntity, "invalid_dependency_request"
	case errors.Is(err, apperrors.ErrMissingQuery):
		return http.StatusUnprocessableEntity, "missing_query"
	case errors.Is(err, apperrors.ErrMissingDependency):
		return http.StatusUnprocessableEntity, "missing_dependency"
	case errors.Is(err, apperrors.ErrMissingChartConfig):
		return http.StatusUnprocessableEntity, "missing_chart_config"
	case errors.Is(err, apperrors.ErrInvalidDashboardConfig):
		return http.StatusUnprocessableEntity, "invalid_dashboard_config"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &remoteErr):
		switch {
		case errors.Is(err, apperrors.ErrEvaluation):
			return http.StatusBadGateway, "evaluation_failed"
		case errors.Is(err, apperrors.ErrCreate):
			return http.StatusBadGateway, "create_failed"
		case errors.Is(err, apperrors.ErrSaveDashboard):
			return http.StatusBadGateway, "save_failed"
		case errors.Is(err, apperrors.ErrLoadDashboards):
			return http.StatusBadGateway, "dashboards_unavailable"
		default:
			return http.StatusBadGateway, "fetch_failed"
		}
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// errorDetails returns the machine-readable parts of err, or nil.
func errorDetails(err error) map[string]any {
	var paramErr *apperrors.ParameterError
	var remoteErr *apperrors.RemoteError
	var depErr *apperrors.DependencyValidationError

	switch {
	case errors.As(err, &paramErr):
		return map[string]any{"parameter": paramErr.Parameter}
	case errors.As(err, &depErr):
		if len(depErr.MissingFields) == 0 {
			return nil
		}
		return map[string]any{"missing_fields": depErr.MissingFields}
	case errors.As(err, &remoteErr):
		details := map[string]any{"op": remoteErr.Op}
		if remoteErr.StatusCode != 0 {
			details["status_code"] = remoteErr.StatusCode
		}
		return details
	default:
		return nil
	}
}
