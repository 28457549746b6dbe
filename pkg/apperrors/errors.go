package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Coercion failures, always attributable to one parameter.
	ErrInvalidNumber  = errors.New("invalid number")
	ErrInvalidInteger = fmt.Errorf("%w: not an integer", ErrInvalidNumber)
	ErrInvalidBoolean = errors.New("invalid boolean")

	// Build failures, reported one at a time in validation order.
	ErrMissingParameterValue = errors.New("missing parameter value")
	ErrMissingQuery          = errors.New("dashboard SQL query is missing")
	ErrMissingDependency     = errors.New("dashboard SQL dependency is missing")
	ErrMissingChartConfig    = errors.New("dashboard chart configuration is missing")

	// Remote failures, recoverable by a user-initiated retry.
	ErrFetch          = errors.New("failed to load dependencies")
	ErrCreate         = errors.New("failed to create dependency")
	ErrEvaluation     = errors.New("failed to evaluate dashboard")
	ErrLoadDashboards = errors.New("failed to load dashboards")
	ErrSaveDashboard  = errors.New("failed to save dashboard")

	ErrSuspiciousParameterValue = errors.New("parameter value looks like SQL injection")
	ErrInvalidDependencyRequest = errors.New("invalid SQL dependency request")
	ErrInvalidDashboardConfig   = errors.New("invalid dashboard configuration")
)

// ParameterError tags a parameter-level failure with the parameter name.
// Err is one of ErrInvalidInteger, ErrInvalidNumber, ErrInvalidBoolean,
// ErrMissingParameterValue or ErrSuspiciousParameterValue.
type ParameterError struct {
	Parameter string
	Raw       string
	Err       error
}

func (e *ParameterError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMissingParameterValue):
		return fmt.Sprintf("Parameter %q requires a value.", e.Parameter)
	case errors.Is(e.Err, ErrInvalidInteger):
		return fmt.Sprintf("Parameter %q must be an integer, got %q.", e.Parameter, e.Raw)
	case errors.Is(e.Err, ErrInvalidNumber):
		return fmt.Sprintf("Parameter %q must be a number, got %q.", e.Parameter, e.Raw)
	case errors.Is(e.Err, ErrInvalidBoolean):
		return fmt.Sprintf("Parameter %q must be true or false, got %q.", e.Parameter, e.Raw)
	default:
		return fmt.Sprintf("Parameter %q: %v", e.Parameter, e.Err)
	}
}

func (e *ParameterError) Unwrap() error { return e.Err }

// RemoteError is a failure reported by, or on the way to, the evaluation service.
// StatusCode is zero for transport failures.
type RemoteError struct {
	Op         string
	StatusCode int
	Detail     string
	Err        error // ErrFetch, ErrCreate, ErrEvaluation, ErrLoadDashboards or ErrSaveDashboard
	Cause      error // underlying transport error, if any
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	} else if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// IsRetryable reports whether repeating the call could succeed: transport
// failures and throttling or gateway statuses, but never cancellation.
func (e *RemoteError) IsRetryable() bool {
	if errors.Is(e.Cause, context.Canceled) || errors.Is(e.Cause, context.DeadlineExceeded) {
		return false
	}
	switch e.StatusCode {
	case 0:
		return e.Cause != nil
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// DependencyValidationError lists what is wrong with a dependency request
// before it is sent.
type DependencyValidationError struct {
	MissingFields []string
	Problems      []string
}

func (e *DependencyValidationError) Error() string {
	var parts []string
	if len(e.MissingFields) > 0 {
		parts = append(parts, fmt.Sprintf("Please provide values for: %s.", strings.Join(e.MissingFields, ", ")))
	}
	parts = append(parts, e.Problems...)
	return strings.Join(parts, " ")
}

func (e *DependencyValidationError) Unwrap() error { return ErrInvalidDependencyRequest }
