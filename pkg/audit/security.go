// Package audit provides security audit logging for SIEM consumption.
// Events are logged as structured JSON under the "security_audit" logger.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/logging"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/middleware"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags a parameter value.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventParameterValidation is logged when a parameter value fails coercion or is missing.
	EventParameterValidation SecurityEventType = "parameter_validation_failure"
)

const maxAuditedValueLen = 200

// SecurityEvent is one auditable event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	SessionID string            `json:"session_id"`
	RequestID string            `json:"request_id,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// SQLInjectionDetails contains specifics of a rejected parameter value.
type SQLInjectionDetails struct {
	ParamName   string `json:"param_name"`
	ParamValue  string `json:"param_value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
	Query       string `json:"query"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates an auditor logging under the "security_audit" namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogInjectionAttempt records a parameter value rejected as SQL injection.
// Logged at ERROR with "critical" severity. The value and query are
// sanitized and truncated before they are written.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, sessionID string, details SQLInjectionDetails) {
	details.ParamValue = logging.TruncateString(logging.SanitizeQuery(details.ParamValue), maxAuditedValueLen)
	details.Query = logging.SanitizeQuery(details.Query)

	event := a.event(ctx, EventSQLInjectionAttempt, sessionID, details, "critical")
	a.logger.Error("SQL injection attempt detected",
		zap.String("event_json", event),
		zap.String("session_id", sessionID),
		zap.String("param_name", details.ParamName),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("severity", "critical"),
	)
}

// LogParameterValidation records a parameter validation failure.
// These are usually user errors, so they are logged at WARN.
func (a *SecurityAuditor) LogParameterValidation(ctx context.Context, sessionID, errorMessage string) {
	event := a.event(ctx, EventParameterValidation, sessionID, map[string]string{"error": errorMessage}, "warning")
	a.logger.Warn("Parameter validation failed",
		zap.String("event_json", event),
		zap.String("session_id", sessionID),
		zap.String("error", errorMessage),
		zap.String("severity", "warning"),
	)
}

func (a *SecurityAuditor) event(ctx context.Context, eventType SecurityEventType, sessionID string, details any, severity string) string {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SessionID: sessionID,
		RequestID: middleware.RequestIDFromContext(ctx),
		Details:   details,
		Severity:  severity,
	}
	// Marshaling known types cannot fail.
	eventJSON, _ := json.Marshal(event)
	return string(eventJSON)
}
