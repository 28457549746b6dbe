// Package logging scrubs credentials from text before it is logged.
package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a query to log
	MaxQueryLogLength = 100
	// MaxBodyLogLength is the maximum length of a remote response body to log
	MaxBodyLogLength = 500
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches JSON members such as "password": "xxx"
	jsonSecretPattern = regexp.MustCompile(`(?i)"(password|pwd|secret|token)"\s*:\s*"(?:[^"\\]|\\.)*"`)

	// Matches bearer tokens, JWT or opaque
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-_.~+/]+=*`)

	// Matches user:pass@host in connection URLs
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeError sanitizes error messages that might contain sensitive data.
// Remote errors can echo the dependency request, so run them through here.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return sanitize(err.Error())
}

// SanitizeBody redacts and truncates a remote response body for logging.
func SanitizeBody(body string) string {
	if body == "" {
		return ""
	}
	return TruncateString(sanitize(body), MaxBodyLogLength)
}

// SanitizeQuery truncates and sanitizes a SQL query for logging
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	return sanitize(TruncateString(query, MaxQueryLogLength))
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func sanitize(s string) string {
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = jsonSecretPattern.ReplaceAllString(s, `"${1}":"`+RedactedText+`"`)
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
	return s
}
