package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
)

// InjectionCheckResult describes a parameter value that matched a SQL injection pattern.
type InjectionCheckResult struct {
	ParamName   string
	ParamValue  string
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckParameterForInjection screens one coerced value with libinjection.
// Only string-kind values are checked; numbers and booleans cannot carry SQL.
// Returns nil when the value is clean.
func CheckParameterForInjection(value models.TypedParameterValue) *InjectionCheckResult {
	s, ok := value.Value.Str()
	if !ok || s == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(s)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		ParamName:   value.Parameter.Name,
		ParamValue:  s,
		Fingerprint: string(fingerprint),
	}
}

// CheckAllParameters screens every value and returns the failures in
// declaration order. An empty result means all values are clean.
func CheckAllParameters(values []models.TypedParameterValue) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for _, v := range values {
		if result := CheckParameterForInjection(v); result != nil {
			results = append(results, result)
		}
	}
	return results
}
