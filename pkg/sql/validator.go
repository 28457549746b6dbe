// Package sql checks dashboard query templates and parameter values before
// they are handed to the evaluation service.
package sql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
)

var (
	// ErrMultipleStatements indicates the query contains more than one statement.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// NormalizeQuery trims whitespace and a single trailing semicolon, then
// rejects any remaining semicolon outside quoted text.
func NormalizeQuery(query string) (string, error) {
	normalized := strings.TrimSpace(query)
	normalized = strings.TrimSpace(strings.TrimSuffix(normalized, ";"))

	if hasSemicolonOutsideQuotes(normalized) {
		return "", ErrMultipleStatements
	}
	return normalized, nil
}

// ValidateDashboardQuery checks a dashboard's SQL template against its
// declared parameters. A dashboard without a query is valid; the missing
// query is reported when an evaluation is built.
func ValidateDashboardQuery(q *models.DashboardSQLQuery) error {
	if q == nil || strings.TrimSpace(q.ParametrizedQuery) == "" {
		return nil
	}

	normalized, err := NormalizeQuery(q.ParametrizedQuery)
	if err != nil {
		return err
	}

	for _, p := range q.Parameters {
		if !p.Type.IsKnown() {
			return fmt.Errorf("parameter '%s' has unsupported type %q", p.Name, p.Type)
		}
	}

	if err := ValidateParameterDefinitions(normalized, q.Parameters); err != nil {
		return err
	}

	if quoted := FindParametersInStringLiterals(normalized); len(quoted) > 0 {
		return fmt.Errorf("parameters must not be quoted in SQL, found: %s", strings.Join(quoted, ", "))
	}

	return nil
}

func hasSemicolonOutsideQuotes(query string) bool {
	var quote rune
	for _, ch := range query {
		switch {
		case quote != 0:
			// a doubled quote re-enters on the next character
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == ';':
			return true
		}
	}
	return false
}
