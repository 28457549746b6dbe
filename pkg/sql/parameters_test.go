package sql

import (
	"reflect"
	"testing"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
)

func TestExtractParameters(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected []string
	}{
		{
			name:     "no parameters",
			sql:      "SELECT * FROM orders",
			expected: nil,
		},
		{
			name:     "single parameter",
			sql:      "SELECT * FROM orders LIMIT {limit}",
			expected: []string{"limit"},
		},
		{
			name:     "multiple parameters in order of appearance",
			sql:      "SELECT * FROM orders WHERE region = {region} AND total > {min_total} LIMIT {limit}",
			expected: []string{"region", "min_total", "limit"},
		},
		{
			name:     "duplicate parameter appears once",
			sql:      "SELECT * FROM transfers WHERE sender = {account} OR receiver = {account}",
			expected: []string{"account"},
		},
		{
			name:     "name starting with underscore",
			sql:      "SELECT * FROM t WHERE v = {_private}",
			expected: []string{"_private"},
		},
		{
			name:     "name starting with digit is not a placeholder",
			sql:      "SELECT * FROM t WHERE v = {1abc}",
			expected: nil,
		},
		{
			name:     "hyphenated name is not a placeholder",
			sql:      "SELECT * FROM t WHERE v = {user-id}",
			expected: nil,
		},
		{
			name:     "colon style is not a placeholder",
			sql:      "SELECT * FROM t LIMIT :limit",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractParameters(tt.sql)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestValidateParameterDefinitions(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		params []models.QueryParameter
		errMsg string
	}{
		{
			name: "all parameters defined",
			sql:  "SELECT * FROM orders WHERE region = {region} LIMIT {limit}",
			params: []models.QueryParameter{
				{Name: "region", Type: models.ParameterTypeString},
				{Name: "limit", Type: models.ParameterTypeInt},
			},
		},
		{
			name: "no parameters at all",
			sql:  "SELECT * FROM orders",
		},
		{
			name: "placeholder without definition",
			sql:  "SELECT * FROM orders WHERE region = {region} LIMIT {limit}",
			params: []models.QueryParameter{
				{Name: "region", Type: models.ParameterTypeString},
			},
			errMsg: "parameter {limit} used in SQL but not defined",
		},
		{
			name: "definition without placeholder",
			sql:  "SELECT * FROM orders LIMIT {limit}",
			params: []models.QueryParameter{
				{Name: "limit", Type: models.ParameterTypeInt},
				{Name: "unused", Type: models.ParameterTypeString},
			},
			errMsg: "parameter 'unused' is defined but not used in SQL",
		},
		{
			name: "duplicate definition",
			sql:  "SELECT * FROM orders LIMIT {limit}",
			params: []models.QueryParameter{
				{Name: "limit", Type: models.ParameterTypeInt},
				{Name: "limit", Type: models.ParameterTypeFloat},
			},
			errMsg: "parameter 'limit' is declared more than once",
		},
		{
			name:   "empty name",
			sql:    "SELECT 1",
			params: []models.QueryParameter{{Name: "", Type: models.ParameterTypeInt}},
			errMsg: "parameter name must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParameterDefinitions(tt.sql, tt.params)
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("got error %q, want %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestFindParametersInStringLiterals(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected []string
	}{
		{
			name:     "correctly placed",
			sql:      "SELECT * FROM users WHERE name = {name}",
			expected: nil,
		},
		{
			name:     "quoted placeholder",
			sql:      "SELECT * FROM users WHERE name = '{name}'",
			expected: []string{"name"},
		},
		{
			name:     "escaped quote inside literal",
			sql:      "SELECT 'it''s {label}' FROM t WHERE id = {id}",
			expected: []string{"label"},
		},
		{
			name:     "mixed",
			sql:      "SELECT * FROM t WHERE a = {a} AND b LIKE '%{b}%'",
			expected: []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindParametersInStringLiterals(tt.sql)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("got %v, want %v", result, tt.expected)
			}
		})
	}
}
