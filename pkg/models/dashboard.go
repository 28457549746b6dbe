package models

import (
	"encoding/json"
	"strings"
)

// ParameterType is the declared SQL type of a dashboard query parameter.
// It decides which coercion rule applies to raw user input.
type ParameterType string

const (
	ParameterTypeInt      ParameterType = "int"
	ParameterTypeFloat    ParameterType = "float"
	ParameterTypeBool     ParameterType = "bool"
	ParameterTypeDate     ParameterType = "date"
	ParameterTypeTime     ParameterType = "time"
	ParameterTypeDatetime ParameterType = "datetime"
	ParameterTypeString   ParameterType = "str"
)

// ParameterTypes lists every declared type in the order the UI offers them.
var ParameterTypes = []ParameterType{
	ParameterTypeInt,
	ParameterTypeFloat,
	ParameterTypeBool,
	ParameterTypeDate,
	ParameterTypeTime,
	ParameterTypeDatetime,
	ParameterTypeString,
}

// IsKnown reports whether t is one of the declared parameter types.
// Unknown types are still accepted and coerce like ParameterTypeString.
func (t ParameterType) IsKnown() bool {
	for _, known := range ParameterTypes {
		if t == known {
			return true
		}
	}
	return false
}

// QueryParameter describes one parameter of a dashboard's parametrized query.
// Name uniqueness is enforced by the owning DashboardSQLQuery, not here.
type QueryParameter struct {
	Name         string        `json:"name" yaml:"name"`
	Type         ParameterType `json:"type" yaml:"type"`
	DefaultValue any           `json:"default_value,omitempty" yaml:"default_value,omitempty"` // only used to pre-populate input text
}

// DashboardSQLQuery is the SQL half of a saved dashboard.
type DashboardSQLQuery struct {
	// ParametrizedQuery uses {name} placeholders, e.g.
	// SELECT * FROM orders WHERE region = {region} LIMIT {limit}
	ParametrizedQuery string           `json:"parametrized_query" yaml:"parametrized_query"`
	Parameters        []QueryParameter `json:"dashboard_sql_query_parameters" yaml:"parameters"`
	SQLDependencyID   string           `json:"sql_dependency_id,omitempty" yaml:"sql_dependency_id,omitempty"`
}

// ChartConfig is an opaque chart rendering configuration. It is passed
// through to the evaluation service byte-for-byte.
type ChartConfig = json.RawMessage

// DashboardConfig is a saved parametrized SQL query plus its chart configuration.
type DashboardConfig struct {
	Title             string             `json:"title,omitempty" yaml:"title"`
	DashboardSQLQuery *DashboardSQLQuery `json:"dashboard_sql_query,omitempty" yaml:"dashboard_sql_query"`
	ChartConfig       ChartConfig        `json:"chart_config,omitempty" yaml:"-"`
}

// SavedDashboard is a dashboard config stored by the evaluation service.
type SavedDashboard struct {
	PK string `json:"pk,omitempty"`
	DashboardConfig
}

// Key identifies a saved dashboard: its pk, or its title when the
// service did not assign one.
func (d *SavedDashboard) Key() string {
	if d.PK != "" {
		return d.PK
	}
	return d.Title
}

// Parameters returns the declared parameters, or nil when the dashboard has no query.
func (c *DashboardConfig) Parameters() []QueryParameter {
	if c == nil || c.DashboardSQLQuery == nil {
		return nil
	}
	return c.DashboardSQLQuery.Parameters
}

// Query returns the parametrized query, or "" when the dashboard has no query.
func (c *DashboardConfig) Query() string {
	if c == nil || c.DashboardSQLQuery == nil {
		return ""
	}
	return c.DashboardSQLQuery.ParametrizedQuery
}

// HasChartConfig reports whether a chart configuration is present.
// An empty object counts as present; missing bytes or JSON null do not.
func (c *DashboardConfig) HasChartConfig() bool {
	if c == nil {
		return false
	}
	trimmed := strings.TrimSpace(string(c.ChartConfig))
	return trimmed != "" && trimmed != "null"
}
