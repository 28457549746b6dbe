package models

import (
	"strings"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
)

// SQLDependencyType is the database dialect of a registered SQL dependency.
type SQLDependencyType string

const (
	SQLDependencySQLite   SQLDependencyType = "sqlite"
	SQLDependencyPostgres SQLDependencyType = "postgres"
	SQLDependencyMySQL    SQLDependencyType = "mysql"
	SQLDependencyMSSQL    SQLDependencyType = "mssql"
)

// SQLDependencyTypes lists the dialects the evaluation service accepts.
var SQLDependencyTypes = []SQLDependencyType{
	SQLDependencySQLite,
	SQLDependencyPostgres,
	SQLDependencyMySQL,
	SQLDependencyMSSQL,
}

// IsValid reports whether t is an accepted dialect.
func (t SQLDependencyType) IsValid() bool {
	for _, known := range SQLDependencyTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ConnectionParams holds the non-secret connection details returned by the
// evaluation service. The password never leaves the service.
type ConnectionParams struct {
	Type     SQLDependencyType `json:"type"`
	Host     string            `json:"host"`
	Port     int               `json:"port,omitempty"`
	Database string            `json:"database"`
	Username string            `json:"username"`
}

// SQLDependency is a database connection registered with the evaluation service.
type SQLDependency struct {
	ID               string           `json:"pk,omitempty"`
	Name             string           `json:"name"`
	ConnectionParams ConnectionParams `json:"connection_params"`
}

// Key identifies the dependency within a listing: the primary key when the
// service assigned one, otherwise the name.
func (d *SQLDependency) Key() string {
	if d.ID != "" {
		return d.ID
	}
	return d.Name
}

// CreateSQLDependencyRequest is the payload for registering a new dependency.
type CreateSQLDependencyRequest struct {
	Type     SQLDependencyType `json:"type"`
	Name     string            `json:"name"`
	Host     string            `json:"host"`
	Port     int               `json:"port"`
	Database string            `json:"database"`
	Username string            `json:"username"`
	Password string            `json:"password"`
}

// DefaultSQLDependencyRequest returns the form defaults offered to users.
func DefaultSQLDependencyRequest() CreateSQLDependencyRequest {
	return CreateSQLDependencyRequest{
		Type: SQLDependencyMSSQL,
		Port: 1433,
	}
}

// Validate checks the request before it is sent. Missing fields are reported
// together, in form order, as *apperrors.DependencyValidationError.
func (r CreateSQLDependencyRequest) Validate() error {
	var missing, problems []string

	required := []struct {
		field string
		value string
	}{
		{"name", r.Name},
		{"host", r.Host},
		{"database", r.Database},
		{"username", r.Username},
		{"password", r.Password},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.field)
		}
	}

	if r.Port <= 0 {
		problems = append(problems, "Port must be a positive integer.")
	}
	if !r.Type.IsValid() {
		problems = append(problems, "Type must be one of sqlite, postgres, mysql, mssql.")
	}

	if len(missing) == 0 && len(problems) == 0 {
		return nil
	}
	return &apperrors.DependencyValidationError{MissingFields: missing, Problems: problems}
}
