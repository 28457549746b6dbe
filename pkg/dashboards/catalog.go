// Package dashboards loads the catalog of saved dashboard configurations a
// session can be seeded from.
package dashboards

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/sql"
)

// catalogFile is the on-disk layout.
type catalogFile struct {
	Dashboards []catalogEntry `yaml:"dashboards"`
}

type catalogEntry struct {
	Name              string                    `yaml:"name"`
	Title             string                    `yaml:"title"`
	DashboardSQLQuery *models.DashboardSQLQuery `yaml:"dashboard_sql_query"`
	ChartConfig       map[string]any            `yaml:"chart_config"`
}

// Where a dashboard listed by Summary comes from.
const (
	SourceCatalog = "catalog"
	SourceRemote  = "remote"
)

// Summary describes a dashboard without its query.
type Summary struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	Parameters int    `json:"parameters"`
	Source     string `json:"source"`
}

// Catalog is an immutable set of named dashboard configurations.
type Catalog struct {
	configs map[string]*models.DashboardConfig
}

// Empty returns a catalog with no dashboards.
func Empty() *Catalog {
	return &Catalog{configs: map[string]*models.DashboardConfig{}}
}

// LoadFile reads a YAML catalog. An empty path yields an empty catalog.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Empty(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dashboards file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog. Each query must agree with
// its declared parameters and names must be unique.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse dashboards file: %w", err)
	}

	catalog := Empty()
	for i, entry := range file.Dashboards {
		if entry.Name == "" {
			return nil, fmt.Errorf("dashboard #%d has no name", i+1)
		}
		if _, dup := catalog.configs[entry.Name]; dup {
			return nil, fmt.Errorf("dashboard %q is defined more than once", entry.Name)
		}
		if err := sql.ValidateDashboardQuery(entry.DashboardSQLQuery); err != nil {
			return nil, fmt.Errorf("dashboard %q: %w", entry.Name, err)
		}

		cfg := &models.DashboardConfig{
			Title:             entry.Title,
			DashboardSQLQuery: entry.DashboardSQLQuery,
		}
		if entry.ChartConfig != nil {
			raw, err := json.Marshal(entry.ChartConfig)
			if err != nil {
				return nil, fmt.Errorf("dashboard %q: chart_config is not JSON-compatible: %w", entry.Name, err)
			}
			cfg.ChartConfig = raw
		}
		catalog.configs[entry.Name] = cfg
	}
	return catalog, nil
}

// Get returns a copy of the named dashboard, or apperrors.ErrNotFound.
func (c *Catalog) Get(name string) (*models.DashboardConfig, error) {
	cfg, ok := c.configs[name]
	if !ok {
		return nil, fmt.Errorf("dashboard %q: %w", name, apperrors.ErrNotFound)
	}
	return cloneConfig(cfg), nil
}

// List returns the catalog sorted by name.
func (c *Catalog) List() []Summary {
	out := make([]Summary, 0, len(c.configs))
	for name, cfg := range c.configs {
		out = append(out, Summary{Name: name, Title: cfg.Title, Parameters: len(cfg.Parameters()), Source: SourceCatalog})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func cloneConfig(cfg *models.DashboardConfig) *models.DashboardConfig {
	out := &models.DashboardConfig{
		Title:       cfg.Title,
		ChartConfig: append(models.ChartConfig(nil), cfg.ChartConfig...),
	}
	if q := cfg.DashboardSQLQuery; q != nil {
		out.DashboardSQLQuery = &models.DashboardSQLQuery{
			ParametrizedQuery: q.ParametrizedQuery,
			Parameters:        append([]models.QueryParameter(nil), q.Parameters...),
			SQLDependencyID:   q.SQLDependencyID,
		}
	}
	return out
}
