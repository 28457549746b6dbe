package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/dashboards"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/services"
)

// mockRemote is a scripted evaluation service.
type mockRemote struct {
	mu sync.Mutex

	deps      []models.SQLDependency
	listErr   error
	result    *models.EvaluationResult
	evalErr   error
	evaluated []*models.EvaluationRequest

	dashboards   []models.SavedDashboard
	dashboardErr error
}

func (m *mockRemote) ListSQLDependencies(ctx context.Context) ([]models.SQLDependency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]models.SQLDependency(nil), m.deps...), nil
}

func (m *mockRemote) CreateSQLDependency(ctx context.Context, req models.CreateSQLDependencyRequest) (*models.SQLDependency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := models.SQLDependency{
		ID:   "dep-" + req.Name,
		Name: req.Name,
		ConnectionParams: models.ConnectionParams{
			Type:     req.Type,
			Host:     req.Host,
			Port:     req.Port,
			Database: req.Database,
			Username: req.Username,
		},
	}
	m.deps = append(m.deps, created)
	return &created, nil
}

func (m *mockRemote) EvaluateDashboard(ctx context.Context, req *models.EvaluationRequest) (*models.EvaluationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluated = append(m.evaluated, req)
	if m.evalErr != nil {
		return nil, m.evalErr
	}
	return m.result, nil
}

func (m *mockRemote) ListDashboardConfigs(ctx context.Context) ([]models.SavedDashboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dashboardErr != nil {
		return nil, m.dashboardErr
	}
	return append([]models.SavedDashboard(nil), m.dashboards...), nil
}

func (m *mockRemote) SaveDashboardConfig(ctx context.Context, cfg *models.DashboardConfig) (*models.SavedDashboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dashboardErr != nil {
		return nil, m.dashboardErr
	}
	saved := models.SavedDashboard{PK: fmt.Sprintf("saved-%d", len(m.dashboards)+1), DashboardConfig: *cfg}
	m.dashboards = append(m.dashboards, saved)
	return &saved, nil
}

var (
	_ services.RemoteService = (*mockRemote)(nil)
	_ dashboards.Remote      = (*mockRemote)(nil)
)

func sqlDep(id string) models.SQLDependency {
	return models.SQLDependency{
		ID:   id,
		Name: "dep " + id,
		ConnectionParams: models.ConnectionParams{
			Type:     models.SQLDependencyPostgres,
			Host:     "db.internal",
			Port:     5432,
			Database: "sales",
			Username: "reporter",
		},
	}
}
