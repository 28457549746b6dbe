package services

import (
	"context"
	"sync"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
)

// fakeRemote is a scripted evaluation service.
type fakeRemote struct {
	mu sync.Mutex

	deps      []models.SQLDependency
	listErr   error
	created   *models.SQLDependency
	createErr error
	result    *models.EvaluationResult
	evalErr   error

	listCalls   int
	createCalls int
	evaluated   []*models.EvaluationRequest
}

func (f *fakeRemote) ListSQLDependencies(ctx context.Context) ([]models.SQLDependency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.SQLDependency(nil), f.deps...), nil
}

func (f *fakeRemote) CreateSQLDependency(ctx context.Context, req models.CreateSQLDependencyRequest) (*models.SQLDependency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.deps = append(f.deps, *f.created)
	c := *f.created
	return &c, nil
}

func (f *fakeRemote) EvaluateDashboard(ctx context.Context, req *models.EvaluationRequest) (*models.EvaluationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluated = append(f.evaluated, req)
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	return f.result, nil
}

var _ RemoteService = (*fakeRemote)(nil)

// recordingObserver captures every notification.
type recordingObserver struct {
	mu   sync.Mutex
	seen []*models.SQLDependency
}

func (o *recordingObserver) OnDependencySelected(ctx context.Context, dep *models.SQLDependency) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, dep)
	return nil
}

func dep(id string) models.SQLDependency {
	return models.SQLDependency{
		ID:   id,
		Name: "dep " + id,
		ConnectionParams: models.ConnectionParams{
			Type:     models.SQLDependencyPostgres,
			Host:     "db.internal",
			Database: "sales",
			Username: "reporter",
		},
	}
}

func strPtr(s string) *string { return &s }
