package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/repositories"
)

func newTestBridge(remote *fakeRemote) (*DependencySelectionBridge, *recordingObserver) {
	observer := &recordingObserver{}
	return NewDependencySelectionBridge(remote, zap.NewNop(), observer), observer
}

func TestDependencySelectionBridge_Reconcile(t *testing.T) {
	ab := []models.SQLDependency{dep("a"), dep("b")}

	tests := []struct {
		name      string
		known     []models.SQLDependency
		preferred *string
		expected  *string
	}{
		{name: "preferred present", known: ab, preferred: strPtr("b"), expected: strPtr("b")},
		{name: "preferred absent falls back to first", known: ab, preferred: strPtr("z"), expected: strPtr("a")},
		{name: "no preference selects first", known: ab, preferred: nil, expected: strPtr("a")},
		{name: "empty list selects nil", known: nil, preferred: strPtr("a"), expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge, observer := newTestBridge(&fakeRemote{})

			selected, err := bridge.Reconcile(context.Background(), tt.known, tt.preferred)
			require.NoError(t, err)

			require.Len(t, observer.seen, 1, "exactly one notification per reconciliation")
			if tt.expected == nil {
				assert.Nil(t, selected)
				assert.Nil(t, bridge.Selected())
				assert.Nil(t, observer.seen[0])
				return
			}
			require.NotNil(t, selected)
			assert.Equal(t, *tt.expected, selected.Key())
			assert.Equal(t, *tt.expected, bridge.Selected().Key())
			require.NotNil(t, observer.seen[0])
			assert.Equal(t, "dep "+*tt.expected, observer.seen[0].Name, "observers receive the dependency object")
		})
	}
}

func TestDependencySelectionBridge_ReconcileKeepsCurrentSelection(t *testing.T) {
	ctx := context.Background()
	bridge, observer := newTestBridge(&fakeRemote{})

	_, err := bridge.Reconcile(ctx, []models.SQLDependency{dep("a"), dep("b")}, strPtr("b"))
	require.NoError(t, err)

	selected, err := bridge.Reconcile(ctx, []models.SQLDependency{dep("c"), dep("b")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", selected.Key())

	selected, err = bridge.Reconcile(ctx, []models.SQLDependency{dep("c")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "c", selected.Key(), "a vanished selection falls back to the first entry")
	assert.Len(t, observer.seen, 3)
}

func TestDependencySelectionBridge_KeyFallsBackToName(t *testing.T) {
	bridge, _ := newTestBridge(&fakeRemote{})
	unnamed := models.SQLDependency{Name: "warehouse"}

	selected, err := bridge.Reconcile(context.Background(), []models.SQLDependency{dep("a"), unnamed}, strPtr("warehouse"))
	require.NoError(t, err)
	assert.Equal(t, "warehouse", selected.Key())
}

func TestDependencySelectionBridge_Select(t *testing.T) {
	ctx := context.Background()
	bridge, observer := newTestBridge(&fakeRemote{})
	_, err := bridge.Reconcile(ctx, []models.SQLDependency{dep("a"), dep("b")}, nil)
	require.NoError(t, err)

	selected, err := bridge.Select(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", selected.Key())

	selected, err = bridge.Select(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, selected)
	assert.Nil(t, bridge.Selected())

	require.Len(t, observer.seen, 3)
	assert.Nil(t, observer.seen[2])
}

func TestDependencySelectionBridge_RefreshFailure(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{deps: []models.SQLDependency{dep("a")}}
	bridge, observer := newTestBridge(remote)

	_, err := bridge.Refresh(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, bridge.Selected())

	remote.listErr = errors.New("connection refused")
	deps, err := bridge.Refresh(ctx, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrFetch)
	var remoteErr *apperrors.RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "list_sql_dependencies", remoteErr.Op)

	assert.NotNil(t, deps)
	assert.Empty(t, deps)
	assert.Empty(t, bridge.Known())
	assert.Nil(t, bridge.Selected())
	require.Len(t, observer.seen, 2)
	assert.Nil(t, observer.seen[1])
}

func TestDependencySelectionBridge_CreateValidatesFirst(t *testing.T) {
	remote := &fakeRemote{}
	bridge, observer := newTestBridge(remote)

	req := models.DefaultSQLDependencyRequest()
	req.Name = "sales"

	_, err := bridge.Create(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidDependencyRequest)

	var validation *apperrors.DependencyValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, []string{"host", "database", "username", "password"}, validation.MissingFields)

	assert.Zero(t, remote.createCalls)
	assert.Zero(t, remote.listCalls)
	assert.Empty(t, observer.seen)
}

func TestDependencySelectionBridge_CreateSelectsNewDependency(t *testing.T) {
	created := dep("new")
	remote := &fakeRemote{deps: []models.SQLDependency{dep("a")}, created: &created}
	bridge, observer := newTestBridge(remote)

	req := models.CreateSQLDependencyRequest{
		Type:     models.SQLDependencyPostgres,
		Name:     "dep new",
		Host:     "db.internal",
		Port:     5432,
		Database: "sales",
		Username: "reporter",
		Password: "hunter2",
	}
	got, err := bridge.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Key())

	assert.Len(t, bridge.Known(), 2)
	assert.Equal(t, "new", bridge.Selected().Key())
	require.Len(t, observer.seen, 1)
	assert.Equal(t, "new", observer.seen[0].Key())
}

func TestDependencySelectionBridge_CreateFailureIsCreateError(t *testing.T) {
	remote := &fakeRemote{createErr: errors.New("connection reset")}
	bridge, observer := newTestBridge(remote)

	req := models.CreateSQLDependencyRequest{
		Type: models.SQLDependencyPostgres, Name: "sales", Host: "db.internal", Port: 5432,
		Database: "sales", Username: "reporter", Password: "hunter2",
	}
	_, err := bridge.Create(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCreate)
	assert.NotErrorIs(t, err, apperrors.ErrFetch)
	assert.Contains(t, err.Error(), "failed to create dependency")
	assert.Zero(t, remote.listCalls)
	assert.Empty(t, observer.seen)
}

func TestDependencySelectionBridge_ObserverErrorsReturned(t *testing.T) {
	failing := SelectionObserverFunc(func(ctx context.Context, dep *models.SQLDependency) error {
		return errors.New("sync failed")
	})
	bridge := NewDependencySelectionBridge(&fakeRemote{}, zap.NewNop(), failing)

	selected, err := bridge.Reconcile(context.Background(), []models.SQLDependency{dep("a")}, nil)
	assert.EqualError(t, err, "sync failed")
	assert.Equal(t, "a", selected.Key())
	assert.Equal(t, "a", bridge.Selected().Key())
}

func TestAgentStateSelectionSync(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryAgentStateStore()
	cfg := limitDashboard()
	require.NoError(t, store.Create(ctx, "state-1", models.DashboardState{DashboardConfig: cfg}))

	bridge := NewDependencySelectionBridge(&fakeRemote{}, zap.NewNop(), NewAgentStateSelectionSync(store, "state-1"))

	_, err := bridge.Reconcile(ctx, []models.SQLDependency{dep("a"), dep("b")}, strPtr("b"))
	require.NoError(t, err)

	state, err := store.Get(ctx, "state-1")
	require.NoError(t, err)
	require.NotNil(t, state.SelectedSQLDependencyID)
	assert.Equal(t, "b", *state.SelectedSQLDependencyID)
	assert.Equal(t, cfg.Query(), state.DashboardConfig.Query(), "other fields are untouched")

	_, err = bridge.Reconcile(ctx, nil, nil)
	require.NoError(t, err)

	state, err = store.Get(ctx, "state-1")
	require.NoError(t, err)
	assert.Nil(t, state.SelectedSQLDependencyID)
}
