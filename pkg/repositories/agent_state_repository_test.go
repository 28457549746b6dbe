package repositories

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
)

func strPtr(s string) *string { return &s }

func sampleState() models.DashboardState {
	return models.DashboardState{
		DashboardConfig: &models.DashboardConfig{
			Title: "Orders",
			DashboardSQLQuery: &models.DashboardSQLQuery{
				ParametrizedQuery: "SELECT * FROM orders LIMIT {limit}",
				Parameters:        []models.QueryParameter{{Name: "limit", Type: models.ParameterTypeInt}},
			},
			ChartConfig: json.RawMessage(`{"kind":"bar"}`),
		},
	}
}

// runAgentStateStoreContract exercises behavior every backend must share.
func runAgentStateStoreContract(t *testing.T, newStore func(t *testing.T) AgentStateStore) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "s1", sampleState()))

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, got.DashboardConfig)
		assert.Equal(t, "Orders", got.DashboardConfig.Title)
		assert.Equal(t, "SELECT * FROM orders LIMIT {limit}", got.DashboardConfig.Query())
		assert.JSONEq(t, `{"kind":"bar"}`, string(got.DashboardConfig.ChartConfig))
		assert.Nil(t, got.SelectedSQLDependencyID)
	})

	t.Run("create twice conflicts", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "s1", models.DashboardState{}))
		err := store.Create(ctx, "s1", models.DashboardState{})
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("get unknown", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "s1", sampleState()))
		require.NoError(t, store.Delete(ctx, "s1"))

		_, err := store.Get(ctx, "s1")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "s1"), apperrors.ErrNotFound)
		require.NoError(t, store.Create(ctx, "s1", models.DashboardState{}), "id is free again")
	})

	t.Run("patch unknown", func(t *testing.T) {
		store := newStore(t)
		err := store.Patch(ctx, "missing", models.SelectedDependencyPatch(strPtr("dep-1")))
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("patch touches only named field", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "s1", sampleState()))

		require.NoError(t, store.Patch(ctx, "s1", models.SelectedDependencyPatch(strPtr("dep-1"))))

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, got.SelectedSQLDependencyID)
		assert.Equal(t, "dep-1", *got.SelectedSQLDependencyID)
		require.NotNil(t, got.DashboardConfig)
		assert.Equal(t, "Orders", got.DashboardConfig.Title)
	})

	t.Run("patch with null clears field", func(t *testing.T) {
		store := newStore(t)
		state := sampleState()
		state.SelectedSQLDependencyID = strPtr("dep-1")
		require.NoError(t, store.Create(ctx, "s1", state))

		require.NoError(t, store.Patch(ctx, "s1", models.SelectedDependencyPatch(nil)))

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Nil(t, got.SelectedSQLDependencyID)
		assert.NotNil(t, got.DashboardConfig)
	})

	t.Run("patch rejects unknown field", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, "s1", sampleState()))

		err := store.Patch(ctx, "s1", models.StatePatch{"whole_document": json.RawMessage(`{}`)})
		assert.Error(t, err)

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		assert.NotNil(t, got.DashboardConfig)
	})
}

func TestMemoryAgentStateStore(t *testing.T) {
	runAgentStateStoreContract(t, func(t *testing.T) AgentStateStore {
		return NewMemoryAgentStateStore()
	})
}

func TestMemoryAgentStateStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAgentStateStore()
	require.NoError(t, store.Create(ctx, "s1", sampleState()))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	got.DashboardConfig.Title = "changed"

	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Orders", again.DashboardConfig.Title)
}
