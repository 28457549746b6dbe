package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/repositories"
)

// DependencyLister fetches the dependencies registered with the evaluation service.
type DependencyLister interface {
	ListSQLDependencies(ctx context.Context) ([]models.SQLDependency, error)
}

// DependencyCreator registers a new dependency with the evaluation service.
type DependencyCreator interface {
	CreateSQLDependency(ctx context.Context, req models.CreateSQLDependencyRequest) (*models.SQLDependency, error)
}

// DependencyService is the part of the evaluation service the bridge talks to.
type DependencyService interface {
	DependencyLister
	DependencyCreator
}

// SelectionObserver is told about every resolved selection, including nil.
type SelectionObserver interface {
	OnDependencySelected(ctx context.Context, dep *models.SQLDependency) error
}

// SelectionObserverFunc adapts a function to SelectionObserver.
type SelectionObserverFunc func(ctx context.Context, dep *models.SQLDependency) error

func (f SelectionObserverFunc) OnDependencySelected(ctx context.Context, dep *models.SQLDependency) error {
	return f(ctx, dep)
}

// DependencySelectionBridge owns the dependency selection of one dashboard
// session. The selection always refers to an entry of the last known list,
// or is nil when that list is empty.
type DependencySelectionBridge struct {
	service DependencyService
	logger  *zap.Logger

	mu        sync.Mutex
	known     []models.SQLDependency
	selected  *models.SQLDependency
	observers []SelectionObserver
}

// NewDependencySelectionBridge creates a bridge with an empty list and no selection.
func NewDependencySelectionBridge(service DependencyService, logger *zap.Logger, observers ...SelectionObserver) *DependencySelectionBridge {
	return &DependencySelectionBridge{
		service:   service,
		logger:    logger.Named("dependency-selection"),
		observers: observers,
	}
}

// Subscribe registers an observer for subsequent selections.
func (b *DependencySelectionBridge) Subscribe(o SelectionObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

// Reconcile replaces the known list and resolves the selection: nil for an
// empty list, the entry keyed by preferred if present, otherwise the first
// entry. A nil preferred falls back to the current selection. Observers are
// notified exactly once; their errors are joined and returned, but the
// selection is already updated.
func (b *DependencySelectionBridge) Reconcile(ctx context.Context, known []models.SQLDependency, preferred *string) (*models.SQLDependency, error) {
	b.mu.Lock()
	if preferred == nil && b.selected != nil {
		key := b.selected.Key()
		preferred = &key
	}
	b.known = append([]models.SQLDependency(nil), known...)
	b.selected = resolveSelection(b.known, preferred)
	selected := cloneDependency(b.selected)
	observers := append([]SelectionObserver(nil), b.observers...)
	b.mu.Unlock()

	return selected, b.notify(ctx, observers, selected)
}

// Select applies an explicit user choice from the current list. An unknown
// key clears the selection.
func (b *DependencySelectionBridge) Select(ctx context.Context, key string) (*models.SQLDependency, error) {
	b.mu.Lock()
	b.selected = nil
	for i := range b.known {
		if b.known[i].Key() == key {
			b.selected = &b.known[i]
			break
		}
	}
	selected := cloneDependency(b.selected)
	observers := append([]SelectionObserver(nil), b.observers...)
	b.mu.Unlock()

	return selected, b.notify(ctx, observers, selected)
}

// Refresh fetches the dependency list and reconciles it. On a fetch failure
// the list is treated as empty, observers see nil, and the returned error is
// a *apperrors.RemoteError wrapping apperrors.ErrFetch.
func (b *DependencySelectionBridge) Refresh(ctx context.Context, preferred *string) ([]models.SQLDependency, error) {
	deps, fetchErr := b.service.ListSQLDependencies(ctx)
	if fetchErr != nil {
		b.logger.Warn("Failed to fetch SQL dependencies", zap.Error(fetchErr))
		deps = nil
		fetchErr = asRemoteError("list_sql_dependencies", apperrors.ErrFetch, fetchErr)
	}

	_, notifyErr := b.Reconcile(ctx, deps, preferred)
	if deps == nil {
		deps = []models.SQLDependency{}
	}
	return deps, errors.Join(fetchErr, notifyErr)
}

// Create validates req, registers it and refreshes the list with the new
// dependency preferred. Invalid requests are never sent.
func (b *DependencySelectionBridge) Create(ctx context.Context, req models.CreateSQLDependencyRequest) (*models.SQLDependency, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	created, err := b.service.CreateSQLDependency(ctx, req)
	if err != nil {
		return nil, asRemoteError("create_sql_dependency", apperrors.ErrCreate, err)
	}

	key := created.Key()
	if _, err := b.Refresh(ctx, &key); err != nil {
		return created, err
	}
	return created, nil
}

// Known returns a copy of the last known dependency list.
func (b *DependencySelectionBridge) Known() []models.SQLDependency {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.SQLDependency(nil), b.known...)
}

// Selected returns a copy of the current selection, or nil.
func (b *DependencySelectionBridge) Selected() *models.SQLDependency {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneDependency(b.selected)
}

func (b *DependencySelectionBridge) notify(ctx context.Context, observers []SelectionObserver, dep *models.SQLDependency) error {
	var errs []error
	for _, o := range observers {
		if err := o.OnDependencySelected(ctx, cloneDependency(dep)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func resolveSelection(known []models.SQLDependency, preferred *string) *models.SQLDependency {
	if len(known) == 0 {
		return nil
	}
	if preferred != nil {
		for i := range known {
			if known[i].Key() == *preferred {
				return &known[i]
			}
		}
	}
	return &known[0]
}

func cloneDependency(dep *models.SQLDependency) *models.SQLDependency {
	if dep == nil {
		return nil
	}
	c := *dep
	return &c
}

// asRemoteError passes a *apperrors.RemoteError through and wraps anything
// else as a transport failure of kind.
func asRemoteError(op string, kind, err error) error {
	var remote *apperrors.RemoteError
	if errors.As(err, &remote) {
		return err
	}
	return &apperrors.RemoteError{Op: op, Err: kind, Cause: err}
}

// AgentStateSelectionSync mirrors the selection into the agent state,
// touching only selected_sql_dependency_id.
type AgentStateSelectionSync struct {
	store   repositories.AgentStateStore
	stateID string
}

func NewAgentStateSelectionSync(store repositories.AgentStateStore, stateID string) *AgentStateSelectionSync {
	return &AgentStateSelectionSync{store: store, stateID: stateID}
}

func (s *AgentStateSelectionSync) OnDependencySelected(ctx context.Context, dep *models.SQLDependency) error {
	var id *string
	if dep != nil {
		key := dep.Key()
		id = &key
	}
	if err := s.store.Patch(ctx, s.stateID, models.SelectedDependencyPatch(id)); err != nil {
		return fmt.Errorf("failed to sync dependency selection: %w", err)
	}
	return nil
}

var (
	_ SelectionObserver = (*AgentStateSelectionSync)(nil)
	_ SelectionObserver = SelectionObserverFunc(nil)
)
