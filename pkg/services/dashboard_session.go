package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/audit"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/metrics"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/params"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/repositories"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/sql"
)

// Evaluator runs validated evaluation requests.
type Evaluator interface {
	EvaluateDashboard(ctx context.Context, req *models.EvaluationRequest) (*models.EvaluationResult, error)
}

// RemoteService is everything a session needs from the evaluation service.
type RemoteService interface {
	DependencyService
	Evaluator
}

// ParameterField is one input of the parameter form with its current text.
type ParameterField struct {
	Parameter models.QueryParameter `json:"parameter"`
	Input     string                `json:"input"`
}

// EvaluationOutcome is a result together with the tab to show first.
type EvaluationOutcome struct {
	Result *models.EvaluationResult `json:"result"`
	View   models.ResultView        `json:"view"`
}

// DashboardSession ties one agent state document to its dependency
// selection and its most recent evaluation result.
type DashboardSession struct {
	id        string
	store     repositories.AgentStateStore
	evaluator Evaluator
	bridge    *DependencySelectionBridge
	cache     *EvaluationResultCache
	auditor   *audit.SecurityAuditor
	logger    *zap.Logger

	mu     sync.Mutex
	inputs models.RawParameterInput

	// gone is called when the agent state document has disappeared.
	gone func(id string)
}

func newDashboardSession(id string, store repositories.AgentStateStore, remote RemoteService, auditor *audit.SecurityAuditor, logger *zap.Logger, gone func(id string)) *DashboardSession {
	logger = logger.Named("dashboard-session").With(zap.String("session_id", id))
	return &DashboardSession{
		id:        id,
		store:     store,
		evaluator: remote,
		bridge:    NewDependencySelectionBridge(remote, logger, NewAgentStateSelectionSync(store, id)),
		cache:     NewEvaluationResultCache(),
		auditor:   auditor,
		logger:    logger,
		inputs:    models.RawParameterInput{},
		gone:      gone,
	}
}

// ID returns the agent state id the session is keyed by.
func (s *DashboardSession) ID() string { return s.id }

// Dependencies exposes the session's selection bridge.
func (s *DashboardSession) Dependencies() *DependencySelectionBridge { return s.bridge }

// State returns the current agent state document.
func (s *DashboardSession) State(ctx context.Context) (*models.DashboardState, error) {
	return s.loadState(ctx)
}

// RefreshDependencies refetches the dependency list. Before anything has
// been selected, the agent state's selected id is preferred, then the
// sql_dependency_id saved with the dashboard config.
func (s *DashboardSession) RefreshDependencies(ctx context.Context) ([]models.SQLDependency, error) {
	var preferred *string
	if s.bridge.Selected() == nil {
		state, err := s.loadState(ctx)
		if err != nil {
			return nil, err
		}
		preferred = state.SelectedSQLDependencyID
		if preferred == nil && state.DashboardConfig != nil && state.DashboardConfig.DashboardSQLQuery != nil {
			if saved := state.DashboardConfig.DashboardSQLQuery.SQLDependencyID; saved != "" {
				preferred = &saved
			}
		}
	}
	return s.bridge.Refresh(ctx, preferred)
}

func (s *DashboardSession) loadState(ctx context.Context) (*models.DashboardState, error) {
	state, err := s.store.Get(ctx, s.id)
	if errors.Is(err, apperrors.ErrNotFound) && s.gone != nil {
		s.logger.Info("Agent state is gone, closing session")
		s.gone(s.id)
	}
	return state, err
}

// SetDashboardConfig checks cfg's query against its parameters and writes
// only the dashboard_config field of the agent state.
func (s *DashboardSession) SetDashboardConfig(ctx context.Context, cfg *models.DashboardConfig) error {
	if err := validateDashboardConfig(cfg); err != nil {
		return err
	}

	patch := models.StatePatch{}
	if err := patch.Set(models.StateFieldDashboardConfig, cfg); err != nil {
		return err
	}
	if err := s.store.Patch(ctx, s.id, patch); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) && s.gone != nil {
			s.gone(s.id)
		}
		return err
	}

	s.logger.Info("Dashboard config updated", zap.Int("parameters", len(cfg.Parameters())))
	return nil
}

// ParameterForm lists the dashboard's parameters with their input text:
// what the user last submitted when the parameter still exists, otherwise
// the parameter's default.
func (s *DashboardSession) ParameterForm(ctx context.Context) ([]ParameterField, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	declared := state.DashboardConfig.Parameters()

	s.mu.Lock()
	s.inputs = params.InitialInputs(declared, s.inputs)
	inputs := s.inputs
	s.mu.Unlock()

	fields := make([]ParameterField, 0, len(declared))
	for _, p := range declared {
		fields = append(fields, ParameterField{Parameter: p, Input: inputs[p.Name]})
	}
	return fields, nil
}

// Evaluate builds a request from the agent state and raw, screens string
// values for SQL injection, and runs it. Only a successful evaluation
// replaces the cached result; failures leave the session as it was.
func (s *DashboardSession) Evaluate(ctx context.Context, raw models.RawParameterInput) (*EvaluationOutcome, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}

	s.rememberInputs(state.DashboardConfig.Parameters(), raw)

	req, err := BuildEvaluationRequest(state.DashboardConfig, raw, state.SelectedSQLDependencyID)
	if err != nil {
		var paramErr *apperrors.ParameterError
		if errors.As(err, &paramErr) {
			s.auditor.LogParameterValidation(ctx, s.id, paramErr.Error())
		}
		metrics.EvaluationsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	if suspicious := sql.CheckAllParameters(req.ParameterValues()); len(suspicious) > 0 {
		for _, hit := range suspicious {
			s.auditor.LogInjectionAttempt(ctx, s.id, audit.SQLInjectionDetails{
				ParamName:   hit.ParamName,
				ParamValue:  hit.ParamValue,
				Fingerprint: hit.Fingerprint,
				Query:       req.ParametrizedQuery(),
			})
		}
		metrics.EvaluationsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, &apperrors.ParameterError{
			Parameter: suspicious[0].ParamName,
			Raw:       suspicious[0].ParamValue,
			Err:       apperrors.ErrSuspiciousParameterValue,
		}
	}

	result, err := s.evaluator.EvaluateDashboard(ctx, req)
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		var remote *apperrors.RemoteError
		if errors.As(err, &remote) {
			return nil, err
		}
		return nil, &apperrors.RemoteError{Op: "evaluate_dashboard", Err: apperrors.ErrEvaluation, Cause: err}
	}
	if result == nil {
		result = &models.EvaluationResult{}
	}

	s.cache.Set(result)
	metrics.EvaluationsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

	return &EvaluationOutcome{
		Result: result,
		View:   DefaultView(result, state.DashboardConfig),
	}, nil
}

// Latest returns what the display should show: the cached result, or the
// defaults held in the agent state before the first evaluation.
func (s *DashboardSession) Latest(ctx context.Context) (*EvaluationOutcome, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}

	displayed := &models.EvaluationResult{
		DataFrame: state.DefaultDataFrame,
		Figure:    state.DefaultFigure,
	}
	if cached := s.cache.Get(); cached != nil {
		if cached.DataFrame != nil {
			displayed.DataFrame = cached.DataFrame
		}
		if cached.Figure != nil {
			displayed.Figure = cached.Figure
		}
	}

	return &EvaluationOutcome{
		Result: displayed,
		View:   DefaultView(displayed, state.DashboardConfig),
	}, nil
}

func (s *DashboardSession) rememberInputs(declared []models.QueryParameter, raw models.RawParameterInput) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := params.InitialInputs(declared, s.inputs)
	for _, p := range declared {
		if value, ok := raw[p.Name]; ok {
			next[p.Name] = value
		}
	}
	s.inputs = next
}

func validateDashboardConfig(cfg *models.DashboardConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: dashboard config is required", apperrors.ErrInvalidDashboardConfig)
	}
	if err := sql.ValidateDashboardQuery(cfg.DashboardSQLQuery); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidDashboardConfig, err)
	}
	return nil
}

// SessionRegistry owns the dashboard sessions of this process.
type SessionRegistry struct {
	store   repositories.AgentStateStore
	remote  RemoteService
	auditor *audit.SecurityAuditor
	logger  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*DashboardSession
}

func NewSessionRegistry(store repositories.AgentStateStore, remote RemoteService, logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		store:    store,
		remote:   remote,
		auditor:  audit.NewSecurityAuditor(logger),
		logger:   logger,
		sessions: make(map[string]*DashboardSession),
	}
}

// Create starts a session with a fresh agent state document, optionally
// seeded with a dashboard config.
func (r *SessionRegistry) Create(ctx context.Context, seed *models.DashboardConfig) (*DashboardSession, error) {
	if seed != nil {
		if err := validateDashboardConfig(seed); err != nil {
			return nil, err
		}
	}

	id := uuid.New().String()
	if err := r.store.Create(ctx, id, models.DashboardState{DashboardConfig: seed}); err != nil {
		return nil, fmt.Errorf("failed to create agent state: %w", err)
	}

	session := newDashboardSession(id, r.store, r.remote, r.auditor, r.logger, func(id string) { r.evict(id) })

	r.mu.Lock()
	r.sessions[id] = session
	count := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	r.logger.Info("Dashboard session created", zap.String("session_id", id))
	return session, nil
}

// Get returns the session for id, or apperrors.ErrNotFound.
func (r *SessionRegistry) Get(id string) (*DashboardSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperrors.ErrNotFound)
	}
	return session, nil
}

// Delete closes the session and removes its agent state document. A
// document that is already gone is not an error.
func (r *SessionRegistry) Delete(ctx context.Context, id string) error {
	if !r.evict(id) {
		return fmt.Errorf("session %s: %w", id, apperrors.ErrNotFound)
	}
	if err := r.store.Delete(ctx, id); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to delete agent state: %w", err)
	}
	r.logger.Info("Dashboard session deleted", zap.String("session_id", id))
	return nil
}

// evict drops id from the registry and reports whether it was held.
func (r *SessionRegistry) evict(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	count := len(r.sessions)
	r.mu.Unlock()

	if ok {
		metrics.ActiveSessions.Set(float64(count))
	}
	return ok
}

// Len reports how many sessions are held.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
