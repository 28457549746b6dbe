package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/dashboards"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/services"
)

// DashboardsResponse lists the dashboards a session can be seeded from.
// RemoteAvailable is false when only the local catalog could be listed.
type DashboardsResponse struct {
	Dashboards      []dashboards.Summary `json:"dashboards"`
	RemoteAvailable bool                 `json:"remote_available"`
}

// CreateSessionRequest optionally seeds a session from a listed dashboard.
type CreateSessionRequest struct {
	Dashboard string `json:"dashboard,omitempty"`
}

// SessionStateResponse is a session's agent state document.
type SessionStateResponse struct {
	SessionID string                 `json:"session_id"`
	State     *models.DashboardState `json:"state"`
}

// ParameterFormResponse lists the inputs of the session's dashboard.
type ParameterFormResponse struct {
	Parameters []services.ParameterField `json:"parameters"`
}

// DependenciesResponse is the dependency list with the current selection
// and the values the new-dependency form starts with.
type DependenciesResponse struct {
	Dependencies []models.SQLDependency            `json:"dependencies"`
	Selected     *models.SQLDependency             `json:"selected"`
	FormDefaults models.CreateSQLDependencyRequest `json:"form_defaults"`
}

func newDependenciesResponse(deps []models.SQLDependency, selected *models.SQLDependency) DependenciesResponse {
	return DependenciesResponse{
		Dependencies: deps,
		Selected:     selected,
		FormDefaults: models.DefaultSQLDependencyRequest(),
	}
}

// SelectDependencyRequest names the dependency chosen by the user.
type SelectDependencyRequest struct {
	Key string `json:"key"`
}

// EvaluateRequest carries the raw text of every parameter input.
type EvaluateRequest struct {
	Parameters models.RawParameterInput `json:"parameters"`
}

// DashboardSessionHandler serves the dashboard UI API.
type DashboardSessionHandler struct {
	registry  *services.SessionRegistry
	directory *dashboards.Directory
	logger    *zap.Logger
}

func NewDashboardSessionHandler(registry *services.SessionRegistry, directory *dashboards.Directory, logger *zap.Logger) *DashboardSessionHandler {
	if directory == nil {
		directory = dashboards.NewDirectory(nil, nil, logger)
	}
	return &DashboardSessionHandler{
		registry:  registry,
		directory: directory,
		logger:   logger.Named("dashboard-sessions"),
	}
}

// RegisterRoutes registers the session routes on the given mux.
func (h *DashboardSessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/dashboards", h.ListDashboards)
	mux.HandleFunc("POST /api/dashboards", h.SaveDashboard)
	mux.HandleFunc("POST /api/sessions", h.CreateSession)
	mux.HandleFunc("DELETE /api/sessions/{sid}", h.DeleteSession)
	mux.HandleFunc("GET /api/sessions/{sid}/state", h.GetState)
	mux.HandleFunc("PUT /api/sessions/{sid}/dashboard-config", h.SetDashboardConfig)
	mux.HandleFunc("GET /api/sessions/{sid}/parameters", h.GetParameters)
	mux.HandleFunc("GET /api/sessions/{sid}/sql-dependencies", h.RefreshDependencies)
	mux.HandleFunc("POST /api/sessions/{sid}/sql-dependencies", h.CreateDependency)
	mux.HandleFunc("PUT /api/sessions/{sid}/sql-dependencies/selected", h.SelectDependency)
	mux.HandleFunc("POST /api/sessions/{sid}/evaluations", h.Evaluate)
	mux.HandleFunc("GET /api/sessions/{sid}/evaluations/latest", h.LatestEvaluation)
}

// ListDashboards handles GET /api/dashboards
func (h *DashboardSessionHandler) ListDashboards(w http.ResponseWriter, r *http.Request) {
	list, remoteOK := h.directory.List(r.Context())
	h.writeJSON(w, http.StatusOK, DashboardsResponse{Dashboards: list, RemoteAvailable: remoteOK})
}

// SaveDashboard handles POST /api/dashboards
func (h *DashboardSessionHandler) SaveDashboard(w http.ResponseWriter, r *http.Request) {
	var cfg models.DashboardConfig
	if !decodeJSONBody(w, r, &cfg, false, h.logger) {
		return
	}

	saved, err := h.directory.Save(r.Context(), &cfg)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeJSON(w, http.StatusCreated, saved)
}

// CreateSession handles POST /api/sessions
func (h *DashboardSessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeJSONBody(w, r, &req, true, h.logger) {
		return
	}

	var seed *models.DashboardConfig
	if req.Dashboard != "" {
		cfg, err := h.directory.Get(r.Context(), req.Dashboard)
		if err != nil {
			writeServiceError(w, err, h.logger)
			return
		}
		seed = cfg
	}

	session, err := h.registry.Create(r.Context(), seed)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeState(w, r.Context(), http.StatusCreated, session)
}

// DeleteSession handles DELETE /api/sessions/{sid}
func (h *DashboardSessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseSessionID(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.registry.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetState handles GET /api/sessions/{sid}/state
func (h *DashboardSessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeState(w, r.Context(), http.StatusOK, session)
}

// SetDashboardConfig handles PUT /api/sessions/{sid}/dashboard-config
func (h *DashboardSessionHandler) SetDashboardConfig(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var cfg models.DashboardConfig
	if !decodeJSONBody(w, r, &cfg, false, h.logger) {
		return
	}

	if err := session.SetDashboardConfig(r.Context(), &cfg); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeState(w, r.Context(), http.StatusOK, session)
}

// GetParameters handles GET /api/sessions/{sid}/parameters
func (h *DashboardSessionHandler) GetParameters(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	fields, err := session.ParameterForm(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeJSON(w, http.StatusOK, ParameterFormResponse{Parameters: fields})
}

// RefreshDependencies handles GET /api/sessions/{sid}/sql-dependencies.
// It refetches the list, so it doubles as the retry after a failed load.
func (h *DashboardSessionHandler) RefreshDependencies(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	deps, err := session.RefreshDependencies(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeJSON(w, http.StatusOK, newDependenciesResponse(deps, session.Dependencies().Selected()))
}

// CreateDependency handles POST /api/sessions/{sid}/sql-dependencies
func (h *DashboardSessionHandler) CreateDependency(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req models.CreateSQLDependencyRequest
	if !decodeJSONBody(w, r, &req, false, h.logger) {
		return
	}

	bridge := session.Dependencies()
	if _, err := bridge.Create(r.Context(), req); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeJSON(w, http.StatusCreated, newDependenciesResponse(bridge.Known(), bridge.Selected()))
}

// SelectDependency handles PUT /api/sessions/{sid}/sql-dependencies/selected.
// An unknown key clears the selection.
func (h *DashboardSessionHandler) SelectDependency(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SelectDependencyRequest
	if !decodeJSONBody(w, r, &req, false, h.logger) {
		return
	}

	bridge := session.Dependencies()
	selected, err := bridge.Select(r.Context(), req.Key)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeJSON(w, http.StatusOK, newDependenciesResponse(bridge.Known(), selected))
}

// Evaluate handles POST /api/sessions/{sid}/evaluations
func (h *DashboardSessionHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req EvaluateRequest
	if !decodeJSONBody(w, r, &req, false, h.logger) {
		return
	}
	if req.Parameters == nil {
		req.Parameters = models.RawParameterInput{}
	}

	outcome, err := session.Evaluate(r.Context(), req.Parameters)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeJSON(w, http.StatusOK, outcome)
}

// LatestEvaluation handles GET /api/sessions/{sid}/evaluations/latest
func (h *DashboardSessionHandler) LatestEvaluation(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	outcome, err := session.Latest(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeJSON(w, http.StatusOK, outcome)
}

func (h *DashboardSessionHandler) session(w http.ResponseWriter, r *http.Request) (*services.DashboardSession, bool) {
	id, ok := ParseSessionID(w, r, h.logger)
	if !ok {
		return nil, false
	}
	session, err := h.registry.Get(id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return nil, false
	}
	return session, true
}

func (h *DashboardSessionHandler) writeState(w http.ResponseWriter, ctx context.Context, status int, session *services.DashboardSession) {
	state, err := session.State(ctx)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeJSON(w, status, SessionStateResponse{SessionID: session.ID(), State: state})
}

func (h *DashboardSessionHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
