// Package tools provides the MCP tools the conversational agent uses to read
// and drive a dashboard session.
package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/services"
)

// SessionProvider resolves dashboard sessions by agent state id.
type SessionProvider interface {
	Get(id string) (*services.DashboardSession, error)
	Len() int
}

// DashboardToolDeps contains dependencies for the dashboard tools.
type DashboardToolDeps struct {
	Sessions SessionProvider
	Logger   *zap.Logger
}

type dashboardStateResult struct {
	SessionID  string                    `json:"session_id"`
	State      *models.DashboardState    `json:"state"`
	Parameters []services.ParameterField `json:"parameters"`
}

type dependenciesResult struct {
	Dependencies []models.SQLDependency `json:"dependencies"`
	Selected     *models.SQLDependency  `json:"selected"`
}

// RegisterDashboardTools registers the dashboard session tools.
func RegisterDashboardTools(s *server.MCPServer, deps *DashboardToolDeps) {
	registerGetDashboardStateTool(s, deps)
	registerSetDashboardConfigTool(s, deps)
	registerListSQLDependenciesTool(s, deps)
	registerSelectSQLDependencyTool(s, deps)
	registerEvaluateDashboardTool(s, deps)
}

func sessionIDOption() mcp.ToolOption {
	return mcp.WithString(
		"session_id",
		mcp.Required(),
		mcp.Description("Agent state id of the dashboard session"),
	)
}

// resolveSession reads session_id and looks it up. A non-nil result is an
// error result to return as is.
func resolveSession(deps *DashboardToolDeps, req mcp.CallToolRequest) (*services.DashboardSession, *mcp.CallToolResult) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return nil, NewErrorResult("invalid_parameters", err.Error())
	}
	id = trimString(id)
	if id == "" {
		return nil, NewErrorResult("invalid_parameters", "parameter 'session_id' cannot be empty")
	}
	session, err := deps.Sessions.Get(id)
	if err != nil {
		return nil, NewErrorResult("session_not_found", err.Error())
	}
	return session, nil
}

func stateResult(ctx context.Context, session *services.DashboardSession) (*mcp.CallToolResult, error) {
	state, err := session.State(ctx)
	if err != nil {
		return HandleServiceError(err)
	}
	fields, err := session.ParameterForm(ctx)
	if err != nil {
		return HandleServiceError(err)
	}
	return jsonResult(dashboardStateResult{SessionID: session.ID(), State: state, Parameters: fields})
}

func registerGetDashboardStateTool(s *server.MCPServer, deps *DashboardToolDeps) {
	tool := mcp.NewTool(
		"get_dashboard_state",
		mcp.WithDescription(
			"Returns the agent state of a dashboard session: the dashboard config, default result, "+
				"selected SQL dependency, and each parameter with its current input text.",
		),
		sessionIDOption(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session, errResult := resolveSession(deps, req)
		if errResult != nil {
			return errResult, nil
		}
		return stateResult(ctx, session)
	})
}

func registerSetDashboardConfigTool(s *server.MCPServer, deps *DashboardToolDeps) {
	tool := mcp.NewTool(
		"set_dashboard_config",
		mcp.WithDescription(
			"Replaces the dashboard config of a session. The query uses {name} placeholders; "+
				"every placeholder must be declared in dashboard_sql_query_parameters and every declared "+
				"parameter must be used. Placeholders must not be quoted. "+
				"Types: int, float, bool, date, time, datetime, str. "+
				"Example: {\"dashboard_sql_query\": {\"parametrized_query\": \"SELECT * FROM orders LIMIT {limit}\", "+
				"\"dashboard_sql_query_parameters\": [{\"name\": \"limit\", \"type\": \"int\", \"default_value\": 10}]}, "+
				"\"chart_config\": {\"type\": \"bar\"}}",
		),
		sessionIDOption(),
		mcp.WithObject(
			"dashboard_config",
			mcp.Required(),
			mcp.Description("The dashboard config: title, dashboard_sql_query and chart_config"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session, errResult := resolveSession(deps, req)
		if errResult != nil {
			return errResult, nil
		}

		var cfg models.DashboardConfig
		if err := decodeObjectArgument(req, "dashboard_config", &cfg); err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		if err := session.SetDashboardConfig(ctx, &cfg); err != nil {
			return HandleServiceError(err)
		}

		deps.Logger.Info("Dashboard config set by agent",
			zap.String("session_id", session.ID()),
			zap.Int("parameters", len(cfg.Parameters())))
		return stateResult(ctx, session)
	})
}

func registerListSQLDependenciesTool(s *server.MCPServer, deps *DashboardToolDeps) {
	tool := mcp.NewTool(
		"list_sql_dependencies",
		mcp.WithDescription(
			"Fetches the SQL dependencies (database connections) available to a session and returns them "+
				"with the current selection. The selection is kept when still present, otherwise the first "+
				"dependency is selected.",
		),
		sessionIDOption(),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session, errResult := resolveSession(deps, req)
		if errResult != nil {
			return errResult, nil
		}

		known, err := session.RefreshDependencies(ctx)
		if err != nil {
			return HandleServiceError(err)
		}
		return jsonResult(dependenciesResult{Dependencies: known, Selected: session.Dependencies().Selected()})
	})
}

func registerSelectSQLDependencyTool(s *server.MCPServer, deps *DashboardToolDeps) {
	tool := mcp.NewTool(
		"select_sql_dependency",
		mcp.WithDescription(
			"Selects the SQL dependency used for evaluation, by id (or name when it has no id). "+
				"Call list_sql_dependencies first. An unknown key clears the selection.",
		),
		sessionIDOption(),
		mcp.WithString(
			"key",
			mcp.Required(),
			mcp.Description("The dependency id, or its name when it has no id"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session, errResult := resolveSession(deps, req)
		if errResult != nil {
			return errResult, nil
		}
		key, err := req.RequireString("key")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		bridge := session.Dependencies()
		selected, err := bridge.Select(ctx, trimString(key))
		if err != nil {
			return HandleServiceError(err)
		}
		if selected == nil {
			known := bridge.Known()
			keys := make([]string, 0, len(known))
			for i := range known {
				keys = append(keys, known[i].Key())
			}
			return NewErrorResultWithDetails("dependency_not_found",
				"no SQL dependency with that key; the selection was cleared",
				map[string]any{"key": key, "known_keys": keys}), nil
		}
		return jsonResult(dependenciesResult{Dependencies: bridge.Known(), Selected: selected})
	})
}

func registerEvaluateDashboardTool(s *server.MCPServer, deps *DashboardToolDeps) {
	tool := mcp.NewTool(
		"evaluate_dashboard",
		mcp.WithDescription(
			"Evaluates the session's dashboard with the given parameter values against the selected SQL "+
				"dependency and returns the data frame and figure, plus which tab to show first. "+
				"Every declared parameter needs a value.",
		),
		sessionIDOption(),
		mcp.WithObject(
			"parameters",
			mcp.Description("Parameter values keyed by parameter name, e.g. {\"limit\": 10, \"region\": \"EU\"}"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		session, errResult := resolveSession(deps, req)
		if errResult != nil {
			return errResult, nil
		}

		outcome, err := session.Evaluate(ctx, getRawParameters(req))
		if err != nil {
			return HandleServiceError(err)
		}
		return jsonResult(outcome)
	})
}
