package tools

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/repositories"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/services"
)

type mockRemote struct {
	mu        sync.Mutex
	deps      []models.SQLDependency
	listErr   error
	result    *models.EvaluationResult
	evalErr   error
	evaluated []*models.EvaluationRequest
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
	created := models.SQLDependency{ID: "dep-" + req.Name, Name: req.Name}
	m.mu.Lock()
	m.deps = append(m.deps, created)
	m.mu.Unlock()
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

var _ services.RemoteService = (*mockRemote)(nil)

type toolHarness struct {
	server   *server.MCPServer
	remote   *mockRemote
	registry *services.SessionRegistry
}

func newToolHarness(t *testing.T) *toolHarness {
	t.Helper()
	remote := &mockRemote{
		deps: []models.SQLDependency{{ID: "a", Name: "alpha"}, {Name: "beta"}},
		result: &models.EvaluationResult{
			DataFrame: &models.DataFrame{Columns: []any{"n"}, Index: []any{0}, Data: [][]any{{1}}},
		},
	}
	registry := services.NewSessionRegistry(repositories.NewMemoryAgentStateStore(), remote, zap.NewNop())

	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterDashboardTools(s, &DashboardToolDeps{Sessions: registry, Logger: zap.NewNop()})
	RegisterHealthTool(s, "test-version", registry)
	return &toolHarness{server: s, remote: remote, registry: registry}
}

func (h *toolHarness) newSession(t *testing.T, seed *models.DashboardConfig) string {
	t.Helper()
	session, err := h.registry.Create(context.Background(), seed)
	require.NoError(t, err)
	return session.ID()
}

// toolCallResponse is the decoded tools/call result.
type toolCallResponse struct {
	IsError bool
	Text    string
}

// call invokes a tool through HandleMessage and returns its first text content.
func (h *toolHarness) call(t *testing.T, name string, args map[string]any) toolCallResponse {
	t.Helper()
	request, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	result := h.server.HandleMessage(context.Background(), request)
	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response struct {
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))
	require.Nil(t, response.Error, "unexpected JSON-RPC error")
	require.NotEmpty(t, response.Result.Content)

	return toolCallResponse{IsError: response.Result.IsError, Text: response.Result.Content[0].Text}
}

func decodeErrorResult(t *testing.T, resp toolCallResponse) ErrorResponse {
	t.Helper()
	require.True(t, resp.IsError, "expected an error result, got %s", resp.Text)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Text), &errResp))
	return errResp
}
