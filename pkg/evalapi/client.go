// Package evalapi provides a client for the remote dashboard evaluation
// service: SQL dependency registration and dashboard evaluation.
package evalapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/logging"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/metrics"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/retry"
)

// DefaultTimeout is the maximum time to wait for the evaluation service.
const DefaultTimeout = 60 * time.Second

const (
	sqlDependencyPath       = "/api/sql-dependency"
	dashboardEvaluationPath = "/api/dashboard-evaluation"
	dashboardConfigPath     = "/api/dashboard-config"
)

// Client talks to the evaluation service over HTTP.
type Client struct {
	baseURL string
	client  *resty.Client
	retry   *retry.Config
	logger  *zap.Logger
}

// NewClient creates a client for the service at baseURL.
// A non-positive timeout selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		retry:   retry.DefaultConfig(),
		logger:  logger.Named("evalapi"),
	}
}

// SetRetryConfig replaces the backoff used for listing calls.
// Writes are never retried.
func (c *Client) SetRetryConfig(cfg *retry.Config) {
	if cfg != nil {
		c.retry = cfg
	}
}

// urlJoin joins base URL with path, preserving base path
func (c *Client) urlJoin(path string) string {
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

// ListSQLDependencies returns the registered dependencies in service order.
// Transport failures and gateway errors are retried with backoff.
func (c *Client) ListSQLDependencies(ctx context.Context) ([]models.SQLDependency, error) {
	const op = "list_sql_dependencies"
	start := time.Now()

	var deps []models.SQLDependency
	attempt := 0
	err := retry.DoIfRetryable(ctx, c.retry, func() error {
		attempt++
		if attempt > 1 {
			c.logger.Warn("Retrying SQL dependency listing", zap.Int("attempt", attempt))
		}
		deps = nil
		resp, err := c.client.R().
			SetContext(ctx).
			SetResult(&deps).
			Get(c.urlJoin(sqlDependencyPath))
		return c.check(op, apperrors.ErrFetch, resp, err)
	})
	if err != nil {
		metrics.ObserveRemoteCall(op, metrics.OutcomeError, time.Since(start))
		var remote *apperrors.RemoteError
		if !errors.As(err, &remote) {
			err = &apperrors.RemoteError{Op: op, Err: apperrors.ErrFetch, Cause: err}
		}
		return nil, err
	}
	metrics.ObserveRemoteCall(op, metrics.OutcomeSuccess, time.Since(start))

	if deps == nil {
		deps = []models.SQLDependency{}
	}
	c.logger.Debug("Fetched SQL dependencies", zap.Int("count", len(deps)), zap.Int("attempts", attempt))
	return deps, nil
}

// CreateSQLDependency validates and registers a dependency. Invalid requests
// fail with *apperrors.DependencyValidationError without contacting the service.
func (c *Client) CreateSQLDependency(ctx context.Context, req models.CreateSQLDependencyRequest) (*models.SQLDependency, error) {
	const op = "create_sql_dependency"
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	var created models.SQLDependency
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&created).
		Post(c.urlJoin(sqlDependencyPath))

	if err := c.check(op, apperrors.ErrCreate, resp, err); err != nil {
		metrics.ObserveRemoteCall(op, metrics.OutcomeError, time.Since(start))
		return nil, err
	}
	metrics.ObserveRemoteCall(op, metrics.OutcomeSuccess, time.Since(start))

	c.logger.Info("Created SQL dependency",
		zap.String("key", created.Key()),
		zap.String("type", string(req.Type)),
		zap.String("host", req.Host))
	return &created, nil
}

// EvaluateDashboard runs a validated request and returns the rendered result.
func (c *Client) EvaluateDashboard(ctx context.Context, req *models.EvaluationRequest) (*models.EvaluationResult, error) {
	const op = "evaluate_dashboard"
	start := time.Now()

	var result models.EvaluationResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post(c.urlJoin(dashboardEvaluationPath))

	if err := c.check(op, apperrors.ErrEvaluation, resp, err); err != nil {
		metrics.ObserveRemoteCall(op, metrics.OutcomeError, time.Since(start))
		return nil, err
	}
	metrics.ObserveRemoteCall(op, metrics.OutcomeSuccess, time.Since(start))

	c.logger.Debug("Evaluated dashboard",
		zap.String("sql_dependency_id", req.SQLDependencyID()),
		zap.String("query", logging.SanitizeQuery(req.ParametrizedQuery())),
		zap.Duration("elapsed", time.Since(start)))
	return &result, nil
}

// check turns a transport error or non-2xx response into *apperrors.RemoteError.
func (c *Client) check(op string, kind error, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Error("Evaluation service call failed",
			zap.String("op", op),
			zap.String("error", logging.SanitizeError(err)))
		return &apperrors.RemoteError{Op: op, Err: kind, Cause: err}
	}
	if resp.IsSuccess() {
		return nil
	}

	body := resp.String()
	c.logger.Error("Evaluation service returned error",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode()),
		zap.String("body", logging.SanitizeBody(body)))

	return &apperrors.RemoteError{
		Op:         op,
		StatusCode: resp.StatusCode(),
		Detail:     errorDetail(resp.StatusCode(), resp.Body()),
		Err:        kind,
	}
}

// errorDetail extracts the human-readable message from an error body.
// The service reports {"detail": "..."}; validation failures use a list of
// {"msg": "..."} objects under the same key.
func errorDetail(status int, body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			var msgs []string
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	return fmt.Sprintf("%d %s", status, http.StatusText(status))
}
