package evalapi

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/metrics"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/retry"
)

// The service names two parameter types differently from the declared ones.
var serviceParameterTypes = map[models.ParameterType]models.ParameterType{
	models.ParameterTypeString: "string",
	models.ParameterTypeBool:   "boolean",
}

// ListDashboardConfigs returns the dashboards saved with the service.
// Retried like ListSQLDependencies.
func (c *Client) ListDashboardConfigs(ctx context.Context) ([]models.SavedDashboard, error) {
	const op = "list_dashboard_configs"
	start := time.Now()

	var saved []models.SavedDashboard
	err := retry.DoIfRetryable(ctx, c.retry, func() error {
		saved = nil
		resp, err := c.client.R().
			SetContext(ctx).
			SetResult(&saved).
			Get(c.urlJoin(dashboardConfigPath))
		return c.check(op, apperrors.ErrLoadDashboards, resp, err)
	})
	if err != nil {
		metrics.ObserveRemoteCall(op, metrics.OutcomeError, time.Since(start))
		var remote *apperrors.RemoteError
		if !errors.As(err, &remote) {
			err = &apperrors.RemoteError{Op: op, Err: apperrors.ErrLoadDashboards, Cause: err}
		}
		return nil, err
	}
	metrics.ObserveRemoteCall(op, metrics.OutcomeSuccess, time.Since(start))

	if saved == nil {
		saved = []models.SavedDashboard{}
	}
	for i := range saved {
		fromServiceTypes(saved[i].DashboardSQLQuery)
	}
	c.logger.Debug("Fetched dashboard configs", zap.Int("count", len(saved)))
	return saved, nil
}

// SaveDashboardConfig stores cfg with the service. Not retried.
func (c *Client) SaveDashboardConfig(ctx context.Context, cfg *models.DashboardConfig) (*models.SavedDashboard, error) {
	const op = "save_dashboard_config"
	start := time.Now()

	body := *cfg
	body.DashboardSQLQuery = toServiceTypes(cfg.DashboardSQLQuery)

	var saved models.SavedDashboard
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&saved).
		Post(c.urlJoin(dashboardConfigPath))

	if err := c.check(op, apperrors.ErrSaveDashboard, resp, err); err != nil {
		metrics.ObserveRemoteCall(op, metrics.OutcomeError, time.Since(start))
		return nil, err
	}
	metrics.ObserveRemoteCall(op, metrics.OutcomeSuccess, time.Since(start))

	if saved.DashboardSQLQuery == nil && saved.Title == "" {
		// Some deployments answer with an empty body.
		saved.DashboardConfig = *cfg
	}
	fromServiceTypes(saved.DashboardSQLQuery)

	c.logger.Info("Saved dashboard config",
		zap.String("key", saved.Key()),
		zap.Int("parameters", len(saved.Parameters())))
	return &saved, nil
}

// toServiceTypes returns a copy of q using the service's type names.
func toServiceTypes(q *models.DashboardSQLQuery) *models.DashboardSQLQuery {
	if q == nil {
		return nil
	}
	out := *q
	out.Parameters = make([]models.QueryParameter, len(q.Parameters))
	for i, p := range q.Parameters {
		if name, ok := serviceParameterTypes[p.Type]; ok {
			p.Type = name
		}
		out.Parameters[i] = p
	}
	return &out
}

// fromServiceTypes rewrites the service's type names in place.
func fromServiceTypes(q *models.DashboardSQLQuery) {
	if q == nil {
		return
	}
	for i, p := range q.Parameters {
		for declared, name := range serviceParameterTypes {
			if p.Type == name {
				q.Parameters[i].Type = declared
			}
		}
	}
}
