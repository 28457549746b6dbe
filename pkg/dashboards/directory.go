package dashboards

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/sql"
)

// Remote is the evaluation service's store of saved dashboards.
type Remote interface {
	ListDashboardConfigs(ctx context.Context) ([]models.SavedDashboard, error)
	SaveDashboardConfig(ctx context.Context, cfg *models.DashboardConfig) (*models.SavedDashboard, error)
}

// Directory lists the dashboards saved with the evaluation service together
// with the local catalog. The catalog still answers when the service is down.
type Directory struct {
	catalog *Catalog
	remote  Remote
	logger  *zap.Logger
}

// NewDirectory combines catalog and remote. Either may be nil.
func NewDirectory(catalog *Catalog, remote Remote, logger *zap.Logger) *Directory {
	if catalog == nil {
		catalog = Empty()
	}
	return &Directory{catalog: catalog, remote: remote, logger: logger.Named("dashboards")}
}

// List returns the saved dashboards followed by the catalog. When the
// service cannot be reached only the catalog is returned and remoteOK is false.
func (d *Directory) List(ctx context.Context) (summaries []Summary, remoteOK bool) {
	local := d.catalog.List()
	if d.remote == nil {
		return local, false
	}

	saved, err := d.remote.ListDashboardConfigs(ctx)
	if err != nil {
		d.logger.Warn("Saved dashboards unavailable, listing catalog only", zap.Error(err))
		return local, false
	}

	summaries = make([]Summary, 0, len(saved)+len(local))
	for i := range saved {
		summaries = append(summaries, Summary{
			Name:       saved[i].Key(),
			Title:      saved[i].Title,
			Parameters: len(saved[i].Parameters()),
			Source:     SourceRemote,
		})
	}
	return append(summaries, local...), true
}

// Get returns the named dashboard from the catalog, or else the saved
// dashboard whose key is name. Returns apperrors.ErrNotFound when neither
// has it.
func (d *Directory) Get(ctx context.Context, name string) (*models.DashboardConfig, error) {
	cfg, err := d.catalog.Get(name)
	if err == nil || d.remote == nil {
		return cfg, err
	}

	saved, err := d.remote.ListDashboardConfigs(ctx)
	if err != nil {
		return nil, err
	}
	for i := range saved {
		if saved[i].Key() == name {
			return &saved[i].DashboardConfig, nil
		}
	}
	return nil, fmt.Errorf("dashboard %q: %w", name, apperrors.ErrNotFound)
}

// Save checks cfg's query against its parameters and stores it with the
// evaluation service.
func (d *Directory) Save(ctx context.Context, cfg *models.DashboardConfig) (*models.SavedDashboard, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: dashboard config is required", apperrors.ErrInvalidDashboardConfig)
	}
	if err := sql.ValidateDashboardQuery(cfg.DashboardSQLQuery); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidDashboardConfig, err)
	}
	if d.remote == nil {
		return nil, &apperrors.RemoteError{
			Op:     "save_dashboard_config",
			Err:    apperrors.ErrSaveDashboard,
			Detail: "no evaluation service configured",
		}
	}

	saved, err := d.remote.SaveDashboardConfig(ctx, cfg)
	if err != nil {
		var remote *apperrors.RemoteError
		if !errors.As(err, &remote) {
			err = &apperrors.RemoteError{Op: "save_dashboard_config", Err: apperrors.ErrSaveDashboard, Cause: err}
		}
		return nil, err
	}
	d.logger.Info("Dashboard saved", zap.String("key", saved.Key()))
	return saved, nil
}
