package services

import (
	"strings"
	"sync"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
)

// EvaluationResultCache holds the most recent evaluation result of a session.
// Each Set overwrites the slot; overlapping evaluations resolve to whichever
// result is stored last.
type EvaluationResultCache struct {
	mu     sync.Mutex
	result *models.EvaluationResult
}

func NewEvaluationResultCache() *EvaluationResultCache {
	return &EvaluationResultCache{}
}

func (c *EvaluationResultCache) Set(result *models.EvaluationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = result
}

// Get returns the held result, or nil before the first successful evaluation.
func (c *EvaluationResultCache) Get() *models.EvaluationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// DefaultView picks the tab shown first for a result: the figure, else the
// table, else the raw query when the dashboard has one, else none.
func DefaultView(result *models.EvaluationResult, cfg *models.DashboardConfig) models.ResultView {
	switch {
	case result != nil && result.Figure != nil:
		return models.ResultViewFigure
	case result != nil && result.DataFrame != nil:
		return models.ResultViewDataFrame
	case strings.TrimSpace(cfg.Query()) != "":
		return models.ResultViewQuery
	default:
		return models.ResultViewNone
	}
}
