package services

import (
	"strings"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/params"
)

// BuildEvaluationRequest validates a dashboard submission and assembles the
// request sent to the evaluation service. Checks run in a fixed order and the
// first failure is returned:
//
//  1. every declared parameter has non-blank input (ErrMissingParameterValue)
//  2. every input coerces to its declared type
//  3. the dashboard has a query (ErrMissingQuery)
//  4. a dependency is selected (ErrMissingDependency)
//  5. the dashboard has a chart configuration (ErrMissingChartConfig)
//
// Parameter failures are *apperrors.ParameterError. Values are returned in
// declaration order. The function has no side effects.
func BuildEvaluationRequest(cfg *models.DashboardConfig, raw models.RawParameterInput, selectedDependencyID *string) (*models.EvaluationRequest, error) {
	declared := cfg.Parameters()

	values := make([]models.TypedParameterValue, 0, len(declared))
	for _, param := range declared {
		input, ok := raw[param.Name]
		if !ok || strings.TrimSpace(input) == "" {
			return nil, &apperrors.ParameterError{
				Parameter: param.Name,
				Raw:       input,
				Err:       apperrors.ErrMissingParameterValue,
			}
		}

		value, err := params.Coerce(input, param)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}

	query := cfg.Query()
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.ErrMissingQuery
	}

	if selectedDependencyID == nil || *selectedDependencyID == "" {
		return nil, apperrors.ErrMissingDependency
	}

	if !cfg.HasChartConfig() {
		return nil, apperrors.ErrMissingChartConfig
	}

	return models.NewEvaluationRequest(*selectedDependencyID, query, values, cfg.ChartConfig), nil
}
