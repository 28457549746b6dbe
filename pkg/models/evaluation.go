package models

import "encoding/json"

// EvaluationRequest is a validated, immutable request to evaluate a dashboard.
// It can only be produced by services.BuildEvaluationRequest (through
// NewEvaluationRequest) and exposes its contents through accessors.
type EvaluationRequest struct {
	sqlDependencyID   string
	parametrizedQuery string
	parameterValues   []TypedParameterValue
	chartConfig       ChartConfig
}

// NewEvaluationRequest assembles a request from already-validated parts.
// The slices are copied so later changes by the caller are not observed.
func NewEvaluationRequest(sqlDependencyID, parametrizedQuery string, values []TypedParameterValue, chartConfig ChartConfig) *EvaluationRequest {
	return &EvaluationRequest{
		sqlDependencyID:   sqlDependencyID,
		parametrizedQuery: parametrizedQuery,
		parameterValues:   append([]TypedParameterValue(nil), values...),
		chartConfig:       append(ChartConfig(nil), chartConfig...),
	}
}

func (r *EvaluationRequest) SQLDependencyID() string { return r.sqlDependencyID }

func (r *EvaluationRequest) ParametrizedQuery() string { return r.parametrizedQuery }

// ParameterValues returns a copy of the values in declaration order.
func (r *EvaluationRequest) ParameterValues() []TypedParameterValue {
	return append([]TypedParameterValue(nil), r.parameterValues...)
}

// ChartConfig returns a copy of the opaque chart configuration.
func (r *EvaluationRequest) ChartConfig() ChartConfig {
	return append(ChartConfig(nil), r.chartConfig...)
}

// evaluationRequestWire is the JSON shape the evaluation service accepts.
type evaluationRequestWire struct {
	Query struct {
		SQLDependencyID   string                `json:"sql_dependency_id"`
		ParametrizedQuery string                `json:"parametrized_query"`
		ParameterValues   []TypedParameterValue `json:"dashboard_sql_query_parameter_values"`
	} `json:"dashboard_evaluation_sql_query"`
	ChartConfig json.RawMessage `json:"chart_config"`
}

func (r *EvaluationRequest) MarshalJSON() ([]byte, error) {
	var wire evaluationRequestWire
	wire.Query.SQLDependencyID = r.sqlDependencyID
	wire.Query.ParametrizedQuery = r.parametrizedQuery
	wire.Query.ParameterValues = r.parameterValues
	if wire.Query.ParameterValues == nil {
		wire.Query.ParameterValues = []TypedParameterValue{}
	}
	wire.ChartConfig = json.RawMessage(r.chartConfig)
	return json.Marshal(wire)
}

// DataFrame is a tabular result in pandas "split" orientation.
type DataFrame struct {
	Columns []any   `json:"columns"`
	Index   []any   `json:"index"`
	Data    [][]any `json:"data"`
}

// Figure is a rendered chart. Its parts are opaque to this module.
type Figure struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Layout json.RawMessage `json:"layout,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// EvaluationResult is what the evaluation service returns. Either half may be absent.
type EvaluationResult struct {
	DataFrame *DataFrame `json:"data_frame,omitempty"`
	Figure    *Figure    `json:"figure,omitempty"`
}

// ResultView is the display tab chosen for an evaluation result.
type ResultView string

const (
	ResultViewFigure    ResultView = "figure"
	ResultViewDataFrame ResultView = "dataframe"
	ResultViewQuery     ResultView = "query"
	ResultViewNone      ResultView = "none"
)

func (v ResultView) String() string { return string(v) }

