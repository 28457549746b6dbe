package params

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
)

// DefaultInput returns the text used to pre-populate a parameter's input.
// Structured defaults are JSON-encoded; a missing default yields "".
func DefaultInput(param models.QueryParameter) string {
	switch v := param.DefaultValue.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

// InitialInputs computes the input text for the given parameters. Values the
// user already typed are kept for parameters that still exist; new
// parameters get their default text; parameters that disappeared are dropped.
func InitialInputs(parameters []models.QueryParameter, previous models.RawParameterInput) models.RawParameterInput {
	next := make(models.RawParameterInput, len(parameters))
	for _, p := range parameters {
		if value, ok := previous[p.Name]; ok {
			next[p.Name] = value
			continue
		}
		next[p.Name] = DefaultInput(p)
	}
	return next
}
