// Package params converts free-form dashboard parameter input into typed values.
package params

import (
	"math"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
)

var (
	trueLiterals  = map[string]bool{"true": true, "1": true, "yes": true, "y": true, "on": true}
	falseLiterals = map[string]bool{"false": true, "0": true, "no": true, "n": true, "off": true}
)

// Coerce converts raw user input into a typed value according to the
// parameter's declared type. The input is trimmed first.
//
//   - int: base-10 integer literal, otherwise ErrInvalidInteger
//   - float: finite floating-point literal, otherwise ErrInvalidNumber
//   - bool: true/1/yes/y/on or false/0/no/n/off (any case), otherwise ErrInvalidBoolean
//   - date, time, datetime, str and unknown types: the trimmed string
//
// Date and time values are not validated here; the evaluation service owns
// calendar semantics. Failures are *apperrors.ParameterError.
//
// Coerce does not reject empty input. Callers that require a value check
// for it first (see services.BuildEvaluationRequest).
func Coerce(raw string, param models.QueryParameter) (models.TypedParameterValue, error) {
	trimmed := strings.TrimSpace(raw)
	value, err := coerceValue(trimmed, param.Type)
	if err != nil {
		return models.TypedParameterValue{}, &apperrors.ParameterError{
			Parameter: param.Name,
			Raw:       trimmed,
			Err:       err,
		}
	}
	return models.TypedParameterValue{Parameter: param, Value: value}, nil
}

func coerceValue(trimmed string, paramType models.ParameterType) (models.ParameterValue, error) {
	switch paramType {
	case models.ParameterTypeInt:
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return models.ParameterValue{}, apperrors.ErrInvalidInteger
		}
		return models.IntegerValue(n), nil

	case models.ParameterTypeFloat:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return models.ParameterValue{}, apperrors.ErrInvalidNumber
		}
		return models.FloatValue(f), nil

	case models.ParameterTypeBool:
		lowered := strings.ToLower(trimmed)
		if trueLiterals[lowered] {
			return models.BooleanValue(true), nil
		}
		if falseLiterals[lowered] {
			return models.BooleanValue(false), nil
		}
		return models.ParameterValue{}, apperrors.ErrInvalidBoolean

	default:
		// date, time, datetime, str
		return models.StringValue(trimmed), nil
	}
}
