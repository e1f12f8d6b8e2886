package node

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/rhuss/llmhub/pkg/api"
	"github.com/rhuss/llmhub/pkg/completion"
)

// ParameterReader yields the raw value of a named parameter for one item.
// ok is false when the parameter is not set for that item.
type ParameterReader interface {
	NodeParameter(name string, index int) (value any, ok bool)
}

// ResolveParameters reads, coerces and validates the parameters for the
// item at index. Unset parameters take their property default.
func ResolveParameters(r ParameterReader, index int) (completion.Parameters, error) {
	p := completion.DefaultParameters()
	var err error

	if p.Model, err = stringParam(r, ParamModel, index, p.Model); err != nil {
		return p, err
	}
	if p.SystemMessage, err = stringParam(r, ParamSystemMessage, index, p.SystemMessage); err != nil {
		return p, err
	}
	if p.UserMessage, err = stringParam(r, ParamUserMessage, index, ""); err != nil {
		return p, err
	}
	if p.Temperature, err = numberParam(r, ParamTemperature, index, p.Temperature); err != nil {
		return p, err
	}
	if p.MaxTokens, err = intParam(r, ParamMaxTokens, index, p.MaxTokens); err != nil {
		return p, err
	}

	return p, Validate(p)
}

// Validate checks p against the property constraints.
func Validate(p completion.Parameters) error {
	if p.Model == "" {
		return api.NewInvalidRequestError(ParamModel, "model is required")
	}
	if p.UserMessage == "" {
		return api.NewInvalidRequestError(ParamUserMessage, "userMessage is required")
	}
	if math.IsNaN(p.Temperature) || p.Temperature < completion.MinTemperature || p.Temperature > completion.MaxTemperature {
		return api.NewInvalidRequestError(ParamTemperature,
			fmt.Sprintf("temperature must be between %g and %g, got %g", completion.MinTemperature, completion.MaxTemperature, p.Temperature))
	}
	if p.MaxTokens < 1 {
		return api.NewInvalidRequestError(ParamMaxTokens,
			fmt.Sprintf("maxTokens must be at least 1, got %d", p.MaxTokens))
	}
	return nil
}

func stringParam(r ParameterReader, name string, index int, def string) (string, error) {
	v, ok := r.NodeParameter(name, index)
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", api.NewInvalidRequestError(name, fmt.Sprintf("%s must be a string", name))
	}
	return s, nil
}

func numberParam(r ParameterReader, name string, index int, def float64) (float64, error) {
	v, ok := r.NodeParameter(name, index)
	if !ok || v == nil {
		return def, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, api.NewInvalidRequestError(name, fmt.Sprintf("%s must be a number", name))
	}
	return f, nil
}

func intParam(r ParameterReader, name string, index int, def int) (int, error) {
	f, err := numberParam(r, name, index, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, api.NewInvalidRequestError(name, fmt.Sprintf("%s must be an integer", name))
	}
	return int(f), nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
