package node

import "github.com/rhuss/llmhub/pkg/completion"

// Parameter names recognized by the node.
const (
	ParamModel         = "model"
	ParamSystemMessage = "systemMessage"
	ParamUserMessage   = "userMessage"
	ParamTemperature   = "temperature"
	ParamMaxTokens     = "maxTokens"
)

// MethodGetModels is the option-loading method backing the model selector.
const MethodGetModels = "getModels"

// Property kinds.
const (
	KindOptions = "options"
	KindString  = "string"
	KindNumber  = "number"
)

// Description is the static metadata a host uses to render and wire the node.
type Description struct {
	DisplayName string            `json:"displayName"`
	Name        string            `json:"name"`
	Icon        string            `json:"icon,omitempty"`
	Group       []string          `json:"group"`
	Version     int               `json:"version"`
	Description string            `json:"description"`
	Defaults    map[string]string `json:"defaults,omitempty"`
	Inputs      []string          `json:"inputs"`
	Outputs     []string          `json:"outputs"`
	Credentials []CredentialRef   `json:"credentials"`
	Properties  []Property        `json:"properties"`
}

// CredentialRef names a credential type the node needs.
type CredentialRef struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// Property describes one configurable parameter.
type Property struct {
	DisplayName string       `json:"displayName"`
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Default     any          `json:"default"`
	Required    bool         `json:"required,omitempty"`
	TypeOptions *TypeOptions `json:"typeOptions,omitempty"`
}

// TypeOptions carries UI hints for a property.
type TypeOptions struct {
	LoadOptionsMethod string   `json:"loadOptionsMethod,omitempty"`
	Rows              int      `json:"rows,omitempty"`
	MinValue          *float64 `json:"minValue,omitempty"`
	MaxValue          *float64 `json:"maxValue,omitempty"`
	NumberPrecision   int      `json:"numberPrecision,omitempty"`
}

// Describe returns the node description. Each call returns a fresh value.
func Describe() Description {
	minTemp, maxTemp := completion.MinTemperature, completion.MaxTemperature

	return Description{
		DisplayName: "Telekom LLM",
		Name:        "telekomLlmChatModel",
		Icon:        "file:telekom.svg",
		Group:       []string{"transform"},
		Version:     1,
		Description: "T-Systems LLM Hub – OpenAI-compatible Chat Model",
		Defaults:    map[string]string{"name": "Telekom LLM"},
		Inputs:      []string{"main"},
		Outputs:     []string{"main"},
		Credentials: []CredentialRef{{Name: CredentialType, Required: true}},
		Properties: []Property{
			{
				DisplayName: "Model",
				Name:        ParamModel,
				Type:        KindOptions,
				Default:     completion.DefaultModel,
				Required:    true,
				TypeOptions: &TypeOptions{LoadOptionsMethod: MethodGetModels},
			},
			{
				DisplayName: "System Message",
				Name:        ParamSystemMessage,
				Type:        KindString,
				Default:     completion.DefaultSystemMessage,
				TypeOptions: &TypeOptions{Rows: 4},
			},
			{
				DisplayName: "User Message",
				Name:        ParamUserMessage,
				Type:        KindString,
				Default:     "",
				Required:    true,
				TypeOptions: &TypeOptions{Rows: 4},
			},
			{
				DisplayName: "Temperature",
				Name:        ParamTemperature,
				Type:        KindNumber,
				Default:     completion.DefaultTemperature,
				TypeOptions: &TypeOptions{MinValue: &minTemp, MaxValue: &maxTemp, NumberPrecision: 1},
			},
			{
				DisplayName: "Max Tokens",
				Name:        ParamMaxTokens,
				Type:        KindNumber,
				Default:     completion.DefaultMaxTokens,
			},
		},
	}
}
