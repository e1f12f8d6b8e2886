package completion

// Parameter defaults applied when a record does not set a value.
const (
	DefaultModel         = "llama-3.3-70B-Instruct"
	DefaultSystemMessage = "You are a helpful assistant."
	DefaultTemperature   = 0.7
	DefaultMaxTokens     = 256
)

// Temperature bounds accepted by the hub.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Parameters are the per-record values used to build a request.
type Parameters struct {
	Model         string
	SystemMessage string
	UserMessage   string
	Temperature   float64
	MaxTokens     int
}

// DefaultParameters returns Parameters holding every default. UserMessage
// has no default and stays empty.
func DefaultParameters() Parameters {
	return Parameters{
		Model:         DefaultModel,
		SystemMessage: DefaultSystemMessage,
		Temperature:   DefaultTemperature,
		MaxTokens:     DefaultMaxTokens,
	}
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the body sent to /chat/completions.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// NewRequest builds the request for p: one system message followed by one
// user message.
func NewRequest(p Parameters) Request {
	return Request{
		Model: p.Model,
		Messages: []Message{
			{Role: RoleSystem, Content: p.SystemMessage},
			{Role: RoleUser, Content: p.UserMessage},
		},
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
}
