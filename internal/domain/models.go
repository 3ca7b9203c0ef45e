package domain

// ThinkingEffort selects how much reasoning budget a backend allocates
// before producing the final answer. Backends without thinking support
// ignore it.
type ThinkingEffort string

const (
	ThinkingNone   ThinkingEffort = ""
	ThinkingLow    ThinkingEffort = "low"
	ThinkingMedium ThinkingEffort = "medium"
	ThinkingHigh   ThinkingEffort = "high"
)

// CallRequest represents one model invocation. It is constructed by the
// caller and never mutated by the engine.
type CallRequest struct {
	SystemPrompt string `json:"system_prompt"`
	UserMessage  string `json:"user_message"`

	// MaxTokens is the requested output budget. Must not exceed the
	// driver's maximum output ceiling.
	MaxTokens int `json:"max_tokens"`

	Thinking ThinkingEffort `json:"thinking_effort,omitempty"`

	// UseExtendedContext forces the larger addressing mode regardless of
	// the estimated input size.
	UseExtendedContext bool `json:"use_extended_context,omitempty"`

	// Label is a free-text correlation tag supplied by the orchestrator.
	Label string `json:"label,omitempty"`
}

// CallResult is the normalized, vendor-agnostic outcome of a call.
// Content is non-empty unless the call was a hard failure; an empty
// completion is always surfaced as an error, never as a result.
// Partial=true implies ConnectionError is set and Content holds only
// the text salvaged before the connection failed.
type CallResult struct {
	Content         string  `json:"content"`
	ModelID         string  `json:"model_id"`
	InputTokens     int     `json:"input_tokens"`
	OutputTokens    int     `json:"output_tokens"`
	ThinkingTokens  int     `json:"thinking_tokens"`
	DurationMS      int64   `json:"duration_ms"`
	Partial         bool    `json:"partial"`
	ConnectionError string  `json:"connection_error,omitempty"`
	CostUSD         float64 `json:"cost_usd,omitempty"`
}

// Capabilities are the static facts about one backend driver instance.
// Immutable for the driver's lifetime.
type Capabilities struct {
	ModelID            string
	MaxOutputTokens    int
	SupportsThinking   bool
	NativeContextLimit int
}
