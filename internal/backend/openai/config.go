package openai

// Config contains OpenAI driver configuration. All fields map to
// OpenAI SDK options:
//   - APIKey: Maps to option.WithAPIKey()
//   - BaseURL: Maps to option.WithBaseURL()
//
// SDK-level retries are always disabled: retry and backoff policy
// belongs to the orchestrator above this engine.
type Config struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
}
