package anthropic

// Config contains Anthropic driver configuration. Credentials are read
// from environment state at startup and never persisted.
type Config struct {
	APIKey  string `env:"ANTHROPIC_API_KEY"`
	BaseURL string `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com/v1"`
	Version string `env:"ANTHROPIC_VERSION"  envDefault:"2023-06-01"`
}
