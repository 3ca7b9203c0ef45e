package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/yauhenio2025/modelcall/internal/backend"
	"github.com/yauhenio2025/modelcall/internal/backend/anthropic"
	"github.com/yauhenio2025/modelcall/internal/backend/openai"
)

// Config represents the call engine configuration.
type Config struct {
	Anthropic anthropic.Config
	OpenAI    openai.Config
	Limits    LimitsConfig
	Redis     RedisConfig
}

// LimitsConfig exposes every tunable numeric constant of the call
// engine through the environment, so deployments (and tests) can size
// timeouts and floors without code changes. Durations are in seconds.
type LimitsConfig struct {
	StallTimeout       int     `env:"CALL_STALL_TIMEOUT"        envDefault:"120"`
	HeartbeatInterval  int     `env:"CALL_HEARTBEAT_INTERVAL"   envDefault:"15"`
	ConnectTimeout     int     `env:"CALL_CONNECT_TIMEOUT"      envDefault:"30"`
	CallTimeout        int     `env:"CALL_TIMEOUT"              envDefault:"1800"`
	SalvageMinChars    int     `env:"CALL_SALVAGE_MIN_CHARS"    envDefault:"5000"`
	MinOutputTokens    int     `env:"CALL_MIN_OUTPUT_TOKENS"    envDefault:"1024"`
	SafetyMarginTokens int     `env:"CALL_SAFETY_MARGIN_TOKENS" envDefault:"2000"`
	CharsPerToken      float64 `env:"CALL_CHARS_PER_TOKEN"      envDefault:"4.0"`
}

// RedisConfig contains result cache settings. An empty Addr disables
// the cache entirely.
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB"        envDefault:"0"`
	KeyPrefix string `env:"CACHE_PREFIX"    envDefault:"callresult"`
}

// ToLimits converts the environment settings into engine limits.
// Context ceilings stay zero here; each driver fills in its own model
// family's figures.
func (l LimitsConfig) ToLimits() backend.Limits {
	limits := backend.DefaultLimits()
	limits.StandardContextTokens = 0
	limits.ExtendedContextTokens = 0
	limits.StallTimeout = time.Duration(l.StallTimeout) * time.Second
	limits.HeartbeatInterval = time.Duration(l.HeartbeatInterval) * time.Second
	limits.ConnectTimeout = time.Duration(l.ConnectTimeout) * time.Second
	limits.CallTimeout = time.Duration(l.CallTimeout) * time.Second
	limits.SalvageMinChars = l.SalvageMinChars
	limits.MinOutputTokens = l.MinOutputTokens
	limits.SafetyMarginTokens = l.SafetyMarginTokens
	limits.CharsPerToken = l.CharsPerToken
	return limits
}

// DepConfig is used for dependency injection with dig. The vendor
// sub-configs share the type name Config, so the fields are named
// rather than embedded.
type DepConfig struct {
	dig.Out

	Anthropic *anthropic.Config
	OpenAI    *openai.Config
	Limits    *LimitsConfig
	Redis     *RedisConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		Anthropic: &cfg.Anthropic,
		OpenAI:    &cfg.OpenAI,
		Limits:    &cfg.Limits,
		Redis:     &cfg.Redis,
	}
}
