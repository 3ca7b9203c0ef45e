// Command modelcall runs one model invocation from the command line.
// It exists for smoke-testing credentials and tuning; production
// callers use the library through domain.CallService.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/yauhenio2025/modelcall/internal/backend"
	"github.com/yauhenio2025/modelcall/internal/backend/factory"
	"github.com/yauhenio2025/modelcall/internal/cache/redis"
	"github.com/yauhenio2025/modelcall/internal/config"
	"github.com/yauhenio2025/modelcall/internal/domain"
	"github.com/yauhenio2025/modelcall/internal/observability"
)

func main() {
	model := flag.String("model", "script-dev", "model identifier (prefix selects the backend)")
	promptFile := flag.String("prompt", "", "path to the user message file (reads stdin when empty)")
	systemFile := flag.String("system", "", "path to the system prompt file")
	maxTokens := flag.Int("max-tokens", 8192, "output token budget")
	thinking := flag.String("thinking", "", "thinking effort: low, medium, or high")
	extended := flag.Bool("extended", false, "force extended context mode")
	streaming := flag.Bool("stream", true, "use the streaming call path")
	label := flag.String("label", "cli", "correlation label")
	flag.Parse()

	container := buildContainer()

	err := container.Invoke(func(service *domain.CallService) error {
		req, err := buildRequest(*promptFile, *systemFile, *maxTokens, *thinking, *extended, *label)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var result *domain.CallResult
		if *streaming {
			result, err = service.ExecuteStreaming(ctx, *model, req, nil)
		} else {
			result, err = service.ExecuteSync(ctx, *model, req)
		}
		if err != nil {
			return err
		}

		logger := observability.FromContext(ctx)
		logger.Info("call finished",
			observability.String("model", result.ModelID),
			observability.Int("input_tokens", result.InputTokens),
			observability.Int("output_tokens", result.OutputTokens),
			observability.Int("thinking_tokens", result.ThinkingTokens),
			observability.Int64("duration_ms", result.DurationMS),
			observability.Bool("partial", result.Partial),
			observability.Float64("cost_usd", result.CostUSD),
		)

		fmt.Println(result.Content)
		return nil
	})
	if err != nil {
		log.Fatalf("Call failed: %v", err)
	}
}

func buildRequest(promptFile, systemFile string, maxTokens int, thinking string, extended bool, label string) (*domain.CallRequest, error) {
	userMessage, err := readInput(promptFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt: %w", err)
	}

	systemPrompt := ""
	if systemFile != "" {
		raw, readErr := os.ReadFile(systemFile)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read system prompt: %w", readErr)
		}
		systemPrompt = string(raw)
	}

	return &domain.CallRequest{
		SystemPrompt:       systemPrompt,
		UserMessage:        userMessage,
		MaxTokens:          maxTokens,
		Thinking:           domain.ThinkingEffort(thinking),
		UseExtendedContext: extended,
		Label:              label,
	}, nil
}

func readInput(promptFile string) (string, error) {
	if promptFile != "" {
		raw, err := os.ReadFile(promptFile)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	// Invoked for side effects: installs the global logger.
	if err := container.Invoke(func(*zap.Logger) {}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	if err := container.Provide(func() domain.EventPublisher {
		return observability.NewEventBus(slog.Default())
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Engine limits
	if err := container.Provide(func(cfg *config.LimitsConfig) backend.Limits {
		return cfg.ToLimits()
	}); err != nil {
		log.Fatalf("Failed to provide limits: %v", err)
	}

	// Backend factory
	if err := container.Provide(func(cfg *config.Config, limits backend.Limits, events domain.EventPublisher) domain.BackendFactory {
		return factory.New(cfg.Anthropic, cfg.OpenAI, limits, events)
	}); err != nil {
		log.Fatalf("Failed to provide backend factory: %v", err)
	}

	// Result cache (optional: disabled when no Redis address is set)
	if err := container.Provide(func(cfg *config.RedisConfig) domain.ResultCache {
		if cfg.Addr == "" {
			return nil
		}
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		return redis.NewResultCache(client, cfg.KeyPrefix)
	}); err != nil {
		log.Fatalf("Failed to provide result cache: %v", err)
	}

	// Cost accounting
	if err := container.Provide(func() domain.PricingRegistry {
		return domain.NewDefaultPricingRegistry()
	}); err != nil {
		log.Fatalf("Failed to provide pricing registry: %v", err)
	}
	if err := container.Provide(func(registry domain.PricingRegistry) domain.CostCalculator {
		return domain.NewStandardCostCalculator(registry)
	}); err != nil {
		log.Fatalf("Failed to provide cost calculator: %v", err)
	}

	// Domain services
	if err := container.Provide(domain.NewCallService); err != nil {
		log.Fatalf("Failed to provide call service: %v", err)
	}

	return container
}
