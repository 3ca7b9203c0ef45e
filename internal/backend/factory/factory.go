// Package factory routes opaque model identifiers to backend drivers.
// The identifier's prefix encodes a vendor family and is used for
// routing only, never parsed for further semantics.
package factory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yauhenio2025/modelcall/internal/backend"
	"github.com/yauhenio2025/modelcall/internal/backend/anthropic"
	"github.com/yauhenio2025/modelcall/internal/backend/openai"
	"github.com/yauhenio2025/modelcall/internal/backend/script"
	"github.com/yauhenio2025/modelcall/internal/domain"
)

var openaiPrefixes = []string{"gpt", "o1", "o3", "o4"}

// Factory constructs backend drivers and caches them per model so that
// repeated calls against the same model reuse the driver's connection
// pool.
type Factory struct {
	anthropicCfg anthropic.Config
	openaiCfg    openai.Config
	limits       backend.Limits
	events       domain.EventPublisher

	mu      sync.Mutex
	drivers map[string]domain.Backend
}

// New creates a backend factory.
func New(
	anthropicCfg anthropic.Config,
	openaiCfg openai.Config,
	limits backend.Limits,
	events domain.EventPublisher,
) *Factory {
	return &Factory{
		anthropicCfg: anthropicCfg,
		openaiCfg:    openaiCfg,
		limits:       limits,
		events:       events,
		drivers:      make(map[string]domain.Backend),
	}
}

// ForModel returns the backend driver for a model identifier. An
// unrecognized identifier family is a hard configuration error, never
// silently defaulted.
func (f *Factory) ForModel(_ context.Context, model string) (domain.Backend, error) {
	if model == "" {
		return nil, errors.New("model cannot be empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if driver, exists := f.drivers[model]; exists {
		return driver, nil
	}

	driver, err := f.build(model)
	if err != nil {
		return nil, err
	}

	f.drivers[model] = driver
	return driver, nil
}

func (f *Factory) build(model string) (domain.Backend, error) {
	switch {
	case strings.HasPrefix(model, "claude"):
		driver, err := anthropic.NewDriver(f.anthropicCfg, model, f.limits, f.events)
		if err != nil {
			return nil, fmt.Errorf("failed to build Anthropic driver for %s: %w", model, err)
		}
		return driver, nil

	case hasAnyPrefix(model, openaiPrefixes):
		driver, err := openai.NewDriver(f.openaiCfg, model, f.limits, f.events)
		if err != nil {
			return nil, fmt.Errorf("failed to build OpenAI driver for %s: %w", model, err)
		}
		return driver, nil

	case strings.HasPrefix(model, "script"):
		return script.NewDriver(model, f.limits, f.events), nil

	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownModelFamily, model)
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
