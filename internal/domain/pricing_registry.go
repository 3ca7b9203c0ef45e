package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// InMemoryPricingRegistry stores pricing configs in memory.
type InMemoryPricingRegistry struct {
	mu      sync.RWMutex
	pricing map[string]PricingConfig
}

// NewInMemoryPricingRegistry creates a new in-memory pricing registry.
func NewInMemoryPricingRegistry() *InMemoryPricingRegistry {
	return &InMemoryPricingRegistry{
		mu:      sync.RWMutex{},
		pricing: make(map[string]PricingConfig),
	}
}

// NewDefaultPricingRegistry creates a registry seeded with published
// list prices for the model families the factory can route to.
func NewDefaultPricingRegistry() *InMemoryPricingRegistry {
	r := NewInMemoryPricingRegistry()
	ctx := context.Background()

	_ = r.RegisterPricing(ctx, "claude-opus-4-5", PricingConfig{InputCostPer1K: 0.005, OutputCostPer1K: 0.025})
	_ = r.RegisterPricing(ctx, "claude-sonnet-4-5", PricingConfig{InputCostPer1K: 0.003, OutputCostPer1K: 0.015})
	_ = r.RegisterPricing(ctx, "claude-haiku-4-5", PricingConfig{InputCostPer1K: 0.001, OutputCostPer1K: 0.005})
	_ = r.RegisterPricing(ctx, "gpt-5.2", PricingConfig{InputCostPer1K: 0.00125, OutputCostPer1K: 0.01})
	_ = r.RegisterPricing(ctx, "gpt-4.1", PricingConfig{InputCostPer1K: 0.002, OutputCostPer1K: 0.008})
	_ = r.RegisterPricing(ctx, "o3", PricingConfig{InputCostPer1K: 0.002, OutputCostPer1K: 0.008})

	return r
}

// GetPricing retrieves pricing for a model.
func (r *InMemoryPricingRegistry) GetPricing(
	_ context.Context,
	model string,
) (PricingConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, exists := r.pricing[model]
	if !exists {
		return PricingConfig{}, fmt.Errorf("pricing not found for model: %s", model)
	}

	return config, nil
}

// RegisterPricing adds pricing for a model.
func (r *InMemoryPricingRegistry) RegisterPricing(
	_ context.Context,
	model string,
	config PricingConfig,
) error {
	if model == "" {
		return errors.New("model cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pricing[model] = config
	return nil
}
