package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yauhenio2025/modelcall/internal/observability"
)

const cacheTTL = 1 * time.Hour

// CallService routes call requests to backend drivers and layers result
// caching and cost accounting on top of the raw drivers.
type CallService struct {
	factory BackendFactory
	cache   ResultCache
	costs   CostCalculator
}

// NewCallService creates a new call service (DI constructor).
func NewCallService(factory BackendFactory, cache ResultCache, costs CostCalculator) *CallService {
	return &CallService{
		factory: factory,
		cache:   cache,
		costs:   costs,
	}
}

// ExecuteSync handles a blocking call with automatic backend routing.
func (s *CallService) ExecuteSync(
	ctx context.Context,
	model string,
	req *CallRequest,
) (*CallResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if model == "" {
		return nil, errors.New("model cannot be empty")
	}

	ctx = observability.NewCallScope(ctx)
	ctx = observability.WithModel(ctx, model)
	logger := observability.FromContext(ctx)

	if s.cache != nil {
		cached, cacheErr := s.cache.Get(ctx, model, req)
		if cacheErr != nil && !errors.Is(cacheErr, ErrCacheMiss) {
			logger.Warn("cache get failed, continuing without cache",
				observability.Error(cacheErr))
		}
		if cached != nil {
			logger.Info("cache hit, returning cached result",
				observability.Int("content_chars", len(cached.Content)))
			return cached, nil
		}
	}

	backend, err := s.factory.ForModel(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("backend routing failed: %w", err)
	}

	result, err := backend.ExecuteSync(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call failed: %w", err)
	}

	// Cost annotation happens in the domain layer
	result.CostUSD, _ = s.costs.Calculate(ctx, model, result.InputTokens, result.OutputTokens)

	if s.cache != nil && !result.Partial {
		if setErr := s.cache.Set(ctx, model, req, result, cacheTTL); setErr != nil {
			logger.Warn("failed to store result in cache",
				observability.Error(setErr))
		}
	}

	return result, nil
}

// ExecuteStreaming handles a streaming call with automatic backend
// routing. Streaming results bypass the cache; partial results are
// never cacheable and full results are cheap to regenerate from the
// orchestrator's own records.
func (s *CallService) ExecuteStreaming(
	ctx context.Context,
	model string,
	req *CallRequest,
	cancelled CancelCheck,
) (*CallResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if model == "" {
		return nil, errors.New("model cannot be empty")
	}

	ctx = observability.NewCallScope(ctx)
	ctx = observability.WithModel(ctx, model)

	backend, err := s.factory.ForModel(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("backend routing failed: %w", err)
	}

	result, err := backend.ExecuteStreaming(ctx, req, cancelled)
	if err != nil {
		return nil, fmt.Errorf("streaming call failed: %w", err)
	}

	result.CostUSD, _ = s.costs.Calculate(ctx, model, result.InputTokens, result.OutputTokens)

	return result, nil
}
