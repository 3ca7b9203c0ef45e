// Package redis implements an exact-match result cache for completed
// sync calls. Long analytical extractions are expensive; identical
// re-runs within the TTL are served from Redis instead of the vendor.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yauhenio2025/modelcall/internal/domain"
	"github.com/yauhenio2025/modelcall/internal/observability"
)

// ResultCache implements the domain.ResultCache interface.
type ResultCache struct {
	client *redis.Client
	prefix string
}

// NewResultCache creates a Redis-backed result cache.
func NewResultCache(client *redis.Client, prefix string) *ResultCache {
	if prefix == "" {
		prefix = "callresult"
	}
	return &ResultCache{
		client: client,
		prefix: prefix,
	}
}

// Key derives the deterministic cache key for a request. Every field
// that changes the provider's answer participates in the hash.
func (c *ResultCache) Key(model string, req *domain.CallRequest) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(req.SystemPrompt))
	h.Write([]byte{0})
	h.Write([]byte(req.UserMessage))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(req.MaxTokens)))
	h.Write([]byte{0})
	h.Write([]byte(req.Thinking))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(req.UseExtendedContext)))

	return c.prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached result, or domain.ErrCacheMiss.
func (c *ResultCache) Get(ctx context.Context, model string, req *domain.CallRequest) (*domain.CallResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	raw, err := c.client.Get(ctx, c.Key(model, req)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var result domain.CallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached result: %w", err)
	}

	observability.FromContext(ctx).Debug("result cache hit",
		observability.Int("content_chars", len(result.Content)))

	return &result, nil
}

// Set stores a result with a TTL. Partial results are refused: a
// salvaged fragment must never masquerade as the full answer on a
// later identical request.
func (c *ResultCache) Set(
	ctx context.Context,
	model string,
	req *domain.CallRequest,
	result *domain.CallResult,
	ttl time.Duration,
) error {
	if req == nil || result == nil {
		return errors.New("request and result cannot be nil")
	}

	if result.Partial {
		return errors.New("partial results are not cacheable")
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if err := c.client.Set(ctx, c.Key(model, req), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}

	return nil
}
