package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yauhenio2025/modelcall/internal/domain"
)

func sampleRequest() *domain.CallRequest {
	return &domain.CallRequest{
		SystemPrompt: "be brief",
		UserMessage:  "what is the answer",
		MaxTokens:    2_000,
		Thinking:     domain.ThinkingLow,
	}
}

func TestResultCache_Key(t *testing.T) {
	cache := NewResultCache(nil, "callresult")

	t.Run("should be deterministic for identical requests", func(t *testing.T) {
		require.Equal(t,
			cache.Key("claude-sonnet-4-5", sampleRequest()),
			cache.Key("claude-sonnet-4-5", sampleRequest()),
		)
	})

	t.Run("should change when any answer-affecting field changes", func(t *testing.T) {
		base := cache.Key("claude-sonnet-4-5", sampleRequest())

		variants := []*domain.CallRequest{}

		withSystem := sampleRequest()
		withSystem.SystemPrompt = "be verbose"
		variants = append(variants, withSystem)

		withMessage := sampleRequest()
		withMessage.UserMessage = "a different question"
		variants = append(variants, withMessage)

		withBudget := sampleRequest()
		withBudget.MaxTokens = 4_000
		variants = append(variants, withBudget)

		withThinking := sampleRequest()
		withThinking.Thinking = domain.ThinkingHigh
		variants = append(variants, withThinking)

		withExtended := sampleRequest()
		withExtended.UseExtendedContext = true
		variants = append(variants, withExtended)

		for _, variant := range variants {
			require.NotEqual(t, base, cache.Key("claude-sonnet-4-5", variant))
		}

		require.NotEqual(t, base, cache.Key("claude-opus-4-5", sampleRequest()))
	})

	t.Run("should not collide on adjacent field boundaries", func(t *testing.T) {
		a := &domain.CallRequest{SystemPrompt: "ab", UserMessage: "c", MaxTokens: 100}
		b := &domain.CallRequest{SystemPrompt: "a", UserMessage: "bc", MaxTokens: 100}

		require.NotEqual(t, cache.Key("m", a), cache.Key("m", b))
	})

	t.Run("should carry the configured prefix", func(t *testing.T) {
		prefixed := NewResultCache(nil, "custom")
		require.True(t, strings.HasPrefix(prefixed.Key("m", sampleRequest()), "custom:"))

		defaulted := NewResultCache(nil, "")
		require.True(t, strings.HasPrefix(defaulted.Key("m", sampleRequest()), "callresult:"))
	})
}

func TestResultCache_Validation(t *testing.T) {
	cache := NewResultCache(nil, "callresult")
	ctx := context.Background()

	t.Run("should reject a nil request on get", func(t *testing.T) {
		_, err := cache.Get(ctx, "m", nil)
		require.Error(t, err)
	})

	t.Run("should reject nil arguments on set", func(t *testing.T) {
		require.Error(t, cache.Set(ctx, "m", nil, &domain.CallResult{}, time.Minute))
		require.Error(t, cache.Set(ctx, "m", sampleRequest(), nil, time.Minute))
	})

	t.Run("should refuse to store a partial result", func(t *testing.T) {
		err := cache.Set(ctx, "m", sampleRequest(), &domain.CallResult{
			Content: "fragment",
			Partial: true,
		}, time.Minute)
		require.Error(t, err)
		require.Contains(t, err.Error(), "not cacheable")
	})
}
