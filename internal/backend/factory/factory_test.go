package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yauhenio2025/modelcall/internal/backend"
	"github.com/yauhenio2025/modelcall/internal/backend/anthropic"
	"github.com/yauhenio2025/modelcall/internal/backend/openai"
	"github.com/yauhenio2025/modelcall/internal/domain"
)

func newTestFactory() *Factory {
	return New(
		anthropic.Config{APIKey: "anthropic-key"},
		openai.Config{APIKey: "openai-key"},
		backend.DefaultLimits(),
		nil,
	)
}

func TestFactory_ForModel(t *testing.T) {
	ctx := context.Background()

	t.Run("should route claude models to the Anthropic driver", func(t *testing.T) {
		driver, err := newTestFactory().ForModel(ctx, "claude-sonnet-4-5")
		require.NoError(t, err)
		require.IsType(t, &anthropic.Driver{}, driver)
		require.Equal(t, "claude-sonnet-4-5", driver.Capabilities().ModelID)
	})

	t.Run("should route gpt and o-series models to the OpenAI driver", func(t *testing.T) {
		factory := newTestFactory()
		for _, model := range []string{"gpt-5.2", "gpt-4.1", "o1-pro", "o3", "o4-mini"} {
			driver, err := factory.ForModel(ctx, model)
			require.NoError(t, err)
			require.IsType(t, &openai.Driver{}, driver, model)
		}
	})

	t.Run("should route script models to the replay driver", func(t *testing.T) {
		driver, err := newTestFactory().ForModel(ctx, "script-dev")
		require.NoError(t, err)
		require.Equal(t, "script-dev", driver.Capabilities().ModelID)
	})

	t.Run("should reject an unknown model family", func(t *testing.T) {
		driver, err := newTestFactory().ForModel(ctx, "mistral-large")
		require.Nil(t, driver)
		require.ErrorIs(t, err, domain.ErrUnknownModelFamily)
		require.Contains(t, err.Error(), "mistral-large")
	})

	t.Run("should reject an empty model identifier", func(t *testing.T) {
		_, err := newTestFactory().ForModel(ctx, "")
		require.Error(t, err)
	})

	t.Run("should reuse the driver for repeated lookups of one model", func(t *testing.T) {
		factory := newTestFactory()

		first, err := factory.ForModel(ctx, "claude-haiku-4-5")
		require.NoError(t, err)
		second, err := factory.ForModel(ctx, "claude-haiku-4-5")
		require.NoError(t, err)

		require.Same(t, first, second)
	})

	t.Run("should surface a missing credential as a build error", func(t *testing.T) {
		factory := New(anthropic.Config{}, openai.Config{}, backend.DefaultLimits(), nil)

		_, err := factory.ForModel(ctx, "claude-sonnet-4-5")
		require.Error(t, err)
		require.Contains(t, err.Error(), "API key")
	})
}
