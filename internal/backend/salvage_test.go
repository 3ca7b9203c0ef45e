package backend_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yauhenio2025/modelcall/internal/backend"
	"github.com/yauhenio2025/modelcall/internal/domain"
)

func salvageLimits() backend.Limits {
	limits := backend.DefaultLimits()
	limits.SalvageMinChars = 5_000
	return limits
}

func accumulatorWithText(text string) *backend.Accumulator {
	acc := backend.NewAccumulator()
	acc.Apply(backend.StreamEvent{Kind: backend.EventText, Text: text})
	return acc
}

func TestSalvage_AboveFloorReturnsPartialResult(t *testing.T) {
	limits := salvageLimits()
	text := strings.Repeat("y", 12_000)
	acc := accumulatorWithText(text)
	cause := errors.New("read tcp 10.0.0.1:443: connection reset by peer")

	result, err := limits.Salvage(acc, cause, 900, "claude-sonnet-4-5", time.Now().Add(-90*time.Second))
	require.NoError(t, err)
	require.NotNil(t, result)

	require.True(t, result.Partial)
	require.Len(t, result.Content, 12_000)
	require.Equal(t, text, result.Content)
	require.Equal(t, cause.Error(), result.ConnectionError)
	require.Equal(t, "claude-sonnet-4-5", result.ModelID)
	require.GreaterOrEqual(t, result.DurationMS, int64(90_000))

	// No authoritative usage was reported, so tokens are estimated.
	require.Equal(t, 900, result.InputTokens)
	require.Equal(t, 3_000, result.OutputTokens)
}

func TestSalvage_BelowFloorPropagatesCause(t *testing.T) {
	limits := salvageLimits()
	acc := accumulatorWithText(strings.Repeat("y", 4_999))
	cause := &backend.StallError{Quiet: 125 * time.Second}

	result, err := limits.Salvage(acc, cause, 100, "claude-sonnet-4-5", time.Now())
	require.Nil(t, result)
	require.ErrorAs(t, err, new(*backend.StallError))
}

func TestSalvage_NonConnectionCauseNeverSalvages(t *testing.T) {
	limits := salvageLimits()
	acc := accumulatorWithText(strings.Repeat("y", 50_000))

	t.Run("should propagate cancellation untouched", func(t *testing.T) {
		result, err := limits.Salvage(acc, domain.ErrCallCancelled, 100, "m", time.Now())
		require.Nil(t, result)
		require.ErrorIs(t, err, domain.ErrCallCancelled)
	})

	t.Run("should propagate provider rejections untouched", func(t *testing.T) {
		cause := errors.New("anthropic api error 400: prompt is too long")
		result, err := limits.Salvage(acc, cause, 100, "m", time.Now())
		require.Nil(t, result)
		require.Equal(t, cause, err)
	})
}

func TestSalvage_ReportedUsageWins(t *testing.T) {
	limits := salvageLimits()
	acc := accumulatorWithText(strings.Repeat("y", 8_000))
	acc.Apply(backend.StreamEvent{
		Kind:  backend.EventUsage,
		Usage: backend.UsageDelta{InputTokens: 12_345, OutputTokens: 678},
	})

	result, err := limits.Salvage(acc, &backend.StallError{Quiet: time.Minute}, 111, "m", time.Now())
	require.NoError(t, err)
	require.Equal(t, 12_345, result.InputTokens)
	require.Equal(t, 678, result.OutputTokens)
}
