package backend

import (
	"time"

	"github.com/yauhenio2025/modelcall/internal/domain"
)

// Salvage decides whether a failed streaming call still yields a
// usable degraded result. Only connection-class failures qualify, and
// only when the accumulated text clears the salvage floor; otherwise
// the original error propagates because there is nothing useful to
// return. Token counts fall back to character-count estimates when the
// provider never reported authoritative usage.
func (l Limits) Salvage(
	acc *Accumulator,
	cause error,
	estimatedInput int,
	modelID string,
	started time.Time,
) (*domain.CallResult, error) {
	if !IsConnectionError(cause) {
		return nil, cause
	}

	if acc.TextLen() < l.SalvageMinChars {
		return nil, cause
	}

	usage, _ := acc.Usage()
	if usage.InputTokens == 0 {
		usage.InputTokens = estimatedInput
	}
	if usage.OutputTokens == 0 {
		usage.OutputTokens = l.EstimateTokens(acc.Text())
	}
	if usage.ThinkingTokens == 0 {
		usage.ThinkingTokens = l.EstimateTokens(acc.Thinking())
	}

	return &domain.CallResult{
		Content:         acc.Text(),
		ModelID:         modelID,
		InputTokens:     usage.InputTokens,
		OutputTokens:    usage.OutputTokens,
		ThinkingTokens:  usage.ThinkingTokens,
		DurationMS:      time.Since(started).Milliseconds(),
		Partial:         true,
		ConnectionError: cause.Error(),
	}, nil
}
