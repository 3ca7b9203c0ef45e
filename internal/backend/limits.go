// Package backend contains the vendor-agnostic call execution engine:
// context-window planning, stream liveness monitoring, partial-output
// salvage, and the shared plumbing every backend driver builds on.
package backend

import "time"

// Limits collects the tunable numeric constants governing one backend
// driver: context ceilings, timeouts, and salvage thresholds. Passing
// them in at construction keeps production values out of the code path
// and lets tests run with millisecond thresholds.
type Limits struct {
	// StandardContextTokens is the combined input+output ceiling of the
	// cheaper standard addressing mode.
	StandardContextTokens int

	// ExtendedContextTokens is the ceiling of the extended mode.
	ExtendedContextTokens int

	// CharsPerToken is the heuristic ratio for estimating token counts
	// from character counts.
	CharsPerToken float64

	// SafetyMarginTokens pads the input estimate when checking fit
	// against the standard ceiling.
	SafetyMarginTokens int

	// MinOutputTokens is the smallest output budget still considered
	// useful. Shrinking below it escalates to extended mode instead.
	MinOutputTokens int

	// StallTimeout is the liveness threshold: no streamed data for
	// longer than this is treated as a connection failure.
	StallTimeout time.Duration

	// HeartbeatInterval is how often the monitor emits progress events.
	HeartbeatInterval time.Duration

	// SalvageMinChars is the minimum accumulated text length worth
	// returning as a partial result after a connection failure.
	SalvageMinChars int

	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration

	// CallTimeout is the per-operation wall-clock ceiling, sized for the
	// largest plausible output at the slowest plausible throughput.
	CallTimeout time.Duration
}

// DefaultLimits returns production defaults. Drivers override the
// context ceilings with their own model family's figures.
func DefaultLimits() Limits {
	return Limits{
		StandardContextTokens: 200_000,
		ExtendedContextTokens: 1_000_000,
		CharsPerToken:         4.0,
		SafetyMarginTokens:    2_000,
		MinOutputTokens:       1_024,
		StallTimeout:          120 * time.Second,
		HeartbeatInterval:     15 * time.Second,
		SalvageMinChars:       5_000,
		ConnectTimeout:        30 * time.Second,
		CallTimeout:           30 * time.Minute,
	}
}
