package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/yauhenio2025/modelcall/internal/domain"
)

// StreamState identifies where a streaming call is in its lifecycle.
type StreamState int

const (
	StateConnecting StreamState = iota
	StateStreaming
	StateCompleted
	StateStalled
	StateCancelled
	StateErrored
)

// String returns the state name for logging.
func (s StreamState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateStalled:
		return "stalled"
	case StateCancelled:
		return "cancelled"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// StallError reports an open but silent stream: the connection is up,
// yet no data arrived within the liveness threshold. Treated exactly
// like a transport failure, so it is eligible for salvage.
type StallError struct {
	Quiet time.Duration
}

// Error implements the error interface.
func (e *StallError) Error() string {
	return fmt.Sprintf("stream stalled: no data received for %s", e.Quiet.Round(time.Millisecond))
}

// Timeout marks the stall as a timeout condition.
func (e *StallError) Timeout() bool {
	return true
}

// Monitor watches one in-flight streaming call. It enforces the stall
// threshold independently of total call duration, polls the caller's
// cancellation predicate at chunk boundaries, and emits periodic
// progress heartbeats that never affect control flow.
type Monitor struct {
	limits Limits
	events domain.EventPublisher
	label  string
	state  StreamState
}

// NewMonitor creates a monitor for one streaming call.
func NewMonitor(limits Limits, events domain.EventPublisher, label string) *Monitor {
	return &Monitor{
		limits: limits,
		events: events,
		label:  label,
		state:  StateConnecting,
	}
}

// State returns the monitor's current lifecycle state.
func (m *Monitor) State() StreamState {
	return m.state
}

// Consume drains items into acc until completion, stall, cancellation,
// or a stream error. On clean completion it returns the provider's
// consolidated final message, which may be empty when the provider
// supplies none.
func (m *Monitor) Consume(
	ctx context.Context,
	items <-chan StreamItem,
	acc *Accumulator,
	cancelled domain.CancelCheck,
) (string, error) {
	m.state = StateStreaming
	started := time.Now()

	stall := time.NewTimer(m.limits.StallTimeout)
	defer stall.Stop()

	heartbeat := time.NewTicker(m.limits.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				m.state = StateCancelled
				return "", fmt.Errorf("%w: context cancelled", domain.ErrCallCancelled)
			}
			m.state = StateErrored
			return "", ctx.Err()

		case item, ok := <-items:
			if !ok {
				m.state = StateErrored
				return "", fmt.Errorf("stream ended before completion: %w", io.ErrUnexpectedEOF)
			}

			if item.Err != nil {
				m.state = StateErrored
				return "", item.Err
			}

			if cancelled != nil && cancelled() {
				m.state = StateCancelled
				return "", domain.ErrCallCancelled
			}

			if item.Event.Kind == EventDone {
				m.state = StateCompleted
				m.emit(ctx, "stream_completed", acc, started)
				return item.Event.Final, nil
			}

			acc.Apply(item.Event)
			resetTimer(stall, m.limits.StallTimeout)

		case <-stall.C:
			m.state = StateStalled
			return "", &StallError{Quiet: time.Since(acc.LastChunk())}

		case <-heartbeat.C:
			m.emit(ctx, "stream_progress", acc, started)
		}
	}
}

func (m *Monitor) emit(ctx context.Context, eventType string, acc *Accumulator, started time.Time) {
	if m.events == nil {
		return
	}

	m.events.Publish(ctx, eventType, map[string]interface{}{
		"label":             m.label,
		"state":             m.state.String(),
		"chunks":            acc.Chunks(),
		"elapsed_ms":        time.Since(started).Milliseconds(),
		"accumulated_chars": acc.TextLen(),
		"thinking_chars":    len(acc.Thinking()),
	})
}

// resetTimer restarts a possibly-fired timer without leaking its tick.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
