package backend

import (
	"context"
	"strings"
	"time"
)

// EventKind tags the uniform stream events every driver decoder
// produces, so the monitor consumes one event shape regardless of
// vendor wire format.
type EventKind int

const (
	// EventText carries a delta of final answer text.
	EventText EventKind = iota

	// EventThinking carries a delta of reasoning text.
	EventThinking

	// EventUsage carries a token usage update from the provider.
	EventUsage

	// EventDone marks clean stream completion. Final, when the provider
	// supplies one, is the consolidated full message.
	EventDone
)

// UsageDelta is a provider-reported token usage update. Zero fields
// mean "not reported here"; updates merge rather than overwrite.
type UsageDelta struct {
	InputTokens    int
	OutputTokens   int
	ThinkingTokens int
}

// StreamEvent is one decoded chunk of a vendor stream.
type StreamEvent struct {
	Kind  EventKind
	Text  string
	Usage UsageDelta
	Final string
}

// StreamItem carries either an event or the terminal decode/transport
// error of the stream.
type StreamItem struct {
	Event StreamEvent
	Err   error
}

// Emit sends an item unless the call context is gone, so that decoder
// goroutines never outlive the call that started them.
func Emit(ctx context.Context, items chan<- StreamItem, item StreamItem) bool {
	select {
	case items <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

// Accumulator holds the partial output of one in-flight streaming call.
// It is exclusively owned by that call: created at call start and
// discarded at call end, whether the call succeeds, salvages, or fails.
type Accumulator struct {
	text      strings.Builder
	thinking  strings.Builder
	lastChunk time.Time
	chunks    int
	usage     UsageDelta
	usageSeen bool
}

// NewAccumulator creates an accumulator for one streaming call.
func NewAccumulator() *Accumulator {
	return &Accumulator{lastChunk: time.Now()}
}

// Apply folds one event into the accumulated state.
func (a *Accumulator) Apply(ev StreamEvent) {
	switch ev.Kind {
	case EventText:
		a.text.WriteString(ev.Text)
	case EventThinking:
		a.thinking.WriteString(ev.Text)
	case EventUsage:
		a.mergeUsage(ev.Usage)
	case EventDone:
		// Completion is handled by the monitor, not accumulated.
	}

	a.chunks++
	a.lastChunk = time.Now()
}

func (a *Accumulator) mergeUsage(u UsageDelta) {
	a.usageSeen = true
	if u.InputTokens > 0 {
		a.usage.InputTokens = u.InputTokens
	}
	if u.OutputTokens > 0 {
		a.usage.OutputTokens = u.OutputTokens
	}
	if u.ThinkingTokens > 0 {
		a.usage.ThinkingTokens = u.ThinkingTokens
	}
}

// Text returns the accumulated answer text.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// TextLen returns the accumulated answer length in bytes.
func (a *Accumulator) TextLen() int {
	return a.text.Len()
}

// Thinking returns the accumulated reasoning text.
func (a *Accumulator) Thinking() string {
	return a.thinking.String()
}

// Chunks returns how many events have been applied.
func (a *Accumulator) Chunks() int {
	return a.chunks
}

// LastChunk returns when the most recent event arrived.
func (a *Accumulator) LastChunk() time.Time {
	return a.lastChunk
}

// Usage returns the merged provider-reported usage and whether the
// provider reported any at all.
func (a *Accumulator) Usage() (UsageDelta, bool) {
	return a.usage, a.usageSeen
}
