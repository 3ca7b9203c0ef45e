package domain

import (
	"context"
	"time"
)

// CancelCheck is a zero-argument predicate polled cooperatively at each
// chunk boundary of a streaming call. Returning true aborts the call
// immediately; cancellation is caller intent, never a fault, and is
// never salvaged.
type CancelCheck func() bool

// Backend executes calls against one vendor model.
type Backend interface {
	// ExecuteSync issues one blocking call and returns the full response.
	ExecuteSync(ctx context.Context, req *CallRequest) (*CallResult, error)

	// ExecuteStreaming accumulates output chunk by chunk so that partial
	// results survive a stream that never finishes. cancelled may be nil.
	ExecuteStreaming(ctx context.Context, req *CallRequest, cancelled CancelCheck) (*CallResult, error)

	// Capabilities returns the driver's static capability facts.
	Capabilities() Capabilities
}

// BackendFactory maps opaque model identifiers onto backend drivers.
type BackendFactory interface {
	// ForModel returns the driver for a model identifier. An
	// unrecognized identifier family is a hard configuration error.
	ForModel(ctx context.Context, model string) (Backend, error)
}

// ResultCache stores completed sync call results keyed by the exact
// request contents.
type ResultCache interface {
	// Get retrieves a cached result, or ErrCacheMiss.
	Get(ctx context.Context, model string, req *CallRequest) (*CallResult, error)

	// Set stores a result with a TTL.
	Set(ctx context.Context, model string, req *CallRequest, result *CallResult, ttl time.Duration) error
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}
