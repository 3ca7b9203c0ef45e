// Package script provides a deterministic in-memory backend driver
// that replays the request's own text without external API calls. It
// exists for dry runs and for exercising the full call engine,
// streaming machinery included, in tests and development.
package script

import (
	"context"
	"fmt"
	"time"

	"github.com/yauhenio2025/modelcall/internal/backend"
	"github.com/yauhenio2025/modelcall/internal/domain"
	"github.com/yauhenio2025/modelcall/internal/observability"
)

const (
	driverName        = "script"
	defaultChunkChars = 16
	defaultChunkDelay = time.Millisecond

	standardContextTokens = 200_000
	extendedContextTokens = 1_000_000
)

// Driver implements domain.Backend without any network I/O.
type Driver struct {
	backend.Core
	chunkChars int
	chunkDelay time.Duration
}

// NewDriver creates a script backend driver.
func NewDriver(modelID string, limits backend.Limits, events domain.EventPublisher) *Driver {
	if limits.StandardContextTokens <= 0 {
		limits.StandardContextTokens = standardContextTokens
	}
	if limits.ExtendedContextTokens <= 0 {
		limits.ExtendedContextTokens = extendedContextTokens
	}

	return &Driver{
		Core: backend.Core{
			Caps: domain.Capabilities{
				ModelID:            modelID,
				MaxOutputTokens:    limits.StandardContextTokens,
				SupportsThinking:   false,
				NativeContextLimit: limits.StandardContextTokens,
			},
			Limits: limits,
			Events: events,
		},
		chunkChars: defaultChunkChars,
		chunkDelay: defaultChunkDelay,
	}
}

// Name returns the driver identifier.
func (d *Driver) Name() string {
	return driverName
}

// ExecuteSync replays the request as a completed call.
func (d *Driver) ExecuteSync(ctx context.Context, req *domain.CallRequest) (*domain.CallResult, error) {
	if err := d.Validate(req); err != nil {
		return nil, err
	}

	ctx = observability.WithBackend(ctx, driverName)
	observability.FromContext(ctx).Debug("replaying request")

	started := time.Now()
	input := d.Limits.EstimateTokens(req.SystemPrompt, req.UserMessage)

	content := replayContent(req)
	usage := backend.UsageDelta{
		InputTokens:  input,
		OutputTokens: d.Limits.EstimateTokens(content),
	}

	return d.FinishSync(content, "", usage, input, started)
}

// ExecuteStreaming replays the request through the real streaming
// engine, chunk by chunk.
func (d *Driver) ExecuteStreaming(
	ctx context.Context,
	req *domain.CallRequest,
	cancelled domain.CancelCheck,
) (*domain.CallResult, error) {
	if err := d.Validate(req); err != nil {
		return nil, err
	}

	ctx = observability.WithBackend(ctx, driverName)
	return d.RunStreaming(ctx, req, cancelled, d.openStream)
}

func (d *Driver) openStream(
	ctx context.Context,
	req *domain.CallRequest,
	_ backend.WindowPlan,
) (<-chan backend.StreamItem, error) {
	content := replayContent(req)
	items := make(chan backend.StreamItem)

	go func() {
		defer close(items)

		for start := 0; start < len(content); start += d.chunkChars {
			end := start + d.chunkChars
			if end > len(content) {
				end = len(content)
			}

			if !backend.Emit(ctx, items, backend.StreamItem{Event: backend.StreamEvent{
				Kind: backend.EventText,
				Text: content[start:end],
			}}) {
				return
			}

			time.Sleep(d.chunkDelay)
		}

		backend.Emit(ctx, items, backend.StreamItem{Event: backend.StreamEvent{
			Kind:  backend.EventDone,
			Final: content,
		}})
	}()

	return items, nil
}

func replayContent(req *domain.CallRequest) string {
	return fmt.Sprintf("[replay] %s", req.UserMessage)
}
