package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yauhenio2025/modelcall/internal/domain"
	"github.com/yauhenio2025/modelcall/internal/observability"
)

// StreamOpener starts one vendor streaming attempt under the given
// window plan and returns the decoded event stream. The channel must be
// closed when the vendor stream ends, and senders must go through Emit
// so they unwind when the call context is cancelled.
type StreamOpener func(ctx context.Context, req *domain.CallRequest, plan WindowPlan) (<-chan StreamItem, error)

// Core carries the pieces every backend driver shares: static
// capabilities, tunable limits, and the event sink for progress
// signals. Drivers embed it and supply only their wire format.
type Core struct {
	Caps   domain.Capabilities
	Limits Limits
	Events domain.EventPublisher
}

// Capabilities returns the driver's static capability facts.
func (c *Core) Capabilities() domain.Capabilities {
	return c.Caps
}

// Validate rejects requests the driver can never satisfy.
func (c *Core) Validate(req *domain.CallRequest) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}

	if req.UserMessage == "" {
		return errors.New("user message cannot be empty")
	}

	if req.MaxTokens <= 0 {
		return errors.New("max tokens must be positive")
	}

	if req.MaxTokens > c.Caps.MaxOutputTokens {
		return fmt.Errorf("max tokens %d exceeds model %s output ceiling %d",
			req.MaxTokens, c.Caps.ModelID, c.Caps.MaxOutputTokens)
	}

	return nil
}

// PlanFor sizes the context window for a request and returns the plan
// together with the estimated input token count.
func (c *Core) PlanFor(req *domain.CallRequest) (WindowPlan, int) {
	input := c.Limits.EstimateTokens(req.SystemPrompt, req.UserMessage)
	return c.Limits.PlanWindow(input, req.MaxTokens, req.UseExtendedContext), input
}

// RunStreaming drives one streaming call end to end: window planning, a
// single standard-to-extended escalation when the provider rejects the
// call as too large, liveness monitoring, salvage evaluation on
// connection failures, and final-message reconciliation on clean
// completion.
func (c *Core) RunStreaming(
	ctx context.Context,
	req *domain.CallRequest,
	cancelled domain.CancelCheck,
	open StreamOpener,
) (*domain.CallResult, error) {
	logger := observability.FromContext(ctx)

	plan, input := c.PlanFor(req)
	started := time.Now()

	logger.Debug("starting streaming call",
		observability.String("model", c.Caps.ModelID),
		observability.String("label", req.Label),
		observability.Int("estimated_input_tokens", input),
		observability.Int("max_tokens", plan.MaxTokens),
		observability.Bool("extended_context", plan.Extended),
	)

	final, acc, err := c.attempt(ctx, req, plan, cancelled, open)

	if err != nil && !plan.Extended && IsContextOverflow(err) {
		// One escalation retry, with the originally requested output
		// budget restored. Any further overflow is terminal.
		logger.Warn("standard context rejected as too large, retrying in extended mode",
			observability.Error(err),
			observability.Int("original_max_tokens", req.MaxTokens),
		)

		plan = WindowPlan{Extended: true, MaxTokens: req.MaxTokens}
		final, acc, err = c.attempt(ctx, req, plan, cancelled, open)
	}

	if err != nil {
		if errors.Is(err, domain.ErrCallCancelled) {
			return nil, err
		}

		result, salvageErr := c.Limits.Salvage(acc, err, input, c.Caps.ModelID, started)
		if salvageErr != nil {
			return nil, salvageErr
		}

		logger.Warn("connection failed mid-stream, returning salvaged partial result",
			observability.Error(err),
			observability.Int("salvaged_chars", len(result.Content)),
		)
		return result, nil
	}

	// The consolidated final message replaces the accumulated text only
	// when it is at least as long; a spuriously short final message must
	// not discard already-streamed output.
	content := acc.Text()
	if final != "" && len(final) >= len(content) {
		content = final
	}

	return c.finish(content, acc, input, started)
}

func (c *Core) attempt(
	ctx context.Context,
	req *domain.CallRequest,
	plan WindowPlan,
	cancelled domain.CancelCheck,
	open StreamOpener,
) (string, *Accumulator, error) {
	// Per-attempt context so a failed attempt's decoder goroutine is
	// released before any retry begins.
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	acc := NewAccumulator()

	items, err := open(attemptCtx, req, plan)
	if err != nil {
		return "", acc, err
	}

	monitor := NewMonitor(c.Limits, c.Events, req.Label)
	final, err := monitor.Consume(attemptCtx, items, acc, cancelled)
	return final, acc, err
}

// FinishSync normalizes a completed blocking call.
func (c *Core) FinishSync(
	content, thinking string,
	usage UsageDelta,
	estimatedInput int,
	started time.Time,
) (*domain.CallResult, error) {
	acc := NewAccumulator()
	acc.Apply(StreamEvent{Kind: EventText, Text: content})
	if thinking != "" {
		acc.Apply(StreamEvent{Kind: EventThinking, Text: thinking})
	}
	acc.Apply(StreamEvent{Kind: EventUsage, Usage: usage})

	return c.finish(content, acc, estimatedInput, started)
}

func (c *Core) finish(
	content string,
	acc *Accumulator,
	estimatedInput int,
	started time.Time,
) (*domain.CallResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("model %s: %w", c.Caps.ModelID, domain.ErrEmptyCompletion)
	}

	usage, _ := acc.Usage()
	if usage.InputTokens == 0 {
		usage.InputTokens = estimatedInput
	}
	if usage.OutputTokens == 0 {
		usage.OutputTokens = c.Limits.EstimateTokens(content)
	}
	if usage.ThinkingTokens == 0 && len(acc.Thinking()) > 0 {
		usage.ThinkingTokens = c.Limits.EstimateTokens(acc.Thinking())
	}

	return &domain.CallResult{
		Content:        content,
		ModelID:        c.Caps.ModelID,
		InputTokens:    usage.InputTokens,
		OutputTokens:   usage.OutputTokens,
		ThinkingTokens: usage.ThinkingTokens,
		DurationMS:     time.Since(started).Milliseconds(),
		Partial:        false,
	}, nil
}
