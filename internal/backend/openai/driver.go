// Package openai implements the backend driver for OpenAI chat models
// using the official SDK. The SDK owns the wire format; this driver
// adapts its stream into the engine's uniform event shape and layers
// window planning, liveness monitoring, and salvage on top.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/yauhenio2025/modelcall/internal/backend"
	"github.com/yauhenio2025/modelcall/internal/domain"
	"github.com/yauhenio2025/modelcall/internal/observability"
)

const (
	driverName = "openai"

	// Standard mode uses a conservative ceiling well under the native
	// window; extended mode plans against the full native window. The
	// API itself needs no flag, so the mode only affects planning.
	standardContextTokens = 128_000
	extendedContextTokens = 400_000
	maxOutputTokens       = 32_768
)

// reasoningModelPrefixes identifies model families that accept a
// reasoning effort parameter.
var reasoningModelPrefixes = []string{"o1", "o3", "o4", "gpt-5"}

// Driver implements domain.Backend for OpenAI models.
type Driver struct {
	backend.Core
	client openai.Client
}

// NewDriver creates an OpenAI backend driver for one model.
func NewDriver(cfg Config, modelID string, limits backend.Limits, events domain.EventPublisher) (*Driver, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	if limits.StandardContextTokens <= 0 {
		limits.StandardContextTokens = standardContextTokens
	}
	if limits.ExtendedContextTokens <= 0 {
		limits.ExtendedContextTokens = extendedContextTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(limits.CallTimeout),
		option.WithMaxRetries(0),
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Driver{
		Core: backend.Core{
			Caps: domain.Capabilities{
				ModelID:            modelID,
				MaxOutputTokens:    maxOutputTokens,
				SupportsThinking:   supportsReasoning(modelID),
				NativeContextLimit: standardContextTokens,
			},
			Limits: limits,
			Events: events,
		},
		client: openai.NewClient(opts...),
	}, nil
}

// Name returns the driver identifier.
func (d *Driver) Name() string {
	return driverName
}

// ExecuteSync issues one blocking chat completion call.
func (d *Driver) ExecuteSync(ctx context.Context, req *domain.CallRequest) (*domain.CallResult, error) {
	if err := d.Validate(req); err != nil {
		return nil, err
	}

	ctx = observability.WithBackend(ctx, driverName)
	logger := observability.FromContext(ctx)

	plan, input := d.PlanFor(req)
	started := time.Now()

	logger.Debug("calling OpenAI API",
		observability.Int("estimated_input_tokens", input),
		observability.Int("max_tokens", plan.MaxTokens),
		observability.Bool("extended_context", plan.Extended),
	)

	resp, err := d.client.Chat.Completions.New(ctx, d.params(req, plan))
	if err != nil {
		logger.Error("OpenAI API call failed", observability.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	usage := backend.UsageDelta{
		InputTokens:    int(resp.Usage.PromptTokens),
		OutputTokens:   int(resp.Usage.CompletionTokens),
		ThinkingTokens: int(resp.Usage.CompletionTokensDetails.ReasoningTokens),
	}

	logger.Debug("OpenAI API call succeeded",
		observability.Int("input_tokens", usage.InputTokens),
		observability.Int("output_tokens", usage.OutputTokens),
	)

	return d.FinishSync(content, "", usage, input, started)
}

// ExecuteStreaming issues one streaming chat completion call,
// accumulating deltas so partial results survive a broken stream.
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
	plan backend.WindowPlan,
) (<-chan backend.StreamItem, error) {
	params := d.params(req, plan)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := d.client.Chat.Completions.NewStreaming(ctx, params)
	items := make(chan backend.StreamItem)

	go func() {
		defer close(items)
		defer stream.Close()

		// The SDK accumulator rebuilds the consolidated message; it is
		// handed over on Done so the engine can reconcile it against the
		// incrementally accumulated text.
		var acc openai.ChatCompletionAccumulator

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				if !backend.Emit(ctx, items, backend.StreamItem{Event: backend.StreamEvent{
					Kind: backend.EventText,
					Text: chunk.Choices[0].Delta.Content,
				}}) {
					return
				}
			}

			if chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
				if !backend.Emit(ctx, items, backend.StreamItem{Event: backend.StreamEvent{
					Kind: backend.EventUsage,
					Usage: backend.UsageDelta{
						InputTokens:    int(chunk.Usage.PromptTokens),
						OutputTokens:   int(chunk.Usage.CompletionTokens),
						ThinkingTokens: int(chunk.Usage.CompletionTokensDetails.ReasoningTokens),
					},
				}}) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil && !errors.Is(err, io.EOF) {
			backend.Emit(ctx, items, backend.StreamItem{
				Err: fmt.Errorf("OpenAI stream error: %w", err),
			})
			return
		}

		final := ""
		if len(acc.Choices) > 0 {
			final = acc.Choices[0].Message.Content
		}

		backend.Emit(ctx, items, backend.StreamItem{Event: backend.StreamEvent{
			Kind:  backend.EventDone,
			Final: final,
		}})
	}()

	return items, nil
}

func (d *Driver) params(req *domain.CallRequest, plan backend.WindowPlan) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserMessage))

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(d.Caps.ModelID),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(plan.MaxTokens)),
	}

	if req.Thinking != domain.ThinkingNone && d.Caps.SupportsThinking {
		params.ReasoningEffort = reasoningEffort(req.Thinking)
	}

	return params
}

func reasoningEffort(effort domain.ThinkingEffort) shared.ReasoningEffort {
	switch effort {
	case domain.ThinkingLow:
		return shared.ReasoningEffortLow
	case domain.ThinkingMedium:
		return shared.ReasoningEffortMedium
	case domain.ThinkingHigh:
		return shared.ReasoningEffortHigh
	default:
		return shared.ReasoningEffortMedium
	}
}

func supportsReasoning(modelID string) bool {
	for _, prefix := range reasoningModelPrefixes {
		if strings.HasPrefix(modelID, prefix) {
			return true
		}
	}
	return false
}
