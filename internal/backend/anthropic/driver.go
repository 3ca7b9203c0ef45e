// Package anthropic implements the backend driver for the Anthropic
// Messages API. The wire layer is hand-rolled over net/http because the
// driver needs chunk-level control of the SSE stream for liveness
// monitoring and partial-output salvage.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/yauhenio2025/modelcall/internal/backend"
	"github.com/yauhenio2025/modelcall/internal/domain"
	"github.com/yauhenio2025/modelcall/internal/observability"
)

const (
	driverName = "anthropic"

	// extendedContextBeta is the beta flag that unlocks the 1M-token
	// addressing mode on supported models.
	extendedContextBeta = "context-1m-2025-08-07"

	standardContextTokens = 200_000
	extendedContextTokens = 1_000_000
	maxOutputTokens       = 64_000

	// thinkingFloorTokens is the smallest budget the API accepts.
	thinkingFloorTokens = 1_024
)

// thinkingBudgets maps the caller's effort level onto the API's
// budget_tokens parameter.
var thinkingBudgets = map[domain.ThinkingEffort]int{
	domain.ThinkingLow:    4_096,
	domain.ThinkingMedium: 16_384,
	domain.ThinkingHigh:   32_768,
}

// Driver implements domain.Backend for Anthropic models.
type Driver struct {
	backend.Core
	cfg    Config
	client *http.Client
}

// NewDriver creates an Anthropic backend driver for one model.
func NewDriver(cfg Config, modelID string, limits backend.Limits, events domain.EventPublisher) (*Driver, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	if limits.StandardContextTokens <= 0 {
		limits.StandardContextTokens = standardContextTokens
	}
	if limits.ExtendedContextTokens <= 0 {
		limits.ExtendedContextTokens = extendedContextTokens
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: limits.ConnectTimeout,
		}).DialContext,
		ResponseHeaderTimeout: limits.ConnectTimeout,
	}

	return &Driver{
		Core: backend.Core{
			Caps: domain.Capabilities{
				ModelID:            modelID,
				MaxOutputTokens:    maxOutputTokens,
				SupportsThinking:   true,
				NativeContextLimit: standardContextTokens,
			},
			Limits: limits,
			Events: events,
		},
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   limits.CallTimeout,
		},
	}, nil
}

// Name returns the driver identifier.
func (d *Driver) Name() string {
	return driverName
}

// ExecuteSync issues one blocking Messages call.
func (d *Driver) ExecuteSync(ctx context.Context, req *domain.CallRequest) (*domain.CallResult, error) {
	if err := d.Validate(req); err != nil {
		return nil, err
	}

	ctx = observability.WithBackend(ctx, driverName)
	logger := observability.FromContext(ctx)

	plan, input := d.PlanFor(req)
	started := time.Now()

	logger.Debug("calling Anthropic API",
		observability.Int("estimated_input_tokens", input),
		observability.Int("max_tokens", plan.MaxTokens),
		observability.Bool("extended_context", plan.Extended),
	)

	resp, err := d.send(ctx, d.buildRequest(req, plan, false), plan.Extended)
	if err != nil {
		logger.Error("Anthropic API call failed", observability.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	var msg messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to decode Anthropic response: %w", err)
	}

	content, thinking := msg.texts()
	usage := backend.UsageDelta{
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}

	logger.Debug("Anthropic API call succeeded",
		observability.Int("input_tokens", usage.InputTokens),
		observability.Int("output_tokens", usage.OutputTokens),
	)

	return d.FinishSync(content, thinking, usage, input, started)
}

// ExecuteStreaming issues one streaming Messages call, accumulating
// output chunk by chunk so partial results survive a broken stream.
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
	resp, err := d.send(ctx, d.buildRequest(req, plan, true), plan.Extended)
	if err != nil {
		return nil, err
	}

	items := make(chan backend.StreamItem)
	go decodeStream(ctx, resp.Body, items)

	return items, nil
}

func (d *Driver) buildRequest(req *domain.CallRequest, plan backend.WindowPlan, stream bool) messageRequest {
	mr := messageRequest{
		Model:     d.Caps.ModelID,
		System:    req.SystemPrompt,
		Messages:  []message{{Role: "user", Content: req.UserMessage}},
		MaxTokens: plan.MaxTokens,
		Stream:    stream,
	}

	if budget, ok := thinkingBudgets[req.Thinking]; ok {
		// The API requires budget_tokens strictly below max_tokens.
		if budget >= plan.MaxTokens {
			budget = plan.MaxTokens - thinkingFloorTokens
		}
		if budget >= thinkingFloorTokens {
			mr.Thinking = &thinkingParam{Type: "enabled", BudgetTokens: budget}
		}
	}

	return mr
}

func (d *Driver) send(ctx context.Context, payload messageRequest, extended bool) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.cfg.BaseURL+"/messages",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", d.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", d.cfg.Version)
	if extended {
		httpReq.Header.Set("anthropic-beta", extendedContextBeta)
	}
	if payload.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, newAPIError(resp.StatusCode, raw)
	}

	return resp, nil
}

// APIError is a non-2xx response from the Anthropic API.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic api error %d: %s", e.Status, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = string(body)
	}
	return &APIError{Status: status, Message: msg}
}
