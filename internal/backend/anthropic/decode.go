package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/yauhenio2025/modelcall/internal/backend"
)

// Large deltas arrive as single SSE lines; the default scanner buffer
// is far too small for them.
const scannerBufferBytes = 1 << 20

// Wire structures for the Messages API.

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type thinkingParam struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type messageRequest struct {
	Model     string         `json:"model"`
	System    string         `json:"system,omitempty"`
	Messages  []message      `json:"messages"`
	MaxTokens int            `json:"max_tokens"`
	Stream    bool           `json:"stream,omitempty"`
	Thinking  *thinkingParam `json:"thinking,omitempty"`
}

type contentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type messageResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      usage          `json:"usage"`
}

// texts splits the response blocks into answer and thinking text.
func (r *messageResponse) texts() (content, thinking string) {
	var text, think strings.Builder
	for _, block := range r.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "thinking":
			think.WriteString(block.Thinking)
		}
	}
	return text.String(), think.String()
}

type streamDelta struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

type streamEvent struct {
	Type    string       `json:"type"`
	Delta   *streamDelta `json:"delta,omitempty"`
	Usage   *usage       `json:"usage,omitempty"`
	Message *struct {
		Usage usage `json:"usage"`
	} `json:"message,omitempty"`
}

// decodeStream turns the SSE body into the uniform event stream the
// monitor consumes: message_start carries input tokens, content block
// deltas carry text or thinking, message_delta carries cumulative
// output tokens, and message_stop marks clean completion. The API does
// not resend a consolidated final message, so Done events carry none.
func decodeStream(ctx context.Context, body io.ReadCloser, items chan<- backend.StreamItem) {
	defer close(items)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), scannerBufferBytes)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			// Unknown or malformed events are skipped, not fatal.
			continue
		}

		switch event.Type {
		case "message_start":
			if event.Message != nil && event.Message.Usage.InputTokens > 0 {
				if !backend.Emit(ctx, items, backend.StreamItem{Event: backend.StreamEvent{
					Kind:  backend.EventUsage,
					Usage: backend.UsageDelta{InputTokens: event.Message.Usage.InputTokens},
				}}) {
					return
				}
			}

		case "content_block_delta":
			if event.Delta == nil {
				continue
			}
			switch event.Delta.Type {
			case "text_delta":
				if !backend.Emit(ctx, items, backend.StreamItem{Event: backend.StreamEvent{
					Kind: backend.EventText,
					Text: event.Delta.Text,
				}}) {
					return
				}
			case "thinking_delta":
				if !backend.Emit(ctx, items, backend.StreamItem{Event: backend.StreamEvent{
					Kind: backend.EventThinking,
					Text: event.Delta.Thinking,
				}}) {
					return
				}
			}

		case "message_delta":
			if event.Usage != nil && event.Usage.OutputTokens > 0 {
				if !backend.Emit(ctx, items, backend.StreamItem{Event: backend.StreamEvent{
					Kind:  backend.EventUsage,
					Usage: backend.UsageDelta{OutputTokens: event.Usage.OutputTokens},
				}}) {
					return
				}
			}

		case "message_stop":
			backend.Emit(ctx, items, backend.StreamItem{Event: backend.StreamEvent{
				Kind: backend.EventDone,
			}})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		backend.Emit(ctx, items, backend.StreamItem{
			Err: fmt.Errorf("anthropic stream read failed: %w", err),
		})
	}
	// Reaching here without message_stop means the stream was cut; the
	// closed channel tells the monitor the stream ended early.
}
