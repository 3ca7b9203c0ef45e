package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yauhenio2025/modelcall/internal/backend"
	"github.com/yauhenio2025/modelcall/internal/domain"
)

func testLimits() backend.Limits {
	limits := backend.DefaultLimits()
	limits.StallTimeout = 200 * time.Millisecond
	limits.HeartbeatInterval = 50 * time.Millisecond
	limits.SalvageMinChars = 10
	limits.CallTimeout = 5 * time.Second
	return limits
}

func newTestDriver(t *testing.T, serverURL, modelID string) *Driver {
	t.Helper()

	driver, err := NewDriver(Config{
		APIKey:  "test-key",
		BaseURL: serverURL,
	}, modelID, testLimits(), nil)
	require.NoError(t, err)

	return driver
}

const syncCompletion = `{
	"id": "chatcmpl-test",
	"object": "chat.completion",
	"model": "gpt-5.2",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 80, "completion_tokens": 20, "completion_tokens_details": {"reasoning_tokens": 6}}
}`

func streamChunk(content string) string {
	return fmt.Sprintf(`{"id":"chatcmpl-test","object":"chat.completion.chunk","model":"gpt-5.2","choices":[{"index":0,"delta":{"content":%q}}]}`, content)
}

const usageChunk = `{"id":"chatcmpl-test","object":"chat.completion.chunk","model":"gpt-5.2","choices":[],"usage":{"prompt_tokens":80,"completion_tokens":25,"completion_tokens_details":{"reasoning_tokens":5}}}`

func writeSSE(t *testing.T, w http.ResponseWriter, chunks ...string) {
	t.Helper()

	flusher, ok := w.(http.Flusher)
	require.True(t, ok)

	w.Header().Set("Content-Type", "text/event-stream")
	for _, chunk := range chunks {
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		flusher.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func TestNewDriver(t *testing.T) {
	t.Run("should require an API key", func(t *testing.T) {
		_, err := NewDriver(Config{}, "gpt-5.2", testLimits(), nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "API key")
	})

	t.Run("should mark reasoning families as thinking-capable", func(t *testing.T) {
		for _, modelID := range []string{"o1-pro", "o3", "o4-mini", "gpt-5.2"} {
			driver, err := NewDriver(Config{APIKey: "k"}, modelID, testLimits(), nil)
			require.NoError(t, err)
			require.True(t, driver.Capabilities().SupportsThinking, modelID)
		}

		driver, err := NewDriver(Config{APIKey: "k"}, "gpt-4.1", testLimits(), nil)
		require.NoError(t, err)
		require.False(t, driver.Capabilities().SupportsThinking)
	})
}

func TestDriver_ExecuteSync(t *testing.T) {
	t.Run("should return content and reported usage", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, syncCompletion, "the sync answer")
		}))
		defer server.Close()

		driver := newTestDriver(t, server.URL, "gpt-5.2")
		result, err := driver.ExecuteSync(context.Background(), &domain.CallRequest{
			SystemPrompt: "be brief",
			UserMessage:  "what is the answer",
			MaxTokens:    2_000,
			Thinking:     domain.ThinkingLow,
		})
		require.NoError(t, err)

		require.Equal(t, "the sync answer", result.Content)
		require.Equal(t, "gpt-5.2", result.ModelID)
		require.Equal(t, 80, result.InputTokens)
		require.Equal(t, 20, result.OutputTokens)
		require.Equal(t, 6, result.ThinkingTokens)
		require.False(t, result.Partial)
	})

	t.Run("should treat an empty completion as an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, syncCompletion, "")
		}))
		defer server.Close()

		driver := newTestDriver(t, server.URL, "gpt-5.2")
		result, err := driver.ExecuteSync(context.Background(), &domain.CallRequest{
			UserMessage: "hi",
			MaxTokens:   1_000,
		})
		require.Nil(t, result)
		require.ErrorIs(t, err, domain.ErrEmptyCompletion)
	})

	t.Run("should reject an over-budget request before calling the API", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			t.Error("request should not reach the server")
		}))
		defer server.Close()

		driver := newTestDriver(t, server.URL, "gpt-5.2")
		_, err := driver.ExecuteSync(context.Background(), &domain.CallRequest{
			UserMessage: "hi",
			MaxTokens:   maxOutputTokens + 1,
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "output ceiling")
	})
}

func TestDriver_ExecuteStreaming(t *testing.T) {
	t.Run("should accumulate deltas and trailing usage", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeSSE(t, w,
				streamChunk("streamed "),
				streamChunk("answer"),
				usageChunk,
			)
		}))
		defer server.Close()

		driver := newTestDriver(t, server.URL, "gpt-5.2")
		result, err := driver.ExecuteStreaming(context.Background(), &domain.CallRequest{
			UserMessage: "go",
			MaxTokens:   2_000,
		}, nil)
		require.NoError(t, err)

		require.Equal(t, "streamed answer", result.Content)
		require.Equal(t, 80, result.InputTokens)
		require.Equal(t, 25, result.OutputTokens)
		require.Equal(t, 5, result.ThinkingTokens)
		require.False(t, result.Partial)
	})

	t.Run("should salvage accumulated output when the stream stalls", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			flusher := w.(http.Flusher)
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprintf(w, "data: %s\n\n", streamChunk("a partial answer long enough to keep"))
			flusher.Flush()
			<-r.Context().Done()
		}))
		defer server.Close()

		driver := newTestDriver(t, server.URL, "gpt-5.2")
		result, err := driver.ExecuteStreaming(context.Background(), &domain.CallRequest{
			UserMessage: "go",
			MaxTokens:   2_000,
		}, nil)
		require.NoError(t, err)

		require.True(t, result.Partial)
		require.Equal(t, "a partial answer long enough to keep", result.Content)
		require.Contains(t, result.ConnectionError, "stream stalled")
	})

	t.Run("should stop on the cancellation predicate", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeSSE(t, w,
				streamChunk("a long chunk that would otherwise be salvageable"),
				streamChunk("more"),
			)
		}))
		defer server.Close()

		driver := newTestDriver(t, server.URL, "gpt-5.2")
		result, err := driver.ExecuteStreaming(context.Background(), &domain.CallRequest{
			UserMessage: "go",
			MaxTokens:   2_000,
		}, func() bool { return true })
		require.Nil(t, result)
		require.ErrorIs(t, err, domain.ErrCallCancelled)
	})
}
