package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// chatServer answers chat completion requests with replies in order,
// repeating the last one once they run out.
func chatServer(t *testing.T, replies ...string) (*httptest.Server, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		reply := replies[len(replies)-1]
		if n <= len(replies) {
			reply = replies[n-1]
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenAICompleteRetriesBlankContent(t *testing.T) {
	srv, calls := chatServer(t, "", "  \n", "The ordinance sets a 2% rate.")

	llm := NewOpenAILLM(LLMConfig{APIKey: "test", BaseURL: srv.URL, MaxRetries: 3})
	text, err := llm.Complete(context.Background(), "Summarize:")

	require.NoError(t, err)
	require.Equal(t, "The ordinance sets a 2% rate.", text)
	require.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestOpenAICompleteFailsWhenEveryReplyIsBlank(t *testing.T) {
	srv, calls := chatServer(t, "")

	llm := NewOpenAILLM(LLMConfig{APIKey: "test", BaseURL: srv.URL, MaxRetries: 2})
	_, err := llm.Complete(context.Background(), "Summarize:")

	require.ErrorContains(t, err, "empty response content")
	require.Equal(t, int32(2), atomic.LoadInt32(calls))
}
