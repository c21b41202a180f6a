package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/0xjasper/relaybot/internal/session"
)

// completionResponse is the minimal wire shape the SDK needs back.
const completionResponse = `{
	"id": "chatcmpl-test",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o-mini",
	"choices": [
		{
			"index": 0,
			"message": {"role": "assistant", "content": "Hello there!"},
			"finish_reason": "stop"
		}
	]
}`

// newTestClient points a client at an httptest server.
func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		APIKey:              "test-key",
		Model:               "gpt-4o-mini",
		MaxCompletionTokens: 300,
		Temperature:         0.5,
		RequestTimeout:      timeout,
		BaseURL:             srv.URL,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return client
}

func userTurn(text string) session.Turn {
	return session.Turn{Role: session.RoleUser, Text: text}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Config{Model: "m"}); err == nil {
		t.Error("New() without API key should fail")
	}
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Error("New() without model should fail")
	}
}

func TestCompleteSuccess(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse))
	}, 5*time.Second)

	reply, err := client.Complete(context.Background(), []session.Turn{
		userTurn("hi"),
		{Role: session.RoleAssistant, Text: "hello"},
		userTurn("how are you?"),
	}, "You are a helpful assistant.")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if reply != "Hello there!" {
		t.Errorf("reply = %q, want %q", reply, "Hello there!")
	}

	// The outgoing payload carries the system prompt plus ordered turns.
	msgs, ok := gotBody["messages"].([]any)
	if !ok || len(msgs) != 4 {
		t.Fatalf("request messages = %v, want 4 entries", gotBody["messages"])
	}
	wantRoles := []string{"system", "user", "assistant", "user"}
	for i, want := range wantRoles {
		m := msgs[i].(map[string]any)
		if m["role"] != want {
			t.Errorf("messages[%d].role = %v, want %q", i, m["role"], want)
		}
	}
	if gotBody["max_tokens"] != float64(300) {
		t.Errorf("max_tokens = %v, want 300", gotBody["max_tokens"])
	}
	if gotBody["temperature"] != 0.5 {
		t.Errorf("temperature = %v, want 0.5", gotBody["temperature"])
	}
}

func TestCompleteRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded", "type": "rate_limit_error"}}`))
	}, 5*time.Second)

	_, err := client.Complete(context.Background(), []session.Turn{userTurn("hi")}, "")
	if kind, ok := KindOf(err); !ok || kind != KindRateLimited {
		t.Errorf("KindOf(%v) = %v, %v; want KindRateLimited", err, kind, ok)
	}
}

func TestCompleteTransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, 5*time.Second)

	_, err := client.Complete(context.Background(), []session.Turn{userTurn("hi")}, "")
	if kind, ok := KindOf(err); !ok || kind != KindTransport {
		t.Errorf("KindOf(%v) = %v, %v; want KindTransport", err, kind, ok)
	}
}

func TestCompleteTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse))
	}, 50*time.Millisecond)

	_, err := client.Complete(context.Background(), []session.Turn{userTurn("hi")}, "")
	if kind, ok := KindOf(err); !ok || kind != KindTimeout {
		t.Errorf("KindOf(%v) = %v, %v; want KindTimeout", err, kind, ok)
	}
}

func TestCompleteNoChoicesIsInvalidResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	}, 5*time.Second)

	_, err := client.Complete(context.Background(), []session.Turn{userTurn("hi")}, "")
	if kind, ok := KindOf(err); !ok || kind != KindInvalidResponse {
		t.Errorf("KindOf(%v) = %v, %v; want KindInvalidResponse", err, kind, ok)
	}
}

func TestCompleteEmptyContentIsInvalidResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "x", "object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "   "}, "finish_reason": "stop"}]
		}`))
	}, 5*time.Second)

	_, err := client.Complete(context.Background(), []session.Turn{userTurn("hi")}, "")
	if kind, ok := KindOf(err); !ok || kind != KindInvalidResponse {
		t.Errorf("KindOf(%v) = %v, %v; want KindInvalidResponse", err, kind, ok)
	}
}

func TestCompleteOmitsSystemMessageWhenEmpty(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse))
	}, 5*time.Second)

	if _, err := client.Complete(context.Background(), []session.Turn{userTurn("hi")}, ""); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	msgs := gotBody["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v, want a single user entry", msgs)
	}
	if role := msgs[0].(map[string]any)["role"]; role != "user" {
		t.Errorf("messages[0].role = %v, want user", role)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindTimeout, "timeout"},
		{KindRateLimited, "rate limited"},
		{KindInvalidResponse, "invalid response"},
		{KindTransport, "transport error"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestKindOfForeignError(t *testing.T) {
	if _, ok := KindOf(context.Canceled); ok {
		t.Error("KindOf() should report false for non-upstream errors")
	}
}
