package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/germanamz/aichatbot/pkg/modeladapter"
	"github.com/germanamz/aichatbot/pkg/providers/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, auth modeladapter.Auth, handler http.HandlerFunc) *openai.Adapter {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return openai.New(srv.URL+"/v1/chat/completions", auth, "gpt-4o-mini", 0.7)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}

	return req
}

func TestComplete_SimpleText(t *testing.T) {
	adapter := newTestServer(t, modeladapter.SelectAuth("", "sk-test"), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("X-API-TOKEN"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		req := readBody(t, r)

		assert.Equal(t, "gpt-4o-mini", req["model"])
		assert.InDelta(t, 0.7, req["temperature"], 1e-9)

		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 2)

		first, _ := msgs[0].(map[string]any)
		assert.Equal(t, "system", first["role"])
		assert.Equal(t, "You help Steve.", first["content"])

		second, _ := msgs[1].(map[string]any)
		assert.Equal(t, "user", second["role"])
		assert.Equal(t, "hello \"world\"\n", second["content"])

		writeJSON(t, w, map[string]any{
			"choices": []map[string]any{
				{
					"message":       map[string]any{"role": "assistant", "content": "Hi!\nBye"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
		})
	})

	got, err := adapter.Complete(context.Background(), modeladapter.Request{
		Player:       "Steve",
		Prompt:       "hello \"world\"\n",
		SystemPrompt: "You help Steve.",
	})

	require.NoError(t, err)
	assert.Equal(t, "Hi!\nBye", got)
	assert.Equal(t, modeladapter.TokenCount{InputTokens: 10, OutputTokens: 5}, adapter.UsageTracker().Total())
}

func TestComplete_ZeroTemperatureIsSent(t *testing.T) {
	adapter := newTestServer(t, modeladapter.Auth{}, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)

		temp, ok := req["temperature"]
		assert.True(t, ok)
		assert.InDelta(t, 0.0, temp, 1e-9)

		writeJSON(t, w, map[string]any{"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}}})
	})
	adapter.Temperature = 0

	got, err := adapter.Complete(context.Background(), modeladapter.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestComplete_CustomTokenHeader(t *testing.T) {
	adapter := newTestServer(t, modeladapter.SelectAuth("tok", "sk-test"), func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-API-TOKEN"))
		assert.Empty(t, r.Header.Get("Authorization"))

		writeJSON(t, w, map[string]any{"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}}})
	})

	_, err := adapter.Complete(context.Background(), modeladapter.Request{})
	require.NoError(t, err)
}

func TestComplete_FallbackExtraction(t *testing.T) {
	adapter := newTestServer(t, modeladapter.Auth{}, func(w http.ResponseWriter, _ *http.Request) {
		// choices is not an array; the typed decode fails.
		_, _ = w.Write([]byte(`{"choices": {"message": {"content": "from \"fallback\""}}}`))
	})

	got, err := adapter.Complete(context.Background(), modeladapter.Request{})
	require.NoError(t, err)
	assert.Equal(t, `from "fallback"`, got)
	assert.Equal(t, 0, adapter.UsageTracker().Calls())
}

func TestComplete_NoContentReturnsRawBody(t *testing.T) {
	adapter := newTestServer(t, modeladapter.Auth{}, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{\n  \"choices\": []\n}"))
	})

	got, err := adapter.Complete(context.Background(), modeladapter.Request{})
	require.NoError(t, err)
	assert.Equal(t, `{"choices": []}`, got)
}

func TestComplete_StatusError(t *testing.T) {
	adapter := newTestServer(t, modeladapter.Auth{}, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	_, err := adapter.Complete(context.Background(), modeladapter.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai:")

	var se *modeladapter.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Contains(t, se.Body, "bad key")
}

func TestNew_Defaults(t *testing.T) {
	a := openai.New("http://x", modeladapter.Auth{}, "m", 0.2)

	assert.Equal(t, openai.DefaultReadTimeout, a.ReadTimeout)
	assert.Equal(t, modeladapter.DefaultConnectTimeout, a.ConnectTimeout)
	assert.Equal(t, "m", a.Name)
}
