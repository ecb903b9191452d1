package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClassifierComplete(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"isSpam\": false}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	c, err := NewOpenAIClassifier(&Config{APIKey: "test-key", BaseURL: server.URL, Retry: fastRetryConfig()})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "quality_check", "classify this")
	require.NoError(t, err)
	assert.Equal(t, `{"isSpam": false}`, out)
	assert.Equal(t, ModelOpenAIDefault, gotBody["model"])
	format, _ := gotBody["response_format"].(map[string]any)
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenAIClassifierPermanentError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	c, err := NewOpenAIClassifier(&Config{APIKey: "nope", BaseURL: server.URL, Retry: fastRetryConfig()})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "quality_check", "classify this")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestSupervisorComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-20241022",
			"content": [{"type": "text", "text": "{\"isDuplicate\": "}, {"type": "text", "text": "true}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 4}
		}`))
	}))
	defer server.Close()

	s, err := NewSupervisor(&Config{APIKey: "test-key", BaseURL: server.URL, Retry: fastRetryConfig()})
	require.NoError(t, err)
	assert.Equal(t, ModelHaiku, s.Model())

	out, err := s.Complete(context.Background(), "duplicate_check", "compare these")
	require.NoError(t, err)
	assert.Equal(t, `{"isDuplicate": true}`, out)
	assert.NoError(t, s.HealthCheck(context.Background()))
}

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier(&Config{Provider: ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClassifier{}, c)

	c, err = NewClassifier(&Config{APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Supervisor{}, c)

	_, err = NewClassifier(&Config{Provider: "llama", APIKey: "k"})
	assert.Error(t, err)
}

func TestNewSupervisorRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewSupervisor(&Config{})
	assert.Error(t, err)
}

func TestDefaultModel(t *testing.T) {
	t.Setenv("REPOLENS_CLASSIFIER_MODEL", "")
	assert.Equal(t, ModelHaiku, DefaultModel(ProviderAnthropic))
	assert.Equal(t, ModelOpenAIDefault, DefaultModel(ProviderOpenAI))

	t.Setenv("REPOLENS_CLASSIFIER_MODEL", "custom")
	assert.Equal(t, "custom", DefaultModel(ProviderOpenAI))
}
