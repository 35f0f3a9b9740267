package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/weblurp/pipeline"
)

func TestOpenAICompletePutsSystemFirst(t *testing.T) {
	client := NewOpenAI("sekret", "gpt-4o")
	client.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			assert.Equal(t, "/v1/chat/completions", req.URL.Path)
			assert.Equal(t, "Bearer sekret", req.Header.Get("Authorization"))

			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			assert.Equal(t, 0.7, payload["temperature"])
			assert.Equal(t, float64(maxReplyTokens), payload["max_completion_tokens"])
			_, hasLegacy := payload["max_tokens"]
			assert.False(t, hasLegacy)

			msgs := payload["messages"].([]interface{})
			require.Len(t, msgs, 3)
			assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
			assert.Equal(t, "assistant", msgs[1].(map[string]interface{})["role"])
			assert.Equal(t, "user", msgs[2].(map[string]interface{})["role"])

			return jsonResponse(200, `{"choices": [{"message": {"role": "assistant", "content": "sure"}}]}`)
		}),
	}

	reply, err := client.Complete(context.Background(), "be terse", []pipeline.Turn{
		{Role: pipeline.RoleAssistant, Content: "earlier reply"},
		{Role: pipeline.RoleUser, Content: "next question"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "sure", reply)
}

func TestOpenAILegacyModelUsesMaxTokens(t *testing.T) {
	client := NewOpenAI("sekret", "gpt-3.5-turbo")
	client.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			assert.Equal(t, float64(maxReplyTokens), payload["max_tokens"])
			_, hasNew := payload["max_completion_tokens"]
			assert.False(t, hasNew)
			return jsonResponse(200, `{"choices": [{"message": {"content": "ok"}}]}`)
		}),
	}

	_, err := client.Complete(context.Background(), "", []pipeline.Turn{{Role: pipeline.RoleUser, Content: "hi"}})
	assert.NoError(t, err)
}

func TestTokenField(t *testing.T) {
	assert.Equal(t, "max_completion_tokens", tokenField("gpt-4o"))
	assert.Equal(t, "max_completion_tokens", tokenField("GPT-4.1-mini"))
	assert.Equal(t, "max_completion_tokens", tokenField("o3-mini"))
	assert.Equal(t, "max_tokens", tokenField("gpt-3.5-turbo"))
	assert.Equal(t, "max_tokens", tokenField(""))
}

func TestOpenAISurfacesAPIError(t *testing.T) {
	client := NewOpenAI("sekret", "gpt-4o")
	client.client = &http.Client{
		Transport: roundTripFunc(func(*http.Request) *http.Response {
			return jsonResponse(401, `{"error": {"message": "bad key"}}`)
		}),
	}

	_, err := client.Complete(context.Background(), "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai error")
	assert.Contains(t, err.Error(), "bad key")
}

func TestNewPicksProvider(t *testing.T) {
	_, ok := New("openai", "k", "m").(*OpenAIClient)
	assert.True(t, ok)
	_, ok = New("anthropic", "k", "m").(*AnthropicClient)
	assert.True(t, ok)
	// Unknown providers fall back to anthropic.
	_, ok = New("mystery", "k", "m").(*AnthropicClient)
	assert.True(t, ok)
}
