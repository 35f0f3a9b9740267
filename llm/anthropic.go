package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/lexcodex/weblurp/pipeline"
)

const anthropicVersion = "2023-06-01"

// AnthropicClient implements pipeline.Collaborator against the Messages API.
type AnthropicClient struct {
	Endpoint string
	Model    string
	Debug    bool

	apiKey string
	client *http.Client
}

func NewAnthropic(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		Endpoint: "https://api.anthropic.com",
		Model:    model,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends the conversation and returns the first content block. The
// system prompt travels as a top-level field, not as a message.
func (c *AnthropicClient) Complete(ctx context.Context, system string, turns []pipeline.Turn) (string, error) {
	payload := map[string]interface{}{
		"model":      c.Model,
		"max_tokens": maxReplyTokens,
		"messages":   turns,
	}
	if system != "" {
		payload["system"] = system
	}
	body, err := c.doRequest(ctx, payload)
	if err != nil {
		return "", err
	}
	var decoded anthropicResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	if len(decoded.Content) == 0 {
		// Unexpected shape; hand the raw body back so the caller's parsing
		// has something to chew on.
		return string(body), nil
	}
	return decoded.Content[0].Text, nil
}

func (c *AnthropicClient) doRequest(ctx context.Context, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	c.logPayload(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(msg))
		if detail != "" {
			return nil, fmt.Errorf("anthropic error: %s: %s", resp.Status, detail)
		}
		return nil, fmt.Errorf("anthropic error: %s", resp.Status)
	}
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logResponse(responseBody)
	return responseBody, nil
}

func (c *AnthropicClient) logPayload(payload []byte) {
	if !c.Debug {
		return
	}
	log.Printf("[anthropic] request payload: %s", truncate(string(payload), 2048))
}

func (c *AnthropicClient) logResponse(resp []byte) {
	if !c.Debug {
		return
	}
	log.Printf("[anthropic] response payload: %s", truncate(string(resp), 2048))
}
