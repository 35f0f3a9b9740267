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

// OpenAIClient implements pipeline.Collaborator against chat completions.
type OpenAIClient struct {
	Endpoint string
	Model    string
	Debug    bool

	apiKey string
	client *http.Client
}

func NewOpenAI(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		Endpoint: "https://api.openai.com",
		Model:    model,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

// completionTokenModels are the model families that reject max_tokens and
// want max_completion_tokens instead.
var completionTokenModels = []string{"gpt-4o", "gpt-4.1", "gpt-4.5", "o1", "o3"}

func tokenField(model string) string {
	lower := strings.ToLower(model)
	for _, m := range completionTokenModels {
		if strings.Contains(lower, m) {
			return "max_completion_tokens"
		}
	}
	return "max_tokens"
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation with the system prompt as the leading
// message and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, system string, turns []pipeline.Turn) (string, error) {
	messages := make([]map[string]string, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	for _, t := range turns {
		messages = append(messages, map[string]string{"role": string(t.Role), "content": t.Content})
	}
	payload := map[string]interface{}{
		"model":       c.Model,
		"messages":    messages,
		"temperature": 0.7,
	}
	payload[tokenField(c.Model)] = maxReplyTokens
	body, err := c.doRequest(ctx, payload)
	if err != nil {
		return "", err
	}
	var decoded openAIResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return string(body), nil
	}
	return decoded.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) doRequest(ctx context.Context, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	c.logPayload(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
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
			return nil, fmt.Errorf("openai error: %s: %s", resp.Status, detail)
		}
		return nil, fmt.Errorf("openai error: %s", resp.Status)
	}
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logResponse(responseBody)
	return responseBody, nil
}

func (c *OpenAIClient) logPayload(payload []byte) {
	if !c.Debug {
		return
	}
	log.Printf("[openai] request payload: %s", truncate(string(payload), 2048))
}

func (c *OpenAIClient) logResponse(resp []byte) {
	if !c.Debug {
		return
	}
	log.Printf("[openai] response payload: %s", truncate(string(resp), 2048))
}
