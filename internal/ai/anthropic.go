package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// HumanTurn and AssistantTurn delimit turns in a text completion prompt.
	HumanTurn     = "\n\nHuman:"
	AssistantTurn = "\n\nAssistant:"

	anthropicVersion = "2023-06-01"
)

// AnthropicClient calls Anthropic's text completion endpoint: a single prompt,
// a model id, a token cap and stop sequences in; one completion out.
type AnthropicClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	retry      retryPolicy
}

type anthropicCompleteRequest struct {
	Model             string   `json:"model"`
	Prompt            string   `json:"prompt"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	StopSequences     []string `json:"stop_sequences,omitempty"`
	Temperature       float64  `json:"temperature,omitempty"`
}

type anthropicCompleteResponse struct {
	ID         string `json:"id"`
	Completion string `json:"completion"`
	StopReason string `json:"stop_reason"`
	Model      string `json:"model"`
}

// NewAnthropicClient creates a client for https://api.anthropic.com.
func NewAnthropicClient(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *AnthropicClient {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: httpTimeout},
		apiKey:     apiKey,
		baseURL:    "https://api.anthropic.com",
		retry:      newRetryPolicy(retryMax, baseDelay, maxDelay),
	}
}

// NewAnthropicClientWithBaseURL allows injecting a custom base URL (used in tests).
func NewAnthropicClientWithBaseURL(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, baseURL string) *AnthropicClient {
	c := NewAnthropicClient(apiKey, httpTimeout, retryMax, baseDelay, maxDelay)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// Generate sends req.Prompt verbatim, or a prompt rendered from req.Messages.
func (c *AnthropicClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, errors.New("Anthropic API key is missing")
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = RenderPrompt(req.Messages)
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt cannot be empty")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}
	payload, err := json.Marshal(anthropicCompleteRequest{
		Model:             req.Model,
		Prompt:            prompt,
		MaxTokensToSample: maxTokens,
		StopSequences:     req.Stop,
		Temperature:       req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/v1/complete"

	var out GenerateResponse
	err = send(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	}, func(resp *http.Response) error {
		var ar anthropicCompleteResponse
		if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		out.ID = ar.ID
		out.Choices = []Choice{{Message: Message{Role: "assistant", Content: strings.TrimSpace(ar.Completion)}}}
		out.RequestID = extractRequestID(resp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RenderPrompt lays chat messages out as Human/Assistant turns ending with an
// open Assistant turn.
func RenderPrompt(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case "assistant":
			b.WriteString(AssistantTurn)
		default:
			b.WriteString(HumanTurn)
		}
		b.WriteString(" ")
		b.WriteString(m.Content)
	}
	if b.Len() == 0 {
		return ""
	}
	b.WriteString(AssistantTurn)
	return b.String()
}
