package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmoraru/taxidesk/common/redact"
	"github.com/dmoraru/taxidesk/common/retry"
)

const (
	defaultModelBase    = "https://api.openai.com/v1"
	defaultModelName    = "gpt-4o-mini"
	defaultModelTimeout = 30 * time.Second
)

// ModelConfig configures the OpenAI-compatible Generator.
type ModelConfig struct {
	// APIKey is the bearer token used to authenticate against the API.
	APIKey string

	// BaseURL overrides the API endpoint. Useful for local models or any
	// other OpenAI-compatible endpoint. Defaults to the OpenAI API.
	BaseURL string

	// Model is the chat model to use. Defaults to gpt-4o-mini, which is
	// sufficient for routing and rewriting.
	Model string

	// Timeout is the HTTP request timeout. Defaults to 30 s.
	Timeout time.Duration
}

// modelClient implements Generator over the OpenAI chat completions API.
type modelClient struct {
	cfg    ModelConfig
	client *http.Client
}

// NewModelClient returns a Generator backed by an OpenAI-compatible chat
// API. The returned client is safe for concurrent use.
func NewModelClient(cfg ModelConfig) Generator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultModelBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultModelName
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultModelTimeout
	}
	return &modelClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- minimal OpenAI wire types ---

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	ResponseFormat *oaiFormat `json:"response_format,omitempty"`
}

type oaiFormat struct {
	Type string `json:"type"` // "json_object"
}

type oaiResponse struct {
	Choices []oaiChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type oaiChoice struct {
	Message      oaiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

// Generate sends the prompt as a single user message and returns the raw
// completion text. Transient transport failures are retried with backoff;
// API-level errors are not.
func (c *modelClient) Generate(ctx context.Context, prompt string) (string, error) {
	body := oaiRequest{
		Model: c.cfg.Model,
		Messages: []oaiMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		MaxTokens:      512,
		ResponseFormat: &oaiFormat{Type: "json_object"},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("router: marshal request: %w", err)
	}

	var content string
	apiErr := false
	err = retry.Do(ctx, retry.Config{
		MaxAttempts:  2,
		InitialDelay: 300 * time.Millisecond,
		ShouldRetry:  func(error) bool { return !apiErr },
	}, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.BaseURL+"/chat/completions", bytes.NewReader(data))
		if err != nil {
			apiErr = true
			return fmt.Errorf("router: create http request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("router: http request: %s",
				redact.String(err.Error(), c.cfg.APIKey))
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("router: read response body: %w", err)
		}

		var oaiResp oaiResponse
		if err := json.Unmarshal(respBody, &oaiResp); err != nil {
			return fmt.Errorf("router: decode API response: %w", err)
		}
		if oaiResp.Error != nil {
			apiErr = true
			return fmt.Errorf("router: API error (%s): %s", oaiResp.Error.Type, oaiResp.Error.Message)
		}
		if len(oaiResp.Choices) == 0 {
			apiErr = true
			return fmt.Errorf("router: no choices returned (HTTP %d)", resp.StatusCode)
		}
		content = oaiResp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}
