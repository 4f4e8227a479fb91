// OpenAI-compatible chat provider client.
//
// The client performs exactly one HTTP request per Complete call; the retry
// policy lives in the Translator, driven by the error classification
// exposed here. Errors fall into three classes:
//
//   - ErrRateLimited — HTTP 429
//   - ErrTransient   — network failures, timeouts, HTTP 5xx
//   - anything else is fatal (bad credentials, malformed request) and is
//     never retried
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRateLimited marks provider throttling (retry with exponential backoff).
var ErrRateLimited = errors.New("provider rate limited")

// ErrTransient marks recoverable network/server failures (retry with
// linear backoff).
var ErrTransient = errors.New("transient provider error")

// Provider is the minimal surface the translator needs from an AI backend.
type Provider interface {
	// Complete sends a system instruction plus user message and returns
	// the raw response text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OpenAIProvider talks to an OpenAI-compatible chat/completions endpoint.
type OpenAIProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIProvider builds a provider client. baseURL is the API base
// (e.g. https://api.openai.com/v1); timeout bounds each request.
func NewOpenAIProvider(baseURL, apiKey, model string, timeout time.Duration) *OpenAIProvider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func buildChatRequest(model, systemPrompt, userPrompt string) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   4000,
		Temperature: 0.3,
	}
	return json.Marshal(req)
}

// extractChatText pulls choices[0].message.content out of a chat response.
func extractChatText(body []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from API")
	}
	return resp.Choices[0].Message.Content, nil
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := buildChatRequest(p.model, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrTransient, err)
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return extractChatText(respBody)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: %s", ErrRateLimited, truncate(string(respBody), 200))
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: status %d: %s", ErrTransient, resp.StatusCode, truncate(string(respBody), 200))
	default:
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
