package llm

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

// OpenRouterClient вызывает chat completions API, совместимый с OpenAI.
type OpenRouterClient struct {
	baseURL string
	apiKey  string
	referer string
	client  *http.Client
}

var _ Completer = (*OpenRouterClient)(nil)

// NewOpenRouterClient создаёт клиент. client == nil - клиент с таймаутом timeout.
func NewOpenRouterClient(baseURL, apiKey string, timeout time.Duration, client *http.Client) *OpenRouterClient {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &OpenRouterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		referer: "https://github.com/",
		client:  client,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete реализует Completer.
func (c *OpenRouterClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		// Сетевые сбои и таймауты считаем временными
		return "", &RequestError{Retriable: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RequestError{Status: resp.StatusCode, Retriable: true, Err: fmt.Errorf("read body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: %s", ErrRateLimited, truncate(string(body), 200))
	case resp.StatusCode >= 500:
		return "", &RequestError{Status: resp.StatusCode, Retriable: true, Err: errors.New(truncate(string(body), 200))}
	case resp.StatusCode >= 300:
		return "", &RequestError{Status: resp.StatusCode, Retriable: false, Err: errors.New(truncate(string(body), 200))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}
	return text, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
