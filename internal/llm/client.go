package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Completer отправляет промпт модели и возвращает текст ответа.
// Ошибки: ErrRateLimited, ErrMalformedResponse или *RequestError.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// GeminiClient работает с Gemini API через официальный SDK.
// Делает ровно один запрос на вызов: повторы выполняет RetryPolicy.
type GeminiClient struct {
	client *genai.Client
}

var _ Completer = (*GeminiClient)(nil)

// NewGeminiClient создаёт клиент. Ключ передаётся явно из конфигурации окружения.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Complete реализует Completer.
func (c *GeminiClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyByText(err)
	}

	text, err := result.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty text from %s", ErrMalformedResponse, model)
	}
	return text, nil
}
