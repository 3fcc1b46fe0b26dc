package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRateLimited - провайдер ответил 429 / resource exhausted. Повторяется с паузой.
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrMalformedResponse - ответ пришёл, но текста в нём нет.
	ErrMalformedResponse = errors.New("llm: malformed response")
)

// RequestError описывает неуспешный запрос к провайдеру.
// Retriable == true для временных сбоев (5xx, таймауты), false для 4xx и исчерпанной квоты.
type RequestError struct {
	Status    int
	Retriable bool
	Err       error
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("llm request failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("llm request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsRetriable сообщает, имеет ли смысл повторить запрос.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrMalformedResponse) {
		return true
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Retriable
	}
	return false
}

// classifyByText раскладывает ошибку SDK по типам, ориентируясь на текст ошибки:
// SDK не даёт стабильного типизированного кода для всех случаев.
func classifyByText(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RequestError{Retriable: true, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	errStr := err.Error()
	switch {
	case isDailyQuotaError(errStr):
		// Дневной лимит до завтра не восстановится
		return &RequestError{Status: 429, Retriable: false, Err: err}
	case isRateLimitError(errStr):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case isServiceUnavailableError(errStr):
		return &RequestError{Status: 503, Retriable: true, Err: err}
	case isTemporaryError(errStr):
		return &RequestError{Retriable: true, Err: err}
	case isQuotaExceededError(errStr):
		return &RequestError{Status: 403, Retriable: false, Err: err}
	default:
		return &RequestError{Retriable: false, Err: err}
	}
}

// isDailyQuotaError - 429 с признаками дневного лимита бесплатного тарифа.
func isDailyQuotaError(errStr string) bool {
	errLower := strings.ToLower(errStr)
	if !strings.Contains(errLower, "429") {
		return false
	}
	return strings.Contains(errLower, "generate_content_free_tier_requests") ||
		strings.Contains(errLower, "per day")
}

func isRateLimitError(errStr string) bool {
	errLower := strings.ToLower(errStr)
	return strings.Contains(errLower, "rate limit") ||
		strings.Contains(errLower, "429") ||
		strings.Contains(errLower, "too many requests") ||
		strings.Contains(errLower, "resource exhausted") ||
		strings.Contains(errLower, "resource_exhausted")
}

func isServiceUnavailableError(errStr string) bool {
	errLower := strings.ToLower(errStr)
	return strings.Contains(errLower, "503") ||
		strings.Contains(errLower, "service unavailable") ||
		strings.Contains(errLower, "overloaded")
}

func isTemporaryError(errStr string) bool {
	errLower := strings.ToLower(errStr)
	return strings.Contains(errLower, "500") ||
		strings.Contains(errLower, "502") ||
		strings.Contains(errLower, "504") ||
		strings.Contains(errLower, "internal server error") ||
		strings.Contains(errLower, "bad gateway") ||
		strings.Contains(errLower, "gateway timeout") ||
		strings.Contains(errLower, "timeout")
}

func isQuotaExceededError(errStr string) bool {
	errLower := strings.ToLower(errStr)
	return strings.Contains(errLower, "quota") ||
		strings.Contains(errLower, "daily limit") ||
		strings.Contains(errLower, "403")
}
