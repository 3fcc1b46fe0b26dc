package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SleepFunc приостанавливает выполнение на d или до отмены контекста.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy повторяет временные сбои с линейно растущей паузой attempt*BaseDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       SleepFunc // nil - обычный таймер
}

// Do вызывает fn, пока она не вернёт успех, постоянную ошибку или пока не кончатся попытки.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) (string, error)) (string, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := fn(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !IsRetriable(err) {
			return "", err
		}
		if attempt == attempts {
			break
		}

		delay := time.Duration(attempt) * p.BaseDelay
		slog.Warn("llm call failed, retrying", "op", op, "attempt", attempt, "max_attempts", attempts, "delay", delay, "error", err)
		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: gave up after %d attempts: %w", op, attempts, lastErr)
}

// SleepContext - пауза, прерываемая отменой контекста.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
