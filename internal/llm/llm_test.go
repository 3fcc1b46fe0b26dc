package llm

import (
	"context"
	"sync"
	"time"
)

type mockCompleter struct {
	completeFunc func(ctx context.Context, model, prompt string) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	return m.completeFunc(ctx, model, prompt)
}

// sleepRecorder запоминает запрошенные паузы, не останавливая тест.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *sleepRecorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}
