package testutil

import (
	"context"
	"sync"
	"time"
)

// MockTranslator is a deterministic stand-in for the translation
// service. Responses are keyed by source text; unknown texts fall back
// to DefaultFn when set, otherwise to an error-free empty map.
type MockTranslator struct {
	Responses map[string]map[string]string
	Errors    map[string]error
	DefaultFn func(sourceText string) map[string]string
	Delay     time.Duration
	// DelayFn overrides Delay per call, e.g. to randomize completion order.
	DelayFn func(sourceText string) time.Duration

	mu    sync.Mutex
	calls []string
}

// Translate returns the canned response for sourceText.
func (m *MockTranslator) Translate(ctx context.Context, sourceText string) (map[string]string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, sourceText)
	m.mu.Unlock()

	delay := m.Delay
	if m.DelayFn != nil {
		delay = m.DelayFn(sourceText)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := m.Errors[sourceText]; ok {
		return nil, err
	}
	if resp, ok := m.Responses[sourceText]; ok {
		return resp, nil
	}
	if m.DefaultFn != nil {
		return m.DefaultFn(sourceText), nil
	}
	return map[string]string{}, nil
}

// Calls returns a copy of the source texts translated so far.
func (m *MockTranslator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
