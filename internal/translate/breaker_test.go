package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
)

// countingTranslator fails a fixed number of times, then succeeds.
type countingTranslator struct {
	calls    int
	failures int
}

func (c *countingTranslator) Translate(ctx context.Context, sourceText string) (map[string]string, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, errors.New("connection refused")
	}
	return map[string]string{"de": "Hallo"}, nil
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &countingTranslator{}
	b := NewBreaker(inner)

	got, err := b.Translate(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got["de"] != "Hallo" {
		t.Errorf("Translate() = %v", got)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &countingTranslator{failures: 100}
	b := NewBreaker(inner)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := b.Translate(ctx, "Hello"); err == nil {
			t.Fatal("expected failure")
		}
	}

	// The breaker is now open: calls fail fast without reaching the
	// translator.
	callsBefore := inner.calls
	_, err := b.Translate(ctx, "Hello")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Translate() error = %v, want ErrOpenState", err)
	}
	if inner.calls != callsBefore {
		t.Error("open breaker still called the translator")
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), Config{Provider: "carrier-pigeon"}); err == nil {
		t.Error("New() expected error for unknown provider")
	}
}
