package translate

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// Breaker wraps a Translator in a circuit breaker. When the endpoint
// is down every worker slot would otherwise block on a full timeout
// per item; an open breaker turns that into an immediate per-item
// failure so the job drains as pass-throughs and stays resumable.
type Breaker struct {
	inner Translator
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker wraps inner with the default breaker settings: trip after
// five consecutive failures, retry after thirty seconds.
func NewBreaker(inner Translator) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "translate",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Breaker{inner: inner, cb: cb}
}

// Translate forwards to the wrapped translator through the breaker.
func (b *Breaker) Translate(ctx context.Context, sourceText string) (map[string]string, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Translate(ctx, sourceText)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}
