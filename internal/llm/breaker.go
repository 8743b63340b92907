package llm

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerClient corta las llamadas al LLM tras varios fallos consecutivos
// y deja pasar una sola llamada de prueba cuando expira el timeout.
type BreakerClient struct {
	next LLMClient
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerClient(next LLMClient, maxFailures uint32, openTimeout time.Duration, logger *zap.Logger) *BreakerClient {
	if maxFailures == 0 {
		maxFailures = 5
	}
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	st := gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &BreakerClient{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *BreakerClient) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State expone el estado actual del breaker (closed, half-open, open).
func (b *BreakerClient) State() gobreaker.State {
	return b.cb.State()
}
