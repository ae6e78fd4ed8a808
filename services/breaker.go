package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerSettings controls the per-provider circuit breaker.
type BreakerSettings struct {
	Failures         int
	Timeout          time.Duration
	HalfOpenRequests int
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{Failures: 5, Timeout: 30 * time.Second, HalfOpenRequests: 1}
}

// upstream guards every call to one provider with a breaker and records metrics.
type upstream struct {
	provider string
	settings BreakerSettings
	gb       *gobreaker.TwoStepCircuitBreaker
}

func newUpstream(provider string, s BreakerSettings, logger *zap.Logger) *upstream {
	if s.Failures < 1 {
		s.Failures = 1
	}
	if s.HalfOpenRequests < 1 {
		s.HalfOpenRequests = 1
	}

	u := &upstream{provider: provider, settings: s}
	u.gb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: uint32(s.HalfOpenRequests),
		Timeout:     s.Timeout,
		ReadyToTrip: u.readyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			breakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	breakerState.WithLabelValues(provider).Set(float64(gobreaker.StateClosed))
	return u
}

func (u *upstream) readyToTrip(c gobreaker.Counts) bool {
	return int(c.ConsecutiveFailures) >= u.settings.Failures
}

// do runs fn if the breaker allows it. Only server-side failures count
// against the breaker; a caller cancelling its request does not.
func (u *upstream) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	done, err := u.gb.Allow()
	if err != nil {
		upstreamRequests.WithLabelValues(u.provider, op, "rejected").Inc()
		return fmt.Errorf("%s %s: %w", u.provider, op, ErrUnavailable)
	}

	start := time.Now()
	err = fn(ctx)
	upstreamDuration.WithLabelValues(u.provider, op).Observe(time.Since(start).Seconds())
	upstreamRequests.WithLabelValues(u.provider, op, outcome(err)).Inc()

	done(!serverSide(err))
	return err
}

func (u *upstream) state() string {
	return u.gb.State().String()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case serverSide(err):
		return "error"
	default:
		return "rejected_by_provider"
	}
}
