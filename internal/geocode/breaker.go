// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package geocode

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/parallel-app/parallel/internal/logging"
	"github.com/parallel-app/parallel/internal/metrics"
)

// Breaker wraps a Provider with circuit breaker protection so a dead
// or throttling geocode API fails fast instead of stalling every
// batch pass on timeouts. Tripped lookups return an error, which the
// queue treats like any provider failure: the batch re-queues and is
// retried after the breaker recovers.
//
// The breaker uses real time for its interval and timeout; tests
// should exercise the wrapped provider directly.
type Breaker struct {
	provider Provider
	cb       *gobreaker.CircuitBreaker[[]Result]
	name     string
}

// NewBreaker wraps the provider. The circuit opens after a 60%
// failure rate over at least 10 requests in a 1 minute window, waits
// 2 minutes before probing, and allows 3 requests half-open.
func NewBreaker(provider Provider) *Breaker {
	cbName := "geocode-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[[]Result](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("opening geocode circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("geocode circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &Breaker{provider: provider, cb: cb, name: cbName}
}

// ReverseGeocode resolves a coordinate through the breaker.
func (b *Breaker) ReverseGeocode(ctx context.Context, lat, lng float64) ([]Result, error) {
	results, err := b.cb.Execute(func() ([]Result, error) {
		return b.provider.ReverseGeocode(ctx, lat, lng)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("geocode lookup rejected, circuit open")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return results, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
