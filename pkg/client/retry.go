package client

import (
	"context"
	"time"

	"github.com/Sternrassler/semp-client/pkg/semp"
	"github.com/eapache/go-resiliency/retrier"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	sempRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semp_retries_total",
		Help: "Total number of retry attempts by error kind",
	}, []string{"error_kind"})

	sempRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semp_retry_exhausted_total",
		Help: "Total number of operations that failed after their last attempt by error kind",
	}, []string{"error_kind"})
)

// RetryConfig holds the configuration for caller-level retries. Transports
// and the paging retriever never retry on their own; commands opt in by
// wrapping a whole operation with Retry.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts including the first one.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt; it doubles after
	// every further failure.
	InitialBackoff time.Duration
}

// DefaultRetryConfig returns a configuration that performs a single attempt.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    1,
		InitialBackoff: 1 * time.Second,
	}
}

// kindClassifier tells the retrier which failures are worth another attempt.
type kindClassifier struct{}

func (kindClassifier) Classify(err error) retrier.Action {
	if err == nil {
		return retrier.Succeed
	}
	if shouldRetry(semp.KindOf(err)) {
		return retrier.Retry
	}
	return retrier.Fail
}

// Retry runs fn until it succeeds, fails with a non-retriable error, the
// attempts are used up or ctx is done. The last error is returned.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultRetryConfig().InitialBackoff
	}

	attempt := 0
	r := retrier.New(retrier.ExponentialBackoff(cfg.MaxAttempts-1, cfg.InitialBackoff), kindClassifier{})
	r.SetJitter(0.2)

	err := r.RunCtx(ctx, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil && attempt < cfg.MaxAttempts && shouldRetry(semp.KindOf(err)) {
			kind := string(semp.KindOf(err))
			sempRetriesTotal.WithLabelValues(kind).Inc()
			log.Debug().
				Err(err).
				Str("error_kind", kind).
				Int("attempt", attempt).
				Msg("Retrying SEMP operation after backoff")
		}
		return err
	})

	if err != nil && attempt >= cfg.MaxAttempts && cfg.MaxAttempts > 1 && shouldRetry(semp.KindOf(err)) {
		kind := string(semp.KindOf(err))
		sempRetryExhaustedTotal.WithLabelValues(kind).Inc()
		log.Warn().
			Str("error_kind", kind).
			Int("max_attempts", cfg.MaxAttempts).
			Msg("Retry attempts exhausted")
	}
	if err == nil && attempt > 1 {
		log.Info().Int("attempt", attempt).Msg("SEMP operation succeeded after retry")
	}
	return err
}

// RetryTransport wraps next so that every request runs under Retry. Each
// attempt is bounded by attemptTimeout when it is positive. Wrapping the
// transport rather than a paged loop repeats only the failed page.
func RetryTransport(next semp.Transport, cfg RetryConfig, attemptTimeout time.Duration) semp.Transport {
	return semp.TransportFunc(func(ctx context.Context, destination string, payload []byte) (*semp.Reply, error) {
		var reply *semp.Reply
		err := Retry(ctx, cfg, func(ctx context.Context) error {
			if attemptTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, attemptTimeout)
				defer cancel()
			}
			r, err := next.Request(ctx, destination, payload)
			if err != nil {
				return semp.Wrap(err, "request "+destination)
			}
			reply = r
			return nil
		})
		if err != nil {
			return nil, err
		}
		return reply, nil
	})
}

// Budget returns the longest time a retried request can take when each
// attempt is bounded by attemptTimeout, including the jittered backoff.
func (c RetryConfig) Budget(attemptTimeout time.Duration) time.Duration {
	attempts := max(c.MaxAttempts, 1)
	backoff := c.InitialBackoff
	if backoff <= 0 {
		backoff = DefaultRetryConfig().InitialBackoff
	}

	total := time.Duration(attempts) * attemptTimeout
	for i := 1; i < attempts; i++ {
		total += backoff + backoff/5
		backoff *= 2
	}
	return total
}
