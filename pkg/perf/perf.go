// Package perf measures serial SEMP request throughput: one warm-up request
// to establish the connection, then back-to-back requests for a fixed
// duration.
package perf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/semp-client/pkg/logging"
	"github.com/Sternrassler/semp-client/pkg/semp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var perfRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "semp_perf_request_duration_seconds",
	Help:    "Duration of SEMP requests issued by the throughput runner",
	Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
})

const (
	// DefaultDuration is the length of the timed loop.
	DefaultDuration = 5 * time.Second

	// DefaultTimeout bounds each request.
	DefaultTimeout = 5 * time.Second
)

// Config configures a run.
type Config struct {
	// Destination and Request are passed to the transport unchanged.
	Destination string
	Request     []byte

	Duration time.Duration
	Timeout  time.Duration

	// Progress receives one step per timed request. Nil means no output.
	Progress semp.Progress

	// OnWarmup, if set, receives the warm-up reply before the timed loop.
	OnWarmup func(reply *semp.Reply)
}

// DefaultConfig returns a 5 second "show hostname" run.
func DefaultConfig(version string) Config {
	return Config{
		Request:  semp.ShowHostname(version),
		Duration: DefaultDuration,
		Timeout:  DefaultTimeout,
	}
}

// Result summarises a run.
type Result struct {
	// Warmup is the reply to the warm-up request.
	Warmup *semp.Reply

	// Requests counts the timed requests, excluding the warm-up.
	Requests int
	Elapsed  time.Duration
}

// Rate returns requests per second.
func (r Result) Rate() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Requests) / r.Elapsed.Seconds()
}

// String formats the result for display.
func (r Result) String() string {
	return fmt.Sprintf("Single thread requestor ran %d requests in %.1f seconds (%.0f req/s).",
		r.Requests, r.Elapsed.Seconds(), r.Rate())
}

// Run performs the warm-up request and the timed loop. The first failed
// request ends the run; the result then holds the requests completed so far.
// Cancelling ctx ends the loop early without error.
func Run(ctx context.Context, transport semp.Transport, cfg Config) (Result, error) {
	if len(cfg.Request) == 0 {
		return Result{}, fmt.Errorf("request is required")
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	progress := cfg.Progress
	if progress == nil {
		progress = semp.NopProgress{}
	}
	logger := logging.NewLogger("perf")

	var result Result

	warmup, err := request(ctx, transport, cfg)
	if err != nil {
		return result, fmt.Errorf("warm-up request: %w", err)
	}
	result.Warmup = warmup
	if cfg.OnWarmup != nil {
		cfg.OnWarmup(warmup)
	}

	logger.Debug().
		Dur("duration", cfg.Duration).
		Str("destination", cfg.Destination).
		Msg("Starting timed loop")

	start := time.Now()
	deadline := start.Add(cfg.Duration)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		if _, err := request(ctx, transport, cfg); err != nil {
			result.Elapsed = time.Since(start)
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return result, nil
			}
			return result, fmt.Errorf("request %d: %w", result.Requests+1, err)
		}
		result.Requests++
		progress.Step()
	}
	result.Elapsed = time.Since(start)

	logger.Info().
		Int("requests", result.Requests).
		Dur("elapsed", result.Elapsed).
		Float64("rate", result.Rate()).
		Msg("Throughput run finished")

	return result, nil
}

func request(ctx context.Context, transport semp.Transport, cfg Config) (*semp.Reply, error) {
	reqCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	reply, err := transport.Request(reqCtx, cfg.Destination, cfg.Request)
	perfRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, semp.Wrap(err, "perf request")
	}
	return reply, nil
}
