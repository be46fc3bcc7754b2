package perf

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/semp-client/internal/testutil"
	"github.com/Sternrassler/semp-client/pkg/semp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingProgress struct {
	steps int
}

func (p *countingProgress) Step() { p.steps++ }

// hostnameTransport answers every request after delay.
func hostnameTransport(calls *atomic.Int64, delay time.Duration) semp.Transport {
	return semp.TransportFunc(func(ctx context.Context, _ string, _ []byte) (*semp.Reply, error) {
		calls.Add(1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return semp.NewReply([]byte(testutil.OKReply("<hostname>router</hostname>", ""))), nil
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("soltr/9_0")
	if cfg.Duration != DefaultDuration {
		t.Errorf("Duration = %v, want %v", cfg.Duration, DefaultDuration)
	}
	if !bytes.Contains(cfg.Request, []byte("<hostname/>")) {
		t.Errorf("Request = %s, want show hostname", cfg.Request)
	}
}

func TestRun(t *testing.T) {
	var calls atomic.Int64
	progress := &countingProgress{}

	cfg := DefaultConfig(testutil.Version)
	cfg.Duration = 100 * time.Millisecond
	cfg.Progress = progress

	result, err := Run(context.Background(), hostnameTransport(&calls, time.Millisecond), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Warmup == nil || !strings.Contains(result.Warmup.String(), "router") {
		t.Errorf("Warmup = %v, want hostname reply", result.Warmup)
	}
	if result.Requests == 0 {
		t.Fatal("no timed requests were made")
	}
	if got := int(calls.Load()); got != result.Requests+1 {
		t.Errorf("transport calls = %d, want requests+warm-up = %d", got, result.Requests+1)
	}
	if progress.steps != result.Requests {
		t.Errorf("progress steps = %d, want %d", progress.steps, result.Requests)
	}
	if result.Elapsed < cfg.Duration {
		t.Errorf("Elapsed = %v, want >= %v", result.Elapsed, cfg.Duration)
	}
	if result.Rate() <= 0 {
		t.Errorf("Rate() = %v, want > 0", result.Rate())
	}
}

func TestRun_DotPrinter(t *testing.T) {
	var calls atomic.Int64
	var out bytes.Buffer

	cfg := DefaultConfig(testutil.Version)
	cfg.Duration = 50 * time.Millisecond
	cfg.Progress = semp.NewDotPrinter(&out, 10)

	result, err := Run(context.Background(), hostnameTransport(&calls, 0), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := strings.Count(out.String(), "."); got != result.Requests {
		t.Errorf("printed %d dots, want %d", got, result.Requests)
	}
}

func TestRun_WarmupFailure(t *testing.T) {
	transport := testutil.NewScriptedTransport(testutil.Step{
		Err: &semp.Error{Kind: semp.KindTransport, StatusCode: 401, Message: "401 Unauthorized"},
	})

	_, err := Run(context.Background(), transport, DefaultConfig(testutil.Version))
	if !errors.Is(err, semp.ErrTransport) {
		t.Errorf("error = %v, want ErrTransport", err)
	}
	if got := transport.RequestCount(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestRun_StopsOnFirstError(t *testing.T) {
	transport := testutil.NewScriptedTransport(
		testutil.Step{Reply: testutil.OKReply("", "")},
		testutil.Step{Reply: testutil.OKReply("", "")},
		testutil.Step{Block: true},
	)

	cfg := DefaultConfig(testutil.Version)
	cfg.Duration = time.Minute
	cfg.Timeout = 20 * time.Millisecond

	result, err := Run(context.Background(), transport, cfg)
	if !errors.Is(err, semp.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if result.Requests != 1 {
		t.Errorf("Requests = %d, want 1", result.Requests)
	}
	if got := transport.RequestCount(); got != 3 {
		t.Errorf("transport requests = %d, want 3", got)
	}
}

func TestRun_Cancelled(t *testing.T) {
	var calls atomic.Int64

	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultConfig(testutil.Version)
	cfg.Duration = time.Minute
	cfg.Progress = semp.NopProgress{}

	time.AfterFunc(50*time.Millisecond, cancel)
	result, err := Run(ctx, hostnameTransport(&calls, time.Millisecond), cfg)
	if err != nil {
		t.Fatalf("Run after cancel error = %v, want nil", err)
	}
	if result.Elapsed >= time.Minute {
		t.Errorf("Elapsed = %v, loop did not stop on cancel", result.Elapsed)
	}
}

func TestRun_EmptyRequest(t *testing.T) {
	var calls atomic.Int64
	if _, err := Run(context.Background(), hostnameTransport(&calls, 0), Config{}); err == nil {
		t.Error("Run without request should fail")
	}
}

func TestResult_String(t *testing.T) {
	r := Result{Requests: 50, Elapsed: 5 * time.Second}
	want := "Single thread requestor ran 50 requests in 5.0 seconds (10 req/s)."
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := (Result{}).Rate(); got != 0 {
		t.Errorf("Rate() of empty result = %v, want 0", got)
	}
}

func TestRun_OnWarmup(t *testing.T) {
	var calls atomic.Int64
	var warmupCalls int64

	cfg := DefaultConfig(testutil.Version)
	cfg.Duration = 20 * time.Millisecond
	cfg.OnWarmup = func(reply *semp.Reply) {
		warmupCalls = calls.Load()
		if !strings.Contains(reply.String(), "router") {
			t.Errorf("warm-up reply = %q", reply)
		}
	}

	if _, err := Run(context.Background(), hostnameTransport(&calls, 0), cfg); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if warmupCalls != 1 {
		t.Errorf("OnWarmup ran after %d requests, want 1", warmupCalls)
	}
}
