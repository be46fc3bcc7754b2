package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Sternrassler/semp-client/internal/testutil"
)

func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestPaging_HTTP(t *testing.T) {
	router := testutil.NewMockRouter("q1", "q2", "q3", "q4", "q5", "q6", "q7")
	defer router.Close()

	code, out, errOut := execute(t, "paging", "--transport", "http", "--host", router.Host(), "--num-elements", "3")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}

	if got := router.GetRequestCount(); got != 3 {
		t.Errorf("router requests = %d, want 3", got)
	}
	if got := strings.Count(out, "REQUEST: "); got != 3 {
		t.Errorf("printed %d requests, want 3:\n%s", got, out)
	}
	if got := strings.Count(out, "Found more-cookie..."); got != 2 {
		t.Errorf("printed %d more-cookie lines, want 2", got)
	}
	for _, q := range []string{"q1", "q4", "q7"} {
		if !strings.Contains(out, "   Queue: "+q+"\n") {
			t.Errorf("output missing queue %s:\n%s", q, out)
		}
	}
	if !strings.Contains(out, "   Result: ok") {
		t.Errorf("output missing result line:\n%s", out)
	}
}

func TestPaging_ProtocolError(t *testing.T) {
	router := testutil.NewMockRouter()
	defer router.Close()
	router.SetResponse(testutil.MockRouterResponse{
		StatusCode: http.StatusOK,
		Body:       testutil.FailReply("invalid-queue"),
	})

	code, _, errOut := execute(t, "paging", "--transport", "http", "--host", router.Host())
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "invalid-queue") {
		t.Errorf("stderr = %q, want result code", errOut)
	}
}

func TestPaging_Retries(t *testing.T) {
	router := testutil.NewMockRouter()
	defer router.Close()
	router.SetResponse(testutil.MockRouterResponse{StatusCode: http.StatusServiceUnavailable})

	code, _, _ := execute(t, "paging", "--transport", "http", "--host", router.Host(), "--retries", "1")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if got := router.GetRequestCount(); got != 2 {
		t.Errorf("router requests = %d, want 2", got)
	}
}

func TestPaging_RetryRepeatsOnlyFailedPage(t *testing.T) {
	router := testutil.NewMockRouter("q1", "q2", "q3", "q4", "q5", "q6", "q7")
	defer router.Close()
	router.FailRequest(2, http.StatusServiceUnavailable)

	code, out, errOut := execute(t, "paging", "--transport", "http", "--host", router.Host(),
		"--num-elements", "3", "--retries", "1")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}

	if got := router.GetRequestCount(); got != 4 {
		t.Errorf("router requests = %d, want 4", got)
	}
	for _, q := range []string{"q1", "q4", "q7"} {
		if got := strings.Count(out, "   Queue: "+q+"\n"); got != 1 {
			t.Errorf("queue %s printed %d times, want 1:\n%s", q, got, out)
		}
	}
	if got := strings.Count(out, "REPLY: "); got != 3 {
		t.Errorf("printed %d replies, want 3", got)
	}
}

func TestMissingHost(t *testing.T) {
	code, _, errOut := execute(t, "paging", "--transport", "http")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "host is required") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestUnknownTransport(t *testing.T) {
	code, _, errOut := execute(t, "get", "--transport", "carrier-pigeon", "--host", "h:1")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "unknown transport") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestGet_HTTP(t *testing.T) {
	router := testutil.NewMockRouter()
	defer router.Close()

	code, out, errOut := execute(t, "get", "--transport", "http", "--host", router.Host())
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	if !strings.Contains(out, "REQUEST ADDRESS: /SEMP") {
		t.Errorf("output missing request address:\n%s", out)
	}
	if !strings.Contains(router.GetLastRequest(), "<show><client><name>*</name></client></show>") {
		t.Errorf("router received %q", router.GetLastRequest())
	}
}

func TestGet_PermissionError(t *testing.T) {
	router := testutil.NewMockRouter()
	defer router.Close()
	router.SetResponse(testutil.MockRouterResponse{
		StatusCode: http.StatusOK,
		Body:       `<rpc-reply><permission-error>not allowed</permission-error></rpc-reply>`,
	})

	code, out, _ := execute(t, "get", "--transport", "http", "--host", router.Host())
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out, "Permission Error") {
		t.Errorf("output missing permission hint:\n%s", out)
	}
}

func TestHTTPGet(t *testing.T) {
	router := testutil.NewMockRouter()
	defer router.Close()
	router.Username = "admin"
	router.Password = "secret"

	code, out, errOut := execute(t, "http-get", "--host", router.Host(), "-u", "admin", "-w", "secret")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	if !strings.Contains(out, "Sending SEMP Request to "+router.URL()+"/SEMP") {
		t.Errorf("output missing request line:\n%s", out)
	}
	if !strings.Contains(out, "Received SEMP Response:") {
		t.Errorf("output missing response:\n%s", out)
	}
}

func TestHTTPGet_Unauthorized(t *testing.T) {
	router := testutil.NewMockRouter()
	defer router.Close()
	router.Username = "admin"
	router.Password = "secret"

	code, out, _ := execute(t, "http-get", "--host", router.Host())
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out, "Error: 401") {
		t.Errorf("output missing status line:\n%s", out)
	}
}

func TestHTTPGet_Secure(t *testing.T) {
	router := testutil.NewMockRouterTLS()
	defer router.Close()

	code, _, errOut := execute(t, "http-get", "--host", router.Host(), "--secure")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
}

func TestPerf(t *testing.T) {
	router := testutil.NewMockRouter()
	defer router.Close()

	code, out, errOut := execute(t, "perf", "--host", router.Host(), "--duration", "100ms")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	for _, want := range []string{"Testing...", "... Reply:", "mock-router", "100ms test...", "Single thread requestor ran"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, ".") {
		t.Errorf("no progress dots printed:\n%s", out)
	}
}

func TestMessaging_Unreachable(t *testing.T) {
	commands := [][]string{
		{"pub"},
		{"sub", "--wait", "10ms"},
		{"blocking-sub", "--wait", "10ms"},
		{"queue-pub", "--queue", "q1"},
		{"queue-sub", "--queue", "q1", "--wait", "10ms"},
		{"paging"},
	}

	for _, args := range commands {
		t.Run(args[0], func(t *testing.T) {
			code, _, errOut := execute(t, append(args, "--host", "127.0.0.1:1")...)
			if code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(errOut, "transport") {
				t.Errorf("stderr = %q, want transport error", errOut)
			}
		})
	}
}

func TestQueueCommands_RequireQueue(t *testing.T) {
	for _, cmd := range []string{"queue-pub", "queue-sub"} {
		t.Run(cmd, func(t *testing.T) {
			code, _, errOut := execute(t, cmd, "--host", "127.0.0.1:1")
			if code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(errOut, "--queue is required") {
				t.Errorf("stderr = %q", errOut)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestCallbackState_KeepsFirstError(t *testing.T) {
	var out bytes.Buffer
	var state callbackState
	first := errors.New("slow consumer")

	var wg sync.WaitGroup
	state.fail(&out, "Consumer received exception: ", first)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state.fail(&out, "Consumer received exception: ", errors.New("later"))
			state.print(&out, "TextMessage received: '%s'\n", "hi")
		}()
	}
	wg.Wait()

	if err := state.err(); err != first {
		t.Errorf("err() = %v, want %v", err, first)
	}
	if got := strings.Count(out.String(), "Consumer received exception: "); got != 5 {
		t.Errorf("printed %d errors, want 5", got)
	}
}
