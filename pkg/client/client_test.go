package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sternrassler/semp-client/internal/testutil"
	"github.com/Sternrassler/semp-client/pkg/pagination"
	"github.com/Sternrassler/semp-client/pkg/semp"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("localhost:8080"),
		},
		{
			name:        "missing host",
			config:      Config{Username: "admin"},
			expectError: true,
			errorMsg:    "host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("router:80")

	if cfg.Host != "router:80" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.Username != "admin" || cfg.Password != "admin" {
		t.Errorf("credentials = %q/%q, want admin/admin", cfg.Username, cfg.Password)
	}
	if cfg.Secure {
		t.Error("Secure should default to false")
	}
	if cfg.Timeout <= 0 {
		t.Errorf("Timeout = %v, should be > 0", cfg.Timeout)
	}
}

func TestClient_URL(t *testing.T) {
	plain, _ := New(DefaultConfig("router:80"))
	if got := plain.URL(""); got != "http://router:80/SEMP" {
		t.Errorf("URL() = %q", got)
	}

	cfg := DefaultConfig("router:443")
	cfg.Secure = true
	secure, _ := New(cfg)
	if got := secure.URL("/SEMP/v1"); got != "https://router:443/SEMP/v1" {
		t.Errorf("URL() = %q", got)
	}
}

func TestClient_Request(t *testing.T) {
	router := testutil.NewMockRouter("a", "b")
	defer router.Close()
	router.Username = "admin"
	router.Password = "secret"

	cfg := DefaultConfig(router.Host())
	cfg.Password = "secret"
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	request := semp.ShowHostname("")
	reply, err := client.Do(context.Background(), request)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if err := reply.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if router.GetLastRequest() != string(request) {
		t.Errorf("router saw %q, want %q", router.GetLastRequest(), request)
	}
}

func TestClient_Unauthorized(t *testing.T) {
	router := testutil.NewMockRouter()
	defer router.Close()
	router.Username = "admin"
	router.Password = "secret"

	client, _ := New(DefaultConfig(router.Host()))

	_, err := client.Do(context.Background(), semp.ShowHostname(""))
	var se *semp.Error
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *semp.Error", err)
	}
	if se.Kind != semp.KindTransport || se.StatusCode != http.StatusUnauthorized {
		t.Errorf("error = %+v, want transport 401", se)
	}
}

func TestClient_ServerError(t *testing.T) {
	router := testutil.NewMockRouter()
	defer router.Close()
	router.SetResponse(testutil.MockRouterResponse{StatusCode: http.StatusInternalServerError})

	client, _ := New(DefaultConfig(router.Host()))

	_, err := client.Do(context.Background(), semp.ShowHostname(""))
	if !errors.Is(err, semp.ErrTransport) {
		t.Errorf("error = %v, want transport error", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	router := testutil.NewMockRouter()
	defer router.Close()
	router.SetResponse(testutil.MockRouterResponse{
		StatusCode: http.StatusOK,
		Body:       testutil.OKReply("", ""),
		Delay:      200 * time.Millisecond,
	})

	client, _ := New(DefaultConfig(router.Host()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Do(ctx, semp.ShowHostname(""))
	if !errors.Is(err, semp.ErrTimeout) {
		t.Errorf("error = %v, want timeout", err)
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	host := server.Listener.Addr().String()
	server.Close()

	client, _ := New(DefaultConfig(host))
	_, err := client.Do(context.Background(), semp.ShowHostname(""))
	if semp.KindOf(err) != semp.KindTransport {
		t.Errorf("KindOf() = %q, want transport (err %v)", semp.KindOf(err), err)
	}
}

func TestClient_SecureSelfSigned(t *testing.T) {
	router := testutil.NewMockRouterTLS("a")
	defer router.Close()

	cfg := DefaultConfig(router.Host())
	cfg.Secure = true
	client, _ := New(cfg)

	if _, err := client.Do(context.Background(), semp.ShowHostname("")); err != nil {
		t.Fatalf("Do() over self-signed TLS error = %v", err)
	}

	cfg.VerifyTLS = true
	strict, _ := New(cfg)
	if _, err := strict.Do(context.Background(), semp.ShowHostname("")); err == nil {
		t.Error("expected certificate verification failure")
	}
}

func TestClient_PagedQueues(t *testing.T) {
	queues := []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8", "q9", "q10", "q11", "q12"}
	router := testutil.NewMockRouter(queues...)
	defer router.Close()

	client, _ := New(DefaultConfig(router.Host()))
	retriever := pagination.NewRetriever(client, pagination.DefaultConfig(""))

	replies, err := retriever.Collect(context.Background(), semp.ShowQueues("", "*", 5))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(replies) != 3 {
		t.Errorf("pages = %d, want 3", len(replies))
	}

	var got []string
	for _, reply := range replies {
		names, err := reply.QueueNames()
		if err != nil {
			t.Fatalf("QueueNames() error = %v", err)
		}
		got = append(got, names...)
	}
	if len(got) != len(queues) {
		t.Fatalf("queues = %v, want %v", got, queues)
	}
	for i := range queues {
		if got[i] != queues[i] {
			t.Errorf("queue[%d] = %q, want %q", i, got[i], queues[i])
		}
	}
	if router.GetRequestCount() != 3 {
		t.Errorf("requests = %d, want 3", router.GetRequestCount())
	}
}
