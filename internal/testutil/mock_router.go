package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	numElementsRe = regexp.MustCompile(`<num-elements>\s*(\d+)\s*</num-elements>`)
	startFromRe   = regexp.MustCompile(`<start-from>\s*(\d+)\s*</start-from>`)
)

// MockRouterResponse overrides the router's answer to every request.
type MockRouterResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockRouter is a SEMP-over-HTTP endpoint serving show commands from an
// in-memory queue list, paging "show queue" replies with more-cookies.
type MockRouter struct {
	server *httptest.Server
	mu     sync.RWMutex

	// Username and Password, when set, are required as HTTP basic auth.
	Username string
	Password string

	queues   []string
	override *MockRouterResponse
	failAt   map[int]int

	// Tracking
	RequestCount int
	LastRequest  string
}

// NewMockRouter creates a mock router with the given queues.
func NewMockRouter(queues ...string) *MockRouter {
	m := &MockRouter{queues: queues}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// NewMockRouterTLS creates a mock router served over HTTPS with a
// self-signed certificate.
func NewMockRouterTLS(queues ...string) *MockRouter {
	m := &MockRouter{queues: queues}
	m.server = httptest.NewTLSServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the server base URL.
func (m *MockRouter) URL() string {
	return m.server.URL
}

// Host returns host:port of the server.
func (m *MockRouter) Host() string {
	return strings.TrimPrefix(strings.TrimPrefix(m.server.URL, "http://"), "https://")
}

// Close shuts down the server.
func (m *MockRouter) Close() {
	m.server.Close()
}

// SetResponse makes every subsequent request answer with resp.
func (m *MockRouter) SetResponse(resp MockRouterResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.override = &resp
}

// FailRequest makes the n-th request (counting from 1) answer with the
// given HTTP status once.
func (m *MockRouter) FailRequest(n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAt == nil {
		m.failAt = make(map[int]int)
	}
	m.failAt[n] = status
}

// GetRequestCount returns the number of requests served.
func (m *MockRouter) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastRequest returns the body of the most recent request.
func (m *MockRouter) GetLastRequest() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequest
}

func (m *MockRouter) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	m.mu.Lock()
	m.RequestCount++
	m.LastRequest = string(body)
	override := m.override
	failStatus := m.failAt[m.RequestCount]
	m.mu.Unlock()

	if failStatus != 0 {
		w.WriteHeader(failStatus)
		return
	}

	if r.Method != http.MethodPost || r.URL.Path != "/SEMP" {
		http.NotFound(w, r)
		return
	}
	if m.Username != "" {
		user, pass, ok := r.BasicAuth()
		if !ok || user != m.Username || pass != m.Password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	if override != nil {
		if override.Delay > 0 {
			time.Sleep(override.Delay)
		}
		w.WriteHeader(override.StatusCode)
		w.Write([]byte(override.Body))
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	req := string(body)
	switch {
	case strings.Contains(req, "<show><queue>"):
		w.Write([]byte(m.queuePage(req)))
	case strings.Contains(req, "<show><hostname/>"):
		w.Write([]byte(OKReply("<show><hostname><hostname>mock-router</hostname></hostname></show>", "")))
	case strings.Contains(req, "<show>"):
		w.Write([]byte(OKReply("<show/>", "")))
	default:
		w.Write([]byte(FailReply("fail")))
	}
}

func (m *MockRouter) queuePage(req string) string {
	size := len(m.queues)
	if match := numElementsRe.FindStringSubmatch(req); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil && n > 0 {
			size = n
		}
	}
	start := 0
	if match := startFromRe.FindStringSubmatch(req); match != nil {
		start, _ = strconv.Atoi(match[1])
	}
	if start > len(m.queues) {
		start = len(m.queues)
	}
	end := start + size
	if end > len(m.queues) {
		end = len(m.queues)
	}

	cookie := ""
	if end < len(m.queues) {
		cookie = fmt.Sprintf(
			`<rpc semp-version="%s"><show><queue><name>*</name><count/><num-elements>%d</num-elements><start-from>%d</start-from></queue></show></rpc>`,
			Version, size, end)
	}
	return QueuePage(m.queues[start:end], cookie)
}
