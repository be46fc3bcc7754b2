// Package client provides SEMP over HTTP(S): it posts SEMP commands to a
// router's management endpoint and classifies failures into semp error kinds.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/semp-client/pkg/logging"
	"github.com/Sternrassler/semp-client/pkg/semp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for SEMP HTTP operations.
var (
	sempRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semp_http_requests_total",
		Help: "Total SEMP HTTP requests by status",
	}, []string{"status"})

	sempRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "semp_http_request_duration_seconds",
		Help:    "SEMP HTTP request duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	sempErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semp_http_errors_total",
		Help: "Total SEMP HTTP errors by kind",
	}, []string{"kind"})
)

// Client posts SEMP commands over HTTP. It implements semp.Transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Host is the router management address as host:port.
	Host string

	// Basic auth credentials.
	Username string
	Password string

	// Secure selects HTTPS.
	Secure bool

	// VerifyTLS enables certificate verification. Appliances commonly serve
	// self-signed certificates, so it is off unless asked for.
	VerifyTLS bool

	// Timeout bounds each HTTP exchange in addition to any context deadline.
	Timeout time.Duration
}

// DefaultConfig returns the configuration used by the samples.
func DefaultConfig(host string) Config {
	return Config{
		Host:     host,
		Username: "admin",
		Password: "admin",
		Timeout:  30 * time.Second,
	}
}

// New creates a new SEMP HTTP client.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	scheme := "http"
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Secure {
		scheme = "https"
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS, //nolint:gosec // appliance certificates are usually self-signed
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseURL: scheme + "://" + cfg.Host,
		config:  cfg,
		logger:  logging.NewLogger("semp-http"),
	}, nil
}

// URL returns the management endpoint URL for path, defaulting to /SEMP.
func (c *Client) URL(path string) string {
	if path == "" {
		path = semp.DefaultHTTPPath
	}
	return c.baseURL + path
}

// Request implements semp.Transport. The destination is the URL path on the
// router; an empty destination selects /SEMP.
func (c *Client) Request(ctx context.Context, destination string, payload []byte) (*semp.Reply, error) {
	url := c.URL(destination)

	startTime := time.Now()
	defer func() {
		sempRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &semp.Error{Kind: semp.KindTransport, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "text/xml")
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	c.logger.Debug().
		Str("url", url).
		Int("bytes", len(payload)).
		Msg("Executing SEMP request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := classifyError(nil, err)
		sempErrorsTotal.WithLabelValues(string(kind)).Inc()
		sempRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Str("url", url).Str("error_kind", string(kind)).Msg("SEMP request failed")
		return nil, &semp.Error{Kind: kind, Message: "POST " + url, Err: err}
	}
	defer resp.Body.Close()

	sempRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		kind := classifyError(resp, nil)
		sempErrorsTotal.WithLabelValues(string(kind)).Inc()
		c.logger.Warn().
			Str("url", url).
			Int("status", resp.StatusCode).
			Msg("SEMP request rejected")
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &semp.Error{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		kind := classifyError(nil, err)
		sempErrorsTotal.WithLabelValues(string(kind)).Inc()
		return nil, &semp.Error{Kind: kind, Message: "read response body", Err: err}
	}

	return semp.NewReply(body), nil
}

// Do posts payload to /SEMP.
func (c *Client) Do(ctx context.Context, payload []byte) (*semp.Reply, error) {
	return c.Request(ctx, "", payload)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
