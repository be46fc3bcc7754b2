package bus

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/semp-client/pkg/logging"
	"github.com/Sternrassler/semp-client/pkg/semp"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DefaultRequestTimeout bounds requests whose context has no deadline.
const DefaultRequestTimeout = 5 * time.Second

// Config holds the session configuration.
type Config struct {
	// Host is the broker address as host:port or a nats:// / tls:// URL.
	Host string

	// VPN is the message VPN. NATS has no VPNs; it is reported in logs and
	// the connection name only.
	VPN string

	// Client credentials. An empty Username connects anonymously.
	Username string
	Password string

	// Secure selects TLS. VerifyTLS enables certificate verification.
	Secure    bool
	VerifyTLS bool

	// Name is the client name shown by the broker.
	Name string

	// RouterName overrides the router name reported by the broker when
	// building the SEMP topic.
	RouterName string

	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int

	// RequestTimeout applies to SEMP requests without a context deadline.
	RequestTimeout time.Duration
}

// DefaultConfig returns a configuration for host with sample defaults.
func DefaultConfig(host string) Config {
	return Config{
		Host:           host,
		VPN:            "default",
		Name:           "semp-client",
		ConnectTimeout: 5 * time.Second,
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  60,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// URL returns the broker URL for the configured host.
func (c Config) URL() string {
	if strings.Contains(c.Host, "://") {
		return c.Host
	}
	if c.Secure {
		return "tls://" + c.Host
	}
	return "nats://" + c.Host
}

func (c Config) clientName() string {
	name := c.Name
	if name == "" {
		name = "semp-client"
	}
	if c.VPN != "" {
		name += "@" + c.VPN
	}
	return name
}

// Session is a connection to the message bus. It implements semp.Transport
// for SEMP over the message bus.
type Session struct {
	nc     *nats.Conn
	config Config
	logger zerolog.Logger

	mu       sync.Mutex
	js       nats.JetStreamContext
	handlers map[*nats.Subscription]Handler
}

// Connect opens a session.
func Connect(cfg Config) (*Session, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	s := &Session{
		config:   cfg,
		logger:   logging.NewLogger("semp-bus"),
		handlers: make(map[*nats.Subscription]Handler),
	}

	nc, err := nats.Connect(cfg.URL(), s.options()...)
	if err != nil {
		busSessionEvents.WithLabelValues("error").Inc()
		return nil, &semp.Error{Kind: semp.KindTransport, Message: "connect to " + cfg.Host, Err: err}
	}
	s.nc = nc

	busSessionEvents.WithLabelValues("connected").Inc()
	s.logger.Info().
		Str("url", nc.ConnectedUrlRedacted()).
		Str("server", nc.ConnectedServerName()).
		Str("vpn", cfg.VPN).
		Msg("Session connected")

	return s, nil
}

func (s *Session) options() []nats.Option {
	cfg := s.config
	opts := make([]nats.Option, 0, 9)
	opts = append(opts, nats.Name(cfg.clientName()))
	opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	if cfg.ConnectTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnectTimeout))
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Secure {
		opts = append(opts, nats.Secure(&tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS, //nolint:gosec // brokers in labs usually run self-signed certificates
		}))
	}

	opts = append(opts,
		nats.DisconnectErrHandler(s.disconnected),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			busSessionEvents.WithLabelValues("reconnected").Inc()
			s.logger.Info().Str("url", nc.ConnectedUrlRedacted()).Msg("Session reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			busSessionEvents.WithLabelValues("closed").Inc()
			s.logger.Debug().Msg("Session closed")
		}),
		nats.ErrorHandler(s.asyncError),
	)
	return opts
}

// disconnected records connection losses. A clean Close reports a nil error
// and is left to the closed handler.
func (s *Session) disconnected(_ *nats.Conn, err error) {
	if err == nil {
		return
	}
	busSessionEvents.WithLabelValues("disconnected").Inc()
	s.logger.Warn().Err(err).Msg("Session disconnected")
}

// asyncError routes asynchronous errors (slow consumers, permission
// violations) to the handler of the affected subscription.
func (s *Session) asyncError(_ *nats.Conn, sub *nats.Subscription, err error) {
	busSessionEvents.WithLabelValues("error").Inc()

	var subject string
	var h Handler
	if sub != nil {
		subject = sub.Subject
		s.mu.Lock()
		h = s.handlers[sub]
		s.mu.Unlock()
	}

	s.logger.Error().Err(err).Str("subject", subject).Msg("Asynchronous session error")
	if h != nil {
		h.OnError(err)
	}
}

// RouterName returns the name of the router the session is connected to.
func (s *Session) RouterName() string {
	if s.config.RouterName != "" {
		return s.config.RouterName
	}
	return s.nc.ConnectedServerName()
}

// SEMPTopic returns the SEMP show topic of the connected router.
func (s *Session) SEMPTopic() string {
	return semp.Topic(s.RouterName())
}

// Request implements semp.Transport. An empty destination selects
// SEMPTopic. Without a context deadline the configured RequestTimeout applies.
func (s *Session) Request(ctx context.Context, destination string, payload []byte) (*semp.Reply, error) {
	if destination == "" {
		destination = s.SEMPTopic()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	s.logger.Debug().
		Str("destination", destination).
		Int("bytes", len(payload)).
		Msg("Executing SEMP request")

	msg, err := s.nc.RequestWithContext(ctx, destination, payload)
	if err != nil {
		outcome, mapped := requestError(destination, err)
		busRequestsTotal.WithLabelValues(outcome).Inc()
		s.logger.Warn().Err(err).Str("destination", destination).Msg("SEMP request failed")
		return nil, mapped
	}

	busRequestsTotal.WithLabelValues("ok").Inc()
	return semp.NewReply(msg.Data), nil
}

// Publish sends payload to a topic.
func (s *Session) Publish(subject string, payload []byte) error {
	if err := s.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	busMessagesPublished.WithLabelValues("topic").Inc()
	return nil
}

// Flush waits until the broker has processed everything sent so far.
func (s *Session) Flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}
	if err := s.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// IsConnected reports whether the session is currently connected.
func (s *Session) IsConnected() bool {
	return s.nc.IsConnected()
}

// Close closes the session. Subscriptions, consumers and flows stop.
func (s *Session) Close() {
	s.nc.Close()
}

func (s *Session) jetStream() (nats.JetStreamContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.js != nil {
		return s.js, nil
	}
	js, err := s.nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	s.js = js
	return js, nil
}
