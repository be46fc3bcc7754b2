package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Sternrassler/semp-client/internal/config"
	"github.com/Sternrassler/semp-client/pkg/bus"
	"github.com/Sternrassler/semp-client/pkg/cache"
	"github.com/Sternrassler/semp-client/pkg/client"
	"github.com/Sternrassler/semp-client/pkg/logging"
	"github.com/Sternrassler/semp-client/pkg/metrics"
	"github.com/Sternrassler/semp-client/pkg/semp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Transport names accepted by --transport.
const (
	transportBus  = "bus"
	transportHTTP = "http"
)

// app carries state shared by all commands of one invocation.
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	metrics *http.Server
	closers []func()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "semp-cli",
		Short:             "SEMP management and messaging toolkit",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().AddFlagSet(config.FlagSet())

	root.AddCommand(
		newPagingCmd(a),
		newGetCmd(a),
		newHTTPGetCmd(a),
		newPerfCmd(a),
		newPubCmd(a),
		newSubCmd(a),
		newBlockingSubCmd(a),
		newQueuePubCmd(a),
		newQueueSubCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.New(), cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := cfg.Logging()
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)
	a.logger = logging.NewLogger("semp-cli")

	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr)
	}
	return nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", healthHandler)

	a.metrics = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
	a.logger.Info().Str("addr", addr).Msg("Serving metrics")
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// close releases everything opened during the command, newest first.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil

	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
		a.metrics = nil
	}
}

func (a *app) onClose(f func()) {
	a.closers = append(a.closers, f)
}

// retry runs op under the configured caller-level retry policy.
func (a *app) retry(ctx context.Context, op func(ctx context.Context) error) error {
	return client.Retry(ctx, a.cfg.Retry(), op)
}

// session connects to the message bus.
func (a *app) session(out io.Writer) (*bus.Session, error) {
	fmt.Fprintln(out, "About to connect to appliance.")
	session, err := bus.Connect(a.cfg.Bus())
	if err != nil {
		return nil, err
	}
	a.onClose(session.Close)
	fmt.Fprintln(out, "Connected!")
	return session, nil
}

// httpClient creates the SEMP over HTTP client.
func (a *app) httpClient() (*client.Client, error) {
	return client.New(a.cfg.HTTPClient())
}

// sempEndpoint resolves the transport and destination for SEMP requests.
// Replies are cached when a Redis address is configured.
func (a *app) sempEndpoint(ctx context.Context, kind string, out io.Writer) (semp.Transport, string, error) {
	var transport semp.Transport
	var destination string

	switch kind {
	case transportBus:
		session, err := a.session(out)
		if err != nil {
			return nil, "", err
		}
		destination = session.SEMPTopic()
		fmt.Fprintf(out, "Router name is '%s', SEMP topic address is '%s'\n", session.RouterName(), destination)
		transport = session
	case transportHTTP:
		c, err := a.httpClient()
		if err != nil {
			return nil, "", err
		}
		destination = semp.DefaultHTTPPath
		fmt.Fprintf(out, "SEMP endpoint is '%s'\n", c.URL(destination))
		transport = c
	default:
		return nil, "", fmt.Errorf("unknown transport %q (want %s or %s)", kind, transportBus, transportHTTP)
	}

	return a.cached(ctx, transport), destination, nil
}

// cached wraps transport with the Redis reply cache. An unreachable Redis
// disables the cache instead of failing the command.
func (a *app) cached(ctx context.Context, transport semp.Transport) semp.Transport {
	if a.cfg.Redis == "" || a.cfg.CacheTTL == 0 {
		return transport
	}

	redisClient := redis.NewClient(&redis.Options{Addr: a.cfg.Redis})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		a.logger.Warn().Err(err).Str("redis", a.cfg.Redis).Msg("Reply cache disabled")
		redisClient.Close()
		return transport
	}
	a.onClose(func() { redisClient.Close() })

	a.logger.Debug().Str("redis", a.cfg.Redis).Dur("ttl", a.cfg.CacheTTL).Msg("Reply cache enabled")
	return cache.NewTransport(transport, cache.NewManager(redisClient), a.cfg.Host, a.cfg.CacheTTL)
}
