package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/Sternrassler/semp-client/pkg/logging"
	"github.com/Sternrassler/semp-client/pkg/semp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for paged retrieval.
var (
	sempPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "semp_pages_total",
		Help: "Total SEMP reply pages retrieved",
	})

	sempPagingRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semp_paging_runs_total",
		Help: "Finished paged retrievals by outcome",
	}, []string{"outcome"})
)

// ErrDone is returned by Pager.Next once the sequence has ended, either
// normally or after a failure.
var ErrDone = errors.New("pagination: no more pages")

// DefaultTimeout bounds a single request when Config.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// Config holds retriever configuration.
type Config struct {
	// Destination is passed unchanged to the transport on every request.
	Destination string

	// Timeout bounds each request/reply exchange.
	Timeout time.Duration

	// Continue builds the next request from the template and the token.
	// Defaults to semp.Continue.
	Continue semp.ContinuationFunc

	// OnRequest, if set, observes every payload just before it is sent.
	OnRequest func(page int, payload []byte)
}

// DefaultConfig returns the configuration used by the samples: 5s per request.
func DefaultConfig(destination string) Config {
	return Config{
		Destination: destination,
		Timeout:     DefaultTimeout,
		Continue:    semp.Continue,
	}
}

// Retriever drives paged request/reply exchanges against one destination.
type Retriever struct {
	transport semp.Transport
	config    Config
	logger    zerolog.Logger
}

// NewRetriever creates a retriever on top of transport.
func NewRetriever(transport semp.Transport, config Config) *Retriever {
	if transport == nil {
		panic("transport cannot be nil")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Continue == nil {
		config.Continue = semp.Continue
	}

	return &Retriever{
		transport: transport,
		config:    config,
		logger:    logging.NewLogger("pagination"),
	}
}

// Start returns a pager positioned before the first page of template.
func (r *Retriever) Start(template []byte) *Pager {
	return &Pager{
		retriever: r,
		template:  template,
		next:      template,
	}
}

// All returns the pages of template as a single-use sequence. See Pager.Pages.
func (r *Retriever) All(ctx context.Context, template []byte) iter.Seq2[*semp.Reply, error] {
	return r.Start(template).Pages(ctx)
}

// Collect retrieves every page of template. On failure it returns the pages
// retrieved before the failing request together with the error.
func (r *Retriever) Collect(ctx context.Context, template []byte) ([]*semp.Reply, error) {
	var replies []*semp.Reply
	for reply, err := range r.All(ctx, template) {
		if err != nil {
			return replies, err
		}
		replies = append(replies, reply)
	}
	return replies, nil
}

type pagerState int

const (
	stateRequesting pagerState = iota
	stateDone
	stateFailed
)

// Pager is the cursor of one paged retrieval. It is finite, cannot be
// restarted, and is not safe for concurrent use.
type Pager struct {
	retriever *Retriever
	template  []byte
	next      []byte
	state     pagerState
	requests  int
	err       error
}

// Next sends the current request and returns its reply. It returns ErrDone
// after the last page and after any failure; Err reports the failure.
func (p *Pager) Next(ctx context.Context) (*semp.Reply, error) {
	if p.state != stateRequesting {
		return nil, ErrDone
	}

	cfg := p.retriever.config
	p.requests++
	page := p.requests
	payload := p.next

	if cfg.OnRequest != nil {
		cfg.OnRequest(page, payload)
	}

	p.retriever.logger.Debug().
		Str("destination", cfg.Destination).
		Int("page", page).
		Int("bytes", len(payload)).
		Msg("Sending SEMP page request")

	reqCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	reply, err := p.retriever.transport.Request(reqCtx, cfg.Destination, payload)
	cancel()
	if err != nil {
		return nil, p.fail(semp.Wrap(err, fmt.Sprintf("request page %d", page)))
	}
	if reply == nil {
		reply = semp.NewReply(nil)
	}

	if err := reply.Validate(); err != nil {
		return nil, p.fail(err)
	}

	token, found, err := reply.MoreCookie()
	if err != nil {
		return nil, p.fail(err)
	}
	sempPagesTotal.Inc()

	if !found {
		p.state = stateDone
		sempPagingRunsTotal.WithLabelValues("complete").Inc()
		p.retriever.logger.Debug().
			Str("destination", cfg.Destination).
			Int("pages", page).
			Msg("Paged retrieval complete")
		return reply, nil
	}

	p.retriever.logger.Debug().
		Int("page", page).
		Int("cookie_bytes", len(token)).
		Msg("Found more-cookie")
	p.next = cfg.Continue(p.template, token)
	return reply, nil
}

// Pages returns the remaining pages as a sequence. A failure is yielded once
// as a (nil, err) pair and ends the sequence. Breaking out of the loop leaves
// the pager where it stopped.
func (p *Pager) Pages(ctx context.Context) iter.Seq2[*semp.Reply, error] {
	return func(yield func(*semp.Reply, error) bool) {
		for {
			reply, err := p.Next(ctx)
			if errors.Is(err, ErrDone) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(reply, nil) {
				return
			}
		}
	}
}

// Requests returns the number of requests issued so far.
func (p *Pager) Requests() int {
	return p.requests
}

// Done reports whether the pager has reached a terminal state.
func (p *Pager) Done() bool {
	return p.state != stateRequesting
}

// Err returns the error that ended the sequence, or nil.
func (p *Pager) Err() error {
	return p.err
}

func (p *Pager) fail(err error) error {
	p.state = stateFailed
	p.err = err

	kind := semp.KindOf(err)
	sempPagingRunsTotal.WithLabelValues(string(kind)).Inc()
	p.retriever.logger.Warn().
		Err(err).
		Str("destination", p.retriever.config.Destination).
		Int("page", p.requests).
		Str("error_kind", string(kind)).
		Msg("Paged retrieval aborted")
	return err
}
