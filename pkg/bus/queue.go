package bus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nuid"
	"github.com/rs/zerolog"
)

// QueueSubjectPrefix is the subject prefix under which queues receive
// messages.
const QueueSubjectPrefix = "#P2P/QUE/"

// DefaultReceiveWait bounds Flow.Receive when the context has no deadline.
const DefaultReceiveWait = 10 * time.Minute

// QueueSubject returns the subject messages for queue are published to.
func QueueSubject(queue string) string {
	return QueueSubjectPrefix + queue
}

// QueueProducer sends persistent messages to queues. Acknowledgements
// arrive asynchronously on the PublishHandler.
//
// Message IDs are the broker's duplicate-detection key, so each producer
// prefixes its sequence with a unique token.
type QueueProducer struct {
	js      nats.JetStreamContext
	handler PublishHandler
	logger  zerolog.Logger
	prefix  string

	seq    atomic.Uint64
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewQueueProducer creates a producer reporting to h.
func (s *Session) NewQueueProducer(h PublishHandler) (*QueueProducer, error) {
	if h == nil {
		return nil, fmt.Errorf("publish handler is required")
	}
	js, err := s.jetStream()
	if err != nil {
		return nil, err
	}
	return newQueueProducer(js, h, s.logger), nil
}

func newQueueProducer(js nats.JetStreamContext, h PublishHandler, logger zerolog.Logger) *QueueProducer {
	return &QueueProducer{
		js:      js,
		handler: h,
		logger:  logger,
		prefix:  nuid.Next(),
		done:    make(chan struct{}),
	}
}

func (p *QueueProducer) nextID() string {
	return p.prefix + "-" + strconv.FormatUint(p.seq.Add(1), 10)
}

// Send publishes payload persistently to queue and returns the message ID
// that the PublishHandler will report.
func (p *QueueProducer) Send(queue string, payload []byte) (string, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", ErrClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	id := p.nextID()
	msg := nats.NewMsg(QueueSubject(queue))
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, id)

	future, err := p.js.PublishMsgAsync(msg)
	if err != nil {
		p.wg.Done()
		return "", fmt.Errorf("send to queue %s: %w", queue, err)
	}
	busMessagesPublished.WithLabelValues("queue").Inc()

	go p.await(id, queue, future)
	return id, nil
}

func (p *QueueProducer) await(id, queue string, future nats.PubAckFuture) {
	defer p.wg.Done()

	select {
	case ack := <-future.Ok():
		if ack.Duplicate {
			p.logger.Warn().Str("id", id).Str("queue", queue).Msg("Message discarded as duplicate")
			p.handler.OnPublishError(id, ErrDuplicate)
			return
		}
		p.logger.Debug().
			Str("id", id).
			Str("queue", queue).
			Uint64("sequence", ack.Sequence).
			Msg("Message acknowledged")
		p.handler.OnAck(id)
	case err := <-future.Err():
		p.logger.Warn().Err(err).Str("id", id).Str("queue", queue).Msg("Message rejected")
		p.handler.OnPublishError(id, err)
	case <-p.done:
		p.handler.OnPublishError(id, ErrClosed)
	}
}

// Wait blocks until every sent message has been acknowledged or rejected.
// Call it after the last Send.
func (p *QueueProducer) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the producer. Messages still awaiting acknowledgement are
// reported to the handler with ErrClosed.
func (p *QueueProducer) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Flow consumes messages from a queue with explicit acknowledgement.
type Flow struct {
	queue string
	sub   *nats.Subscription
}

// BindQueue binds to an existing queue using the durable consumer name.
// The queue's stream must already exist.
func (s *Session) BindQueue(queue, durable string) (*Flow, error) {
	if durable == "" {
		return nil, fmt.Errorf("durable name is required")
	}
	js, err := s.jetStream()
	if err != nil {
		return nil, err
	}

	sub, err := js.PullSubscribe(QueueSubject(queue), durable, nats.AckExplicit())
	if err != nil {
		if errors.Is(err, nats.ErrNoMatchingStream) {
			return nil, fmt.Errorf("bind to queue %s: queue does not exist: %w", queue, err)
		}
		return nil, fmt.Errorf("bind to queue %s: %w", queue, err)
	}

	s.logger.Debug().Str("queue", queue).Str("durable", durable).Msg("Bound to queue")
	return &Flow{queue: queue, sub: sub}, nil
}

// Queue returns the bound queue name.
func (f *Flow) Queue() string {
	return f.queue
}

// Receive fetches the next message. It returns ErrNoMessage when none
// arrives before ctx's deadline, or DefaultReceiveWait without one.
func (f *Flow) Receive(ctx context.Context) (*Message, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultReceiveWait)
		defer cancel()
	}

	msgs, err := f.sub.Fetch(1, nats.Context(ctx))
	if err != nil {
		return nil, receiveError(err)
	}
	if len(msgs) == 0 {
		return nil, ErrNoMessage
	}

	busMessagesReceived.WithLabelValues("queue").Inc()
	return newMessage(msgs[0], true), nil
}

// Close unbinds the flow.
func (f *Flow) Close() error {
	return f.sub.Unsubscribe()
}
