package bus

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Subscription is an asynchronous topic subscription.
type Subscription struct {
	session *Session
	sub     *nats.Subscription
}

// Subscribe delivers messages published to subject to h. The subscription
// is registered with the broker before Subscribe returns.
func (s *Session) Subscribe(subject string, h Handler) (*Subscription, error) {
	sub, err := s.nc.Subscribe(subject, func(m *nats.Msg) {
		busMessagesReceived.WithLabelValues("topic").Inc()
		h.OnMessage(newMessage(m, false))
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	s.mu.Lock()
	s.handlers[sub] = h
	s.mu.Unlock()

	if err := s.nc.Flush(); err != nil {
		s.forget(sub)
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	s.logger.Debug().Str("subject", subject).Msg("Subscribed")
	return &Subscription{session: s, sub: sub}, nil
}

func (s *Session) forget(sub *nats.Subscription) {
	s.mu.Lock()
	delete(s.handlers, sub)
	s.mu.Unlock()
}

// Subject returns the subscribed subject.
func (sub *Subscription) Subject() string {
	return sub.sub.Subject
}

// Unsubscribe stops delivery.
func (sub *Subscription) Unsubscribe() error {
	sub.session.forget(sub.sub)
	return sub.sub.Unsubscribe()
}

// Consumer is a blocking topic subscription.
type Consumer struct {
	sub *nats.Subscription
}

// SubscribeSync subscribes to subject for use with Consumer.Receive.
func (s *Session) SubscribeSync(subject string) (*Consumer, error) {
	sub, err := s.nc.SubscribeSync(subject)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	if err := s.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	return &Consumer{sub: sub}, nil
}

// Receive blocks for the next message. It returns ErrNoMessage when ctx's
// deadline passes first.
func (c *Consumer) Receive(ctx context.Context) (*Message, error) {
	m, err := c.sub.NextMsgWithContext(ctx)
	if err != nil {
		return nil, receiveError(err)
	}
	busMessagesReceived.WithLabelValues("topic").Inc()
	return newMessage(m, false), nil
}

// Close unsubscribes the consumer.
func (c *Consumer) Close() error {
	return c.sub.Unsubscribe()
}
