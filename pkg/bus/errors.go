package bus

import (
	"context"
	"errors"

	"github.com/Sternrassler/semp-client/pkg/semp"
	"github.com/nats-io/nats.go"
)

var (
	// ErrNoMessage is returned by Receive when no message arrived in time.
	ErrNoMessage = errors.New("bus: no message received")

	// ErrClosed is returned when the session or producer has been closed.
	ErrClosed = errors.New("bus: closed")

	// ErrDuplicate is reported when the broker acknowledged a queue message
	// without storing it because its ID was already seen.
	ErrDuplicate = errors.New("bus: duplicate message discarded")

	// ErrNotAcknowledgeable is returned by Ack on messages that were not
	// delivered from a queue.
	ErrNotAcknowledgeable = errors.New("bus: message cannot be acknowledged")
)

// requestError maps a NATS request failure to a semp error kind. outcome is
// the metrics label.
func requestError(subject string, err error) (outcome string, mapped error) {
	switch {
	case errors.Is(err, nats.ErrNoResponders):
		return "no_responders", &semp.Error{Kind: semp.KindTransport, Message: "no responders on " + subject, Err: err}
	case errors.Is(err, nats.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout", &semp.Error{Kind: semp.KindTimeout, Message: "request to " + subject, Err: err}
	case errors.Is(err, nats.ErrConnectionClosed):
		return "error", &semp.Error{Kind: semp.KindTransport, Message: "request to " + subject, Err: ErrClosed}
	default:
		return "error", semp.Wrap(err, "request to "+subject)
	}
}

// receiveError maps a receive failure. Deadlines mean "nothing arrived".
func receiveError(err error) error {
	switch {
	case errors.Is(err, nats.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrNoMessage
	case errors.Is(err, nats.ErrConnectionClosed), errors.Is(err, nats.ErrBadSubscription):
		return ErrClosed
	default:
		return err
	}
}
