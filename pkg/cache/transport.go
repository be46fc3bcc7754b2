package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/semp-client/pkg/logging"
	"github.com/Sternrassler/semp-client/pkg/semp"
	"github.com/rs/zerolog"
)

// Transport is a semp.Transport that answers repeated requests from a Store.
type Transport struct {
	next      semp.Transport
	store     Store
	namespace string
	ttl       time.Duration
	logger    zerolog.Logger
}

// NewTransport wraps next. namespace keeps replies of different routers
// apart; ttl is how long a successful reply is served from the cache.
func NewTransport(next semp.Transport, store Store, namespace string, ttl time.Duration) *Transport {
	return &Transport{
		next:      next,
		store:     store,
		namespace: namespace,
		ttl:       ttl,
		logger:    logging.NewLogger("semp-cache"),
	}
}

// Request implements semp.Transport.
func (t *Transport) Request(ctx context.Context, destination string, payload []byte) (*semp.Reply, error) {
	key := CacheKey{Namespace: t.namespace, Destination: destination, Payload: payload}

	entry, err := t.store.Get(ctx, key)
	switch {
	case err == nil:
		t.logger.Debug().Str("destination", destination).Msg("Cache hit")
		return semp.NewReply(entry.Payload), nil
	case !errors.Is(err, ErrCacheMiss):
		t.logger.Warn().Err(err).Str("destination", destination).Msg("Cache get error")
	}

	reply, err := t.next.Request(ctx, destination, payload)
	if err != nil {
		return nil, err
	}

	if t.ttl > 0 && !reply.IsEmpty() && reply.Validate() == nil {
		if err := t.store.Set(ctx, key, NewEntry(destination, reply.Payload, t.ttl)); err != nil {
			t.logger.Warn().Err(err).Str("destination", destination).Msg("Failed to cache reply")
		} else {
			t.logger.Debug().
				Str("destination", destination).
				Dur("ttl", t.ttl).
				Msg("Cached reply")
		}
	}

	return reply, nil
}
