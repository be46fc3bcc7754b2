package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/semp-client/pkg/semp"
)

// ErrUnexpectedRequest is returned when a ScriptedTransport runs out of steps.
var ErrUnexpectedRequest = errors.New("testutil: unexpected request")

// Step is one scripted exchange.
type Step struct {
	// Reply is returned as the reply payload when Err is nil.
	Reply string

	// Err is returned instead of a reply.
	Err error

	// Block waits for the request context to end and returns its error.
	Block bool

	// Delay is applied before replying.
	Delay time.Duration
}

// Recorded is a request seen by a ScriptedTransport.
type Recorded struct {
	Destination string
	Payload     []byte
}

// ScriptedTransport is an in-memory semp.Transport replaying Steps in order.
type ScriptedTransport struct {
	mu       sync.Mutex
	steps    []Step
	requests []Recorded
}

// NewScriptedTransport creates a transport replaying steps.
func NewScriptedTransport(steps ...Step) *ScriptedTransport {
	return &ScriptedTransport{steps: steps}
}

// Request implements semp.Transport.
func (s *ScriptedTransport) Request(ctx context.Context, destination string, payload []byte) (*semp.Reply, error) {
	s.mu.Lock()
	idx := len(s.requests)
	s.requests = append(s.requests, Recorded{
		Destination: destination,
		Payload:     append([]byte(nil), payload...),
	})
	s.mu.Unlock()

	if idx >= len(s.steps) {
		return nil, fmt.Errorf("%w: #%d", ErrUnexpectedRequest, idx+1)
	}
	step := s.steps[idx]

	if step.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return semp.NewReply([]byte(step.Reply)), nil
}

// RequestCount returns the number of requests received.
func (s *ScriptedTransport) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of the recorded requests.
func (s *ScriptedTransport) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}
