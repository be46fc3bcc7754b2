package semp

import "context"

// Transport sends one SEMP request and waits for its reply. Implementations
// honour the context deadline as the request timeout and report failures as
// *Error values of KindTimeout or KindTransport.
type Transport interface {
	Request(ctx context.Context, destination string, payload []byte) (*Reply, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, destination string, payload []byte) (*Reply, error)

// Request calls f.
func (f TransportFunc) Request(ctx context.Context, destination string, payload []byte) (*Reply, error) {
	return f(ctx, destination, payload)
}
