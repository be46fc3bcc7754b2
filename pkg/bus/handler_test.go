package bus

import (
	"errors"
	"testing"
)

func TestHandlerFuncs(t *testing.T) {
	var gotMsg *Message
	var gotErr error
	h := HandlerFuncs{
		Message: func(m *Message) { gotMsg = m },
		Error:   func(err error) { gotErr = err },
	}

	msg := &Message{Subject: "a/b"}
	h.OnMessage(msg)
	if gotMsg != msg {
		t.Errorf("OnMessage delivered %v, want %v", gotMsg, msg)
	}

	wantErr := errors.New("slow consumer")
	h.OnError(wantErr)
	if gotErr != wantErr {
		t.Errorf("OnError delivered %v, want %v", gotErr, wantErr)
	}

	// Nil funcs are ignored.
	var empty HandlerFuncs
	empty.OnMessage(msg)
	empty.OnError(wantErr)
}

func TestPublishHandlerFuncs(t *testing.T) {
	var acked, failed string
	var failErr error
	h := PublishHandlerFuncs{
		Ack:   func(id string) { acked = id },
		Error: func(id string, err error) { failed, failErr = id, err },
	}

	h.OnAck("1")
	h.OnPublishError("2", ErrClosed)

	if acked != "1" {
		t.Errorf("acked = %q, want 1", acked)
	}
	if failed != "2" || !errors.Is(failErr, ErrClosed) {
		t.Errorf("failed = %q, %v; want 2, ErrClosed", failed, failErr)
	}

	var empty PublishHandlerFuncs
	empty.OnAck("3")
	empty.OnPublishError("3", ErrClosed)
}
