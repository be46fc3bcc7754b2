package semp

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a SEMP failure. Every kind is terminal for the operation
// that produced it; retries are a caller decision.
type Kind string

const (
	// KindTimeout means no reply arrived within the request timeout.
	KindTimeout Kind = "timeout"

	// KindTransport covers connection, authentication and HTTP status failures.
	KindTransport Kind = "transport"

	// KindProtocol means the router replied with a non-ok execute-result.
	KindProtocol Kind = "protocol"

	// KindParse means the reply could not be parsed (malformed XML or a
	// more-cookie start tag without its end tag).
	KindParse Kind = "parse"
)

// Sentinel errors, one per Kind, for use with errors.Is.
var (
	ErrTimeout   = errors.New("semp: request timed out")
	ErrTransport = errors.New("semp: transport failure")
	ErrProtocol  = errors.New("semp: protocol status error")
	ErrParse     = errors.New("semp: parse error")
)

// Error is the error type returned by transports and the paging retriever.
type Error struct {
	Kind Kind

	// StatusCode is the HTTP status for HTTP transport failures, 0 otherwise.
	StatusCode int

	// Code is the SEMP execute-result code for protocol errors.
	Code string

	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var detail string
	switch {
	case e.StatusCode != 0:
		detail = fmt.Sprintf(" (status %d)", e.StatusCode)
	case e.Code != "":
		detail = fmt.Sprintf(" (result %q)", e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("SEMP %s error%s: %s: %v", e.Kind, detail, e.Message, e.Err)
	}
	return fmt.Sprintf("SEMP %s error%s: %s", e.Kind, detail, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	return target == sentinel(e.Kind)
}

func sentinel(k Kind) error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindTransport:
		return ErrTransport
	case KindProtocol:
		return ErrProtocol
	case KindParse:
		return ErrParse
	default:
		return nil
	}
}

// KindOf returns the Kind of err. Errors that are not *Error are classified
// as timeouts when they stem from a deadline and as transport failures
// otherwise. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if IsTimeout(err) {
		return KindTimeout
	}
	return KindTransport
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Wrap converts a raw transport error into an *Error. Errors that already
// carry a Kind are returned unchanged.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	kind := KindTransport
	if IsTimeout(err) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Message: message, Err: err}
}
