package semp

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "http status with wrapped error",
			err:      &Error{Kind: KindTransport, StatusCode: 401, Message: "401 Unauthorized", Err: errors.New("denied")},
			expected: "SEMP transport error (status 401): 401 Unauthorized: denied",
		},
		{
			name:     "protocol result code",
			err:      &Error{Kind: KindProtocol, Code: "fail", Message: "SEMP response not OK"},
			expected: `SEMP protocol error (result "fail"): SEMP response not OK`,
		},
		{
			name:     "plain parse error",
			err:      &Error{Kind: KindParse, Message: "more-cookie end tag missing"},
			expected: "SEMP parse error: more-cookie end tag missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_IsAndUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := fmt.Errorf("page 2: %w", &Error{Kind: KindTransport, Message: "request", Err: inner})

	if !errors.Is(err, ErrTransport) {
		t.Error("errors.Is(err, ErrTransport) = false")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("errors.Is(err, ErrTimeout) = true")
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is(err, inner) = false")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"typed", &Error{Kind: KindParse}, KindParse},
		{"wrapped typed", fmt.Errorf("x: %w", &Error{Kind: KindProtocol}), KindProtocol},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"other", errors.New("boom"), KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}

	err := Wrap(context.DeadlineExceeded, "request")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Wrap(deadline) = %v, want timeout", err)
	}

	typed := &Error{Kind: KindProtocol}
	if got := Wrap(typed, "request"); got != error(typed) {
		t.Errorf("Wrap(typed) = %v, want unchanged", got)
	}
}
