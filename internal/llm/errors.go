package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// RemoteUnavailableError is the terminal error when the last attempt failed
// for a network-like reason.
type RemoteUnavailableError struct {
	Attempts int
	Err      error
}

func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("remote model unavailable after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error { return e.Err }

// RemoteError is the terminal error for any other exhausted failure. Message
// carries the last failure's message.
type RemoteError struct {
	Attempts int
	Message  string
	Err      error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote model failed after %d attempt(s): %s", e.Attempts, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// MalformedResponseError reports a body that is not JSON or does not match
// the requested shape.
type MalformedResponseError struct {
	Body string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return "malformed model response: " + e.Err.Error()
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Malformed wraps err as a MalformedResponseError.
func Malformed(body []byte, err error) error {
	return &MalformedResponseError{Body: string(body), Err: err}
}

// IsMalformed reports whether err is, or wraps, a MalformedResponseError.
func IsMalformed(err error) bool {
	var m *MalformedResponseError
	return errors.As(err, &m)
}

// IsUnavailable reports whether err is, or wraps, a RemoteUnavailableError.
func IsUnavailable(err error) bool {
	var u *RemoteUnavailableError
	return errors.As(err, &u)
}

var networkHints = []string{"network", "fetch", "connection", "dial", "no such host", "timeout"}

// IsNetworkError classifies err by its concrete type first and falls back to
// inspecting the message only when no typed signal is present.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, h := range networkHints {
		if strings.Contains(msg, h) {
			return true
		}
	}
	return false
}
