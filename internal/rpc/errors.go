package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	gethRpc "github.com/ethereum/go-ethereum/rpc"
)

type ErrorKind int

const (
	// ErrKindTransient covers timeouts, 5xx and rate limiting. Retried.
	ErrKindTransient ErrorKind = iota
	// ErrKindFatal covers malformed responses, bad requests and auth
	// failures. Never retried.
	ErrKindFatal
	// ErrKindRangeTooLarge is the provider rejecting a log query range.
	// Handled by splitting the range, not by the retry budget.
	ErrKindRangeTooLarge
)

type Error struct {
	Kind   ErrorKind
	Method string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc %s: %v", e.Method, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsTransient(err error) bool {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Kind == ErrKindTransient
	}
	return false
}

func IsRangeTooLarge(err error) bool {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Kind == ErrKindRangeTooLarge
	}
	return false
}

func newError(method string, err error) *Error {
	return &Error{Kind: classify(err), Method: method, Err: err}
}

func newFatalError(method string, err error) *Error {
	return &Error{Kind: ErrKindFatal, Method: method, Err: err}
}

// classify maps provider failures onto the retry taxonomy. Providers are not
// consistent about error codes, so the range-limit detection also matches the
// wordings seen from common eth_getLogs implementations.
func classify(err error) ErrorKind {
	if err == nil {
		return ErrKindTransient
	}

	var httpErr gethRpc.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 429:
			return ErrKindTransient
		case httpErr.StatusCode >= 500:
			return ErrKindTransient
		case httpErr.StatusCode == 401 || httpErr.StatusCode == 403:
			return ErrKindFatal
		}
	}

	msg := strings.ToLower(err.Error())
	if isRangeTooLargeMessage(msg) {
		return ErrKindRangeTooLarge
	}

	var jsonErr gethRpc.Error
	if errors.As(err, &jsonErr) {
		switch jsonErr.ErrorCode() {
		case -32700, -32600, -32601, -32602:
			return ErrKindFatal
		case -32005: // limit exceeded: rate limiting on most providers
			return ErrKindTransient
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrKindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTransient
	}

	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") {
		return ErrKindTransient
	}
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "eof") || strings.Contains(msg, "timeout") {
		return ErrKindTransient
	}

	return ErrKindTransient
}

func isRangeTooLargeMessage(msg string) bool {
	patterns := []string{
		"query returned more than",
		"block range is too wide",
		"block range too large",
		"exceeds the range",
		"range exceeds",
		"response size exceeded",
		"query timeout exceeded", // erigon returns this for heavy ranges
		"too many logs",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
