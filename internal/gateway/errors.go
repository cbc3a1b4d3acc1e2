package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies gateway failures.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindInvalidInput  Kind = "invalid_input"
	KindProvider      Kind = "provider"
	KindTimeout       Kind = "timeout"
	KindNetwork       Kind = "network"
)

// Reason refines a provider failure.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonRateLimited      Reason = "rate_limited"
	ReasonUnknownSymbol    Reason = "unknown_symbol"
	ReasonUnauthorized     Reason = "unauthorized"
	ReasonUpstream         Reason = "upstream_unavailable"
	ReasonUnexpectedStatus Reason = "unexpected_status"
	ReasonMalformedPayload Reason = "malformed_payload"
	ReasonInvalidPoint     Reason = "invalid_point"
	ReasonEmptySeries      Reason = "empty_series"
)

// Sentinels for errors.Is matching on Kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput}
	ErrProvider      = &Error{Kind: KindProvider}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrNetwork       = &Error{Kind: KindNetwork}
)

// Error is the only error type returned by the Gateway.
type Error struct {
	Kind       Kind
	Reason     Reason
	Op         string
	Symbol     string
	StatusCode int
	Retryable  bool
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Reason != ReasonNone {
		b.WriteString("/")
		b.WriteString(string(e.Reason))
	}
	if e.Symbol != "" {
		fmt.Fprintf(&b, " [%s]", e.Symbol)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by Kind, and by Reason when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == ReasonNone || t.Reason == e.Reason
}

// KindOf returns the Kind of err, or "" when err is not a gateway error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// ReasonOf returns the Reason of err.
func ReasonOf(err error) Reason {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Reason
	}
	return ReasonNone
}

// IsRetryable reports whether the caller may retry err with backoff.
func IsRetryable(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return false
}

func configError(op, msg string) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: msg}
}

func invalidInput(op, symbol string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Symbol: symbol, Err: err}
}

func providerError(op, symbol string, reason Reason, status int, msg string) *Error {
	retryable := reason == ReasonRateLimited || reason == ReasonUpstream
	return &Error{
		Kind:       KindProvider,
		Reason:     reason,
		Op:         op,
		Symbol:     symbol,
		StatusCode: status,
		Retryable:  retryable,
		Message:    msg,
	}
}
