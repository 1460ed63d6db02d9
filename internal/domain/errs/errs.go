// Package errs defines the error taxonomy shared by the broker adapters and
// the execution coordinator.
package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfigIncomplete  Kind = "config_incomplete"
	KindTransport         Kind = "transport"
	KindBrokerApplication Kind = "broker_application"
	KindUnsupportedBroker Kind = "unsupported_broker"
	KindUnexpected        Kind = "unexpected"
)

// Error is a categorized failure. Broker and Op identify where it happened,
// Code carries a broker-reported status when there is one.
type Error struct {
	Kind    Kind
	Broker  string
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.Broker != "" {
		msg += " " + e.Broker
	}
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Code != "" {
		msg += fmt.Sprintf(" (code %s)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

type Option func(*Error)

func WithBroker(name string) Option { return func(e *Error) { e.Broker = name } }
func WithOp(op string) Option       { return func(e *Error) { e.Op = op } }
func WithCode(code string) Option   { return func(e *Error) { e.Code = code } }
func WithCause(err error) Option    { return func(e *Error) { e.Err = err } }

// New builds a categorized error.
func New(kind Kind, message string, opts ...Option) *Error {
	e := &Error{Kind: kind, Message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Transport wraps a network or decoding failure.
func Transport(broker, op string, err error) *Error {
	return New(KindTransport, "request failed", WithBroker(broker), WithOp(op), WithCause(err))
}

// Application reports a non-success status embedded in a 2xx response body.
func Application(broker, op, code, message string) *Error {
	return New(KindBrokerApplication, message, WithBroker(broker), WithOp(op), WithCode(code))
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnexpected when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return KindUnexpected
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
