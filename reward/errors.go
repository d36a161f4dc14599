package reward

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures returned by the reward package.
type ErrorKind int

const (
	// UnknownKind is reported for errors that did not originate here.
	UnknownKind ErrorKind = iota
	// UnsupportedInput means the request itself was rejected before any I/O,
	// e.g. a coin missing from the provider catalog.
	UnsupportedInput
	// TransportFailure covers network errors, timeouts and non-2xx statuses.
	TransportFailure
	// ProviderError means the provider answered with an error payload.
	ProviderError
	// ParseFailure means a successful response could not be decoded or was
	// missing required fields.
	ParseFailure
	// PreconditionViolation is an internal programming error, such as a zero
	// base hashrate reaching the calculator.
	PreconditionViolation
)

var kindNames = map[ErrorKind]string{
	UnknownKind:           "unknown",
	UnsupportedInput:      "unsupported input",
	TransportFailure:      "transport failure",
	ProviderError:         "provider error",
	ParseFailure:          "parse failure",
	PreconditionViolation: "precondition violation",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure. Message is returned verbatim by Error() when
// set, so provider supplied text reaches the caller unchanged.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so callers can test with
// errors.Is(err, &reward.Error{Kind: reward.ParseFailure}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the classification of err, looking through wrapping.
func KindOf(err error) ErrorKind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return UnknownKind
}

// classify keeps an already classified error and tags anything else with kind.
func classify(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		return err
	}
	return wrapError(kind, err)
}
