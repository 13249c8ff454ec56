package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures by how the pipeline reacts to them.
type ErrorKind string

const (
	KindConfiguration    ErrorKind = "configuration"
	KindValidation       ErrorKind = "validation"
	KindSerialization    ErrorKind = "serialization"
	KindTransport        ErrorKind = "transport"
	KindAuth             ErrorKind = "auth"
	KindRateLimit        ErrorKind = "rate_limit"
	KindUpstreamBusiness ErrorKind = "upstream_business"
	KindUnknownState     ErrorKind = "unknown_state"
)

// Error carries a kind next to the message and the wrapped cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// Message returns the human readable part of err, without the kind prefix.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
