package credential

import (
	"errors"
	"fmt"
)

// Kind classifies credential failures.
type Kind uint8

const (
	// KindValidation is a local precondition failure, the broker is never called.
	KindValidation Kind = iota + 1
	// KindTransport means the broker is unreachable or answered without a structured error.
	KindTransport
	// KindBroker is a structured error detail from the broker.
	KindBroker
	// KindMalformed is a successful response with an incomplete payload.
	KindMalformed
	// KindTimeout means the broker didn't answer in time.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindBroker:
		return "broker"
	case KindMalformed:
		return "malformed"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// User-facing messages.
const (
	MsgIdentityRequired = "identity required"
	MsgUnavailable      = "Failed to join room. Please check if the backend is running."
	MsgMalformed        = "session broker returned an incomplete credential"
	MsgTimeout          = "session broker did not respond in time"
)

// Error is a failed credential request.
// Message is safe to show to users, Err keeps the diagnostic cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is checks, e.g. errors.Is(err, credential.ErrTimeout).
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrTransport  = &Error{Kind: KindTransport}
	ErrBroker     = &Error{Kind: KindBroker}
	ErrMalformed  = &Error{Kind: KindMalformed}
	ErrTimeout    = &Error{Kind: KindTimeout}
)

// Message extracts the user-facing text of any error.
// Errors of unknown origin get the generic fallback.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return MsgUnavailable
}

// KindOf returns the kind of err or KindTransport when err is foreign.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

func transportError(err error) *Error { return &Error{Kind: KindTransport, Message: MsgUnavailable, Err: err} }
