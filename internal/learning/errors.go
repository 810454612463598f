package learning

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrFetchInFlight  = errors.New("a question set request is already in flight")
	ErrAlreadyStarted = errors.New("session already started")
	ErrNotRetryable   = errors.New("nothing to retry")
	ErrStaleFetch     = errors.New("stale question set response")
	ErrSessionClosed  = errors.New("session closed")
)

// FailureKind separates failures the learner can retry from malformed responses.
type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureProtocol  FailureKind = "protocol"
)

// TransportError means the request did not complete (network, DNS, timeout,
// or the service answered with a server-side error).
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("question service transport failure (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("question service transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means a response arrived but could not be used.
type ProtocolError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *ProtocolError) Error() string {
	msg := "question service protocol failure: " + e.Reason
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Classify reports the failure kind of a fetch error. Anything that is not an
// explicit protocol failure is treated as transport.
func Classify(err error) FailureKind {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return FailureProtocol
	}
	return FailureTransport
}
