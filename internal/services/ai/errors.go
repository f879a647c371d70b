package ai

import (
	"fmt"
)

// ErrorKind classifies inference failures after the retry budget is
// exhausted.
type ErrorKind string

const (
	// ErrKindAPI means the endpoint returned a status we could not use.
	ErrKindAPI ErrorKind = "api_error"
	// ErrKindTimeout means the transport deadline was exceeded.
	ErrKindTimeout ErrorKind = "timeout"
	// ErrKindNetwork means a connection-level fault.
	ErrKindNetwork ErrorKind = "network_error"
	// ErrKindEmptyOutput means HTTP 200 with an unusable payload.
	ErrKindEmptyOutput ErrorKind = "empty_output"
	// ErrKindModel means the model itself reported an error in the payload.
	ErrKindModel ErrorKind = "model_error"
)

// Error is the typed failure returned by Generate. Status carries the
// HTTP status code when one was received.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("inference %s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("inference %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("inference %s (status %d)", e.Kind, e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}
