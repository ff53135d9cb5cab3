package session

import (
	"errors"
	"fmt"

	"github.com/endorses/gridsync/internal/pkg/constants"
)

var (
	ErrMissingAdapterID   = errors.New("missing adapter id")
	ErrNoAdapterData      = errors.New("no adapter data")
	ErrNoParent           = errors.New("parent adapter required")
	ErrUnknownObjectType  = errors.New("no factory for object type")
	ErrDuplicateAdapter   = errors.New("adapter already registered")
	ErrNoClones           = errors.New("no clones registered for adapter")
	ErrCloneNotRegistered = errors.New("clone not registered")
	ErrNotAClone          = errors.New("adapter is not a clone")
	ErrSessionStopped     = errors.New("session stopped")
)

// TransportError is a failed round trip. Status is the HTTP status, or 0
// when no response arrived at all.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("transport: no response: %v", e.Err)
	}
	return fmt.Sprintf("transport: status %d: %v", e.Status, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Offline reports whether the failure means the server is unreachable
func (e *TransportError) Offline() bool {
	return e.Status == 0 || e.Status >= constants.ErrorCodeConnectionLostBase
}

// ProcessingError is a failed request that is not retried
type ProcessingError struct {
	Kind string
	Err  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("error while processing %s request: %v", e.Kind, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// UnknownAdapterError is returned when a server event targets an adapter that
// is neither registered nor creatable.
type UnknownAdapterError struct {
	ID  string
	Err error
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("no adapter registered for id %s: %v", e.ID, e.Err)
}

func (e *UnknownAdapterError) Unwrap() error { return e.Err }
