package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectivity signals a transport-level failure talking to the backend.
	ErrConnectivity = errors.New("backend unreachable")
	// ErrSystemNotIndexed signals that the backend has no search index built yet.
	ErrSystemNotIndexed = errors.New("system not indexed")
	// ErrNotReady signals that the readiness probe did not report a ready backend.
	ErrNotReady = errors.New("system not ready")
	// ErrSearchRejected signals a backend-reported semantic failure.
	ErrSearchRejected = errors.New("search rejected")
	// ErrProtocol signals an unexpected backend response shape.
	ErrProtocol = errors.New("protocol error")

	// ErrInvalidImage signals an empty or non-image payload.
	ErrInvalidImage = errors.New("invalid image")
	// ErrImageNotFound signals a missing thumbnail on the backend.
	ErrImageNotFound = errors.New("image not found")
	// ErrNoSelection signals an operation that needs a selected file.
	ErrNoSelection = errors.New("no file selected")
	// ErrSlotEmpty signals a selection of a grid slot without a result.
	ErrSlotEmpty = errors.New("slot is empty")
	// ErrIndexOutOfRange signals an index outside the current result set.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrViewerClosed signals a viewer operation while no comparison is open.
	ErrViewerClosed = errors.New("viewer closed")
	// ErrInvalidArgument signals a malformed command or parameter.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotSupported signals an operation the configured backend cannot serve.
	ErrNotSupported = errors.New("not supported")
)

// SearchRejectedError wraps ErrSearchRejected with the backend-supplied reason.
type SearchRejectedError struct {
	Reason string
}

func (e *SearchRejectedError) Error() string {
	if e.Reason == "" {
		return ErrSearchRejected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSearchRejected.Error(), e.Reason)
}

func (e *SearchRejectedError) Unwrap() error { return ErrSearchRejected }

// NewSearchRejected creates a search rejected error.
func NewSearchRejected(reason string) error {
	return &SearchRejectedError{Reason: reason}
}

// KeyPrefix is the default namespace for cache keys.
const KeyPrefix = "scbir:"
