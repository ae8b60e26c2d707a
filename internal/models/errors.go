package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrInvalidIdentifier   = errors.New("invalid identifier")
	ErrInvalidEventName    = errors.New("invalid event name")
	ErrUnknownEvent        = errors.New("unknown event")
	ErrStorage             = errors.New("storage error")
	ErrPath                = errors.New("path error")
	ErrIdentityRejected    = errors.New("identity assertion rejected")
	ErrIdentityUnavailable = errors.New("identity verifier unavailable")
)

// StorageError reports a failure of the backing medium: unreadable file,
// corrupt document, failed write.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// PathError reports a dotted path that does not resolve against a document.
type PathError struct {
	Path    string
	Segment string
	Reason  string
}

func (e *PathError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("path %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("path %q: segment %q: %s", e.Path, e.Segment, e.Reason)
}

func (e *PathError) Is(target error) bool { return target == ErrPath }

// ErrorCode maps an error to the stable code reported to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, ErrInvalidIdentifier):
		return "invalid_identifier"
	case errors.Is(err, ErrInvalidEventName):
		return "invalid_event_name"
	case errors.Is(err, ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(err, ErrPath):
		return "path_error"
	case errors.Is(err, ErrIdentityRejected):
		return "identity_rejected"
	case errors.Is(err, ErrIdentityUnavailable):
		return "identity_unavailable"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	default:
		return "internal_error"
	}
}
