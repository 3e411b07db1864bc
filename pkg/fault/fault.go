// Package fault defines the error-kind taxonomy shared by every component.
// Kinds map one-to-one onto HTTP problem responses at the transport edge.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and the HTTP layer.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindBadRequest Kind = "bad_request"
	KindConflict   Kind = "conflict"
	KindGone       Kind = "gone"
	// KindUnavailableForLegalReasons is returned for downloads of redacted
	// attachments (HTTP 451).
	KindUnavailableForLegalReasons Kind = "unavailable_for_legal_reasons"
	KindInternal                   Kind = "internal"
)

// Error carries a kind plus a short human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a fault of the given kind.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a fault with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors are
// KindInternal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// MessageOf returns the human-readable message from an error chain.
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return "unexpected error"
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// NotFound is shorthand for a KindNotFound fault.
func NotFound(what string) error { return Newf(KindNotFound, "%s not found", what) }

// Conflict is shorthand for a KindConflict fault.
func Conflict(message string) error { return New(KindConflict, message) }

// BadRequest is shorthand for a KindBadRequest fault.
func BadRequest(message string) error { return New(KindBadRequest, message) }
