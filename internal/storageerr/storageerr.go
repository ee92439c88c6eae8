// Package storageerr defines the error taxonomy surfaced by the storage
// abstraction layer to its callers (spec.md §7). Every error is a plain
// value satisfying the error interface; there are no panics for
// expected-failure paths.
package storageerr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies an error into the taxonomy of §7.
type Kind int

const (
	// KindTransport covers lower-layer index/object service failures
	// surfaced unchanged.
	KindTransport Kind = iota
	KindNotFound
	KindAlreadyExists
	KindPreconditionFailed
	KindInvalidArgument
	KindNotEmpty
	KindVersionConflict
	KindNotAllowed
	KindNotImplemented
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindPreconditionFailed:
		return "PreconditionFailed"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindNotEmpty:
		return "NotEmpty"
	case KindVersionConflict:
		return "VersionConflict"
	case KindNotAllowed:
		return "NotAllowed"
	case KindNotImplemented:
		return "NotImplemented"
	default:
		return "Transport"
	}
}

// Error is the concrete error type carried through the stack. Callers
// should match on Kind via errors.As, not on message text.
type Error struct {
	Kind    Kind
	Op      string // component/operation that raised it, e.g. "engine.PutObject"
	Entity  string // bucket, bucket/object, or user-id the error concerns
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Kind, e.Entity, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Kind, e.Entity)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is lets errors.Is(err, storageerr.NotFound) work against a Kind sentinel
// constructed with New(kind, "", "", nil).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind.
func New(kind Kind, op, entity string, wrapped error) *Error {
	return &Error{Kind: kind, Op: op, Entity: entity, Wrapped: wrapped}
}

// Sentinels usable with errors.Is for kind-only matching.
var (
	NotFound           = &Error{Kind: KindNotFound}
	AlreadyExists      = &Error{Kind: KindAlreadyExists}
	PreconditionFailed = &Error{Kind: KindPreconditionFailed}
	InvalidArgument    = &Error{Kind: KindInvalidArgument}
	NotEmpty           = &Error{Kind: KindNotEmpty}
	VersionConflict    = &Error{Kind: KindVersionConflict}
	NotAllowed         = &Error{Kind: KindNotAllowed}
	NotImplemented     = &Error{Kind: KindNotImplemented}
	Transport          = &Error{Kind: KindTransport}
)

// WrapTransport wraps a raw failure from the index/object service as a
// KindTransport Error, attaching a stack trace via pkg/errors so a
// surfaced Transport error (spec.md §7: "surfaced unchanged" in kind, but
// worth a stack for operators) can be traced back past the RPC boundary.
func WrapTransport(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	return New(KindTransport, op, entity, pkgerrors.WithStack(err))
}

// KindOf extracts the Kind of err, defaulting to KindTransport for errors
// that don't carry one (e.g. raw errors bubbling up from the backend).
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransport
}
