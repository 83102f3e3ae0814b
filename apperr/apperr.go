// Package apperr classifies errors by the disposition table of §7: each
// kind names how a call site should react (retry, surface to an HTTP
// caller, log and continue, and so on). Components wrap underlying errors
// with these kinds rather than inventing their own sentinels, so that a
// single switch at the HTTP boundary and at worker call sites can decide
// what to do without inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the error categories from the §7 disposition table.
type Kind string

const (
	// Transient covers timeouts, 5xx responses, and connection failures
	// from the RDF store, search engine, or content extractor. Retried
	// with quadratic backoff up to 6 attempts before being dropped.
	Transient Kind = "transient"

	// NotFound covers engine document/index get-or-delete misses. Not an
	// error to the caller; treated as an absent result.
	NotFound Kind = "not_found"

	// AlreadyExists covers engine index creation racing a concurrent
	// creator. Logged as a warning and treated as success.
	AlreadyExists Kind = "already_exists"

	// BadRequest covers malformed search/count queries. Surfaced as an
	// HTTP 400; never retried.
	BadRequest Kind = "bad_request"

	// Unauthorized covers missing or unresolved authorization groups.
	// Surfaced as an HTTP 401.
	Unauthorized Kind = "unauthorized"

	// Config covers smart-merge shape incompatibilities and invalid
	// property kinds. Raised eagerly; the failing work item is logged and
	// dropped.
	Config Kind = "config"

	// FileTooLarge covers an attachment exceeding the configured maximum
	// file size. Logged as a warning; the document is indexed without the
	// attachment's content.
	FileTooLarge Kind = "file_too_large"

	// FileMissing covers an attachment URI that does not resolve to a
	// readable file. Same disposition as FileTooLarge.
	FileMissing Kind = "file_missing"

	// QueueDrainFailure covers an Update Handler worker failing mid
	// processing. Logged and continued; the entry has already been
	// removed from the queue and is not re-enqueued.
	QueueDrainFailure Kind = "queue_drain_failure"
)

// Error wraps an underlying cause with a disposition Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind and the operation name that produced it.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// Retryable reports whether the error's kind is disposed to be retried with
// backoff per the §7 table (currently only Transient).
func Retryable(err error) bool {
	return Is(err, Transient)
}
