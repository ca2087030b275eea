// Package apperr defines the error taxonomy shared by services and handlers.
// Services return *Error values; the HTTP boundary maps a Kind to a status
// code exactly once (see httpx.WriteError).
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Issue is a field-level validation problem.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error carries a kind, a message that is safe to show to clients and an
// optional wrapped cause that is only logged.
type Error struct {
	Kind    Kind
	Message string
	Issues  []Issue
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string, issues ...Issue) error {
	return &Error{Kind: KindValidation, Message: msg, Issues: issues}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string, cause error) error {
	return &Error{Kind: KindConflict, Message: msg, Err: cause}
}

func Upstream(msg string, cause error) error {
	return &Error{Kind: KindUpstream, Message: msg, Err: cause}
}

// KindOf reports the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
