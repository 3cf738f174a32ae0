package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for the HTTP layer. Transient
// infrastructure failures are KindUnavailable and are never folded into a
// domain kind.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindCapacity
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindCapacity:
		return "capacity"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

type Error struct {
	Kind  Kind
	Field string // offending field for validation errors
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(field, msg string) error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

func NotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("%s %s not found", entity, id)}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Msg: msg}
}

func Capacity(msg string) error {
	return &Error{Kind: KindCapacity, Msg: msg}
}

func Unavailable(msg string, err error) error {
	return &Error{Kind: KindUnavailable, Msg: msg, Err: err}
}

// KindOf reports the kind of err, unwrapping as needed.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsKind(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}

func IsNotFound(err error) bool    { return IsKind(err, KindNotFound) }
func IsForbidden(err error) bool   { return IsKind(err, KindForbidden) }
func IsConflict(err error) bool    { return IsKind(err, KindConflict) }
func IsCapacity(err error) bool    { return IsKind(err, KindCapacity) }
func IsValidation(err error) bool  { return IsKind(err, KindValidation) }
func IsUnavailable(err error) bool { return IsKind(err, KindUnavailable) }

// StatusCode maps an error to the HTTP status the handlers reply with.
func StatusCode(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindCapacity:
		return http.StatusUnprocessableEntity
	case KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// FromStatus rebuilds the error kind carried in a remote reply. Used by the
// ride registry client so a 404 over the wire stays a not-found here.
func FromStatus(status int, msg string) error {
	switch status {
	case http.StatusBadRequest:
		return &Error{Kind: KindValidation, Msg: msg}
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Msg: msg}
	case http.StatusForbidden:
		return &Error{Kind: KindForbidden, Msg: msg}
	case http.StatusConflict:
		return &Error{Kind: KindConflict, Msg: msg}
	case http.StatusUnprocessableEntity:
		return &Error{Kind: KindCapacity, Msg: msg}
	case http.StatusServiceUnavailable:
		return &Error{Kind: KindUnavailable, Msg: msg}
	}
	return fmt.Errorf("remote error (status %d): %s", status, msg)
}
