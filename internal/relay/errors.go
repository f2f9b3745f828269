package relay

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a relay failure for the caller.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindAuth         Kind = "auth"
	KindNotFound     Kind = "not_found"
	KindUpstream     Kind = "upstream"
	KindParse        Kind = "parse"
	KindInternal     Kind = "internal"
)

// Error is returned by Service.Relay for every failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusCode maps a relay error to the HTTP status returned to the trigger.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindParse:
		return http.StatusUnprocessableEntity
	case KindAuth, KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
