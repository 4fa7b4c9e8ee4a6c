// Package apperr carries the error taxonomy shared by the service layer:
// validation failures, missing entities, an unreachable external catalog,
// and persistence failures. Handlers and sweeps branch on the kind, not on
// error strings.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindUnavailable
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Unavailable(msg string, err error) error {
	return &Error{Kind: KindUnavailable, Msg: msg, Err: err}
}

func Store(msg string, err error) error {
	return &Error{Kind: KindStore, Msg: msg, Err: err}
}

// KindOf extracts the taxonomy kind from any error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
