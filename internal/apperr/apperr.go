package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindProcessing
)

// Error carries a kind and a client-facing message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports missing or malformed request fields.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// NotFound reports an absent project, spreadsheet or entry.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Processing wraps a spreadsheet failure. The message of err is passed
// through to the client as is.
func Processing(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindProcessing, Msg: err.Error(), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
