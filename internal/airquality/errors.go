package airquality

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/LuisPExd/nasa-apps-challenge-1/internal/openaq"
)

// ErrorKind classifies failures surfaced to callers.
type ErrorKind string

const (
	KindUpstream     ErrorKind = "upstream_unavailable"
	KindNotFound     ErrorKind = "not_found"
	KindInvalidInput ErrorKind = "invalid_input"
	KindInternal     ErrorKind = "internal"
)

// Error is a classified failure. Status is the upstream status code when the
// failure came from a non-2xx reply, and 0 otherwise.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// HTTPStatus maps the error to the status code of the response.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUpstream:
		if e.Status >= 400 && e.Status < 600 {
			return e.Status
		}
	}
	return http.StatusInternalServerError
}

func NewNotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func NewInvalidInputError(msg string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg, err: err}
}

func NewInternalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, err: err}
}

// NewUpstreamError wraps a client error, keeping the upstream status and
// body when the upstream answered.
func NewUpstreamError(err error) *Error {
	var se *openaq.StatusError
	if errors.As(err, &se) {
		return &Error{Kind: KindUpstream, Status: se.Status, Message: se.Body, err: err}
	}
	return &Error{Kind: KindUpstream, Message: err.Error(), err: err}
}

func upstreamFailure(status int, body string) *Error {
	if status == 0 {
		return &Error{Kind: KindUpstream, Message: body}
	}
	return NewUpstreamError(&openaq.StatusError{Status: status, Body: body})
}

// IsNotFound reports whether err is a not-found Error.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}

// IsInvalidInput reports whether err is an invalid-input Error.
func IsInvalidInput(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindInvalidInput
}
