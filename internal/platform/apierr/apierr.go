package apierr

import (
	"errors"
	"fmt"
	"net/http"

	types "github.com/yungbote/studentdiary-backend/internal/domain/diary"
)

// Error pairs an HTTP status and machine code with the underlying cause.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

// From maps service errors onto HTTP semantics. Store failures keep their cause out of
// the public message.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		return New(http.StatusBadRequest, "invalid_request", ve)
	}
	var nf *types.NotFoundError
	if errors.As(err, &nf) {
		return New(http.StatusNotFound, "not_found", nf)
	}
	var se *types.StoreError
	if errors.As(err, &se) {
		if se.Retryable {
			return New(http.StatusServiceUnavailable, "store_unavailable", errors.New("storage temporarily unavailable"))
		}
		return New(http.StatusInternalServerError, "store_error", errors.New("storage error"))
	}
	return New(http.StatusInternalServerError, "internal_error", errors.New("internal error"))
}
