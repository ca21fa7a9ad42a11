package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("Unauthorized")
	ErrUnauthenticated    = errors.New("Unauthorized")
	ErrNotFound           = errors.New("Not found")
	ErrParentNotFound     = errors.New("Parent not found")
	ErrParentNotFolder    = errors.New("Parent is not a folder")
	ErrBadRequest         = errors.New("bad request")
	ErrAlreadyExists      = errors.New("Already exist")
	ErrInvalidData        = errors.New("Invalid data")
	ErrNotImage           = errors.New("file is not an image")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// FieldError reports a missing or unusable input field. The message is
// returned to clients verbatim.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return "Missing " + e.Field
}

func missingField(field string) error {
	return &FieldError{Field: field}
}

// RequestError is a client error carrying the message shown to the caller.
// It matches ErrBadRequest.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Is(target error) bool {
	return target == ErrBadRequest
}

func badRequest(message string) error {
	return &RequestError{Message: message}
}

// UnavailableError wraps a database, cache or blob store failure. Its
// details are for logs only.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

func unavailable(op string, err error) error {
	return &UnavailableError{Op: op, Err: err}
}
