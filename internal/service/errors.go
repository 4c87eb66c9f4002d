package service

import (
	"errors"
	"fmt"
)

// Sentinel errors the HTTP layer maps onto status codes. Service methods wrap
// them with context, so match with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadSignature = errors.New("invalid webhook signature")
	ErrQueueFull    = errors.New("webhook queue is full")
	ErrClosed       = errors.New("webhook service is shut down")
)

// serviceError carries a client-facing message and matches one sentinel.
type serviceError struct {
	kind error
	msg  string
}

func (e *serviceError) Error() string { return e.msg }

func (e *serviceError) Is(target error) bool { return target == e.kind }

func invalid(format string, args ...any) error {
	return &serviceError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return &serviceError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &serviceError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

func unauthorized(format string, args ...any) error {
	return &serviceError{kind: ErrUnauthorized, msg: fmt.Sprintf(format, args...)}
}
