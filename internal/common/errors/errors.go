package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTransient        = errors.New("transient failure")
	ErrActionFailed     = errors.New("action failed")
	ErrMalformed        = errors.New("malformed input")
)

type Kind int

const (
	KindInternal Kind = iota
	KindTransient
	KindActionFailed
	KindPermissionDenied
	KindMalformed
	KindNotFound
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindActionFailed:
		return "action_failed"
	case KindPermissionDenied:
		return "permission_denied"
	case KindMalformed:
		return "malformed"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(kind Kind, message string, err error) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func Transient(message string, err error) *AppError {
	return &AppError{
		Kind:    KindTransient,
		Message: message,
		Err:     err,
	}
}

func ActionFailed(message string, err error) *AppError {
	return &AppError{
		Kind:    KindActionFailed,
		Message: message,
		Err:     err,
	}
}

func PermissionDenied(message string) *AppError {
	return &AppError{
		Kind:    KindPermissionDenied,
		Message: message,
		Err:     ErrPermissionDenied,
	}
}

func Malformed(message string) *AppError {
	return &AppError{
		Kind:    KindMalformed,
		Message: message,
		Err:     ErrMalformed,
	}
}

func NotFound(message string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: message,
		Err:     ErrNotFound,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Kind:    KindUnauthorized,
		Message: message,
		Err:     ErrUnauthorized,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Message: message,
		Err:     err,
	}
}

func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == KindTransient
	}
	return errors.Is(err, ErrTransient)
}

func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == KindPermissionDenied
	}
	return errors.Is(err, ErrPermissionDenied)
}

func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Kind == KindNotFound {
			return true
		}
		return errors.Is(appErr.Err, ErrNotFound)
	}
	return errors.Is(err, ErrNotFound)
}

func IsActionFailed(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == KindActionFailed
	}
	return errors.Is(err, ErrActionFailed)
}
