// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors used across repositories and services. Handlers map
// them to the HTTP status contract via JSONError.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("resource conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrIntegrity    = errors.New("data integrity violation")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrTokenInvalid = errors.New("token invalid")
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func BadRequestError(message string) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func UnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

func ForbiddenError(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
	}
}

func NotFoundError(resource string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: resource + " not found",
		Status:  http.StatusNotFound,
	}
}

func ValidationFailedError(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Message: message,
		Status:  http.StatusUnprocessableEntity,
	}
}

func DuplicateError(field string) *AppError {
	return &AppError{
		Code:    "DUPLICATE",
		Message: field + " already exists",
		Status:  http.StatusUnprocessableEntity,
	}
}

func TokenExpiredError() *AppError {
	return &AppError{
		Code:    "TOKEN_EXPIRED",
		Message: "access token has expired",
		Status:  http.StatusUnauthorized,
	}
}

func TokenRevokedError() *AppError {
	return &AppError{
		Code:    "TOKEN_REVOKED",
		Message: "access token has been revoked",
		Status:  http.StatusUnauthorized,
	}
}

func TokenInvalidError() *AppError {
	return &AppError{
		Code:    "TOKEN_INVALID",
		Message: "access token is invalid",
		Status:  http.StatusUnauthorized,
	}
}

func InternalError(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL",
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		cause:   err,
	}
}

// FromError maps sentinel errors onto the HTTP status contract:
// 401 unauthenticated, 403 forbidden, 404 unknown reference,
// 422 semantic validation failure, 500 everything else.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NotFoundError("resource")
	case errors.Is(err, ErrUnauthorized):
		return UnauthorizedError("authentication required")
	case errors.Is(err, ErrForbidden):
		return ForbiddenError("access denied")
	case errors.Is(err, ErrInvalidInput):
		return BadRequestError(err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict),
		errors.Is(err, ErrDuplicateKey):
		return ValidationFailedError(err.Error())
	case errors.Is(err, ErrTokenExpired):
		return TokenExpiredError()
	case errors.Is(err, ErrTokenRevoked):
		return TokenRevokedError()
	case errors.Is(err, ErrTokenInvalid):
		return TokenInvalidError()
	default:
		return InternalError(err)
	}
}
