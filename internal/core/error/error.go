package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is used when a Redis key does not exist.
	RedisNotFoundMessage = "redis key not found"
	// MongoErrorMessage describes MongoDB related failures.
	MongoErrorMessage = "mongo operation failed"
	// MongoNotFoundMessage is used when no document matched.
	MongoNotFoundMessage = "document not found"
	// ModelErrorMessage describes failures of the hosted language model.
	ModelErrorMessage = "language model call failed"
)

// Validation errors surfaced to HTTP callers as 400 responses.
var (
	ErrMissingThreadID    = BadRequest("se requiere el parámetro 'thread_id'")
	ErrInvalidThreadID    = BadRequest("thread_id inválido")
	ErrMissingMessage     = BadRequest("se requiere un mensaje")
	ErrUnsupportedContent = BadRequest("Content-Type no soportado. Use application/json para texto o multipart/form-data para archivos/audio.")
	ErrUnsupportedFile    = BadRequest("tipo de archivo no permitido")
	ErrEmptyFile          = BadRequest("archivo vacío")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// BadRequest builds a 400 AppError carrying only a safe message.
func BadRequest(message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: message}
}

// WrapModel wraps a language model failure.
func WrapModel(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, ModelErrorMessage)
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// SafeMessage returns the user-facing message carried by err.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return SystemErrorMessage
}
