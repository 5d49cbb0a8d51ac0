package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Adda-Baaj/geopulse/internal/aggregator"
	"github.com/Adda-Baaj/geopulse/internal/store"
)

// Error codes returned in the error envelope.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "CONFLICT"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// AppError is a client-facing error with a stable code.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func validationError(msg string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: msg}
}

func notFoundError(msg string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: msg}
}

// status maps an AppError code to its HTTP status.
func (e *AppError) status() int {
	switch e.Code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// toAppError classifies lower-layer errors; unknown ones become internal errors carrying msg.
func toAppError(err error, msg string) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, store.ErrInvalidQuery):
		return &AppError{Code: ErrCodeValidation, Message: err.Error(), Err: err}
	case errors.Is(err, store.ErrNotFound):
		return &AppError{Code: ErrCodeNotFound, Message: msg, Err: err}
	case errors.Is(err, aggregator.ErrTickInProgress):
		return &AppError{Code: ErrCodeConflict, Message: err.Error(), Err: err}
	default:
		return &AppError{Code: ErrCodeInternal, Message: msg, Err: err}
	}
}
