package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/emkeyen/postman-to-jmx/internal/collection"
	"github.com/emkeyen/postman-to-jmx/internal/fetch"
	"github.com/emkeyen/postman-to-jmx/internal/model"
	"github.com/emkeyen/postman-to-jmx/internal/profile"
)

// APIError is used by the HTTP layer for request validation and a few
// HTTP-specific errors.
type APIError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *APIError) Unwrap() error { return e.Cause }

func apiError(status int, app model.AppError, cause error) error {
	return &APIError{Status: status, AppError: app, Cause: cause}
}

func requestError(code, message, hint string) error {
	return apiError(http.StatusBadRequest, model.AppError{
		Code:    code,
		Message: message,
		Stage:   "validate_request",
		Hint:    hint,
	}, nil)
}

func writeErrorFromErr(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var ae *APIError
	if errors.As(err, &ae) {
		WriteError(w, ae.Status, ae.AppError)
		return
	}

	var fe *fetch.FetchError
	if errors.As(err, &fe) {
		WriteError(w, fe.Status, fe.AppError)
		return
	}

	// Parse/validate errors are user content errors => 422.
	var ce *collection.ParseError
	if errors.As(err, &ce) {
		WriteError(w, http.StatusUnprocessableEntity, ce.AppError)
		return
	}

	var pe *profile.ParseError
	if errors.As(err, &pe) {
		WriteError(w, http.StatusUnprocessableEntity, pe.AppError)
		return
	}

	// Fallback: internal bug.
	WriteError(w, http.StatusInternalServerError, model.AppError{
		Code:    "INTERNAL_ERROR",
		Message: "服务端内部错误",
		Stage:   "internal",
		Hint:    err.Error(),
	})
}
