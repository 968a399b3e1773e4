package api

import (
	"errors"
	"net/http"
)

// AppError is an error that maps to a specific HTTP status. Handlers
// return these and let HandleError render them.
type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
	ErrQuotaExceeded  = &AppError{Code: http.StatusTooManyRequests, Message: "daily query quota exhausted"}
	ErrTokenBudget    = &AppError{Code: http.StatusTooManyRequests, Message: "daily token budget exceeded"}
	ErrAlreadyRunning = &AppError{Code: http.StatusConflict, Message: "an identical request is already running"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

// HandleError writes err as a JSON error response. Errors that are not
// an AppError are masked as a generic 500 so internals do not leak.
func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		JSONErrorMessage(w, appErr.Code, appErr.Message)
		return
	}
	JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
}
