package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go-wiki-store/internal/logger"
	"go-wiki-store/internal/store"
)

// AppError represents a custom error type for the application.
type AppError struct {
	Error   error
	Message string
	Code    int
}

// AppHandler is a custom handler function type that returns an AppError.
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

// StoreError maps a store error onto the HTTP status that describes it.
func StoreError(err error, message string) *AppError {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, store.ErrInvalidArgument):
		code = http.StatusBadRequest
	}
	if code != http.StatusInternalServerError {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return &AppError{Error: err, Message: message, Code: code}
}

// BadRequest reports a malformed request.
func BadRequest(err error, message string) *AppError {
	return &AppError{Error: err, Message: message, Code: http.StatusBadRequest}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorBody{Error: message})
}

// Error is a middleware that converts handler errors into JSON error responses.
func Error(log logger.Logger) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err, ok := rec.(error)
					if !ok {
						err = fmt.Errorf("%v", rec)
					}
					log.Error(err, "Panic recovered")
					writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
				}
			}()

			if err := next(w, r); err != nil {
				if err.Code >= http.StatusInternalServerError {
					log.Error(err.Error, err.Message)
				} else {
					log.Debug(fmt.Sprintf("%s: %d %s", r.URL.Path, err.Code, err.Message))
				}
				writeError(w, err.Code, err.Message)
			}
		})
	}
}
