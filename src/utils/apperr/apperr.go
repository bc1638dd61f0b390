package apperr

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Error returned to API clients. Carries the HTTP status and a machine readable code.
type AppError struct {
	Message    string
	StatusCode int
	Code       string

	// Original error, if any
	cause error

	// Captured where the error was created
	stack error
}

func New(statusCode int, code, message string) *AppError {
	return &AppError{
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
		stack:      errors.New(message),
	}
}

func (self *AppError) Error() string {
	if self.cause != nil {
		return fmt.Sprintf("%s: %s", self.Message, self.cause.Error())
	}
	return self.Message
}

func (self *AppError) Unwrap() error {
	return self.cause
}

func (self *AppError) WithCause(err error) *AppError {
	self.cause = err
	self.stack = errors.WithStack(err)
	return self
}

// Stack trace of the place the error was created, rendered only in development
func (self *AppError) Stack() string {
	if self.stack == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%+v", self.stack))
}

// Extracts AppError from the chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Returns code of the AppError in the chain, empty string otherwise
func CodeOf(err error) string {
	appErr, ok := As(err)
	if !ok {
		return ""
	}
	return appErr.Code
}

// Passes AppError through, anything else becomes a 500 with the given code
func Wrap(err error, code string, log *logrus.Entry) error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	if log != nil {
		log.WithError(err).WithField("code", code).Error("Unexpected error")
	}
	return New(http.StatusInternalServerError, code, "Internal server error").WithCause(err)
}

// Entity name in screaming snake case, e.g. "job bid" -> "JOB_BID"
func entityCode(entity string) string {
	return strcase.ToScreamingSnake(entity)
}

func NotFound(entity string) *AppError {
	return New(http.StatusNotFound, entityCode(entity)+"_NOT_FOUND", strcase.ToCamel(entity)+" not found")
}

func AlreadyExists(entity string) *AppError {
	return New(http.StatusBadRequest, entityCode(entity)+"_ALREADY_EXISTS", strcase.ToCamel(entity)+" already exists")
}

func ServiceCode(service string) string {
	return entityCode(service) + "_SERVICE_ERROR"
}

func BadRequest(code, message string) *AppError {
	return New(http.StatusBadRequest, code, message)
}

func Validation(err error) *AppError {
	return New(http.StatusBadRequest, "VALIDATION_ERROR", err.Error()).WithCause(err)
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, "FORBIDDEN", message)
}

func InvalidTransition(entity, from, to string) *AppError {
	return New(http.StatusBadRequest, "INVALID_TRANSITION",
		fmt.Sprintf("%s can't move from %s to %s", entity, from, to))
}

func Unavailable(code, message string) *AppError {
	return New(http.StatusServiceUnavailable, code, message)
}
