// Package apierr is the error model shared by every HTTP-facing service.
package apierr

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"itops-backend/internal/platform/db"
	"itops-backend/internal/platform/i18n"
)

type Code string

const (
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeUnauthenticated   Code = "UNAUTHENTICATED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeIllegalTransition Code = "ILLEGAL_TRANSITION"
	CodeUnprocessable     Code = "UNPROCESSABLE_ENTITY"
	CodeInternal          Code = "INTERNAL"
)

// Error carries a stable code, an English message (also the i18n key) and
// an optional English detail.
type Error struct {
	Code    Code
	Message string
	Detail  string
}

func (e *Error) Error() string {
	if e.Detail != "" && e.Detail != e.Message {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetail returns a copy with detail set.
func (e *Error) WithDetail(format string, args ...any) *Error {
	cp := *e
	cp.Detail = fmt.Sprintf(format, args...)
	return &cp
}

func Invalid(msg string) *Error           { return &Error{Code: CodeInvalidArgument, Message: msg} }
func Unauthenticated(msg string) *Error   { return &Error{Code: CodeUnauthenticated, Message: msg} }
func Forbidden(msg string) *Error         { return &Error{Code: CodeForbidden, Message: msg} }
func NotFound(msg string) *Error          { return &Error{Code: CodeNotFound, Message: msg} }
func Conflict(msg string) *Error          { return &Error{Code: CodeConflict, Message: msg} }
func IllegalTransition(msg string) *Error { return &Error{Code: CodeIllegalTransition, Message: msg} }
func Unprocessable(msg string) *Error     { return &Error{Code: CodeUnprocessable, Message: msg} }
func Internal(msg string) *Error          { return &Error{Code: CodeInternal, Message: msg} }

// Is reports whether err is an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func ToHTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeIllegalTransition:
		return http.StatusConflict
	case CodeUnprocessable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// FromDB maps driver errors to API errors. notFound is used for sql.ErrNoRows.
// Errors that are already *Error pass through.
func FromDB(err error, notFound string) error {
	if err == nil {
		return nil
	}
	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, sql.ErrNoRows):
		return NotFound(notFound)
	case db.IsDuplicateKey(err):
		return Conflict("duplicate entry").WithDetail("%v", err)
	case db.IsForeignKeyViolation(err):
		return Invalid("referenced record not found").WithDetail("%v", err)
	}
	return err
}

type errorBody struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type errorDTO struct {
	Error errorBody `json:"error"`
}

// Body builds the JSON error body localized for the request.
func Body(c *gin.Context, err error) (int, any) {
	var e *Error
	if !errors.As(err, &e) {
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.FullPath(), err)
		e = Internal("internal error")
	} else if e.Code == CodeInternal {
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.FullPath(), e)
	}
	lang := i18n.Negotiate(c.GetHeader("Accept-Language"))
	detail := e.Detail
	if detail == "" {
		detail = e.Message
	}
	return ToHTTPStatus(e), errorDTO{Error: errorBody{
		Code:    e.Code,
		Message: i18n.Translate(lang, e.Message),
		Detail:  detail,
	}}
}

// Respond writes err as JSON.
func Respond(c *gin.Context, err error) {
	status, body := Body(c, err)
	c.JSON(status, body)
}

// Abort writes err as JSON and stops the handler chain.
func Abort(c *gin.Context, err error) {
	status, body := Body(c, err)
	c.AbortWithStatusJSON(status, body)
}
