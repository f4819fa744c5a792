package shared

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrInvalidRequest = errors.New("invalid request")

	ErrConnectionUnavailable = errors.New("connection unavailable")
	ErrSendTimeout           = errors.New("send timed out")
	ErrTransport             = errors.New("transport error")
	ErrProcessingFailure     = errors.New("processing failure")
)

const (
	CodeConnectionUnavailable = "connection_unavailable"
	CodeSendTimeout           = "send_timeout"
	CodeTransport             = "transport_error"
	CodeProcessingFailure     = "processing_failure"
)

// ErrorCode maps a pipeline error onto the stable code carried by error events.
// Anything unrecognised is a generic processing failure.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrConnectionUnavailable):
		return CodeConnectionUnavailable
	case errors.Is(err, ErrSendTimeout):
		return CodeSendTimeout
	case errors.Is(err, ErrTransport):
		return CodeTransport
	default:
		return CodeProcessingFailure
	}
}

type APIError struct {
	Code    string `json:"code" example:"invalid_request"`
	Message string `json:"message" example:"Invalid request body"`
	Details any    `json:"details,omitempty" swaggertype:"object"`
}

func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

func (e *APIError) ToHTTP(status int) *echo.HTTPError {
	return echo.NewHTTPError(status, e)
}

func BadRequest(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusBadRequest)
}

func NotFound(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusNotFound)
}

func ServiceUnavailable(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusServiceUnavailable)
}

func InternalError(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusInternalServerError)
}
