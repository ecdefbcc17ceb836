package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/route-forecast/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

var statusByCode = map[string]int{
	apperrors.CodeInvalidInput:       http.StatusBadRequest,
	apperrors.CodeDuplicateStop:      http.StatusConflict,
	apperrors.CodeStaleSession:       http.StatusConflict,
	apperrors.CodeCityNotFound:       http.StatusNotFound,
	apperrors.CodeServiceUnavailable: http.StatusServiceUnavailable,
	apperrors.CodeTimeout:            http.StatusGatewayTimeout,
	apperrors.CodeTransport:          http.StatusBadGateway,
	apperrors.CodeItineraryStore:     http.StatusInternalServerError,
}

// fromAppError maps a domain error onto a response; unknown codes become fallbackCode with a 500.
func fromAppError(err error, fallbackCode string) *HTTPError {
	code := apperrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		return NewHTTPError(http.StatusInternalServerError, fallbackCode, apperrors.MessageOf(err), err)
	}
	if code == apperrors.CodeInvalidInput {
		code = "invalid_request"
	}
	return NewHTTPError(status, code, apperrors.MessageOf(err), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
