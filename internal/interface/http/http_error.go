package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/meal-planner/internal/infra/llm/gateway"
	apperrors "github.com/yanqian/meal-planner/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter int
	Err        error
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

// fromDomainError maps an AppError code onto a transport status.
func fromDomainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	switch code {
	case "invalid_input":
		return NewHTTPError(http.StatusBadRequest, code, errMessage(err), err)
	case "catalog_empty", "plan_failed":
		return NewHTTPError(http.StatusUnprocessableEntity, code, errMessage(err), err)
	case "storage_error":
		return NewHTTPError(http.StatusInternalServerError, code, "failed to load planning data", err)
	case string(gateway.KindCircuitOpen), string(gateway.KindRateLimited):
		httpErr := NewHTTPError(http.StatusServiceUnavailable, code, errMessage(err), err)
		httpErr.RetryAfter = gateway.RetryAfterSeconds(gateway.RetryAfter(err))
		return httpErr
	case string(gateway.KindProviderTimeout):
		return NewHTTPError(http.StatusGatewayTimeout, code, errMessage(err), err)
	case string(gateway.KindProviderError), "malformed_response":
		return NewHTTPError(http.StatusBadGateway, code, errMessage(err), err)
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal_error", "something went wrong", err)
	}
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
	if err.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(err.RetryAfter))
	}
	_ = c.Error(err)
	c.Abort()
}
