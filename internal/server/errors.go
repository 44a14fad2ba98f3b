package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/models"
)

type errorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"requestId"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindInvalidTransition, models.KindConflict:
		return http.StatusConflict
	case models.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err in the shared error format. Errors that are not
// *models.Error are logged and reported as INTERNAL_ERROR.
func WriteError(c echo.Context, log *logger.Logger, err error) error {
	requestID := RequestID(c)

	var appErr *models.Error
	if errors.As(err, &appErr) {
		details := appErr.Details
		if details == nil {
			details = map[string]interface{}{}
		}
		return c.JSON(StatusFor(appErr.Kind), ErrorResponse{
			Error:     errorBody{Code: appErr.Code, Message: appErr.Error(), Details: details},
			RequestID: requestID,
		})
	}

	log.Error("request_failed", "Unhandled error", requestID, err, map[string]interface{}{
		"method": c.Request().Method,
		"path":   c.Request().URL.Path,
	})
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:     errorBody{Code: "INTERNAL_ERROR", Message: "Internal server error", Details: map[string]interface{}{}},
		RequestID: requestID,
	})
}

// errorHandler formats errors that reach echo itself, such as unknown routes.
func errorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if !errors.As(err, &he) {
			_ = WriteError(c, log, err)
			return
		}
		code := "HTTP_ERROR"
		switch he.Code {
		case http.StatusNotFound:
			code = "NOT_FOUND"
		case http.StatusBadRequest:
			code = "BAD_REQUEST"
		case http.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case http.StatusConflict:
			code = "CONFLICT"
		}
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			message = m
		}
		_ = c.JSON(he.Code, ErrorResponse{
			Error:     errorBody{Code: code, Message: message, Details: map[string]interface{}{}},
			RequestID: RequestID(c),
		})
	}
}
