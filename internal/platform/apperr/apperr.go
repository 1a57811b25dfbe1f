// Package apperr defines the error taxonomy shared by the booking domains and
// maps it onto HTTP responses.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidSlot     = errors.New("invalid slot")
	ErrSlotUnavailable = errors.New("slot unavailable")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication failed")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
)

// StatusCode returns the HTTP status for err, or 500 when err does not wrap
// one of the package sentinels.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidSlot), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// ToHTTP converts a domain error into an *echo.HTTPError. Errors outside the
// taxonomy are passed through unchanged so the error handler can log them.
func ToHTTP(err error) error {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		return err
	}
	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}

// ErrorResponse is the JSON body written for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorHandler returns an echo.HTTPErrorHandler that renders errors as
// {"error": "..."}. Unclassified errors are logged and reported as a generic
// 500 so internals never reach the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := "internal server error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else if code != http.StatusInternalServerError {
				msg = http.StatusText(code)
			}
		} else if sc := StatusCode(err); sc != http.StatusInternalServerError {
			code = sc
			msg = err.Error()
		}

		if code >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().
				Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
			msg = "internal server error"
			if code == http.StatusGatewayTimeout || code == http.StatusServiceUnavailable {
				msg = http.StatusText(code)
			}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, ErrorResponse{Error: msg})
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("write error response")
		}
	}
}
