package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kodecamp/lms/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to HTTP status codes by kind.
//   - Logs unexpected and dependency errors without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Duplicate sign-ups are reported as a bad request, not a conflict.
	if errors.Is(err, domain.ErrDuplicateEmail) {
		return http.StatusBadRequest, domain.ErrDuplicateEmail.Msg
	}

	var de *domain.Error
	if errors.As(err, &de) {
		switch {
		case errors.Is(de.Kind, domain.ErrValidation):
			return http.StatusBadRequest, de.Msg
		case errors.Is(de.Kind, domain.ErrAuthentication):
			return http.StatusUnauthorized, de.Msg
		case errors.Is(de.Kind, domain.ErrForbidden):
			return http.StatusForbidden, de.Msg
		case errors.Is(de.Kind, domain.ErrNotFound):
			return http.StatusNotFound, de.Msg
		case errors.Is(de.Kind, domain.ErrConflict):
			return http.StatusConflict, de.Msg
		}
	}

	if errors.Is(err, domain.ErrDependency) {
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("dependency failure")
		return http.StatusFailedDependency, "a required service is unavailable, try again later"
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
