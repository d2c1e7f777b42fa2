package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/facilityops/facility-system/internal/core/domain"
	"github.com/facilityops/facility-system/internal/core/ports"
)

// errorResponse is the canonical error envelope for all API errors. Fields is
// populated only for validation failures so forms can highlight inputs.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var fe ports.FieldErrors
		if errors.As(err, &fe) {
			_ = c.JSON(http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fe})
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrAccountLocked):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrOTPRequired):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrInvalidOTP):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access forbidden"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user already exists"
	case errors.Is(err, domain.ErrFacilityNotFound):
		return http.StatusNotFound, "facility not found"
	case errors.Is(err, domain.ErrDuplicateFacility):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrTankNotFound):
		return http.StatusNotFound, "tank not found"
	case errors.Is(err, domain.ErrDuplicateTank):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrPermitNotFound):
		return http.StatusNotFound, "permit not found"
	case errors.Is(err, domain.ErrDuplicatePermit):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrExpiryDateRequired):
		return http.StatusBadRequest, err.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
