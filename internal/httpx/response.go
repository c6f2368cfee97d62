// Package httpx renders the API's success/error envelope.
package httpx

import (
	"SmartNotice/internal/apperr"
	"SmartNotice/internal/auth"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindValidation, apperr.KindOTP:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// OK writes body with success=true.
func OK(c echo.Context, status int, body echo.Map) error {
	if body == nil {
		body = echo.Map{}
	}
	body["success"] = true
	return c.JSON(status, body)
}

// Fail writes err using the error envelope. Unclassified errors are logged and
// replaced by a generic message.
func Fail(c echo.Context, logger *zap.Logger, err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind == apperr.KindInternal {
		logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"error":   "Internal server error",
		})
	}
	if ae.Kind == apperr.KindDelivery {
		logger.Warn("collaborator delivery failed", zap.String("path", c.Path()), zap.Error(err))
	}
	body := echo.Map{"success": false, "error": ae.Msg}
	if ae.RedirectURL != "" {
		body["redirect_url"] = ae.RedirectURL
	}
	return c.JSON(StatusFor(ae.Kind), body)
}

// BadRequest is a shortcut for malformed request bodies.
func BadRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": msg})
}

// Actor returns the caller installed by the JWT middleware.
func Actor(c echo.Context) (auth.Actor, error) {
	a, ok := auth.ActorFrom(c)
	if !ok {
		return auth.Actor{}, apperr.Unauthorized("Authentication required")
	}
	return a, nil
}
