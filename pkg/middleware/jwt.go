// Package middleware holds the echo middleware shared by every route group.
package middleware

import (
	"SmartNotice/internal/auth"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// JWT verifies the bearer token and installs the caller as the request actor.
func JWT(key []byte, logger *zap.Logger) echo.MiddlewareFunc {
	logger = logger.Named("jwt")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "Missing Token"})
			}
			tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

			claims, err := auth.ParseJWT(key, tokenString)
			if err != nil {
				logger.Debug("rejected token", zap.String("path", c.Path()), zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "Invalid Token"})
			}
			auth.SetActor(c, claims.Actor())
			return next(c)
		}
	}
}

// QueryToken copies a ?token= query parameter into the Authorization header.
// Browsers cannot set headers on a websocket upgrade.
func QueryToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if req.Header.Get(echo.HeaderAuthorization) == "" {
			if t := c.QueryParam("token"); t != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+t)
			}
		}
		return next(c)
	}
}
