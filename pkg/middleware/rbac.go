package middleware

import (
	"SmartNotice/internal/auth"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Require lets the request through only if the actor's role may perform act
// on obj. It must run after JWT.
func Require(policy auth.Policy, obj, act string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := auth.ActorFrom(c)
			if !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "Unauthorized: missing user claims"})
			}
			if !policy.Can(actor.Role, obj, act) {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "Forbidden: insufficient permissions"})
			}
			return next(c)
		}
	}
}
