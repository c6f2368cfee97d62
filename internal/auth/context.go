package auth

import "github.com/labstack/echo/v4"

const actorKey = "actor"

// SetActor stores the authenticated caller on the request context.
func SetActor(c echo.Context, a Actor) {
	c.Set(actorKey, a)
}

// ActorFrom returns the caller stored by the JWT middleware.
func ActorFrom(c echo.Context) (Actor, bool) {
	a, ok := c.Get(actorKey).(Actor)
	return a, ok && a.ID != ""
}
