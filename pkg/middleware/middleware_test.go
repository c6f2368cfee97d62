package middleware

import (
	"SmartNotice/internal/auth"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var key = []byte("test-key")

func serve(t *testing.T, mw []echo.MiddlewareFunc, header, target string) (*httptest.ResponseRecorder, *auth.Actor) {
	t.Helper()
	e := echo.New()
	var seen *auth.Actor
	e.GET("/x", func(c echo.Context) error {
		if a, ok := auth.ActorFrom(c); ok {
			seen = &a
		}
		return c.NoContent(http.StatusNoContent)
	}, mw...)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestJWT(t *testing.T) {
	actor := auth.Actor{ID: "u1", Name: "Asha", Role: "hod", Email: "asha@uni.test"}
	token, err := auth.GenerateJWT(key, actor, time.Hour)
	require.NoError(t, err)
	expired, err := auth.GenerateJWT(key, actor, -time.Minute)
	require.NoError(t, err)
	other, err := auth.GenerateJWT([]byte("other"), actor, time.Hour)
	require.NoError(t, err)

	mw := []echo.MiddlewareFunc{JWT(key, zap.NewNop())}

	rec, seen := serve(t, mw, "Bearer "+token, "/x")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, actor, *seen)

	for name, header := range map[string]string{
		"missing":   "",
		"expired":   "Bearer " + expired,
		"wrong key": "Bearer " + other,
		"garbage":   "Bearer abc.def",
	} {
		t.Run(name, func(t *testing.T) {
			rec, seen := serve(t, mw, header, "/x")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, seen)
		})
	}
}

func TestQueryToken(t *testing.T) {
	token, err := auth.GenerateJWT(key, auth.Actor{ID: "u1"}, time.Hour)
	require.NoError(t, err)

	rec, seen := serve(t, []echo.MiddlewareFunc{QueryToken, JWT(key, zap.NewNop())}, "", "/x?token="+token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.ID)
}

func TestRequire(t *testing.T) {
	authz, err := auth.NewAuthorizer([]string{"admin"})
	require.NoError(t, err)
	mw := func(role string) []echo.MiddlewareFunc {
		token, err := auth.GenerateJWT(key, auth.Actor{ID: "u1", Role: role}, time.Hour)
		require.NoError(t, err)
		return []echo.MiddlewareFunc{
			func(next echo.HandlerFunc) echo.HandlerFunc {
				return func(c echo.Context) error {
					c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+token)
					return next(c)
				}
			},
			JWT(key, zap.NewNop()),
			Require(authz, auth.ObjAnalytics, auth.ActRead),
		}
	}

	rec, _ := serve(t, mw("admin"), "", "/x")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = serve(t, mw("student"), "", "/x")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = serve(t, []echo.MiddlewareFunc{Require(authz, auth.ObjAnalytics, auth.ActRead)}, "", "/x")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
