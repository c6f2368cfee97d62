package routes

import (
	"SmartNotice/internal/config"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func testConfig(store string) *config.Config {
	return &config.Config{
		Port:              "0",
		JWTKey:            []byte("k"),
		LogLevel:          "info",
		StoreDriver:       store,
		MongoURI:          "mongodb://localhost:27017",
		MongoDB:           "smart_notice_test",
		EmailDriver:       config.EmailLog,
		OTPTTL:            5 * time.Minute,
		OTPRatePerMinute:  5,
		AnalyticsInterval: time.Minute,
		PrivilegedRoles:   []string{"admin"},
	}
}

func TestModules_GraphIsComplete(t *testing.T) {
	for _, store := range []string{config.StoreMemory, config.StoreMongo} {
		t.Run(store, func(t *testing.T) {
			require.NoError(t, fx.ValidateApp(Modules(testConfig(store))))
		})
	}
}

func TestOTPLimiter_StoresAreIndependent(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.POST("/send", ok, otpLimiter(2))
	e.POST("/verify", ok, otpLimiter(2))

	do := func(path string) int {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, do("/verify"))
	assert.Equal(t, http.StatusOK, do("/verify"))
	assert.Equal(t, http.StatusTooManyRequests, do("/verify"))
	assert.Equal(t, http.StatusOK, do("/send"))
}
