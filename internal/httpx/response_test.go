package httpx

import (
	"SmartNotice/internal/apperr"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func run(t *testing.T, logger *zap.Logger, err error) (int, map[string]any) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/x", nil), rec)
	require.NoError(t, Fail(c, logger, err))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestFail_Classified(t *testing.T) {
	code, body := run(t, zap.NewNop(), apperr.Conflict("Approval already requested for this notice").WithRedirect("/approval-tracking/1"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Approval already requested for this notice", body["error"])
	assert.Equal(t, "/approval-tracking/1", body["redirect_url"])

	code, _ = run(t, zap.NewNop(), apperr.NotFound("Notice not found"))
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = run(t, zap.NewNop(), apperr.Unauthorized("Unauthorized"))
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = run(t, zap.NewNop(), apperr.Delivery("Failed to send OTP", errors.New("smtp down")))
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestFail_InternalIsHiddenAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	code, body := run(t, zap.New(core), errors.New("mongo: connection reset"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", body["error"])
	require.Equal(t, 1, logs.FilterMessage("request failed").Len())
}
