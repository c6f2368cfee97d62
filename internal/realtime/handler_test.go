package realtime

import (
	"SmartNotice/internal/config"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWSServer(t *testing.T, origins ...string) (*Hub, string) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	h := NewHandler(hub, &config.Config{CORSOrigins: origins}, zap.NewNop())

	e := echo.New()
	e.GET("/ws/notices", h.Serve)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notices"
}

func TestHandler_RoomsOverWebsocket(t *testing.T) {
	hub, url := newWSServer(t, "http://localhost:5173")

	header := http.Header{"Origin": []string{"http://localhost:5173"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	require.NoError(t, conn.WriteJSON(Envelope{Event: EventJoinAnalyticsRoom}))
	var ack Envelope
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, EventConnected, ack.Event)

	require.NoError(t, conn.WriteJSON(Envelope{Event: EventJoinNoticeRoom, Data: map[string]string{"notice_id": "n1"}}))
	require.Eventually(t, func() bool { return hub.RoomSize(NoticeRoom("n1")) == 1 }, 2*time.Second, 10*time.Millisecond)

	NewNotifier(hub, zap.NewNop()).ReadChanged(ReadUpdate{NoticeID: "n1", UserID: "u1", ReadCount: 2, TotalUniqueReaders: 1})

	var got struct {
		Event string     `json:"event"`
		Data  ReadUpdate `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, EventNoticeReadUpdate, got.Event)
	assert.Equal(t, "u1", got.Data.UserID)
	assert.Equal(t, 2, got.Data.ReadCount)
	assert.Equal(t, 1, got.Data.TotalUniqueReaders)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, hub.RoomSize(AnalyticsRoom))
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	_, url := newWSServer(t, "http://localhost:5173")

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
