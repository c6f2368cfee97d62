package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one websocket connection. rooms is guarded by hub.mu.
type Client struct {
	id    string
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]struct{}
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:    uuid.NewString(),
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// enqueue never blocks; it reports false when the buffer is full.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// reply sends an event to this client only. Called outside hub.mu.
func (c *Client) reply(event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		c.hub.logger.Error("encode reply", zap.Error(err))
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.id]; ok {
		c.hub.deliver(c, event, msg)
	}
}

// handle applies one inbound frame.
func (c *Client) handle(raw []byte) {
	var in struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		c.reply(EventError, map[string]string{"message": "malformed message"})
		return
	}

	switch in.Event {
	case EventJoinNoticeRoom, EventLeaveNoticeRoom:
		var req roomRequest
		if len(in.Data) > 0 {
			_ = json.Unmarshal(in.Data, &req)
		}
		if req.NoticeID == "" {
			// Old clients send the id as a bare string.
			_ = json.Unmarshal(in.Data, &req.NoticeID)
		}
		if req.NoticeID == "" {
			c.reply(EventError, map[string]string{"message": "notice_id is required"})
			return
		}
		if in.Event == EventJoinNoticeRoom {
			c.hub.Join(c, NoticeRoom(req.NoticeID))
		} else {
			c.hub.Leave(c, NoticeRoom(req.NoticeID))
		}
	case EventJoinAnalyticsRoom:
		c.hub.Join(c, AnalyticsRoom)
		c.reply(EventConnected, map[string]string{"message": "Joined analytics room"})
	case EventLeaveAnalyticsRoom:
		c.hub.Leave(c, AnalyticsRoom)
	default:
		c.hub.logger.Debug("ignoring unknown event", zap.String("client_id", c.id), zap.String("event", in.Event))
	}
}

// readPump runs until the connection fails, then unregisters the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
		c.handle(raw)
	}
}

// writePump drains send until the hub closes it.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
