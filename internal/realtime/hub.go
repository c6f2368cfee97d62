// Package realtime fans state-change events out to websocket subscribers.
//
// Delivery is fire-and-forget: there is no acknowledgement and no backlog, so a
// client that is offline when an event fires must re-fetch state on reconnect.
// Room membership lives only as long as the connection.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var ErrHubClosed = errors.New("realtime hub closed")

// Publisher delivers events to live subscribers.
type Publisher interface {
	Broadcast(event string, data any) error
	PublishRoom(room, event string, data any) error
}

// Hub tracks connected clients and their room membership.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
	closed  bool
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		logger:  logger.Named("realtime"),
	}
}

func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.clients[c.id] = c
	h.logger.Debug("client connected", zap.String("client_id", c.id))
	return nil
}

// Unregister removes c from every room and closes its send queue. It is safe
// to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(c)
}

func (h *Hub) unregisterLocked(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	for room := range c.rooms {
		h.removeFromRoomLocked(c, room)
	}
	delete(h.clients, c.id)
	close(c.send)
	h.logger.Debug("client disconnected", zap.String("client_id", c.id))
}

func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.id] = c
	c.rooms[room] = struct{}{}
	h.logger.Debug("client joined room", zap.String("client_id", c.id), zap.String("room", room))
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(c, room)
}

func (h *Hub) removeFromRoomLocked(c *Client, room string) {
	delete(c.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c.id)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast sends to every connected client.
func (h *Hub) Broadcast(event string, data any) error {
	msg, err := encode(event, data)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}
	for _, c := range h.clients {
		h.deliver(c, event, msg)
	}
	return nil
}

// PublishRoom sends to members of room only.
func (h *Hub) PublishRoom(room, event string, data any) error {
	msg, err := encode(event, data)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}
	for _, c := range h.rooms[room] {
		h.deliver(c, event, msg)
	}
	return nil
}

// deliver must be called with h.mu held.
func (h *Hub) deliver(c *Client, event string, msg []byte) {
	if !c.enqueue(msg) {
		h.logger.Warn("dropping event for slow client", zap.String("client_id", c.id), zap.String("event", event))
	}
}

// RoomSize reports the number of members in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects further registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, c := range h.clients {
		h.unregisterLocked(c)
	}
}

func encode(event string, data any) ([]byte, error) {
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return msg, nil
}
