// Package realtimetest provides a recording Publisher for tests.
package realtimetest

import (
	"sync"
)

type Message struct {
	Room  string
	Event string
	Data  any
}

// Recorder captures every published event. Set Err to make publishes fail.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (r *Recorder) Broadcast(event string, data any) error {
	return r.record("", event, data)
}

func (r *Recorder) PublishRoom(room, event string, data any) error {
	return r.record(room, event, data)
}

func (r *Recorder) record(room, event string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.messages = append(r.messages, Message{Room: room, Event: event, Data: data})
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Events returns messages with the given event name in publish order.
func (r *Recorder) Events(event string) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
