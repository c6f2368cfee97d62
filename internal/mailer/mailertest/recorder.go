// Package mailertest provides a recording Mailer for tests.
package mailertest

import (
	"context"
	"sync"
)

type Mail struct {
	To      []string
	Subject string
	HTML    string
}

// Recorder keeps every message it is asked to send. Set Err to fail sends.
type Recorder struct {
	mu   sync.Mutex
	sent []Mail
	Err  error
}

func (r *Recorder) Send(_ context.Context, to []string, subject, html string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, Mail{To: append([]string(nil), to...), Subject: subject, HTML: html})
	return nil
}

func (r *Recorder) Sent() []Mail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Mail(nil), r.sent...)
}
