// Package mailer delivers HTML email through Resend, SMTP or the log.
package mailer

import (
	"SmartNotice/internal/config"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer sends one message to every recipient.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, html string) error
}

var ErrNoRecipients = errors.New("no recipients")

// New picks the transport named by cfg.EmailDriver.
func New(cfg *config.Config, logger *zap.Logger) (Mailer, error) {
	switch cfg.EmailDriver {
	case config.EmailResend:
		return NewResend(cfg.ResendAPIKey, cfg.FromEmail), nil
	case config.EmailSMTP:
		return NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.FromEmail), nil
	case config.EmailLog:
		return NewLog(logger), nil
	}
	return nil, fmt.Errorf("unknown email driver %q", cfg.EmailDriver)
}

type Resend struct {
	client *resend.Client
	from   string
}

func NewResend(apiKey, from string) *Resend {
	return &Resend{client: resend.NewClient(apiKey), from: from}
}

func (r *Resend) Send(ctx context.Context, to []string, subject, html string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.client.Emails.Send(&resend.SendEmailRequest{
		From:    r.from,
		To:      to,
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTP(host string, port int, user, password, from string) *SMTP {
	return &SMTP{dialer: gomail.NewDialer(host, port, user, password), from: from}
}

func (s *SMTP) Send(ctx context.Context, to []string, subject, html string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

// Log writes messages to the logger instead of sending them.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger.Named("mailer")}
}

func (l *Log) Send(_ context.Context, to []string, subject, html string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	l.logger.Info("email", zap.String("to", strings.Join(to, ",")), zap.String("subject", subject), zap.Int("bytes", len(html)))
	return nil
}

// Background sends mail off the request path. Failures are logged only.
// Once Wait has been called new sends are dropped.
type Background struct {
	mailer  Mailer
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewBackground(m Mailer, logger *zap.Logger) *Background {
	return &Background{mailer: m, logger: logger.Named("mailer"), timeout: 30 * time.Second}
}

// Go queues a send. It reports false when the queue is already draining.
func (b *Background) Go(to []string, subject, html string) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Warn("background email dropped after shutdown", zap.Int("recipients", len(to)), zap.String("subject", subject))
		return false
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		if err := b.mailer.Send(ctx, to, subject, html); err != nil {
			b.logger.Warn("background email failed", zap.Int("recipients", len(to)), zap.String("subject", subject), zap.Error(err))
		}
	}()
	return true
}

// Wait stops accepting sends and blocks until queued ones finish.
func (b *Background) Wait() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}
