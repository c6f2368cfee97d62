// Package analytics pushes global notice and read totals to the analytics room.
package analytics

import (
	"SmartNotice/internal/config"
	"SmartNotice/internal/notice"
	"SmartNotice/internal/realtime"
	"context"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Notices  notice.Repository
	Notifier *realtime.Notifier
	Config   *config.Config
	Logger   *zap.Logger
}

// Broadcaster emits analytics_update on a fixed interval and on demand.
type Broadcaster struct {
	notices  notice.Repository
	notifier *realtime.Notifier
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBroadcaster(p Params) *Broadcaster {
	interval := p.Config.AnalyticsInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Broadcaster{
		notices:  p.Notices,
		notifier: p.Notifier,
		interval: interval,
		logger:   p.Logger.Named("analytics"),
	}
}

// Refresh computes the current totals and emits them. Failures are logged.
func (b *Broadcaster) Refresh(ctx context.Context) {
	t, err := b.notices.Totals(ctx)
	if err != nil {
		b.logger.Warn("compute totals", zap.Error(err))
		return
	}
	b.notifier.Analytics(realtime.AnalyticsUpdate{TotalNotices: t.Notices, TotalReads: t.Reads})
}

// Start launches the ticker loop. Calling Start twice is a no-op.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.Refresh(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	b.logger.Info("analytics broadcaster started", zap.Duration("interval", b.interval))
}

// Stop cancels the loop and waits for it to exit.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	b.wg.Wait()
	b.logger.Info("analytics broadcaster stopped")
}

// Register ties the broadcaster to the fx lifecycle.
func Register(lc fx.Lifecycle, b *Broadcaster) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			b.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			b.Stop()
			return nil
		},
	})
}
