package poller

import (
	"context"
	"log/slog"
	"time"
)

// RefreshFunc runs one refresh cycle.
type RefreshFunc func(ctx context.Context) error

// Poller runs refresh cycles on a fixed interval and on demand.
// With a zero interval it only runs when triggered.
type Poller struct {
	refresh   RefreshFunc
	interval  time.Duration
	refreshCh chan struct{}
	logger    *slog.Logger
}

func New(refresh RefreshFunc, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{refresh: refresh, interval: interval, refreshCh: make(chan struct{}, 1), logger: logger}
}

// TriggerRefresh requests a cycle without blocking. Triggers arriving while one
// is already pending collapse into that one.
func (p *Poller) TriggerRefresh() {
	select {
	case p.refreshCh <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled. Refresh errors are logged and never stop the loop.
func (p *Poller) Run(ctx context.Context) {
	for {
		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		if p.interval > 0 {
			timer = time.NewTimer(p.interval)
			timerC = timer.C
		}
		select {
		case <-ctx.Done():
			stopTimer(timer)
			return
		case <-p.refreshCh:
			stopTimer(timer)
		case <-timerC:
		}
		if err := p.refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("refresh failed", "err", err)
		}
	}
}

func stopTimer(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
