package livesync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kirinyoku/floorsync/internal/domain"
)

// pollIntervals maps overall connection status to the fallback polling
// interval. The long interval while connected keeps push delivery primary;
// polling only back-fills gaps, since push is not assumed lossless.
var pollIntervals = map[domain.ConnectionStatus]time.Duration{
	domain.StatusError:        15 * time.Second,
	domain.StatusDisconnected: 20 * time.Second,
	domain.StatusConnecting:   30 * time.Second,
	domain.StatusConnected:    120 * time.Second,
}

// PollInterval returns the fallback interval for an overall status.
func PollInterval(s domain.ConnectionStatus) time.Duration {
	if d, ok := pollIntervals[s]; ok {
		return d
	}

	return pollIntervals[domain.StatusDisconnected]
}

// Poller is the polling fallback: one recurring timer whose interval is
// re-selected from the current overall status at every tick.
type Poller struct {
	status func() domain.ConnectionStatus
	tick   func()
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(status func() domain.ConnectionStatus, tick func(), logger *slog.Logger) *Poller {
	return &Poller{
		status: status,
		tick:   tick,
		logger: logger,
	}
}

// Start begins polling. Starting a running poller is a no-op; after Stop
// the poller restarts cleanly.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(runCtx, p.done)
}

// Stop cancels the timer and waits for the loop to exit. No timer survives
// a Stop.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(PollInterval(p.status()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			p.tick()
			next := PollInterval(p.status())
			p.logger.Debug("poll tick", "next_interval", next)
			timer.Reset(next)
		}
	}
}
