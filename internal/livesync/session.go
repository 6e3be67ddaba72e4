package livesync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kirinyoku/floorsync/internal/domain"
	"github.com/kirinyoku/floorsync/internal/realtime"
)

// bookingsRefreshInterval is the periodic forced refresh of the bookings
// snapshot, independent of invalidation. Belt and suspenders against missed
// change notifications.
const bookingsRefreshInterval = 30 * time.Second

// CredentialProvider supplies the bearer credential required before any
// channel subscription is attempted.
type CredentialProvider interface {
	Credential(ctx context.Context) (string, error)
}

// Session is the live sync state for one tenant: three change channels, the
// polling fallback, the snapshot cache, and the derived dashboard state.
type Session struct {
	tenantID  string
	cache     *TenantCache
	bus       *Bus
	tracker   *realtime.StatusTracker
	channels  *realtime.ChannelManager
	poller    *Poller
	projector Projector
	creds     CredentialProvider
	hub       *realtime.StreamHub
	logger    *slog.Logger

	mu         sync.Mutex
	lastUpdate time.Time
	handles    []*realtime.ChannelHandle
	setupErr   error
	closed     bool

	runCtx context.Context
	cancel context.CancelFunc
}

// Start wires channels, the poller, and the periodic refreshes, then
// triggers the initial population of all three snapshots. A failed
// credential lookup short-circuits: every channel status goes to error and
// no subscription is attempted.
func (s *Session) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.runCtx = runCtx
	s.cancel = cancel
	s.mu.Unlock()

	s.poller = NewPoller(s.Overall, func() {
		s.bus.InvalidateAll(runCtx)
	}, s.logger)

	cred, err := s.creds.Credential(runCtx)
	if err != nil {
		s.logger.Error("credential setup failed, skipping subscriptions",
			"tenant_id", s.tenantID, "error", err)
		s.tracker.MarkAllError()
		s.mu.Lock()
		s.setupErr = err
		s.mu.Unlock()
	} else {
		s.openChannels(runCtx, cred)
	}

	s.bus.OnApplied(func() {
		s.touch()
		if s.hub != nil {
			s.hub.Broadcast(s.tenantID, s.State())
		}
	})

	s.poller.Start(runCtx)

	go s.refreshLoop(runCtx)

	s.bus.InvalidateAll(runCtx)
}

func (s *Session) openChannels(ctx context.Context, cred string) {
	for _, entity := range domain.Entities() {
		h, err := s.channels.Open(ctx, entity, s.tenantID, cred)
		if err != nil {
			s.logger.Error("channel open failed", "entity", entity, "tenant_id", s.tenantID, "error", err)
			s.tracker.Update(entity, domain.StatusError)
			continue
		}

		h.OnEvent(func(e domain.Entity) {
			s.touch()
			s.bus.Invalidate(ctx, e)
		})
		h.OnStatusChange(func(e domain.Entity, st domain.ConnectionStatus) {
			s.tracker.Update(e, st)
		})
		h.OnErrorNudge(func(e domain.Entity) {
			s.bus.Invalidate(ctx, e)
		})

		s.mu.Lock()
		s.handles = append(s.handles, h)
		s.mu.Unlock()
	}
}

// refreshLoop forces a bookings refetch on a fixed cadence and sweeps the
// other snapshots when they outlive their TTL.
func (s *Session) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(bookingsRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.bus.Invalidate(ctx, domain.EntityBookings)

			for _, e := range []domain.Entity{domain.EntityTables, domain.EntityWaitlist} {
				if !s.cache.Fresh(e) {
					s.bus.Invalidate(ctx, e)
				}
			}
		}
	}
}

// State assembles the consumer-facing dashboard state. All three entity
// slices and the projected metrics come from a single cache read, so
// metrics never mix snapshot generations.
func (s *Session) State() domain.DashboardState {
	triple := s.cache.Read()
	conn := s.tracker.Snapshot()

	s.mu.Lock()
	lastUpdate := s.lastUpdate
	setupErr := s.setupErr
	s.mu.Unlock()

	errMsg := ""
	if setupErr != nil {
		errMsg = setupErr.Error()
	} else if err := s.bus.LastError(); err != nil {
		errMsg = err.Error()
	}

	return domain.DashboardState{
		Bookings:         triple.Bookings,
		Tables:           triple.Tables,
		Waitlist:         triple.Waitlist,
		Metrics:          s.projector.Project(triple.Bookings, triple.Tables, triple.Waitlist),
		IsLoading:        !triple.Complete() && errMsg == "",
		Error:            errMsg,
		ConnectionStatus: conn,
		IsConnected:      conn.Overall == domain.StatusConnected,
		LastUpdate:       lastUpdate,
	}
}

// Refresh invalidates all three snapshots, the only mutator exposed to
// consumers. Refetches run on the session's own context, not the caller's,
// so an aborted request cannot cancel them mid-flight.
func (s *Session) Refresh() {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return
	}

	s.touch()
	s.bus.InvalidateAll(ctx)
}

// Overall returns the current aggregated connection status.
func (s *Session) Overall() domain.ConnectionStatus {
	return s.tracker.Snapshot().Overall
}

// Close tears the session down: channels, poller, statuses, cache. Safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	s.channels.CloseTenant(s.tenantID)
	if s.poller != nil {
		s.poller.Stop()
	}
	s.tracker.Reset()
	s.cache.Clear()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUpdate = time.Now()
	s.mu.Unlock()
}
