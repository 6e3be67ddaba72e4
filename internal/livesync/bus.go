package livesync

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kirinyoku/floorsync/internal/domain"
)

// Fetchers are the three keyed snapshot queries. Each is independently
// retryable; the bus never cares how a fetcher recovers.
type Fetchers interface {
	FetchBookings(ctx context.Context, tenantID string) ([]domain.Booking, error)
	FetchTables(ctx context.Context, tenantID string) ([]domain.TableWithStatus, error)
	FetchWaitlist(ctx context.Context, tenantID string) ([]domain.WaitlistEntry, error)
}

// Bus turns invalidation signals into snapshot refetches. Invalidation is a
// signal, not a value transfer: the stale snapshot stays visible until the
// refetch lands.
//
// Three producers invalidate concurrently (channel events, the error
// recovery nudge, the polling fallback). Per entity, concurrent triggers
// collapse into one in-flight fetch, and an invalidation arriving while a
// fetch is in flight causes exactly one more fetch afterwards, so the most
// recent invalidation always wins.
type Bus struct {
	tenantID string
	cache    *TenantCache
	fetch    Fetchers
	logger   *slog.Logger

	sf singleflight.Group

	mu        sync.Mutex
	requested map[domain.Entity]uint64
	applied   map[domain.Entity]uint64
	lastErr   map[domain.Entity]error
	onApplied func()
}

func NewBus(tenantID string, cache *TenantCache, fetch Fetchers, logger *slog.Logger) *Bus {
	return &Bus{
		tenantID:  tenantID,
		cache:     cache,
		fetch:     fetch,
		logger:    logger,
		requested: make(map[domain.Entity]uint64),
		applied:   make(map[domain.Entity]uint64),
		lastErr:   make(map[domain.Entity]error),
	}
}

// OnApplied registers a callback invoked after every applied refetch,
// successful or not. Used to push fresh state to stream consumers.
func (b *Bus) OnApplied(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onApplied = fn
}

// Invalidate marks the entity snapshot stale and triggers a refetch.
func (b *Bus) Invalidate(ctx context.Context, entity domain.Entity) {
	b.mu.Lock()
	b.requested[entity]++
	b.mu.Unlock()

	go b.refresh(ctx, entity)
}

// InvalidateAll invalidates all three entity snapshots.
func (b *Bus) InvalidateAll(ctx context.Context) {
	for _, e := range domain.Entities() {
		b.Invalidate(ctx, e)
	}
}

// LastError returns the most recent terminal fetch error. Ordinary waitlist
// failures degrade silently and never land here; waitlist authorization
// failures are terminal like everyone else's.
func (b *Bus) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range domain.Entities() {
		if err := b.lastErr[e]; err != nil {
			return err
		}
	}

	return nil
}

func (b *Bus) refresh(ctx context.Context, entity domain.Entity) {
	for {
		if ctx.Err() != nil {
			return
		}

		b.mu.Lock()
		pending := b.requested[entity] > b.applied[entity]
		b.mu.Unlock()

		if !pending {
			return
		}

		// singleflight keeps at most one fetch in flight per entity; the
		// outer loop re-checks so a request that arrived mid-flight still
		// gets its own fetch.
		_, _, _ = b.sf.Do(string(entity), func() (any, error) {
			b.mu.Lock()
			target := b.requested[entity]
			b.mu.Unlock()

			err := b.fetchAndStore(ctx, entity)

			b.mu.Lock()
			if target > b.applied[entity] {
				b.applied[entity] = target
			}
			if err != nil {
				b.lastErr[entity] = err
			} else {
				delete(b.lastErr, entity)
			}
			fn := b.onApplied
			b.mu.Unlock()

			if fn != nil {
				fn()
			}

			return nil, err
		})
	}
}

func (b *Bus) fetchAndStore(ctx context.Context, entity domain.Entity) error {
	switch entity {
	case domain.EntityBookings:
		bs, err := b.fetch.FetchBookings(ctx, b.tenantID)
		if err != nil {
			b.logger.Error("bookings refetch failed", "tenant_id", b.tenantID, "error", err)
			return err
		}
		b.cache.ReplaceBookings(bs)
	case domain.EntityTables:
		ts, err := b.fetch.FetchTables(ctx, b.tenantID)
		if err != nil {
			b.logger.Error("tables refetch failed", "tenant_id", b.tenantID, "error", err)
			return err
		}
		b.cache.ReplaceTables(ts)
	case domain.EntityWaitlist:
		ws, err := b.fetch.FetchWaitlist(ctx, b.tenantID)
		if err != nil {
			// A revoked credential must surface, not blank the list.
			if IsAuthError(err) {
				b.logger.Error("waitlist refetch failed on authorization", "tenant_id", b.tenantID, "error", err)
				return err
			}
			// Anything else is best effort; the waitlist degrades to empty
			// and must never blank the rest of the dashboard.
			b.logger.Warn("waitlist refetch failed, degrading to empty", "tenant_id", b.tenantID, "error", err)
			b.cache.ReplaceWaitlist(nil)
			return nil
		}
		b.cache.ReplaceWaitlist(ws)
	}

	return nil
}
