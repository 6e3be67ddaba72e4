package livesync

import (
	"sync"
	"time"

	"github.com/kirinyoku/floorsync/internal/domain"
)

const defaultSnapshotTTL = 5 * time.Minute

// Triple is one consistent read of all three entity snapshots. Metrics are
// always projected from a single Triple, never from mixed reads.
type Triple struct {
	Bookings []domain.Booking
	Tables   []domain.TableWithStatus
	Waitlist []domain.WaitlistEntry

	HasBookings bool
	HasTables   bool
	HasWaitlist bool

	Generation uint64
}

// Complete reports whether every entity has been fetched at least once.
func (t Triple) Complete() bool {
	return t.HasBookings && t.HasTables && t.HasWaitlist
}

// TenantCache holds the current snapshot per entity for one tenant. Writers
// replace values wholesale; there is no partial patching. Every replace
// bumps the generation, so readers can tell one consistent state from the
// next.
type TenantCache struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time

	gen uint64

	bookings   []domain.Booking
	bookingsAt time.Time

	tables   []domain.TableWithStatus
	tablesAt time.Time

	waitlist   []domain.WaitlistEntry
	waitlistAt time.Time
}

func NewTenantCache(ttl time.Duration) *TenantCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}

	return &TenantCache{
		ttl: ttl,
		now: time.Now,
	}
}

func (c *TenantCache) ReplaceBookings(bs []domain.Booking) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bookings = bs
	c.bookingsAt = c.now()
	c.gen++
}

func (c *TenantCache) ReplaceTables(ts []domain.TableWithStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tables = ts
	c.tablesAt = c.now()
	c.gen++
}

func (c *TenantCache) ReplaceWaitlist(ws []domain.WaitlistEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waitlist = ws
	c.waitlistAt = c.now()
	c.gen++
}

// Read returns all three snapshots under one lock.
func (c *TenantCache) Read() Triple {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Triple{
		Bookings:    c.bookings,
		Tables:      c.tables,
		Waitlist:    c.waitlist,
		HasBookings: !c.bookingsAt.IsZero(),
		HasTables:   !c.tablesAt.IsZero(),
		HasWaitlist: !c.waitlistAt.IsZero(),
		Generation:  c.gen,
	}
}

// Fresh reports whether the entity's snapshot is younger than the TTL. A
// stale snapshot stays visible; freshness only drives background refreshes.
func (c *TenantCache) Fresh(entity domain.Entity) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var at time.Time
	switch entity {
	case domain.EntityBookings:
		at = c.bookingsAt
	case domain.EntityTables:
		at = c.tablesAt
	case domain.EntityWaitlist:
		at = c.waitlistAt
	}

	if at.IsZero() {
		return false
	}

	return c.now().Sub(at) < c.ttl
}

// Clear drops every snapshot, the teardown state on tenant change.
func (c *TenantCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bookings = nil
	c.tables = nil
	c.waitlist = nil
	c.bookingsAt = time.Time{}
	c.tablesAt = time.Time{}
	c.waitlistAt = time.Time{}
	c.gen++
}
