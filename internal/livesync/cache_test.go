package livesync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kirinyoku/floorsync/internal/domain"
)

func TestTenantCache_ReplaceIsWholeValue(t *testing.T) {
	c := NewTenantCache(0)

	c.ReplaceBookings([]domain.Booking{{ID: "b1"}, {ID: "b2"}})
	c.ReplaceBookings([]domain.Booking{{ID: "b3"}})

	got := c.Read()
	assert.Len(t, got.Bookings, 1)
	assert.Equal(t, "b3", got.Bookings[0].ID)
}

func TestTenantCache_GenerationAdvancesOnEveryReplace(t *testing.T) {
	c := NewTenantCache(0)

	g0 := c.Read().Generation
	c.ReplaceBookings(nil)
	c.ReplaceTables(nil)
	c.ReplaceWaitlist(nil)

	assert.Equal(t, g0+3, c.Read().Generation)
}

func TestTenantCache_Complete(t *testing.T) {
	c := NewTenantCache(0)

	assert.False(t, c.Read().Complete())

	c.ReplaceBookings(nil)
	c.ReplaceTables(nil)
	assert.False(t, c.Read().Complete())

	// an explicitly empty waitlist still counts as fetched
	c.ReplaceWaitlist(nil)
	assert.True(t, c.Read().Complete())
}

func TestTenantCache_Fresh(t *testing.T) {
	c := NewTenantCache(time.Minute)

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	assert.False(t, c.Fresh(domain.EntityTables), "never fetched is never fresh")

	c.ReplaceTables(nil)
	assert.True(t, c.Fresh(domain.EntityTables))

	now = now.Add(59 * time.Second)
	assert.True(t, c.Fresh(domain.EntityTables))

	now = now.Add(2 * time.Second)
	assert.False(t, c.Fresh(domain.EntityTables), "snapshot beyond TTL is stale")
}

func TestTenantCache_Clear(t *testing.T) {
	c := NewTenantCache(0)

	c.ReplaceBookings([]domain.Booking{{ID: "b1"}})
	c.ReplaceTables([]domain.TableWithStatus{table("A", "T1", domain.TableAvailable)})
	c.ReplaceWaitlist([]domain.WaitlistEntry{{BookingID: "b1"}})

	gen := c.Read().Generation
	c.Clear()

	got := c.Read()
	assert.Empty(t, got.Bookings)
	assert.Empty(t, got.Tables)
	assert.Empty(t, got.Waitlist)
	assert.False(t, got.Complete())
	assert.Greater(t, got.Generation, gen, "clear is a state change readers must observe")
}
