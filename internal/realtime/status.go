package realtime

import (
	"sync"

	"github.com/kirinyoku/floorsync/internal/domain"
)

// StatusTracker holds the latest status per channel and derives the single
// user-visible overall status. Updates are last-write-wins per channel.
type StatusTracker struct {
	mu       sync.Mutex
	statuses map[domain.Entity]domain.ConnectionStatus
}

func NewStatusTracker() *StatusTracker {
	t := &StatusTracker{}
	t.Reset()
	return t
}

func (t *StatusTracker) Update(entity domain.Entity, status domain.ConnectionStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.statuses[entity] = status
}

// MarkAllError flags every channel as failed, used when credential setup
// short-circuits before any subscription is attempted.
func (t *StatusTracker) MarkAllError() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range domain.Entities() {
		t.statuses[e] = domain.StatusError
	}
}

// Reset returns every channel to disconnected, the teardown state.
func (t *StatusTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.statuses = map[domain.Entity]domain.ConnectionStatus{
		domain.EntityBookings: domain.StatusDisconnected,
		domain.EntityTables:   domain.StatusDisconnected,
		domain.EntityWaitlist: domain.StatusDisconnected,
	}
}

func (t *StatusTracker) Snapshot() domain.ConnectionSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	bookings := t.statuses[domain.EntityBookings]
	tables := t.statuses[domain.EntityTables]
	waitlist := t.statuses[domain.EntityWaitlist]

	return domain.ConnectionSnapshot{
		Bookings: bookings,
		Tables:   tables,
		Waitlist: waitlist,
		Overall:  Aggregate(bookings, tables, waitlist),
	}
}

// Aggregate derives the overall status from the three per-channel statuses.
// Two of three connected count as connected: the waitlist channel is a
// best-effort proxy over the bookings table and must not by itself degrade
// the user-visible status.
func Aggregate(bookings, tables, waitlist domain.ConnectionStatus) domain.ConnectionStatus {
	connected := 0
	hasError := false

	for _, s := range []domain.ConnectionStatus{bookings, tables, waitlist} {
		switch s {
		case domain.StatusConnected:
			connected++
		case domain.StatusError:
			hasError = true
		}
	}

	switch {
	case connected >= 2:
		return domain.StatusConnected
	case connected >= 1:
		return domain.StatusConnecting
	case hasError:
		return domain.StatusError
	default:
		return domain.StatusDisconnected
	}
}
