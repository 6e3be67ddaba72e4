package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kirinyoku/floorsync/internal/domain"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		bookings domain.ConnectionStatus
		tables   domain.ConnectionStatus
		waitlist domain.ConnectionStatus
		want     domain.ConnectionStatus
	}{
		{"all connected", domain.StatusConnected, domain.StatusConnected, domain.StatusConnected, domain.StatusConnected},
		{"two connected one error", domain.StatusConnected, domain.StatusConnected, domain.StatusError, domain.StatusConnected},
		{"two connected one disconnected", domain.StatusConnected, domain.StatusDisconnected, domain.StatusConnected, domain.StatusConnected},
		{"one connected rest connecting", domain.StatusConnected, domain.StatusConnecting, domain.StatusConnecting, domain.StatusConnecting},
		{"one connected one error", domain.StatusConnected, domain.StatusError, domain.StatusError, domain.StatusConnecting},
		{"all connecting", domain.StatusConnecting, domain.StatusConnecting, domain.StatusConnecting, domain.StatusDisconnected},
		{"all error", domain.StatusError, domain.StatusError, domain.StatusError, domain.StatusError},
		{"one error rest disconnected", domain.StatusDisconnected, domain.StatusError, domain.StatusDisconnected, domain.StatusError},
		{"one error rest connecting", domain.StatusConnecting, domain.StatusError, domain.StatusConnecting, domain.StatusError},
		{"all disconnected", domain.StatusDisconnected, domain.StatusDisconnected, domain.StatusDisconnected, domain.StatusDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.bookings, tt.tables, tt.waitlist)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Every one of the 4^3 status combinations, checked against the precedence
// rule: a two-channel connected quorum wins, a single connected channel
// means connecting, any error without a connected channel means error, and
// only a fully silent set is disconnected.
func TestAggregate_AllCombinations(t *testing.T) {
	all := []domain.ConnectionStatus{
		domain.StatusDisconnected,
		domain.StatusConnecting,
		domain.StatusConnected,
		domain.StatusError,
	}

	expected := func(statuses ...domain.ConnectionStatus) domain.ConnectionStatus {
		connected := 0
		hasError := false
		for _, s := range statuses {
			if s == domain.StatusConnected {
				connected++
			}
			if s == domain.StatusError {
				hasError = true
			}
		}

		switch {
		case connected >= 2:
			return domain.StatusConnected
		case connected == 1:
			return domain.StatusConnecting
		case hasError:
			return domain.StatusError
		default:
			return domain.StatusDisconnected
		}
	}

	for _, bookings := range all {
		for _, tables := range all {
			for _, waitlist := range all {
				got := Aggregate(bookings, tables, waitlist)
				assert.Equal(t, expected(bookings, tables, waitlist), got,
					"bookings=%s tables=%s waitlist=%s", bookings, tables, waitlist)
			}
		}
	}
}

// Two connected channels always win, no matter what the third reports.
func TestAggregate_QuorumBeatsError(t *testing.T) {
	third := []domain.ConnectionStatus{
		domain.StatusDisconnected,
		domain.StatusConnecting,
		domain.StatusConnected,
		domain.StatusError,
	}

	for _, s := range third {
		got := Aggregate(domain.StatusConnected, domain.StatusConnected, s)
		assert.Equal(t, domain.StatusConnected, got, "third channel %s must not break the quorum", s)
	}
}

func TestStatusTracker(t *testing.T) {
	t.Run("starts disconnected", func(t *testing.T) {
		tr := NewStatusTracker()

		snap := tr.Snapshot()
		assert.Equal(t, domain.StatusDisconnected, snap.Bookings)
		assert.Equal(t, domain.StatusDisconnected, snap.Tables)
		assert.Equal(t, domain.StatusDisconnected, snap.Waitlist)
		assert.Equal(t, domain.StatusDisconnected, snap.Overall)
	})

	t.Run("update is last write wins", func(t *testing.T) {
		tr := NewStatusTracker()

		tr.Update(domain.EntityBookings, domain.StatusConnecting)
		tr.Update(domain.EntityBookings, domain.StatusConnected)
		tr.Update(domain.EntityTables, domain.StatusConnected)

		snap := tr.Snapshot()
		assert.Equal(t, domain.StatusConnected, snap.Bookings)
		assert.Equal(t, domain.StatusConnected, snap.Overall)
	})

	t.Run("mark all error", func(t *testing.T) {
		tr := NewStatusTracker()
		tr.Update(domain.EntityBookings, domain.StatusConnected)

		tr.MarkAllError()

		snap := tr.Snapshot()
		assert.Equal(t, domain.StatusError, snap.Bookings)
		assert.Equal(t, domain.StatusError, snap.Tables)
		assert.Equal(t, domain.StatusError, snap.Waitlist)
		assert.Equal(t, domain.StatusError, snap.Overall)
	})

	t.Run("reset returns to disconnected", func(t *testing.T) {
		tr := NewStatusTracker()
		tr.MarkAllError()

		tr.Reset()

		snap := tr.Snapshot()
		assert.Equal(t, domain.StatusDisconnected, snap.Overall)
	})
}

func TestStatusFromTransport(t *testing.T) {
	tests := []struct {
		in   TransportStatus
		want domain.ConnectionStatus
	}{
		{TransportConnecting, domain.StatusConnecting},
		{TransportSubscribed, domain.StatusConnected},
		{TransportTimedOut, domain.StatusError},
		{TransportChannelError, domain.StatusError},
		{TransportClosed, domain.StatusError},
		{TransportStatus("SOMETHING_NEW"), domain.StatusDisconnected},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFromTransport(tt.in), "status %s", tt.in)
	}
}
