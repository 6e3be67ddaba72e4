package realtime

import (
	"context"
	"time"

	"github.com/kirinyoku/floorsync/internal/domain"
)

// TransportStatus is a lifecycle state as the push backend reports it.
// Mapping to the user-facing domain.ConnectionStatus happens in the
// channel handle.
type TransportStatus string

const (
	TransportConnecting   TransportStatus = "CONNECTING"
	TransportSubscribed   TransportStatus = "SUBSCRIBED"
	TransportTimedOut     TransportStatus = "TIMED_OUT"
	TransportChannelError TransportStatus = "CHANNEL_ERROR"
	TransportClosed       TransportStatus = "CLOSED"
)

// Event is one raw change notification. There is no field-level filtering:
// any change invalidates the whole entity snapshot.
type Event struct {
	Entity   domain.Entity
	TenantID string
	RecordID string
	At       time.Time
}

// Subscription is one live push subscription. Both channels are closed when
// the subscription ends.
type Subscription interface {
	Events() <-chan Event
	Status() <-chan TransportStatus
	Unsubscribe() error
}

// Transport opens push subscriptions. The credential comes from the auth
// provider; setup without one must never reach the transport.
type Transport interface {
	Channel(ctx context.Context, entity domain.Entity, tenantID, credential string) (Subscription, error)
}

// StatusFromTransport maps a transport lifecycle state onto the per-channel
// connection status.
func StatusFromTransport(s TransportStatus) domain.ConnectionStatus {
	switch s {
	case TransportSubscribed:
		return domain.StatusConnected
	case TransportTimedOut, TransportChannelError, TransportClosed:
		return domain.StatusError
	case TransportConnecting:
		return domain.StatusConnecting
	default:
		return domain.StatusDisconnected
	}
}
