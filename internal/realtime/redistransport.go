package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirinyoku/floorsync/internal/domain"
	redisx "github.com/kirinyoku/floorsync/internal/redis"
	redisrepo "github.com/kirinyoku/floorsync/internal/repository/redis"
)

// RedisTransport delivers change notifications over Redis pub/sub. One
// subscription per entity class per tenant; the server side scopes events
// by publishing to a tenant-suffixed channel.
type RedisTransport struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewRedisTransport(rdb *redis.Client, logger *slog.Logger) *RedisTransport {
	return &RedisTransport{rdb: rdb, logger: logger}
}

func (t *RedisTransport) Channel(ctx context.Context, entity domain.Entity, tenantID, _ string) (Subscription, error) {
	name := redisx.ChannelEntityChanged(string(entity), tenantID)
	sub := t.rdb.Subscribe(ctx, name)

	s := &redisSubscription{
		sub:    sub,
		events: make(chan Event, 64),
		status: make(chan TransportStatus, 8),
	}

	s.pushStatus(TransportConnecting)

	go s.run(ctx, entity, tenantID, t.logger)

	return s, nil
}

type redisSubscription struct {
	sub    *redis.PubSub
	events chan Event
	status chan TransportStatus
}

func (s *redisSubscription) Events() <-chan Event { return s.events }

func (s *redisSubscription) Status() <-chan TransportStatus { return s.status }

func (s *redisSubscription) Unsubscribe() error {
	return s.sub.Close()
}

// pushStatus never blocks; a full status buffer drops the oldest state in
// favor of the newest.
func (s *redisSubscription) pushStatus(st TransportStatus) {
	for {
		select {
		case s.status <- st:
			return
		default:
			select {
			case <-s.status:
			default:
			}
		}
	}
}

func (s *redisSubscription) run(ctx context.Context, entity domain.Entity, tenantID string, logger *slog.Logger) {
	defer close(s.events)
	defer close(s.status)

	// The first Receive resolves the subscribe confirmation.
	if _, err := s.sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			s.pushStatus(TransportClosed)
			return
		}
		logger.Error("subscribe failed", "entity", entity, "tenant_id", tenantID, "error", err)
		s.pushStatus(TransportChannelError)
		return
	}

	s.pushStatus(TransportSubscribed)

	ch := s.sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			s.pushStatus(TransportClosed)
			return
		case m, ok := <-ch:
			if !ok {
				s.pushStatus(TransportClosed)
				return
			}

			msg, ok := redisrepo.DecodeChangeMsg(m.Payload)
			if !ok {
				continue
			}

			select {
			case s.events <- Event{
				Entity:   entity,
				TenantID: tenantID,
				RecordID: msg.RecordID,
				At:       time.Now(),
			}:
			default:
				// Slow consumer: dropping is safe, any later event
				// triggers the same whole-snapshot invalidation.
			}
		}
	}
}
