package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	redisx "github.com/kirinyoku/floorsync/internal/redis"
)

// ChangesPubSub publishes change notifications for one tenant's entity
// classes. The sync core only subscribes; publishing is for the write side
// and for integration tests.
type ChangesPubSub struct {
	rdb *redis.Client
}

func NewChangesPubSub(rdb *redis.Client) *ChangesPubSub {
	return &ChangesPubSub{rdb: rdb}
}

// ChangeMsg is the wire format of one change notification. Any change type
// invalidates the whole entity snapshot, so the payload carries no row data.
type ChangeMsg struct {
	Type     string `json:"type"`
	Entity   string `json:"entity"`
	TenantID string `json:"tenant_id"`
	RecordID string `json:"record_id,omitempty"`
	TsUnix   int64  `json:"ts_unix"`
}

func (p *ChangesPubSub) PublishChange(ctx context.Context, entity, tenantID, recordID string) error {
	msg := ChangeMsg{
		Type:     "entity_changed",
		Entity:   entity,
		TenantID: tenantID,
		RecordID: recordID,
		TsUnix:   time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, redisx.ChannelEntityChanged(entity, tenantID), b).Err()
}

// DecodeChangeMsg parses a raw pub/sub payload. A malformed payload returns
// false and is dropped by the subscriber.
func DecodeChangeMsg(payload string) (ChangeMsg, bool) {
	var msg ChangeMsg
	if err := json.Unmarshal([]byte(payload), &msg); err != nil || msg.Entity == "" {
		return ChangeMsg{}, false
	}

	return msg, true
}
