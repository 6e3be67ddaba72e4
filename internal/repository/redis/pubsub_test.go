package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChangeMsg(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		msg, ok := DecodeChangeMsg(`{"type":"entity_changed","entity":"bookings","tenant_id":"t1","record_id":"b1","ts_unix":1756400000}`)
		require.True(t, ok)
		assert.Equal(t, "bookings", msg.Entity)
		assert.Equal(t, "t1", msg.TenantID)
		assert.Equal(t, "b1", msg.RecordID)
	})

	t.Run("record id is optional", func(t *testing.T) {
		msg, ok := DecodeChangeMsg(`{"type":"entity_changed","entity":"tables","tenant_id":"t1"}`)
		require.True(t, ok)
		assert.Empty(t, msg.RecordID)
	})

	t.Run("malformed json is dropped", func(t *testing.T) {
		_, ok := DecodeChangeMsg(`{"entity":`)
		assert.False(t, ok)
	})

	t.Run("missing entity is dropped", func(t *testing.T) {
		_, ok := DecodeChangeMsg(`{"type":"entity_changed","tenant_id":"t1"}`)
		assert.False(t, ok)
	})
}
