package livesync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/floorsync/internal/realtime"
)

func newTestManager() (*Manager, *fakeTransport) {
	transport := newFakeTransport()
	creds := &credsMock{
		credential: func(context.Context) (string, error) { return "cred", nil },
	}

	m := NewManager(
		Config{},
		&fetchersMock{},
		transport,
		creds,
		realtime.NewStreamHub(8),
		discardLogger(),
	)

	return m, transport
}

func TestManager_Session(t *testing.T) {
	m, transport := newTestManager()
	defer m.CloseAll()

	t.Run("empty tenant is rejected", func(t *testing.T) {
		_, err := m.Session("")
		assert.ErrorIs(t, err, ErrNoTenant)
	})

	t.Run("same tenant reuses the session", func(t *testing.T) {
		s1, err := m.Session("t1")
		require.NoError(t, err)

		s2, err := m.Session("t1")
		require.NoError(t, err)

		assert.Same(t, s1, s2)
		assert.Equal(t, int64(3), transport.calls.Load(), "channels open once per tenant")
	})

	t.Run("different tenants get separate sessions", func(t *testing.T) {
		s1, _ := m.Session("t1")
		s2, err := m.Session("t2")
		require.NoError(t, err)

		assert.NotSame(t, s1, s2)
	})
}

func TestManager_CloseTenant(t *testing.T) {
	m, _ := newTestManager()
	defer m.CloseAll()

	s1, err := m.Session("t1")
	require.NoError(t, err)

	m.CloseTenant("t1")
	m.CloseTenant("t1") // unknown tenant is a no-op

	s2, err := m.Session("t1")
	require.NoError(t, err)
	assert.NotSame(t, s1, s2, "a closed tenant starts over with a fresh session")
}

func TestManager_CloseAll(t *testing.T) {
	m, _ := newTestManager()

	_, err := m.Session("t1")
	require.NoError(t, err)
	_, err = m.Session("t2")
	require.NoError(t, err)

	m.CloseAll()

	_, err = m.Session("t3")
	assert.Error(t, err, "a closed manager accepts no new sessions")
}
