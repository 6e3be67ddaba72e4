package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/floorsync/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type subscriptionMock struct {
	events      chan Event
	status      chan TransportStatus
	unsubscribe func() error
}

func newSubscriptionMock() *subscriptionMock {
	return &subscriptionMock{
		events: make(chan Event, 8),
		status: make(chan TransportStatus, 8),
	}
}

func (s *subscriptionMock) Events() <-chan Event           { return s.events }
func (s *subscriptionMock) Status() <-chan TransportStatus { return s.status }

func (s *subscriptionMock) Unsubscribe() error {
	if s.unsubscribe != nil {
		return s.unsubscribe()
	}
	return nil
}

type transportMock struct {
	channel func(ctx context.Context, entity domain.Entity, tenantID, credential string) (Subscription, error)
	calls   atomic.Int64
}

func (t *transportMock) Channel(ctx context.Context, entity domain.Entity, tenantID, credential string) (Subscription, error) {
	t.calls.Add(1)
	return t.channel(ctx, entity, tenantID, credential)
}

func TestChannelManager_OpenIsIdempotent(t *testing.T) {
	sub := newSubscriptionMock()
	tr := &transportMock{
		channel: func(context.Context, domain.Entity, string, string) (Subscription, error) {
			return sub, nil
		},
	}
	m := NewChannelManager(tr, discardLogger())

	h1, err := m.Open(context.Background(), domain.EntityBookings, "t1", "cred")
	require.NoError(t, err)

	h2, err := m.Open(context.Background(), domain.EntityBookings, "t1", "cred")
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, int64(1), tr.calls.Load())

	m.CloseTenant("t1")
}

func TestChannelManager_OpenPropagatesTransportError(t *testing.T) {
	tr := &transportMock{
		channel: func(context.Context, domain.Entity, string, string) (Subscription, error) {
			return nil, errors.New("broker down")
		},
	}
	m := NewChannelManager(tr, discardLogger())

	_, err := m.Open(context.Background(), domain.EntityTables, "t1", "cred")
	assert.ErrorContains(t, err, "broker down")
}

func TestChannelHandle_EventsInvokeCallback(t *testing.T) {
	sub := newSubscriptionMock()
	tr := &transportMock{
		channel: func(context.Context, domain.Entity, string, string) (Subscription, error) {
			return sub, nil
		},
	}
	m := NewChannelManager(tr, discardLogger())

	h, err := m.Open(context.Background(), domain.EntityBookings, "t1", "cred")
	require.NoError(t, err)
	defer m.CloseTenant("t1")

	var events atomic.Int64
	h.OnEvent(func(e domain.Entity) {
		assert.Equal(t, domain.EntityBookings, e)
		events.Add(1)
	})

	sub.events <- Event{Entity: domain.EntityBookings, TenantID: "t1", RecordID: "b1"}
	sub.events <- Event{Entity: domain.EntityBookings, TenantID: "t1", RecordID: "b2"}

	require.Eventually(t, func() bool { return events.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestChannelHandle_ErrorNudgeFiresOncePerTransition(t *testing.T) {
	sub := newSubscriptionMock()
	tr := &transportMock{
		channel: func(context.Context, domain.Entity, string, string) (Subscription, error) {
			return sub, nil
		},
	}
	m := NewChannelManager(tr, discardLogger())
	m.nudgeDelay = 10 * time.Millisecond

	h, err := m.Open(context.Background(), domain.EntityBookings, "t1", "cred")
	require.NoError(t, err)
	defer m.CloseTenant("t1")

	var nudges atomic.Int64
	h.OnErrorNudge(func(domain.Entity) { nudges.Add(1) })

	var statuses atomic.Int64
	h.OnStatusChange(func(domain.Entity, domain.ConnectionStatus) { statuses.Add(1) })

	// Repeated error reports within one outage are a single transition.
	sub.status <- TransportChannelError
	sub.status <- TransportChannelError
	sub.status <- TransportTimedOut

	require.Eventually(t, func() bool { return statuses.Load() == 3 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return nudges.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int64(1), nudges.Load())

	// Recovery and a fresh failure is a new transition, so one more nudge.
	sub.status <- TransportSubscribed
	sub.status <- TransportChannelError

	require.Eventually(t, func() bool { return nudges.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestChannelHandle_CloseSwallowsUnsubscribeError(t *testing.T) {
	sub := newSubscriptionMock()
	sub.unsubscribe = func() error { return errors.New("already gone") }

	tr := &transportMock{
		channel: func(context.Context, domain.Entity, string, string) (Subscription, error) {
			return sub, nil
		},
	}
	m := NewChannelManager(tr, discardLogger())

	h, err := m.Open(context.Background(), domain.EntityBookings, "t1", "cred")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		h.Close()
		h.Close() // second close is a no-op
	})
}

func TestChannelManager_CloseTenantClosesAllChannels(t *testing.T) {
	var unsubs atomic.Int64
	tr := &transportMock{
		channel: func(context.Context, domain.Entity, string, string) (Subscription, error) {
			sub := newSubscriptionMock()
			sub.unsubscribe = func() error {
				unsubs.Add(1)
				return nil
			}
			return sub, nil
		},
	}
	m := NewChannelManager(tr, discardLogger())

	for _, e := range domain.Entities() {
		_, err := m.Open(context.Background(), e, "t1", "cred")
		require.NoError(t, err)
	}
	_, err := m.Open(context.Background(), domain.EntityBookings, "t2", "cred")
	require.NoError(t, err)

	m.CloseTenant("t1")

	assert.Equal(t, int64(3), unsubs.Load())

	// t2 stays open and its slot is still occupied.
	before := tr.calls.Load()
	_, err = m.Open(context.Background(), domain.EntityBookings, "t2", "cred")
	require.NoError(t, err)
	assert.Equal(t, before, tr.calls.Load())

	m.CloseTenant("t2")
}
