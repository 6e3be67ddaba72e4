package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirinyoku/floorsync/internal/domain"
)

const defaultNudgeDelay = 1 * time.Second

// EventFunc is called on every raw change event for the channel's entity.
type EventFunc func(entity domain.Entity)

// StatusFunc is called on every connection status change.
type StatusFunc func(entity domain.Entity, status domain.ConnectionStatus)

// ChannelHandle owns one push subscription for one entity class. The
// component that opened it is the only one permitted to close it.
type ChannelHandle struct {
	entity   domain.Entity
	tenantID string
	sub      Subscription
	logger   *slog.Logger

	nudgeDelay time.Duration

	mu           sync.Mutex
	onEvent      EventFunc
	onStatus     StatusFunc
	onNudge      EventFunc
	status       domain.ConnectionStatus
	nudgePending bool
	closed       bool

	cancel context.CancelFunc
	done   chan struct{}
}

// OnEvent registers the invalidation callback for the channel's entity.
func (h *ChannelHandle) OnEvent(fn EventFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEvent = fn
}

// OnStatusChange registers the connection status callback.
func (h *ChannelHandle) OnStatusChange(fn StatusFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStatus = fn
}

// OnErrorNudge registers the delayed forced-invalidation callback that runs
// once, one nudge delay after a transition into the error state. It is the
// immediate recovery path, independent of the polling fallback.
func (h *ChannelHandle) OnErrorNudge(fn EventFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onNudge = fn
}

func (h *ChannelHandle) Entity() domain.Entity { return h.entity }

// Close tears the subscription down. Close is total: unsubscribe failures
// are logged and swallowed.
func (h *ChannelHandle) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	h.cancel()
	h.unsubscribe()
	<-h.done
}

func (h *ChannelHandle) unsubscribe() {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Warn("channel unsubscribe panicked",
				"entity", h.entity, "tenant_id", h.tenantID, "panic", fmt.Sprint(r))
		}
	}()

	if err := h.sub.Unsubscribe(); err != nil {
		h.logger.Warn("channel unsubscribe failed",
			"entity", h.entity, "tenant_id", h.tenantID, "error", err)
	}
}

func (h *ChannelHandle) run(ctx context.Context) {
	defer close(h.done)

	events := h.sub.Events()
	status := h.sub.Status()

	for events != nil || status != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			h.handleEvent(ev)
		case st, ok := <-status:
			if !ok {
				status = nil
				continue
			}
			h.handleStatus(st)
		}
	}
}

func (h *ChannelHandle) handleEvent(_ Event) {
	h.mu.Lock()
	fn := h.onEvent
	h.mu.Unlock()

	if fn != nil {
		fn(h.entity)
	}
}

func (h *ChannelHandle) handleStatus(ts TransportStatus) {
	s := StatusFromTransport(ts)

	h.mu.Lock()
	prev := h.status
	h.status = s
	fn := h.onStatus

	// Exactly one nudge per transition into error.
	if s == domain.StatusError && prev != domain.StatusError && !h.nudgePending {
		h.nudgePending = true
		time.AfterFunc(h.nudgeDelay, h.fireNudge)
	}
	h.mu.Unlock()

	if fn != nil {
		fn(h.entity, s)
	}
}

func (h *ChannelHandle) fireNudge() {
	h.mu.Lock()
	h.nudgePending = false
	fn := h.onNudge
	closed := h.closed
	h.mu.Unlock()

	if !closed && fn != nil {
		fn(h.entity)
	}
}

// ChannelManager opens channels and guards against a second open for the
// same entity and tenant.
type ChannelManager struct {
	transport  Transport
	logger     *slog.Logger
	nudgeDelay time.Duration

	mu   sync.Mutex
	open map[string]*ChannelHandle
}

func NewChannelManager(transport Transport, logger *slog.Logger) *ChannelManager {
	return &ChannelManager{
		transport:  transport,
		logger:     logger,
		nudgeDelay: defaultNudgeDelay,
		open:       make(map[string]*ChannelHandle),
	}
}

// Open opens the channel for entity+tenant, or returns the live handle when
// one is already open (idempotent open).
func (m *ChannelManager) Open(ctx context.Context, entity domain.Entity, tenantID, credential string) (*ChannelHandle, error) {
	const op = "realtime.ChannelManager.Open"

	key := string(entity) + "|" + tenantID

	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.open[key]; ok {
		h.mu.Lock()
		closed := h.closed
		h.mu.Unlock()
		if !closed {
			return h, nil
		}
	}

	sub, err := m.transport.Channel(ctx, entity, tenantID, credential)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	h := &ChannelHandle{
		entity:     entity,
		tenantID:   tenantID,
		sub:        sub,
		logger:     m.logger,
		nudgeDelay: m.nudgeDelay,
		status:     domain.StatusDisconnected,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	go h.run(runCtx)

	m.open[key] = h

	return h, nil
}

// CloseTenant closes every open channel for one tenant.
func (m *ChannelManager) CloseTenant(tenantID string) {
	m.mu.Lock()
	var handles []*ChannelHandle
	for key, h := range m.open {
		if h.tenantID == tenantID {
			handles = append(handles, h)
			delete(m.open, key)
		}
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
}
