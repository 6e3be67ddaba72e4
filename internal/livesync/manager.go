package livesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirinyoku/floorsync/internal/realtime"
)

// ErrNoTenant means no tenant context is available; the core does nothing
// without one.
var ErrNoTenant = errors.New("no tenant")

type Config struct {
	RevenuePerCover float64
	SnapshotTTL     time.Duration
}

// Manager owns one sync session per tenant. Sessions start lazily on first
// use and live until the tenant is closed or the manager shuts down.
type Manager struct {
	cfg      Config
	fetch    Fetchers
	channels *realtime.ChannelManager
	creds    CredentialProvider
	hub      *realtime.StreamHub
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

func NewManager(
	cfg Config,
	fetch Fetchers,
	transport realtime.Transport,
	creds CredentialProvider,
	hub *realtime.StreamHub,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		cfg:      cfg,
		fetch:    fetch,
		channels: realtime.NewChannelManager(transport, logger),
		creds:    creds,
		hub:      hub,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Session returns the tenant's sync session, starting one when none is
// live yet.
func (m *Manager) Session(tenantID string) (*Session, error) {
	const op = "livesync.Manager.Session"

	if tenantID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoTenant)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("%s: manager is closed", op)
	}

	if s, ok := m.sessions[tenantID]; ok {
		return s, nil
	}

	cache := NewTenantCache(m.cfg.SnapshotTTL)

	s := &Session{
		tenantID:  tenantID,
		cache:     cache,
		bus:       NewBus(tenantID, cache, m.fetch, m.logger),
		tracker:   realtime.NewStatusTracker(),
		channels:  m.channels,
		projector: NewProjector(m.cfg.RevenuePerCover),
		creds:     m.creds,
		hub:       m.hub,
		logger:    m.logger,
	}
	// Sessions outlive the request that started them; teardown happens on
	// CloseTenant or CloseAll.
	s.Start(context.Background())

	m.sessions[tenantID] = s
	m.logger.Info("sync session started", "tenant_id", tenantID)

	return s, nil
}

// CloseTenant tears down one tenant's session, if any.
func (m *Manager) CloseTenant(tenantID string) {
	m.mu.Lock()
	s, ok := m.sessions[tenantID]
	delete(m.sessions, tenantID)
	m.mu.Unlock()

	if ok {
		s.Close()
		m.logger.Info("sync session closed", "tenant_id", tenantID)
	}
}

// CloseAll tears down every session; used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.closed = true
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
