package realtime

import (
	"sync"

	"github.com/kirinyoku/floorsync/internal/domain"
)

// StreamHub fans dashboard states out to UI consumers, one buffered channel
// per listener. A listener whose buffer is full misses that state; the next
// broadcast carries the full snapshot again, so nothing stays stale.
type StreamHub struct {
	mu        sync.RWMutex
	listeners map[string]map[uint64]chan domain.DashboardState
	nextID    uint64
	bufSize   int
}

func NewStreamHub(bufSize int) *StreamHub {
	if bufSize <= 0 {
		bufSize = 8
	}

	return &StreamHub{
		listeners: make(map[string]map[uint64]chan domain.DashboardState),
		bufSize:   bufSize,
	}
}

// Register adds a listener for one tenant's stream. Callers must
// Unregister with the returned id.
func (h *StreamHub) Register(tenantID string) (uint64, <-chan domain.DashboardState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	ch := make(chan domain.DashboardState, h.bufSize)

	if h.listeners[tenantID] == nil {
		h.listeners[tenantID] = make(map[uint64]chan domain.DashboardState)
	}
	h.listeners[tenantID][id] = ch

	return id, ch
}

// Unregister removes a listener and closes its channel. Unknown ids are
// ignored.
func (h *StreamHub) Unregister(tenantID string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tl := h.listeners[tenantID]
	if tl == nil {
		return
	}

	if ch, ok := tl[id]; ok {
		delete(tl, id)
		close(ch)
	}

	if len(tl) == 0 {
		delete(h.listeners, tenantID)
	}
}

// Broadcast delivers a state to every listener of the tenant, best effort.
func (h *StreamHub) Broadcast(tenantID string, state domain.DashboardState) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.listeners[tenantID] {
		select {
		case ch <- state:
		default:
		}
	}
}
