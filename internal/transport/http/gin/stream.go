package httpgin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kirinyoku/floorsync/internal/domain"
	"github.com/kirinyoku/floorsync/internal/livesync"
	"github.com/kirinyoku/floorsync/internal/realtime"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin is already constrained by the CORS layer; the stream carries
	// only tenant-scoped read state behind the auth middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleDashboardStream upgrades to a WebSocket and pushes the tenant's
// dashboard state on every applied refetch. The first frame is the current
// state so clients never start blank.
func handleDashboardStream(mgr *livesync.Manager, hub *realtime.StreamHub, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")

		s, err := mgr.Session(tenantID)
		if err != nil {
			respondErr(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("stream upgrade failed", "tenant_id", tenantID, "error", err)
			return
		}

		id, states := hub.Register(tenantID)

		go writeStates(conn, s, states)

		// Reader only drains control frames; any error means the client is
		// gone.
		go func() {
			defer hub.Unregister(tenantID, id)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

func writeStates(conn *websocket.Conn, s *livesync.Session, states <-chan domain.DashboardState) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	// Initial frame.
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(s.State()); err != nil {
		return
	}

	for {
		select {
		case state, ok := <-states:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(state); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
