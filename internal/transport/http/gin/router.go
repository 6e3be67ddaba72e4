package httpgin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/floorsync/internal/auth"
	"github.com/kirinyoku/floorsync/internal/livesync"
	"github.com/kirinyoku/floorsync/internal/realtime"
	redisrepo "github.com/kirinyoku/floorsync/internal/repository/redis"
)

func NewRouter(
	mgr *livesync.Manager,
	hub *realtime.StreamHub,
	authp *auth.Provider,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	tenants := r.Group("/tenants/:id", AuthMiddleware(authp))
	{
		tenants.GET("/dashboard", handleGetDashboard(mgr))
		tenants.POST("/dashboard/refresh", handleRefreshDashboard(mgr, limiter))
		tenants.DELETE("/dashboard", handleCloseDashboard(mgr))
		tenants.GET("/dashboard/stream", handleDashboardStream(mgr, hub, logger))
	}

	return r
}

// --- Handlers ---

func handleGetDashboard(mgr *livesync.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := mgr.Session(c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}

		// The state is live; a short ETag window still spares pollers the
		// unchanged payloads.
		writeJSONWithCache(c, http.StatusOK, s.State(), "private, max-age=5", true)
	}
}

func handleRefreshDashboard(mgr *livesync.Manager, limiter *redisrepo.SlidingWindowLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")

		if limiter != nil {
			ok, _, retry, err := limiter.Allow(c.Request.Context(), "tenant:"+tenantID)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !ok {
				c.Header("Retry-After", retry.String())
				c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "refresh rate limited"})
				return
			}
		}

		s, err := mgr.Session(tenantID)
		if err != nil {
			respondErr(c, err)
			return
		}

		s.Refresh()

		c.JSON(http.StatusAccepted, RefreshResponse{Status: "refreshing"})
	}
}

func handleCloseDashboard(mgr *livesync.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		mgr.CloseTenant(c.Param("id"))
		c.Status(http.StatusNoContent)
	}
}

func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, livesync.ErrNoTenant):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing tenant"})
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNoCredential):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
