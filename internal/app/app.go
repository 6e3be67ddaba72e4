package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/floorsync/internal/auth"
	"github.com/kirinyoku/floorsync/internal/config"
	"github.com/kirinyoku/floorsync/internal/livesync"
	"github.com/kirinyoku/floorsync/internal/postgres"
	"github.com/kirinyoku/floorsync/internal/realtime"
	redisx "github.com/kirinyoku/floorsync/internal/redis"
	postgresrepo "github.com/kirinyoku/floorsync/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/floorsync/internal/repository/redis"
	httpgin "github.com/kirinyoku/floorsync/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	manager    *livesync.Manager
	pool       *pgxpool.Pool
	rdb        *goredis.Client
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redisx.New(context.Background(), redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Initialize the sync core
	store := postgresrepo.NewStore(pgxPool)
	queries := livesync.NewQueries(store, logger)
	transport := realtime.NewRedisTransport(rdb, logger)
	authp := auth.New(cfg.Auth.JWTSecret, cfg.Auth.ServiceToken)
	hub := realtime.NewStreamHub(8)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, redisx.PrefixRateLimit, 10, 1*time.Minute)

	manager := livesync.NewManager(livesync.Config{
		RevenuePerCover: cfg.Sync.RevenuePerCover,
		SnapshotTTL:     cfg.Sync.SnapshotTTL,
	}, queries, transport, authp, hub, logger)

	// Initialize Gin router
	router := httpgin.NewRouter(manager, hub, authp, limiter, logger)

	return &App{
		cfg:     cfg,
		logger:  logger,
		manager: manager,
		pool:    pgxPool,
		rdb:     rdb,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down")

		a.manager.CloseAll()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := a.httpServer.Shutdown(ctx)

		a.pool.Close()
		_ = a.rdb.Close()

		return err
	})

	return g.Wait()
}
