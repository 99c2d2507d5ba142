// Package app wires the portal together: session store, upstream client,
// per-session state registry, audit trail and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostel-portal/internal/audit"
	"hostel-portal/internal/config"
	"hostel-portal/internal/database"
	"hostel-portal/internal/event"
	"hostel-portal/internal/handler"
	"hostel-portal/internal/middleware"
	"hostel-portal/internal/router"
	"hostel-portal/internal/session"
	"hostel-portal/internal/upstream"
	"hostel-portal/internal/websocket"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cleanupFuncs := []func(){}

	// Credential storage. Redis keeps sessions across restarts; without it
	// the portal still runs, but a restart signs everyone out.
	var kv session.KV
	if cfg.RedisAddr != "" {
		redisKV, err := session.NewRedisKV(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		cleanupFuncs = append(cleanupFuncs, func() { _ = redisKV.Close() })
		kv = redisKV
		slog.Info("session store backed by redis", "addr", cfg.RedisAddr)
	} else {
		kv = session.NewMemoryKV()
		slog.Warn("no redis configured, sessions are in-memory only")
	}
	sessions := session.NewStore(kv, cfg.SessionTTL)

	bus := event.NewBus()
	client := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, sessions, bus)

	// The audit database is optional: without it the portal runs, the
	// analytics pages just report themselves unavailable.
	var trail *audit.Repository
	var recorder *audit.Recorder
	if cfg.DatabaseURL != "" {
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
		cleanupFuncs = append(cleanupFuncs, db.Close)
		trail = audit.NewRepository(db.Pool)
		recorder = audit.NewRecorder(trail)
		slog.Info("audit trail ready")
	} else {
		slog.Warn("no database configured, audit trail and analytics disabled")
	}

	registry := handler.NewRegistry(client, bus, cfg.FeedPollInterval, cfg.PreviewRoot)
	hub := websocket.NewHub(bus)

	runCtx, runCancel := context.WithCancel(context.Background())
	cleanupFuncs = append(cleanupFuncs, runCancel)
	go hub.Run(runCtx)
	go registry.Watch(runCtx)

	guard := middleware.NewGuard(sessions, cfg.SessionCookie)

	appRouter := router.New(cfg, guard, router.Handlers{
		Auth:          handler.NewAuthHandler(client, sessions, registry, recorder, cfg.SessionCookie, cfg.SessionTTL),
		Students:      handler.NewStudentsHandler(client, registry, recorder),
		Wizard:        handler.NewWizardHandler(client, registry, recorder),
		Complaints:    handler.NewComplaintsHandler(client, registry, recorder),
		Stock:         handler.NewStockHandler(client, registry, recorder),
		Notifications: handler.NewNotificationsHandler(registry, hub),
		Pages:         handler.NewPagesHandler(client, trail),
		Shell:         handler.NewShellHandler(registry),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		cleanupFuncs: cleanupFuncs,
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}
