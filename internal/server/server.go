// Package server wires the bot's dependencies together and runs the
// process: the Telegram poll loop plus a small HTTP surface for deployment
// platform health probes.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/minaqr/botserver/config"
	"github.com/minaqr/botserver/internal/accounts"
	"github.com/minaqr/botserver/internal/bot"
	"github.com/minaqr/botserver/internal/db"
	"github.com/minaqr/botserver/internal/events"
	"github.com/minaqr/botserver/internal/session"
	"github.com/minaqr/botserver/internal/storage"
	"github.com/minaqr/botserver/internal/store"
)

// App bundles the running pieces of the bot process.
type App struct {
	bot        *bot.Bot
	httpServer *http.Server
	db         *sql.DB
	audit      *events.Publisher
}

// New builds the full dependency graph from config.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	emblems, err := buildStorage(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	audit, err := buildPublisher(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	accountRepo := store.NewAccountRepository(dbConn)
	accountService := accounts.NewService(accountRepo)
	sessions := session.NewStore()

	dispatcher := bot.NewDispatcher(accountService, sessions, emblems, audit)
	tgBot, err := bot.NewBot(cfg.Telegram, dispatcher)
	if err != nil {
		_ = audit.Close()
		_ = dbConn.Close()
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", healthz)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		bot:        tgBot,
		httpServer: httpServer,
		db:         dbConn,
		audit:      audit,
	}, nil
}

// Run starts the health server and the bot poll loop, and blocks until the
// process is signalled or either part fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpErr := make(chan error, 1)
	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErr <- err
		}
	}()

	botErr := make(chan error, 1)
	go func() {
		botErr <- a.bot.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Printf("shutting down")
	case runErr = <-httpErr:
	case runErr = <-botErr:
	}

	a.shutdown()
	return runErr
}

func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.httpServer.Shutdown(shutdownCtx)
	_ = a.audit.Close()
	_ = a.db.Close()
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// buildStorage returns nil when no backend is configured; emblem uploads
// are then disabled with a visible message.
func buildStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "minio":
		backend, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio storage: %w", err)
		}
		if err := backend.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("minio bucket: %w", err)
		}
		return storage.NewStorage(backend), nil
	case "gcs":
		backend, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs storage: %w", err)
		}
		if err := backend.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("gcs bucket: %w", err)
		}
		return storage.NewStorage(backend), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// buildPublisher returns a nil-backend publisher when events are disabled.
func buildPublisher(ctx context.Context, cfg config.EventsConfig) (*events.Publisher, error) {
	switch cfg.Backend {
	case "", "none":
		return events.NewPublisher(nil, cfg.Channel), nil
	case "rabbitmq":
		backend, err := events.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq events: %w", err)
		}
		return events.NewPublisher(backend, cfg.Channel), nil
	case "pubsub":
		backend, err := events.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub events: %w", err)
		}
		return events.NewPublisher(backend, cfg.Channel), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
