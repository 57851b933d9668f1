package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ibrahimkeyboad/payledger/internal/adapter/handler"
	"github.com/ibrahimkeyboad/payledger/internal/adapter/storage"
	"github.com/ibrahimkeyboad/payledger/internal/core/config"
	"github.com/ibrahimkeyboad/payledger/internal/core/ledger"
	"github.com/ibrahimkeyboad/payledger/internal/core/notifications"
	"github.com/ibrahimkeyboad/payledger/internal/core/worker"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	// 2. Setup Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		stop()
		os.Exit(1)
	}
	slog.Info("Server exited")
}

// run wires the server and blocks until ctx is cancelled or the listener
// fails. Everything it opens is closed before it returns.
func run(ctx context.Context, cfg config.Config) error {
	// 3. Event sinks, connected before storage so a broker failure leaves nothing open
	var sinks []worker.Sink
	if cfg.WebhookURL != "" {
		if cfg.WebhookSecret == "" {
			slog.Warn("WEBHOOK_SECRET is not set, webhooks will be sent unsigned")
		}
		sinks = append(sinks, notifications.NewWebhook(cfg.WebhookURL, cfg.WebhookSecret))
	}
	if cfg.RabbitMQURL != "" {
		publisher, err := notifications.NewAMQPPublisher(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			return fmt.Errorf("rabbitmq connection failed: %w", err)
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}

	// 4. Storage
	var (
		uow   ledger.UnitOfWork
		queue worker.Queue
		ready func(context.Context) error
	)
	switch cfg.StorageDriver {
	case config.DriverMemory:
		mem := storage.NewMemoryUnitOfWork()
		uow, queue = mem, mem.EventQueue()
		slog.Warn("Using in-memory storage, data is lost on restart")
	default:
		pool, err := storage.ConnectDB(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer func() {
			pool.Close()
			slog.Info("Database connection closed")
		}()
		if cfg.DBAutoMigrate {
			if err := storage.EnsureSchema(ctx, pool); err != nil {
				return fmt.Errorf("schema migration failed: %w", err)
			}
		}
		uow, queue, ready = storage.NewPostgresUnitOfWork(pool), storage.NewPostgresEventQueue(pool), pool.Ping
	}

	// 5. Services & Handlers
	var ids ledger.IDGenerator
	if len(sinks) > 0 {
		ids = ledger.UUIDGenerator{}
	}
	accounts := ledger.NewAccountService(uow)
	engine := ledger.NewTransferEngine(uow, ledger.SystemClock{}, ids)

	app := handler.NewApp(handler.Handlers{
		Accounts: &handler.AccountHandler{Service: accounts},
		Payments: &handler.PaymentHandler{Service: engine},
		Ready:    ready,
	})

	// 6. Start Worker
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	relayDone := make(chan struct{})
	if len(sinks) > 0 {
		relay := worker.NewRelay(queue, sinks, cfg.WorkerPollInterval, cfg.WorkerMaxAttempts)
		go func() {
			defer close(relayDone)
			relay.Run(ctx)
		}()
	} else {
		close(relayDone)
	}

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "env", cfg.Env, "port", cfg.Port, "storage", cfg.StorageDriver)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	// Block until we receive a stop signal or the listener dies
	var err error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
		if shutdownErr := app.Shutdown(); shutdownErr != nil {
			slog.Error("Server shutdown failed", "error", shutdownErr)
		}
	case err = <-listenErr:
		err = fmt.Errorf("server forced to shutdown: %w", err)
	}

	cancel()
	<-relayDone
	return err
}
