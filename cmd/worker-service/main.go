package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
	"github.com/cuongbtq/interpreter-booking/internal/booking/queue"
	"github.com/cuongbtq/interpreter-booking/internal/bootstrap"
	"github.com/cuongbtq/interpreter-booking/internal/config"
	"github.com/cuongbtq/interpreter-booking/internal/worker"
	"github.com/cuongbtq/interpreter-booking/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.Logger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	rabbitClient, err := rabbitmq.NewClient(bootstrap.RabbitMQConfig(&cfg.RabbitMQ, true), appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	appLogger.Info("RabbitMQ connection established")

	catalog, err := notify.LoadCatalog(cfg.Notifications.TemplatesPath)
	if err != nil {
		return fmt.Errorf("failed to load message catalog: %w", err)
	}

	transport := queue.NewTransport(rabbitClient, appLogger.Logger)
	senders := bootstrap.NewSenders(&cfg.Notifications)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sweeper worker.Sweeper
	if cfg.Worker.SweepInterval > 0 {
		store, err := bootstrap.OpenStore(ctx, cfg, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer store.Close()

		bookings, err := bootstrap.BookingService(cfg, store, transport, queue.NewEventPublisher(rabbitClient), appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize booking service: %w", err)
		}
		sweeper = bookings
	}

	workerInstance, err := worker.NewWorker(&worker.Config{
		Logger:        appLogger.Logger,
		Consumer:      rabbitClient,
		Republisher:   transport,
		Catalog:       catalog,
		Push:          senders.Push,
		SMS:           senders.SMS,
		Email:         senders.Email,
		Sweeper:       sweeper,
		SweepInterval: cfg.Worker.SweepInterval,
		Concurrency:   cfg.Worker.Concurrency,
		JobTimeout:    cfg.Worker.JobTimeout,
		MaxAttempts:   cfg.Worker.MaxAttempts,
		RetryBackoff:  cfg.Worker.RetryBackoff,
		MaxBackoff:    cfg.Worker.MaxBackoff,
	})
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully",
		slog.String("worker_id", workerInstance.ID()),
		slog.Bool("push", senders.Push != nil),
		slog.Bool("sms", senders.SMS != nil),
		slog.Bool("email", senders.Email != nil),
		slog.Duration("sweep_interval", cfg.Worker.SweepInterval),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}
