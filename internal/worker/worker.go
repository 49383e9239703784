// Package worker consumes notification deliveries from RabbitMQ and hands
// them to the push, SMS and email senders. It also runs the periodic sweep
// that expires stale bookings and starts due sessions.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
	"github.com/cuongbtq/interpreter-booking/internal/booking/queue"
	"github.com/cuongbtq/interpreter-booking/internal/worker/domain"
)

// Consumer opens the delivery stream. *rabbitmq.Client implements it.
type Consumer interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Republisher schedules another attempt of a failed delivery.
type Republisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// PushSender delivers push notifications.
type PushSender interface {
	SendPush(ctx context.Context, task queue.PushTask) error
}

// SMSSender delivers a rendered text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// EmailSender delivers a rendered email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, name, subject, body string) error
}

// Sweeper advances bookings whose deadlines have passed.
type Sweeper interface {
	ExpirePending(ctx context.Context) (int, error)
	StartDue(ctx context.Context) (int, error)
}

// Config holds worker configuration
type Config struct {
	Logger      *slog.Logger
	Consumer    Consumer
	Republisher Republisher
	Catalog     *notify.Catalog
	Push        PushSender
	SMS         SMSSender
	Email       EmailSender
	// Sweeper is optional; without it the worker only delivers.
	Sweeper       Sweeper
	SweepInterval time.Duration
	Concurrency   int
	JobTimeout    time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	MaxBackoff    time.Duration
}

// Worker represents the background delivery worker
type Worker struct {
	logger        *slog.Logger
	consumer      Consumer
	republisher   Republisher
	catalog       *notify.Catalog
	push          PushSender
	sms           SMSSender
	email         EmailSender
	sweeper       Sweeper
	sweepInterval time.Duration
	workerID      string
	concurrency   int
	jobTimeout    time.Duration
	maxAttempts   int
	backoff       backoff
	jobsChan      chan *domain.Task
	wg            sync.WaitGroup
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) (*Worker, error) {
	if cfg.Consumer == nil {
		return nil, errors.New("worker: consumer is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("worker: template catalog is required")
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workerID := fmt.Sprintf("worker-%s", uuid.NewString()[:8])

	return &Worker{
		logger:        logger.With(slog.String("worker_id", workerID)),
		consumer:      cfg.Consumer,
		republisher:   cfg.Republisher,
		catalog:       cfg.Catalog,
		push:          cfg.Push,
		sms:           cfg.SMS,
		email:         cfg.Email,
		sweeper:       cfg.Sweeper,
		sweepInterval: cfg.SweepInterval,
		workerID:      workerID,
		concurrency:   concurrency,
		jobTimeout:    jobTimeout,
		maxAttempts:   maxAttempts,
		backoff:       backoff{initial: cfg.RetryBackoff, max: cfg.MaxBackoff},
		jobsChan:      make(chan *domain.Task, concurrency),
		stopChan:      make(chan struct{}),
	}, nil
}

// ID returns the consumer tag of this worker.
func (w *Worker) ID() string {
	return w.workerID
}

// Start consumes deliveries until ctx is canceled or the delivery stream
// closes. It blocks; call Stop afterwards to wait for in-flight work.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
		slog.Int("max_attempts", w.maxAttempts),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)

	if w.sweeper != nil && w.sweepInterval > 0 {
		w.wg.Add(1)
		go w.sweepLoop(ctx)
	}

	w.startMessageDispatcher(ctx, deliveries)
	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
