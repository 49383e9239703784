package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/queue"
	"github.com/cuongbtq/interpreter-booking/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned",
		slog.Int("worker_count", w.concurrency),
	)
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)

	for {
		select {
		case <-w.stopChan:
			return

		case <-ctx.Done():
			return

		case task := <-w.jobsChan:
			err := w.processTask(ctx, task)
			w.settle(ctx, workerName, task, err)
		}
	}
}

// settle acknowledges a processed delivery. A retryable failure with
// attempts left is republished with its attempt counter raised; any other
// failure is rejected without requeue so it lands in the dead-letter queue.
func (w *Worker) settle(ctx context.Context, workerName string, task *domain.Task, err error) {
	msg := task.Message
	log := w.logger.With(
		slog.String("worker_name", workerName),
		slog.String("message_id", msg.ID),
		slog.String("kind", string(msg.Kind)),
		slog.Int("attempt", msg.Attempt),
	)

	if err == nil {
		if ackErr := task.Delivery.Ack(false); ackErr != nil {
			log.Error("Failed to ACK message", slog.Any("error", ackErr))
			return
		}
		log.Info("Delivery sent")
		return
	}

	if w.shouldRetry(task, err) {
		next := msg
		next.Attempt++
		delay := w.backoff.delay(next.Attempt)

		log.Warn("Delivery failed, scheduling retry",
			slog.Any("error", err),
			slog.Duration("retry_after", delay),
		)

		if rpErr := w.republish(ctx, next, delay); rpErr != nil {
			log.Error("Failed to republish delivery, requeueing",
				slog.Any("error", rpErr),
			)
			if nackErr := task.Delivery.Nack(false, true); nackErr != nil {
				log.Error("Failed to NACK message", slog.Any("error", nackErr))
			}
			return
		}
		if ackErr := task.Delivery.Ack(false); ackErr != nil {
			log.Error("Failed to ACK republished message", slog.Any("error", ackErr))
		}
		return
	}

	if domain.IsRetryable(err) {
		err = fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, err)
	}
	log.Error("Delivery failed permanently",
		slog.Any("error", err),
	)
	if nackErr := task.Delivery.Nack(false, false); nackErr != nil {
		log.Error("Failed to NACK message", slog.Any("error", nackErr))
	}
}

// shouldRetry reports whether a failed delivery gets another attempt.
func (w *Worker) shouldRetry(task *domain.Task, err error) bool {
	if w.republisher == nil || !domain.IsRetryable(err) {
		return false
	}
	return task.Message.Attempt+1 < w.maxAttempts
}

func (w *Worker) republish(ctx context.Context, msg queue.Message, delay time.Duration) error {
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopChan:
			return fmt.Errorf("worker stopping")
		}
	}
	return w.republisher.Publish(ctx, msg)
}

// backoff computes exponential retry delays with full jitter.
type backoff struct {
	initial time.Duration
	max     time.Duration
}

func (b backoff) delay(attempt int) time.Duration {
	if b.initial <= 0 || attempt <= 0 {
		return 0
	}
	d := b.initial << (attempt - 1)
	if d <= 0 || (b.max > 0 && d > b.max) {
		d = b.max
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)) + 1)
}
