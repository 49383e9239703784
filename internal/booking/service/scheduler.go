package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/lifecycle"
)

// ExpireJob times out a pending job whose expiry has passed.
func (s *BookingService) ExpireJob(ctx context.Context, jobID int64) (domain.Result, error) {
	_, res, err := s.transition(ctx, "timeout", func(ctx context.Context, repo lifecycle.Repository, now time.Time) (lifecycle.Outcome, error) {
		return s.machine.Timeout(ctx, repo, jobID, now)
	})
	return res, err
}

// StartJob marks an assigned job as started.
func (s *BookingService) StartJob(ctx context.Context, jobID int64) (domain.Result, error) {
	_, res, err := s.transition(ctx, "start", func(ctx context.Context, repo lifecycle.Repository, now time.Time) (lifecycle.Outcome, error) {
		return s.machine.Start(ctx, repo, jobID, now)
	})
	return res, err
}

// ExpirePending times out every pending job past its expiry and returns
// how many were expired.
func (s *BookingService) ExpirePending(ctx context.Context) (int, error) {
	ids, err := s.store.ListExpirable(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list expirable jobs: %w", err)
	}
	return s.sweep(ctx, "expire", ids, s.ExpireJob)
}

// StartDue starts every assigned job whose due time has come.
func (s *BookingService) StartDue(ctx context.Context) (int, error) {
	ids, err := s.store.ListStartable(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list startable jobs: %w", err)
	}
	return s.sweep(ctx, "start", ids, s.StartJob)
}

func (s *BookingService) sweep(ctx context.Context, op string, ids []int64, fn func(context.Context, int64) (domain.Result, error)) (int, error) {
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		res, err := fn(ctx, id)
		if err != nil {
			s.logger.Error("Sweep failed for job",
				slog.String("op", op),
				slog.Int64("job_id", id),
				slog.Any("error", err),
			)
			continue
		}
		if res.OK() {
			done++
		}
	}

	if len(ids) > 0 {
		s.logger.Info("Sweep finished",
			slog.String("op", op),
			slog.Int("candidates", len(ids)),
			slog.Int("done", done),
		)
	}
	return done, nil
}
