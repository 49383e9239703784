package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/booking/queue"
	"github.com/cuongbtq/interpreter-booking/internal/worker/domain"
)

// processTask renders and sends one delivery within the job timeout.
func (w *Worker) processTask(ctx context.Context, task *domain.Task) error {
	msg := task.Message

	taskCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	w.logger.Debug("Processing delivery",
		slog.String("message_id", msg.ID),
		slog.String("kind", string(msg.Kind)),
		slog.Int("attempt", msg.Attempt),
	)

	switch msg.Kind {
	case queue.KindPush:
		if w.push == nil {
			return fmt.Errorf("push: %w", domain.ErrSenderNotConfigured)
		}
		return w.push.SendPush(taskCtx, *msg.Push)

	case queue.KindSMS:
		if w.sms == nil {
			return fmt.Errorf("sms: %w", domain.ErrSenderNotConfigured)
		}
		body, err := w.catalog.SMSBody(msg.SMS.Template, msg.SMS.Vars)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
		}
		return w.sms.SendSMS(taskCtx, msg.SMS.Mobile, body)

	case queue.KindEmail:
		if w.email == nil {
			return fmt.Errorf("email: %w", domain.ErrSenderNotConfigured)
		}
		body, err := w.catalog.EmailBody(msg.Email.Template, msg.Email.Vars)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
		}
		return w.email.SendEmail(taskCtx, msg.Email.To, msg.Email.Name, msg.Email.Subject, body)
	}

	return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidPayload, msg.Kind)
}
