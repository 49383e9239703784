package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/events"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
	"github.com/cuongbtq/interpreter-booking/shared/rabbitmq"
)

const contentTypeJSON = "application/json"

// Broker publishes raw messages. *rabbitmq.Client implements it.
type Broker interface {
	Publish(ctx context.Context, msg rabbitmq.Message) error
}

// Transport implements notify.Transport by publishing one delivery message
// per call. The worker service performs the actual delivery.
type Transport struct {
	broker Broker
	logger *slog.Logger
	now    func() time.Time
}

var _ notify.Transport = (*Transport)(nil)

// NewTransport creates a Transport publishing through broker.
func NewTransport(broker Broker, logger *slog.Logger) *Transport {
	return &Transport{broker: broker, logger: logger, now: time.Now}
}

func (t *Transport) SendPush(ctx context.Context, recipients []domain.User, payload domain.NotificationPayload, sendAfter *time.Time) error {
	ids := make([]int64, 0, len(recipients))
	emails := make([]string, 0, len(recipients))
	for _, u := range recipients {
		ids = append(ids, u.ID)
		if u.Email != "" {
			emails = append(emails, u.Email)
		}
	}
	android, ios := notify.Sounds(payload)
	return t.Publish(ctx, Message{
		Kind: KindPush,
		Push: &PushTask{
			RecipientIDs:    ids,
			RecipientEmails: emails,
			Payload:         payload,
			AndroidSound:    android,
			IOSSound:        ios,
			SendAfter:       sendAfter,
		},
	})
}

func (t *Transport) SendSMS(ctx context.Context, to domain.User, templateKey string, vars map[string]string) error {
	return t.Publish(ctx, Message{
		Kind: KindSMS,
		SMS:  &SMSTask{UserID: to.ID, Mobile: to.Mobile, Template: templateKey, Vars: vars},
	})
}

func (t *Transport) SendEmail(ctx context.Context, to, name, subject, templateKey string, vars map[string]string) error {
	return t.Publish(ctx, Message{
		Kind:  KindEmail,
		Email: &EmailTask{To: to, Name: name, Subject: subject, Template: templateKey, Vars: vars},
	})
}

// Publish validates and publishes a message, filling in its id and creation
// time when unset. The worker also uses it to schedule a retry.
func (t *Transport) Publish(ctx context.Context, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = t.now().UTC()
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode delivery message: %w", err)
	}

	if err := t.broker.Publish(ctx, rabbitmq.Message{
		RoutingKey:  msg.RoutingKey(),
		MessageID:   msg.ID,
		ContentType: contentTypeJSON,
		Body:        body,
	}); err != nil {
		return fmt.Errorf("failed to publish %s delivery: %w", msg.Kind, err)
	}

	t.logger.Debug("Delivery queued",
		slog.String("message_id", msg.ID),
		slog.String("kind", string(msg.Kind)),
		slog.Int("attempt", msg.Attempt),
	)
	return nil
}

// EventPublisher publishes domain events with their type as routing key.
type EventPublisher struct {
	broker Broker
}

var _ events.Publisher = (*EventPublisher)(nil)

// NewEventPublisher creates an EventPublisher.
func NewEventPublisher(broker Broker) *EventPublisher {
	return &EventPublisher{broker: broker}
}

func (p *EventPublisher) Publish(ctx context.Context, evt events.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.broker.Publish(ctx, rabbitmq.Message{
		RoutingKey:  string(evt.Type),
		MessageID:   uuid.NewString(),
		ContentType: contentTypeJSON,
		Body:        body,
	}); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", evt.Type, err)
	}
	return nil
}
