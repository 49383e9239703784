// Package queue carries notification deliveries and domain events from the
// booking core to the worker service over RabbitMQ.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// Kind selects the channel a delivery message is sent on.
type Kind string

const (
	KindPush  Kind = "push"
	KindSMS   Kind = "sms"
	KindEmail Kind = "email"
)

// Routing keys of the notification exchange.
const (
	RoutingPush  = "notify.push"
	RoutingSMS   = "notify.sms"
	RoutingEmail = "notify.email"
)

// RoutingKeys lists every key the worker queue binds to.
var RoutingKeys = []string{RoutingPush, RoutingSMS, RoutingEmail}

// ErrInvalidMessage is returned when a delivery message cannot be decoded or
// lacks the task its kind requires.
var ErrInvalidMessage = errors.New("invalid delivery message")

// Message is the envelope of one delivery. Attempt counts previous failed
// deliveries of the same message.
type Message struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"kind"`
	Attempt   int        `json:"attempt"`
	CreatedAt time.Time  `json:"created_at"`
	Push      *PushTask  `json:"push,omitempty"`
	SMS       *SMSTask   `json:"sms,omitempty"`
	Email     *EmailTask `json:"email,omitempty"`
}

// PushTask is one push notification to a set of users.
type PushTask struct {
	RecipientIDs    []int64                    `json:"recipient_ids"`
	RecipientEmails []string                   `json:"recipient_emails,omitempty"`
	Payload         domain.NotificationPayload `json:"payload"`
	AndroidSound    string                     `json:"android_sound"`
	IOSSound        string                     `json:"ios_sound"`
	SendAfter       *time.Time                 `json:"send_after,omitempty"`
}

// SMSTask is one text message rendered by the worker from a template.
type SMSTask struct {
	UserID   int64             `json:"user_id"`
	Mobile   string            `json:"mobile"`
	Template string            `json:"template"`
	Vars     map[string]string `json:"vars,omitempty"`
}

// EmailTask is one email rendered by the worker from a template.
type EmailTask struct {
	To       string            `json:"to"`
	Name     string            `json:"name,omitempty"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Vars     map[string]string `json:"vars,omitempty"`
}

// RoutingKey returns the routing key of the message kind.
func (m Message) RoutingKey() string {
	switch m.Kind {
	case KindPush:
		return RoutingPush
	case KindSMS:
		return RoutingSMS
	case KindEmail:
		return RoutingEmail
	}
	return ""
}

// Validate checks that the message carries the task of its kind.
func (m Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	switch m.Kind {
	case KindPush:
		if m.Push == nil || len(m.Push.RecipientIDs) == 0 {
			return fmt.Errorf("%w: push without recipients", ErrInvalidMessage)
		}
	case KindSMS:
		if m.SMS == nil || m.SMS.Mobile == "" || m.SMS.Template == "" {
			return fmt.Errorf("%w: sms without mobile or template", ErrInvalidMessage)
		}
	case KindEmail:
		if m.Email == nil || m.Email.To == "" || m.Email.Template == "" {
			return fmt.Errorf("%w: email without recipient or template", ErrInvalidMessage)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, m.Kind)
	}
	return nil
}

// Decode parses and validates a message body.
func Decode(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}
