// Package notify turns booking events into push, SMS and email deliveries.
//
// The Dispatcher decides who gets what and when. Delivery itself is left to
// a Transport, which in production publishes to the worker queue.
package notify

import (
	"context"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// Channel names used in reports and delivery messages.
const (
	ChannelPush  = "push"
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// Sound names attached to push notifications.
const (
	SoundDefault   = "default"
	SoundNormal    = "normal_booking"
	SoundEmergency = "emergency_booking"
)

// Transport delivers one message per call. sendAfter asks the transport to
// hold a push until the given time; nil means send now.
type Transport interface {
	SendPush(ctx context.Context, recipients []domain.User, payload domain.NotificationPayload, sendAfter *time.Time) error
	SendSMS(ctx context.Context, to domain.User, templateKey string, vars map[string]string) error
	SendEmail(ctx context.Context, to, name, subject, templateKey string, vars map[string]string) error
}

// Sounds picks the Android and iOS sounds for a payload.
func Sounds(p domain.NotificationPayload) (android, ios string) {
	if p.NotificationType != domain.NotificationSuitableJob {
		return SoundDefault, SoundDefault
	}
	if p.Immediate {
		return SoundEmergency, SoundEmergency
	}
	return SoundNormal, SoundNormal
}
