package bootstrap

import (
	"github.com/cuongbtq/interpreter-booking/internal/config"
	"github.com/cuongbtq/interpreter-booking/internal/worker"
	"github.com/cuongbtq/interpreter-booking/internal/worker/sender"
)

// Senders holds the delivery channels the worker can use. A channel left
// unconfigured stays nil and its deliveries are dead-lettered.
type Senders struct {
	Push  worker.PushSender
	SMS   worker.SMSSender
	Email worker.EmailSender
}

// NewSenders builds a sender for every configured channel.
func NewSenders(cfg *config.NotificationsConfig) Senders {
	var s Senders

	if cfg.Push.AppID != "" {
		s.Push = sender.NewOneSignal(sender.OneSignalConfig{
			Endpoint: cfg.Push.Endpoint,
			AppID:    cfg.Push.AppID,
			APIKey:   cfg.Push.APIKey,
			Timeout:  cfg.Push.Timeout,
			Rate:     sender.RateConfig{Limit: cfg.Rate.PushPerSecond, Burst: cfg.Rate.Burst},
		}, nil)
	}

	if cfg.SMS.Endpoint != "" {
		s.SMS = sender.NewSMSGateway(sender.SMSConfig{
			Endpoint: cfg.SMS.Endpoint,
			APIKey:   cfg.SMS.APIKey,
			From:     cfg.SMS.From,
			Timeout:  cfg.SMS.Timeout,
			Rate:     sender.RateConfig{Limit: cfg.Rate.SMSPerSecond, Burst: cfg.Rate.Burst},
		}, nil)
	}

	if cfg.SMTP.Host != "" {
		s.Email = sender.NewSMTP(sender.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, nil)
	}

	return s
}
