package sender

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
	"github.com/cuongbtq/interpreter-booking/internal/booking/queue"
)

const (
	DefaultOneSignalEndpoint = "https://onesignal.com/api/v1/notifications"
	sendAfterLayout          = "2006-01-02 15:04:05 GMT-0700"
)

// OneSignalConfig configures the push provider.
type OneSignalConfig struct {
	Endpoint string
	AppID    string
	APIKey   string
	Timeout  time.Duration
	Rate     RateConfig
}

// OneSignal sends push notifications through the OneSignal REST API,
// targeting devices by their email tag.
type OneSignal struct {
	httpSender
	cfg OneSignalConfig
}

// NewOneSignal creates a OneSignal sender. A nil client gets a default one
// with the configured timeout.
func NewOneSignal(cfg OneSignalConfig, client *http.Client) *OneSignal {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultOneSignalEndpoint
	}
	return &OneSignal{httpSender: newHTTPSender(client, cfg.Timeout, cfg.Rate), cfg: cfg}
}

type oneSignalRequest struct {
	AppID         string            `json:"app_id"`
	Tags          []map[string]any  `json:"tags,omitempty"`
	ExternalIDs   []string          `json:"include_external_user_ids,omitempty"`
	Data          any               `json:"data"`
	Title         map[string]string `json:"title"`
	Contents      map[string]string `json:"contents"`
	IOSBadgeType  string            `json:"ios_badgeType"`
	IOSBadgeCount int               `json:"ios_badgeCount"`
	AndroidSound  string            `json:"android_sound"`
	IOSSound      string            `json:"ios_sound"`
	SendAfter     string            `json:"send_after,omitempty"`
}

func (s *OneSignal) SendPush(ctx context.Context, task queue.PushTask) error {
	body := oneSignalRequest{
		AppID:         s.cfg.AppID,
		Tags:          emailTags(task.RecipientEmails),
		Data:          task.Payload,
		Title:         map[string]string{"en": "DigitalTolk"},
		Contents:      task.Payload.Message,
		IOSBadgeType:  "Increase",
		IOSBadgeCount: 1,
		AndroidSound:  task.AndroidSound,
		IOSSound:      iosSoundFile(task.IOSSound),
	}
	if len(body.Tags) == 0 {
		for _, id := range task.RecipientIDs {
			body.ExternalIDs = append(body.ExternalIDs, formatID(id))
		}
	}
	if task.SendAfter != nil {
		body.SendAfter = task.SendAfter.Format(sendAfterLayout)
	}

	req, err := newJSONRequest(ctx, s.cfg.Endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Basic "+s.cfg.APIKey)
	return s.do(req)
}

// emailTags builds the OR-joined email tag filter of the recipients.
func emailTags(emails []string) []map[string]any {
	var tags []map[string]any
	for i, email := range emails {
		if i > 0 {
			tags = append(tags, map[string]any{"operator": "OR"})
		}
		tags = append(tags, map[string]any{
			"key":      "email",
			"relation": "=",
			"value":    strings.ToLower(email),
		})
	}
	return tags
}

func iosSoundFile(sound string) string {
	if sound == "" || sound == notify.SoundDefault {
		return notify.SoundDefault
	}
	return sound + ".mp3"
}
