package sender

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// SMSConfig configures the SMS gateway.
type SMSConfig struct {
	Endpoint string
	APIKey   string
	From     string
	Timeout  time.Duration
	Rate     RateConfig
}

// SMSGateway posts text messages to an HTTP SMS gateway.
type SMSGateway struct {
	httpSender
	cfg SMSConfig
}

// NewSMSGateway creates an SMS sender.
func NewSMSGateway(cfg SMSConfig, client *http.Client) *SMSGateway {
	return &SMSGateway{httpSender: newHTTPSender(client, cfg.Timeout, cfg.Rate), cfg: cfg}
}

type smsRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
}

func (s *SMSGateway) SendSMS(ctx context.Context, to, body string) error {
	req, err := newJSONRequest(ctx, s.cfg.Endpoint, smsRequest{From: s.cfg.From, To: to, Message: body})
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	return s.do(req)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
