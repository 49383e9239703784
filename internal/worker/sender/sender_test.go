package sender

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/queue"
	workerdomain "github.com/cuongbtq/interpreter-booking/internal/worker/domain"
)

func TestOneSignal_SendPush(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"n1","recipients":2}`))
	}))
	defer srv.Close()

	s := NewOneSignal(OneSignalConfig{Endpoint: srv.URL, AppID: "app", APIKey: "secret"}, srv.Client())

	sendAfter := time.Date(2030, 3, 5, 7, 0, 0, 0, time.UTC)
	err := s.SendPush(context.Background(), queue.PushTask{
		RecipientIDs:    []int64{1, 2},
		RecipientEmails: []string{"Tolk1@example.com", "tolk2@example.com"},
		Payload: domain.NotificationPayload{
			NotificationType: domain.NotificationSuitableJob,
			JobID:            9,
			Message:          map[string]string{"en": "New booking"},
		},
		AndroidSound: "normal_booking",
		IOSSound:     "normal_booking",
		SendAfter:    &sendAfter,
	})
	require.NoError(t, err)

	assert.Equal(t, "Basic secret", auth)
	assert.Equal(t, "app", got["app_id"])
	assert.Equal(t, "normal_booking", got["android_sound"])
	assert.Equal(t, "normal_booking.mp3", got["ios_sound"])
	assert.Equal(t, "2030-03-05 07:00:00 GMT+0000", got["send_after"])
	assert.Equal(t, map[string]any{"en": "New booking"}, got["contents"])

	tags, ok := got["tags"].([]any)
	require.True(t, ok)
	require.Len(t, tags, 3)
	assert.Equal(t, "tolk1@example.com", tags[0].(map[string]any)["value"])
	assert.Equal(t, "OR", tags[1].(map[string]any)["operator"])
	assert.Nil(t, got["include_external_user_ids"])
}

func TestOneSignal_FallsBackToExternalIDs(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	s := NewOneSignal(OneSignalConfig{Endpoint: srv.URL}, srv.Client())
	require.NoError(t, s.SendPush(context.Background(), queue.PushTask{RecipientIDs: []int64{7}, IOSSound: "default"}))

	assert.Equal(t, []any{"7"}, got["include_external_user_ids"])
	assert.Equal(t, "default", got["ios_sound"])
	assert.Nil(t, got["send_after"])
}

func TestHTTPSender_ClassifiesResponses(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   bool
		retryable bool
	}{
		{name: "accepted", status: http.StatusAccepted},
		{name: "bad request is permanent", status: http.StatusBadRequest, wantErr: true},
		{name: "unauthorized is permanent", status: http.StatusUnauthorized, wantErr: true},
		{name: "rate limited is retryable", status: http.StatusTooManyRequests, wantErr: true, retryable: true},
		{name: "server error is retryable", status: http.StatusBadGateway, wantErr: true, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("provider says no"))
			}))
			defer srv.Close()

			s := NewSMSGateway(SMSConfig{Endpoint: srv.URL}, srv.Client())
			err := s.SendSMS(context.Background(), "+46700000001", "hello")

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.retryable, workerdomain.IsRetryable(err))
			if !tt.retryable {
				assert.ErrorIs(t, err, workerdomain.ErrInvalidPayload)
			}
			assert.Contains(t, err.Error(), "provider says no")
		})
	}
}

func TestHTTPSender_NetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	s := NewSMSGateway(SMSConfig{Endpoint: url, Timeout: time.Second}, nil)
	err := s.SendSMS(context.Background(), "+46700000001", "hello")

	require.Error(t, err)
	assert.True(t, workerdomain.IsRetryable(err))
}

func TestSMSGateway_SendSMS(t *testing.T) {
	var got smsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	s := NewSMSGateway(SMSConfig{Endpoint: srv.URL, APIKey: "key", From: "DigitalTolk"}, srv.Client())
	require.NoError(t, s.SendSMS(context.Background(), "+46700000001", "New phone interpretation"))

	assert.Equal(t, smsRequest{From: "DigitalTolk", To: "+46700000001", Message: "New phone interpretation"}, got)
}

func TestRateConfig_LimitsRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	s := NewSMSGateway(SMSConfig{Endpoint: srv.URL, Rate: RateConfig{Limit: 0.001, Burst: 1}}, srv.Client())
	require.NoError(t, s.SendSMS(context.Background(), "+1", "first"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.SendSMS(ctx, "+1", "second")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSMTP_SendEmail(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	send := func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	s := NewSMTP(SMTPConfig{Host: "mail.example.com", Port: 587, Username: "u", Password: "p", From: "noreply@example.com", FromName: "DigitalTolk"}, send)
	s.now = func() time.Time { return time.Date(2030, 3, 4, 12, 0, 0, 0, time.UTC) }

	err := s.SendEmail(context.Background(), "kund@example.com", "Kund AB", "Tolkbokning #7", "Line one\nLine two")
	require.NoError(t, err)

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"kund@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: \"Kund AB\" <kund@example.com>\r\n")
	assert.Contains(t, gotMsg, "Subject: Tolkbokning #7\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\nLine one\r\nLine two"))
}

func TestSMTP_SendEmailErrors(t *testing.T) {
	tests := []struct {
		name      string
		to        string
		sendErr   error
		retryable bool
		errIs     error
	}{
		{name: "malformed recipient", to: "not an address", errIs: workerdomain.ErrInvalidPayload},
		{name: "relay failure", to: "kund@example.com", sendErr: errors.New("421 try later"), retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSMTP(SMTPConfig{Host: "localhost", Port: 25, From: "noreply@example.com"}, func(string, smtp.Auth, string, []string, []byte) error {
				return tt.sendErr
			})

			err := s.SendEmail(context.Background(), tt.to, "", "subject", "body")
			require.Error(t, err)
			assert.Equal(t, tt.retryable, workerdomain.IsRetryable(err))
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
		})
	}
}
