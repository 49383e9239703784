package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/events"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
	"github.com/cuongbtq/interpreter-booking/shared/rabbitmq"
)

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Publish(ctx context.Context, msg rabbitmq.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func newTestTransport(b Broker) *Transport {
	t := NewTransport(b, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.now = func() time.Time { return time.Date(2030, 3, 4, 12, 0, 0, 0, time.UTC) }
	return t
}

func captured(t *testing.T, b *mockBroker) Message {
	t.Helper()
	require.Len(t, b.Calls, 1)
	raw := b.Calls[0].Arguments.Get(1).(rabbitmq.Message)
	msg, err := Decode(raw.Body)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, raw.MessageID)
	assert.Equal(t, contentTypeJSON, raw.ContentType)
	assert.Equal(t, msg.RoutingKey(), raw.RoutingKey)
	return msg
}

func TestTransport_SendPush(t *testing.T) {
	b := &mockBroker{}
	b.On("Publish", mock.Anything, mock.Anything).Return(nil)
	tr := newTestTransport(b)

	later := time.Date(2030, 3, 5, 7, 0, 0, 0, time.UTC)
	payload := domain.NotificationPayload{NotificationType: domain.NotificationSuitableJob, JobID: 9, Immediate: true}
	err := tr.SendPush(context.Background(), []domain.User{{ID: 1, Email: "a@example.com"}, {ID: 2}}, payload, &later)
	require.NoError(t, err)

	msg := captured(t, b)
	assert.Equal(t, KindPush, msg.Kind)
	assert.Equal(t, RoutingPush, msg.RoutingKey())
	_, err = uuid.Parse(msg.ID)
	assert.NoError(t, err)
	require.NotNil(t, msg.Push)
	assert.Equal(t, []int64{1, 2}, msg.Push.RecipientIDs)
	assert.Equal(t, []string{"a@example.com"}, msg.Push.RecipientEmails)
	assert.Equal(t, notify.SoundEmergency, msg.Push.AndroidSound)
	assert.Equal(t, notify.SoundEmergency, msg.Push.IOSSound)
	require.NotNil(t, msg.Push.SendAfter)
	assert.True(t, later.Equal(*msg.Push.SendAfter))
}

func TestTransport_SendSMSAndEmail(t *testing.T) {
	b := &mockBroker{}
	b.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	tr := newTestTransport(b)

	err := tr.SendSMS(context.Background(), domain.User{ID: 5, Mobile: "+46700000005"}, "sms.phone_job", map[string]string{"date": "06.03.2030"})
	require.NoError(t, err)
	sms := captured(t, b)
	assert.Equal(t, RoutingSMS, sms.RoutingKey())
	assert.Equal(t, "+46700000005", sms.SMS.Mobile)
	assert.Equal(t, "06.03.2030", sms.SMS.Vars["date"])

	b = &mockBroker{}
	b.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	tr = newTestTransport(b)
	err = tr.SendEmail(context.Background(), "kund@example.com", "Kund", "Tolkbokning", "emails.job_accepted", nil)
	require.NoError(t, err)
	email := captured(t, b)
	assert.Equal(t, RoutingEmail, email.RoutingKey())
	assert.Equal(t, "Tolkbokning", email.Email.Subject)
}

func TestTransport_Publish(t *testing.T) {
	brokerErr := errors.New("channel closed")

	tests := []struct {
		name      string
		msg       Message
		brokerErr error
		wantErr   bool
		errIs     error
		published bool
	}{
		{
			name:      "keeps id and attempt of a retried message",
			msg:       Message{ID: "abc", Kind: KindEmail, Attempt: 2, Email: &EmailTask{To: "a@example.com", Template: "emails.x"}},
			published: true,
		},
		{
			name:    "rejects message without task",
			msg:     Message{Kind: KindSMS},
			wantErr: true,
			errIs:   ErrInvalidMessage,
		},
		{
			name:    "rejects unknown kind",
			msg:     Message{Kind: "fax"},
			wantErr: true,
			errIs:   ErrInvalidMessage,
		},
		{
			name:      "wraps broker failure",
			msg:       Message{Kind: KindPush, Push: &PushTask{RecipientIDs: []int64{1}}},
			brokerErr: brokerErr,
			wantErr:   true,
			errIs:     brokerErr,
			published: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &mockBroker{}
			b.On("Publish", mock.Anything, mock.Anything).Return(tt.brokerErr)
			tr := newTestTransport(b)

			err := tr.Publish(context.Background(), tt.msg)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.errIs)
			} else {
				require.NoError(t, err)
			}

			if !tt.published {
				b.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
				return
			}
			b.AssertNumberOfCalls(t, "Publish", 1)
			if !tt.wantErr {
				msg := captured(t, b)
				assert.Equal(t, tt.msg.ID, msg.ID)
				assert.Equal(t, tt.msg.Attempt, msg.Attempt)
			}
		})
	}
}

func TestEventPublisher(t *testing.T) {
	b := &mockBroker{}
	b.On("Publish", mock.Anything, mock.MatchedBy(func(m rabbitmq.Message) bool {
		return m.RoutingKey == string(events.TypeJobCreated) && m.MessageID != ""
	})).Return(nil)

	p := NewEventPublisher(b)
	err := p.Publish(context.Background(), events.JobCreated(7, 100, time.Now()))

	require.NoError(t, err)
	b.AssertExpectations(t)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid sms", body: `{"id":"1","kind":"sms","sms":{"mobile":"+46","template":"sms.phone_job"}}`},
		{name: "malformed json", body: `{"id":`, wantErr: true},
		{name: "email without recipient", body: `{"id":"1","kind":"email","email":{"template":"emails.x"}}`, wantErr: true},
		{name: "missing id", body: `{"kind":"push","push":{"recipient_ids":[1]}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessage)
				return
			}
			assert.NoError(t, err)
		})
	}
}
