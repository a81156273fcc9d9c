package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/pkg/mailer"
)

type captureSender struct {
	mu       sync.Mutex
	sent     []mailer.Message
	failures int
}

func (s *captureSender) Send(ctx context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp busy")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *captureSender) messages() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mailer.Message(nil), s.sent...)
}

func newNotificationFixture(sender mailer.Sender, metrics *MetricsService) *NotificationService {
	return NewNotificationService(sender, metrics, NotificationConfig{
		StudentDomain:   "up.edu.mx",
		AdminRecipients: []string{"fcal@up.edu.mx"},
		Workers:         1,
		Retries:         2,
		RetryDelay:      time.Millisecond,
	}, zap.NewNop())
}

func TestPurchaseReceiptGoesToStudentAndAdmins(t *testing.T) {
	sender := &captureSender{failures: 1}
	metrics := NewMetricsService()
	svc := newNotificationFixture(sender, metrics)
	svc.Start(context.Background())

	student := &models.StudentRecord{ID: "0231234"}
	result := &models.PurchaseResult{PurchaseID: "p1", BadgeName: "Gold", Quantity: 2, TotalCost: 40, NewBalance: 10}
	require.NoError(t, svc.PurchaseReceipt(student, result, 50))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.Stop(ctx)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"0231234@up.edu.mx", "fcal@up.edu.mx"}, msgs[0].To)
	assert.Contains(t, msgs[0].Body, "Previous balance: 50 coins")
	assert.Contains(t, msgs[0].Body, "Remaining balance: 10 coins")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.notifications.WithLabelValues(NotificationPurchaseReceipt, OutcomeSuccess)))
}

func TestResetCodeUsesStoredEmail(t *testing.T) {
	sender := &captureSender{}
	svc := newNotificationFixture(sender, nil)
	svc.Start(context.Background())

	require.NoError(t, svc.ResetCode(&models.StudentRecord{ID: "s1", Email: "ana@example.com"}, "123456", 10*time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.Stop(ctx)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"ana@example.com"}, msgs[0].To)
	assert.Contains(t, msgs[0].Body, "123456")
	assert.Contains(t, msgs[0].Body, "10 minutes")
}

func TestNotificationRejectedWhenQueueStopped(t *testing.T) {
	svc := newNotificationFixture(&captureSender{}, nil)

	err := svc.ResetCode(&models.StudentRecord{ID: "s1"}, "123456", time.Minute)
	assert.Error(t, err)
}
