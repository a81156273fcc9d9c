package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/pkg/jobs"
	"github.com/noah-isme/rewards-ledger-api/pkg/mailer"
)

// Notification kinds, used as job types and metric labels.
const (
	NotificationPurchaseReceipt = "purchase_receipt"
	NotificationResetCode       = "reset_code"
)

// NotificationConfig tunes recipients and delivery.
type NotificationConfig struct {
	StudentDomain   string
	AdminRecipients []string
	Workers         int
	Retries         int
	RetryDelay      time.Duration
}

// NotificationService renders messages and delivers them from a worker pool
// so the request path never waits on the mail provider.
type NotificationService struct {
	sender  mailer.Sender
	queue   *jobs.Queue
	metrics *MetricsService
	cfg     NotificationConfig
	logger  *zap.Logger
}

// NewNotificationService constructs the service and its delivery queue.
func NewNotificationService(sender mailer.Sender, metrics *MetricsService, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{sender: sender, metrics: metrics, cfg: cfg, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		OnResult:   s.recordResult,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains pending deliveries until ctx expires.
func (s *NotificationService) Stop(ctx context.Context) {
	s.queue.Stop(ctx)
}

// PurchaseReceipt queues a receipt to the student and the admin recipients.
func (s *NotificationService) PurchaseReceipt(student *models.StudentRecord, result *models.PurchaseResult, previousBalance int) error {
	to := append([]string{s.studentAddress(student)}, s.cfg.AdminRecipients...)
	body := fmt.Sprintf(`Hello,

A badge purchase was recorded:

- Student: %s
- Badge: %s
- Quantity: %d
- Total cost: %d coins
- Previous balance: %d coins
- Remaining balance: %d coins
- Reference: %s
`, student.ID, result.BadgeName, result.Quantity, result.TotalCost, previousBalance, result.NewBalance, result.PurchaseID)

	return s.enqueue(NotificationPurchaseReceipt, mailer.Message{
		To:      to,
		Subject: "Badge purchase confirmation",
		Body:    body,
	})
}

// ResetCode queues the one-time reset code to the student only.
func (s *NotificationService) ResetCode(student *models.StudentRecord, code string, ttl time.Duration) error {
	body := fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.\n", code, int(ttl.Minutes()))
	return s.enqueue(NotificationResetCode, mailer.Message{
		To:      []string{s.studentAddress(student)},
		Subject: "Password reset code",
		Body:    body,
	})
}

func (s *NotificationService) studentAddress(student *models.StudentRecord) string {
	if strings.Contains(student.Email, "@") {
		return student.Email
	}
	return student.ID + "@" + s.cfg.StudentDomain
}

func (s *NotificationService) enqueue(kind string, msg mailer.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: kind, Payload: msg})
	if err != nil {
		s.metrics.RecordNotification(kind, "dropped")
		return err
	}
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	return s.sender.Send(ctx, msg)
}

func (s *NotificationService) recordResult(job jobs.Job, err error) {
	if err != nil {
		s.metrics.RecordNotification(job.Type, OutcomeFailure)
		return
	}
	s.metrics.RecordNotification(job.Type, OutcomeSuccess)
	s.logger.Debug("notification delivered", zap.String("type", job.Type), zap.String("job_id", job.ID), zap.Int("retries", job.Attempt))
}
