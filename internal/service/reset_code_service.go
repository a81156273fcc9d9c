package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
)

// Reset code lifecycle events reported to metrics.
const (
	ResetEventIssued   = "issued"
	ResetEventRedeemed = "redeemed"
	ResetEventRejected = "rejected"
	ResetEventExpired  = "expired"
	ResetEventSwept    = "swept"
)

// DefaultResetCodeTTL is how long an issued code stays valid.
const DefaultResetCodeTTL = 10 * time.Minute

type resetStudents interface {
	Get(ctx context.Context, scope models.Scope, id string) (*models.StudentRecord, error)
	UpdateCredential(ctx context.Context, scope models.Scope, id, credential string) error
}

type resetNotifier interface {
	ResetCode(student *models.StudentRecord, code string, ttl time.Duration) error
}

// ResetCodeConfig tunes code lifetime and sweeping.
type ResetCodeConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// ResetCodeService issues and redeems one-time password reset codes. Codes
// live only in this process, keyed by scope and student id.
type ResetCodeService struct {
	students  resetStudents
	notifier  resetNotifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ResetCodeConfig
	now       func() time.Time

	mu    sync.Mutex
	codes map[string]models.ResetCode

	stop chan struct{}
	done chan struct{}
}

// NewResetCodeService constructs the reset-code authority.
func NewResetCodeService(students resetStudents, notifier resetNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ResetCodeConfig) *ResetCodeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultResetCodeTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &ResetCodeService{
		students:  students,
		notifier:  notifier,
		metrics:   metrics,
		validator: ensureValidator(validate),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		codes:     make(map[string]models.ResetCode),
	}
}

// WithClock replaces the time source.
func (s *ResetCodeService) WithClock(now func() time.Time) *ResetCodeService {
	s.now = now
	return s
}

func resetKey(scope, id string) string {
	return scope + ":" + id
}

// Request issues a fresh code for the student, replacing any previous one,
// and queues it for delivery.
func (s *ResetCodeService) Request(ctx context.Context, scope models.Scope, req models.PasswordResetRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid reset request")
	}
	student, err := s.students.Get(ctx, scope, req.StudentID)
	if err != nil {
		return err
	}

	code, err := generateResetCode()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate reset code")
	}

	key := resetKey(scope.Name, student.ID)
	s.mu.Lock()
	previous, hadPrevious := s.codes[key]
	s.codes[key] = models.ResetCode{Code: code, IssuedAt: s.now()}
	s.mu.Unlock()

	if err := s.notifier.ResetCode(student, code, s.cfg.TTL); err != nil {
		s.mu.Lock()
		if current, ok := s.codes[key]; ok && current.Code == code {
			if hadPrevious {
				s.codes[key] = previous
			} else {
				delete(s.codes, key)
			}
		}
		s.mu.Unlock()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send reset code")
	}

	s.metrics.RecordResetEvent(ResetEventIssued, 1)
	s.logger.Info("reset code issued", zap.String("scope", scope.Name), zap.String("student_id", student.ID))
	return nil
}

// Confirm redeems a code and sets the new credential. A wrong code leaves the
// issued code in place; an expired one is discarded.
func (s *ResetCodeService) Confirm(ctx context.Context, scope models.Scope, req models.ConfirmPasswordResetRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "new password must be 4 uppercase letters or digits")
	}

	key := resetKey(scope.Name, req.StudentID)
	s.mu.Lock()
	entry, ok := s.codes[key]
	switch {
	case !ok:
		s.mu.Unlock()
		s.metrics.RecordResetEvent(ResetEventRejected, 1)
		return appErrors.ErrInvalidCode
	case s.expired(entry):
		delete(s.codes, key)
		s.mu.Unlock()
		s.metrics.RecordResetEvent(ResetEventExpired, 1)
		return appErrors.ErrCodeExpired
	case entry.Code != req.Code:
		s.mu.Unlock()
		s.metrics.RecordResetEvent(ResetEventRejected, 1)
		return appErrors.ErrInvalidCode
	}
	// Claim before writing so a concurrent confirm with the same code fails.
	delete(s.codes, key)
	s.mu.Unlock()

	if err := s.students.UpdateCredential(ctx, scope, req.StudentID, req.NewCredential); err != nil {
		s.mu.Lock()
		if _, replaced := s.codes[key]; !replaced {
			s.codes[key] = entry
		}
		s.mu.Unlock()
		return err
	}

	s.metrics.RecordResetEvent(ResetEventRedeemed, 1)
	s.logger.Info("credential reset", zap.String("scope", scope.Name), zap.String("student_id", req.StudentID))
	return nil
}

func (s *ResetCodeService) expired(entry models.ResetCode) bool {
	return s.now().Sub(entry.IssuedAt) > s.cfg.TTL
}

// Sweep removes expired codes and returns how many were dropped.
func (s *ResetCodeService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, entry := range s.codes {
		if s.expired(entry) {
			delete(s.codes, key)
			removed++
		}
	}
	s.metrics.RecordResetEvent(ResetEventSwept, removed)
	return removed
}

// Pending returns the number of outstanding codes.
func (s *ResetCodeService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

// Start runs the sweeper until Stop is called or ctx is done.
func (s *ResetCodeService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Debug("expired reset codes swept", zap.Int("count", n))
				}
			}
		}
	}()
}

// Stop halts the sweeper and waits for it to exit.
func (s *ResetCodeService) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

var resetCodeSpace = big.NewInt(900000)

// generateResetCode returns a uniformly random code in 100000..999999.
func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, resetCodeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
