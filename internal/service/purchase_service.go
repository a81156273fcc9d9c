package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
	"github.com/noah-isme/rewards-ledger-api/pkg/keylock"
)

type coinLedger interface {
	Get(ctx context.Context, scope models.Scope, id string) (*models.StudentRecord, error)
	DebitCoins(ctx context.Context, scope models.Scope, student *models.StudentRecord, amount int) (int, error)
	CreditCoins(ctx context.Context, scope models.Scope, student *models.StudentRecord, amount int) (int, error)
}

type stockLedger interface {
	Get(ctx context.Context, scope models.Scope, name string) (*models.Badge, error)
	Reserve(ctx context.Context, scope models.Scope, badge *models.Badge, quantity int) (int, error)
	Release(ctx context.Context, scope models.Scope, badge *models.Badge, quantity int) (int, error)
}

type purchaseLog interface {
	Append(ctx context.Context, scope models.Scope, record models.PurchaseRecord) error
	FindByID(ctx context.Context, scope models.Scope, id string) (*models.PurchaseRecord, *models.PurchaseRecord, error)
	Holdings(ctx context.Context, scope models.Scope, studentID string) (map[string]int, error)
}

type receiptNotifier interface {
	PurchaseReceipt(student *models.StudentRecord, result *models.PurchaseResult, previousBalance int) error
}

// PurchaseConfig bounds purchase requests.
type PurchaseConfig struct {
	MaxQuantity int
}

// PurchaseService coordinates the debit, reserve and log steps of a purchase.
// The store has no cross-call transactions, so each step is re-validated and
// failures after the first mutation are compensated or reported as partial.
type PurchaseService struct {
	coins     coinLedger
	stock     stockLedger
	log       purchaseLog
	notifier  receiptNotifier
	locks     *keylock.Locker
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       PurchaseConfig
	now       func() time.Time
}

// NewPurchaseService constructs a PurchaseService. locks must be the same
// Locker the student ledger uses.
func NewPurchaseService(coins coinLedger, stock stockLedger, log purchaseLog, notifier receiptNotifier, locks *keylock.Locker, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg PurchaseConfig) *PurchaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = keylock.New()
	}
	return &PurchaseService{
		coins:     coins,
		stock:     stock,
		log:       log,
		notifier:  notifier,
		locks:     locks,
		metrics:   metrics,
		validator: ensureValidator(validate),
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Purchase buys req.Quantity units of a badge for req.StudentID. A
// PARTIAL_APPLICATION error is returned together with the committed result
// when the ledger changed but could not be confirmed.
func (s *PurchaseService) Purchase(ctx context.Context, scope models.Scope, req models.PurchaseRequest) (result *models.PurchaseResult, err error) {
	defer func() {
		total := 0
		if result != nil {
			total = result.TotalCost
		}
		s.metrics.RecordPurchase(scope.Name, errorCode(err), total)
	}()

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid purchase payload")
	}
	if strings.TrimSpace(req.StudentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if s.cfg.MaxQuantity > 0 && req.Quantity > s.cfg.MaxQuantity {
		return nil, appErrors.Clone(appErrors.ErrValidation, "quantity exceeds the per-purchase limit")
	}

	unlock := s.locks.Lock(StudentLockKey(scope.Name, req.StudentID), BadgeLockKey(scope.Name, req.BadgeName))
	defer unlock()

	student, err := s.coins.Get(ctx, scope, req.StudentID)
	if err != nil {
		return nil, err
	}
	badge, err := s.stock.Get(ctx, scope, req.BadgeName)
	if err != nil {
		return nil, err
	}
	if req.UnitCost != badge.UnitCost {
		return nil, appErrors.WithDetails(appErrors.ErrPriceMismatch, map[string]interface{}{"unit_cost": badge.UnitCost})
	}

	total := req.Quantity * badge.UnitCost
	if student.CoinBalance < total {
		return nil, appErrors.Clone(appErrors.ErrInsufficientFunds, "insufficient coins")
	}
	if badge.AvailableQuantity < req.Quantity {
		return nil, appErrors.Clone(appErrors.ErrInsufficientStock, "insufficient badge stock")
	}
	previousBalance := student.CoinBalance

	balance, err := s.coins.DebitCoins(ctx, scope, student, total)
	if err != nil {
		return nil, err
	}

	remaining, err := s.stock.Reserve(ctx, scope, badge, req.Quantity)
	if err != nil {
		if _, refundErr := s.coins.CreditCoins(ctx, scope, student, total); refundErr != nil {
			s.logger.Error("purchase refund failed; manual reconciliation required",
				zap.String("scope", scope.Name),
				zap.String("student_id", student.ID),
				zap.String("badge", badge.Name),
				zap.Int("quantity", req.Quantity),
				zap.Int("debited", total),
				zap.NamedError("reserve_error", err),
				zap.Error(refundErr))
			partial := appErrors.WithDetails(appErrors.ErrPartialApplication, map[string]interface{}{
				"stage":   "refund",
				"debited": total,
			})
			partial.Err = refundErr
			return nil, partial
		}
		return nil, err
	}

	record := models.PurchaseRecord{
		ID:        uuid.NewString(),
		Timestamp: s.now(),
		StudentID: student.ID,
		BadgeName: badge.Name,
		Quantity:  req.Quantity,
		UnitCost:  badge.UnitCost,
	}
	result = &models.PurchaseResult{
		PurchaseID:  record.ID,
		BadgeName:   badge.Name,
		Quantity:    req.Quantity,
		TotalCost:   total,
		NewBalance:  balance,
		NewQuantity: remaining,
	}

	if err := s.log.Append(ctx, scope, record); err != nil {
		s.logger.Error("purchase applied but not logged; manual reconciliation required",
			zap.String("scope", scope.Name),
			zap.String("purchase_id", record.ID),
			zap.String("student_id", record.StudentID),
			zap.String("badge", record.BadgeName),
			zap.Int("quantity", record.Quantity),
			zap.Int("unit_cost", record.UnitCost),
			zap.Int("new_balance", balance),
			zap.Int("new_quantity", remaining),
			zap.Time("timestamp", record.Timestamp),
			zap.Error(err))
		partial := appErrors.WithDetails(appErrors.ErrPartialApplication, map[string]interface{}{
			"purchase_id": record.ID,
			"stage":       "log",
		})
		partial.Err = err
		return result, partial
	}

	holdings, err := s.log.Holdings(ctx, scope, student.ID)
	if err != nil {
		s.logger.Warn("failed to fold holdings after purchase", zap.String("purchase_id", record.ID), zap.Error(err))
	}
	result.Holdings = holdings

	if err := s.notifier.PurchaseReceipt(student, result, previousBalance); err != nil {
		s.logger.Warn("failed to queue purchase receipt", zap.String("purchase_id", record.ID), zap.Error(err))
	}

	s.logger.Info("purchase committed",
		zap.String("scope", scope.Name),
		zap.String("purchase_id", record.ID),
		zap.String("student_id", student.ID),
		zap.String("badge", badge.Name),
		zap.Int("quantity", req.Quantity),
		zap.Int("total_cost", total))
	return result, nil
}

// Reverse compensates a logged purchase: coins are refunded, stock released
// and a negative entry referencing the original is appended.
func (s *PurchaseService) Reverse(ctx context.Context, scope models.Scope, purchaseID string) (*models.ReversalResult, error) {
	purchaseID = strings.TrimSpace(purchaseID)
	if purchaseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "purchase id is required")
	}
	original, err := s.findReversible(ctx, scope, purchaseID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(StudentLockKey(scope.Name, original.StudentID), BadgeLockKey(scope.Name, original.BadgeName))
	defer unlock()

	// Re-check under the locks so two concurrent reversals cannot both pass.
	if original, err = s.findReversible(ctx, scope, purchaseID); err != nil {
		return nil, err
	}

	student, err := s.coins.Get(ctx, scope, original.StudentID)
	if err != nil {
		return nil, err
	}
	badge, err := s.stock.Get(ctx, scope, original.BadgeName)
	if err != nil {
		return nil, err
	}

	refund := original.Quantity * original.UnitCost
	balance, err := s.coins.CreditCoins(ctx, scope, student, refund)
	if err != nil {
		return nil, err
	}

	reversal := models.PurchaseRecord{
		ID:         uuid.NewString(),
		Timestamp:  s.now(),
		StudentID:  original.StudentID,
		BadgeName:  original.BadgeName,
		Quantity:   -original.Quantity,
		UnitCost:   original.UnitCost,
		ReversesID: original.ID,
	}
	partial := func(stage string, cause error) error {
		s.logger.Error("reversal partially applied; manual reconciliation required",
			zap.String("scope", scope.Name),
			zap.String("purchase_id", original.ID),
			zap.String("reversal_id", reversal.ID),
			zap.String("stage", stage),
			zap.Int("refunded", refund),
			zap.Error(cause))
		partialErr := appErrors.WithDetails(appErrors.ErrPartialApplication, map[string]interface{}{
			"purchase_id": original.ID,
			"reversal_id": reversal.ID,
			"stage":       stage,
		})
		partialErr.Err = cause
		return partialErr
	}

	available, err := s.stock.Release(ctx, scope, badge, original.Quantity)
	if err != nil {
		return nil, partial("release", err)
	}
	if err := s.log.Append(ctx, scope, reversal); err != nil {
		return nil, partial("log", err)
	}

	s.logger.Info("purchase reversed",
		zap.String("scope", scope.Name),
		zap.String("purchase_id", original.ID),
		zap.String("reversal_id", reversal.ID),
		zap.Int("refunded", refund))
	return &models.ReversalResult{
		PurchaseID:  original.ID,
		ReversalID:  reversal.ID,
		StudentID:   original.StudentID,
		BadgeName:   original.BadgeName,
		Refunded:    refund,
		NewBalance:  balance,
		NewQuantity: available,
	}, nil
}

func (s *PurchaseService) findReversible(ctx context.Context, scope models.Scope, id string) (*models.PurchaseRecord, error) {
	record, reversal, err := s.log.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "purchase not found")
		}
		return nil, storeFailure(err, "failed to load purchase log")
	}
	if record.IsReversal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a reversal entry cannot be reversed")
	}
	if reversal != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "purchase already reversed")
	}
	if record.Quantity <= 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "purchase has nothing to reverse")
	}
	return record, nil
}
