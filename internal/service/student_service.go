package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/internal/repository"
	"github.com/noah-isme/rewards-ledger-api/pkg/config"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
	"github.com/noah-isme/rewards-ledger-api/pkg/keylock"
)

type studentRepository interface {
	List(ctx context.Context, scope models.Scope) ([]models.StudentRecord, error)
	FindByID(ctx context.Context, scope models.Scope, id string) (*models.StudentRecord, error)
	Reload(ctx context.Context, scope models.Scope, id string, row int) (*models.StudentRecord, error)
	UpdateCoins(ctx context.Context, scope models.Scope, row, coins int) error
	UpdateExperience(ctx context.Context, scope models.Scope, row, experience int) error
	UpdateLastObservedLevel(ctx context.Context, scope models.Scope, row, level int) error
	UpdateCredential(ctx context.Context, scope models.Scope, row int, credential string) error
	Create(ctx context.Context, scope models.Scope, student models.StudentRecord) error
}

type holdingsReader interface {
	Holdings(ctx context.Context, scope models.Scope, studentID string) (map[string]int, error)
}

// StudentLockKey is the keylock key serializing mutations of one student row.
func StudentLockKey(scope, id string) string {
	return "student:" + scope + ":" + id
}

// StudentService owns coin balances, experience and credentials.
type StudentService struct {
	repo      studentRepository
	purchases holdingsReader
	locks     *keylock.Locker
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	mode      string
}

// NewStudentService constructs a StudentService. mode is a config credential mode.
func NewStudentService(repo studentRepository, purchases holdingsReader, locks *keylock.Locker, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, mode string) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = keylock.New()
	}
	if mode == "" {
		mode = config.CredentialModePlain
	}
	return &StudentService{
		repo:      repo,
		purchases: purchases,
		locks:     locks,
		cache:     cache,
		metrics:   metrics,
		validator: ensureValidator(validate),
		logger:    logger,
		mode:      mode,
	}
}

// Authenticate verifies a student's credential and returns the profile. When
// the derived level exceeds the last observed level, LeveledUp is set and the
// observed level is advanced so the flag is reported once.
func (s *StudentService) Authenticate(ctx context.Context, scope models.Scope, id, credential string) (*models.StudentView, error) {
	students, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, storeFailure(err, "failed to load students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no students found")
	}

	var student *models.StudentRecord
	for i := range students {
		if students[i].ID == id && s.credentialMatches(students[i].Credential, credential) {
			student = &students[i]
			break
		}
	}
	if student == nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	leveledUp := false
	if LevelFor(student.Experience) > student.LastObservedLevel {
		leveledUp, err = s.advanceObservedLevel(ctx, scope, student)
		if err != nil {
			s.logger.Warn("failed to persist observed level",
				zap.String("scope", scope.Name), zap.String("student_id", id), zap.Error(err))
		}
	}

	holdings, err := s.purchases.Holdings(ctx, scope, id)
	if err != nil {
		return nil, storeFailure(err, "failed to load badge holdings")
	}

	view := toStudentView(student, holdings)
	view.LeveledUp = leveledUp
	return view, nil
}

// advanceObservedLevel re-checks under the student lock so concurrent logins
// report a level-up only once.
func (s *StudentService) advanceObservedLevel(ctx context.Context, scope models.Scope, student *models.StudentRecord) (bool, error) {
	unlock := s.locks.Lock(StudentLockKey(scope.Name, student.ID))
	defer unlock()

	current, err := s.repo.Reload(ctx, scope, student.ID, student.Row)
	if err != nil {
		return false, err
	}
	level := LevelFor(current.Experience)
	if level <= current.LastObservedLevel {
		return false, nil
	}
	if err := s.repo.UpdateLastObservedLevel(ctx, scope, current.Row, level); err != nil {
		return false, err
	}
	*student = *current
	student.LastObservedLevel = level
	s.metrics.RecordLevelUp()
	return true, nil
}

// Get returns the student with id.
func (s *StudentService) Get(ctx context.Context, scope models.Scope, id string) (*models.StudentRecord, error) {
	student, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeFailure(err, "failed to load student")
	}
	return student, nil
}

// Register appends a new student with zero balances.
func (s *StudentService) Register(ctx context.Context, scope models.Scope, req models.RegisterRequest) (*models.StudentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}

	unlock := s.locks.Lock(StudentLockKey(scope.Name, req.StudentID))
	defer unlock()

	_, err := s.repo.FindByID(ctx, scope, req.StudentID)
	switch {
	case err == nil:
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already registered")
	case !errors.Is(err, repository.ErrRecordNotFound):
		return nil, storeFailure(err, "failed to check existing student")
	}

	credential, err := s.encodeCredential(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to secure credential")
	}
	record := models.StudentRecord{
		ID:         req.StudentID,
		Name:       strings.TrimSpace(req.Name),
		Sex:        req.Sex,
		Email:      req.Email,
		Credential: credential,
	}
	if err := s.repo.Create(ctx, scope, record); err != nil {
		return nil, storeFailure(err, "failed to register student")
	}
	s.cache.Invalidate(ctx, scope.Name, ViewLeaderboard)

	s.logger.Info("student registered", zap.String("scope", scope.Name), zap.String("student_id", record.ID))
	return &record, nil
}

// CreditExperience adds amount to a student's experience. LeveledUp compares
// the derived level before and after; the observed level is not touched, so
// the next authentication still reports the change.
func (s *StudentService) CreditExperience(ctx context.Context, scope models.Scope, id string, amount int) (*models.ExperienceResult, error) {
	if amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}

	unlock := s.locks.Lock(StudentLockKey(scope.Name, id))
	defer unlock()

	student, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	experience := student.Experience + amount
	if err := s.repo.UpdateExperience(ctx, scope, student.Row, experience); err != nil {
		return nil, storeFailure(err, "failed to credit experience")
	}
	s.cache.Invalidate(ctx, scope.Name, ViewLeaderboard)

	level := LevelFor(experience)
	return &models.ExperienceResult{
		StudentID:  id,
		Experience: experience,
		Level:      level,
		LeveledUp:  level > LevelFor(student.Experience),
	}, nil
}

// DebitCoins removes amount from the balance after re-reading the student's
// row. The caller must hold the student lock.
func (s *StudentService) DebitCoins(ctx context.Context, scope models.Scope, student *models.StudentRecord, amount int) (int, error) {
	if amount < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "amount must not be negative")
	}
	current, err := s.repo.Reload(ctx, scope, student.ID, student.Row)
	if err != nil {
		return 0, storeFailure(err, "failed to re-read student")
	}
	if current.CoinBalance < amount {
		return 0, appErrors.Clone(appErrors.ErrInsufficientFunds, "insufficient coins")
	}
	balance := current.CoinBalance - amount
	if err := s.repo.UpdateCoins(ctx, scope, current.Row, balance); err != nil {
		return 0, storeFailure(err, "failed to debit coins")
	}
	return balance, nil
}

// CreditCoins adds amount back to the balance. The caller must hold the
// student lock.
func (s *StudentService) CreditCoins(ctx context.Context, scope models.Scope, student *models.StudentRecord, amount int) (int, error) {
	if amount < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "amount must not be negative")
	}
	current, err := s.repo.Reload(ctx, scope, student.ID, student.Row)
	if err != nil {
		return 0, storeFailure(err, "failed to re-read student")
	}
	balance := current.CoinBalance + amount
	if err := s.repo.UpdateCoins(ctx, scope, current.Row, balance); err != nil {
		return 0, storeFailure(err, "failed to credit coins")
	}
	return balance, nil
}

// UpdateCredential replaces a student's credential.
func (s *StudentService) UpdateCredential(ctx context.Context, scope models.Scope, id, credential string) error {
	if !ValidPasscode(credential) {
		return appErrors.Clone(appErrors.ErrValidation, "credential must be 4 uppercase letters or digits")
	}

	unlock := s.locks.Lock(StudentLockKey(scope.Name, id))
	defer unlock()

	student, err := s.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	encoded, err := s.encodeCredential(credential)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to secure credential")
	}
	if err := s.repo.UpdateCredential(ctx, scope, student.Row, encoded); err != nil {
		return storeFailure(err, "failed to update credential")
	}
	return nil
}

func (s *StudentService) encodeCredential(plain string) (string, error) {
	if s.mode != config.CredentialModeBcrypt {
		return plain, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// credentialMatches compares in constant time. In bcrypt mode hashed rows are
// verified with bcrypt and legacy plaintext rows still compare verbatim.
func (s *StudentService) credentialMatches(stored, provided string) bool {
	if stored == "" {
		return false
	}
	if s.mode == config.CredentialModeBcrypt && isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(provided)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func toStudentView(s *models.StudentRecord, holdings map[string]int) *models.StudentView {
	if holdings == nil {
		holdings = map[string]int{}
	}
	return &models.StudentView{
		ID:              s.ID,
		Name:            s.Name,
		HomeworkCount:   s.HomeworkCount,
		AttendanceCount: s.AttendanceCount,
		CoinBalance:     s.CoinBalance,
		BadgeCount:      s.BadgeCount,
		Experience:      s.Experience,
		Level:           LevelFor(s.Experience),
		Holdings:        holdings,
		Row:             s.Row,
	}
}
