package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
	"github.com/noah-isme/rewards-ledger-api/pkg/recordstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newResetFixture(t *testing.T) (*ledgerFixture, *ResetCodeService, *fakeClock) {
	t.Helper()
	f := newLedgerFixture(t, "")
	clock := &fakeClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	svc := NewResetCodeService(f.students, f.notifier, nil, nil, zap.NewNop(), ResetCodeConfig{}).WithClock(clock.Now)
	return f, svc, clock
}

func confirm(id, code, password string) models.ConfirmPasswordResetRequest {
	return models.ConfirmPasswordResetRequest{StudentID: id, Code: code, NewCredential: password}
}

func TestResetCodeIsSingleUse(t *testing.T) {
	f, svc, _ := newResetFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Request(ctx, f.scope, models.PasswordResetRequest{StudentID: "s1"}))
	code := f.notifier.code("s1")
	assert.Regexp(t, regexp.MustCompile(`^[1-9][0-9]{5}$`), code)

	require.NoError(t, svc.Confirm(ctx, f.scope, confirm("s1", code, "NEW1")))
	_, err := f.students.Authenticate(ctx, f.scope, "s1", "NEW1")
	require.NoError(t, err)

	err = svc.Confirm(ctx, f.scope, confirm("s1", code, "NEW2"))
	assert.ErrorIs(t, err, appErrors.ErrInvalidCode)
	assert.Equal(t, 0, svc.Pending())
}

func TestResetCodeExpiryBoundary(t *testing.T) {
	f, svc, clock := newResetFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Request(ctx, f.scope, models.PasswordResetRequest{StudentID: "s1"}))
	clock.Advance(9*time.Minute + 59*time.Second)
	require.NoError(t, svc.Confirm(ctx, f.scope, confirm("s1", f.notifier.code("s1"), "NEW1")))

	require.NoError(t, svc.Request(ctx, f.scope, models.PasswordResetRequest{StudentID: "s2"}))
	clock.Advance(10*time.Minute + time.Second)
	err := svc.Confirm(ctx, f.scope, confirm("s2", f.notifier.code("s2"), "NEW2"))
	assert.ErrorIs(t, err, appErrors.ErrCodeExpired)
	assert.Equal(t, 0, svc.Pending())
}

func TestResetCodeWrongCodeKeepsEntry(t *testing.T) {
	f, svc, _ := newResetFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, f.scope, models.PasswordResetRequest{StudentID: "s1"}))
	code := f.notifier.code("s1")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	err := svc.Confirm(ctx, f.scope, confirm("s1", wrong, "NEW1"))
	assert.ErrorIs(t, err, appErrors.ErrInvalidCode)
	assert.Equal(t, 1, svc.Pending())

	require.NoError(t, svc.Confirm(ctx, f.scope, confirm("s1", code, "NEW1")))
}

func TestResetCodeRequiresValidPasscode(t *testing.T) {
	f, svc, _ := newResetFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, f.scope, models.PasswordResetRequest{StudentID: "s1"}))

	for _, bad := range []string{"abcd", "A1B", "A1B2C", "A1+2", "ab1f"} {
		err := svc.Confirm(ctx, f.scope, confirm("s1", f.notifier.code("s1"), bad))
		assert.ErrorIs(t, err, appErrors.ErrValidation, bad)
	}
	assert.Equal(t, 1, svc.Pending())
	assert.Equal(t, "AB12", f.store.Snapshot("Sheet1")[1][4])
}

func TestResetCodeRequestForUnknownStudent(t *testing.T) {
	f, svc, _ := newResetFixture(t)

	err := svc.Request(context.Background(), f.scope, models.PasswordResetRequest{StudentID: "nobody"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, 0, svc.Pending())

	err = svc.Confirm(context.Background(), f.scope, confirm("nobody", "123456", "NEW1"))
	assert.ErrorIs(t, err, appErrors.ErrInvalidCode)
}

func TestResetCodeReissueReplacesPrevious(t *testing.T) {
	f, svc, _ := newResetFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, f.scope, models.PasswordResetRequest{StudentID: "s1"}))
	first := f.notifier.code("s1")

	var second string
	for second == "" || second == first {
		require.NoError(t, svc.Request(ctx, f.scope, models.PasswordResetRequest{StudentID: "s1"}))
		second = f.notifier.code("s1")
	}

	assert.ErrorIs(t, svc.Confirm(ctx, f.scope, confirm("s1", first, "NEW1")), appErrors.ErrInvalidCode)
	require.NoError(t, svc.Confirm(ctx, f.scope, confirm("s1", second, "NEW1")))
}

func TestResetCodeRestoredWhenCredentialWriteFails(t *testing.T) {
	f, svc, _ := newResetFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, f.scope, models.PasswordResetRequest{StudentID: "s1"}))
	code := f.notifier.code("s1")

	f.store.failWrites(func(string) error { return recordstore.Transient(errors.New("timeout")) })
	err := svc.Confirm(ctx, f.scope, confirm("s1", code, "NEW1"))
	assert.ErrorIs(t, err, appErrors.ErrStoreUnavailable)
	assert.Equal(t, 1, svc.Pending())

	f.store.failWrites(nil)
	require.NoError(t, svc.Confirm(ctx, f.scope, confirm("s1", code, "NEW1")))
}

func TestResetCodeNotStoredWhenMailFails(t *testing.T) {
	f, svc, _ := newResetFixture(t)
	f.notifier.err = errors.New("queue full")

	err := svc.Request(context.Background(), f.scope, models.PasswordResetRequest{StudentID: "s1"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, 0, svc.Pending())
}

func TestResetCodeKeepsPreviousWhenQueueRefuses(t *testing.T) {
	f, svc, _ := newResetFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, f.scope, models.PasswordResetRequest{StudentID: "s1"}))
	first := f.notifier.code("s1")

	f.notifier.err = errors.New("queue full")
	err := svc.Request(ctx, f.scope, models.PasswordResetRequest{StudentID: "s1"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, 1, svc.Pending())

	f.notifier.err = nil
	require.NoError(t, svc.Confirm(ctx, f.scope, confirm("s1", first, "NEW1")))
}

func TestResetCodeSweep(t *testing.T) {
	f, svc, clock := newResetFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, f.scope, models.PasswordResetRequest{StudentID: "s1"}))
	clock.Advance(5 * time.Minute)
	require.NoError(t, svc.Request(ctx, f.scope, models.PasswordResetRequest{StudentID: "s2"}))

	clock.Advance(6 * time.Minute)
	assert.Equal(t, 1, svc.Sweep())
	assert.Equal(t, 1, svc.Pending())
}

func TestResetCodeSweeperRunsInBackground(t *testing.T) {
	f, svc, clock := newResetFixture(t)
	svc.cfg.SweepInterval = 5 * time.Millisecond
	require.NoError(t, svc.Request(context.Background(), f.scope, models.PasswordResetRequest{StudentID: "s1"}))
	clock.Advance(11 * time.Minute)

	svc.Start(context.Background())
	defer svc.Stop()
	assert.Eventually(t, func() bool { return svc.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestGenerateResetCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateResetCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.NotEqual(t, byte('0'), code[0])
	}
}
