package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/pkg/config"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
)

func TestAuthenticateReturnsProfileWithHoldings(t *testing.T) {
	f := newLedgerFixture(t, "")
	ctx := context.Background()
	require.NoError(t, f.log.Append(ctx, f.scope, models.PurchaseRecord{ID: "p1", Timestamp: time.Now(), StudentID: "s1", BadgeName: "Gold", Quantity: 2, UnitCost: 20}))

	view, err := f.students.Authenticate(ctx, f.scope, "s1", "AB12")
	require.NoError(t, err)
	assert.Equal(t, "Ana", view.Name)
	assert.Equal(t, 50, view.CoinBalance)
	assert.Equal(t, 2, view.Level)
	assert.False(t, view.LeveledUp)
	assert.Equal(t, map[string]int{"Gold": 2}, view.Holdings)
	assert.Equal(t, 2, view.Row)
}

func TestAuthenticateRejectsWrongCredential(t *testing.T) {
	f := newLedgerFixture(t, "")

	_, err := f.students.Authenticate(context.Background(), f.scope, "s1", "ab12")
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = f.students.Authenticate(context.Background(), f.scope, "s9", "AB12")
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthenticateEmptyCollectionIsNotFound(t *testing.T) {
	f := newLedgerFixture(t, "")
	f.store.Seed("Sheet1", [][]string{models.DefaultStudentLayout().Header()})

	_, err := f.students.Authenticate(context.Background(), f.scope, "s1", "AB12")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestLevelUpReportedOnce(t *testing.T) {
	f := newLedgerFixture(t, "")
	ctx := context.Background()

	res, err := f.students.CreditExperience(ctx, f.scope, "s1", 25)
	require.NoError(t, err)
	assert.Equal(t, 55, res.Experience)
	assert.Equal(t, 3, res.Level)
	assert.True(t, res.LeveledUp)

	first, err := f.students.Authenticate(ctx, f.scope, "s1", "AB12")
	require.NoError(t, err)
	assert.True(t, first.LeveledUp)
	assert.Equal(t, 3, first.Level)

	second, err := f.students.Authenticate(ctx, f.scope, "s1", "AB12")
	require.NoError(t, err)
	assert.False(t, second.LeveledUp)
	assert.Equal(t, "3", f.store.Snapshot("Sheet1")[1][10])
}

func TestCreditExperienceValidation(t *testing.T) {
	f := newLedgerFixture(t, "")

	_, err := f.students.CreditExperience(context.Background(), f.scope, "s1", 0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.students.CreditExperience(context.Background(), f.scope, "nobody", 5)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCreditExperienceWithinLevel(t *testing.T) {
	f := newLedgerFixture(t, "")

	res, err := f.students.CreditExperience(context.Background(), f.scope, "s2", 1)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Experience)
	assert.False(t, res.LeveledUp)
}

func TestDebitCoinsRevalidatesBalance(t *testing.T) {
	f := newLedgerFixture(t, "")
	ctx := context.Background()
	stale := f.student(t, "s1")

	require.NoError(t, f.store.WriteCell(ctx, "Sheet1", "G2", "10"))

	_, err := f.students.DebitCoins(ctx, f.scope, stale, 20)
	assert.ErrorIs(t, err, appErrors.ErrInsufficientFunds)
	assert.Equal(t, 10, f.student(t, "s1").CoinBalance)

	balance, err := f.students.DebitCoins(ctx, f.scope, stale, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestDebitCoinsDetectsMovedRow(t *testing.T) {
	f := newLedgerFixture(t, "")
	stale := f.student(t, "s1")
	stale.Row = 3

	_, err := f.students.DebitCoins(context.Background(), f.scope, stale, 1)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestMutationsRefuseToOverwriteNonNumericCells(t *testing.T) {
	f := newLedgerFixture(t, "")
	ctx := context.Background()
	s1 := f.student(t, "s1")
	gold := f.badge(t, "Gold")

	require.NoError(t, f.store.WriteCell(ctx, "Sheet1", "G2", "1,200"))
	require.NoError(t, f.store.WriteCell(ctx, "Sheet1", "J2", "$30"))
	require.NoError(t, f.store.WriteCell(ctx, "Badges", "B2", "5 units"))

	_, err := f.students.CreditCoins(ctx, f.scope, s1, 20)
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	_, err = f.students.CreditExperience(ctx, f.scope, "s1", 5)
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	_, err = f.inventory.Release(ctx, f.scope, gold, 1)
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	students := f.store.Snapshot("Sheet1")
	assert.Equal(t, "1,200", students[1][6])
	assert.Equal(t, "$30", students[1][9])
	assert.Equal(t, "5 units", f.store.Snapshot("Badges")[1][1])
}

func TestRegisterCreatesStudentOnce(t *testing.T) {
	f := newLedgerFixture(t, "")
	ctx := context.Background()
	req := models.RegisterRequest{StudentID: "s3", Name: "Eva", Email: "eva@up.edu.mx", Password: "QW12"}

	created, err := f.students.Register(ctx, f.scope, req)
	require.NoError(t, err)
	assert.Equal(t, "s3", created.ID)

	view, err := f.students.Authenticate(ctx, f.scope, "s3", "QW12")
	require.NoError(t, err)
	assert.Equal(t, 0, view.CoinBalance)

	_, err = f.students.Register(ctx, f.scope, req)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	req.StudentID = "s4"
	req.Password = "weak"
	_, err = f.students.Register(ctx, f.scope, req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestBcryptModeHashesNewCredentialsAndAcceptsLegacy(t *testing.T) {
	f := newLedgerFixture(t, config.CredentialModeBcrypt)
	ctx := context.Background()

	_, err := f.students.Authenticate(ctx, f.scope, "s1", "AB12")
	require.NoError(t, err)

	require.NoError(t, f.students.UpdateCredential(ctx, f.scope, "s1", "NEW1"))
	stored := f.store.Snapshot("Sheet1")[1][4]
	assert.True(t, strings.HasPrefix(stored, "$2"))

	_, err = f.students.Authenticate(ctx, f.scope, "s1", "NEW1")
	require.NoError(t, err)
	_, err = f.students.Authenticate(ctx, f.scope, "s1", "AB12")
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	_, err = f.students.Authenticate(ctx, f.scope, "s1", stored)
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestUpdateCredentialRejectsInvalidPasscode(t *testing.T) {
	f := newLedgerFixture(t, "")
	for _, bad := range []string{"ab12", "ABC", "ABCDE", "AB-1", ""} {
		err := f.students.UpdateCredential(context.Background(), f.scope, "s1", bad)
		assert.ErrorIs(t, err, appErrors.ErrValidation, bad)
	}
	assert.Equal(t, "AB12", f.store.Snapshot("Sheet1")[1][4])
}
