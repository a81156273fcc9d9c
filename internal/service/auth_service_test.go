package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
)

func newAuthFixture(t *testing.T) (*ledgerFixture, *AuthService) {
	t.Helper()
	f := newLedgerFixture(t, "")
	svc := NewAuthService(f.students, nil, zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "rewards-ledger-api"})
	return f, svc
}

func TestAuthServiceLoginIssuesScopedToken(t *testing.T) {
	f, svc := newAuthFixture(t)

	res, err := svc.Login(context.Background(), f.scope, models.LoginRequest{StudentID: "s1", Password: "AB12"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "Ana", res.Student.Name)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.StudentID)
	assert.Equal(t, "default", claims.Scope)
	assert.Equal(t, "rewards-ledger-api", claims.Issuer)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	f, svc := newAuthFixture(t)

	_, err := svc.Login(context.Background(), f.scope, models.LoginRequest{StudentID: "s1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Login(context.Background(), f.scope, models.LoginRequest{StudentID: "s1", Password: "NOPE"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceRejectsExpiredAndForeignTokens(t *testing.T) {
	f, svc := newAuthFixture(t)
	res, err := svc.Login(context.Background(), f.scope, models.LoginRequest{StudentID: "s1", Password: "AB12"})
	require.NoError(t, err)

	other := NewAuthService(f.students, nil, nil, AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour})
	_, err = other.ValidateToken(res.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(res.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
