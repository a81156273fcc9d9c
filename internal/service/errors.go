package service

import (
	"errors"

	"github.com/noah-isme/rewards-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
	"github.com/noah-isme/rewards-ledger-api/pkg/recordstore"
)

// storeFailure maps a record store error to a client-safe error. The cause is
// kept in Err for logging and never serialized.
func storeFailure(err error, message string) *appErrors.Error {
	if recordstore.IsTransient(err) {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	if errors.Is(err, repository.ErrRowMoved) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "record changed concurrently; retry the operation")
	}
	if errors.Is(err, repository.ErrMalformedCell) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored record holds a non-numeric value; correct it before retrying")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func storeErrorKind(err error) string {
	if recordstore.IsTransient(err) {
		return "transient"
	}
	return "fatal"
}

// errorCode returns the public code of err for metrics labels.
func errorCode(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return appErrors.FromError(err).Code
}
