// Package recordstore provides typed access to named collections of tabular
// records held by a remote store. Gateways offer no transactions across calls:
// BatchWrite is atomic per call, nothing else is.
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Gateway is the contract every record store backend implements. Ranges and
// cell references use A1 notation ("A:K", "A2:D", "G5").
type Gateway interface {
	ReadRange(ctx context.Context, collection, rng string) ([][]string, error)
	WriteCell(ctx context.Context, collection, cell, value string) error
	BatchWrite(ctx context.Context, collection string, updates []CellUpdate) error
	AppendRow(ctx context.Context, collection string, row []string) error
}

// CellUpdate is a single cell assignment inside a batch write.
type CellUpdate struct {
	Cell  string
	Value string
}

var (
	// ErrTransient marks failures that may succeed when retried (timeouts, rate limits, 5xx).
	ErrTransient = errors.New("recordstore: transient failure")
	// ErrFatal marks failures that will not succeed on retry (permissions, malformed references).
	ErrFatal = errors.New("recordstore: fatal failure")
)

// Transient wraps err so that IsTransient reports true.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Fatal wraps err so that IsTransient reports false.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrFatal, err)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrFatal) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
