package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/pkg/recordstore"
)

const (
	purchaseTimestampCol = iota
	purchaseStudentCol
	purchaseBadgeCol
	purchaseQuantityCol
	purchaseUnitCostCol
	purchaseIDCol
	purchaseReversesCol
)

// PurchaseRepository appends to and folds the purchase log.
type PurchaseRepository struct {
	store recordstore.Gateway
}

// NewPurchaseRepository constructs a purchase repository.
func NewPurchaseRepository(store recordstore.Gateway) *PurchaseRepository {
	return &PurchaseRepository{store: store}
}

// Append writes one log entry. The log is never updated in place.
func (r *PurchaseRepository) Append(ctx context.Context, scope models.Scope, record models.PurchaseRecord) error {
	row := make([]string, purchaseReversesCol+1)
	row[purchaseTimestampCol] = record.Timestamp.UTC().Format(models.PurchaseTimeLayout)
	row[purchaseStudentCol] = record.StudentID
	row[purchaseBadgeCol] = record.BadgeName
	row[purchaseQuantityCol] = strconv.Itoa(record.Quantity)
	row[purchaseUnitCostCol] = strconv.Itoa(record.UnitCost)
	row[purchaseIDCol] = record.ID
	row[purchaseReversesCol] = record.ReversesID
	if err := r.store.AppendRow(ctx, scope.Purchases, row); err != nil {
		return fmt.Errorf("append purchase: %w", err)
	}
	return nil
}

// List returns every log entry in append order. Entries written before ids
// were recorded have an empty ID.
func (r *PurchaseRepository) List(ctx context.Context, scope models.Scope) ([]models.PurchaseRecord, error) {
	rows, err := r.store.ReadRange(ctx, scope.Purchases, recordstore.ColumnSpan(purchaseTimestampCol, purchaseReversesCol, 1))
	if err != nil {
		return nil, fmt.Errorf("read purchases: %w", err)
	}
	records := make([]models.PurchaseRecord, 0, len(rows))
	for i := headerRows; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}
		record, err := decodePurchase(rows[i], i+1)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Holdings folds the log into badge name -> quantity for one student.
// Badges whose entries net to zero are omitted.
func (r *PurchaseRepository) Holdings(ctx context.Context, scope models.Scope, studentID string) (map[string]int, error) {
	records, err := r.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	return FoldHoldings(records, studentID), nil
}

// FindByID returns the entry with id and, when present, the entry reversing it.
func (r *PurchaseRepository) FindByID(ctx context.Context, scope models.Scope, id string) (*models.PurchaseRecord, *models.PurchaseRecord, error) {
	records, err := r.List(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	var found, reversal *models.PurchaseRecord
	for i := range records {
		if records[i].ID == id && found == nil {
			found = &records[i]
		}
		if records[i].ReversesID == id && reversal == nil {
			reversal = &records[i]
		}
	}
	if found == nil {
		return nil, nil, ErrRecordNotFound
	}
	return found, reversal, nil
}

// FoldHoldings sums quantities per badge for studentID.
func FoldHoldings(records []models.PurchaseRecord, studentID string) map[string]int {
	holdings := make(map[string]int)
	for _, rec := range records {
		if rec.StudentID != studentID {
			continue
		}
		holdings[rec.BadgeName] += rec.Quantity
	}
	for name, qty := range holdings {
		if qty == 0 {
			delete(holdings, name)
		}
	}
	return holdings
}

func decodePurchase(row []string, rowNum int) (models.PurchaseRecord, error) {
	d := rowDecoder{row: row, rowNum: rowNum}
	rec := models.PurchaseRecord{
		StudentID:  d.text(purchaseStudentCol),
		BadgeName:  d.text(purchaseBadgeCol),
		Quantity:   d.number(purchaseQuantityCol),
		UnitCost:   d.number(purchaseUnitCostCol),
		ID:         d.text(purchaseIDCol),
		ReversesID: d.text(purchaseReversesCol),
	}
	if ts, err := time.Parse(models.PurchaseTimeLayout, d.text(purchaseTimestampCol)); err == nil {
		rec.Timestamp = ts
	}
	return rec, d.err
}
