package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/pkg/recordstore"
)

const (
	badgeNameCol = iota
	badgeQuantityCol
	badgeCostCol
)

// BadgeRepository reads and writes the inventory collection (A name, B quantity, C cost).
type BadgeRepository struct {
	store recordstore.Gateway
}

// NewBadgeRepository constructs a badge repository.
func NewBadgeRepository(store recordstore.Gateway) *BadgeRepository {
	return &BadgeRepository{store: store}
}

// List returns every named badge row in store order.
func (r *BadgeRepository) List(ctx context.Context, scope models.Scope) ([]models.Badge, error) {
	rows, err := r.store.ReadRange(ctx, scope.Badges, recordstore.ColumnSpan(badgeNameCol, badgeCostCol, 1))
	if err != nil {
		return nil, fmt.Errorf("read badges: %w", err)
	}
	badges := make([]models.Badge, 0, len(rows))
	for i := headerRows; i < len(rows); i++ {
		badge, err := decodeBadge(rows[i], i+1)
		if badge.Name == "" {
			continue
		}
		if err != nil {
			return nil, err
		}
		badges = append(badges, badge)
	}
	return badges, nil
}

// FindByName returns the first badge row with the given name.
func (r *BadgeRepository) FindByName(ctx context.Context, scope models.Scope, name string) (*models.Badge, error) {
	badges, err := r.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	for i := range badges {
		if badges[i].Name == name {
			return &badges[i], nil
		}
	}
	return nil, ErrRecordNotFound
}

// Reload re-reads a single badge row and confirms it still holds name.
func (r *BadgeRepository) Reload(ctx context.Context, scope models.Scope, name string, row int) (*models.Badge, error) {
	rows, err := r.store.ReadRange(ctx, scope.Badges, recordstore.RowRange(badgeNameCol, badgeCostCol, row))
	if err != nil {
		return nil, fmt.Errorf("reload badge row %d: %w", row, err)
	}
	if len(rows) == 0 {
		return nil, ErrRowMoved
	}
	badge, err := decodeBadge(rows[0], row)
	if err != nil {
		return nil, err
	}
	if badge.Name != name {
		return nil, ErrRowMoved
	}
	return &badge, nil
}

// UpdateQuantity writes the available quantity cell of row.
func (r *BadgeRepository) UpdateQuantity(ctx context.Context, scope models.Scope, row, quantity int) error {
	cell := recordstore.Cell(badgeQuantityCol, row)
	if err := r.store.WriteCell(ctx, scope.Badges, cell, strconv.Itoa(quantity)); err != nil {
		return fmt.Errorf("write badge quantity: %w", err)
	}
	return nil
}

func decodeBadge(row []string, rowNum int) (models.Badge, error) {
	d := rowDecoder{row: row, rowNum: rowNum}
	badge := models.Badge{
		Name:              d.text(badgeNameCol),
		AvailableQuantity: d.number(badgeQuantityCol),
		UnitCost:          d.number(badgeCostCol),
		Row:               rowNum,
	}
	return badge, d.err
}
