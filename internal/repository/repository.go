package repository

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/rewards-ledger-api/pkg/recordstore"
)

// ErrRecordNotFound is returned when no row matches a lookup.
var ErrRecordNotFound = errors.New("record not found")

// ErrRowMoved is returned when a re-read row no longer holds the expected key,
// meaning rows were inserted or removed since it was located.
var ErrRowMoved = errors.New("row no longer holds the expected record")

// ErrMalformedCell is returned when a numeric column holds text that is not a
// whole number. Callers must not write over such a row.
var ErrMalformedCell = errors.New("numeric cell holds a non-numeric value")

// headerRows is the number of leading header rows in every collection.
const headerRows = 1

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// intAt parses a numeric cell. Blank reads as 0; whole-valued decimals such as
// "12.0" are accepted; anything else is ErrMalformedCell.
func intAt(row []string, idx int) (int, error) {
	v := cellAt(row, idx)
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, ErrMalformedCell
	}
	return int(f), nil
}

// rowDecoder reads typed cells from one row and keeps the first decode error.
type rowDecoder struct {
	row    []string
	rowNum int
	err    error
}

func (d *rowDecoder) text(idx int) string {
	return cellAt(d.row, idx)
}

func (d *rowDecoder) number(idx int) int {
	n, err := intAt(d.row, idx)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("%w: column %s row %d", err, recordstore.ColumnName(idx), d.rowNum)
	}
	return n
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
