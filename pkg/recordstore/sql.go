package recordstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const sqlSchema = `CREATE TABLE IF NOT EXISTS record_rows (
    collection TEXT NOT NULL,
    row_num INTEGER NOT NULL,
    cells TEXT[] NOT NULL DEFAULT '{}',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (collection, row_num)
)`

// SQLStore keeps every collection in a single PostgreSQL table of text arrays.
// Each gateway call runs in its own transaction, so BatchWrite is atomic per
// call exactly like the spreadsheet backend, and nothing is atomic across calls.
type SQLStore struct {
	db *sqlx.DB
}

type storedRow struct {
	RowNum int            `db:"row_num"`
	Cells  pq.StringArray `db:"cells"`
}

// NewSQLStore constructs a store over an open connection pool.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the backing table when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqlSchema); err != nil {
		return classifySQL(fmt.Errorf("migrate record_rows: %w", err))
	}
	return nil
}

// EnsureCollection writes header as row 1 when the collection has no rows.
func (s *SQLStore) EnsureCollection(ctx context.Context, collection string, header []string) error {
	query := `INSERT INTO record_rows (collection, row_num, cells) VALUES ($1, 1, $2) ON CONFLICT (collection, row_num) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, collection, pq.Array(header)); err != nil {
		return classifySQL(fmt.Errorf("ensure collection %s: %w", collection, err))
	}
	return nil
}

func (s *SQLStore) ReadRange(ctx context.Context, collection, rng string) ([][]string, error) {
	r, err := ParseRange(rng)
	if err != nil {
		return nil, err
	}
	query := "SELECT row_num, cells FROM record_rows WHERE collection = $1 AND row_num >= $2"
	args := []interface{}{collection, r.StartRow}
	if r.EndRow != 0 {
		query += " AND row_num <= $3"
		args = append(args, r.EndRow)
	}
	query += " ORDER BY row_num"

	var stored []storedRow
	if err := s.db.SelectContext(ctx, &stored, query, args...); err != nil {
		return nil, classifySQL(fmt.Errorf("read %s!%s: %w", collection, rng, err))
	}
	if len(stored) == 0 {
		return nil, nil
	}

	// Rebuild a dense grid so positions line up with row numbers.
	last := stored[len(stored)-1].RowNum
	grid := make([][]string, last)
	for _, row := range stored {
		grid[row.RowNum-1] = []string(row.Cells)
	}
	return r.Window(grid), nil
}

func (s *SQLStore) WriteCell(ctx context.Context, collection, cell, value string) error {
	return s.BatchWrite(ctx, collection, []CellUpdate{{Cell: cell, Value: value}})
}

func (s *SQLStore) BatchWrite(ctx context.Context, collection string, updates []CellUpdate) (err error) {
	if len(updates) == 0 {
		return nil
	}
	byRow := make(map[int]map[int]string)
	var order []int
	for _, u := range updates {
		col, row, perr := ParseCell(u.Cell)
		if perr != nil {
			return perr
		}
		if _, ok := byRow[row]; !ok {
			byRow[row] = make(map[int]string)
			order = append(order, row)
		}
		byRow[row][col] = u.Value
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classifySQL(fmt.Errorf("begin batch write: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, rowNum := range order {
		var cells pq.StringArray
		selectQuery := "SELECT cells FROM record_rows WHERE collection = $1 AND row_num = $2 FOR UPDATE"
		if qerr := tx.GetContext(ctx, &cells, selectQuery, collection, rowNum); qerr != nil && !errors.Is(qerr, sql.ErrNoRows) {
			return classifySQL(fmt.Errorf("lock row %d: %w", rowNum, qerr))
		}
		for col, value := range byRow[rowNum] {
			for len(cells) <= col {
				cells = append(cells, "")
			}
			cells[col] = value
		}
		upsert := `INSERT INTO record_rows (collection, row_num, cells, updated_at) VALUES ($1, $2, $3, NOW())
        ON CONFLICT (collection, row_num) DO UPDATE SET cells = EXCLUDED.cells, updated_at = NOW()`
		if _, xerr := tx.ExecContext(ctx, upsert, collection, rowNum, cells); xerr != nil {
			return classifySQL(fmt.Errorf("write row %d: %w", rowNum, xerr))
		}
	}

	if err = tx.Commit(); err != nil {
		return classifySQL(fmt.Errorf("commit batch write: %w", err))
	}
	return nil
}

func (s *SQLStore) AppendRow(ctx context.Context, collection string, row []string) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classifySQL(fmt.Errorf("begin append: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", collection); err != nil {
		return classifySQL(fmt.Errorf("lock collection %s: %w", collection, err))
	}
	insert := `INSERT INTO record_rows (collection, row_num, cells)
        SELECT $1, COALESCE(MAX(row_num), 0) + 1, $2 FROM record_rows WHERE collection = $1`
	if _, err = tx.ExecContext(ctx, insert, collection, pq.Array(row)); err != nil {
		return classifySQL(fmt.Errorf("append to %s: %w", collection, err))
	}
	if err = tx.Commit(); err != nil {
		return classifySQL(fmt.Errorf("commit append: %w", err))
	}
	return nil
}

// classifySQL tags connection loss, serialization failures and resource
// exhaustion as transient; everything else is fatal.
func classifySQL(err error) error {
	if IsTransient(err) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return Transient(err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "40"), strings.HasPrefix(code, "53"), strings.HasPrefix(code, "57P"):
			return Transient(err)
		}
	}
	return Fatal(err)
}
