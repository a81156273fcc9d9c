package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/pkg/recordstore"
)

// StudentRepository reads and writes student rows through the record store.
type StudentRepository struct {
	store recordstore.Gateway
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(store recordstore.Gateway) *StudentRepository {
	return &StudentRepository{store: store}
}

// List returns every data row of the scope's student collection in store order.
func (r *StudentRepository) List(ctx context.Context, scope models.Scope) ([]models.StudentRecord, error) {
	rows, err := r.store.ReadRange(ctx, scope.Students, recordstore.ColumnSpan(0, scope.Layout.LastColumn(), 1))
	if err != nil {
		return nil, fmt.Errorf("read students: %w", err)
	}
	students := make([]models.StudentRecord, 0, len(rows))
	for i := headerRows; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}
		student, err := decodeStudent(scope.Layout, rows[i], i+1)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, nil
}

// FindByID returns the first row whose id cell equals id.
func (r *StudentRepository) FindByID(ctx context.Context, scope models.Scope, id string) (*models.StudentRecord, error) {
	students, err := r.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	for i := range students {
		if students[i].ID == id {
			return &students[i], nil
		}
	}
	return nil, ErrRecordNotFound
}

// Reload re-reads a single row and confirms it still belongs to id.
func (r *StudentRepository) Reload(ctx context.Context, scope models.Scope, id string, row int) (*models.StudentRecord, error) {
	rows, err := r.store.ReadRange(ctx, scope.Students, recordstore.RowRange(0, scope.Layout.LastColumn(), row))
	if err != nil {
		return nil, fmt.Errorf("reload student row %d: %w", row, err)
	}
	if len(rows) == 0 {
		return nil, ErrRowMoved
	}
	student, err := decodeStudent(scope.Layout, rows[0], row)
	if err != nil {
		return nil, err
	}
	if student.ID != id {
		return nil, ErrRowMoved
	}
	return &student, nil
}

// UpdateCoins writes the coin balance cell of row.
func (r *StudentRepository) UpdateCoins(ctx context.Context, scope models.Scope, row, coins int) error {
	return r.writeInt(ctx, scope, scope.Layout.Coins, row, coins)
}

// UpdateExperience writes the experience cell of row.
func (r *StudentRepository) UpdateExperience(ctx context.Context, scope models.Scope, row, experience int) error {
	return r.writeInt(ctx, scope, scope.Layout.Experience, row, experience)
}

// UpdateLastObservedLevel writes the cached level cell of row.
func (r *StudentRepository) UpdateLastObservedLevel(ctx context.Context, scope models.Scope, row, level int) error {
	return r.writeInt(ctx, scope, scope.Layout.LastLevel, row, level)
}

// UpdateCredential writes the credential cell of row.
func (r *StudentRepository) UpdateCredential(ctx context.Context, scope models.Scope, row int, credential string) error {
	if err := r.store.WriteCell(ctx, scope.Students, recordstore.Cell(scope.Layout.Credential, row), credential); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

// Create appends a new student row.
func (r *StudentRepository) Create(ctx context.Context, scope models.Scope, student models.StudentRecord) error {
	if err := r.store.AppendRow(ctx, scope.Students, encodeStudent(scope.Layout, student)); err != nil {
		return fmt.Errorf("append student: %w", err)
	}
	return nil
}

func (r *StudentRepository) writeInt(ctx context.Context, scope models.Scope, col, row, value int) error {
	cell := recordstore.Cell(col, row)
	if err := r.store.WriteCell(ctx, scope.Students, cell, strconv.Itoa(value)); err != nil {
		return fmt.Errorf("write student column %s: %w", recordstore.ColumnName(col), err)
	}
	return nil
}

func decodeStudent(layout models.StudentLayout, row []string, rowNum int) (models.StudentRecord, error) {
	d := rowDecoder{row: row, rowNum: rowNum}
	student := models.StudentRecord{
		ID:                d.text(layout.ID),
		Name:              d.text(layout.Name),
		Sex:               d.text(layout.Sex),
		Email:             d.text(layout.Email),
		Credential:        d.text(layout.Credential),
		HomeworkCount:     d.number(layout.Homework),
		AttendanceCount:   d.number(layout.Attendance),
		CoinBalance:       d.number(layout.Coins),
		BadgeCount:        d.number(layout.BadgeCount),
		Experience:        d.number(layout.Experience),
		LastObservedLevel: d.number(layout.LastLevel),
		Row:               rowNum,
	}
	return student, d.err
}
func encodeStudent(layout models.StudentLayout, s models.StudentRecord) []string {
	row := make([]string, layout.LastColumn()+1)
	row[layout.ID] = s.ID
	row[layout.Name] = s.Name
	row[layout.Sex] = s.Sex
	row[layout.Email] = s.Email
	row[layout.Credential] = s.Credential
	row[layout.Homework] = strconv.Itoa(s.HomeworkCount)
	row[layout.Attendance] = strconv.Itoa(s.AttendanceCount)
	row[layout.Coins] = strconv.Itoa(s.CoinBalance)
	row[layout.BadgeCount] = strconv.Itoa(s.BadgeCount)
	row[layout.Experience] = strconv.Itoa(s.Experience)
	row[layout.LastLevel] = strconv.Itoa(s.LastObservedLevel)
	return row
}
