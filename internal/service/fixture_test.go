package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/internal/repository"
	"github.com/noah-isme/rewards-ledger-api/pkg/config"
	"github.com/noah-isme/rewards-ledger-api/pkg/keylock"
	"github.com/noah-isme/rewards-ledger-api/pkg/recordstore"
)

// faultyStore injects failures into a MemoryStore per collection.
type faultyStore struct {
	*recordstore.MemoryStore
	mu         sync.Mutex
	writeFault func(collection string) error
	appendErr  map[string]error
}

func (f *faultyStore) WriteCell(ctx context.Context, collection, cell, value string) error {
	f.mu.Lock()
	fault := f.writeFault
	f.mu.Unlock()
	if fault != nil {
		if err := fault(collection); err != nil {
			return err
		}
	}
	return f.MemoryStore.WriteCell(ctx, collection, cell, value)
}

func (f *faultyStore) AppendRow(ctx context.Context, collection string, row []string) error {
	f.mu.Lock()
	err := f.appendErr[collection]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.AppendRow(ctx, collection, row)
}

func (f *faultyStore) failWrites(fn func(collection string) error) {
	f.mu.Lock()
	f.writeFault = fn
	f.mu.Unlock()
}

func (f *faultyStore) failAppends(collection string, err error) {
	f.mu.Lock()
	f.appendErr[collection] = err
	f.mu.Unlock()
}

type recordingNotifier struct {
	mu       sync.Mutex
	receipts []models.PurchaseResult
	codes    map[string]string
	err      error
}

func (n *recordingNotifier) PurchaseReceipt(student *models.StudentRecord, result *models.PurchaseResult, previousBalance int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.receipts = append(n.receipts, *result)
	return nil
}

func (n *recordingNotifier) ResetCode(student *models.StudentRecord, code string, ttl time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	if n.codes == nil {
		n.codes = make(map[string]string)
	}
	n.codes[student.ID] = code
	return nil
}

func (n *recordingNotifier) code(id string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[id]
}

type ledgerFixture struct {
	store     *faultyStore
	scope     models.Scope
	students  *StudentService
	inventory *InventoryService
	purchases *PurchaseService
	log       *repository.PurchaseRepository
	notifier  *recordingNotifier
}

func testScope() models.Scope {
	return models.Scope{
		Name:      "default",
		Students:  "Sheet1",
		Badges:    "Badges",
		Purchases: "Purchases",
		Layout:    models.DefaultStudentLayout(),
	}
}

func newLedgerFixture(t *testing.T, mode string) *ledgerFixture {
	t.Helper()
	mem := recordstore.NewMemoryStore()
	mem.Seed("Sheet1", [][]string{
		models.DefaultStudentLayout().Header(),
		{"s1", "Ana", "F", "ana@up.edu.mx", "AB12", "3", "50", "4", "0", "30", "2"},
		{"s2", "Luis", "M", "", "ZZ99", "1", "5", "2", "0", "8", "0"},
	})
	mem.Seed("Badges", [][]string{
		models.BadgeColumns,
		{"Gold", "5", "20"},
		{"Silver", "1", "10"},
	})
	mem.EnsureCollection("Purchases", models.PurchaseColumns)
	store := &faultyStore{MemoryStore: mem, appendErr: map[string]error{}}

	if mode == "" {
		mode = config.CredentialModePlain
	}
	locks := keylock.New()
	log := repository.NewPurchaseRepository(store)
	students := NewStudentService(repository.NewStudentRepository(store), log, locks, nil, nil, nil, zap.NewNop(), mode)
	inventory := NewInventoryService(repository.NewBadgeRepository(store), nil, 0, zap.NewNop())
	notifier := &recordingNotifier{}
	purchases := NewPurchaseService(students, inventory, log, notifier, locks, nil, nil, zap.NewNop(), PurchaseConfig{MaxQuantity: 100})

	return &ledgerFixture{
		store:     store,
		scope:     testScope(),
		students:  students,
		inventory: inventory,
		purchases: purchases,
		log:       log,
		notifier:  notifier,
	}
}

func (f *ledgerFixture) student(t *testing.T, id string) *models.StudentRecord {
	t.Helper()
	s, err := f.students.Get(context.Background(), f.scope, id)
	require.NoError(t, err)
	return s
}

func (f *ledgerFixture) badge(t *testing.T, name string) *models.Badge {
	t.Helper()
	b, err := f.inventory.Get(context.Background(), f.scope, name)
	require.NoError(t, err)
	return b
}

func (f *ledgerFixture) logLen(t *testing.T) int {
	t.Helper()
	records, err := f.log.List(context.Background(), f.scope)
	require.NoError(t, err)
	return len(records)
}
