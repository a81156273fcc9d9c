package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
	"github.com/noah-isme/rewards-ledger-api/pkg/export"
	"github.com/noah-isme/rewards-ledger-api/pkg/recordstore"
)

type stubStudentLister struct {
	students []models.StudentRecord
	err      error
	calls    int
}

func (s *stubStudentLister) List(ctx context.Context, scope models.Scope) ([]models.StudentRecord, error) {
	s.calls++
	return s.students, s.err
}

type memoryCache struct {
	values map[string][]byte
	sets   int
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.values == nil {
		m.values = map[string][]byte{}
	}
	m.values[key] = raw
	m.sets++
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.values {
		if k == pattern || (strings.HasSuffix(pattern, "*") && strings.HasPrefix(k, prefix)) {
			delete(m.values, k)
		}
	}
	return nil
}

func TestRankStudentsIsStable(t *testing.T) {
	students := []models.StudentRecord{
		{ID: "a", Name: "Ana", Experience: 30},
		{ID: "b", Name: "Beto", Experience: 80},
		{ID: "c", Name: "Caro", Experience: 30},
		{ID: "d", Name: "Dani", Experience: 100},
		{ID: "e", Name: "Eli", Experience: 30},
	}

	ranked := RankStudents(students)

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
		assert.Equal(t, i+1, r.Rank)
		assert.Equal(t, LevelFor(r.Experience), r.Level)
	}
	assert.Equal(t, []string{"d", "b", "a", "c", "e"}, ids)
	assert.Equal(t, "a", students[0].ID)
}

func TestLeaderboardRankUsesCache(t *testing.T) {
	lister := &stubStudentLister{students: []models.StudentRecord{{ID: "a", Experience: 5}, {ID: "b", Experience: 50}}}
	repo := &memoryCache{}
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	svc := NewLeaderboardService(lister, cache, time.Minute, zap.NewNop())

	first, err := svc.Rank(context.Background(), testScope())
	require.NoError(t, err)
	second, err := svc.Rank(context.Background(), testScope())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, lister.calls)
	assert.Equal(t, "b", second[0].ID)

	cache.Invalidate(context.Background(), "default", ViewLeaderboard)
	_, err = svc.Rank(context.Background(), testScope())
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}

func TestExperienceCreditInvalidatesLeaderboard(t *testing.T) {
	f := newLedgerFixture(t, "")
	repo := &memoryCache{}
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	f.students.cache = cache
	board := NewLeaderboardService(f.students.repo, cache, time.Minute, zap.NewNop())
	ctx := context.Background()

	ranked, err := board.Rank(ctx, f.scope)
	require.NoError(t, err)
	assert.Equal(t, "s1", ranked[0].ID)

	_, err = f.students.CreditExperience(ctx, f.scope, "s2", 40)
	require.NoError(t, err)

	ranked, err = board.Rank(ctx, f.scope)
	require.NoError(t, err)
	assert.Equal(t, "s2", ranked[0].ID)
	assert.Equal(t, 48, ranked[0].Experience)
}

func TestLeaderboardMapsStoreFailures(t *testing.T) {
	svc := NewLeaderboardService(&stubStudentLister{err: recordstore.Transient(errors.New("429"))}, nil, 0, nil)

	_, err := svc.Rank(context.Background(), testScope())
	assert.ErrorIs(t, err, appErrors.ErrStoreUnavailable)
	assert.NotContains(t, appErrors.FromError(err).Message, "Sheet1")
}

func TestLeaderboardExportCSV(t *testing.T) {
	lister := &stubStudentLister{students: []models.StudentRecord{{ID: "a", Name: "Ana", Experience: 12}, {ID: "b", Name: "Beto", Experience: 80}}}
	svc := NewLeaderboardService(lister, nil, 0, nil)

	body, filename, err := svc.Export(context.Background(), testScope(), export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "leaderboard-default.csv", filename)
	assert.Equal(t, "Rank,ID,Name,Experience,Level\n1,b,Beto,80,4\n2,a,Ana,12,1\n", string(body))

	pdf, filename, err := svc.Export(context.Background(), testScope(), export.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "leaderboard-default.pdf", filename)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
}
