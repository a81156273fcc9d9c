package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
	"github.com/noah-isme/rewards-ledger-api/pkg/export"
)

type studentLister interface {
	List(ctx context.Context, scope models.Scope) ([]models.StudentRecord, error)
}

// LeaderboardService ranks students by experience.
type LeaderboardService struct {
	students studentLister
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewLeaderboardService constructs a LeaderboardService.
func NewLeaderboardService(students studentLister, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{students: students, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Rank returns every student sorted by experience descending. Ties keep
// store order, so equal scores rank by row.
func (s *LeaderboardService) Rank(ctx context.Context, scope models.Scope) ([]models.RankedStudent, error) {
	var cached []models.RankedStudent
	if s.cache.Load(ctx, ViewLeaderboard, scope.Name, &cached) {
		return cached, nil
	}

	students, err := s.students.List(ctx, scope)
	if err != nil {
		return nil, storeFailure(err, "failed to load students")
	}
	ranked := RankStudents(students)
	s.cache.Store(ctx, ViewLeaderboard, scope.Name, ranked, s.cacheTTL)
	return ranked, nil
}

// RankStudents sorts a copy of students with a stable sort and assigns ranks.
func RankStudents(students []models.StudentRecord) []models.RankedStudent {
	sorted := make([]models.StudentRecord, len(students))
	copy(sorted, students)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Experience > sorted[j].Experience
	})
	ranked := make([]models.RankedStudent, len(sorted))
	for i, st := range sorted {
		ranked[i] = models.RankedStudent{
			Rank:       i + 1,
			ID:         st.ID,
			Name:       st.Name,
			Experience: st.Experience,
			Level:      LevelFor(st.Experience),
		}
	}
	return ranked
}

// Export renders the ranking as a downloadable document.
func (s *LeaderboardService) Export(ctx context.Context, scope models.Scope, format export.Format) ([]byte, string, error) {
	ranked, err := s.Rank(ctx, scope)
	if err != nil {
		return nil, "", err
	}
	table := export.Table{
		Title:   fmt.Sprintf("Leaderboard - %s", scope.Name),
		Columns: []string{"Rank", "ID", "Name", "Experience", "Level"},
		Rows:    make([][]string, 0, len(ranked)),
	}
	for _, r := range ranked {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(r.Rank), r.ID, r.Name, strconv.Itoa(r.Experience), strconv.Itoa(r.Level),
		})
	}
	body, err := export.Render(format, table)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render leaderboard")
	}
	filename := fmt.Sprintf("leaderboard-%s.%s", scope.Name, format)
	return body, filename, nil
}
