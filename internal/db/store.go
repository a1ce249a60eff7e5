package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/replydesk/internal/models"
)

// Store binds the package functions to a pool so it can be handed to the pipeline.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store on pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) LoadThreadStates(ctx context.Context, threadIDs []string) (map[string]models.ThreadState, error) {
	return GetThreadStates(ctx, s.pool, threadIDs)
}

func (s *Store) SaveThreadStates(ctx context.Context, states map[string]models.ThreadState) error {
	return SaveThreadStates(ctx, s.pool, states)
}

func (s *Store) UpdateExtraction(ctx context.Context, threadID string, fields models.ExtractedFields) error {
	return UpdateExtraction(ctx, s.pool, threadID, fields)
}

func (s *Store) GetThreadState(ctx context.Context, threadID string) (*models.ThreadState, error) {
	return GetThreadState(ctx, s.pool, threadID)
}

// ListThreads returns one page of threads together with pagination info.
func (s *Store) ListThreads(ctx context.Context, page, perPage int) (*models.ThreadsResponse, error) {
	if page < 1 {
		page = 1
	}
	total, err := CountThreadStates(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	threads, err := ListThreadStates(ctx, s.pool, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	return &models.ThreadsResponse{
		Threads: threads,
		Pagination: models.PaginationInfo{
			TotalCount: total,
			Page:       page,
			PerPage:    perPage,
		},
	}, nil
}

func (s *Store) UpsertStudent(ctx context.Context, student *models.Student) error {
	return UpsertStudent(ctx, s.pool, student)
}

func (s *Store) SaveOutcome(ctx context.Context, outcome *models.Outcome) error {
	return SaveOutcome(ctx, s.pool, outcome)
}

func (s *Store) ListOutcomes(ctx context.Context, limit int) ([]*models.Outcome, error) {
	return ListOutcomes(ctx, s.pool, limit)
}
