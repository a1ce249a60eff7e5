package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/replydesk/internal/models"
)

// ErrThreadNotFound is returned when a requested thread cannot be found.
var ErrThreadNotFound = errors.New("thread not found")

// statusRank orders extraction statuses inside SQL so a write never moves one backwards.
const statusRank = `CASE %s WHEN 'complete' THEN 2 WHEN 'partial' THEN 1 ELSE 0 END`

var upsertThreadStateSQL = fmt.Sprintf(`
	INSERT INTO thread_states (thread_id, subject, latest_body, last_seen_at, extracted_fields, extraction_status)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (thread_id) DO UPDATE SET
		subject = COALESCE(NULLIF(EXCLUDED.subject, ''), thread_states.subject),
		latest_body = CASE
			WHEN EXCLUDED.latest_body = '' THEN thread_states.latest_body
			WHEN thread_states.last_seen_at IS NOT NULL AND EXCLUDED.last_seen_at IS NOT NULL
				AND EXCLUDED.last_seen_at < thread_states.last_seen_at THEN thread_states.latest_body
			ELSE EXCLUDED.latest_body
		END,
		last_seen_at = GREATEST(thread_states.last_seen_at, EXCLUDED.last_seen_at),
		extracted_fields = COALESCE(EXCLUDED.extracted_fields, thread_states.extracted_fields),
		extraction_status = CASE
			WHEN %s > %s THEN EXCLUDED.extraction_status
			ELSE thread_states.extraction_status
		END,
		updated_at = now()
`, fmt.Sprintf(statusRank, "EXCLUDED.extraction_status"), fmt.Sprintf(statusRank, "thread_states.extraction_status"))

// SaveThreadStates upserts the given thread states in one transaction.
// The stored last_seen_at only moves forward and the extraction status never regresses.
func SaveThreadStates(ctx context.Context, pool *pgxpool.Pool, states map[string]models.ThreadState) error {
	if len(states) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for threadID, state := range states {
		fields, err := marshalFields(state.Fields)
		if err != nil {
			return err
		}
		status := state.ExtractionStatus
		if !status.Valid() {
			status = models.ExtractionEmpty
		}
		batch.Queue(upsertThreadStateSQL, threadID, state.Subject, state.LatestBody, state.LastSeenAt, fields, string(status))
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save thread states: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit thread states: %w", err)
	}
	return nil
}

// GetThreadStates returns the stored states of the given threads, keyed by thread ID.
// Unknown IDs are simply missing from the result.
func GetThreadStates(ctx context.Context, pool *pgxpool.Pool, threadIDs []string) (map[string]models.ThreadState, error) {
	states := make(map[string]models.ThreadState, len(threadIDs))
	if len(threadIDs) == 0 {
		return states, nil
	}

	rows, err := pool.Query(ctx, `
		SELECT thread_id, subject, latest_body, last_seen_at, extracted_fields, extraction_status
		FROM thread_states
		WHERE thread_id = ANY($1)
	`, threadIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread states: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		state, err := scanThreadState(rows)
		if err != nil {
			return nil, err
		}
		states[state.ThreadID] = *state
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating thread states: %w", err)
	}

	return states, nil
}

// GetThreadState returns a single thread state.
func GetThreadState(ctx context.Context, pool *pgxpool.Pool, threadID string) (*models.ThreadState, error) {
	row := pool.QueryRow(ctx, `
		SELECT thread_id, subject, latest_body, last_seen_at, extracted_fields, extraction_status
		FROM thread_states
		WHERE thread_id = $1
	`, threadID)

	state, err := scanThreadState(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// ListThreadStates returns one page of threads, most recently seen first.
func ListThreadStates(ctx context.Context, pool *pgxpool.Pool, limit, offset int) ([]*models.ThreadState, error) {
	rows, err := pool.Query(ctx, `
		SELECT thread_id, subject, latest_body, last_seen_at, extracted_fields, extraction_status
		FROM thread_states
		ORDER BY last_seen_at DESC NULLS LAST, thread_id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list thread states: %w", err)
	}
	defer rows.Close()

	threads := make([]*models.ThreadState, 0, limit)
	for rows.Next() {
		state, err := scanThreadState(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating thread states: %w", err)
	}

	return threads, nil
}

// CountThreadStates returns the number of stored threads.
func CountThreadStates(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM thread_states`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count thread states: %w", err)
	}
	return count, nil
}

// UpdateExtraction merges extracted fields into a thread and advances its status.
// Empty values in fields never replace stored ones.
func UpdateExtraction(ctx context.Context, pool *pgxpool.Pool, threadID string, fields models.ExtractedFields) error {
	encoded, err := marshalFields(&fields)
	if err != nil {
		return err
	}
	status := fields.Status
	if !status.Valid() {
		status = models.ExtractionEmpty
	}

	nextStatus := fmt.Sprintf(`CASE WHEN %s > %s THEN $3::text ELSE extraction_status END`,
		fmt.Sprintf(statusRank, "$3::text"), fmt.Sprintf(statusRank, "extraction_status"))

	tag, err := pool.Exec(ctx, fmt.Sprintf(`
		UPDATE thread_states SET
			extracted_fields = COALESCE(extracted_fields, '{}'::jsonb)
				|| COALESCE((
					SELECT jsonb_object_agg(key, value) FROM jsonb_each($2::jsonb)
					WHERE key <> 'status' AND value NOT IN ('""'::jsonb, 'null'::jsonb)
				), '{}'::jsonb)
				|| jsonb_build_object('status', %[1]s),
			extraction_status = %[1]s,
			updated_at = now()
		WHERE thread_id = $1
	`, nextStatus), threadID, encoded, string(status))
	if err != nil {
		return fmt.Errorf("failed to update extraction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrThreadNotFound
	}
	return nil
}

func scanThreadState(row pgx.Row) (*models.ThreadState, error) {
	var state models.ThreadState
	var lastSeenAt *time.Time
	var fields []byte
	var status string

	if err := row.Scan(&state.ThreadID, &state.Subject, &state.LatestBody, &lastSeenAt, &fields, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan thread state: %w", err)
	}

	state.LastSeenAt = lastSeenAt
	state.ExtractionStatus = models.ExtractionStatus(status)
	if len(fields) > 0 {
		var f models.ExtractedFields
		if err := json.Unmarshal(fields, &f); err != nil {
			return nil, fmt.Errorf("failed to decode extracted fields: %w", err)
		}
		state.Fields = &f
	}
	return &state, nil
}

func marshalFields(fields *models.ExtractedFields) ([]byte, error) {
	if fields == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extracted fields: %w", err)
	}
	return encoded, nil
}
