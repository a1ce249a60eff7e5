package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/replydesk/internal/models"
)

// SaveOutcome records the terminal outcome of one message.
func SaveOutcome(ctx context.Context, pool *pgxpool.Pool, outcome *models.Outcome) error {
	if outcome.RecordedAt.IsZero() {
		outcome.RecordedAt = time.Now().UTC()
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO message_outcomes (message_id, thread_id, sender_email, subject, state, reason, sent_id, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, outcome.MessageID, outcome.ThreadID, outcome.SenderEmail, outcome.Subject,
		string(outcome.State), outcome.Reason, outcome.SentID, outcome.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to save outcome: %w", err)
	}
	return nil
}

// ListOutcomes returns the most recent outcomes, newest first.
func ListOutcomes(ctx context.Context, pool *pgxpool.Pool, limit int) ([]*models.Outcome, error) {
	rows, err := pool.Query(ctx, `
		SELECT message_id, thread_id, sender_email, subject, state, reason, sent_id, recorded_at
		FROM message_outcomes
		ORDER BY recorded_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := make([]*models.Outcome, 0, limit)
	for rows.Next() {
		var o models.Outcome
		var state string
		if err := rows.Scan(&o.MessageID, &o.ThreadID, &o.SenderEmail, &o.Subject,
			&state, &o.Reason, &o.SentID, &o.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.State = models.MessageState(state)
		outcomes = append(outcomes, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcomes: %w", err)
	}

	return outcomes, nil
}
