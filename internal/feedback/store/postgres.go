package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"votebooth/internal/feedback/models"
	id "votebooth/pkg/domain"
	txcontext "votebooth/pkg/platform/tx"
)

// PostgresStore persists feedback in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, f *models.Feedback) error {
	if f == nil {
		return fmt.Errorf("feedback is required")
	}
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO feedback (id, voter_id, message, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.UUID(f.ID), uuid.UUID(f.VoterID), f.Message, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]*models.Feedback, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT id, voter_id, message, created_at
		FROM feedback
		ORDER BY created_at DESC, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []*models.Feedback
	for rows.Next() {
		var (
			f                   models.Feedback
			feedbackID, voterID uuid.UUID
		)
		if err := rows.Scan(&feedbackID, &voterID, &f.Message, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		f.ID = id.FeedbackID(feedbackID)
		f.VoterID = id.VoterID(voterID)
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return out, nil
}
